package rpc

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lugier/HFT/internal/domain"
)

func testPool(urls ...string) *Pool {
	p := NewPool(slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.AddChain("arbitrum", urls)
	return p
}

var errBoom = errors.New("connection refused")

func TestSelectPrefersLowestLatencyHealthy(t *testing.T) {
	p := testPool("a", "b", "c")
	eps := p.Endpoints("arbitrum")

	p.Report(eps[0], nil, 120*time.Millisecond)
	p.Report(eps[1], nil, 40*time.Millisecond)
	p.Report(eps[2], nil, 300*time.Millisecond)

	ep, err := p.Select("arbitrum")
	require.NoError(t, err)
	assert.Equal(t, "b", ep.URL)
}

func TestSelectColdStartReturnsHealthyUnknown(t *testing.T) {
	p := testPool("a", "b")
	ep, err := p.Select("arbitrum")
	require.NoError(t, err)
	assert.Equal(t, Healthy, ep.State())
}

func TestThreeFailuresKillEndpoint(t *testing.T) {
	p := testPool("a", "b", "c")
	eps := p.Endpoints("arbitrum")

	// Endpoint a fails three times in a row: it must never be selected
	// again until a success is recorded for it.
	for i := 0; i < 3; i++ {
		p.Report(eps[0], errBoom, 0)
	}
	assert.Equal(t, Dead, eps[0].State())

	for i := 0; i < 20; i++ {
		ep, err := p.Select("arbitrum")
		require.NoError(t, err)
		assert.NotEqual(t, "a", ep.URL)
	}

	// One success brings it straight back.
	p.Report(eps[0], nil, 50*time.Millisecond)
	assert.Equal(t, Healthy, eps[0].State())
}

func TestSelectFallsBackToDegraded(t *testing.T) {
	p := testPool("a", "b")
	eps := p.Endpoints("arbitrum")

	// One failure each: both degraded, none dead. A degraded-but-alive
	// endpoint still beats blocking.
	p.Report(eps[0], errBoom, 0)
	p.Report(eps[1], errBoom, 0)

	ep, err := p.Select("arbitrum")
	require.NoError(t, err)
	assert.Equal(t, Degraded, ep.State())
}

func TestAllDeadReturnsNoEndpointAvailable(t *testing.T) {
	p := testPool("a", "b", "c")
	for _, ep := range p.Endpoints("arbitrum") {
		for i := 0; i < 3; i++ {
			p.Report(ep, errBoom, 0)
		}
	}

	_, err := p.Select("arbitrum")
	require.ErrorIs(t, err, domain.ErrNoEndpointAvailable)
}

func TestUnknownChainReturnsNoEndpointAvailable(t *testing.T) {
	p := testPool("a")
	_, err := p.Select("solana")
	require.ErrorIs(t, err, domain.ErrNoEndpointAvailable)
}

func TestLatencyEWMA(t *testing.T) {
	p := testPool("a")
	ep := p.Endpoints("arbitrum")[0]

	p.Report(ep, nil, 100*time.Millisecond)
	assert.InDelta(t, 100, ep.Latency(), 0.01, "first sample seeds the average")

	p.Report(ep, nil, 200*time.Millisecond)
	// 0.8*100 + 0.2*200 = 120
	assert.InDelta(t, 120, ep.Latency(), 0.01)
}

func TestFailureCounterResetOnSuccess(t *testing.T) {
	p := testPool("a")
	ep := p.Endpoints("arbitrum")[0]

	p.Report(ep, errBoom, 0)
	p.Report(ep, errBoom, 0)
	assert.Equal(t, Degraded, ep.State())

	p.Report(ep, nil, 10*time.Millisecond)
	assert.Equal(t, Healthy, ep.State())

	// The counter restarted: two more failures only degrade.
	p.Report(ep, errBoom, 0)
	p.Report(ep, errBoom, 0)
	assert.Equal(t, Degraded, ep.State())
	p.Report(ep, errBoom, 0)
	assert.Equal(t, Dead, ep.State())
}
