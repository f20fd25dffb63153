package book

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lugier/HFT/internal/domain"
)

func quoteAt(inst domain.Instrument, venue string, bid, ask float64, ts time.Time) domain.Quote {
	return domain.Quote{
		Instrument: inst,
		Venue:      venue,
		Bid:        bid,
		Ask:        ask,
		ObservedAt: ts,
	}
}

func TestUpdateMonotonicity(t *testing.T) {
	b := New()
	inst := domain.NewInstrument("ETH", "USDT")
	t0 := time.Now()

	require.True(t, b.Update(quoteAt(inst, "binance", 100, 101, t0)))
	require.True(t, b.Update(quoteAt(inst, "binance", 102, 103, t0.Add(time.Second))))

	// Out-of-order quote must be silently dropped.
	assert.False(t, b.Update(quoteAt(inst, "binance", 90, 91, t0)))
	// Equal timestamp does not supersede either.
	assert.False(t, b.Update(quoteAt(inst, "binance", 95, 96, t0.Add(time.Second))))

	got, ok := b.Get(inst, "binance")
	require.True(t, ok)
	assert.Equal(t, 102.0, got.Quote.Bid)
	assert.Equal(t, 103.0, got.Quote.Ask)
}

func TestSnapshotAnnotatesAge(t *testing.T) {
	b := New()
	now := time.Now()
	b.now = func() time.Time { return now }

	inst := domain.NewInstrument("ETH", "USDT")
	b.Update(quoteAt(inst, "binance", 100, 101, now.Add(-500*time.Millisecond)))
	b.Update(quoteAt(inst, "kraken", 99, 102, now.Add(-4*time.Second)))
	b.Update(quoteAt(domain.NewInstrument("BTC", "USDT"), "binance", 50000, 50010, now))

	snap := b.Snapshot(inst)
	require.Len(t, snap, 2)
	byVenue := map[string]Entry{}
	for _, e := range snap {
		byVenue[e.Quote.Venue] = e
	}
	assert.Equal(t, 500*time.Millisecond, byVenue["binance"].Age)
	assert.Equal(t, 4*time.Second, byVenue["kraken"].Age)
}

func TestVenueMaxAgeMarksStale(t *testing.T) {
	b := New()
	now := time.Now()
	b.now = func() time.Time { return now }
	b.SetVenueMaxAge("binance", 2*time.Second)

	inst := domain.NewInstrument("ETH", "USDT")
	b.Update(quoteAt(inst, "binance", 100, 101, now.Add(-3*time.Second)))

	got, ok := b.Get(inst, "binance")
	require.True(t, ok)
	assert.True(t, got.Stale)

	// A fresh update clears staleness.
	b.Update(quoteAt(inst, "binance", 100, 101, now))
	got, _ = b.Get(inst, "binance")
	assert.False(t, got.Stale)
}

func TestMarkStaleKeepsLastPrice(t *testing.T) {
	b := New()
	inst := domain.NewInstrument("ETH", "USDC")
	b.Update(quoteAt(inst, "uniswap_v3", 2500, 2501, time.Now()))

	b.MarkStale(inst, "uniswap_v3")

	got, ok := b.Get(inst, "uniswap_v3")
	require.True(t, ok)
	assert.True(t, got.Stale)
	assert.Equal(t, 2500.0, got.Quote.Bid, "stale mark must not overwrite the price")

	// A newer quote supersedes the stale entry and clears the mark.
	b.Update(quoteAt(inst, "uniswap_v3", 2510, 2511, time.Now().Add(time.Second)))
	got, _ = b.Get(inst, "uniswap_v3")
	assert.False(t, got.Stale)
}

func TestConcurrentUpdates(t *testing.T) {
	b := New()

	const keys = 50
	const updatesPerKey = 20

	type target struct {
		inst  domain.Instrument
		venue string
	}
	targets := make([]target, 0, keys)
	for i := 0; i < keys; i++ {
		targets = append(targets, target{
			inst:  domain.NewInstrument(fmt.Sprintf("TOK%d", i/5), "USDT"),
			venue: fmt.Sprintf("venue%d", i%5),
		})
	}

	base := time.Now()
	var wg sync.WaitGroup
	for _, tgt := range targets {
		for j := 0; j < updatesPerKey; j++ {
			wg.Add(1)
			go func(tgt target, j int) {
				defer wg.Done()
				b.Update(quoteAt(tgt.inst, tgt.venue, float64(j), float64(j)+1, base.Add(time.Duration(j)*time.Millisecond)))
			}(tgt, j)
		}
	}
	wg.Wait()

	// Exactly one entry per key, each holding the latest update.
	assert.Equal(t, keys, b.Len())
	for _, tgt := range targets {
		got, ok := b.Get(tgt.inst, tgt.venue)
		require.True(t, ok)
		assert.Equal(t, float64(updatesPerKey-1), got.Quote.Bid,
			"%s@%s must hold the update with the latest observed_at", tgt.inst.Symbol(), tgt.venue)
	}
}
