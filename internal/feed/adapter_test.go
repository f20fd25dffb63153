package feed

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Lugier/HFT/internal/domain"
)

// fakeSink records everything the adapters push into it.
type fakeSink struct {
	mu      sync.Mutex
	updates []domain.Quote
	stale   []string // "BASE/QUOTE|venue"
}

func (s *fakeSink) Update(q domain.Quote) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, q)
	return true
}

func (s *fakeSink) MarkStale(inst domain.Instrument, venue string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale = append(s.stale, inst.Symbol()+"|"+venue)
}

func (s *fakeSink) quotes() []domain.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Quote(nil), s.updates...)
}

func (s *fakeSink) staleKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.stale...)
}

func TestParsePrice(t *testing.T) {
	v, err := parsePrice("1999.50")
	assert.NoError(t, err)
	assert.InDelta(t, 1999.5, v, 1e-9)

	_, err = parsePrice("not-a-number")
	assert.ErrorIs(t, err, domain.ErrNormalization)

	_, err = parsePrice("0")
	assert.ErrorIs(t, err, domain.ErrNormalization)

	_, err = parsePrice("-5")
	assert.ErrorIs(t, err, domain.ErrNormalization)
}

func TestParseSize(t *testing.T) {
	v, err := parseSize("3.25")
	assert.NoError(t, err)
	assert.InDelta(t, 3.25, v, 1e-9)

	v, err = parseSize("")
	assert.NoError(t, err)
	assert.Zero(t, v)

	_, err = parseSize("-1")
	assert.ErrorIs(t, err, domain.ErrNormalization)
}

func TestSymbolTable(t *testing.T) {
	tbl := newSymbolTable()
	eth := domain.NewInstrument("ETH", "USDT")
	tbl.add(eth, "ethusdt")

	local, ok := tbl.local(eth)
	assert.True(t, ok)
	assert.Equal(t, "ethusdt", local)

	inst, ok := tbl.instrument("ethusdt")
	assert.True(t, ok)
	assert.Equal(t, eth, inst)

	_, ok = tbl.instrument("btcusdt")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"ethusdt"}, tbl.locals())
}
