// Package feed ingests quotes from venues and normalizes them into the shared
// quote book. One adapter per venue: streaming venues hold a WebSocket,
// polling venues hit a REST endpoint on a timer, on-chain venues quote
// liquidity pools through the RPC layer. Adapters never talk to each other;
// the book is the only meeting point.
package feed

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Lugier/HFT/internal/domain"
)

// QuoteSink receives normalized quotes. Implemented by *book.Book.
type QuoteSink interface {
	Update(q domain.Quote) bool
	MarkStale(inst domain.Instrument, venue string)
}

// Adapter is one venue's ingestion loop. Run blocks until ctx is cancelled;
// transport failures are handled internally with backoff and never propagate
// as errors.
type Adapter interface {
	Venue() domain.Venue
	Run(ctx context.Context) error
}

// symbolTable maps between canonical instruments and a venue's local symbol
// spelling, both directions. Built once per adapter at construction.
type symbolTable struct {
	toLocal map[string]string            // canonical "BASE/QUOTE" -> local
	toInst  map[string]domain.Instrument // local -> canonical
}

func newSymbolTable() *symbolTable {
	return &symbolTable{
		toLocal: make(map[string]string),
		toInst:  make(map[string]domain.Instrument),
	}
}

func (t *symbolTable) add(inst domain.Instrument, local string) {
	t.toLocal[inst.Symbol()] = local
	t.toInst[local] = inst
}

func (t *symbolTable) local(inst domain.Instrument) (string, bool) {
	s, ok := t.toLocal[inst.Symbol()]
	return s, ok
}

func (t *symbolTable) instrument(local string) (domain.Instrument, bool) {
	inst, ok := t.toInst[local]
	return inst, ok
}

func (t *symbolTable) locals() []string {
	out := make([]string, 0, len(t.toInst))
	for s := range t.toInst {
		out = append(out, s)
	}
	return out
}

// parsePrice converts a venue's string-encoded decimal into a float64,
// rejecting non-positive values. Malformed prices are a normalization
// failure: the message gets dropped, never a zero-priced quote.
func parsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("feed: bad price %q: %w", s, domain.ErrNormalization)
	}
	if v <= 0 {
		return 0, fmt.Errorf("feed: non-positive price %q: %w", s, domain.ErrNormalization)
	}
	return v, nil
}

// parseSize converts a string-encoded size, allowing zero.
func parseSize(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("feed: bad size %q: %w", s, domain.ErrNormalization)
	}
	return v, nil
}
