package sink

import (
	"context"
	"sync"

	"github.com/Lugier/HFT/internal/domain"
)

// RecentSink keeps the last N signals in memory for the status API. It is a
// fixed-size ring: old signals fall off, nothing blocks.
type RecentSink struct {
	mu   sync.RWMutex
	ring []domain.OpportunitySignal
	next int
	size int
}

// NewRecentSink creates a RecentSink holding up to capacity signals.
func NewRecentSink(capacity int) *RecentSink {
	if capacity <= 0 {
		capacity = 100
	}
	return &RecentSink{ring: make([]domain.OpportunitySignal, capacity)}
}

// Emit records the signal.
func (s *RecentSink) Emit(_ context.Context, sig domain.OpportunitySignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ring[s.next] = sig
	s.next = (s.next + 1) % len(s.ring)
	if s.size < len(s.ring) {
		s.size++
	}
	return nil
}

// Name identifies the sink in logs and metrics.
func (s *RecentSink) Name() string { return "recent" }

// Recent returns up to limit signals, newest first.
func (s *RecentSink) Recent(limit int) []domain.OpportunitySignal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > s.size {
		limit = s.size
	}
	out := make([]domain.OpportunitySignal, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.ring)) % len(s.ring)
		out = append(out, s.ring[idx])
	}
	return out
}

var _ domain.SignalSink = (*RecentSink)(nil)
