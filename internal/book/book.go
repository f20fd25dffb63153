// Package book implements the process-wide quote book: the single shared
// mapping from (instrument, venue) to the latest observed quote. All venue
// feed adapters write through Update; the opportunity detector reads through
// Snapshot. The book is sharded so concurrent venues never serialize behind
// each other.
package book

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/Lugier/HFT/internal/domain"
)

const shardCount = 32

type entry struct {
	quote domain.Quote
	stale bool
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// Entry is one quote as returned by Snapshot, annotated with its age at read
// time and whether it has gone stale for detection purposes.
type Entry struct {
	Quote domain.Quote
	Age   time.Duration
	Stale bool
}

// Book holds the latest quote per (instrument, venue) with observed-at
// monotonicity: an update older than the stored entry is silently dropped.
type Book struct {
	shards [shardCount]shard

	// maxAge holds the per-venue freshness threshold.
	mu     sync.RWMutex
	maxAge map[string]time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// New creates an empty Book.
func New() *Book {
	b := &Book{
		maxAge: make(map[string]time.Duration),
		now:    time.Now,
	}
	for i := range b.shards {
		b.shards[i].entries = make(map[string]*entry)
	}
	return b
}

// SetVenueMaxAge registers the freshness threshold for a venue. Quotes older
// than the threshold are reported stale by Snapshot and excluded from
// detection.
func (b *Book) SetVenueMaxAge(venue string, maxAge time.Duration) {
	b.mu.Lock()
	b.maxAge[venue] = maxAge
	b.mu.Unlock()
}

func (b *Book) venueMaxAge(venue string) time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.maxAge[venue]
}

func key(inst domain.Instrument, venue string) string {
	return inst.Symbol() + "|" + venue
}

func (b *Book) shardFor(k string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(k))
	return &b.shards[h.Sum32()%shardCount]
}

// Update stores the quote iff it is newer than the current entry for the same
// (instrument, venue). It returns false when the quote was dropped as
// out-of-order; that is not an error. A successful update clears any stale
// mark.
func (b *Book) Update(q domain.Quote) bool {
	k := key(q.Instrument, q.Venue)
	s := b.shardFor(k)

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[k]
	if ok && !q.ObservedAt.After(cur.quote.ObservedAt) {
		return false
	}
	if ok {
		cur.quote = q
		cur.stale = false
	} else {
		s.entries[k] = &entry{quote: q}
	}
	return true
}

// MarkStale flags the stored quote for (instrument, venue) as stale without
// discarding its last price. Used when a venue fails to produce a fresh quote
// (insufficient liquidity, dead endpoints): the previous price stays visible
// for display but is excluded from detection.
func (b *Book) MarkStale(inst domain.Instrument, venue string) {
	k := key(inst, venue)
	s := b.shardFor(k)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[k]; ok {
		cur.stale = true
	}
}

// Get returns the current entry for (instrument, venue).
func (b *Book) Get(inst domain.Instrument, venue string) (Entry, bool) {
	k := key(inst, venue)
	s := b.shardFor(k)

	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.entries[k]
	if !ok {
		return Entry{}, false
	}
	return b.annotate(cur), true
}

// Snapshot returns all current quotes for the instrument across venues,
// annotated with age and staleness. The result is a copy; mutating it does
// not affect the book.
func (b *Book) Snapshot(inst domain.Instrument) []Entry {
	var out []Entry
	for i := range b.shards {
		s := &b.shards[i]
		s.mu.RLock()
		for _, cur := range s.entries {
			if cur.quote.Instrument == inst {
				out = append(out, b.annotate(cur))
			}
		}
		s.mu.RUnlock()
	}
	return out
}

// Instruments returns the distinct instruments currently present in the book.
func (b *Book) Instruments() []domain.Instrument {
	seen := make(map[domain.Instrument]struct{})
	for i := range b.shards {
		s := &b.shards[i]
		s.mu.RLock()
		for _, cur := range s.entries {
			seen[cur.quote.Instrument] = struct{}{}
		}
		s.mu.RUnlock()
	}
	out := make([]domain.Instrument, 0, len(seen))
	for inst := range seen {
		out = append(out, inst)
	}
	return out
}

// Len returns the number of (instrument, venue) entries currently stored.
func (b *Book) Len() int {
	n := 0
	for i := range b.shards {
		s := &b.shards[i]
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// annotate builds an Entry from a stored quote. Caller holds the shard lock.
func (b *Book) annotate(cur *entry) Entry {
	age := b.now().Sub(cur.quote.ObservedAt)
	stale := cur.stale
	if max := b.venueMaxAge(cur.quote.Venue); max > 0 && age > max {
		stale = true
	}
	return Entry{Quote: cur.quote, Age: age, Stale: stale}
}
