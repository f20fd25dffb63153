package handler

import (
	"net/http"
	"time"

	"github.com/Lugier/HFT/internal/book"
	"github.com/Lugier/HFT/internal/domain"
	"github.com/Lugier/HFT/internal/gas"
	"github.com/Lugier/HFT/internal/rpc"
	"github.com/Lugier/HFT/internal/sink"
)

// StatusHandler serves the read-only status API: current quotes, RPC endpoint
// health, gas snapshots, and recent signals. Everything here is a view over
// in-memory state; no handler mutates the scanner.
type StatusHandler struct {
	book    *book.Book
	pool    *rpc.Pool
	oracle  *gas.Oracle
	signals *sink.RecentSink
}

// NewStatusHandler creates a StatusHandler. pool, oracle, and signals may be
// nil when the corresponding subsystem is not configured.
func NewStatusHandler(b *book.Book, pool *rpc.Pool, oracle *gas.Oracle, signals *sink.RecentSink) *StatusHandler {
	return &StatusHandler{book: b, pool: pool, oracle: oracle, signals: signals}
}

// Health responds with a liveness payload.
// GET /healthz
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// quoteView flattens a book entry for JSON output.
type quoteView struct {
	Instrument string  `json:"instrument"`
	Venue      string  `json:"venue"`
	Bid        float64 `json:"bid"`
	Ask        float64 `json:"ask"`
	AgeMs      int64   `json:"age_ms"`
	Stale      bool    `json:"stale"`
	Block      uint64  `json:"block,omitempty"`
}

// Quotes lists the current quote book, one row per (instrument, venue).
// GET /api/quotes
func (h *StatusHandler) Quotes(w http.ResponseWriter, r *http.Request) {
	var out []quoteView
	for _, inst := range h.book.Instruments() {
		for _, e := range h.book.Snapshot(inst) {
			out = append(out, quoteView{
				Instrument: e.Quote.Instrument.Symbol(),
				Venue:      e.Quote.Venue,
				Bid:        e.Quote.Bid,
				Ask:        e.Quote.Ask,
				AgeMs:      e.Age.Milliseconds(),
				Stale:      e.Stale,
				Block:      e.Quote.Block,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotes": out})
}

// Endpoints reports RPC endpoint health across all chains.
// GET /api/endpoints
func (h *StatusHandler) Endpoints(w http.ResponseWriter, r *http.Request) {
	var status []rpc.EndpointStatus
	if h.pool != nil {
		status = h.pool.Status()
	}
	writeJSON(w, http.StatusOK, map[string]any{"endpoints": status})
}

// Gas reports the latest per-chain gas snapshots.
// GET /api/gas
func (h *StatusHandler) Gas(w http.ResponseWriter, r *http.Request) {
	snapshot := map[string]domain.GasQuote{}
	if h.oracle != nil {
		snapshot = h.oracle.Snapshot()
	}
	writeJSON(w, http.StatusOK, map[string]any{"gas": snapshot})
}

// Signals lists recent opportunity signals, newest first.
// GET /api/signals?limit=N
func (h *StatusHandler) Signals(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	var out []domain.OpportunitySignal
	if h.signals != nil {
		out = h.signals.Recent(limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{"signals": out})
}
