// Package detector scans the quote book on a fixed cadence for cross-venue
// arbitrage. Each scan compares every fresh venue pair per instrument,
// estimates full execution costs through the cost model, and emits an
// opportunity signal for every pair whose net profit clears the configured
// threshold.
package detector

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Lugier/HFT/internal/book"
	"github.com/Lugier/HFT/internal/costs"
	"github.com/Lugier/HFT/internal/domain"
)

// GasSource supplies the current per-chain gas table. Implemented by
// *gas.Oracle.
type GasSource interface {
	Snapshot() map[string]domain.GasQuote
}

// Detector owns the scan loop. It only reads the book and only writes
// signals; it never mutates quotes.
type Detector struct {
	book   *book.Book
	venues map[string]domain.Venue
	model  costs.Model
	gas    GasSource
	sinks  []domain.SignalSink

	interval  time.Duration
	size      float64
	minProfit float64
	levels    domain.ProfitThresholds

	logger *slog.Logger
	now    func() time.Time

	// onScan, when set, observes each cycle's duration and signal count.
	onScan func(elapsed time.Duration, signals int)
}

// SetScanObserver registers a per-cycle observer, used to feed metrics. Must
// be called before Run.
func (d *Detector) SetScanObserver(fn func(elapsed time.Duration, signals int)) {
	d.onScan = fn
}

// Config carries the detector's tunables.
type Config struct {
	ScanInterval time.Duration
	TradeSize    float64
	MinProfit    float64
	ProfitLevels domain.ProfitThresholds
}

// New creates a Detector scanning the given book.
func New(b *book.Book, venues map[string]domain.Venue, model costs.Model, gas GasSource, sinks []domain.SignalSink, cfg Config, logger *slog.Logger) *Detector {
	return &Detector{
		book:      b,
		venues:    venues,
		model:     model,
		gas:       gas,
		sinks:     sinks,
		interval:  cfg.ScanInterval,
		size:      cfg.TradeSize,
		minProfit: cfg.MinProfit,
		levels:    cfg.ProfitLevels,
		logger:    logger.With(slog.String("component", "detector")),
		now:       time.Now,
	}
}

// Run scans on the configured interval until ctx is cancelled.
func (d *Detector) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := d.now()
			signals := d.ScanOnce()
			if d.onScan != nil {
				d.onScan(d.now().Sub(start), len(signals))
			}
			d.emit(ctx, signals)
		}
	}
}

// ScanOnce evaluates every instrument and venue pair in the book and returns
// the profitable signals of this cycle, ranked by net profit descending.
func (d *Detector) ScanOnce() []domain.OpportunitySignal {
	var signals []domain.OpportunitySignal
	gasTable := d.gas.Snapshot()

	for _, inst := range d.book.Instruments() {
		entries := d.fresh(d.book.Snapshot(inst))
		for _, buy := range entries {
			for _, sell := range entries {
				if buy.Quote.Venue == sell.Quote.Venue {
					continue
				}
				if sig, ok := d.evaluate(inst, buy, sell, gasTable); ok {
					signals = append(signals, sig)
				}
			}
		}
	}

	sort.Slice(signals, func(i, j int) bool {
		return signals[i].NetProfit > signals[j].NetProfit
	})
	return signals
}

// fresh filters a snapshot down to entries usable for detection: not stale
// and two-sided.
func (d *Detector) fresh(entries []book.Entry) []book.Entry {
	out := entries[:0]
	for _, e := range entries {
		if e.Stale || e.Quote.Bid <= 0 || e.Quote.Ask <= 0 {
			continue
		}
		out = append(out, e)
	}
	return out
}

// evaluate prices one directed venue pair: buy at buy.Ask, sell at sell.Bid.
func (d *Detector) evaluate(inst domain.Instrument, buy, sell book.Entry, gasTable map[string]domain.GasQuote) (domain.OpportunitySignal, bool) {
	grossSpread := sell.Quote.Bid - buy.Quote.Ask
	if grossSpread <= 0 {
		return domain.OpportunitySignal{}, false
	}

	buyVenue, ok := d.venues[buy.Quote.Venue]
	if !ok {
		return domain.OpportunitySignal{}, false
	}
	sellVenue, ok := d.venues[sell.Quote.Venue]
	if !ok {
		return domain.OpportunitySignal{}, false
	}
	if d.size < buyVenue.MinTradeSize || d.size < sellVenue.MinTradeSize {
		return domain.OpportunitySignal{}, false
	}

	breakdown, err := d.model.Estimate(costs.Input{
		Buy:       buy.Quote,
		Sell:      sell.Quote,
		BuyVenue:  buyVenue,
		SellVenue: sellVenue,
		Size:      d.size,
		Gas:       gasTable,
	})
	if err != nil {
		d.logger.Debug("pair skipped",
			slog.String("instrument", inst.Symbol()),
			slog.String("buy", buy.Quote.Venue),
			slog.String("sell", sell.Quote.Venue),
			slog.String("error", err.Error()))
		return domain.OpportunitySignal{}, false
	}

	netProfit := grossSpread*d.size - breakdown.Total()
	if netProfit < d.minProfit {
		return domain.OpportunitySignal{}, false
	}

	return domain.OpportunitySignal{
		ID:           uuid.NewString(),
		Instrument:   inst,
		BuyVenue:     buy.Quote.Venue,
		SellVenue:    sell.Quote.Venue,
		BuyPrice:     buy.Quote.Ask,
		SellPrice:    sell.Quote.Bid,
		Size:         d.size,
		GrossSpread:  grossSpread,
		Costs:        breakdown,
		NetProfit:    netProfit,
		Level:        domain.ClassifyProfit(netProfit, d.levels),
		BuyQuoteAge:  buy.Age,
		SellQuoteAge: sell.Age,
		DetectedAt:   d.now(),
	}, true
}

// emit fans the cycle's signals out to every sink. A sink failure is logged
// and never stops detection or the other sinks.
func (d *Detector) emit(ctx context.Context, signals []domain.OpportunitySignal) {
	for _, sig := range signals {
		for _, sink := range d.sinks {
			if err := sink.Emit(ctx, sig); err != nil {
				d.logger.Warn("sink emit failed",
					slog.String("sink", sink.Name()),
					slog.String("signal", sig.ID),
					slog.String("error", err.Error()))
			}
		}
	}
}
