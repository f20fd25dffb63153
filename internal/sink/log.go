// Package sink contains the signal sinks: consumers of detected
// opportunities. Every sink is append-only from the detector's point of view;
// a sink failure is the sink's problem, never detection's.
package sink

import (
	"context"
	"log/slog"

	"github.com/Lugier/HFT/internal/domain"
)

// LogSink writes every signal to the structured log. Always enabled; it is
// the sink of last resort when no external sink is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With(slog.String("component", "signal_log"))}
}

// Emit logs the signal.
func (s *LogSink) Emit(_ context.Context, sig domain.OpportunitySignal) error {
	s.logger.Info("opportunity",
		slog.String("id", sig.ID),
		slog.String("instrument", sig.Instrument.Symbol()),
		slog.String("buy_venue", sig.BuyVenue),
		slog.String("sell_venue", sig.SellVenue),
		slog.Float64("buy_price", sig.BuyPrice),
		slog.Float64("sell_price", sig.SellPrice),
		slog.Float64("size", sig.Size),
		slog.Float64("gross_spread", sig.GrossSpread),
		slog.Float64("net_profit", sig.NetProfit),
		slog.String("level", string(sig.Level)),
		slog.Duration("buy_quote_age", sig.BuyQuoteAge),
		slog.Duration("sell_quote_age", sig.SellQuoteAge))
	return nil
}

// Name identifies the sink in logs and metrics.
func (s *LogSink) Name() string { return "log" }

var _ domain.SignalSink = (*LogSink)(nil)
