// Package notify pushes opportunity alerts to operators. It implements
// domain.SignalSink: signals at or above the configured profit levels are
// formatted into a human-readable alert and delivered to every registered
// channel (Telegram, Discord).
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lugier/HFT/internal/domain"
)

// Sender is one delivery channel for alerts.
type Sender interface {
	// Send delivers an alert with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender.
	Name() string
}

// AlertSink filters signals by profit level and fans the surviving ones out
// to all senders. A failing channel never blocks the others.
type AlertSink struct {
	senders []Sender
	levels  map[domain.ProfitLevel]bool
	logger  *slog.Logger
}

// NewAlertSink creates an AlertSink delivering to the given senders. levels
// names the profit levels that trigger an alert ("medium", "high",
// "critical"); an empty list alerts on every level.
func NewAlertSink(senders []Sender, levels []string, logger *slog.Logger) *AlertSink {
	allowed := make(map[domain.ProfitLevel]bool, len(levels))
	for _, l := range levels {
		allowed[domain.ProfitLevel(strings.ToLower(strings.TrimSpace(l)))] = true
	}
	return &AlertSink{
		senders: senders,
		levels:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Emit delivers the signal as an alert if its level passes the filter. Sender
// failures are collected into one combined error after all channels were
// tried.
func (n *AlertSink) Emit(ctx context.Context, sig domain.OpportunitySignal) error {
	if len(n.levels) > 0 && !n.levels[sig.Level] {
		return nil
	}
	if len(n.senders) == 0 {
		return nil
	}

	title, message := formatSignal(sig)

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// Name identifies the sink in logs and metrics.
func (n *AlertSink) Name() string { return "notify" }

// formatSignal renders a signal into an alert title and body.
func formatSignal(sig domain.OpportunitySignal) (string, string) {
	title := fmt.Sprintf("[%s] %s arbitrage: $%.2f net",
		strings.ToUpper(string(sig.Level)), sig.Instrument.Symbol(), sig.NetProfit)

	var b strings.Builder
	fmt.Fprintf(&b, "Buy %s @ %.6g, sell %s @ %.6g (size %.4g)\n",
		sig.BuyVenue, sig.BuyPrice, sig.SellVenue, sig.SellPrice, sig.Size)
	fmt.Fprintf(&b, "Gross spread %.6g/unit, costs $%.2f (slippage %.2f/%.2f, gas %.2f, fees %.2f, transfer %.2f)",
		sig.GrossSpread, sig.Costs.Total(),
		sig.Costs.SlippageBuy, sig.Costs.SlippageSell,
		sig.Costs.Gas, sig.Costs.TradingFees, sig.Costs.TransferFee)
	return title, b.String()
}

var _ domain.SignalSink = (*AlertSink)(nil)
