package domain

import (
	"context"
	"time"
)

// CostBreakdown itemizes the estimated execution cost of a hypothetical
// cross-venue trade, in quote-asset units for the full trade size.
type CostBreakdown struct {
	SlippageBuy  float64
	SlippageSell float64
	Gas          float64
	TradingFees  float64
	TransferFee  float64
}

// Total returns the combined cost across all components.
func (c CostBreakdown) Total() float64 {
	return c.SlippageBuy + c.SlippageSell + c.Gas + c.TradingFees + c.TransferFee
}

// ProfitLevel classifies a signal's net profit for alert routing.
type ProfitLevel string

const (
	ProfitLevelNone     ProfitLevel = ""
	ProfitLevelMedium   ProfitLevel = "medium"
	ProfitLevelHigh     ProfitLevel = "high"
	ProfitLevelCritical ProfitLevel = "critical"
)

// ProfitThresholds holds the net-profit cut-offs (quote-asset units) between
// alert levels. Values come from configuration; they must be positive and
// strictly increasing.
type ProfitThresholds struct {
	Medium   float64
	High     float64
	Critical float64
}

// ClassifyProfit maps a net profit (quote-asset units) onto an alert level.
func ClassifyProfit(netProfit float64, t ProfitThresholds) ProfitLevel {
	switch {
	case netProfit >= t.Critical:
		return ProfitLevelCritical
	case netProfit >= t.High:
		return ProfitLevelHigh
	case netProfit >= t.Medium:
		return ProfitLevelMedium
	default:
		return ProfitLevelNone
	}
}

// OpportunitySignal is an emitted, time-stamped claim that a profitable
// cross-venue trade currently exists. Signals are immutable once emitted: the
// detector owns creation, sinks own disposal, and the core never re-reads one.
type OpportunitySignal struct {
	ID         string
	Instrument Instrument

	BuyVenue  string
	SellVenue string

	// BuyPrice/SellPrice are the marginal prices the spread was computed
	// from; Size is the hypothetical trade size in base units.
	BuyPrice  float64
	SellPrice float64
	Size      float64

	// GrossSpread is per unit of base asset; NetProfit is for the full
	// size, after the cost breakdown.
	GrossSpread float64
	Costs       CostBreakdown
	NetProfit   float64
	Level       ProfitLevel

	// Quote ages at detection time, so consumers can judge input freshness.
	BuyQuoteAge  time.Duration
	SellQuoteAge time.Duration

	DetectedAt time.Time
}

// SignalSink receives detected opportunities. Implementations must treat Emit
// as append-only; a sink failure never propagates back into detection.
type SignalSink interface {
	Emit(ctx context.Context, sig OpportunitySignal) error
	Name() string
}
