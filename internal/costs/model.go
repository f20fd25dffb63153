// Package costs estimates the full execution cost of a hypothetical
// cross-venue trade. Estimation is pure: every input arrives as a value, the
// same inputs always produce the same breakdown, and nothing here touches the
// network or the clock.
package costs

import (
	"fmt"
	"math"

	"github.com/Lugier/HFT/internal/dex"
	"github.com/Lugier/HFT/internal/domain"
)

// Input carries everything one estimate needs: the two quotes, their venue
// descriptions, the trade size, and a gas snapshot per chain touched by an
// on-chain leg.
type Input struct {
	Buy  domain.Quote
	Sell domain.Quote

	BuyVenue  domain.Venue
	SellVenue domain.Venue

	// Size is the hypothetical trade size in base units.
	Size float64

	// Gas holds the latest gas snapshot per chain. Required for every chain
	// an on-chain leg runs on.
	Gas map[string]domain.GasQuote
}

// Model holds the static cost parameters. The zero value estimates with no
// flat slippage and no transfer fees.
type Model struct {
	// FlatSlippageBps is applied to CEX legs whose quote carries no book
	// depth.
	FlatSlippageBps float64

	// DefaultTransferFee is the fallback withdrawal cost (quote-asset units)
	// for CEX buy venues without an explicit entry in WithdrawalFees.
	DefaultTransferFee float64

	// WithdrawalFees maps venue name to its withdrawal fee in quote-asset
	// units.
	WithdrawalFees map[string]float64
}

// Estimate computes the cost breakdown for buying in.Size base units on the
// buy venue and selling them on the sell venue. Fails with
// ErrInsufficientLiquidity when either leg cannot fill the size, and with a
// plain error when a required gas snapshot is missing.
func (m Model) Estimate(in Input) (domain.CostBreakdown, error) {
	if in.Size <= 0 {
		return domain.CostBreakdown{}, fmt.Errorf("costs: size must be > 0, got %.8g", in.Size)
	}

	var b domain.CostBreakdown

	slipBuy, err := m.legSlippage(in.Buy, in.Size, sideBuy)
	if err != nil {
		return domain.CostBreakdown{}, fmt.Errorf("costs: buy leg %s: %w", in.Buy.Venue, err)
	}
	slipSell, err := m.legSlippage(in.Sell, in.Size, sideSell)
	if err != nil {
		return domain.CostBreakdown{}, fmt.Errorf("costs: sell leg %s: %w", in.Sell.Venue, err)
	}
	b.SlippageBuy = slipBuy
	b.SlippageSell = slipSell

	// Taker fees apply to CEX notional only; pool fees are already embedded
	// in on-chain bid/ask prices.
	if in.Buy.Pool == nil {
		b.TradingFees += in.Buy.Ask * in.Size * in.BuyVenue.TakerFeeBps / 10_000
	}
	if in.Sell.Pool == nil {
		b.TradingFees += in.Sell.Bid * in.Size * in.SellVenue.TakerFeeBps / 10_000
	}

	gas, err := m.gasCost(in)
	if err != nil {
		return domain.CostBreakdown{}, err
	}
	b.Gas = gas

	b.TransferFee = m.transferFee(in)

	return b, nil
}

type side int

const (
	sideBuy side = iota
	sideSell
)

// legSlippage estimates the size-dependent price degradation of one leg in
// quote-asset units.
func (m Model) legSlippage(q domain.Quote, size float64, s side) (float64, error) {
	if q.Pool != nil {
		return poolSlippage(q, size, s)
	}

	levels := q.Asks
	if s == sideSell {
		levels = q.Bids
	}
	if len(levels) > 0 {
		return depthWalkCost(levels, size)
	}

	// Top-of-book only: flat estimate on notional.
	price := q.Ask
	if s == sideSell {
		price = q.Bid
	}
	return price * size * m.FlatSlippageBps / 10_000, nil
}

// poolSlippage derives on-chain slippage: exact constant-product math when the
// quote carries reserves, the adapter-measured impact otherwise.
func poolSlippage(q domain.Quote, size float64, s side) (float64, error) {
	switch q.Pool.Kind {
	case domain.PoolConstantProduct:
		return dex.PriceImpactCost(size, q.Pool.ReserveBase, q.Pool.ReserveQuote)
	default:
		price := q.Ask
		if s == sideSell {
			price = q.Bid
		}
		return price * size * q.Pool.ImpactBps / 10_000, nil
	}
}

// depthWalkCost walks book levels best-first and returns the cost of filling
// size relative to the top-of-book price. Fails with ErrInsufficientLiquidity
// when the visible depth cannot absorb the size.
func depthWalkCost(levels []domain.PriceLevel, size float64) (float64, error) {
	best := levels[0].Price
	remaining := size
	cost := 0.0
	for _, lvl := range levels {
		if remaining <= 0 {
			break
		}
		fill := math.Min(lvl.Size, remaining)
		cost += math.Abs(lvl.Price-best) * fill
		remaining -= fill
	}
	if remaining > 1e-12 {
		return 0, fmt.Errorf("book depth %.8g short of size %.8g: %w",
			size-remaining, size, domain.ErrInsufficientLiquidity)
	}
	return cost, nil
}

// gasCost sums one swap per on-chain leg, using each leg's chain snapshot.
func (m Model) gasCost(in Input) (float64, error) {
	total := 0.0
	for _, leg := range []struct {
		quote domain.Quote
		venue domain.Venue
	}{
		{in.Buy, in.BuyVenue},
		{in.Sell, in.SellVenue},
	} {
		if leg.quote.Pool == nil {
			continue
		}
		g, ok := in.Gas[leg.venue.Chain]
		if !ok {
			return 0, fmt.Errorf("costs: no gas snapshot for chain %q (venue %s)",
				leg.venue.Chain, leg.venue.Name)
		}
		total += g.SwapCostUSD()
	}
	return total, nil
}

// transferFee returns the cost of moving the bought asset off the buy venue.
// Configured per venue; CEX buy venues without an entry fall back to the
// default, on-chain venues to zero.
func (m Model) transferFee(in Input) float64 {
	if fee, ok := m.WithdrawalFees[in.BuyVenue.Name]; ok {
		return fee
	}
	if in.Buy.Pool == nil {
		return m.DefaultTransferFee
	}
	return 0
}
