// Package dex computes executable on-chain prices: constant-product math for
// Uniswap V2 style pools and QuoterV2-based quoting across fee tiers for
// concentrated-liquidity pools. The math helpers are pure so the cost model
// can reuse them for slippage estimation.
package dex

import (
	"fmt"
	"math"

	"github.com/Lugier/HFT/internal/domain"
)

// ConstantProductOut returns the output amount for swapping amountIn against
// a constant-product pool with the given reserves and fee. Fails with
// ErrInsufficientLiquidity when the pool cannot absorb the trade.
func ConstantProductOut(amountIn, reserveIn, reserveOut, feeBps float64) (float64, error) {
	if amountIn <= 0 {
		return 0, fmt.Errorf("dex: amount in must be > 0")
	}
	if reserveIn <= 0 || reserveOut <= 0 || amountIn >= reserveIn {
		return 0, fmt.Errorf("dex: swap %.8g against reserves (%.8g, %.8g): %w",
			amountIn, reserveIn, reserveOut, domain.ErrInsufficientLiquidity)
	}
	inWithFee := amountIn * (1 - feeBps/10_000)
	out := inWithFee * reserveOut / (reserveIn + inWithFee)
	if out <= 0 || out >= reserveOut {
		return 0, fmt.Errorf("dex: swap %.8g against reserves (%.8g, %.8g): %w",
			amountIn, reserveIn, reserveOut, domain.ErrInsufficientLiquidity)
	}
	return out, nil
}

// PriceImpactCost returns the quote-asset cost of executing size base units
// against a constant-product pool, relative to the marginal (spot) price:
// the difference between what the trade pays at depth and what it would pay
// at the top-of-pool price. The fee itself is excluded; fees are itemized
// separately in the cost breakdown.
func PriceImpactCost(size, reserveBase, reserveQuote float64) (float64, error) {
	if size <= 0 {
		return 0, fmt.Errorf("dex: size must be > 0")
	}
	marginal := reserveQuote / reserveBase
	out, err := ConstantProductOut(size, reserveBase, reserveQuote, 0)
	if err != nil {
		return 0, err
	}
	effective := out / size
	impact := (marginal - effective) * size
	if impact < 0 {
		impact = 0
	}
	return impact, nil
}

// ImpactBps converts a marginal and an effective per-unit price into basis
// points of degradation. Returns 0 when marginal is not positive.
func ImpactBps(marginal, effective float64) float64 {
	if marginal <= 0 {
		return 0
	}
	bps := (marginal - effective) / marginal * 10_000
	return math.Max(bps, 0)
}
