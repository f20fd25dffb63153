package domain

import "time"

// PriceLevel is a single price+size entry in an order book.
type PriceLevel struct {
	Price float64
	Size  float64
}

// PoolKind distinguishes constant-product pools from concentrated-liquidity
// pools; the cost model derives slippage differently for each.
type PoolKind string

const (
	PoolConstantProduct PoolKind = "v2"
	PoolConcentrated    PoolKind = "v3"
)

// PoolState captures the liquidity snapshot behind an on-chain quote. For
// constant-product pools the reserves allow exact price-impact math; for
// concentrated-liquidity pools the adapter precomputes the observed impact of
// the configured trade size at the best fee tier.
type PoolState struct {
	Kind PoolKind

	// ReserveBase and ReserveQuote are the pool reserves in display units
	// (decimals already applied). Constant-product pools only.
	ReserveBase  float64
	ReserveQuote float64

	// FeeBps is the pool fee of the quoted tier in basis points.
	FeeBps float64

	// ImpactBps is the measured price degradation for the configured trade
	// size relative to the marginal price. Concentrated pools only.
	ImpactBps float64
}

// Quote is one venue's current view of an instrument: best bid/ask with sizes,
// optional book depth, and the on-chain pool snapshot for DEX venues. Prices
// are marginal (top of book / spot); size-dependent degradation is the cost
// model's job.
//
// A new quote for the same (instrument, venue) always supersedes the prior
// one; quotes are never merged.
type Quote struct {
	Instrument Instrument
	Venue      string

	Bid     float64
	Ask     float64
	BidSize float64
	AskSize float64

	// Bids and Asks hold order-book depth when the transport provides it,
	// best level first. Streaming tickers typically carry the top level
	// only.
	Bids []PriceLevel
	Asks []PriceLevel

	// Pool is set for on-chain quotes.
	Pool *PoolState

	ObservedAt time.Time

	// Seq is the source sequence number (streaming feeds), Block the block
	// number an on-chain quote was computed at. Zero when not applicable.
	Seq   uint64
	Block uint64
}

// Mid returns the quote midpoint, or zero when either side is missing.
func (q Quote) Mid() float64 {
	if q.Bid <= 0 || q.Ask <= 0 {
		return 0
	}
	return (q.Bid + q.Ask) / 2
}

// Age returns how long ago the quote was observed.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.ObservedAt)
}
