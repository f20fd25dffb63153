package dex

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"

	"github.com/Lugier/HFT/internal/domain"
)

// V2Quoter prices a constant-product (Uniswap V2 style) pool from its on-chain
// reserves. The quoted bid/ask are fee-adjusted marginal prices; the reserves
// travel with the quote so the cost model can derive exact price impact for
// any size.
type V2Quoter struct {
	spec   PoolSpec
	caller ContractCaller
}

// Spec returns the pool description.
func (q *V2Quoter) Spec() PoolSpec { return q.spec }

// Quote reads the pool reserves and builds a quote for the instrument. size
// is the hypothetical trade size in base units; it only gates liquidity, the
// returned prices stay marginal.
func (q *V2Quoter) Quote(ctx context.Context, size float64) (domain.Quote, error) {
	reserveBase, reserveQuote, err := q.reserves(ctx)
	if err != nil {
		return domain.Quote{}, err
	}
	if reserveBase <= 0 || reserveQuote <= 0 {
		return domain.Quote{}, fmt.Errorf("dex: pool %s has empty reserves: %w",
			q.spec.Pair.Hex(), domain.ErrInsufficientLiquidity)
	}

	// Reject sizes the pool cannot absorb before they reach the book.
	if _, err := ConstantProductOut(size, reserveBase, reserveQuote, q.spec.FeeBps); err != nil {
		return domain.Quote{}, err
	}

	mid := reserveQuote / reserveBase
	fee := q.spec.FeeBps / 10_000

	return domain.Quote{
		Instrument: q.spec.Instrument,
		Venue:      q.spec.Venue,
		Bid:        mid * (1 - fee),
		Ask:        mid * (1 + fee),
		BidSize:    reserveBase,
		AskSize:    reserveBase,
		Pool: &domain.PoolState{
			Kind:         domain.PoolConstantProduct,
			ReserveBase:  reserveBase,
			ReserveQuote: reserveQuote,
			FeeBps:       q.spec.FeeBps,
		},
		ObservedAt: time.Now(),
	}, nil
}

// reserves fetches getReserves and orders the result as (base, quote) in
// display units.
func (q *V2Quoter) reserves(ctx context.Context) (float64, float64, error) {
	input, err := pairABI.Pack("getReserves")
	if err != nil {
		return 0, 0, fmt.Errorf("dex: pack getReserves: %w", err)
	}

	out, err := q.caller.CallContract(ctx, q.spec.Chain, ethereum.CallMsg{
		To:   &q.spec.Pair,
		Data: input,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("dex: getReserves %s: %w", q.spec.Pair.Hex(), err)
	}

	vals, err := pairABI.Unpack("getReserves", out)
	if err != nil || len(vals) < 2 {
		return 0, 0, fmt.Errorf("dex: decode getReserves %s: %w", q.spec.Pair.Hex(), domain.ErrNormalization)
	}
	r0, ok0 := vals[0].(*big.Int)
	r1, ok1 := vals[1].(*big.Int)
	if !ok0 || !ok1 {
		return 0, 0, fmt.Errorf("dex: decode getReserves %s: %w", q.spec.Pair.Hex(), domain.ErrNormalization)
	}

	baseUnits, quoteUnits := r0, r1
	if !q.spec.BaseIsToken0 {
		baseUnits, quoteUnits = r1, r0
	}
	return fromUnits(baseUnits, q.spec.BaseDecimals), fromUnits(quoteUnits, q.spec.QuoteDecimals), nil
}
