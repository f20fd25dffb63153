package dex

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Lugier/HFT/internal/domain"
)

// probeDivisor sizes the small reference quote used to approximate the
// marginal price: 1/100th of the requested trade size.
const probeDivisor = 100

// V3Quoter prices a concentrated-liquidity pool through its QuoterV2
// contract. Every configured fee tier is quoted for the requested size and
// the tier yielding the best executable price wins; the degradation between a
// small probe quote and the full-size quote is recorded as the pool's price
// impact.
type V3Quoter struct {
	spec   PoolSpec
	caller ContractCaller
}

// Spec returns the pool description.
func (q *V3Quoter) Spec() PoolSpec { return q.spec }

// quoteParams mirrors IQuoterV2.QuoteExactInputSingleParams for ABI packing.
type quoteParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

// Quote evaluates all fee tiers for the requested size and returns a quote at
// the best tier. Fails with ErrInsufficientLiquidity when no tier can fill
// the size.
func (q *V3Quoter) Quote(ctx context.Context, size float64) (domain.Quote, error) {
	amountIn := toUnits(size, q.spec.BaseDecimals)
	probeIn := new(big.Int).Div(amountIn, big.NewInt(probeDivisor))
	if probeIn.Sign() == 0 {
		probeIn = big.NewInt(1)
	}

	var (
		bestOut  *big.Int
		bestTier int64
	)
	for _, tier := range q.spec.FeeTiers {
		out, err := q.quoteExactInput(ctx, tier, amountIn)
		if err != nil || out.Sign() == 0 {
			// A reverting tier usually means the pool for that tier
			// does not exist or cannot fill the size. Try the rest.
			continue
		}
		if bestOut == nil || out.Cmp(bestOut) > 0 {
			bestOut = out
			bestTier = tier
		}
	}
	if bestOut == nil {
		return domain.Quote{}, fmt.Errorf("dex: %s %s: no tier can fill size %.8g: %w",
			q.spec.Venue, q.spec.Instrument.Symbol(), size, domain.ErrInsufficientLiquidity)
	}

	effective := fromUnits(bestOut, q.spec.QuoteDecimals) / size

	// Marginal price from the probe quote at the winning tier. If the probe
	// fails the effective price doubles as marginal (zero measured impact).
	marginal := effective
	if probeOut, err := q.quoteExactInput(ctx, bestTier, probeIn); err == nil && probeOut.Sign() > 0 {
		probeSize := fromUnits(probeIn, q.spec.BaseDecimals)
		marginal = fromUnits(probeOut, q.spec.QuoteDecimals) / probeSize
	}

	// Fee tiers are denominated in hundredths of a bip (3000 = 30 bps).
	feeBps := float64(bestTier) / 100
	fee := feeBps / 10_000

	return domain.Quote{
		Instrument: q.spec.Instrument,
		Venue:      q.spec.Venue,
		Bid:        marginal * (1 - fee),
		Ask:        marginal * (1 + fee),
		BidSize:    size,
		AskSize:    size,
		Pool: &domain.PoolState{
			Kind:      domain.PoolConcentrated,
			FeeBps:    feeBps,
			ImpactBps: ImpactBps(marginal, effective),
		},
		ObservedAt: time.Now(),
	}, nil
}

// quoteExactInput calls QuoterV2.quoteExactInputSingle for one fee tier.
func (q *V3Quoter) quoteExactInput(ctx context.Context, tier int64, amountIn *big.Int) (*big.Int, error) {
	input, err := quoterV2ABI.Pack("quoteExactInputSingle", quoteParams{
		TokenIn:           q.spec.BaseToken,
		TokenOut:          q.spec.QuoteToken,
		AmountIn:          amountIn,
		Fee:               big.NewInt(tier),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, fmt.Errorf("dex: pack quoteExactInputSingle: %w", err)
	}

	out, err := q.caller.CallContract(ctx, q.spec.Chain, ethereum.CallMsg{
		To:   &q.spec.Quoter,
		Data: input,
	})
	if err != nil {
		return nil, err
	}

	vals, err := quoterV2ABI.Unpack("quoteExactInputSingle", out)
	if err != nil || len(vals) == 0 {
		return nil, fmt.Errorf("dex: decode quoteExactInputSingle: %w", domain.ErrNormalization)
	}
	amountOut, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("dex: decode quoteExactInputSingle: %w", domain.ErrNormalization)
	}
	return amountOut, nil
}
