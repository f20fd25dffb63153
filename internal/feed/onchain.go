package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Lugier/HFT/internal/config"
	"github.com/Lugier/HFT/internal/dex"
	"github.com/Lugier/HFT/internal/domain"
)

// defaultBlockTime paces on-chain quoting when the chain config does not set
// an explicit block time.
const defaultBlockTime = 12 * time.Second

// BlockNumberer reads a chain's head block number. Implemented by *rpc.Caller.
type BlockNumberer interface {
	BlockNumber(ctx context.Context, chain string) (uint64, error)
}

// OnChainAdapter derives quotes from a DEX venue's liquidity pools once per
// block interval. A pool that cannot fill the configured trade size is marked
// stale so the detector stops considering it; RPC failures leave the previous
// quote to age out.
type OnChainAdapter struct {
	venue    domain.Venue
	chain    string
	interval time.Duration
	size     float64
	quoters  []dex.PoolQuoter
	blocks   BlockNumberer
	sink     QuoteSink
	logger   *slog.Logger
}

// NewOnChainAdapter builds the adapter and its pool quoters from venue and
// chain config. size is the trade size quotes are evaluated at.
func NewOnChainAdapter(vc config.VenueConfig, chain config.ChainConfig, size float64, caller dex.ContractCaller, blocks BlockNumberer, sink QuoteSink, logger *slog.Logger) (*OnChainAdapter, error) {
	quoters := make([]dex.PoolQuoter, 0, len(vc.Pools))
	for _, pc := range vc.Pools {
		spec, err := poolSpec(vc, pc)
		if err != nil {
			return nil, err
		}
		quoters = append(quoters, dex.NewPoolQuoter(spec, caller))
	}

	interval := chain.BlockTime.Duration
	if interval <= 0 {
		interval = defaultBlockTime
	}

	venue := vc.Venue()
	if venue.MaxQuoteAge == 0 {
		venue.MaxQuoteAge = 2 * interval
	}

	return &OnChainAdapter{
		venue:    venue,
		chain:    vc.Chain,
		interval: interval,
		size:     size,
		quoters:  quoters,
		blocks:   blocks,
		sink:     sink,
		logger:   logger.With(slog.String("component", "feed"), slog.String("venue", vc.Name)),
	}, nil
}

// poolSpec converts one pool config entry into the dex package's
// representation.
func poolSpec(vc config.VenueConfig, pc config.PoolConfig) (dex.PoolSpec, error) {
	inst, err := domain.ParseInstrument(pc.Instrument)
	if err != nil {
		return dex.PoolSpec{}, fmt.Errorf("feed: venue %s: %w", vc.Name, err)
	}
	return dex.PoolSpec{
		Instrument:    inst,
		Venue:         vc.Name,
		Chain:         vc.Chain,
		Kind:          domain.PoolKind(pc.Kind),
		Pair:          common.HexToAddress(pc.Pair),
		Quoter:        common.HexToAddress(pc.Quoter),
		BaseToken:     common.HexToAddress(pc.BaseToken),
		QuoteToken:    common.HexToAddress(pc.QuoteToken),
		BaseDecimals:  pc.BaseDecimals,
		QuoteDecimals: pc.QuoteDecimals,
		BaseIsToken0:  pc.BaseIsToken0,
		FeeBps:        pc.FeeBps,
		FeeTiers:      pc.FeeTiers,
	}, nil
}

// Venue returns the venue description.
func (a *OnChainAdapter) Venue() domain.Venue { return a.venue }

// Run quotes all pools once per block interval until ctx is cancelled.
func (a *OnChainAdapter) Run(ctx context.Context) error {
	a.quoteAll(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.quoteAll(ctx)
		}
	}
}

func (a *OnChainAdapter) quoteAll(ctx context.Context) {
	// One head read per cycle stamps all quotes of the cycle.
	block, err := a.blocks.BlockNumber(ctx, a.chain)
	if err != nil {
		block = 0
	}

	for _, q := range a.quoters {
		quote, err := q.Quote(ctx, a.size)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.handleQuoteError(q.Spec().Instrument, err)
			continue
		}
		quote.Block = block
		a.sink.Update(quote)
	}
}

// handleQuoteError distinguishes "the pool cannot serve this size" (price is
// gone, mark it stale) from transient RPC trouble (keep the last price and
// let it age out).
func (a *OnChainAdapter) handleQuoteError(inst domain.Instrument, err error) {
	if errors.Is(err, domain.ErrInsufficientLiquidity) || errors.Is(err, domain.ErrNoEndpointAvailable) {
		a.sink.MarkStale(inst, a.venue.Name)
	}
	a.logger.Warn("pool quote failed",
		slog.String("instrument", inst.Symbol()),
		slog.String("error", err.Error()))
}
