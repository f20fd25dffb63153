// Package gas maintains per-chain gas snapshots for the cost model. The
// oracle polls each configured chain's gas price through the RPC layer and
// prices the chain's native token from the live quote book, falling back to a
// configured constant when no venue quotes it.
package gas

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/Lugier/HFT/internal/config"
	"github.com/Lugier/HFT/internal/domain"
)

// GasPricer fetches a chain's current gas price. Implemented by *rpc.Caller.
type GasPricer interface {
	GasPrice(ctx context.Context, chain string) (*big.Int, error)
}

// PriceSource resolves a live USD-ish price for an asset symbol. Implemented
// by the quote book through a thin adapter at wire time.
type PriceSource interface {
	AssetUSD(symbol string) (float64, bool)
}

// Oracle holds the latest gas snapshot per chain and refreshes them on a
// fixed interval. Reads never block on refreshes.
type Oracle struct {
	pricer GasPricer
	prices PriceSource
	chains []config.ChainConfig
	logger *slog.Logger

	mu        sync.RWMutex
	snapshots map[string]domain.GasQuote
}

// NewOracle creates an Oracle for the configured chains. prices may be nil;
// every chain then uses its configured fallback price.
func NewOracle(pricer GasPricer, prices PriceSource, chains []config.ChainConfig, logger *slog.Logger) *Oracle {
	return &Oracle{
		pricer:    pricer,
		prices:    prices,
		chains:    chains,
		logger:    logger.With(slog.String("component", "gas_oracle")),
		snapshots: make(map[string]domain.GasQuote, len(chains)),
	}
}

// Run refreshes all chains on the given interval until ctx is cancelled. The
// first refresh happens immediately so the detector never starts against an
// empty table.
func (o *Oracle) Run(ctx context.Context, interval time.Duration) error {
	o.RefreshAll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.RefreshAll(ctx)
		}
	}
}

// RefreshAll refreshes every configured chain. A chain whose RPC call fails
// keeps its previous snapshot; the staleness shows in UpdatedAt.
func (o *Oracle) RefreshAll(ctx context.Context) {
	for _, ch := range o.chains {
		if err := o.refresh(ctx, ch); err != nil {
			o.logger.Warn("gas refresh failed",
				slog.String("chain", ch.Name),
				slog.String("error", err.Error()))
		}
	}
}

func (o *Oracle) refresh(ctx context.Context, ch config.ChainConfig) error {
	wei, err := o.pricer.GasPrice(ctx, ch.Name)
	if err != nil {
		return err
	}
	gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e9)).Float64()

	nativeUSD := ch.FallbackNativeUSD
	if o.prices != nil {
		if p, ok := o.prices.AssetUSD(ch.NativeToken); ok && p > 0 {
			nativeUSD = p
		}
	}

	buffer := 1.0
	if ch.Rollup && ch.L2Buffer > 1 {
		buffer = ch.L2Buffer
	}

	quote := domain.GasQuote{
		Chain:         ch.Name,
		GasPriceGwei:  gwei,
		NativeUSD:     nativeUSD,
		SwapGasUnits:  ch.SwapGasUnits,
		L2BufferRatio: buffer,
		UpdatedAt:     time.Now(),
	}

	o.mu.Lock()
	o.snapshots[ch.Name] = quote
	o.mu.Unlock()

	o.logger.Debug("gas snapshot updated",
		slog.String("chain", ch.Name),
		slog.Float64("gwei", gwei),
		slog.Float64("native_usd", nativeUSD))
	return nil
}

// Snapshot returns a copy of the current per-chain gas table.
func (o *Oracle) Snapshot() map[string]domain.GasQuote {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]domain.GasQuote, len(o.snapshots))
	for k, v := range o.snapshots {
		out[k] = v
	}
	return out
}

// Chain returns the snapshot for one chain, if present.
func (o *Oracle) Chain(name string) (domain.GasQuote, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	g, ok := o.snapshots[name]
	return g, ok
}
