package gas

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lugier/HFT/internal/config"
)

type fakePricer struct {
	wei map[string]*big.Int
	err map[string]error
}

func (f *fakePricer) GasPrice(_ context.Context, chain string) (*big.Int, error) {
	if err := f.err[chain]; err != nil {
		return nil, err
	}
	return f.wei[chain], nil
}

type fakePrices map[string]float64

func (f fakePrices) AssetUSD(symbol string) (float64, bool) {
	p, ok := f[symbol]
	return p, ok
}

func arbitrumChain() config.ChainConfig {
	return config.ChainConfig{
		Name:              "arbitrum",
		NativeToken:       "ETH",
		Rollup:            true,
		SwapGasUnits:      150_000,
		L2Buffer:          1.5,
		FallbackNativeUSD: 1800,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestOracleRefreshLivePrice(t *testing.T) {
	pricer := &fakePricer{wei: map[string]*big.Int{"arbitrum": big.NewInt(100_000_000)}} // 0.1 gwei
	o := NewOracle(pricer, fakePrices{"ETH": 2000}, []config.ChainConfig{arbitrumChain()}, testLogger())

	o.RefreshAll(context.Background())

	g, ok := o.Chain("arbitrum")
	require.True(t, ok)
	assert.InDelta(t, 0.1, g.GasPriceGwei, 1e-12)
	assert.InDelta(t, 2000, g.NativeUSD, 1e-9)
	assert.Equal(t, uint64(150_000), g.SwapGasUnits)
	assert.InDelta(t, 1.5, g.L2BufferRatio, 1e-9)
	assert.False(t, g.UpdatedAt.IsZero())

	// 150k units * 0.1 gwei * $2000 * 1.5 buffer.
	assert.InDelta(t, 0.045, g.SwapCostUSD(), 1e-9)
}

func TestOracleFallbackNativePrice(t *testing.T) {
	pricer := &fakePricer{wei: map[string]*big.Int{"arbitrum": big.NewInt(100_000_000)}}
	o := NewOracle(pricer, fakePrices{}, []config.ChainConfig{arbitrumChain()}, testLogger())

	o.RefreshAll(context.Background())

	g, ok := o.Chain("arbitrum")
	require.True(t, ok)
	assert.InDelta(t, 1800, g.NativeUSD, 1e-9)
}

func TestOracleNonRollupIgnoresBuffer(t *testing.T) {
	ch := arbitrumChain()
	ch.Name = "mainnet"
	ch.Rollup = false
	pricer := &fakePricer{wei: map[string]*big.Int{"mainnet": big.NewInt(20_000_000_000)}} // 20 gwei
	o := NewOracle(pricer, nil, []config.ChainConfig{ch}, testLogger())

	o.RefreshAll(context.Background())

	g, ok := o.Chain("mainnet")
	require.True(t, ok)
	assert.InDelta(t, 1.0, g.L2BufferRatio, 1e-9)
}

func TestOracleKeepsStaleSnapshotOnFailure(t *testing.T) {
	pricer := &fakePricer{
		wei: map[string]*big.Int{"arbitrum": big.NewInt(100_000_000)},
		err: map[string]error{},
	}
	o := NewOracle(pricer, nil, []config.ChainConfig{arbitrumChain()}, testLogger())

	o.RefreshAll(context.Background())
	first, ok := o.Chain("arbitrum")
	require.True(t, ok)

	pricer.err["arbitrum"] = errors.New("rpc down")
	o.RefreshAll(context.Background())

	second, ok := o.Chain("arbitrum")
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestOracleSnapshotIsACopy(t *testing.T) {
	pricer := &fakePricer{wei: map[string]*big.Int{"arbitrum": big.NewInt(100_000_000)}}
	o := NewOracle(pricer, nil, []config.ChainConfig{arbitrumChain()}, testLogger())
	o.RefreshAll(context.Background())

	snap := o.Snapshot()
	require.Contains(t, snap, "arbitrum")
	delete(snap, "arbitrum")

	_, ok := o.Chain("arbitrum")
	assert.True(t, ok)
}
