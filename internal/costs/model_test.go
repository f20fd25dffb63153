package costs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lugier/HFT/internal/domain"
)

func cexQuote(venue string, bid, ask float64) domain.Quote {
	return domain.Quote{
		Instrument: domain.NewInstrument("ETH", "USDT"),
		Venue:      venue,
		Bid:        bid,
		Ask:        ask,
		BidSize:    10,
		AskSize:    10,
		ObservedAt: time.Now(),
	}
}

func cexVenue(name string, takerBps float64) domain.Venue {
	return domain.Venue{Name: name, Kind: domain.TransportStreaming, TakerFeeBps: takerBps}
}

func dexVenue(name, chain string) domain.Venue {
	return domain.Venue{Name: name, Kind: domain.TransportOnChain, Chain: chain}
}

func TestEstimateFlatSlippageAndTakerFees(t *testing.T) {
	m := Model{FlatSlippageBps: 5}
	in := Input{
		Buy:       cexQuote("binance", 1999, 2000),
		Sell:      cexQuote("kraken", 2010, 2011),
		BuyVenue:  cexVenue("binance", 10),
		SellVenue: cexVenue("kraken", 26),
		Size:      1,
	}

	b, err := m.Estimate(in)
	require.NoError(t, err)

	// 5 bps flat on each leg's notional.
	assert.InDelta(t, 2000*0.0005, b.SlippageBuy, 1e-9)
	assert.InDelta(t, 2010*0.0005, b.SlippageSell, 1e-9)
	// 10 bps taker on the buy leg, 26 bps on the sell leg.
	assert.InDelta(t, 2000*0.0010+2010*0.0026, b.TradingFees, 1e-9)
	assert.Zero(t, b.Gas)
}

func TestEstimateDepthWalkBeatsFlatEstimate(t *testing.T) {
	m := Model{FlatSlippageBps: 5}
	buy := cexQuote("binance", 1999, 2000)
	buy.Asks = []domain.PriceLevel{
		{Price: 2000, Size: 2},
		{Price: 2001, Size: 3},
		{Price: 2003, Size: 10},
	}
	in := Input{
		Buy:       buy,
		Sell:      cexQuote("kraken", 2010, 2011),
		BuyVenue:  cexVenue("binance", 0),
		SellVenue: cexVenue("kraken", 0),
		Size:      6,
	}

	b, err := m.Estimate(in)
	require.NoError(t, err)
	// 2 @ best, 3 one tick up, 1 three ticks up.
	assert.InDelta(t, 3*1+1*3, b.SlippageBuy, 1e-9)
}

func TestEstimateDepthExhaustion(t *testing.T) {
	var m Model
	buy := cexQuote("binance", 1999, 2000)
	buy.Asks = []domain.PriceLevel{{Price: 2000, Size: 2}}
	in := Input{
		Buy:       buy,
		Sell:      cexQuote("kraken", 2010, 2011),
		BuyVenue:  cexVenue("binance", 0),
		SellVenue: cexVenue("kraken", 0),
		Size:      5,
	}

	_, err := m.Estimate(in)
	assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)
}

func TestEstimateConstantProductSlippage(t *testing.T) {
	var m Model
	buy := cexQuote("sushiswap", 1994, 2006)
	buy.Pool = &domain.PoolState{
		Kind:         domain.PoolConstantProduct,
		ReserveBase:  100,
		ReserveQuote: 200_000,
		FeeBps:       30,
	}
	in := Input{
		Buy:       buy,
		Sell:      cexQuote("kraken", 2010, 2011),
		BuyVenue:  dexVenue("sushiswap", "arbitrum"),
		SellVenue: cexVenue("kraken", 0),
		Size:      1,
		Gas: map[string]domain.GasQuote{
			"arbitrum": {Chain: "arbitrum", GasPriceGwei: 0.1, NativeUSD: 2000, SwapGasUnits: 150_000, L2BufferRatio: 1.5},
		},
	}

	b, err := m.Estimate(in)
	require.NoError(t, err)
	// Exact constant-product impact for 1 ETH against (100, 200k).
	assert.InDelta(t, 19.80, b.SlippageBuy, 0.01)
	// 150k units at 0.1 gwei, native at $2000, 1.5x rollup buffer.
	assert.InDelta(t, 150_000*0.1/1e9*2000*1.5, b.Gas, 1e-9)
	// No taker fee on the on-chain leg.
	assert.Zero(t, b.TradingFees)
}

func TestEstimateConcentratedImpact(t *testing.T) {
	var m Model
	sell := cexQuote("uniswap_v3", 1994, 2006)
	sell.Pool = &domain.PoolState{Kind: domain.PoolConcentrated, FeeBps: 30, ImpactBps: 50}
	in := Input{
		Buy:       cexQuote("binance", 1980, 1981),
		Sell:      sell,
		BuyVenue:  cexVenue("binance", 0),
		SellVenue: dexVenue("uniswap_v3", "arbitrum"),
		Size:      2,
		Gas: map[string]domain.GasQuote{
			"arbitrum": {Chain: "arbitrum", GasPriceGwei: 0.1, NativeUSD: 2000, SwapGasUnits: 180_000, L2BufferRatio: 1.5},
		},
	}

	b, err := m.Estimate(in)
	require.NoError(t, err)
	// 50 bps of measured impact on the sell leg's bid notional.
	assert.InDelta(t, 1994*2*0.005, b.SlippageSell, 1e-9)
}

func TestEstimateMissingGasSnapshot(t *testing.T) {
	var m Model
	buy := cexQuote("sushiswap", 1994, 2006)
	buy.Pool = &domain.PoolState{Kind: domain.PoolConstantProduct, ReserveBase: 100, ReserveQuote: 200_000}
	in := Input{
		Buy:       buy,
		Sell:      cexQuote("kraken", 2010, 2011),
		BuyVenue:  dexVenue("sushiswap", "arbitrum"),
		SellVenue: cexVenue("kraken", 0),
		Size:      1,
	}

	_, err := m.Estimate(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gas snapshot")
}

func TestEstimateTransferFees(t *testing.T) {
	m := Model{
		DefaultTransferFee: 2,
		WithdrawalFees:     map[string]float64{"kraken": 7},
	}

	in := Input{
		Buy:       cexQuote("kraken", 1999, 2000),
		Sell:      cexQuote("binance", 2010, 2011),
		BuyVenue:  cexVenue("kraken", 0),
		SellVenue: cexVenue("binance", 0),
		Size:      1,
	}
	b, err := m.Estimate(in)
	require.NoError(t, err)
	assert.InDelta(t, 7, b.TransferFee, 1e-9)

	// Unlisted CEX buy venue falls back to the default.
	in.Buy, in.Sell = in.Sell, in.Buy
	in.BuyVenue, in.SellVenue = in.SellVenue, in.BuyVenue
	b, err = m.Estimate(in)
	require.NoError(t, err)
	assert.InDelta(t, 2, b.TransferFee, 1e-9)
}

func TestEstimateDeterministic(t *testing.T) {
	m := Model{FlatSlippageBps: 5, DefaultTransferFee: 2}
	in := Input{
		Buy:       cexQuote("binance", 1999, 2000),
		Sell:      cexQuote("kraken", 2010, 2011),
		BuyVenue:  cexVenue("binance", 10),
		SellVenue: cexVenue("kraken", 26),
		Size:      1.5,
	}

	first, err := m.Estimate(in)
	require.NoError(t, err)
	second, err := m.Estimate(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEstimateRejectsNonPositiveSize(t *testing.T) {
	var m Model
	_, err := m.Estimate(Input{Size: 0})
	assert.Error(t, err)
}

func TestBreakdownTotal(t *testing.T) {
	b := domain.CostBreakdown{SlippageBuy: 1, SlippageSell: 2, Gas: 3, TradingFees: 4, TransferFee: 5}
	assert.InDelta(t, 15, b.Total(), 1e-9)
}
