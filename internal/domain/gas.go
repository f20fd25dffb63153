package domain

import "time"

// GasQuote is a point-in-time snapshot of a chain's execution cost inputs.
// The gas oracle produces it; the cost model consumes it as a plain value so
// estimation stays pure and reproducible.
type GasQuote struct {
	Chain         string
	GasPriceGwei  float64
	NativeUSD     float64
	SwapGasUnits  uint64
	L2BufferRatio float64 // multiplier >= 1 covering rollup data fees
	UpdatedAt     time.Time
}

// SwapCostUSD returns the estimated cost of one swap call on the chain.
func (g GasQuote) SwapCostUSD() float64 {
	costNative := float64(g.SwapGasUnits) * g.GasPriceGwei / 1e9
	cost := costNative * g.NativeUSD
	if g.L2BufferRatio > 1 {
		cost *= g.L2BufferRatio
	}
	return cost
}
