package dex

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Lugier/HFT/internal/domain"
)

// ContractCaller abstracts the RPC layer: a read-only contract call routed to
// the best available endpoint of a chain. Implemented by *rpc.Caller.
type ContractCaller interface {
	CallContract(ctx context.Context, chain string, msg ethereum.CallMsg) ([]byte, error)
}

// PoolSpec describes one liquidity pool to quote. It is derived from venue
// configuration at wire time.
type PoolSpec struct {
	Instrument domain.Instrument
	Venue      string
	Chain      string
	Kind       domain.PoolKind

	// Pair is the pool contract for constant-product pools; Quoter the
	// QuoterV2 contract for concentrated-liquidity pools.
	Pair   common.Address
	Quoter common.Address

	BaseToken     common.Address
	QuoteToken    common.Address
	BaseDecimals  int
	QuoteDecimals int
	BaseIsToken0  bool

	FeeBps   float64 // v2
	FeeTiers []int64 // v3
}

// PoolQuoter produces a normalized quote for one pool. Implementations fail
// with ErrInsufficientLiquidity when the pool cannot fill the requested size;
// such failures must not reach the quote book as prices.
type PoolQuoter interface {
	Spec() PoolSpec
	Quote(ctx context.Context, size float64) (domain.Quote, error)
}

// NewPoolQuoter selects the quoter variant for the pool's kind.
func NewPoolQuoter(spec PoolSpec, caller ContractCaller) PoolQuoter {
	if spec.Kind == domain.PoolConcentrated {
		return &V3Quoter{spec: spec, caller: caller}
	}
	return &V2Quoter{spec: spec, caller: caller}
}

// toUnits converts a display amount into raw token units.
func toUnits(amount float64, decimals int) *big.Int {
	f := new(big.Float).Mul(big.NewFloat(amount), pow10(decimals))
	units, _ := f.Int(nil)
	return units
}

// fromUnits converts raw token units into a display amount.
func fromUnits(units *big.Int, decimals int) float64 {
	f := new(big.Float).Quo(new(big.Float).SetInt(units), pow10(decimals))
	out, _ := f.Float64()
	return out
}

func pow10(n int) *big.Float {
	return new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil))
}
