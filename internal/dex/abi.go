package dex

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Minimal ABI fragments for the read-only calls the quoters issue. Parsed
// once at init; a malformed fragment is a programming error.

const pairABIJSON = `[
  {"constant":true,"inputs":[],"name":"getReserves","outputs":[
    {"internalType":"uint112","name":"_reserve0","type":"uint112"},
    {"internalType":"uint112","name":"_reserve1","type":"uint112"},
    {"internalType":"uint32","name":"_blockTimestampLast","type":"uint32"}],
   "stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[],"name":"token0","outputs":[
    {"internalType":"address","name":"","type":"address"}],
   "stateMutability":"view","type":"function"}
]`

const quoterV2ABIJSON = `[
  {"inputs":[{"components":[
      {"internalType":"address","name":"tokenIn","type":"address"},
      {"internalType":"address","name":"tokenOut","type":"address"},
      {"internalType":"uint256","name":"amountIn","type":"uint256"},
      {"internalType":"uint24","name":"fee","type":"uint24"},
      {"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],
    "internalType":"struct IQuoterV2.QuoteExactInputSingleParams","name":"params","type":"tuple"}],
   "name":"quoteExactInputSingle",
   "outputs":[
    {"internalType":"uint256","name":"amountOut","type":"uint256"},
    {"internalType":"uint160","name":"sqrtPriceX96After","type":"uint160"},
    {"internalType":"uint32","name":"initializedTicksCrossed","type":"uint32"},
    {"internalType":"uint256","name":"gasEstimate","type":"uint256"}],
   "stateMutability":"nonpayable","type":"function"}
]`

var (
	pairABI     = mustABI(pairABIJSON)
	quoterV2ABI = mustABI(quoterV2ABIJSON)
)

func mustABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
