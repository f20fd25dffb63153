// Package domain contains the core domain types shared by every component of
// the scanner: instruments, venues, quotes, opportunity signals, and the
// sentinel errors of the failure taxonomy.
package domain

import (
	"fmt"
	"strings"
)

// Instrument is a canonical, venue-agnostic trading pair. It is the join key
// used to compare quotes across venues, so construction must be deterministic:
// the same economic pair always maps to the same Instrument regardless of the
// venue's local spelling.
type Instrument struct {
	Base  string
	Quote string
}

// symbolAliases folds wrapped and venue-specific token spellings onto their
// canonical form so CEX and DEX quotes join on one key.
var symbolAliases = map[string]string{
	"WETH":   "ETH",
	"WBTC":   "BTC",
	"WBNB":   "BNB",
	"WMATIC": "MATIC",
	"WAVAX":  "AVAX",
	"WFTM":   "FTM",
	"WCRO":   "CRO",
	"WGLMR":  "GLMR",
	"WCELO":  "CELO",
	"WKAVA":  "KAVA",
	"WSOL":   "SOL",
	"XBT":    "BTC",
	"WXDAI":  "XDAI",
}

// NormalizeSymbol uppercases an asset symbol and folds known aliases onto the
// canonical spelling. It is total: any input yields a usable symbol.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if canonical, ok := symbolAliases[s]; ok {
		return canonical
	}
	return s
}

// NewInstrument builds the canonical Instrument for a base/quote pair.
func NewInstrument(base, quote string) Instrument {
	return Instrument{
		Base:  NormalizeSymbol(base),
		Quote: NormalizeSymbol(quote),
	}
}

// ParseInstrument parses a "BASE/QUOTE" string into a canonical Instrument.
func ParseInstrument(symbol string) (Instrument, error) {
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return Instrument{}, fmt.Errorf("parse instrument %q: %w", symbol, ErrNormalization)
	}
	return NewInstrument(parts[0], parts[1]), nil
}

// Symbol returns the canonical "BASE/QUOTE" representation.
func (i Instrument) Symbol() string {
	return i.Base + "/" + i.Quote
}

// IsZero reports whether the instrument is unset.
func (i Instrument) IsZero() bool {
	return i.Base == "" && i.Quote == ""
}
