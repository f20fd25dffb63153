package domain

import "time"

// TransportKind classifies how a venue delivers quotes. The set is closed:
// each kind has exactly one feed adapter variant.
type TransportKind string

const (
	TransportStreaming TransportKind = "streaming"
	TransportPolling   TransportKind = "polling"
	TransportOnChain   TransportKind = "onchain"
)

// Valid reports whether k is one of the three supported transport kinds.
func (k TransportKind) Valid() bool {
	switch k {
	case TransportStreaming, TransportPolling, TransportOnChain:
		return true
	}
	return false
}

// Venue describes one price source: a centralized exchange or a set of
// on-chain liquidity pools. Venues are static configuration loaded at startup;
// the core never mutates them.
type Venue struct {
	Name string
	Kind TransportKind

	// TakerFeeBps is the venue's published taker fee in basis points,
	// applied to notional on CEX legs.
	TakerFeeBps float64

	// MinTradeSize is the smallest trade size (in base units) the venue
	// accepts. Opportunities below it are never emitted for this venue.
	MinTradeSize float64

	// Chain identifies the blockchain an on-chain venue lives on. Empty for
	// CEX venues.
	Chain string

	// PollInterval applies to polling venues only.
	PollInterval time.Duration

	// MaxQuoteAge is the venue-specific freshness threshold: streaming
	// venues use a short fixed window, polling venues twice the poll
	// interval, on-chain venues twice the chain's block interval.
	MaxQuoteAge time.Duration
}

// QuoteMaxAge resolves the staleness threshold for the venue, deriving the
// transport-specific default when no explicit MaxQuoteAge is configured.
func (v Venue) QuoteMaxAge() time.Duration {
	if v.MaxQuoteAge > 0 {
		return v.MaxQuoteAge
	}
	switch v.Kind {
	case TransportPolling:
		if v.PollInterval > 0 {
			return 2 * v.PollInterval
		}
		return 10 * time.Second
	case TransportOnChain:
		return 30 * time.Second
	default:
		return 2 * time.Second
	}
}
