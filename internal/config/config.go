// Package config defines the static configuration for the arbitrage scanner
// and provides validation helpers. The core treats the loaded Config as an
// immutable input snapshot: nothing mutates it after startup.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Lugier/HFT/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by HFT_* environment variables.
type Config struct {
	Detector DetectorConfig `toml:"detector"`
	Gas      GasConfig      `toml:"gas"`
	RPC      RPCConfig      `toml:"rpc"`
	Chains   []ChainConfig  `toml:"chains"`
	Venues   []VenueConfig  `toml:"venues"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// DetectorConfig holds opportunity-detection parameters. Thresholds and the
// flat slippage fallback are product policy supplied here, never hardcoded.
type DetectorConfig struct {
	ScanInterval    Duration `toml:"scan_interval"`
	TradeSize       float64  `toml:"trade_size"`
	MinProfit       float64  `toml:"min_profit"`
	FlatSlippageBps float64  `toml:"flat_slippage_bps"`
	// CexTransferFee is the flat fee charged when both legs sit on
	// different centralized venues (funds bridged between them).
	CexTransferFee float64 `toml:"cex_transfer_fee"`

	// Profit-level cut-offs (quote-asset units) classifying emitted
	// signals for alert routing; must be strictly increasing.
	ProfitMedium   float64 `toml:"profit_medium"`
	ProfitHigh     float64 `toml:"profit_high"`
	ProfitCritical float64 `toml:"profit_critical"`
}

// GasConfig holds gas-oracle parameters.
type GasConfig struct {
	RefreshInterval Duration `toml:"refresh_interval"`
}

// RPCConfig holds endpoint health-check parameters.
type RPCConfig struct {
	ProbeInterval Duration `toml:"probe_interval"`
}

// ChainConfig describes one blockchain: its candidate RPC endpoints and the
// constants the cost model needs for gas estimation on that chain.
type ChainConfig struct {
	Name         string   `toml:"name"`
	ChainID      int64    `toml:"chain_id"`
	NativeToken  string   `toml:"native_token"`
	RPCEndpoints []string `toml:"rpc_endpoints"`
	BlockTime    Duration `toml:"block_time"`
	Rollup       bool     `toml:"rollup"`
	SwapGasUnits uint64   `toml:"swap_gas_units"`
	// L2Buffer multiplies gas cost on rollup chains to cover L1 data fees.
	L2Buffer float64 `toml:"l2_buffer"`
	// FallbackNativeUSD is used when no venue quotes the native token.
	FallbackNativeUSD float64 `toml:"fallback_native_usd"`
}

// VenueConfig describes one price source. Kind selects the feed adapter
// variant; the remaining fields are variant-specific.
type VenueConfig struct {
	Name string `toml:"name"`
	Kind string `toml:"kind"` // streaming | polling | onchain

	Instruments []string `toml:"instruments"`
	// SymbolMap translates canonical "BASE/QUOTE" symbols to the venue's
	// local spelling (e.g. "ETH/USDT" -> "ethusdt").
	SymbolMap map[string]string `toml:"symbol_map"`

	TakerFeeBps  float64  `toml:"taker_fee_bps"`
	MinTradeSize float64  `toml:"min_trade_size"`
	MaxQuoteAge  Duration `toml:"max_quote_age"`
	// WithdrawalFee is the estimated cost of moving funds off this venue
	// onto a chain, used for CEX->DEX legs.
	WithdrawalFee float64 `toml:"withdrawal_fee"`

	// Streaming venues.
	WSURL string `toml:"ws_url"`

	// Polling venues. RestURL is a format string receiving the venue-local
	// symbol, e.g. "https://api.example.com/ticker?symbol=%s".
	RestURL      string   `toml:"rest_url"`
	PollInterval Duration `toml:"poll_interval"`

	// On-chain venues.
	Chain string       `toml:"chain"`
	Pools []PoolConfig `toml:"pools"`
}

// PoolConfig describes one on-chain liquidity pool quoted by a DEX venue.
type PoolConfig struct {
	Instrument string `toml:"instrument"`
	Kind       string `toml:"kind"` // v2 | v3

	// Pair is the pool contract for constant-product pools; Quoter is the
	// QuoterV2 contract for concentrated-liquidity pools.
	Pair   string `toml:"pair"`
	Quoter string `toml:"quoter"`

	BaseToken     string  `toml:"base_token"`
	QuoteToken    string  `toml:"quote_token"`
	BaseDecimals  int     `toml:"base_decimals"`
	QuoteDecimals int     `toml:"quote_decimals"`
	BaseIsToken0  bool    `toml:"base_is_token0"`
	FeeBps        float64 `toml:"fee_bps"`   // v2 pools
	FeeTiers      []int64 `toml:"fee_tiers"` // v3 pools, e.g. [500, 3000, 10000]
}

// RedisConfig holds the optional Redis signal-publisher parameters. Leaving
// Addr empty disables the sink.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Channel  string `toml:"channel"`
}

// PostgresConfig holds the optional signal-archive parameters. Leaving DSN
// empty disables the sink.
type PostgresConfig struct {
	DSN      string `toml:"dsn"`
	MaxConns int    `toml:"max_conns"`
}

// MetricsConfig holds the Prometheus endpoint parameters.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// NotifyConfig holds notification channel credentials. Levels selects which
// profit levels trigger an alert.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Levels            []string `toml:"levels"`
}

// Duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "1s" or "250ms".
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Detector: DetectorConfig{
			ScanInterval:    Duration{time.Second},
			TradeSize:       1.0,
			MinProfit:       5.0,
			FlatSlippageBps: 5.0,
			CexTransferFee:  5.0,
			ProfitMedium:    5.0,
			ProfitHigh:      20.0,
			ProfitCritical:  50.0,
		},
		Gas: GasConfig{
			RefreshInterval: Duration{15 * time.Second},
		},
		RPC: RPCConfig{
			ProbeInterval: Duration{30 * time.Second},
		},
		Redis: RedisConfig{
			Channel: "signals",
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Notify: NotifyConfig{
			Levels: []string{"high", "critical"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for invalid or missing values and returns a combined
// error describing every problem found. A validation failure is fatal at
// startup; it is the only error class that stops the process.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Detector
	if c.Detector.ScanInterval.Duration <= 0 {
		errs = append(errs, "detector: scan_interval must be > 0")
	}
	if c.Detector.TradeSize <= 0 {
		errs = append(errs, "detector: trade_size must be > 0")
	}
	if c.Detector.FlatSlippageBps < 0 {
		errs = append(errs, "detector: flat_slippage_bps must be >= 0")
	}
	if !(0 < c.Detector.ProfitMedium && c.Detector.ProfitMedium < c.Detector.ProfitHigh && c.Detector.ProfitHigh < c.Detector.ProfitCritical) {
		errs = append(errs, "detector: profit levels must satisfy 0 < profit_medium < profit_high < profit_critical")
	}

	// Gas and RPC intervals
	if c.Gas.RefreshInterval.Duration <= 0 {
		errs = append(errs, "gas: refresh_interval must be > 0")
	}
	if c.RPC.ProbeInterval.Duration <= 0 {
		errs = append(errs, "rpc: probe_interval must be > 0")
	}

	// Chains
	chains := make(map[string]ChainConfig, len(c.Chains))
	for i, ch := range c.Chains {
		if ch.Name == "" {
			errs = append(errs, fmt.Sprintf("chains[%d]: name must not be empty", i))
			continue
		}
		if _, dup := chains[ch.Name]; dup {
			errs = append(errs, fmt.Sprintf("chains[%d]: duplicate chain %q", i, ch.Name))
		}
		if len(ch.RPCEndpoints) == 0 {
			errs = append(errs, fmt.Sprintf("chain %s: at least one rpc endpoint is required", ch.Name))
		}
		if ch.NativeToken == "" {
			errs = append(errs, fmt.Sprintf("chain %s: native_token must not be empty", ch.Name))
		}
		if ch.SwapGasUnits == 0 {
			errs = append(errs, fmt.Sprintf("chain %s: swap_gas_units must be > 0", ch.Name))
		}
		chains[ch.Name] = ch
	}

	// Venues
	seen := make(map[string]bool, len(c.Venues))
	for i, v := range c.Venues {
		label := v.Name
		if label == "" {
			label = fmt.Sprintf("venues[%d]", i)
			errs = append(errs, label+": name must not be empty")
		}
		if seen[v.Name] {
			errs = append(errs, fmt.Sprintf("venue %s: duplicate name", v.Name))
		}
		seen[v.Name] = true

		kind := domain.TransportKind(v.Kind)
		if !kind.Valid() {
			errs = append(errs, fmt.Sprintf("venue %s: unknown kind %q (valid: streaming, polling, onchain)", label, v.Kind))
			continue
		}

		switch kind {
		case domain.TransportStreaming:
			if v.WSURL == "" {
				errs = append(errs, fmt.Sprintf("venue %s: ws_url is required for streaming venues", label))
			}
			if len(v.Instruments) == 0 {
				errs = append(errs, fmt.Sprintf("venue %s: at least one instrument is required", label))
			}
		case domain.TransportPolling:
			if v.RestURL == "" {
				errs = append(errs, fmt.Sprintf("venue %s: rest_url is required for polling venues", label))
			}
			if v.PollInterval.Duration <= 0 {
				errs = append(errs, fmt.Sprintf("venue %s: poll_interval must be > 0", label))
			}
			if len(v.Instruments) == 0 {
				errs = append(errs, fmt.Sprintf("venue %s: at least one instrument is required", label))
			}
		case domain.TransportOnChain:
			if v.Chain == "" {
				errs = append(errs, fmt.Sprintf("venue %s: chain is required for onchain venues", label))
			} else if _, ok := chains[v.Chain]; !ok {
				errs = append(errs, fmt.Sprintf("venue %s: chain %q is not configured", label, v.Chain))
			}
			if len(v.Pools) == 0 {
				errs = append(errs, fmt.Sprintf("venue %s: at least one pool is required", label))
			}
			for j, p := range v.Pools {
				if _, err := domain.ParseInstrument(p.Instrument); err != nil {
					errs = append(errs, fmt.Sprintf("venue %s: pools[%d]: bad instrument %q", label, j, p.Instrument))
				}
				switch p.Kind {
				case "v2":
					if p.Pair == "" {
						errs = append(errs, fmt.Sprintf("venue %s: pools[%d]: pair address is required for v2 pools", label, j))
					}
				case "v3":
					if p.Quoter == "" {
						errs = append(errs, fmt.Sprintf("venue %s: pools[%d]: quoter address is required for v3 pools", label, j))
					}
					if len(p.FeeTiers) == 0 {
						errs = append(errs, fmt.Sprintf("venue %s: pools[%d]: at least one fee tier is required for v3 pools", label, j))
					}
				default:
					errs = append(errs, fmt.Sprintf("venue %s: pools[%d]: unknown pool kind %q (valid: v2, v3)", label, j, p.Kind))
				}
				if p.BaseToken == "" || p.QuoteToken == "" {
					errs = append(errs, fmt.Sprintf("venue %s: pools[%d]: base_token and quote_token are required", label, j))
				}
				if p.BaseDecimals <= 0 || p.QuoteDecimals <= 0 {
					errs = append(errs, fmt.Sprintf("venue %s: pools[%d]: token decimals must be > 0", label, j))
				}
			}
		}

		// Instrument symbols must parse for CEX venues.
		for _, sym := range v.Instruments {
			if _, err := domain.ParseInstrument(sym); err != nil {
				errs = append(errs, fmt.Sprintf("venue %s: bad instrument %q", label, sym))
			}
		}
	}

	if len(c.Venues) == 0 {
		errs = append(errs, "at least one venue must be configured")
	}

	// Metrics
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Sprintf("metrics: port must be 1-65535, got %d", c.Metrics.Port))
	}

	// Notify levels
	for _, lvl := range c.Notify.Levels {
		switch strings.ToLower(lvl) {
		case "medium", "high", "critical":
		default:
			errs = append(errs, fmt.Sprintf("notify: unknown level %q (valid: medium, high, critical)", lvl))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Chain returns the configuration for the named chain, if present.
func (c *Config) Chain(name string) (ChainConfig, bool) {
	for _, ch := range c.Chains {
		if ch.Name == name {
			return ch, true
		}
	}
	return ChainConfig{}, false
}

// Venue converts a VenueConfig into its domain representation.
func (v VenueConfig) Venue() domain.Venue {
	return domain.Venue{
		Name:         v.Name,
		Kind:         domain.TransportKind(v.Kind),
		TakerFeeBps:  v.TakerFeeBps,
		MinTradeSize: v.MinTradeSize,
		Chain:        v.Chain,
		PollInterval: v.PollInterval.Duration,
		MaxQuoteAge:  v.MaxQuoteAge.Duration,
	}
}

// VenueSymbol resolves the venue-local spelling for a canonical instrument.
// Falls back to lowercased "basequote" concatenation, which matches the
// majority of spot APIs.
func (v VenueConfig) VenueSymbol(inst domain.Instrument) string {
	if s, ok := v.SymbolMap[inst.Symbol()]; ok {
		return s
	}
	return strings.ToLower(inst.Base + inst.Quote)
}
