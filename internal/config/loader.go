package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies HFT_* environment variable overrides, and returns
// the final Config. The returned Config has NOT been validated; the caller
// should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known HFT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets and tuning at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Detector ──
	setDuration(&cfg.Detector.ScanInterval, "HFT_DETECTOR_SCAN_INTERVAL")
	setFloat64(&cfg.Detector.TradeSize, "HFT_DETECTOR_TRADE_SIZE")
	setFloat64(&cfg.Detector.MinProfit, "HFT_DETECTOR_MIN_PROFIT")
	setFloat64(&cfg.Detector.FlatSlippageBps, "HFT_DETECTOR_FLAT_SLIPPAGE_BPS")
	setFloat64(&cfg.Detector.CexTransferFee, "HFT_DETECTOR_CEX_TRANSFER_FEE")
	setFloat64(&cfg.Detector.ProfitMedium, "HFT_DETECTOR_PROFIT_MEDIUM")
	setFloat64(&cfg.Detector.ProfitHigh, "HFT_DETECTOR_PROFIT_HIGH")
	setFloat64(&cfg.Detector.ProfitCritical, "HFT_DETECTOR_PROFIT_CRITICAL")

	// ── Gas ──
	setDuration(&cfg.Gas.RefreshInterval, "HFT_GAS_REFRESH_INTERVAL")

	// ── RPC ──
	setDuration(&cfg.RPC.ProbeInterval, "HFT_RPC_PROBE_INTERVAL")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "HFT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "HFT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "HFT_REDIS_DB")
	setStr(&cfg.Redis.Channel, "HFT_REDIS_CHANNEL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "HFT_POSTGRES_DSN")
	setInt(&cfg.Postgres.MaxConns, "HFT_POSTGRES_MAX_CONNS")

	// ── Metrics ──
	setBool(&cfg.Metrics.Enabled, "HFT_METRICS_ENABLED")
	setInt(&cfg.Metrics.Port, "HFT_METRICS_PORT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "HFT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "HFT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "HFT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Levels, "HFT_NOTIFY_LEVELS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "HFT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
