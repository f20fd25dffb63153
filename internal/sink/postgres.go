package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lugier/HFT/internal/config"
	"github.com/Lugier/HFT/internal/domain"
)

// signalsSchema is applied at startup. The table is append-only: signals are
// immutable once emitted, so there are no updates or deletes.
const signalsSchema = `
CREATE TABLE IF NOT EXISTS signals (
    id             TEXT PRIMARY KEY,
    instrument     TEXT NOT NULL,
    buy_venue      TEXT NOT NULL,
    sell_venue     TEXT NOT NULL,
    buy_price      DOUBLE PRECISION NOT NULL,
    sell_price     DOUBLE PRECISION NOT NULL,
    size           DOUBLE PRECISION NOT NULL,
    gross_spread   DOUBLE PRECISION NOT NULL,
    net_profit     DOUBLE PRECISION NOT NULL,
    level          TEXT NOT NULL,
    costs          JSONB NOT NULL,
    detected_at    TIMESTAMPTZ NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS signals_detected_at_idx ON signals (detected_at DESC);
`

// PostgresSink archives every signal into an append-only table for later
// analysis and backtesting.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to Postgres and ensures the signals table exists.
func NewPostgresSink(ctx context.Context, cfg config.PostgresConfig) (*PostgresSink, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sink: postgres parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("sink: postgres connect: %w", err)
	}
	if _, err := pool.Exec(ctx, signalsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("sink: postgres ensure schema: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

// Emit inserts the signal. A duplicate ID is a no-op, so redelivery is safe.
func (s *PostgresSink) Emit(ctx context.Context, sig domain.OpportunitySignal) error {
	costsJSON, err := json.Marshal(sig.Costs)
	if err != nil {
		return fmt.Errorf("sink: marshal costs for %s: %w", sig.ID, err)
	}

	const query = `
INSERT INTO signals (id, instrument, buy_venue, sell_venue, buy_price, sell_price,
                     size, gross_spread, net_profit, level, costs, detected_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO NOTHING`

	_, err = s.pool.Exec(ctx, query,
		sig.ID, sig.Instrument.Symbol(), sig.BuyVenue, sig.SellVenue,
		sig.BuyPrice, sig.SellPrice, sig.Size, sig.GrossSpread,
		sig.NetProfit, string(sig.Level), costsJSON, sig.DetectedAt)
	if err != nil {
		return fmt.Errorf("sink: insert signal %s: %w", sig.ID, err)
	}
	return nil
}

// Name identifies the sink in logs and metrics.
func (s *PostgresSink) Name() string { return "postgres" }

// Close releases the connection pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}

var _ domain.SignalSink = (*PostgresSink)(nil)
