package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Lugier/HFT/internal/config"
	"github.com/Lugier/HFT/internal/domain"
)

// RedisSink publishes each signal as JSON on a Redis Pub/Sub channel, so
// downstream consumers (execution engines, dashboards) can react without
// polling.
type RedisSink struct {
	rdb     *redis.Client
	channel string
}

// NewRedisSink dials Redis and verifies connectivity with a ping.
func NewRedisSink(ctx context.Context, cfg config.RedisConfig) (*RedisSink, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("sink: redis ping: %w", err)
	}
	return &RedisSink{rdb: rdb, channel: cfg.Channel}, nil
}

// Emit publishes the signal to the configured channel.
func (s *RedisSink) Emit(ctx context.Context, sig domain.OpportunitySignal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("sink: marshal signal %s: %w", sig.ID, err)
	}
	if err := s.rdb.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("sink: publish %s: %w", s.channel, err)
	}
	return nil
}

// Name identifies the sink in logs and metrics.
func (s *RedisSink) Name() string { return "redis" }

// Close releases the Redis connection.
func (s *RedisSink) Close() error {
	return s.rdb.Close()
}

var _ domain.SignalSink = (*RedisSink)(nil)
