package rpc

import (
	"context"
	"log/slog"
	"time"
)

// Prober actively health-checks every endpoint of every chain on a fixed
// interval with a cheap eth_blockNumber call, so dead endpoints get a chance
// to recover even when no venue is quoting on their chain.
type Prober struct {
	pool     *Pool
	caller   *Caller
	interval time.Duration
	logger   *slog.Logger
}

// NewProber creates a Prober over the given pool.
func NewProber(pool *Pool, caller *Caller, interval time.Duration, logger *slog.Logger) *Prober {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Prober{
		pool:     pool,
		caller:   caller,
		interval: interval,
		logger:   logger.With(slog.String("component", "rpc_prober")),
	}
}

// Run blocks until ctx is cancelled, probing all endpoints each interval.
func (p *Prober) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.probeAll(ctx)
		}
	}
}

// probeAll pings every endpoint directly, bypassing Select so dead endpoints
// are exercised too. Outcomes feed the same health bookkeeping as real calls.
func (p *Prober) probeAll(ctx context.Context) {
	p.pool.mu.RLock()
	chains := make(map[string][]*Endpoint, len(p.pool.byChain))
	for chain, eps := range p.pool.byChain {
		chains[chain] = eps
	}
	p.pool.mu.RUnlock()

	for _, eps := range chains {
		for _, ep := range eps {
			select {
			case <-ctx.Done():
				return
			default:
			}

			callCtx, cancel := context.WithTimeout(ctx, callTimeout)
			start := time.Now()
			cl, err := p.caller.client(callCtx, ep)
			if err == nil {
				_, err = cl.BlockNumber(callCtx)
			}
			cancel()
			p.pool.Report(ep, err, time.Since(start))

			if err == nil && ep.State() == Healthy {
				p.logger.Debug("endpoint probe ok",
					slog.String("chain", ep.Chain),
					slog.String("url", ep.URL),
					slog.Float64("latency_ms", ep.Latency()),
				)
			}
		}
	}
}
