// Package app provides the top-level application lifecycle: it wires the
// quote book, RPC layer, gas oracle, feed adapters, detector, sinks, and the
// status server together, starts them as a goroutine group, and tears
// everything down in reverse order on shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Lugier/HFT/internal/config"
)

// gaugeUpdateInterval is the cadence for refreshing derived gauges (book
// size, endpoint health, gas prices).
const gaugeUpdateInterval = 5 * time.Second

// serverShutdownTimeout bounds graceful HTTP shutdown.
const serverShutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the scanner
// goroutines, and blocks until the context is cancelled or a component fails.
// On return it runs all registered cleanup functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting scanner",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int("venues", len(a.cfg.Venues)),
		slog.Int("chains", len(a.cfg.Chains)),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)

	if deps.Prober != nil {
		g.Go(func() error { return deps.Prober.Run(gctx) })
	}
	if deps.Oracle != nil {
		g.Go(func() error { return deps.Oracle.Run(gctx, a.cfg.Gas.RefreshInterval.Duration) })
	}

	for _, adapter := range deps.Adapters {
		g.Go(func() error { return adapter.Run(gctx) })
	}

	g.Go(func() error { return deps.Detector.Run(gctx) })

	g.Go(func() error { return a.updateGauges(gctx, deps) })

	if deps.Server != nil {
		g.Go(func() error { return deps.Server.Start() })
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
			defer cancel()
			return deps.Server.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	a.logger.Info("scanner stopped")
	return err
}

// updateGauges periodically refreshes the gauges derived from shared state:
// book size, per-endpoint RPC health, and per-chain gas prices.
func (a *App) updateGauges(ctx context.Context, deps *Dependencies) error {
	ticker := time.NewTicker(gaugeUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			deps.Metrics.BookSize.Set(float64(deps.Book.Len()))
			if deps.Pool != nil {
				for _, ep := range deps.Pool.Status() {
					var state float64
					switch ep.State {
					case "degraded":
						state = 1
					case "dead":
						state = 2
					}
					deps.Metrics.EndpointState.WithLabelValues(ep.Chain, ep.URL).Set(state)
				}
			}
			if deps.Oracle != nil {
				for chain, gq := range deps.Oracle.Snapshot() {
					deps.Metrics.GasPriceGwei.WithLabelValues(chain).Set(gq.GasPriceGwei)
				}
			}
		}
	}
}

// Close runs all registered cleanup functions in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
