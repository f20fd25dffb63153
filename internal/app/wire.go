package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lugier/HFT/internal/book"
	"github.com/Lugier/HFT/internal/config"
	"github.com/Lugier/HFT/internal/costs"
	"github.com/Lugier/HFT/internal/detector"
	"github.com/Lugier/HFT/internal/domain"
	"github.com/Lugier/HFT/internal/feed"
	"github.com/Lugier/HFT/internal/gas"
	"github.com/Lugier/HFT/internal/metrics"
	"github.com/Lugier/HFT/internal/notify"
	"github.com/Lugier/HFT/internal/rpc"
	"github.com/Lugier/HFT/internal/server"
	"github.com/Lugier/HFT/internal/server/handler"
	"github.com/Lugier/HFT/internal/sink"
)

// Dependencies bundles everything Run needs. Constructed by Wire and torn
// down by the returned cleanup function.
type Dependencies struct {
	Book     *book.Book
	Metrics  *metrics.Metrics
	Adapters []feed.Adapter
	Detector *detector.Detector
	Recent   *sink.RecentSink

	// RPC layer; nil when no on-chain venue is configured.
	Pool   *rpc.Pool
	Prober *rpc.Prober
	Oracle *gas.Oracle

	// Server; nil when metrics are disabled.
	Server *server.Server
}

// Wire constructs all concrete dependencies from configuration and returns
// them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	b := book.New()
	m := metrics.New()
	quotes := &instrumentedBook{book: b, metrics: m}

	deps := &Dependencies{Book: b, Metrics: m}

	// --- RPC layer (only when an on-chain venue exists) ---
	var caller *rpc.Caller
	if hasOnChainVenue(cfg) {
		pool := rpc.NewPool(logger)
		for _, ch := range cfg.Chains {
			pool.AddChain(ch.Name, ch.RPCEndpoints)
		}
		pool.SetLatencyObserver(func(chain string, latency time.Duration) {
			m.RPCLatency.WithLabelValues(chain).Observe(float64(latency) / float64(time.Millisecond))
		})
		caller = rpc.NewCaller(pool)
		deps.Pool = pool
		deps.Prober = rpc.NewProber(pool, caller, cfg.RPC.ProbeInterval.Duration, logger)
		deps.Oracle = gas.NewOracle(caller, &bookPriceSource{book: b}, cfg.Chains, logger)
	}

	// --- Feed adapters, one per venue ---
	for _, vc := range cfg.Venues {
		adapter, err := newAdapter(vc, cfg, caller, quotes, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: venue %s: %w", vc.Name, err)
		}
		deps.Adapters = append(deps.Adapters, adapter)
		b.SetVenueMaxAge(vc.Name, adapter.Venue().QuoteMaxAge())
	}

	// --- Signal sinks ---
	deps.Recent = sink.NewRecentSink(200)
	sinks := []domain.SignalSink{
		sink.NewLogSink(logger),
		deps.Recent,
		&signalMetrics{metrics: m},
	}

	if cfg.Redis.Addr != "" {
		rs, err := sink.NewRedisSink(ctx, cfg.Redis)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis sink: %w", err)
		}
		closers = append(closers, func() { _ = rs.Close() })
		sinks = append(sinks, &instrumentedSink{sink: rs, metrics: m})
	}

	if cfg.Postgres.DSN != "" {
		ps, err := sink.NewPostgresSink(ctx, cfg.Postgres)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres sink: %w", err)
		}
		closers = append(closers, ps.Close)
		sinks = append(sinks, &instrumentedSink{sink: ps, metrics: m})
	}

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		alerts := notify.NewAlertSink(senders, cfg.Notify.Levels, logger)
		sinks = append(sinks, &instrumentedSink{sink: alerts, metrics: m})
	}

	// --- Detector ---
	model := costs.Model{
		FlatSlippageBps:    cfg.Detector.FlatSlippageBps,
		DefaultTransferFee: cfg.Detector.CexTransferFee,
		WithdrawalFees:     withdrawalFees(cfg),
	}

	venues := make(map[string]domain.Venue, len(deps.Adapters))
	for _, a := range deps.Adapters {
		v := a.Venue()
		venues[v.Name] = v
	}

	var gasSource detector.GasSource = emptyGas{}
	if deps.Oracle != nil {
		gasSource = deps.Oracle
	}

	deps.Detector = detector.New(b, venues, model, gasSource, sinks, detector.Config{
		ScanInterval: cfg.Detector.ScanInterval.Duration,
		TradeSize:    cfg.Detector.TradeSize,
		MinProfit:    cfg.Detector.MinProfit,
		ProfitLevels: domain.ProfitThresholds{
			Medium:   cfg.Detector.ProfitMedium,
			High:     cfg.Detector.ProfitHigh,
			Critical: cfg.Detector.ProfitCritical,
		},
	}, logger)
	deps.Detector.SetScanObserver(func(elapsed time.Duration, _ int) {
		m.ScanDuration.Observe(float64(elapsed) / float64(time.Millisecond))
	})

	// --- Status server ---
	if cfg.Metrics.Enabled {
		status := handler.NewStatusHandler(b, deps.Pool, deps.Oracle, deps.Recent)
		deps.Server = server.NewServer(server.Config{Port: cfg.Metrics.Port}, status, m.Handler(), logger)
	}

	return deps, cleanup, nil
}

// newAdapter builds the feed adapter variant for one venue config.
func newAdapter(vc config.VenueConfig, cfg *config.Config, caller *rpc.Caller, quotes feed.QuoteSink, logger *slog.Logger) (feed.Adapter, error) {
	switch domain.TransportKind(vc.Kind) {
	case domain.TransportStreaming:
		return feed.NewStreamingAdapter(vc, quotes, logger)
	case domain.TransportPolling:
		return feed.NewPollingAdapter(vc, quotes, logger)
	case domain.TransportOnChain:
		chain, ok := cfg.Chain(vc.Chain)
		if !ok {
			return nil, fmt.Errorf("chain %q is not configured", vc.Chain)
		}
		return feed.NewOnChainAdapter(vc, chain, cfg.Detector.TradeSize, caller, caller, quotes, logger)
	default:
		return nil, fmt.Errorf("unknown venue kind %q", vc.Kind)
	}
}

func hasOnChainVenue(cfg *config.Config) bool {
	for _, vc := range cfg.Venues {
		if domain.TransportKind(vc.Kind) == domain.TransportOnChain {
			return true
		}
	}
	return false
}

// withdrawalFees collects the per-venue withdrawal fees that are configured.
func withdrawalFees(cfg *config.Config) map[string]float64 {
	out := make(map[string]float64)
	for _, vc := range cfg.Venues {
		if vc.WithdrawalFee > 0 {
			out[vc.Name] = vc.WithdrawalFee
		}
	}
	return out
}

// instrumentedBook wraps the quote book as a feed.QuoteSink, counting
// accepted and dropped updates per venue.
type instrumentedBook struct {
	book    *book.Book
	metrics *metrics.Metrics
}

func (s *instrumentedBook) Update(q domain.Quote) bool {
	ok := s.book.Update(q)
	if ok {
		s.metrics.QuoteUpdates.WithLabelValues(q.Venue).Inc()
	} else {
		s.metrics.QuotesDropped.WithLabelValues(q.Venue).Inc()
	}
	return ok
}

func (s *instrumentedBook) MarkStale(inst domain.Instrument, venue string) {
	s.book.MarkStale(inst, venue)
}

// instrumentedSink decorates a delivery sink, counting failed emits.
type instrumentedSink struct {
	sink    domain.SignalSink
	metrics *metrics.Metrics
}

func (s *instrumentedSink) Emit(ctx context.Context, sig domain.OpportunitySignal) error {
	if err := s.sink.Emit(ctx, sig); err != nil {
		s.metrics.SinkErrors.WithLabelValues(s.sink.Name()).Inc()
		return err
	}
	return nil
}

func (s *instrumentedSink) Name() string { return s.sink.Name() }

// signalMetrics counts emitted signals by profit level.
type signalMetrics struct {
	metrics *metrics.Metrics
}

func (s *signalMetrics) Emit(_ context.Context, sig domain.OpportunitySignal) error {
	s.metrics.Signals.WithLabelValues(string(sig.Level)).Inc()
	return nil
}

func (s *signalMetrics) Name() string { return "metrics" }

// bookPriceSource prices an asset from the quote book for the gas oracle,
// trying the common USD-quote denominations.
type bookPriceSource struct {
	book *book.Book
}

var usdQuotes = []string{"USDT", "USDC", "USD"}

func (p *bookPriceSource) AssetUSD(symbol string) (float64, bool) {
	base := domain.NormalizeSymbol(symbol)
	for _, quote := range usdQuotes {
		inst := domain.NewInstrument(base, quote)
		for _, e := range p.book.Snapshot(inst) {
			if e.Stale {
				continue
			}
			if mid := e.Quote.Mid(); mid > 0 {
				return mid, true
			}
		}
	}
	return 0, false
}

// emptyGas satisfies detector.GasSource when no chain is configured.
type emptyGas struct{}

func (emptyGas) Snapshot() map[string]domain.GasQuote { return nil }
