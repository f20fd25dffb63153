// Package metrics defines the Prometheus instrumentation for the scanner.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus metric the scanner exports. All metrics live
// on a private registry so tests can create instances freely.
type Metrics struct {
	registry *prometheus.Registry

	// Ingestion
	QuoteUpdates  *prometheus.CounterVec
	QuotesDropped *prometheus.CounterVec
	BookSize      prometheus.Gauge

	// RPC health
	EndpointState *prometheus.GaugeVec
	RPCLatency    *prometheus.HistogramVec

	// Gas
	GasPriceGwei *prometheus.GaugeVec

	// Detection
	ScanDuration prometheus.Histogram
	Signals      *prometheus.CounterVec
	SinkErrors   *prometheus.CounterVec
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		QuoteUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hftscan_quote_updates_total",
			Help: "Quotes accepted into the book, by venue",
		}, []string{"venue"}),

		QuotesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hftscan_quotes_dropped_total",
			Help: "Quotes rejected as out-of-order, by venue",
		}, []string{"venue"}),

		BookSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hftscan_book_entries",
			Help: "Current number of (instrument, venue) entries in the quote book",
		}),

		EndpointState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hftscan_rpc_endpoint_state",
			Help: "RPC endpoint health (0 healthy, 1 degraded, 2 dead)",
		}, []string{"chain", "url"}),

		RPCLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hftscan_rpc_latency_ms",
			Help:    "Observed RPC call latency per chain in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"chain"}),

		GasPriceGwei: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hftscan_gas_price_gwei",
			Help: "Latest observed gas price per chain in gwei",
		}, []string{"chain"}),

		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hftscan_scan_duration_ms",
			Help:    "Duration of one detection scan in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		Signals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hftscan_signals_total",
			Help: "Opportunity signals emitted, by profit level",
		}, []string{"level"}),

		SinkErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hftscan_sink_errors_total",
			Help: "Signal sink delivery failures, by sink",
		}, []string{"sink"}),
	}
}

// Handler returns the /metrics HTTP handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
