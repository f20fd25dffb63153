// Package rpc tracks the health of interchangeable blockchain RPC endpoints
// and routes calls to the best available one. One pool serves all chains;
// endpoints are created at startup and only ever promoted or demoted, never
// removed.
package rpc

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Lugier/HFT/internal/domain"
)

// HealthState classifies an endpoint's liveness.
type HealthState int8

const (
	Healthy HealthState = iota
	Degraded
	Dead
)

// String implements fmt.Stringer.
func (s HealthState) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// deadThreshold is the consecutive-failure count at which an endpoint is
// declared dead. Failures before that demote healthy endpoints to degraded.
const deadThreshold = 3

// ewmaWeight is the weight of the previous latency average; new samples
// contribute 1-ewmaWeight.
const ewmaWeight = 0.8

// Endpoint is one RPC endpoint with its health bookkeeping. State is guarded
// by a per-endpoint mutex so reporting on one endpoint never blocks another.
type Endpoint struct {
	Chain string
	URL   string

	mu          sync.Mutex
	state       HealthState
	latencyEWMA float64 // milliseconds; 0 means unknown
	consecFails int
	lastSuccess time.Time
	lastFailure time.Time
}

// State returns the current health state.
func (e *Endpoint) State() HealthState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Latency returns the EWMA latency estimate in milliseconds; 0 when no
// successful call has been observed yet.
func (e *Endpoint) Latency() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latencyEWMA
}

// recordSuccess promotes the endpoint to healthy and folds the latency sample
// into the moving average. A single success recovers even a dead endpoint:
// public endpoints flap, so the tracker is biased toward fast recovery.
func (e *Endpoint) recordSuccess(latency time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = Healthy
	e.consecFails = 0
	e.lastSuccess = time.Now()

	sample := float64(latency.Milliseconds())
	if e.latencyEWMA == 0 {
		e.latencyEWMA = sample
	} else {
		e.latencyEWMA = ewmaWeight*e.latencyEWMA + (1-ewmaWeight)*sample
	}
}

// recordFailure increments the consecutive-failure counter and walks the
// endpoint down healthy -> degraded -> dead: the first failure demotes a
// healthy endpoint to degraded, the third consecutive failure kills it.
func (e *Endpoint) recordFailure() HealthState {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.consecFails++
	e.lastFailure = time.Now()
	switch {
	case e.consecFails >= deadThreshold:
		e.state = Dead
	case e.state == Healthy:
		e.state = Degraded
	}
	return e.state
}

// Pool holds the endpoint sets for every configured chain and selects the
// best candidate per request.
type Pool struct {
	mu      sync.RWMutex
	byChain map[string][]*Endpoint
	logger  *slog.Logger

	onLatency func(chain string, latency time.Duration)
}

// NewPool creates an empty Pool.
func NewPool(logger *slog.Logger) *Pool {
	return &Pool{
		byChain: make(map[string][]*Endpoint),
		logger:  logger.With(slog.String("component", "rpc_pool")),
	}
}

// AddChain registers the candidate endpoints for a chain. All endpoints start
// healthy with unknown latency; that cold-start assumption is safe because the
// first failures demote quickly.
func (p *Pool) AddChain(chain string, urls []string) {
	eps := make([]*Endpoint, 0, len(urls))
	for _, u := range urls {
		eps = append(eps, &Endpoint{Chain: chain, URL: u})
	}
	p.mu.Lock()
	p.byChain[chain] = eps
	p.mu.Unlock()
}

// SetLatencyObserver registers a callback invoked with the latency of every
// successful call. Must be set before the pool is used.
func (p *Pool) SetLatencyObserver(fn func(chain string, latency time.Duration)) {
	p.onLatency = fn
}

// Endpoints returns the endpoint set for a chain.
func (p *Pool) Endpoints(chain string) []*Endpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.byChain[chain]
}

// Select returns the lowest-latency endpoint among those currently healthy
// for the chain. When no healthy endpoint exists it falls back to the best
// degraded one: a degraded-but-alive endpoint beats blocking. Only when every
// endpoint is dead does it fail with ErrNoEndpointAvailable.
func (p *Pool) Select(chain string) (*Endpoint, error) {
	p.mu.RLock()
	eps := p.byChain[chain]
	p.mu.RUnlock()

	if len(eps) == 0 {
		return nil, fmt.Errorf("rpc: chain %s: %w", chain, domain.ErrNoEndpointAvailable)
	}

	if ep := best(eps, Healthy); ep != nil {
		return ep, nil
	}
	if ep := best(eps, Degraded); ep != nil {
		return ep, nil
	}
	return nil, fmt.Errorf("rpc: chain %s: %w", chain, domain.ErrNoEndpointAvailable)
}

// best picks the endpoint with the lowest known latency in the given state.
// Endpoints with unknown latency sort last so measured endpoints win, but an
// unknown one is still returned when it is the only candidate.
func best(eps []*Endpoint, state HealthState) *Endpoint {
	var pick *Endpoint
	var pickLatency float64
	for _, ep := range eps {
		ep.mu.Lock()
		s, lat := ep.state, ep.latencyEWMA
		ep.mu.Unlock()
		if s != state {
			continue
		}
		if lat == 0 {
			lat = float64(1<<62 - 1)
		}
		if pick == nil || lat < pickLatency {
			pick, pickLatency = ep, lat
		}
	}
	return pick
}

// EndpointStatus is a point-in-time view of one endpoint for status surfaces
// (the HTTP API and metrics).
type EndpointStatus struct {
	Chain               string    `json:"chain"`
	URL                 string    `json:"url"`
	State               string    `json:"state"`
	LatencyMs           float64   `json:"latency_ms"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastSuccess         time.Time `json:"last_success,omitzero"`
	LastFailure         time.Time `json:"last_failure,omitzero"`
}

// Status reports every endpoint across all chains.
func (p *Pool) Status() []EndpointStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []EndpointStatus
	for _, eps := range p.byChain {
		for _, ep := range eps {
			ep.mu.Lock()
			out = append(out, EndpointStatus{
				Chain:               ep.Chain,
				URL:                 ep.URL,
				State:               ep.state.String(),
				LatencyMs:           ep.latencyEWMA,
				ConsecutiveFailures: ep.consecFails,
				LastSuccess:         ep.lastSuccess,
				LastFailure:         ep.lastFailure,
			})
			ep.mu.Unlock()
		}
	}
	return out
}

// Report records a call outcome against an endpoint. The resulting state
// change is visible to the next Select immediately.
func (p *Pool) Report(ep *Endpoint, callErr error, latency time.Duration) {
	if ep == nil {
		return
	}
	if callErr == nil {
		ep.recordSuccess(latency)
		if p.onLatency != nil {
			p.onLatency(ep.Chain, latency)
		}
		return
	}
	state := ep.recordFailure()
	p.logger.Warn("rpc endpoint failure",
		slog.String("chain", ep.Chain),
		slog.String("url", ep.URL),
		slog.String("state", state.String()),
		slog.String("error", callErr.Error()),
	)
}
