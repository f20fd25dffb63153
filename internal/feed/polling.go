package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Lugier/HFT/internal/config"
	"github.com/Lugier/HFT/internal/domain"
)

const (
	httpTimeout     = 5 * time.Second
	maxResponseSize = 1 << 20 // 1 MiB
)

// PollingAdapter fetches a venue's REST ticker endpoint on a fixed interval,
// one request per instrument per tick. A failed or malformed response skips
// the update; the quote then ages out through the book's staleness window
// rather than being overwritten with bad data.
type PollingAdapter struct {
	venue    domain.Venue
	restURL  string
	interval time.Duration
	symbols  *symbolTable
	sink     QuoteSink
	client   *http.Client
	logger   *slog.Logger
}

// restTicker is the best-bid/ask payload the polled endpoints return.
type restTicker struct {
	BidPrice string `json:"bidPrice"`
	BidQty   string `json:"bidQty"`
	AskPrice string `json:"askPrice"`
	AskQty   string `json:"askQty"`
}

// NewPollingAdapter builds the adapter for a polling venue config.
func NewPollingAdapter(vc config.VenueConfig, sink QuoteSink, logger *slog.Logger) (*PollingAdapter, error) {
	symbols := newSymbolTable()
	for _, sym := range vc.Instruments {
		inst, err := domain.ParseInstrument(sym)
		if err != nil {
			return nil, fmt.Errorf("feed: venue %s: %w", vc.Name, err)
		}
		symbols.add(inst, vc.VenueSymbol(inst))
	}
	return &PollingAdapter{
		venue:    vc.Venue(),
		restURL:  vc.RestURL,
		interval: vc.PollInterval.Duration,
		symbols:  symbols,
		sink:     sink,
		client:   &http.Client{Timeout: httpTimeout},
		logger:   logger.With(slog.String("component", "feed"), slog.String("venue", vc.Name)),
	}, nil
}

// Venue returns the venue description.
func (a *PollingAdapter) Venue() domain.Venue { return a.venue }

// Run polls until ctx is cancelled. The first cycle runs immediately.
func (a *PollingAdapter) Run(ctx context.Context) error {
	a.pollAll(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.pollAll(ctx)
		}
	}
}

func (a *PollingAdapter) pollAll(ctx context.Context) {
	for local, inst := range a.symbols.toInst {
		q, err := a.fetch(ctx, local, inst)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Warn("poll failed",
				slog.String("symbol", inst.Symbol()),
				slog.String("error", err.Error()))
			continue
		}
		a.sink.Update(q)
	}
}

// fetch requests one instrument's ticker and normalizes it.
func (a *PollingAdapter) fetch(ctx context.Context, local string, inst domain.Instrument) (domain.Quote, error) {
	url := fmt.Sprintf(a.restURL, local)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("feed: %s: build request: %w", a.venue.Name, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("feed: %s: fetch %s: %w", a.venue.Name, local, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Quote{}, fmt.Errorf("feed: %s: fetch %s: status %d", a.venue.Name, local, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return domain.Quote{}, fmt.Errorf("feed: %s: read body: %w", a.venue.Name, err)
	}

	var t restTicker
	if err := json.Unmarshal(body, &t); err != nil {
		return domain.Quote{}, fmt.Errorf("feed: %s: decode ticker: %w", a.venue.Name, domain.ErrNormalization)
	}

	bid, err := parsePrice(t.BidPrice)
	if err != nil {
		return domain.Quote{}, err
	}
	ask, err := parsePrice(t.AskPrice)
	if err != nil {
		return domain.Quote{}, err
	}
	bidSize, err := parseSize(t.BidQty)
	if err != nil {
		return domain.Quote{}, err
	}
	askSize, err := parseSize(t.AskQty)
	if err != nil {
		return domain.Quote{}, err
	}

	return domain.Quote{
		Instrument: inst,
		Venue:      a.venue.Name,
		Bid:        bid,
		Ask:        ask,
		BidSize:    bidSize,
		AskSize:    askSize,
		ObservedAt: time.Now(),
	}, nil
}
