package feed

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lugier/HFT/internal/config"
)

func pollingVenue(restURL string) config.VenueConfig {
	return config.VenueConfig{
		Name:         "kraken",
		Kind:         "polling",
		RestURL:      restURL,
		PollInterval: config.Duration{Duration: 500 * time.Millisecond},
		Instruments:  []string{"ETH/USDT"},
	}
}

func TestPollingFetchesTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ethusdt", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"bidPrice":"2010.00","bidQty":"4","askPrice":"2011.00","askQty":"6"}`))
	}))
	defer srv.Close()

	sink := &fakeSink{}
	a, err := NewPollingAdapter(pollingVenue(srv.URL+"/ticker?symbol=%s"), sink, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	a.pollAll(context.Background())

	quotes := sink.quotes()
	require.Len(t, quotes, 1)
	q := quotes[0]
	assert.Equal(t, "ETH/USDT", q.Instrument.Symbol())
	assert.Equal(t, "kraken", q.Venue)
	assert.InDelta(t, 2010, q.Bid, 1e-9)
	assert.InDelta(t, 2011, q.Ask, 1e-9)
	assert.InDelta(t, 4, q.BidSize, 1e-9)
	assert.InDelta(t, 6, q.AskSize, 1e-9)
}

func TestPollingSkipsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sink := &fakeSink{}
	a, err := NewPollingAdapter(pollingVenue(srv.URL+"/ticker?symbol=%s"), sink, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	a.pollAll(context.Background())

	assert.Empty(t, sink.quotes())
	// Failed polls never mark stale; the book ages the quote out instead.
	assert.Empty(t, sink.staleKeys())
}

func TestPollingSkipsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>rate limited</html>`))
	}))
	defer srv.Close()

	sink := &fakeSink{}
	a, err := NewPollingAdapter(pollingVenue(srv.URL+"/ticker?symbol=%s"), sink, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	a.pollAll(context.Background())
	assert.Empty(t, sink.quotes())
}
