package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lugier/HFT/internal/book"
	"github.com/Lugier/HFT/internal/domain"
	"github.com/Lugier/HFT/internal/sink"
)

func TestHealth(t *testing.T) {
	h := NewStatusHandler(book.New(), nil, nil, nil)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestQuotes(t *testing.T) {
	b := book.New()
	b.Update(domain.Quote{
		Instrument: domain.NewInstrument("ETH", "USDT"),
		Venue:      "binance",
		Bid:        1999,
		Ask:        2000,
		ObservedAt: time.Now(),
	})
	h := NewStatusHandler(b, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.Quotes(rec, httptest.NewRequest(http.MethodGet, "/api/quotes", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Quotes []quoteView `json:"quotes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Quotes, 1)
	assert.Equal(t, "ETH/USDT", body.Quotes[0].Instrument)
	assert.Equal(t, "binance", body.Quotes[0].Venue)
	assert.False(t, body.Quotes[0].Stale)
}

func TestSignalsLimit(t *testing.T) {
	recent := sink.NewRecentSink(10)
	for i := 0; i < 5; i++ {
		require.NoError(t, recent.Emit(context.Background(), domain.OpportunitySignal{ID: "s"}))
	}
	h := NewStatusHandler(book.New(), nil, nil, recent)

	rec := httptest.NewRecorder()
	h.Signals(rec, httptest.NewRequest(http.MethodGet, "/api/signals?limit=2", nil))

	var body struct {
		Signals []domain.OpportunitySignal `json:"signals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Signals, 2)
}

func TestEndpointsWithoutPool(t *testing.T) {
	h := NewStatusHandler(book.New(), nil, nil, nil)

	rec := httptest.NewRecorder()
	h.Endpoints(rec, httptest.NewRequest(http.MethodGet, "/api/endpoints", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
