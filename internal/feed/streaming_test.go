package feed

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lugier/HFT/internal/config"
	"github.com/Lugier/HFT/internal/domain"
)

func streamingVenue() config.VenueConfig {
	return config.VenueConfig{
		Name:        "binance",
		Kind:        "streaming",
		WSURL:       "wss://stream.example.com/ws",
		Instruments: []string{"ETH/USDT", "BTC/USDT"},
		SymbolMap:   map[string]string{"BTC/USDT": "xbtusdt"},
	}
}

func newTestStreaming(t *testing.T, sink QuoteSink) *StreamingAdapter {
	t.Helper()
	a, err := NewStreamingAdapter(streamingVenue(), sink, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return a
}

func TestStreamingNormalize(t *testing.T) {
	sink := &fakeSink{}
	a := newTestStreaming(t, sink)

	a.handleMessage([]byte(`{"u":42,"s":"ethusdt","b":"1999.50","B":"3","a":"2000.10","A":"2.5"}`))

	quotes := sink.quotes()
	require.Len(t, quotes, 1)
	q := quotes[0]
	assert.Equal(t, "ETH/USDT", q.Instrument.Symbol())
	assert.Equal(t, "binance", q.Venue)
	assert.InDelta(t, 1999.50, q.Bid, 1e-9)
	assert.InDelta(t, 2000.10, q.Ask, 1e-9)
	assert.InDelta(t, 3, q.BidSize, 1e-9)
	assert.InDelta(t, 2.5, q.AskSize, 1e-9)
	assert.Equal(t, uint64(42), q.Seq)
	assert.False(t, q.ObservedAt.IsZero())
}

func TestStreamingSymbolMapOverride(t *testing.T) {
	sink := &fakeSink{}
	a := newTestStreaming(t, sink)

	a.handleMessage([]byte(`{"u":1,"s":"xbtusdt","b":"60000","B":"1","a":"60010","A":"1"}`))

	quotes := sink.quotes()
	require.Len(t, quotes, 1)
	assert.Equal(t, "BTC/USDT", quotes[0].Instrument.Symbol())
}

func TestStreamingDropsMalformedFrames(t *testing.T) {
	sink := &fakeSink{}
	a := newTestStreaming(t, sink)

	// Subscription ack, unknown symbol, bad price, truncated JSON.
	a.handleMessage([]byte(`{"result":null,"id":1}`))
	a.handleMessage([]byte(`{"u":1,"s":"dogeusdt","b":"0.1","B":"1","a":"0.2","A":"1"}`))
	a.handleMessage([]byte(`{"u":1,"s":"ethusdt","b":"oops","B":"1","a":"2000","A":"1"}`))
	a.handleMessage([]byte(`{"u":1,"s":"eth`))

	assert.Empty(t, sink.quotes())
}

func TestStreamingRejectsNonPositivePrices(t *testing.T) {
	sink := &fakeSink{}
	a := newTestStreaming(t, sink)

	a.handleMessage([]byte(`{"u":1,"s":"ethusdt","b":"0","B":"1","a":"2000","A":"1"}`))
	a.handleMessage([]byte(`{"u":1,"s":"ethusdt","b":"1999","B":"1","a":"-2000","A":"1"}`))

	assert.Empty(t, sink.quotes())
}

func TestStreamingMarkAllStale(t *testing.T) {
	sink := &fakeSink{}
	a := newTestStreaming(t, sink)

	a.markAllStale()

	assert.ElementsMatch(t,
		[]string{"ETH/USDT|binance", "BTC/USDT|binance"},
		sink.staleKeys())
}

func TestStreamingBackoffResetsAfterSubscribe(t *testing.T) {
	// Accept the connection, consume the subscribe command, deliver one
	// ticker frame, then drop the connection.
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"u":7,"s":"ethusdt","b":"1999","B":"1","a":"2000","A":"1"}`))
	}))
	defer srv.Close()

	vc := streamingVenue()
	vc.WSURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	sink := &fakeSink{}
	a, err := NewStreamingAdapter(vc, sink, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	// A history of failed attempts must not outlive a good connection.
	bo := backoff{attempt: 5}
	err = a.runConnection(context.Background(), &bo)
	require.ErrorIs(t, err, domain.ErrWSDisconnect)

	assert.Equal(t, 0, bo.attempt)
	assert.LessOrEqual(t, bo.next(), baseReconnectDelay+baseReconnectDelay/4)
	assert.NotEmpty(t, sink.quotes())
}

func TestStreamingBadInstrumentConfig(t *testing.T) {
	vc := streamingVenue()
	vc.Instruments = []string{"ETHUSDT"}
	_, err := NewStreamingAdapter(vc, &fakeSink{}, slog.New(slog.DiscardHandler))
	assert.ErrorIs(t, err, domain.ErrNormalization)
}
