package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Lugier/HFT/internal/config"
	"github.com/Lugier/HFT/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	handshakeTimeout = 15 * time.Second
)

// StreamingAdapter holds a WebSocket to one venue's ticker stream and pushes
// every update into the quote book. On disconnect it marks the venue's quotes
// stale and reconnects with exponential backoff, resubscribing to the same
// symbols.
type StreamingAdapter struct {
	venue   domain.Venue
	wsURL   string
	symbols *symbolTable
	sink    QuoteSink
	logger  *slog.Logger
}

// subscribeCommand is the subscription envelope understood by the ticker
// streams this adapter targets.
type subscribeCommand struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// tickerMessage is one best-bid/ask update. Prices arrive as strings.
type tickerMessage struct {
	Seq    uint64 `json:"u"`
	Symbol string `json:"s"`
	BidPx  string `json:"b"`
	BidQty string `json:"B"`
	AskPx  string `json:"a"`
	AskQty string `json:"A"`
}

// NewStreamingAdapter builds the adapter for a streaming venue config.
func NewStreamingAdapter(vc config.VenueConfig, sink QuoteSink, logger *slog.Logger) (*StreamingAdapter, error) {
	symbols := newSymbolTable()
	for _, sym := range vc.Instruments {
		inst, err := domain.ParseInstrument(sym)
		if err != nil {
			return nil, fmt.Errorf("feed: venue %s: %w", vc.Name, err)
		}
		symbols.add(inst, vc.VenueSymbol(inst))
	}
	return &StreamingAdapter{
		venue:   vc.Venue(),
		wsURL:   vc.WSURL,
		symbols: symbols,
		sink:    sink,
		logger:  logger.With(slog.String("component", "feed"), slog.String("venue", vc.Name)),
	}, nil
}

// Venue returns the venue description.
func (a *StreamingAdapter) Venue() domain.Venue { return a.venue }

// Run connects and ingests until ctx is cancelled. Every disconnect marks the
// venue's quotes stale before the reconnect wait starts.
func (a *StreamingAdapter) Run(ctx context.Context) error {
	var bo backoff
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := a.runConnection(ctx, &bo)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		a.markAllStale()
		delay := bo.next()
		a.logger.Warn("stream disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("backoff", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// runConnection dials, subscribes, and reads until the connection breaks or
// ctx is cancelled. Always returns a non-nil error. A successful subscribe
// resets bo so the next disconnect starts from the base delay again.
func (a *StreamingAdapter) runConnection(ctx context.Context, bo *backoff) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, a.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: %s: connect: %w", a.venue.Name, err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Unblock the blocking read when ctx is cancelled, and keep the
	// connection alive with periodic pings.
	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-pingDone:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	if err := a.subscribe(conn); err != nil {
		return err
	}
	bo.reset()
	a.logger.Info("stream subscribed", slog.Int("symbols", len(a.symbols.toInst)))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: %s: read: %w", a.venue.Name, domain.ErrWSDisconnect)
		}
		a.handleMessage(message)
	}
}

func (a *StreamingAdapter) subscribe(conn *websocket.Conn) error {
	params := make([]string, 0, len(a.symbols.toInst))
	for _, local := range a.symbols.locals() {
		params = append(params, local+"@bookTicker")
	}
	cmd := subscribeCommand{Method: "SUBSCRIBE", Params: params, ID: 1}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("feed: %s: subscribe: %w", a.venue.Name, err)
	}
	return nil
}

// handleMessage normalizes one raw frame into a quote. Malformed or unknown
// messages are dropped; they must never surface as prices.
func (a *StreamingAdapter) handleMessage(raw []byte) {
	var msg tickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Symbol == "" {
		return // subscription acks and other envelopes
	}

	q, err := a.normalize(msg)
	if err != nil {
		a.logger.Debug("dropped message", slog.String("error", err.Error()))
		return
	}
	a.sink.Update(q)
}

func (a *StreamingAdapter) normalize(msg tickerMessage) (domain.Quote, error) {
	inst, ok := a.symbols.instrument(msg.Symbol)
	if !ok {
		return domain.Quote{}, fmt.Errorf("feed: unknown symbol %q: %w", msg.Symbol, domain.ErrNormalization)
	}
	bid, err := parsePrice(msg.BidPx)
	if err != nil {
		return domain.Quote{}, err
	}
	ask, err := parsePrice(msg.AskPx)
	if err != nil {
		return domain.Quote{}, err
	}
	bidSize, err := parseSize(msg.BidQty)
	if err != nil {
		return domain.Quote{}, err
	}
	askSize, err := parseSize(msg.AskQty)
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
		Seq:        msg.Seq,
		ObservedAt: time.Now(),
	}, nil
}

func (a *StreamingAdapter) markAllStale() {
	for _, inst := range a.symbols.toInst {
		a.sink.MarkStale(inst, a.venue.Name)
	}
}
