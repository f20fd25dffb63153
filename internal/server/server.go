// Package server exposes the scanner's observability surface: Prometheus
// metrics, a liveness endpoint, and a small read-only status API over the
// in-memory state. The server never exposes any mutating operation.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Lugier/HFT/internal/server/handler"
	"github.com/Lugier/HFT/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port int
}

// Server is the HTTP status and metrics server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the server. metricsHandler serves
// /metrics; pass nil to omit the endpoint.
func NewServer(cfg Config, status *handler.StatusHandler, metricsHandler http.Handler, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", status.Health)
	mux.HandleFunc("GET /api/quotes", status.Quotes)
	mux.HandleFunc("GET /api/endpoints", status.Endpoints)
	mux.HandleFunc("GET /api/gas", status.Gas)
	mux.HandleFunc("GET /api/signals", status.Signals)

	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger.With(slog.String("component", "server")),
	}
}

// Start begins listening. It blocks until the server errors or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests within
// the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
