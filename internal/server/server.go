// Package server exposes a console session over HTTP with a websocket live feed.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/raphaelgruber/medilink-console/internal/feed"
	"github.com/raphaelgruber/medilink-console/internal/metrics"
	"github.com/raphaelgruber/medilink-console/internal/session"
)

// Server wraps a session with its HTTP routes and lifecycle management.
type Server struct {
	session   *session.Session
	collector *metrics.Collector
	hub       *feed.Hub
	router    chi.Router
	logger    *slog.Logger
}

// New creates a server for sess. Session events are streamed to /ws once Run
// is called. collector, when set, backs /api/stats.
func New(sess *session.Session, collector *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		session:   sess,
		collector: collector,
		logger:    logger,
	}
	s.hub = feed.NewHub(s.snapshotEvent, logger)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(s.logger))

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.hub.HandleWebSocket)
	r.Get("/api/stats", s.handleStats)

	r.Route("/api/session", func(r chi.Router) {
		r.Get("/", s.handleSession)
		r.Get("/capacity", s.handleCapacity)
		r.Post("/query", s.handleQuery)
		r.Post("/demo", s.handleDemo)
		r.Post("/identify", s.handleIdentify)
		r.Post("/share", s.handleShare)
		r.Post("/refresh", s.handleRefresh)
		r.Delete("/toasts/{id}", s.handleDismiss)
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the live feed hub.
func (s *Server) Hub() *feed.Hub {
	return s.hub
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	events, unsubscribe := s.session.Subscribe()
	defer unsubscribe()

	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	go s.hub.Run(feedCtx, events)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second, // Long for ?wait=true
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("console server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.hub.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) snapshotEvent() any {
	st := s.session.State()
	return session.Event{Kind: session.EventState, State: &st}
}
