// Package server exposes the model catalog over HTTP. The API mirrors the
// wire shapes the existing frontend consumes, plus health and metrics
// endpoints for operators.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mm-go/internal/config"
	"mm-go/internal/mm"
)

// Server is the HTTP front of the catalog service.
type Server struct {
	httpServer      *http.Server
	logger          mm.Logger
	shutdownTimeout time.Duration
}

// NewRouter builds the full route table over the given catalog.
func NewRouter(catalog Catalog, logger mm.Logger) chi.Router {
	h := NewHandler(catalog, logger)

	router := chi.NewRouter()
	router.Use(RequestLogger(logger))
	router.Use(MetricsMiddleware())

	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/scan", h.Scan)
		r.Get("/list", h.List)
		r.Post("/update-civitai", h.UpdateCivitai)
		r.Post("/calculate-full-hash", h.CalculateFullHash)
		r.Get("/settings", h.GetSettings)
		r.Post("/settings", h.SaveSettings)
	})

	return router
}

// NewServer wires the router, middleware and handlers and returns a
// server ready to Run.
func NewServer(cfg config.ServerConfig, catalog Catalog, logger mm.Logger) *Server {
	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      NewRouter(catalog, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:      srv,
		logger:          logger,
		shutdownTimeout: time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second,
	}
}

// Run serves until SIGINT/SIGTERM or a listener failure, then drains
// in-flight requests within the configured shutdown timeout.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}
