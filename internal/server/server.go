// Package server provides the HTTP and websocket API for kotoba.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kotoba/internal/config"
	"github.com/hyperjump/kotoba/internal/metrics"
	"github.com/hyperjump/kotoba/internal/service"
	"go.uber.org/zap"
)

// Server is the HTTP server for the kotoba API.
type Server struct {
	svc     *service.Service
	config  *config.ServerConfig
	metrics *metrics.Metrics
	limits  *clientLimiters
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies. m may be nil.
func NewServer(svc *service.Service, cfg *config.ServerConfig, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		svc:     svc,
		config:  cfg,
		metrics: m,
		limits:  newClientLimiters(cfg.RateLimitPerMinute),
		logger:  logger,
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(processTime)

	r.Get("/health", s.handleHealth)
	r.Get("/api", s.handleAPIIndex)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Get("/health", s.handleHealth)
		r.Get("/techniques", s.handleTechniques)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAPIKey)
			// websocket sessions outlive the request timeout and cannot be compressed
			r.Get("/humanize/ws", s.handleWebSocket)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(s.requestTimeout()))
				r.Use(middleware.Compress(5))
				r.Post("/humanize", s.handleHumanize)
				r.Post("/humanize/batch", s.handleHumanizeBatch)
				r.Post("/analyze", s.handleAnalyze)
				r.Post("/analyze/detect-and-humanize", s.handleDetectAndHumanize)
			})
		})
	})
	return r
}

func (s *Server) requestTimeout() time.Duration {
	if s.config.RequestTimeout > 0 {
		return s.config.RequestTimeout
	}
	return 60 * time.Second
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
