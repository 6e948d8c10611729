// Package server exposes analysis and scoring over HTTP.
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
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chazu/dfm/pkg/analysis"
	"github.com/chazu/dfm/pkg/metrics"
	"github.com/chazu/dfm/pkg/scoring"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "dfm"

// Analyzer runs one part analysis.
type Analyzer interface {
	Analyze(ctx context.Context, in analysis.Input) (*analysis.Record, error)
}

// Config wires a Server. Analyzer and Scorer are required.
type Config struct {
	Analyzer Analyzer
	Scorer   *scoring.Scorer
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	// Gatherer serves /metrics. Nil leaves the route unmounted.
	Gatherer       prometheus.Gatherer
	CacheSize      int
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	Version        string
}

// Server holds the handlers' dependencies.
type Server struct {
	analyzer Analyzer
	scorer   *scoring.Scorer
	cache    *lru.Cache[string, *analysis.Record]
	logger   *slog.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	maxBody  int64
	timeout  time.Duration
	version  string
}

// New builds a Server from cfg.
func New(cfg Config) (*Server, error) {
	if cfg.Analyzer == nil || cfg.Scorer == nil {
		return nil, errors.New("server: analyzer and scorer are required")
	}
	s := &Server{
		analyzer: cfg.Analyzer,
		scorer:   cfg.Scorer,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		gatherer: cfg.Gatherer,
		maxBody:  cfg.MaxBodyBytes,
		timeout:  cfg.RequestTimeout,
		version:  cfg.Version,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.maxBody <= 0 {
		s.maxBody = 32 << 20
	}
	if s.version == "" {
		s.version = "dev"
	}
	if cfg.CacheSize > 0 {
		c, err := lru.New[string, *analysis.Record](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("server: cache: %w", err)
		}
		s.cache = c
	}
	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		if s.timeout > 0 {
			r.Use(middleware.Timeout(s.timeout))
		}
		r.Post("/score", s.handleScore)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/analyze/score", s.handleAnalyzeScore)
	})
	return r
}

// NewHTTPServer builds an http.Server for h with sane defaults.
func NewHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := NewHTTPServer(addr, s.Handler())

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr, "version", s.version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return <-errc
}
