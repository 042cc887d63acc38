// Package server provides the HTTP surface over the finder and the context
// aggregator.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tattva/tattva/internal/correlation"
	"github.com/tattva/tattva/internal/insight"
	"github.com/tattva/tattva/internal/metrics"
	"github.com/tattva/tattva/internal/observation"
	"github.com/tattva/tattva/internal/pkg/errors"
	"github.com/tattva/tattva/internal/pkg/logger"
	"github.com/tattva/tattva/internal/pkg/middleware"
	"github.com/tattva/tattva/internal/pkg/security"
)

// FindingService serves correlation findings.
type FindingService interface {
	FindBest(ctx context.Context) (correlation.Finding, error)
	Refresh(ctx context.Context) (correlation.Finding, error)
}

// ContextBuilder assembles context snapshots.
type ContextBuilder interface {
	BuildContext(ctx context.Context, req insight.Request) insight.Snapshot
}

// Catalog is the species side of the observation store.
type Catalog interface {
	ListSpecies(ctx context.Context) ([]observation.Species, error)
	GroupName(ctx context.Context, id int64) (string, bool, error)
	Ping(ctx context.Context) error
}

// Server is the HTTP server.
type Server struct {
	cfg        Config
	log        *logger.Logger
	httpServer *http.Server
	handler    http.Handler
	limiter    *middleware.RateLimiter

	finder  FindingService
	builder ContextBuilder
	catalog Catalog
	metrics *metrics.Metrics

	mu      sync.RWMutex
	started bool
}

// Config configures the server.
type Config struct {
	// Host is the address to bind to.
	Host string

	// Port is the HTTP port.
	Port int

	// Version is reported by the root endpoint.
	Version string

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration

	// WriteTimeout is the HTTP write timeout.
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// RateLimit is the per-client requests per second; 0 disables limiting.
	RateLimit int
}

// DefaultConfig returns sensible server defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8000,
		Version:         "dev",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Deps are the services the server exposes. Metrics is optional.
type Deps struct {
	Finder  FindingService
	Context ContextBuilder
	Catalog Catalog
	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// New creates a server. Nothing listens until Start.
func New(cfg Config, deps Deps) *Server {
	defaults := DefaultConfig()
	if cfg.Port == 0 {
		cfg.Port = defaults.Port
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}

	s := &Server{
		cfg:     cfg,
		log:     log.WithComponent("server"),
		finder:  deps.Finder,
		builder: deps.Context,
		catalog: deps.Catalog,
		metrics: deps.Metrics,
	}
	if cfg.RateLimit > 0 {
		s.limiter = middleware.NewRateLimiter(middleware.ConfigForRate(cfg.RateLimit))
	}
	s.handler = s.setupRoutes()
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Start listens and serves until Stop is called.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true
	s.httpServer = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.log.Info("Starting HTTP server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully drains in-flight requests. Services injected through Deps
// are owned by the caller and left open.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limiter != nil {
		s.limiter.Stop()
	}
	if !s.started {
		return nil
	}

	s.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.log.Error("HTTP shutdown error", "error", err)
	}

	s.started = false
	s.log.Info("Server stopped")
	return err
}

// Health reports whether the server is serving.
func (s *Server) Health() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// setupRoutes registers routes and wraps them, outermost first, with
// request IDs, logging, metrics and rate limiting.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/species", s.handleSpecies)
	mux.HandleFunc("GET /api/hypotheses", s.handleHypotheses)
	mux.HandleFunc("GET /api/context", s.handleContext)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	var handler http.Handler = mux
	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}
	if s.metrics != nil {
		handler = metrics.HTTPMiddleware(s.metrics, handler)
	}
	handler = withLogging(handler, s.log)
	return middleware.RequestID(handler)
}

// withLogging logs every request at debug and server errors at warn.
func withLogging(next http.Handler, log *logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := middleware.NewStatusRecorder(w)

		next.ServeHTTP(wrapped, r)

		l := log.WithContext(r.Context())
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"query", security.SanitizeForLog(r.URL.RawQuery),
			"status", wrapped.Status,
			"duration", time.Since(start),
		}
		if wrapped.Status >= http.StatusInternalServerError {
			l.Warn("HTTP request failed", attrs...)
			return
		}
		l.Debug("HTTP request", attrs...)
	})
}

// writeError keeps WriteError's mapping and logs server-side failures.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if code := errors.CodeOf(err); code != errors.CodeValidation && code != errors.CodeInvalidRequest {
		s.log.WithContext(r.Context()).Error("Request failed", "path", r.URL.Path, "error", err)
	}
	errors.WriteError(w, err)
}
