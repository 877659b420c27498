// Package server provides HTTP server management and lifecycle handling for the
// medicine recommender. It wires the handlers and their dependencies, installs
// the middleware chain and handles graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/giygas/medicine-recommender/config"
	"github.com/giygas/medicine-recommender/data"
	"github.com/giygas/medicine-recommender/handlers"
	"github.com/giygas/medicine-recommender/health"
	"github.com/giygas/medicine-recommender/logging"
	"github.com/giygas/medicine-recommender/metrics"
	"github.com/giygas/medicine-recommender/pricing"
	"github.com/giygas/medicine-recommender/recommender"
	"github.com/giygas/medicine-recommender/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server
type Server struct {
	server        *http.Server
	router        chi.Router
	dataContainer *data.DataContainer
	config        *config.Config
	handler       *handlers.HTTPHandlerImpl
	rateLimiter   *RateLimiter
}

// NewServer creates a new server instance serving the dataset held by dataContainer
func NewServer(cfg *config.Config, dataContainer *data.DataContainer) *Server {
	router := chi.NewRouter()

	handler := handlers.NewHTTPHandler(
		dataContainer,
		validation.NewDataValidator(),
		recommender.NewService(dataContainer),
		pricing.NewSynthesizer(pricing.NewLockedSource(cfg.PriceSeed)),
		health.NewHealthChecker(dataContainer),
	)

	server := &Server{
		server: &http.Server{
			Handler:           router,
			Addr:              cfg.Address + ":" + cfg.Port,
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    int(cfg.MaxHeaderSize),
		},
		router:        router,
		dataContainer: dataContainer,
		config:        cfg,
		handler:       handler,
		rateLimiter:   NewRateLimiter(float64(cfg.RateLimitRate), cfg.RateLimitCapacity),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	if s.config.IsProduction() {
		s.router.Use(BlockDirectAccessMiddleware) // Put BEFORE RealIPMiddleware to see original RemoteAddr
	}
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.Logger()))
	s.router.Use(metrics.Metrics)
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.rateLimiter.Middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handler.ServeIndex)
	s.router.Post("/", s.handler.ServeIndex)
	s.router.Get("/medicines", s.handler.ServeCatalog)
	s.router.Get("/medicines/{name}/recommendations", s.handler.ServeRecommendations)
	s.router.Get("/prices", s.handler.ServePrices)
	s.router.Get("/health", s.handler.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// RateLimiter returns the limiter shared by all routes, for the scheduler's cleanup job
func (s *Server) RateLimiter() *RateLimiter {
	return s.rateLimiter
}

// Start starts the server. It blocks until the server stops and returns
// nil after a graceful shutdown.
func (s *Server) Start() error {
	// Start profiling server if in development mode
	if s.config.Env == config.EnvDevelopment {
		s.startProfilingServer()
	}

	s.dataContainer.SetServerStartTime(time.Now())

	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		// If graceful shutdown fails, force close
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

// startProfilingServer starts the pprof profiling server in development mode
func (s *Server) startProfilingServer() {
	go func() {
		logging.Info("Profiling server started at http://localhost:6060/debug/pprof/")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			logging.Warn("Profiling server failed", "error", err)
		}
	}()
}

// respondWithJSON writes a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logging.Error("Failed to encode JSON response", "error", err)
		}
	}
}
