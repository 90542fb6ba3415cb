// Package api serves a catalog backend over the catalog HTTP API, so the
// offline mirror can stand in for a live catalog.
package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/wesm/catalogview/internal/catalog"
	"github.com/wesm/catalogview/internal/config"
	"github.com/wesm/catalogview/internal/scheduler"
)

// BasePath is where the catalog routes are mounted.
const BasePath = "/api/catalog/v1"

// SyncScheduler defines the scheduler operations the API needs.
type SyncScheduler interface {
	IsScheduled() bool
	TriggerSync() error
	Status() SyncStatus
	IsRunning() bool
}

// SyncStatus is an alias for scheduler.Status.
type SyncStatus = scheduler.Status

// Server represents the HTTP API server.
type Server struct {
	cfg         *config.Config
	backend     catalog.Backend
	scheduler   SyncScheduler
	logger      *slog.Logger
	router      chi.Router
	server      *http.Server
	rateLimiter *RateLimiter
	drafts      *draftOrders
}

// NewServer creates a new API server. sched may be nil.
func NewServer(cfg *config.Config, backend catalog.Backend, sched SyncScheduler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		backend:   backend,
		scheduler: sched,
		logger:    logger,
		drafts:    newDraftOrders(),
	}
	s.router = s.setupRouter()
	return s
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(s.loggerMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	if rps := s.cfg.Server.RateLimitRPS; rps > 0 {
		s.rateLimiter = NewRateLimiter(rps, int(rps*2)+1)
		r.Use(RateLimitMiddleware(s.rateLimiter))
	}

	// Health check (no auth required)
	r.Get("/health", s.handleHealth)

	r.Route(BasePath, func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/openapi.json", s.handleOpenAPI)

		r.Get("/orders", s.handleListOrders)
		r.Post("/orders", s.handleCreateOrder)
		r.Get("/orders/{id}", s.handleGetOrder)
		r.Post("/orders/{id}/order_items", s.handleAddOrderItem)
		r.Post("/orders/{id}/submit_order", s.handleSubmitOrder)
		r.Patch("/orders/{id}/cancel", s.handleCancelOrder)
		r.Get("/order_items", s.handleListOrderItems)

		r.Get("/portfolios", s.handleListPortfolios)
		r.Delete("/portfolios/{id}", s.handleRemovePortfolio)
		r.Get("/portfolio_items", s.handleListPortfolioItems)
		r.Get("/platforms", s.handleListPlatforms)

		r.Get("/scheduler/status", s.handleSchedulerStatus)
		r.Post("/sync", s.handleTriggerSync)
	})

	return r
}

// Start begins listening for HTTP requests.
// Returns an error if the security posture is invalid.
func (s *Server) Start() error {
	if err := s.cfg.Server.ValidateSecure(); err != nil {
		return err
	}

	bindAddr := s.cfg.Server.BindAddr
	if bindAddr == "" {
		bindAddr = "127.0.0.1"
	}
	addr := net.JoinHostPort(bindAddr, strconv.Itoa(s.cfg.Server.Port))

	if s.cfg.Server.Token == "" {
		s.logger.Warn("API server running without authentication; set [server] token in config.toml")
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr, "base_path", BasePath)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
	if s.server == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// loggerMiddleware logs HTTP requests.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// authMiddleware validates the bearer token.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.cfg.Server.Token
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		got := r.Header.Get("Authorization")
		if got == "" {
			got = r.Header.Get("X-API-Key")
		}
		got = strings.TrimPrefix(got, "Bearer ")

		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			s.logger.Warn("unauthorized API request",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			writeError(w, http.StatusUnauthorized, "Invalid or missing token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
