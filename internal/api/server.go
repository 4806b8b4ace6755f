// SPDX-License-Identifier: MIT

// Package api provides the HTTP API server for the healthkit daemon.
package api

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/kkin1995/healthkit/internal/api/middleware"
	"github.com/kkin1995/healthkit/internal/cache"
	"github.com/kkin1995/healthkit/internal/health"
	"github.com/kkin1995/healthkit/internal/jobs"
	"github.com/kkin1995/healthkit/internal/store"
)

// Config holds the API server's own settings.
type Config struct {
	// Token enables bearer auth on mutating endpoints when non-empty.
	Token          string
	AllowedOrigins []string
	RateLimitRPM   int
	CacheTTL       time.Duration
	// TracingService enables OTel route tracing when non-empty.
	TracingService string
	Version        string
}

// ImportFunc runs one import cycle. Wired to jobs.Import by the daemon.
type ImportFunc func(ctx context.Context) (*jobs.Status, error)

// Server represents the HTTP API server.
type Server struct {
	cfg       Config
	store     *store.Store
	cache     cache.Cache
	health    *health.Manager
	importFn  ImportFunc
	importing atomic.Bool // serialize imports via atomic flag
	flight    singleflight.Group
	startTime time.Time

	mu     sync.RWMutex
	status jobs.Status
}

// NewServer creates the API server.
func NewServer(cfg Config, st *store.Store, c cache.Cache, hm *health.Manager, importFn ImportFunc) *Server {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Server{
		cfg:       cfg,
		store:     st,
		cache:     c,
		health:    hm,
		importFn:  importFn,
		startTime: time.Now(),
	}
}

// SetStatus seeds the last-import status, typically from the imports table
// at startup so restarts do not blank /api/status.
func (s *Server) SetStatus(status jobs.Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// LastImport reports the completion time and error of the most recent
// import. Used by the readiness checker.
func (s *Server) LastImport() (time.Time, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status.LastRun, s.status.Error
}

// Router builds the chi router with the canonical middleware stack.
func (s *Server) Router() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        s.cfg.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
		RateLimitRPM:          s.cfg.RateLimitRPM,
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/types", s.handleTypes)
		r.Get("/records", s.handleRecords)
		r.Get("/stats/daily", s.handleDaily)
		r.Get("/workouts", s.handleWorkouts)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(middleware.ImportRateLimit())
			r.Post("/import", s.handleImport)
		})
	})

	return r
}
