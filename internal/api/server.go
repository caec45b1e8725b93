// Package api exposes the dictionary, user records and quiet-period status
// over JSON/HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shaitools891-svg/ME-Dictionary/internal/dictionary"
	"github.com/shaitools891-svg/ME-Dictionary/internal/logger"
	"github.com/shaitools891-svg/ME-Dictionary/internal/metrics"
	"github.com/shaitools891-svg/ME-Dictionary/internal/quiet"
	"github.com/shaitools891-svg/ME-Dictionary/internal/settings"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// Config wires a Server
type Config struct {
	Store    dictionary.Store
	Settings settings.Repo
	Quiet    *quiet.Service
	// Publisher is optional; without it /latest reports 404
	Publisher *quiet.Publisher
	// Health is optional and backs /healthz, e.g. a Redis ping
	Health  func(ctx context.Context) error
	Logger  logger.Logger
	Metrics *metrics.Collector
}

// Server routes API requests
type Server struct {
	store     dictionary.Store
	settings  settings.Repo
	quiet     *quiet.Service
	publisher *quiet.Publisher
	health    func(ctx context.Context) error
	log       logger.Logger
	metrics   *metrics.Collector

	mux    *http.ServeMux
	routes RouteRegistry
}

// NewServer creates a server with all routes registered
func NewServer(cfg Config) *Server {
	s := &Server{
		store:     cfg.Store,
		settings:  cfg.Settings,
		quiet:     cfg.Quiet,
		publisher: cfg.Publisher,
		health:    cfg.Health,
		log:       logger.OrDefault(cfg.Logger).WithComponent(logger.ComponentAPI).WithSource(logger.LogSourceRequest),
		metrics:   cfg.Metrics,
		mux:       http.NewServeMux(),
	}
	if s.metrics == nil {
		s.metrics = metrics.Default()
	}
	s.registerRoutes()
	return s
}

// Handler returns the instrumented router
func (s *Server) Handler() http.Handler {
	return s.instrument(s.mux)
}

// Routes lists every registered route
func (s *Server) Routes() []RouteDoc {
	return s.routes.List()
}

func (s *Server) registerRoutes() {
	m, rr := s.mux, &s.routes

	handle(m, rr, "GET /api/dictionary/search", "Search entries by word", s.searchDictionary)
	handle(m, rr, "GET /api/dictionary/{id}", "Get one entry", s.getEntry)

	handle(m, rr, "GET /api/custom-words/{userId}", "List a user's custom words", s.listCustomWords)
	handle(m, rr, "POST /api/custom-words", "Add a custom word", s.createCustomWord)
	handle(m, rr, "PUT /api/custom-words/{id}", "Edit a custom word", s.updateCustomWord)
	handle(m, rr, "DELETE /api/custom-words/{id}", "Remove a custom word", s.deleteCustomWord)

	handle(m, rr, "GET /api/prayer-settings/{userId}", "Get prayer settings, creating defaults", s.getPrayerSettings)
	handle(m, rr, "PUT /api/prayer-settings/{userId}", "Update prayer settings and the running watcher", s.updatePrayerSettings)

	handle(m, rr, "GET /api/quiet", "List users with a running watcher", s.listWatchers)
	handle(m, rr, "GET /api/quiet/{userId}", "Current quiet status", s.getQuiet)
	handle(m, rr, "GET /api/quiet/{userId}/latest", "Last published status event", s.getLatestEvent)
	handle(m, rr, "POST /api/quiet/{userId}/reload", "Re-read stored settings", s.reloadQuiet)
	handle(m, rr, "POST /api/quiet/{userId}/dismiss", "Hide the quiet indicator", s.dismissQuiet)
	handle(m, rr, "DELETE /api/quiet/{userId}", "Stop a user's watcher", s.detachQuiet)

	handle(m, rr, "GET /api/offline-packages", "List offline packages", s.listPackages)
	handle(m, rr, "PUT /api/offline-packages/{id}", "Mark a package downloaded or removed", s.updatePackage)

	handle(m, rr, "GET /api/users/{id}", "Get a user", s.getUser)
	handle(m, rr, "POST /api/users", "Create a user", s.createUser)
	handle(m, rr, "PUT /api/users/{id}", "Update a user", s.updateUser)

	handle(m, rr, "GET /healthz", "Liveness and dependency check", s.healthz)
	handle(m, rr, "GET /metrics", "Counters snapshot", s.getMetrics)
	handle(m, rr, "GET /api/routes", "This list", s.listRoutes)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.log.WarnContext(r.Context(), "Health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.GetMetrics())
}

func (s *Server) listRoutes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.routes.List())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body into v
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// fail logs an unexpected error and answers 500 with msg
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.log.ErrorContext(r.Context(), msg, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}
