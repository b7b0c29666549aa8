// File path: internal/api/server.go

// Package api serves the read-only dashboard over the session catalog.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/recollect-dev/recollect/internal/adapters"
	"github.com/recollect-dev/recollect/internal/catalog"
	"github.com/recollect-dev/recollect/internal/common"
	"github.com/recollect-dev/recollect/internal/config"
)

type Server struct {
	router   chi.Router
	store    *catalog.Store
	registry *adapters.Registry
	cfg      config.Config
}

func NewServer(cfg config.Config, store *catalog.Store, registry *adapters.Registry) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		store:    store,
		registry: registry,
		cfg:      cfg,
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})
	// The dashboard never mutates the catalog.
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				w.Header().Set("Allow", "GET, HEAD")
				writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "dashboard is read-only"})
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Get("/api/runs", s.handleRuns)
	s.router.Get("/api/runs/stats", s.handleRunStats)
	s.router.Get("/api/runs/{id}/messages", s.handleRunMessages)
	s.router.Get("/api/search", s.handleSearch)
	s.router.Get("/api/status", s.handleStatus)
	s.router.Get("/api/logs", s.handleLogs)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
