// Package server provides the HTTP server setup and wiring.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pendergraft/codefund/internal/chains"
	"github.com/pendergraft/codefund/internal/config"
	"github.com/pendergraft/codefund/internal/observability/metrics"
	projectsDomain "github.com/pendergraft/codefund/internal/projects/domain"
	projectsTransport "github.com/pendergraft/codefund/internal/projects/transport"
)

// readinessTimeout bounds the chain probe behind /readyz.
const readinessTimeout = 5 * time.Second

// Server is the public API HTTP server
type Server struct {
	cfg    *config.Config
	reader chains.Reader
	logger *slog.Logger
	router *chi.Mux

	projectsSvc projectsTransport.Service
}

// New creates a new API server reading campaign state through reader.
func New(cfg *config.Config, reader chains.Reader, logger *slog.Logger) (*Server, error) {
	loc, err := time.LoadLocation(cfg.Display.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading display timezone %q: %w", cfg.Display.Timezone, err)
	}

	s := &Server{
		cfg:    cfg,
		reader: reader,
		logger: logger,
		router: chi.NewRouter(),
	}

	var projectsSvc projectsDomain.Service = projectsDomain.NewService(reader, loc)
	if cfg.Server.RequestTimeout > 0 {
		projectsSvc = projectsDomain.TimeoutMiddleware(time.Duration(cfg.Server.RequestTimeout) * time.Second)(projectsSvc)
	}
	s.projectsSvc = projectsDomain.LoggingMiddleware(logger)(projectsSvc)

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// MetricsHandler returns the metrics HTTP handler for separate metrics server
func (s *Server) MetricsHandler() http.Handler {
	return metrics.Handler()
}

func (s *Server) setupRoutes() {
	s.router.NotFound(handleNotFound)
	s.router.MethodNotAllowed(handleMethodNotAllowed)

	s.router.Get("/", s.handleRoot)

	// Health checks
	s.router.Get("/health", handleHealth)
	s.router.Get("/healthz", handleHealth)
	s.router.Get("/readyz", s.handleReady)

	projectsHandler := projectsTransport.NewHandler(s.projectsSvc)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/projects", projectsHandler.RegisterProjectRoutes)
		r.Route("/users", projectsHandler.RegisterUserRoutes)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the CodeFund API"})
}

// handleReady reports ready when the factory answers a campaign listing.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if _, err := s.reader.ListCampaigns(ctx); err != nil {
		s.logger.Warn("readiness probe failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"detail": "Blockchain RPC is not reachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not Found")
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
