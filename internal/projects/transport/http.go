// Package transport provides HTTP handlers for the projects domain.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pendergraft/codefund/internal/projects/domain"
)

// Service defines the project service interface for HTTP transport.
type Service interface {
	List(ctx context.Context) ([]domain.ProjectSummary, error)
	Get(ctx context.Context, address string) (*domain.ProjectDetail, error)
	CreatedBy(ctx context.Context, user string) ([]domain.ProjectSummary, error)
	ContributedBy(ctx context.Context, user string) ([]domain.ProjectSummary, error)
}

// Handler handles HTTP requests for projects.
type Handler struct {
	svc Service
}

// NewHandler creates a new projects HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterProjectRoutes registers the project routes, mounted at /api/v1/projects.
func (h *Handler) RegisterProjectRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{address}", h.handleGet)
}

// RegisterUserRoutes registers the per-user dashboard routes, mounted at /api/v1/users.
func (h *Handler) RegisterUserRoutes(r chi.Router) {
	r.Get("/{address}/created", h.handleCreated)
	r.Get("/{address}/contributed", h.handleContributed)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromSummaries(projects))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Get(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromDetail(detail))
}

func (h *Handler) handleCreated(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.CreatedBy(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromSummaries(projects))
}

func (h *Handler) handleContributed(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.ContributedBy(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromSummaries(projects))
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "Timed out reading campaign data from the blockchain")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Project not found or blockchain read failed")
	case errors.Is(err, domain.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, "Invalid address")
	default:
		writeError(w, http.StatusInternalServerError, "Could not read campaign data from the blockchain")
	}
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
