// Package transport provides the agent's admin HTTP handlers.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pendergraft/codefund/internal/verification/domain"
)

// Service defines the verification service interface for HTTP transport.
type Service interface {
	ListApprovals(ctx context.Context, filter domain.ApprovalFilter, limit int) ([]domain.Approval, error)
	Status() domain.Status
}

// Handler handles admin HTTP requests for the agent.
type Handler struct {
	svc Service
}

// NewHandler creates a new verification HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the admin routes, mounted at /api/v1.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/approvals", h.handleListApprovals)
	r.Get("/agent/status", h.handleStatus)
}

func (h *Handler) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ApprovalFilter{
		Status:   q.Get("status"),
		Campaign: q.Get("campaign"),
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	approvals, err := h.svc.ListApprovals(r.Context(), filter, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to list approvals")
		return
	}
	writeJSON(w, http.StatusOK, FromApprovals(approvals))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FromStatus(h.svc.Status()))
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
