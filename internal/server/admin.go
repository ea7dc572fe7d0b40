package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pendergraft/codefund/internal/middleware/logging"
	"github.com/pendergraft/codefund/internal/observability/metrics"
	verificationTransport "github.com/pendergraft/codefund/internal/verification/transport"
)

// AgentService is what the agent admin server needs from the verification service.
type AgentService interface {
	verificationTransport.Service
	Ready(now time.Time) bool
}

// NewAdmin builds the agent's admin handler: probes, metrics and the
// approval ledger listing.
func NewAdmin(svc AgentService, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)

	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleMethodNotAllowed)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !svc.Ready(time.Now()) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"detail": "No successful cycle within three intervals",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", verificationTransport.NewHandler(svc).RegisterRoutes)
	return r
}
