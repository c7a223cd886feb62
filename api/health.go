package api

import (
	"net/http"

	"github.com/policyhub/askhr/internal/log"
	"github.com/policyhub/askhr/internal/session"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	sessions *session.Manager
	logger   log.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(sessions *session.Manager, logger log.Logger) *HealthHandler {
	return &HealthHandler{sessions: sessions, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness is a liveness probe endpoint.
// Returns 200 OK if the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness is a readiness probe endpoint.
// Returns 200 OK once the session registry is wired; the retrieval and
// generation backends are reached lazily on the first turn, so they are
// not probed here.
func (h *HealthHandler) readiness(w http.ResponseWriter, _ *http.Request) {
	if h.sessions == nil {
		h.logger.Error("readiness check failed: session manager not configured")
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
