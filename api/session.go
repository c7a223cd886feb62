package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/policyhub/askhr/internal/log"
	"github.com/policyhub/askhr/internal/session"
)

// SessionHandler handles session lifecycle endpoints.
type SessionHandler struct {
	sessions *session.Manager
	logger   log.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions *session.Manager, logger log.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.create)
	mux.HandleFunc("GET /api/sessions", h.list)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.delete)
}

// SessionInfo is the JSON shape of one session.
type SessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Turns     int       `json:"turns"`
}

func sessionInfo(s *session.Session) SessionInfo {
	return SessionInfo{
		ID:        s.ID.String(),
		CreatedAt: s.CreatedAt,
		Turns:     s.TurnCount(),
	}
}

// create registers a new session with empty conversation memory.
func (h *SessionHandler) create(w http.ResponseWriter, _ *http.Request) {
	s := h.sessions.Create()
	h.logger.Info("session created", "session_id", s.ID)
	writeJSON(w, h.logger, http.StatusCreated, sessionInfo(s))
}

// list returns all live sessions, oldest first.
func (h *SessionHandler) list(w http.ResponseWriter, _ *http.Request) {
	live := h.sessions.List()
	infos := make([]SessionInfo, 0, len(live))
	for _, s := range live {
		infos = append(infos, sessionInfo(s))
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"sessions": infos,
		"total":    len(infos),
	})
}

// delete retires a session and drops its conversation memory.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "INVALID_SESSION_ID", "session id must be a UUID")
		return
	}

	if err := h.sessions.Delete(id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "SESSION_NOT_FOUND", "no such session")
			return
		}
		h.logger.Error("failed to delete session", "error", err, "session_id", id)
		writeError(w, h.logger, http.StatusInternalServerError, "INTERNAL", "failed to delete session")
		return
	}

	h.logger.Info("session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}
