package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/policyhub/askhr/internal/chat"
	"github.com/policyhub/askhr/internal/log"
	"github.com/policyhub/askhr/internal/retrieval"
	"github.com/policyhub/askhr/internal/session"
)

// ChatHandler handles the chat endpoints.
//
// Endpoints:
//   - POST /api/chat        - Synchronous turn (JSON request/response)
//   - POST /api/chat/stream - Streaming turn (SSE - Server-Sent Events)
//
// Both resolve the conversation from the session registry and run one turn
// on it; the streaming variant forwards filtered answer tokens as they
// arrive.
type ChatHandler struct {
	sessions *session.Manager
	logger   log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(sessions *session.Manager, logger log.Logger) *ChatHandler {
	return &ChatHandler{sessions: sessions, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.handleChat)
	mux.HandleFunc("POST /api/chat/stream", h.handleStream)
}

// ChatRequest is the request body for both chat endpoints.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

// SourceInfo is the JSON shape of one retrieved source.
type SourceInfo struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ChatResponse is the response body of the synchronous chat endpoint.
type ChatResponse struct {
	Answer    string       `json:"answer"`
	Sources   []SourceInfo `json:"sources"`
	SessionID string       `json:"session_id"`
}

func sourceInfos(snippets []retrieval.Snippet) []SourceInfo {
	out := make([]SourceInfo, 0, len(snippets))
	for _, s := range snippets {
		out = append(out, SourceInfo{Text: s.Text, Metadata: s.Metadata})
	}
	return out
}

// resolveConversation parses and validates the request, returning the
// session and the question. A nil session means the response was already
// written.
func (h *ChatHandler) resolveConversation(w http.ResponseWriter, r *http.Request) (*session.Session, string) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return nil, ""
	}
	if req.SessionID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "MISSING_SESSION_ID", "session_id is required")
		return nil, ""
	}

	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "INVALID_SESSION_ID", "session_id must be a UUID")
		return nil, ""
	}

	sess, err := h.sessions.Get(id)
	if err != nil {
		writeError(w, h.logger, http.StatusNotFound, "SESSION_NOT_FOUND", "no such session")
		return nil, ""
	}
	return sess, req.Question
}

// handleChat runs one synchronous turn.
func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, question := h.resolveConversation(w, r)
	if sess == nil {
		return
	}

	answer, err := sess.Conversation().HandleTurn(r.Context(), question, nil)
	if err != nil {
		h.writeTurnError(w, sess.ID, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ChatResponse{
		Answer:    answer.Text,
		Sources:   sourceInfos(answer.Sources),
		SessionID: sess.ID.String(),
	})
}

// writeTurnError maps turn failures to HTTP statuses.
func (h *ChatHandler) writeTurnError(w http.ResponseWriter, sessionID uuid.UUID, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyQuestion):
		writeError(w, h.logger, http.StatusBadRequest, "EMPTY_QUESTION", "question must not be empty")
	case errors.Is(err, chat.ErrGenerationTimeout):
		h.logger.Error("turn timed out", "session_id", sessionID)
		writeError(w, h.logger, http.StatusGatewayTimeout, "GENERATION_TIMEOUT", "model did not answer in time")
	default:
		h.logger.Error("turn failed", "error", err, "session_id", sessionID)
		writeError(w, h.logger, http.StatusBadGateway, "GENERATION_FAILED", "model backend unavailable")
	}
}

// SSEChunkData is the data for "chunk" events.
type SSEChunkData struct {
	Text string `json:"text"`
}

// SSEDoneData is the data for "done" events. Response carries the full
// answer, sources included when attribution is on, so clients that saw no
// chunks still get the complete text.
type SSEDoneData struct {
	Response  string       `json:"response"`
	Sources   []SourceInfo `json:"sources"`
	SessionID string       `json:"session_id"`
}

// SSEErrorData is the data for "error" events.
type SSEErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleStream runs one turn streaming answer tokens over SSE.
//
// Event types:
//   - chunk: partial answer text {"text": "..."}
//   - done:  final response {"response": "...", "sources": [...], "session_id": "..."}
//   - error: turn failed {"code": "...", "message": "..."}
func (h *ChatHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeSSEError(w, flusher, "INVALID_REQUEST", fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.SessionID == "" {
		h.writeSSEError(w, flusher, "MISSING_SESSION_ID", "session_id is required")
		return
	}

	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		h.writeSSEError(w, flusher, "INVALID_SESSION_ID", "session_id must be a UUID")
		return
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		h.writeSSEError(w, flusher, "SESSION_NOT_FOUND", "no such session")
		return
	}

	ctx := r.Context()
	h.logger.Info("SSE stream started", "session_id", sess.ID)

	answer, err := sess.Conversation().HandleTurn(ctx, req.Question,
		func(_ context.Context, token string) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h.writeSSEChunk(w, flusher, token)
			return nil
		})
	if err != nil {
		if ctx.Err() != nil {
			h.logger.Info("client disconnected", "session_id", sess.ID)
			return
		}
		h.writeSSETurnError(w, flusher, sess.ID, err)
		return
	}

	h.writeSSEDone(w, flusher, sess.ID, answer)
	h.logger.Info("SSE stream completed",
		"session_id", sess.ID,
		"response_len", len(answer.Text))
}

// writeSSETurnError maps turn failures to SSE error events.
func (h *ChatHandler) writeSSETurnError(w http.ResponseWriter, flusher http.Flusher, sessionID uuid.UUID, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyQuestion):
		h.writeSSEError(w, flusher, "EMPTY_QUESTION", "question must not be empty")
	case errors.Is(err, chat.ErrGenerationTimeout):
		h.logger.Error("turn timed out", "session_id", sessionID)
		h.writeSSEError(w, flusher, "GENERATION_TIMEOUT", "model did not answer in time")
	default:
		h.logger.Error("turn failed", "error", err, "session_id", sessionID)
		h.writeSSEError(w, flusher, "GENERATION_FAILED", "model backend unavailable")
	}
}

// writeSSEChunk writes a chunk event to the SSE stream.
func (h *ChatHandler) writeSSEChunk(w http.ResponseWriter, flusher http.Flusher, text string) {
	data, _ := json.Marshal(SSEChunkData{Text: text})
	fmt.Fprintf(w, "event: chunk\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSEDone writes a done event to the SSE stream.
func (h *ChatHandler) writeSSEDone(w http.ResponseWriter, flusher http.Flusher, sessionID uuid.UUID, answer *chat.Answer) {
	data, _ := json.Marshal(SSEDoneData{
		Response:  answer.Text,
		Sources:   sourceInfos(answer.Sources),
		SessionID: sessionID.String(),
	})
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSEError writes an error event to the SSE stream.
func (h *ChatHandler) writeSSEError(w http.ResponseWriter, flusher http.Flusher, code, message string) {
	data, _ := json.Marshal(SSEErrorData{Code: code, Message: message})
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
	flusher.Flush()
}
