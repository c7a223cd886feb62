// Package session tracks live conversations on the transport side.
//
// A session binds an ID to one [chat.Conversation]. The [Manager] is the
// only registry; the chat core never looks sessions up itself — handlers
// resolve the conversation here and pass it down.
//
// Key operations:
//
//   - Lifecycle: [Manager.Create], [Manager.Get], [Manager.Delete], [Manager.List]
//
// # Concurrency
//
// Manager is safe for concurrent use. Turn-level serialization lives in
// chat.Conversation; the Manager only guards the registry map.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/policyhub/askhr/internal/chat"
)

// ErrSessionNotFound indicates the requested session does not exist.
// Check with errors.Is:
//
//	sess, err := mgr.Get(id)
//	if errors.Is(err, session.ErrSessionNotFound) {
//	    // expired or never created
//	}
var ErrSessionNotFound = errors.New("session not found")

// Session is one live conversation and its bookkeeping metadata.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	conv *chat.Conversation
}

// Conversation returns the conversation bound to this session.
func (s *Session) Conversation() *chat.Conversation {
	return s.conv
}

// TurnCount reports the number of completed turns so far.
func (s *Session) TurnCount() int {
	return s.conv.Memory().Len()
}

// Manager is an in-memory registry of sessions keyed by UUID.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*Session
	assistant *chat.Assistant
	now       func() time.Time
}

// NewManager creates a Manager that spawns conversations from assistant.
func NewManager(assistant *chat.Assistant) *Manager {
	return &Manager{
		sessions:  make(map[uuid.UUID]*Session),
		assistant: assistant,
		now:       time.Now,
	}
}

// Create registers a new session with a fresh conversation and empty memory.
func (m *Manager) Create() *Session {
	s := &Session{
		ID:        uuid.New(),
		CreatedAt: m.now(),
		conv:      m.assistant.NewConversation(),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session for id, or ErrSessionNotFound.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete retires the session for id. The conversation and its memory are
// dropped; deleting an unknown id returns ErrSessionNotFound.
func (m *Manager) Delete(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// List returns all live sessions ordered by creation time, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
