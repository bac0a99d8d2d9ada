// Package history maintains the bounded in-memory session windows used
// to build completion requests.
package history

import (
	"sync"

	"github.com/selimdilsadercan/iklim-chat-api/internal/model"
)

// DefaultLimit is the maximum number of turns kept per session window.
// The system prompt lives outside the window and is not counted.
const DefaultLimit = 64

type sessionKey struct {
	userID    string
	personaID string
}

// SessionStore holds one bounded window per (user, persona) session.
// Windows are created lazily on first append and dropped on Reset.
type SessionStore struct {
	mu      sync.Mutex
	limit   int
	windows map[sessionKey][]model.ChatEntry
}

// NewSessionStore creates a store with the given per-session turn limit.
// A limit <= 0 falls back to DefaultLimit.
func NewSessionStore(limit int) *SessionStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &SessionStore{
		limit:   limit,
		windows: make(map[sessionKey][]model.ChatEntry),
	}
}

// Reset discards the session window for the given user/persona pair.
func (s *SessionStore) Reset(userID, personaID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, sessionKey{userID, personaID})
}

// Append adds one turn to the session window, evicting the oldest turn
// when the window is full. Eviction is strict FIFO.
func (s *SessionStore) Append(userID, personaID string, role model.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{userID, personaID}
	w := s.windows[key]
	w = append(w, model.ChatEntry{Role: role, Content: content})
	if len(w) > s.limit {
		w = w[len(w)-s.limit:]
	}
	s.windows[key] = w
}

// Window returns the system prompt entry followed by a copy of the
// session's turns, oldest first. The returned slice is safe to retain.
func (s *SessionStore) Window(userID, personaID, systemPrompt string) []model.ChatEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.windows[sessionKey{userID, personaID}]
	out := make([]model.ChatEntry, 0, len(w)+1)
	out = append(out, model.ChatEntry{Role: model.RoleSystem, Content: systemPrompt})
	out = append(out, w...)
	return out
}

// Len returns the number of turns in the session window, excluding the
// system entry.
func (s *SessionStore) Len(userID, personaID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows[sessionKey{userID, personaID}])
}
