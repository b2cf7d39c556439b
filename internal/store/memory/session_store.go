// Package memory provides the in-process session store backing the history
// and analytics surfaces.
package memory

import (
	"fmt"
	"sync"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

// SessionStore implements domain.SessionStore. Sessions are held in insertion
// order; every read hands out deep copies taken under the lock, so observers
// never see a session mid-mutation.
type SessionStore struct {
	mu       sync.RWMutex
	sessions []domain.AnalysisSession
	index    map[string]int // session ID -> position in sessions
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{index: make(map[string]int)}
}

// Append adds a new session. The ID must not already exist.
func (s *SessionStore) Append(session domain.AnalysisSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[session.ID]; exists {
		return fmt.Errorf("store: session %s already exists", session.ID)
	}
	s.index[session.ID] = len(s.sessions)
	s.sessions = append(s.sessions, session.Clone())
	return nil
}

// Update replaces the stored session with the given snapshot.
func (s *SessionStore) Update(session domain.AnalysisSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.index[session.ID]
	if !exists {
		return fmt.Errorf("store: session %s: %w", session.ID, domain.ErrNotFound)
	}
	s.sessions[pos] = session.Clone()
	return nil
}

// Get returns a deep copy of one session by ID.
func (s *SessionStore) Get(id string) (domain.AnalysisSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, exists := s.index[id]
	if !exists {
		return domain.AnalysisSession{}, false
	}
	return s.sessions[pos].Clone(), true
}

// All returns deep copies of every session in insertion order.
func (s *SessionStore) All() []domain.AnalysisSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AnalysisSession, 0, len(s.sessions))
	for i := range s.sessions {
		out = append(out, s.sessions[i].Clone())
	}
	return out
}

// Filter returns deep copies of the sessions matching every set criterion,
// in insertion order.
func (s *SessionStore) Filter(f domain.SessionFilter) []domain.AnalysisSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AnalysisSession
	for i := range s.sessions {
		if f.Matches(&s.sessions[i]) {
			out = append(out, s.sessions[i].Clone())
		}
	}
	return out
}

// Len reports the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
