package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/store"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]types.Session
	order    []string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]types.Session)}
}

func (s *SessionStore) OpenSession(_ context.Context, sess types.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		s.order = append(s.order, sess.ID)
	}
	if sess.Status == "" {
		sess.Status = types.SessionActive
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *SessionStore) CloseSession(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return store.ErrNotFound
	}
	at = at.UTC()
	sess.ClosedAt = &at
	sess.Status = types.SessionClosed
	s.sessions[sessionID] = sess
	return nil
}

func (s *SessionStore) GetSession(_ context.Context, sessionID string) (types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return types.Session{}, store.ErrNotFound
	}
	return sess, nil
}

// Sessions returns every session in the order it was opened.  Test-only
// helper.
func (s *SessionStore) Sessions() []types.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id])
	}
	return out
}
