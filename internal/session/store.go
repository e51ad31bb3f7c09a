// Package session holds the per-user in-progress conversations.
package session

import (
	"sync"
	"time"

	"github.com/ivanoskov/formbot/internal/model"
)

// Store maps user IDs to their in-progress session. It is safe for concurrent
// use across users; several calls for the same user are not atomic as a group.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*model.Session
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*model.Session),
		now:      time.Now,
	}
}

// Create registers a fresh session at the entry state, silently replacing any
// unfinished one for the same user.
func (s *Store) Create(userID int64) model.Session {
	sess := model.NewSession(userID, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = &sess
	return sess.Clone()
}

// Get returns a copy of the user's session.
func (s *Store) Get(userID int64) (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return model.Session{}, false
	}
	return sess.Clone(), true
}

// Update applies fn to the user's session under the store lock and returns the
// updated copy. It does nothing and returns false if no session exists.
func (s *Store) Update(userID int64, fn func(*model.Session)) (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return model.Session{}, false
	}
	fn(sess)
	sess.UpdatedAt = s.now()
	return sess.Clone(), true
}

// Destroy removes the user's session. It reports whether one existed.
func (s *Store) Destroy(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[userID]
	delete(s.sessions, userID)
	return ok
}

// DestroySession removes the user's session only if it is still the one
// identified by sessionID, so a session started meanwhile survives.
func (s *Store) DestroySession(userID int64, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok || sess.ID != sessionID {
		return false
	}
	delete(s.sessions, userID)
	return true
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
