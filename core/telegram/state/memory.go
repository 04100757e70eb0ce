package state

import (
	"sync"
	"time"
)

// Store is an in-memory, concurrency-safe session container keyed by user id.
type Store[T any] struct {
	mu       sync.RWMutex
	sessions map[int64]*Session[T]
	now      func() time.Time
}

// NewStore returns an empty Store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{
		sessions: make(map[int64]*Session[T]),
		now:      time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (s *Store[T]) WithClock(now func() time.Time) *Store[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Get returns a copy of the user's session.
func (s *Store[T]) Get(userID int64) (Session[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[userID]; ok {
		return *sess, true
	}
	return Session[T]{State: StateIdle}, false
}

// Put creates or replaces the user's session.
func (s *Store[T]) Put(userID int64, st State, data T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = &Session[T]{State: st, Data: data, Touched: s.now()}
}

// Update runs fn on the user's session under the write lock. It returns false
// without calling fn when no session exists; otherwise it returns fn's result.
// Touched is refreshed only when fn reports a change.
func (s *Store[T]) Update(userID int64, fn func(*Session[T]) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return false
	}
	if !fn(sess) {
		return false
	}
	sess.Touched = s.now()
	return true
}

// Delete removes the user's session.
func (s *Store[T]) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// State returns the user's current state, or StateIdle without a session.
func (s *Store[T]) State(userID int64) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess.State
	}
	return StateIdle
}

// InProgress reports whether the user has a session in a non-idle state.
func (s *Store[T]) InProgress(userID int64) bool {
	return s.State(userID) != StateIdle
}

// Len returns the number of live sessions.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions untouched for longer than maxIdle. A non-positive
// maxIdle disables eviction.
func (s *Store[T]) Sweep(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for id, sess := range s.sessions {
		if sess.Touched.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
