package review

import (
	"sync"
	"time"

	"github.com/firstword/responder/internal/models"
)

// sessionStore keeps sessions in process memory. Every accessor works on
// copies; mutations go through update.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	now      func() time.Time
}

func newSessionStore(now func() time.Time) *sessionStore {
	return &sessionStore{sessions: make(map[string]*models.Session), now: now}
}

func (s *sessionStore) put(sess *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
}

func (s *sessionStore) get(id string) (*models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.UpdatedAt = s.now()
	return sess.Clone(), true
}

// update applies fn to the stored session under the lock and returns a copy
// of the result. fn must not block.
func (s *sessionStore) update(id string, fn func(sess *models.Session) error) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.UpdatedAt = s.now()
	return sess.Clone(), nil
}

func (s *sessionStore) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// evictIdle drops sessions untouched since cutoff and returns how many.
func (s *sessionStore) evictIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) && sess.Status != models.SessionGenerating {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
