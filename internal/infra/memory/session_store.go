package memory

import (
	"context"
	"sync"
	"time"

	"aspirant-quiz-service/internal/app"
	"aspirant-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// It hands out copies so a caller's unsaved edits never leak into the store.
// Entries idle for longer than ttl read as missing and are swept on later saves;
// a non-positive ttl keeps them until deleted.
type SessionStore struct {
	mu        sync.RWMutex
	sessions  map[string]sessionEntry
	ttl       time.Duration
	clock     func() time.Time
	nextSweep time.Time
}

type sessionEntry struct {
	session   *app.Session
	expiresAt time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]sessionEntry),
		ttl:      ttl,
		clock:    time.Now,
	}
}

func (s *SessionStore) Load(_ context.Context, id string) (*app.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[id]
	if !ok || s.expired(entry, s.clock()) {
		return nil, domain.ErrSessionNotFound
	}
	return cloneSession(entry.session), nil
}

func (s *SessionStore) Save(_ context.Context, session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	s.sweepLocked(now)

	entry := sessionEntry{session: cloneSession(session)}
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}
	s.sessions[session.ID] = entry
	return nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, id)
	if s.expired(entry, s.clock()) {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Len reports how many sessions are held, expired or not.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) expired(entry sessionEntry, now time.Time) bool {
	return !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt)
}

// sweepLocked drops expired entries at most once per ttl/2.
func (s *SessionStore) sweepLocked(now time.Time) {
	if s.ttl <= 0 || now.Before(s.nextSweep) {
		return
	}
	for id, entry := range s.sessions {
		if s.expired(entry, now) {
			delete(s.sessions, id)
		}
	}
	s.nextSweep = now.Add(s.ttl / 2)
}

func cloneSession(src *app.Session) *app.Session {
	dst := *src
	if src.Request != nil {
		req := *src.Request
		dst.Request = &req
	}
	if src.Questions != nil {
		dst.Questions = make([]domain.Question, len(src.Questions))
		for i, q := range src.Questions {
			q.Options = append([]string(nil), q.Options...)
			dst.Questions[i] = q
		}
	}
	if src.State.SelectedAnswer != nil {
		selected := *src.State.SelectedAnswer
		dst.State.SelectedAnswer = &selected
	}
	if src.Result != nil {
		result := *src.Result
		dst.Result = &result
	}
	return &dst
}
