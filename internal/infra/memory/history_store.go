package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"aspirant-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// HistoryStore keeps quiz results and library readings in process memory.
// It implements both app.HistoryStore and app.ReadingStore.
type HistoryStore struct {
	mu       sync.RWMutex
	results  map[string][]domain.SessionResult
	readings map[string][]domain.Reading
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		results:  make(map[string][]domain.SessionResult),
		readings: make(map[string][]domain.Reading),
	}
}

func (s *HistoryStore) Save(_ context.Context, ownerID string, result domain.SessionResult) (string, error) {
	result.ID = uuid.NewString()
	result.OwnerID = ownerID

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[ownerID] = append(s.results[ownerID], result)
	return result.ID, nil
}

func (s *HistoryStore) List(_ context.Context, ownerID string, limit int) ([]domain.SessionResult, error) {
	s.mu.RLock()
	out := append([]domain.SessionResult(nil), s.results[ownerID]...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *HistoryStore) SaveReading(_ context.Context, ownerID, topic string, at time.Time) (string, error) {
	reading := domain.Reading{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Topic:     topic,
		CreatedAt: at,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings[ownerID] = append(s.readings[ownerID], reading)
	return reading.ID, nil
}

func (s *HistoryStore) ListReadings(_ context.Context, ownerID string, limit int) ([]domain.Reading, error) {
	s.mu.RLock()
	out := append([]domain.Reading(nil), s.readings[ownerID]...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
