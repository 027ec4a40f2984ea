package app

import (
	"context"

	"aspirant-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// HistoryPage is a user's past results. Unavailable is set when storage failed
// and the empty list is a fallback rather than the truth.
type HistoryPage struct {
	Records     []HistoryRecord `json:"records"`
	Unavailable bool            `json:"unavailable,omitempty"`
}

// HistoryRecord is a stored result with its derived percentage.
type HistoryRecord struct {
	domain.SessionResult
	Percentage int `json:"percentage"`
}

// HistoryService reads past results for the signed-in user.
type HistoryService struct {
	store  HistoryStore
	limit  int
	logger *zap.Logger
}

// NewHistoryService lists at most limit records; limit <= 0 lists all.
func NewHistoryService(store HistoryStore, limit int, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{store: store, limit: limit, logger: logger}
}

// List never fails: signed-out users and storage errors both yield an empty page.
func (h *HistoryService) List(ctx context.Context, who *domain.Identity) HistoryPage {
	page := HistoryPage{Records: []HistoryRecord{}}
	if who == nil || who.UID == "" {
		return page
	}

	results, err := h.store.List(ctx, who.UID, h.limit)
	if err != nil {
		h.logger.Error("list quiz history", zap.String("owner", who.UID), zap.Error(err))
		page.Unavailable = true
		return page
	}
	for _, r := range results {
		page.Records = append(page.Records, HistoryRecord{SessionResult: r, Percentage: r.Percentage()})
	}
	return page
}
