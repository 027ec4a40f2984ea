package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"aspirant-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// InsightGenerator answers the informational pages.
type InsightGenerator interface {
	GenerateCurrentAffairs(ctx context.Context, month string, year int) ([]domain.CurrentAffair, error)
	GenerateExamResult(ctx context.Context, examName string) (domain.ExamResult, error)
	GenerateExplanation(ctx context.Context, topic string) (string, error)
}

// InsightCache returns the cached payload for key, calling load on a miss.
type InsightCache interface {
	Fetch(ctx context.Context, key string, load func(ctx context.Context) ([]byte, error)) ([]byte, error)
}

// ReadingStore records library lookups per owner.
type ReadingStore interface {
	SaveReading(ctx context.Context, ownerID, topic string, at time.Time) (string, error)
	// ListReadings returns readings newest first; limit <= 0 means all.
	ListReadings(ctx context.Context, ownerID string, limit int) ([]domain.Reading, error)
}

const (
	RecentReadingsLimit = 15
	minExamNameLength   = 5
	minYear             = 2000
	maxYear             = 2100
)

var months = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// InsightService serves current affairs, exam results and library explanations.
type InsightService struct {
	generator InsightGenerator
	cache     InsightCache
	readings  ReadingStore
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewInsightService(generator InsightGenerator, cache InsightCache, readings ReadingStore, timeout time.Duration, logger *zap.Logger) *InsightService {
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InsightService{
		generator: generator,
		cache:     cache,
		readings:  readings,
		timeout:   timeout,
		logger:    logger,
		now:       time.Now,
	}
}

// NormalizeMonth accepts an English month name in any case.
func NormalizeMonth(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, m := range months {
		if strings.EqualFold(m, raw) {
			return m, nil
		}
	}
	return "", domain.NewValidationError("month", "must be an English month name")
}

// CurrentAffairs returns the top summaries for a month.
func (s *InsightService) CurrentAffairs(ctx context.Context, month string, year int) (domain.CurrentAffairsDigest, error) {
	month, err := NormalizeMonth(month)
	if err != nil {
		return domain.CurrentAffairsDigest{}, err
	}
	if year < minYear || year > maxYear {
		return domain.CurrentAffairsDigest{}, domain.NewValidationError("year", fmt.Sprintf("must be between %d and %d", minYear, maxYear))
	}

	key := fmt.Sprintf("current-affairs:%d-%s", year, strings.ToLower(month))
	var digest domain.CurrentAffairsDigest
	err = s.cached(ctx, key, &digest, func(ctx context.Context) (any, error) {
		summaries, err := s.generator.GenerateCurrentAffairs(ctx, month, year)
		if err != nil {
			return nil, err
		}
		return domain.CurrentAffairsDigest{Month: month, Year: year, Summaries: summaries}, nil
	})
	return digest, err
}

// ExamResult returns the result status and cut-off marks of an exam.
func (s *InsightService) ExamResult(ctx context.Context, examName string) (domain.ExamResult, error) {
	examName = strings.TrimSpace(examName)
	if utf8.RuneCountInString(examName) < minExamNameLength {
		return domain.ExamResult{}, domain.NewValidationError("exam", fmt.Sprintf("must be at least %d characters long", minExamNameLength))
	}

	key := "exam-result:" + strings.ToLower(examName)
	var result domain.ExamResult
	err := s.cached(ctx, key, &result, func(ctx context.Context) (any, error) {
		r, err := s.generator.GenerateExamResult(ctx, examName)
		if err != nil {
			return nil, err
		}
		r.ExamName = examName
		return r, nil
	})
	return result, err
}

// Explain generates a study note and records the lookup for signed-in users.
func (s *InsightService) Explain(ctx context.Context, who *domain.Identity, topic string) (domain.Explanation, error) {
	topic = strings.TrimSpace(topic)
	if utf8.RuneCountInString(topic) < domain.MinTopicLength {
		return domain.Explanation{}, domain.NewValidationError("topic", fmt.Sprintf("must be at least %d characters long", domain.MinTopicLength))
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	text, err := s.generator.GenerateExplanation(genCtx, topic)
	cancel()
	if err != nil {
		return domain.Explanation{}, wrapGeneration(err)
	}

	if who != nil && who.UID != "" {
		if _, err := s.readings.SaveReading(ctx, who.UID, topic, s.now()); err != nil {
			s.logger.Warn("save reading", zap.String("owner", who.UID), zap.Error(err))
		}
	}
	return domain.Explanation{Topic: topic, Explanation: text}, nil
}

// Readings lists the most recent library lookups; empty when signed out or on storage failure.
func (s *InsightService) Readings(ctx context.Context, who *domain.Identity) []domain.Reading {
	if who == nil || who.UID == "" {
		return []domain.Reading{}
	}
	readings, err := s.readings.ListReadings(ctx, who.UID, RecentReadingsLimit)
	if err != nil {
		s.logger.Error("list readings", zap.String("owner", who.UID), zap.Error(err))
		return []domain.Reading{}
	}
	if readings == nil {
		readings = []domain.Reading{}
	}
	return readings
}

func (s *InsightService) cached(ctx context.Context, key string, out any, load func(ctx context.Context) (any, error)) error {
	raw, err := s.cache.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		genCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		v, err := load(genCtx)
		if err != nil {
			return nil, wrapGeneration(err)
		}
		return json.Marshal(v)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

func wrapGeneration(err error) error {
	if errors.Is(err, domain.ErrGeneration) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrGeneration, err)
}
