package postgres

import (
	"context"
	"fmt"
	"time"

	"aspirant-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
)

// HistoryStore persists quiz results and library readings in Postgres.
// Tables come from the migrations package.
type HistoryStore struct {
	pool *pgxpool.Pool
}

func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

func (s *HistoryStore) Save(ctx context.Context, ownerID string, result domain.SessionResult) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_results (id, owner_id, topic, difficulty, score, total_questions, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, ownerID, result.Topic, string(result.Difficulty), result.Score, result.TotalQuestions, result.CompletedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: insert quiz result: %w", domain.ErrStorage, err)
	}
	return id, nil
}

func (s *HistoryStore) List(ctx context.Context, ownerID string, limit int) ([]domain.SessionResult, error) {
	query := `SELECT id, owner_id, topic, difficulty, score, total_questions, completed_at
		FROM quiz_results WHERE owner_id = $1 ORDER BY completed_at DESC`
	args := []interface{}{ownerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query quiz results: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	results := []domain.SessionResult{}
	for rows.Next() {
		var (
			r          domain.SessionResult
			difficulty string
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Topic, &difficulty, &r.Score, &r.TotalQuestions, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("%w: scan quiz result: %w", domain.ErrStorage, err)
		}
		r.Difficulty = domain.Difficulty(difficulty)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate quiz results: %w", domain.ErrStorage, err)
	}
	return results, nil
}

func (s *HistoryStore) SaveReading(ctx context.Context, ownerID, topic string, at time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO readings (id, owner_id, topic, created_at) VALUES ($1, $2, $3, $4)`,
		id, ownerID, topic, at.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: insert reading: %w", domain.ErrStorage, err)
	}
	return id, nil
}

func (s *HistoryStore) ListReadings(ctx context.Context, ownerID string, limit int) ([]domain.Reading, error) {
	query := `SELECT id, owner_id, topic, created_at FROM readings WHERE owner_id = $1 ORDER BY created_at DESC`
	args := []interface{}{ownerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query readings: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	readings := []domain.Reading{}
	for rows.Next() {
		var r domain.Reading
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Topic, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan reading: %w", domain.ErrStorage, err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate readings: %w", domain.ErrStorage, err)
	}
	return readings, nil
}
