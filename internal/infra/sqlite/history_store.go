package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aspirant-quiz-service/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// HistoryStore persists quiz results and library readings in a local SQLite file.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore opens (or creates) the database at dbPath and ensures the schema.
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &HistoryStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *HistoryStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS quiz_results (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		score INTEGER NOT NULL,
		total_questions INTEGER NOT NULL,
		completed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_quiz_results_owner ON quiz_results(owner_id, completed_at DESC);

	CREATE TABLE IF NOT EXISTS readings (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_readings_owner ON readings(owner_id, created_at DESC);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *HistoryStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *HistoryStore) Close() error {
	return s.db.Close()
}

func (s *HistoryStore) Save(ctx context.Context, ownerID string, result domain.SessionResult) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quiz_results (id, owner_id, topic, difficulty, score, total_questions, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, result.Topic, string(result.Difficulty), result.Score, result.TotalQuestions, result.CompletedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: insert quiz result: %w", domain.ErrStorage, err)
	}
	return id, nil
}

func (s *HistoryStore) List(ctx context.Context, ownerID string, limit int) ([]domain.SessionResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, topic, difficulty, score, total_questions, completed_at
		FROM quiz_results WHERE owner_id = ?
		ORDER BY completed_at DESC LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query quiz results: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	results := []domain.SessionResult{}
	for rows.Next() {
		var (
			r           domain.SessionResult
			difficulty  string
			completedAt int64
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Topic, &difficulty, &r.Score, &r.TotalQuestions, &completedAt); err != nil {
			return nil, fmt.Errorf("%w: scan quiz result: %w", domain.ErrStorage, err)
		}
		r.Difficulty = domain.Difficulty(difficulty)
		r.CompletedAt = time.Unix(0, completedAt).UTC()
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate quiz results: %w", domain.ErrStorage, err)
	}
	return results, nil
}

func (s *HistoryStore) SaveReading(ctx context.Context, ownerID, topic string, at time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO readings (id, owner_id, topic, created_at) VALUES (?, ?, ?, ?)`,
		id, ownerID, topic, at.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: insert reading: %w", domain.ErrStorage, err)
	}
	return id, nil
}

func (s *HistoryStore) ListReadings(ctx context.Context, ownerID string, limit int) ([]domain.Reading, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, topic, created_at FROM readings
		WHERE owner_id = ? ORDER BY created_at DESC LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query readings: %w", domain.ErrStorage, err)
	}
	defer rows.Close()

	readings := []domain.Reading{}
	for rows.Next() {
		var (
			r         domain.Reading
			createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Topic, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan reading: %w", domain.ErrStorage, err)
		}
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate readings: %w", domain.ErrStorage, err)
	}
	return readings, nil
}
