package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"aspirant-quiz-service/internal/app"
	"aspirant-quiz-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Hour)

	if err := store.Save(ctx, app.NewSession("s1", time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Load(ctx, "s1"); err != nil {
		t.Fatalf("expected session present: %v", err)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Hour)

	session := app.NewSession("s1", time.Now())
	session.Request = &domain.QuizRequest{Topic: "Roman Empire", Difficulty: domain.DifficultyMedium}
	_ = store.Save(ctx, session)

	loaded, _ := store.Load(ctx, "s1")
	loaded.Request.Topic = "changed"
	loaded.Phase = domain.PhaseCompleted

	again, _ := store.Load(ctx, "s1")
	if again.Request.Topic != "Roman Empire" || again.Phase != domain.PhaseIdle {
		t.Fatalf("unsaved edits leaked into store: %+v", again)
	}
}

func TestSessionStoreExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Hour)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	_ = store.Save(ctx, app.NewSession("idle", now))
	now = now.Add(50 * time.Minute)
	_ = store.Save(ctx, app.NewSession("active", now))

	now = now.Add(15 * time.Minute)
	if _, err := store.Load(ctx, "idle"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected idle session expired, got %v", err)
	}
	if _, err := store.Load(ctx, "active"); err != nil {
		t.Fatalf("expected active session present: %v", err)
	}
	if err := store.Delete(ctx, "idle"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected delete of expired session to report not found, got %v", err)
	}
}

func TestSessionStoreSweepsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Hour)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		_ = store.Save(ctx, app.NewSession(fmt.Sprintf("s%d", i), now))
	}
	if store.Len() != 1000 {
		t.Fatalf("expected 1000 sessions, got %d", store.Len())
	}

	now = now.Add(2 * time.Hour)
	_ = store.Save(ctx, app.NewSession("fresh", now))
	if store.Len() != 1 {
		t.Fatalf("expected expired sessions swept, %d remain", store.Len())
	}
}

func TestSessionStoreWithoutTTLKeepsSessions(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(0)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	_ = store.Save(ctx, app.NewSession("s1", now))
	now = now.Add(48 * time.Hour)
	if _, err := store.Load(ctx, "s1"); err != nil {
		t.Fatalf("expected session kept without ttl: %v", err)
	}
}
