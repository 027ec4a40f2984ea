package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"aspirant-quiz-service/internal/app"
	"aspirant-quiz-service/internal/domain"
	"aspirant-quiz-service/internal/infra/memory"
)

type fakeGenerator struct {
	mu       sync.Mutex
	set      *domain.QuestionSet
	err      error
	requests []domain.QuizRequest
	started  chan struct{}
	release  chan struct{}
}

func (g *fakeGenerator) GenerateQuiz(ctx context.Context, req domain.QuizRequest, count int) (domain.QuestionSet, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	started, release := g.started, g.release
	set, err := g.set, g.err
	g.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return domain.QuestionSet{}, err
	}
	if set != nil {
		return *set, nil
	}
	return questionSet(count), nil
}

func (g *fakeGenerator) calls() []domain.QuizRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.QuizRequest(nil), g.requests...)
}

type recordingHistory struct {
	mu    sync.Mutex
	saved []domain.SessionResult
	err   error
}

func (h *recordingHistory) Save(_ context.Context, ownerID string, result domain.SessionResult) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return "", h.err
	}
	h.saved = append(h.saved, result)
	return "rec-1", nil
}

func (h *recordingHistory) List(context.Context, string, int) ([]domain.SessionResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.SessionResult(nil), h.saved...), nil
}

// questionSet returns count questions whose correct option is i % 4.
func questionSet(count int) domain.QuestionSet {
	set := domain.QuestionSet{}
	for i := 0; i < count; i++ {
		set.Questions = append(set.Questions, domain.Question{
			Prompt:             "Question?",
			Options:            []string{"A", "B", "C", "D"},
			CorrectAnswerIndex: i % 4,
			Explanation:        "Because.",
		})
	}
	return set
}

var (
	alice   = &domain.Identity{UID: "u1", DisplayName: "Alice"}
	fixedAt = time.Date(2024, 8, 1, 9, 30, 0, 0, time.UTC)
	roman   = domain.QuizRequest{Topic: "Roman Empire", Difficulty: domain.DifficultyMedium}
)

func newTestService(gen app.QuizGenerator, history app.HistoryStore) *app.QuizService {
	return app.NewQuizService(memory.NewSessionStore(time.Hour), gen, history, app.QuizConfig{}, nil).
		WithClock(func() time.Time { return fixedAt })
}

func newSession(t *testing.T, service *app.QuizService) string {
	t.Helper()
	view, err := service.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return view.ID
}

// answerAll plays the whole set, answering correctly where pattern says so.
func answerAll(t *testing.T, service *app.QuizService, id string, who *domain.Identity, pattern []bool) (app.SessionView, []app.Notice) {
	t.Helper()
	ctx := context.Background()
	var (
		view    app.SessionView
		notices []app.Notice
		err     error
	)
	for i, correct := range pattern {
		option := i % 4
		if !correct {
			option = (i + 1) % 4
		}
		if _, err = service.SelectOption(ctx, id, option); err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		if view, notices, err = service.SubmitAnswer(ctx, id, who); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if i < len(pattern)-1 {
			if view, err = service.Advance(ctx, id); err != nil {
				t.Fatalf("advance %d: %v", i, err)
			}
		}
	}
	return view, notices
}

func TestQuizScenario(t *testing.T) {
	ctx := context.Background()
	history := &recordingHistory{}
	service := newTestService(&fakeGenerator{}, history)
	id := newSession(t, service)

	view, err := service.Start(ctx, id, alice, roman)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.Phase != domain.PhaseAnswering || view.TotalQuestions != 5 || view.Question.Number != 1 {
		t.Fatalf("unexpected view after start: %+v", view)
	}

	view, notices := answerAll(t, service, id, alice, []bool{true, false, true, false, true})
	if view.Phase != domain.PhaseCompleted || view.Summary == nil {
		t.Fatalf("expected completed view with summary, got %+v", view)
	}
	summary := view.Summary
	if summary.Result.Score != 3 || summary.Result.TotalQuestions != 5 || summary.Feedback.Percentage != 60 {
		t.Fatalf("unexpected result: %+v", summary)
	}
	if summary.Feedback.Tier != domain.TierLearner {
		t.Fatalf("expected Learner tier, got %s", summary.Feedback.Tier)
	}
	if len(summary.Actions) != 2 {
		t.Fatalf("expected retry and new topic actions, got %v", summary.Actions)
	}

	if len(notices) != 1 || notices[0].Title != "Quiz Saved" || notices[0].RecordID != "rec-1" {
		t.Fatalf("expected saved notice, got %+v", notices)
	}
	if len(history.saved) != 1 {
		t.Fatalf("expected one saved result, got %d", len(history.saved))
	}
	saved := history.saved[0]
	if saved.OwnerID != "u1" || saved.Topic != "Roman Empire" || saved.Difficulty != domain.DifficultyMedium || saved.Score != 3 || !saved.CompletedAt.Equal(fixedAt) {
		t.Fatalf("unexpected saved result: %+v", saved)
	}
}

func TestStartValidatesRequest(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{}
	service := newTestService(gen, &recordingHistory{})
	id := newSession(t, service)

	_, err := service.Start(ctx, id, nil, domain.QuizRequest{Topic: "  ab ", Difficulty: domain.DifficultyEasy})
	verr, ok := domain.AsValidationError(err)
	if !ok || verr.Field != "topic" {
		t.Fatalf("expected topic validation error, got %v", err)
	}
	_, err = service.Start(ctx, id, nil, domain.QuizRequest{Topic: "Photosynthesis", Difficulty: "Impossible"})
	if verr, ok := domain.AsValidationError(err); !ok || verr.Field != "difficulty" {
		t.Fatalf("expected difficulty validation error, got %v", err)
	}
	if len(gen.calls()) != 0 {
		t.Fatalf("generator must not be called for invalid input")
	}

	view, _ := service.View(ctx, id)
	if view.Phase != domain.PhaseIdle {
		t.Fatalf("expected session to stay idle, got %s", view.Phase)
	}
}

func TestGenerationFailureKeepsRequest(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{err: errors.New("upstream unavailable")}
	service := newTestService(gen, &recordingHistory{})
	id := newSession(t, service)

	view, err := service.Start(ctx, id, nil, roman)
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if view.Phase != domain.PhaseIdle || view.Request == nil || view.Request.Topic != "Roman Empire" {
		t.Fatalf("expected idle session keeping the request, got %+v", view)
	}

	gen.mu.Lock()
	gen.err = nil
	gen.mu.Unlock()
	view, err = service.Start(ctx, id, nil, *view.Request)
	if err != nil || view.Phase != domain.PhaseAnswering {
		t.Fatalf("expected second start to succeed, got %+v, %v", view, err)
	}
}

func TestGeneratedSetChecks(t *testing.T) {
	ctx := context.Background()

	empty := &fakeGenerator{set: &domain.QuestionSet{}}
	service := newTestService(empty, &recordingHistory{})
	_, err := service.Start(ctx, newSession(t, service), nil, roman)
	if !errors.Is(err, domain.ErrGeneration) || !errors.Is(err, domain.ErrEmptyQuestionSet) {
		t.Fatalf("expected empty set generation error, got %v", err)
	}

	long := questionSet(8)
	service = newTestService(&fakeGenerator{set: &long}, &recordingHistory{})
	view, err := service.Start(ctx, newSession(t, service), nil, roman)
	if err != nil || view.TotalQuestions != app.DefaultQuestionCount {
		t.Fatalf("expected set truncated to %d, got %d (%v)", app.DefaultQuestionCount, view.TotalQuestions, err)
	}

	broken := questionSet(2)
	broken.Questions[1].Options = []string{"only", "three", "options"}
	service = newTestService(&fakeGenerator{set: &broken}, &recordingHistory{})
	if _, err := service.Start(ctx, newSession(t, service), nil, roman); !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected malformed question to fail generation, got %v", err)
	}
}

func TestAnsweringGuards(t *testing.T) {
	ctx := context.Background()
	service := newTestService(&fakeGenerator{}, &recordingHistory{})
	id := newSession(t, service)
	if _, err := service.Start(ctx, id, nil, roman); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Submit without a selection and advance before answering are no-ops.
	view, notices, err := service.SubmitAnswer(ctx, id, nil)
	if err != nil || view.State.Answered || len(notices) != 0 {
		t.Fatalf("expected no-op submit, got %+v %v", view.State, err)
	}
	view, err = service.Advance(ctx, id)
	if err != nil || view.State.CurrentQuestionIndex != 0 {
		t.Fatalf("expected no-op advance, got %+v %v", view.State, err)
	}

	if _, err := service.SelectOption(ctx, id, 4); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected ErrOptionNotFound, got %v", err)
	}

	// Changing the selection before submitting is allowed.
	_, _ = service.SelectOption(ctx, id, 2)
	view, _ = service.SelectOption(ctx, id, 0)
	if *view.State.SelectedAnswer != 0 {
		t.Fatalf("expected selection 0, got %d", *view.State.SelectedAnswer)
	}

	view, _, _ = service.SubmitAnswer(ctx, id, nil)
	if !view.State.Answered || view.State.Score != 1 {
		t.Fatalf("expected answered with score 1, got %+v", view.State)
	}
	if view.Question.Options[0].Status != app.OptionCorrect || view.Question.Explanation == "" {
		t.Fatalf("expected revealed answer, got %+v", view.Question)
	}

	// A locked answer ignores further selection and submission.
	view, _ = service.SelectOption(ctx, id, 3)
	if *view.State.SelectedAnswer != 0 {
		t.Fatalf("selection changed after submit: %d", *view.State.SelectedAnswer)
	}
	view, _, _ = service.SubmitAnswer(ctx, id, nil)
	if view.State.Score != 1 {
		t.Fatalf("double submit changed score: %d", view.State.Score)
	}

	view, _ = service.Advance(ctx, id)
	if view.State.CurrentQuestionIndex != 1 || view.State.SelectedAnswer != nil || view.State.Answered {
		t.Fatalf("expected fresh second question, got %+v", view.State)
	}
}

func TestResultSavedOnlyForSignedInUsers(t *testing.T) {
	ctx := context.Background()
	history := &recordingHistory{}
	service := newTestService(&fakeGenerator{}, history)
	id := newSession(t, service)
	_, _ = service.Start(ctx, id, nil, roman)

	_, notices := answerAll(t, service, id, nil, []bool{true, true, true, true, true})
	if len(notices) != 0 || len(history.saved) != 0 {
		t.Fatalf("expected no save for signed-out user, got notices=%+v saved=%d", notices, len(history.saved))
	}
}

func TestResultSavedOnce(t *testing.T) {
	ctx := context.Background()
	history := &recordingHistory{}
	service := newTestService(&fakeGenerator{}, history)
	id := newSession(t, service)
	_, _ = service.Start(ctx, id, alice, roman)

	answerAll(t, service, id, alice, []bool{true, true, true, true, true})
	_, notices, err := service.SubmitAnswer(ctx, id, alice)
	if err != nil || len(notices) != 0 {
		t.Fatalf("expected repeated submit to be a no-op, got %+v %v", notices, err)
	}
	if len(history.saved) != 1 {
		t.Fatalf("expected exactly one save, got %d", len(history.saved))
	}
}

func TestSaveFailureIsANotice(t *testing.T) {
	ctx := context.Background()
	history := &recordingHistory{err: domain.ErrStorage}
	service := newTestService(&fakeGenerator{}, history)
	id := newSession(t, service)
	_, _ = service.Start(ctx, id, alice, roman)

	view, notices := answerAll(t, service, id, alice, []bool{false, false, false, false, false})
	if view.Phase != domain.PhaseCompleted {
		t.Fatalf("save failure must not block completion, got %s", view.Phase)
	}
	if len(notices) != 1 || notices[0].Title != "Save Error" || notices[0].Level != "error" {
		t.Fatalf("expected save error notice, got %+v", notices)
	}
	if view.Summary.Feedback.Tier != domain.TierBeginner {
		t.Fatalf("expected Beginner tier, got %s", view.Summary.Feedback.Tier)
	}
}

func TestRetryReusesRequest(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{}
	service := newTestService(gen, &recordingHistory{})
	id := newSession(t, service)

	if _, err := service.Retry(ctx, id, nil); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected retry from idle to be rejected, got %v", err)
	}

	_, _ = service.Start(ctx, id, alice, roman)
	answerAll(t, service, id, alice, []bool{true, true, true, true, true})

	view, err := service.Retry(ctx, id, alice)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if view.Phase != domain.PhaseAnswering || view.State.Score != 0 || view.State.CurrentQuestionIndex != 0 || view.Summary != nil {
		t.Fatalf("expected fresh attempt, got %+v", view)
	}
	calls := gen.calls()
	if len(calls) != 2 || calls[1] != roman {
		t.Fatalf("expected retry with same request, got %+v", calls)
	}
}

func TestNewTopic(t *testing.T) {
	ctx := context.Background()
	service := newTestService(&fakeGenerator{}, &recordingHistory{})
	id := newSession(t, service)
	_, _ = service.Start(ctx, id, nil, roman)

	if _, err := service.NewTopic(ctx, id); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected new topic mid-quiz to be rejected, got %v", err)
	}

	answerAll(t, service, id, nil, []bool{true, false, true, false, true})
	view, err := service.NewTopic(ctx, id)
	if err != nil {
		t.Fatalf("new topic: %v", err)
	}
	if view.Phase != domain.PhaseIdle || view.Request != nil || view.TotalQuestions != 0 || view.State != nil {
		t.Fatalf("expected cleared idle session, got %+v", view)
	}
}

func TestConcurrentStartAndDiscardedGeneration(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{started: make(chan struct{}, 1), release: make(chan struct{})}
	service := newTestService(gen, &recordingHistory{})
	id := newSession(t, service)

	done := make(chan error, 1)
	go func() {
		_, err := service.Start(ctx, id, nil, roman)
		done <- err
	}()
	<-gen.started

	view, _ := service.View(ctx, id)
	if view.Phase != domain.PhaseAwaitingGeneration {
		t.Fatalf("expected awaiting generation, got %s", view.Phase)
	}
	if _, err := service.Start(ctx, id, nil, roman); !errors.Is(err, domain.ErrGenerationInFlight) {
		t.Fatalf("expected ErrGenerationInFlight, got %v", err)
	}

	if err := service.Discard(ctx, id); err != nil {
		t.Fatalf("discard: %v", err)
	}
	close(gen.release)

	if err := <-done; !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected discarded session to drop the result, got %v", err)
	}
	if _, err := service.View(ctx, id); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("discarded session must stay gone, got %v", err)
	}
}

func TestSubscribeReceivesViews(t *testing.T) {
	ctx := context.Background()
	service := newTestService(&fakeGenerator{}, &recordingHistory{})
	id := newSession(t, service)

	ch, cancel, err := service.Subscribe(ctx, id)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if initial := <-ch; initial.Phase != domain.PhaseIdle {
		t.Fatalf("expected idle snapshot, got %s", initial.Phase)
	}
	if _, err := service.Start(ctx, id, nil, roman); err != nil {
		t.Fatalf("start: %v", err)
	}
	if v := <-ch; v.Phase != domain.PhaseAwaitingGeneration {
		t.Fatalf("expected awaiting generation update, got %s", v.Phase)
	}
	if v := <-ch; v.Phase != domain.PhaseAnswering {
		t.Fatalf("expected answering update, got %s", v.Phase)
	}

	if _, _, err := service.Subscribe(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

// gatedHistory holds Save until released.
type gatedHistory struct {
	recordingHistory
	entered chan struct{}
	release chan struct{}
}

func (h *gatedHistory) Save(ctx context.Context, ownerID string, result domain.SessionResult) (string, error) {
	close(h.entered)
	<-h.release
	return h.recordingHistory.Save(ctx, ownerID, result)
}

func TestCompletionVisibleWhileSaveIsPending(t *testing.T) {
	ctx := context.Background()
	history := &gatedHistory{entered: make(chan struct{}), release: make(chan struct{})}
	service := newTestService(&fakeGenerator{}, history)
	id := newSession(t, service)
	if _, err := service.Start(ctx, id, alice, roman); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := service.SelectOption(ctx, id, i%4); err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		if i == 4 {
			break
		}
		if _, _, err := service.SubmitAnswer(ctx, id, alice); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if _, err := service.Advance(ctx, id); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	ch, cancel, err := service.Subscribe(ctx, id)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	<-ch

	type submitResult struct {
		notices []app.Notice
		err     error
	}
	done := make(chan submitResult, 1)
	go func() {
		_, notices, err := service.SubmitAnswer(ctx, id, alice)
		done <- submitResult{notices, err}
	}()

	<-history.entered
	select {
	case v := <-ch:
		if v.Phase != domain.PhaseCompleted {
			t.Fatalf("expected completed view during save, got %s", v.Phase)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("completed view not published while save pending")
	}
	view, err := service.View(ctx, id)
	if err != nil || view.Phase != domain.PhaseCompleted {
		t.Fatalf("expected session readable during save, got %s err=%v", view.Phase, err)
	}

	close(history.release)
	got := <-done
	if got.err != nil {
		t.Fatalf("submit last: %v", got.err)
	}
	if len(got.notices) != 1 || got.notices[0].Title != "Quiz Saved" {
		t.Fatalf("expected saved notice, got %+v", got.notices)
	}
}
