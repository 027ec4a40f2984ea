package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aspirant-quiz-service/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionRepository abstracts where quiz sessions live (in-memory, Redis, etc).
type SessionRepository interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
}

// QuizGenerator produces a question set for a topic and difficulty.
type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, req domain.QuizRequest, count int) (domain.QuestionSet, error)
}

// HistoryStore persists finished session outcomes per owner.
type HistoryStore interface {
	Save(ctx context.Context, ownerID string, result domain.SessionResult) (string, error)
	// List returns results ordered by completion time, newest first. limit <= 0 means all.
	List(ctx context.Context, ownerID string, limit int) ([]domain.SessionResult, error)
}

// QuizConfig tunes the quiz flow.
type QuizConfig struct {
	QuestionCount     int
	GenerationTimeout time.Duration
	SaveTimeout       time.Duration
}

const (
	DefaultQuestionCount     = 5
	defaultGenerationTimeout = 60 * time.Second
	defaultSaveTimeout       = 10 * time.Second
)

// Notice is a non-blocking message for the user, e.g. the outcome of a history save.
type Notice struct {
	Level    string `json:"level"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	RecordID string `json:"recordId,omitempty"`
}

// SessionView is what a client renders for a session.
type SessionView struct {
	ID             string               `json:"id"`
	Phase          domain.Phase         `json:"phase"`
	Request        *domain.QuizRequest  `json:"request,omitempty"`
	TotalQuestions int                  `json:"totalQuestions"`
	State          *domain.SessionState `json:"state,omitempty"`
	Question       *QuestionView        `json:"question,omitempty"`
	Summary        *ResultSummary       `json:"summary,omitempty"`
}

// QuizService is the quiz session controller.
type QuizService struct {
	sessions  SessionRepository
	generator QuizGenerator
	history   HistoryStore
	cfg       QuizConfig
	logger    *zap.Logger
	locks     *keyedMutex
	views     *viewBroadcaster
	now       func() time.Time
	newID     func() string
}

func NewQuizService(sessions SessionRepository, generator QuizGenerator, history HistoryStore, cfg QuizConfig, logger *zap.Logger) *QuizService {
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = DefaultQuestionCount
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = defaultGenerationTimeout
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = defaultSaveTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{
		sessions:  sessions,
		generator: generator,
		history:   history,
		cfg:       cfg,
		logger:    logger,
		locks:     newKeyedMutex(),
		views:     newViewBroadcaster(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	return s
}

// CreateSession registers a new Idle session.
func (s *QuizService) CreateSession(ctx context.Context) (SessionView, error) {
	session := NewSession(s.newID(), s.now())
	if err := s.sessions.Save(ctx, session); err != nil {
		return SessionView{}, fmt.Errorf("create session: %w", err)
	}
	return renderSession(session), nil
}

// View returns the current rendering of a session.
func (s *QuizService) View(ctx context.Context, sessionID string) (SessionView, error) {
	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	return renderSession(session), nil
}

// Subscribe returns a channel that receives the session's view after every change,
// starting with the current one. The caller must invoke the returned cancel function.
func (s *QuizService) Subscribe(ctx context.Context, sessionID string) (<-chan SessionView, func(), error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.views.subscribe(sessionID, renderSession(session))
	return ch, cancel, nil
}

// Discard drops a session. A generation still running for it is ignored when it returns.
func (s *QuizService) Discard(ctx context.Context, sessionID string) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()
	return s.sessions.Delete(ctx, sessionID)
}

// Start validates the request and generates a question set for it.
func (s *QuizService) Start(ctx context.Context, sessionID string, who *domain.Identity, req domain.QuizRequest) (SessionView, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return SessionView{}, err
	}

	var token uint64
	if _, err := s.mutate(ctx, sessionID, func(session *Session) (bool, error) {
		t, err := session.beginGeneration(req)
		token = t
		return err == nil, err
	}); err != nil {
		return SessionView{}, err
	}

	s.logger.Info("generating quiz",
		zap.String("session_id", sessionID),
		zap.String("owner", ownerID(who)),
		zap.String("topic", req.Topic),
		zap.String("difficulty", string(req.Difficulty)),
	)
	return s.generate(ctx, sessionID, token, req)
}

// Retry requests a fresh set for the same topic and difficulty.
func (s *QuizService) Retry(ctx context.Context, sessionID string, who *domain.Identity) (SessionView, error) {
	var (
		req   domain.QuizRequest
		token uint64
	)
	if _, err := s.mutate(ctx, sessionID, func(session *Session) (bool, error) {
		r, t, err := session.beginRetry()
		req, token = r, t
		return err == nil, err
	}); err != nil {
		return SessionView{}, err
	}

	s.logger.Info("retrying quiz",
		zap.String("session_id", sessionID),
		zap.String("owner", ownerID(who)),
		zap.String("topic", req.Topic),
	)
	return s.generate(ctx, sessionID, token, req)
}

// generate calls the generator without holding the session lock and applies the
// reply only if the session still waits for this token.
func (s *QuizService) generate(ctx context.Context, sessionID string, token uint64, req domain.QuizRequest) (SessionView, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	set, genErr := s.generator.GenerateQuiz(genCtx, req, s.cfg.QuestionCount)
	cancel()
	if genErr == nil {
		set, genErr = s.prepareSet(set)
	}
	if genErr != nil {
		genErr = wrapGeneration(genErr)
	}

	stale := false
	session, err := s.mutate(context.WithoutCancel(ctx), sessionID, func(session *Session) (bool, error) {
		var applied bool
		if genErr != nil {
			applied = session.failGeneration(token)
		} else {
			applied = session.completeGeneration(token, set)
		}
		stale = !applied
		return applied, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			s.logger.Info("dropping generation for discarded session", zap.String("session_id", sessionID))
		}
		return SessionView{}, err
	}
	if stale {
		s.logger.Info("dropping stale generation", zap.String("session_id", sessionID), zap.Uint64("token", token))
		return renderSession(session), nil
	}
	if genErr != nil {
		s.logger.Warn("quiz generation failed", zap.String("session_id", sessionID), zap.Error(genErr))
		return renderSession(session), genErr
	}
	return renderSession(session), nil
}

func (s *QuizService) prepareSet(set domain.QuestionSet) (domain.QuestionSet, error) {
	if len(set.Questions) == 0 {
		return domain.QuestionSet{}, domain.ErrEmptyQuestionSet
	}
	if len(set.Questions) > s.cfg.QuestionCount {
		set.Questions = set.Questions[:s.cfg.QuestionCount]
	}
	for i, q := range set.Questions {
		if err := q.Validate(); err != nil {
			return domain.QuestionSet{}, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return set, nil
}

// SelectOption records the chosen option for the current question.
func (s *QuizService) SelectOption(ctx context.Context, sessionID string, index int) (SessionView, error) {
	session, err := s.mutate(ctx, sessionID, func(session *Session) (bool, error) {
		return session.selectOption(index)
	})
	if err != nil {
		return SessionView{}, err
	}
	return renderSession(session), nil
}

// SubmitAnswer locks in the selection. Submitting the last answer completes the
// session and saves its result once for a signed-in user.
// The save runs after the session lock is released and subscribers already
// hold the completed view; the call itself returns once the save settles,
// bounded by QuizConfig.SaveTimeout, so the outcome can travel as a notice.
func (s *QuizService) SubmitAnswer(ctx context.Context, sessionID string, who *domain.Identity) (SessionView, []Notice, error) {
	var pending *domain.SessionResult
	session, err := s.mutate(ctx, sessionID, func(session *Session) (bool, error) {
		changed, completed := session.submitAnswer(ownerID(who), s.now())
		if completed && who != nil && !session.ResultSaved {
			session.ResultSaved = true
			result := *session.Result
			pending = &result
		}
		return changed, nil
	})
	if err != nil {
		return SessionView{}, nil, err
	}

	var notices []Notice
	if pending != nil {
		notices = append(notices, s.saveResult(ctx, sessionID, *pending))
	}
	return renderSession(session), notices, nil
}

func (s *QuizService) saveResult(ctx context.Context, sessionID string, result domain.SessionResult) Notice {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SaveTimeout)
	defer cancel()

	id, err := s.history.Save(saveCtx, result.OwnerID, result)
	if err != nil {
		s.logger.Error("save quiz result",
			zap.String("session_id", sessionID),
			zap.String("owner", result.OwnerID),
			zap.Error(err),
		)
		return Notice{
			Level:   "error",
			Title:   "Save Error",
			Message: "Could not save your quiz result. Please try again.",
		}
	}
	s.logger.Info("quiz result saved", zap.String("session_id", sessionID), zap.String("record_id", id))
	return Notice{
		Level:    "info",
		Title:    "Quiz Saved",
		Message:  "Your quiz result has been saved to your history.",
		RecordID: id,
	}
}

// Advance moves to the next question once the current one is answered.
func (s *QuizService) Advance(ctx context.Context, sessionID string) (SessionView, error) {
	session, err := s.mutate(ctx, sessionID, func(session *Session) (bool, error) {
		return session.advance(), nil
	})
	if err != nil {
		return SessionView{}, err
	}
	return renderSession(session), nil
}

// NewTopic clears the request and all progress, returning to topic entry.
func (s *QuizService) NewTopic(ctx context.Context, sessionID string) (SessionView, error) {
	session, err := s.mutate(ctx, sessionID, func(session *Session) (bool, error) {
		return session.newTopic()
	})
	if err != nil {
		return SessionView{}, err
	}
	return renderSession(session), nil
}

// mutate applies fn under the session's lock and persists the session when fn reports a change.
func (s *QuizService) mutate(ctx context.Context, sessionID string, fn func(*Session) (bool, error)) (*Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	changed, err := fn(session)
	if err != nil {
		return nil, err
	}
	if !changed {
		return session, nil
	}
	session.UpdatedAt = s.now()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.views.publish(renderSession(session))
	return session, nil
}

func renderSession(session *Session) SessionView {
	view := SessionView{
		ID:             session.ID,
		Phase:          session.Phase,
		TotalQuestions: session.TotalQuestions(),
	}
	if session.Request != nil {
		req := *session.Request
		view.Request = &req
	}

	switch session.Phase {
	case domain.PhaseAnswering, domain.PhaseCompleted:
		state := session.State
		view.State = &state
		if q, ok := session.CurrentQuestion(); ok {
			qv := RenderQuestion(q, session.State, session.TotalQuestions())
			view.Question = &qv
		}
	}
	if session.Phase == domain.PhaseCompleted && session.Result != nil {
		summary := Summarize(*session.Result)
		view.Summary = &summary
	}
	return view
}

func ownerID(who *domain.Identity) string {
	if who == nil {
		return ""
	}
	return who.UID
}
