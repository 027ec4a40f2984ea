package app

import (
	"time"

	"aspirant-quiz-service/internal/domain"
)

// Session is one topic-to-results quiz attempt. All mutation goes through
// QuizService, which serialises access per session id.
type Session struct {
	ID          string                `json:"id"`
	Phase       domain.Phase          `json:"phase"`
	Request     *domain.QuizRequest   `json:"request,omitempty"`
	Questions   []domain.Question     `json:"questions,omitempty"`
	State       domain.SessionState   `json:"state"`
	Result      *domain.SessionResult `json:"result,omitempty"`
	ResultSaved bool                  `json:"resultSaved"`
	// Generation identifies the latest generation request; replies for an
	// older token are dropped.
	Generation uint64    `json:"generation"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewSession returns an Idle session.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Phase:     domain.PhaseIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TotalQuestions is the length of the current question set.
func (s *Session) TotalQuestions() int {
	return len(s.Questions)
}

// CurrentQuestion returns the question at the current index, if any.
func (s *Session) CurrentQuestion() (domain.Question, bool) {
	idx := s.State.CurrentQuestionIndex
	if idx < 0 || idx >= len(s.Questions) {
		return domain.Question{}, false
	}
	return s.Questions[idx], true
}

func (s *Session) isLastQuestion() bool {
	return s.State.CurrentQuestionIndex == len(s.Questions)-1
}

func (s *Session) resetProgress() {
	s.Questions = nil
	s.State = domain.SessionState{}
	s.Result = nil
	s.ResultSaved = false
}

// beginGeneration moves Idle -> AwaitingGeneration and returns the token the
// generation reply must present.
func (s *Session) beginGeneration(req domain.QuizRequest) (uint64, error) {
	switch s.Phase {
	case domain.PhaseAwaitingGeneration:
		return 0, domain.ErrGenerationInFlight
	case domain.PhaseIdle:
	default:
		return 0, domain.ErrInvalidTransition
	}
	s.resetProgress()
	s.Request = &req
	s.Generation++
	s.Phase = domain.PhaseAwaitingGeneration
	return s.Generation, nil
}

// beginRetry moves Completed -> AwaitingGeneration reusing the stored request.
func (s *Session) beginRetry() (domain.QuizRequest, uint64, error) {
	if s.Phase != domain.PhaseCompleted || s.Request == nil {
		return domain.QuizRequest{}, 0, domain.ErrInvalidTransition
	}
	req := *s.Request
	s.Phase = domain.PhaseIdle
	token, err := s.beginGeneration(req)
	return req, token, err
}

// completeGeneration installs a generated set. It reports false when the
// reply is stale.
func (s *Session) completeGeneration(token uint64, set domain.QuestionSet) bool {
	if s.Phase != domain.PhaseAwaitingGeneration || s.Generation != token {
		return false
	}
	s.Questions = set.Questions
	s.State = domain.SessionState{}
	s.Phase = domain.PhaseAnswering
	return true
}

// failGeneration returns to Idle keeping the request so the user can retry.
func (s *Session) failGeneration(token uint64) bool {
	if s.Phase != domain.PhaseAwaitingGeneration || s.Generation != token {
		return false
	}
	s.Phase = domain.PhaseIdle
	return true
}

func (s *Session) selectOption(index int) (bool, error) {
	if s.Phase != domain.PhaseAnswering || s.State.Answered {
		return false, nil
	}
	q, ok := s.CurrentQuestion()
	if !ok {
		return false, nil
	}
	if index < 0 || index >= len(q.Options) {
		return false, domain.ErrOptionNotFound
	}
	if s.State.SelectedAnswer != nil && *s.State.SelectedAnswer == index {
		return false, nil
	}
	selected := index
	s.State.SelectedAnswer = &selected
	return true, nil
}

// submitAnswer locks in the selection. On the last question the result is
// built from the score that already includes this answer.
func (s *Session) submitAnswer(ownerID string, now time.Time) (changed, completed bool) {
	if s.Phase != domain.PhaseAnswering || s.State.Answered || s.State.SelectedAnswer == nil {
		return false, false
	}
	q, ok := s.CurrentQuestion()
	if !ok {
		return false, false
	}

	s.State.Answered = true
	if *s.State.SelectedAnswer == q.CorrectAnswerIndex {
		s.State.Score++
	}
	if !s.isLastQuestion() {
		return true, false
	}

	s.Result = &domain.SessionResult{
		OwnerID:        ownerID,
		Topic:          s.Request.Topic,
		Difficulty:     s.Request.Difficulty,
		Score:          s.State.Score,
		TotalQuestions: len(s.Questions),
		CompletedAt:    now,
	}
	s.Phase = domain.PhaseCompleted
	return true, true
}

func (s *Session) advance() bool {
	if s.Phase != domain.PhaseAnswering || !s.State.Answered || s.isLastQuestion() {
		return false
	}
	s.State.CurrentQuestionIndex++
	s.State.SelectedAnswer = nil
	s.State.Answered = false
	return true
}

func (s *Session) newTopic() (bool, error) {
	switch s.Phase {
	case domain.PhaseCompleted, domain.PhaseIdle:
	default:
		return false, domain.ErrInvalidTransition
	}
	if s.Phase == domain.PhaseIdle && s.Request == nil {
		return false, nil
	}
	s.resetProgress()
	s.Request = nil
	s.Phase = domain.PhaseIdle
	return true, nil
}
