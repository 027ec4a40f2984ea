package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinTopicLength = 3
	MaxTopicLength = 50
	// OptionsPerQuestion is fixed by the generation contract.
	OptionsPerQuestion = 4
)

// Difficulty is the requested difficulty of a generated quiz.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Valid reports whether d is one of the supported difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// QuizRequest is the submitted topic form. It is reused verbatim on retry.
type QuizRequest struct {
	Topic      string     `json:"topic"`
	Difficulty Difficulty `json:"difficulty"`
}

// Normalize trims the topic.
func (r QuizRequest) Normalize() QuizRequest {
	r.Topic = strings.TrimSpace(r.Topic)
	return r
}

// Validate checks topic length and difficulty.
func (r QuizRequest) Validate() error {
	n := utf8.RuneCountInString(strings.TrimSpace(r.Topic))
	if n < MinTopicLength {
		return NewValidationError("topic", fmt.Sprintf("must be at least %d characters long", MinTopicLength))
	}
	if n > MaxTopicLength {
		return NewValidationError("topic", fmt.Sprintf("must be %d characters or less", MaxTopicLength))
	}
	if !r.Difficulty.Valid() {
		return NewValidationError("difficulty", "must be one of Easy, Medium, Hard")
	}
	return nil
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	Prompt             string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation"`
}

// Validate enforces the generation contract: prompt present, exactly 4 options, index in [0,3].
func (q Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("question text is empty")
	}
	if len(q.Options) != OptionsPerQuestion {
		return fmt.Errorf("expected %d options, got %d", OptionsPerQuestion, len(q.Options))
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= OptionsPerQuestion {
		return fmt.Errorf("correct answer index %d out of range", q.CorrectAnswerIndex)
	}
	return nil
}

// QuestionSet is the full output of one generation call.
type QuestionSet struct {
	Questions []Question `json:"questions"`
}

// Phase is the lifecycle phase of a quiz session.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseAwaitingGeneration Phase = "awaiting_generation"
	PhaseAnswering          Phase = "answering"
	PhaseCompleted          Phase = "completed"
)

// SessionState is the running answering state of one session.
type SessionState struct {
	CurrentQuestionIndex int  `json:"currentQuestionIndex"`
	Score                int  `json:"score"`
	SelectedAnswer       *int `json:"selectedAnswer"`
	Answered             bool `json:"answered"`
}

// SessionResult is the outcome of a completed session.
type SessionResult struct {
	ID             string     `json:"id,omitempty"`
	OwnerID        string     `json:"ownerId,omitempty"`
	Topic          string     `json:"topic"`
	Difficulty     Difficulty `json:"difficulty"`
	Score          int        `json:"score"`
	TotalQuestions int        `json:"totalQuestions"`
	CompletedAt    time.Time  `json:"completedAt"`
}

// Percentage returns round(100 * score / total), 0 for an empty quiz.
func (r SessionResult) Percentage() int {
	return Percentage(r.Score, r.TotalQuestions)
}

// Percentage rounds half away from zero using integer arithmetic.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*score + total) / (2 * total)
}

// Identity is the signed-in user supplied by the auth collaborator.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Tier is the qualitative badge derived from a final score.
type Tier string

const (
	TierBeginner Tier = "Beginner"
	TierLearner  Tier = "Learner"
	TierAchiever Tier = "Achiever"
	TierChampion Tier = "Champion"
)

// Feedback is the result summary shown on completion.
type Feedback struct {
	Tier        Tier   `json:"tier"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Percentage  int    `json:"percentage"`
}

// Reading is a library topic a user looked up.
type Reading struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId,omitempty"`
	Topic     string    `json:"topic"`
	CreatedAt time.Time `json:"createdAt"`
}
