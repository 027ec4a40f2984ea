package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a quiz session does not exist (or was discarded).
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrGenerationInFlight rejects a second start while the first generation is outstanding.
	ErrGenerationInFlight = errors.New("quiz generation already in progress")
	// ErrInvalidTransition is returned when an action is not allowed in the current phase.
	ErrInvalidTransition = errors.New("action not allowed in current quiz phase")
	// ErrOptionNotFound indicates a selected option index is outside the question's options.
	ErrOptionNotFound = errors.New("option not found")
	// ErrGeneration wraps every failure of the generative-AI collaborator.
	ErrGeneration = errors.New("content generation failed")
	// ErrEmptyQuestionSet is a generation failure where no questions were produced.
	ErrEmptyQuestionSet = errors.New("no questions were generated")
	// ErrStorage wraps every failure of the history/readings collaborator.
	ErrStorage = errors.New("storage unavailable")
)

// ValidationError is a local, field-level rejection of user input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AsValidationError unwraps err into a ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
