package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"aspirant-quiz-service/internal/domain"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors onto HTTP status codes and client-facing messages.
func statusFor(err error) (int, errorResponse) {
	if verr, ok := domain.AsValidationError(err); ok {
		return http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field}
	}
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrGenerationInFlight), errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrOptionNotFound):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Field: "option"}
	case errors.Is(err, domain.ErrGeneration):
		return http.StatusBadGateway, errorResponse{Error: "Failed to generate content. Please try again."}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error"}
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.NewValidationError("body", "malformed JSON")
	}
	return nil
}
