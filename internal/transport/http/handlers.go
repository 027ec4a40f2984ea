package http

import (
	"net/http"
	"strconv"

	"aspirant-quiz-service/internal/app"
	"aspirant-quiz-service/internal/domain"
	"aspirant-quiz-service/internal/identity"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the REST API.
type Handler struct {
	quiz     *app.QuizService
	history  *app.HistoryService
	insights *app.InsightService
	logger   *zap.Logger
}

func NewHandler(quiz *app.QuizService, history *app.HistoryService, insights *app.InsightService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{quiz: quiz, history: history, insights: insights, logger: logger}
}

// RegisterRoutes mounts the API under /api.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", h.createSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.viewSession)
			r.Delete("/", h.discardSession)
			r.Post("/start", h.start)
			r.Post("/select", h.selectOption)
			r.Post("/submit", h.submit)
			r.Post("/advance", h.advance)
			r.Post("/retry", h.retry)
			r.Post("/new-topic", h.newTopic)
		})
		r.Get("/history", h.listHistory)
		r.Get("/current-affairs", h.currentAffairs)
		r.Get("/exam-results", h.examResult)
		r.Post("/library/explain", h.explain)
		r.Get("/library/readings", h.readings)
	})
}

type submitResponse struct {
	Session app.SessionView `json:"session"`
	Notices []app.Notice    `json:"notices"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.quiz.CreateSession(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) viewSession(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (app.SessionView, error) {
		return h.quiz.View(r.Context(), chi.URLParam(r, "id"))
	})
}

func (h *Handler) discardSession(w http.ResponseWriter, r *http.Request) {
	if err := h.quiz.Discard(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	var req domain.QuizRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respond(w, func() (app.SessionView, error) {
		return h.quiz.Start(r.Context(), chi.URLParam(r, "id"), identity.FromContext(r.Context()), req)
	})
}

func (h *Handler) selectOption(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Option *int `json:"option"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if body.Option == nil {
		writeError(w, h.logger, domain.NewValidationError("option", "is required"))
		return
	}
	h.respond(w, func() (app.SessionView, error) {
		return h.quiz.SelectOption(r.Context(), chi.URLParam(r, "id"), *body.Option)
	})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	view, notices, err := h.quiz.SubmitAnswer(r.Context(), chi.URLParam(r, "id"), identity.FromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if notices == nil {
		notices = []app.Notice{}
	}
	writeJSON(w, http.StatusOK, submitResponse{Session: view, Notices: notices})
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (app.SessionView, error) {
		return h.quiz.Advance(r.Context(), chi.URLParam(r, "id"))
	})
}

func (h *Handler) retry(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (app.SessionView, error) {
		return h.quiz.Retry(r.Context(), chi.URLParam(r, "id"), identity.FromContext(r.Context()))
	})
}

func (h *Handler) newTopic(w http.ResponseWriter, r *http.Request) {
	h.respond(w, func() (app.SessionView, error) {
		return h.quiz.NewTopic(r.Context(), chi.URLParam(r, "id"))
	})
}

func (h *Handler) respond(w http.ResponseWriter, fn func() (app.SessionView, error)) {
	view, err := fn()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.history.List(r.Context(), identity.FromContext(r.Context())))
}

func (h *Handler) currentAffairs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		writeError(w, h.logger, domain.NewValidationError("year", "must be a number"))
		return
	}
	digest, err := h.insights.CurrentAffairs(r.Context(), q.Get("month"), year)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, digest)
}

func (h *Handler) examResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.insights.ExamResult(r.Context(), r.URL.Query().Get("exam"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) explain(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Topic string `json:"topic"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	explanation, err := h.insights.Explain(r.Context(), identity.FromContext(r.Context()), body.Topic)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, explanation)
}

func (h *Handler) readings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"readings": h.insights.Readings(r.Context(), identity.FromContext(r.Context())),
	})
}
