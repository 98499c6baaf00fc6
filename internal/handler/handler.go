// Package handler exposes the quiz platform over a JSON HTTP API.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"quizhub/internal/model"
	"quizhub/internal/ratelimit"
	"quizhub/internal/service"
	"quizhub/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	service *service.Service
	limiter *ratelimit.Limiter
}

// New creates a new Handler.
func New(s *store.Store, svc *service.Service, l *ratelimit.Limiter) *Handler {
	return &Handler{store: s, service: svc, limiter: l}
}

// Routes registers all HTTP routes under /api/v1.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.With(h.limiter.Middleware("login", ratelimit.Rule{
			Rate: 5, Per: time.Minute, Burst: 10,
		})).Post("/auth/token", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Post("/auth/logout", h.handleLogout)
			r.Get("/users/me", h.handleMe)
			r.Get("/levels", h.handleListLevels)

			r.Get("/quizzes", h.handleListQuizzes)
			r.Get("/quizzes/{quizID}", h.handleGetQuiz)
			r.Post("/quizzes/{quizID}/check-answer", h.handleCheckAnswer)
			r.Post("/quizzes/{quizID}/results", h.handleSubmitResult)

			r.Group(func(r chi.Router) {
				r.Use(h.requireRole(model.RoleAdmin))
				r.With(h.limiter.Middleware("create_quiz", ratelimit.Rule{
					Rate: 5, Per: time.Minute, Burst: 10,
				})).Post("/quizzes", h.handleGenerateQuiz)
				r.Put("/quizzes/{quizID}", h.handleUpdateQuiz)
				r.Delete("/quizzes/{quizID}", h.handleDeleteQuiz)
			})
		})
	})
}

type detailResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

// writeServiceError maps service failure kinds onto HTTP statuses.
// Anything unrecognized is an internal error, logged but not exposed.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeDetail(w, http.StatusNotFound, detailOf(err, service.ErrNotFound))
	case errors.Is(err, service.ErrForbidden):
		writeDetail(w, http.StatusForbidden, detailOf(err, service.ErrForbidden))
	case errors.Is(err, service.ErrInvalidArgument):
		writeDetail(w, http.StatusUnprocessableEntity, detailOf(err, service.ErrInvalidArgument))
	case errors.Is(err, service.ErrUnavailable):
		writeDetail(w, http.StatusServiceUnavailable, detailOf(err, service.ErrUnavailable))
	default:
		slog.Error("internal error", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

// detailOf strips the sentinel prefix from a wrapped error, leaving
// the human-readable part for the response body.
func detailOf(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return false
	}
	return true
}

func quizIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "quizID"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "quiz id must be an integer")
		return 0, false
	}
	return id, true
}
