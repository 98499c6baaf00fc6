// Package service implements the quiz platform core: aggregate
// reconciliation, role-scoped listings, answer evaluation, result
// submission, and AI quiz generation.
package service

import (
	"context"
	"errors"
	"time"

	"quizhub/internal/model"
	"quizhub/internal/store"
)

// Failure kinds. Handlers branch on these with errors.Is; everything
// else is treated as an internal error.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnavailable     = errors.New("service unavailable")
)

const (
	explainTimeout  = 10 * time.Second
	generateTimeout = 2 * time.Minute

	// Returned whenever the explanation collaborator cannot deliver.
	// Evaluation itself never fails on explanation availability.
	explanationUnavailable = "Explanation not available. Please try again later."
)

// Generator produces a complete quiz for a topic at a difficulty level.
type Generator interface {
	GenerateQuiz(ctx context.Context, topic string, questionCount int, level model.Level) (*model.GeneratedQuiz, error)
}

// ExplainRequest carries the context the explanation collaborator
// needs to phrase its feedback. StudentAnswerText is set only when the
// submission was wrong.
type ExplainRequest struct {
	QuizTitle         string
	LevelDescription  string
	QuestionText      string
	CorrectAnswerText string
	StudentAnswerText string
	WasCorrect        bool
}

// Explainer produces free-text feedback for a checked answer.
type Explainer interface {
	Explain(ctx context.Context, req ExplainRequest) (string, error)
}

// Service holds the shared dependencies of all quiz operations.
type Service struct {
	store     *store.Store
	generator Generator
	explainer Explainer
}

// New creates a Service.
func New(s *store.Store, g Generator, e Explainer) *Service {
	return &Service{store: s, generator: g, explainer: e}
}
