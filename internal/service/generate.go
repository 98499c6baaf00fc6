package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"quizhub/internal/model"
)

const (
	minQuestionCount = 5
	maxQuestionCount = 20

	answersPerQuestion = 4
)

// GenerateRequest describes a quiz to be generated.
type GenerateRequest struct {
	Topic         string `json:"topic"`
	QuestionCount int    `json:"question_count"`
	LevelID       int64  `json:"level_id"`
}

// GenerateQuiz asks the generation collaborator for a quiz on the given
// topic, validates its shape, and persists it as a draft owned by the
// caller. Malformed collaborator output is rejected, never repaired.
func (s *Service) GenerateQuiz(ctx context.Context, user *model.User, req GenerateRequest) (*model.QuizDetail, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("%w: topic must not be empty", ErrInvalidArgument)
	}
	if req.QuestionCount < minQuestionCount || req.QuestionCount > maxQuestionCount {
		return nil, fmt.Errorf("%w: question_count must be between %d and %d", ErrInvalidArgument, minQuestionCount, maxQuestionCount)
	}

	level, err := s.store.GetLevel(req.LevelID)
	if err != nil {
		return nil, fmt.Errorf("get level %d: %w", req.LevelID, err)
	}
	if level == nil {
		return nil, fmt.Errorf("%w: level with id %d", ErrNotFound, req.LevelID)
	}

	genCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	generated, err := s.generator.GenerateQuiz(genCtx, req.Topic, req.QuestionCount, *level)
	if err != nil {
		return nil, fmt.Errorf("%w: quiz generation failed: %v", ErrUnavailable, err)
	}

	if err := validateGenerated(generated); err != nil {
		return nil, err
	}

	questions := make([]model.QuestionPayload, 0, len(generated.Questions))
	for _, gq := range generated.Questions {
		qp := model.QuestionPayload{Text: gq.Text}
		for _, ga := range gq.Answers {
			qp.Answers = append(qp.Answers, model.AnswerPayload{
				Text:      ga.Text,
				IsCorrect: ga.IsCorrect,
			})
		}
		questions = append(questions, qp)
	}

	quiz := model.Quiz{
		Title:     generated.Title,
		Status:    model.StatusDraft,
		LevelID:   req.LevelID,
		CreatorID: user.ID,
	}
	quizID, err := s.store.CreateQuiz(quiz, questions)
	if err != nil {
		return nil, fmt.Errorf("create generated quiz: %w", err)
	}

	detail, err := s.store.GetQuizDetail(quizID)
	if err != nil {
		return nil, fmt.Errorf("reload quiz %d: %w", quizID, err)
	}
	return detail, nil
}

// validateGenerated checks the structural contract on collaborator
// output: a non-empty title, bounded texts, exactly four answers per
// question with exactly one marked correct.
func validateGenerated(g *model.GeneratedQuiz) error {
	if g == nil || strings.TrimSpace(g.Title) == "" {
		return fmt.Errorf("%w: generated quiz has no title", ErrInvalidArgument)
	}
	if n := utf8.RuneCountInString(g.Title); n < minTitleLen || n > maxTitleLen {
		return fmt.Errorf("%w: generated title length must be between %d and %d characters", ErrInvalidArgument, minTitleLen, maxTitleLen)
	}
	if len(g.Questions) == 0 {
		return fmt.Errorf("%w: generated quiz has no questions", ErrInvalidArgument)
	}
	for i, q := range g.Questions {
		if n := utf8.RuneCountInString(q.Text); n < minQuestionLen || n > maxQuestionLen {
			return fmt.Errorf("%w: generated question %d text length must be between %d and %d characters", ErrInvalidArgument, i+1, minQuestionLen, maxQuestionLen)
		}
		if len(q.Answers) != answersPerQuestion {
			return fmt.Errorf("%w: generated question %d must have exactly %d answers", ErrInvalidArgument, i+1, answersPerQuestion)
		}
		correct := 0
		for _, a := range q.Answers {
			if n := utf8.RuneCountInString(a.Text); n < minAnswerLen || n > maxAnswerLen {
				return fmt.Errorf("%w: generated answer text length must be between %d and %d characters", ErrInvalidArgument, minAnswerLen, maxAnswerLen)
			}
			if a.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return fmt.Errorf("%w: generated question %d must have exactly one correct answer", ErrInvalidArgument, i+1)
		}
	}
	return nil
}
