package service

import (
	"fmt"
	"unicode/utf8"

	"quizhub/internal/model"
)

// UpdateQuiz applies a full desired aggregate shape to a stored quiz:
// after the call, the quiz's persisted questions and answers equal the
// payload. Questions and answers present in storage but absent from
// the payload are deleted, payload entries carrying an ID are updated
// in place, and entries without one are inserted fresh. The whole
// reconciliation is one atomic unit; the reloaded aggregate (with
// freshly assigned IDs) is returned.
func (s *Service) UpdateQuiz(quizID int64, upd model.QuizUpdate) (*model.QuizDetail, error) {
	if err := validateQuizUpdate(upd); err != nil {
		return nil, err
	}

	quiz, err := s.store.GetQuiz(quizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz %d: %w", quizID, err)
	}
	if quiz == nil {
		return nil, fmt.Errorf("%w: quiz with id %d", ErrNotFound, quizID)
	}

	level, err := s.store.GetLevel(upd.LevelID)
	if err != nil {
		return nil, fmt.Errorf("get level %d: %w", upd.LevelID, err)
	}
	if level == nil {
		return nil, fmt.Errorf("%w: level with id %d", ErrNotFound, upd.LevelID)
	}

	if err := s.store.ReconcileQuiz(quizID, upd); err != nil {
		return nil, fmt.Errorf("reconcile quiz %d: %w", quizID, err)
	}

	detail, err := s.store.GetQuizDetail(quizID)
	if err != nil {
		return nil, fmt.Errorf("reload quiz %d: %w", quizID, err)
	}
	return detail, nil
}

const (
	minTitleLen    = 3
	maxTitleLen    = 256
	minQuestionLen = 5
	maxQuestionLen = 512
	minAnswerLen   = 1
	maxAnswerLen   = 128
)

// validateQuizUpdate checks payload field constraints before any
// mutating call, so a rejected update never leaves partial state.
// Note: it deliberately does not require exactly one correct answer
// per question; only the generation path enforces that.
func validateQuizUpdate(upd model.QuizUpdate) error {
	if n := utf8.RuneCountInString(upd.Title); n < minTitleLen || n > maxTitleLen {
		return fmt.Errorf("%w: title must be %d-%d characters", ErrInvalidArgument, minTitleLen, maxTitleLen)
	}
	if upd.Status != "" && !upd.Status.Valid() {
		return fmt.Errorf("%w: status must be draft or published", ErrInvalidArgument)
	}
	for _, qp := range upd.Questions {
		if n := utf8.RuneCountInString(qp.Text); n < minQuestionLen || n > maxQuestionLen {
			return fmt.Errorf("%w: question text must be %d-%d characters", ErrInvalidArgument, minQuestionLen, maxQuestionLen)
		}
		for _, ap := range qp.Answers {
			if n := utf8.RuneCountInString(ap.Text); n < minAnswerLen || n > maxAnswerLen {
				return fmt.Errorf("%w: answer text must be %d-%d characters", ErrInvalidArgument, minAnswerLen, maxAnswerLen)
			}
		}
	}
	return nil
}
