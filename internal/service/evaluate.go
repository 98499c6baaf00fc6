package service

import (
	"context"
	"fmt"
	"log/slog"

	"quizhub/internal/model"
)

// AnswerCheck identifies the answer a student selected for a question.
type AnswerCheck struct {
	QuestionID int64 `json:"question_id"`
	AnswerID   int64 `json:"answer_id"`
}

// AnswerCheckResult is the outcome of an evaluation.
type AnswerCheckResult struct {
	IsCorrect       bool   `json:"is_correct"`
	CorrectAnswerID int64  `json:"correct_answer_id"`
	Explanation     string `json:"explanation"`
}

// CheckAnswer evaluates a student's submission against the stored
// correct answer and asks the explanation collaborator for feedback.
// Preconditions are checked strictly in order: student role, quiz
// published, question in quiz, answer in question. A draft quiz is
// indistinguishable from a missing one so students cannot probe
// unpublished content. Explanation failures never fail the call; a
// placeholder is returned instead.
func (s *Service) CheckAnswer(ctx context.Context, user *model.User, quizID int64, check AnswerCheck) (*AnswerCheckResult, error) {
	if user.Role != model.RoleStudent {
		return nil, fmt.Errorf("%w: only students can check answers", ErrForbidden)
	}

	detail, err := s.store.GetQuizDetail(quizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz %d: %w", quizID, err)
	}
	if detail == nil || detail.Status != model.StatusPublished {
		return nil, fmt.Errorf("%w: quiz not found or not published", ErrNotFound)
	}

	var question *model.QuestionDetail
	for i := range detail.Questions {
		if detail.Questions[i].ID == check.QuestionID {
			question = &detail.Questions[i]
			break
		}
	}
	if question == nil {
		return nil, fmt.Errorf("%w: question not found in this quiz", ErrNotFound)
	}

	var submitted, correct *model.Answer
	for i := range question.Answers {
		if question.Answers[i].ID == check.AnswerID {
			submitted = &question.Answers[i]
		}
		if question.Answers[i].IsCorrect && correct == nil {
			correct = &question.Answers[i]
		}
	}
	if submitted == nil {
		return nil, fmt.Errorf("%w: answer not found for this question", ErrNotFound)
	}
	if correct == nil {
		// Legacy data shape: updates may leave a question without a
		// correct answer. Every submission is then wrong.
		slog.Warn("question has no correct answer", "quiz_id", quizID, "question_id", question.ID)
		return &AnswerCheckResult{IsCorrect: false, Explanation: explanationUnavailable}, nil
	}

	result := &AnswerCheckResult{
		IsCorrect:       submitted.ID == correct.ID,
		CorrectAnswerID: correct.ID,
	}

	result.Explanation = s.explain(ctx, detail, question, correct, submitted, result.IsCorrect)
	return result, nil
}

// explain calls the explanation collaborator, degrading to a fixed
// placeholder on any error or timeout.
func (s *Service) explain(ctx context.Context, detail *model.QuizDetail, question *model.QuestionDetail, correct, submitted *model.Answer, wasCorrect bool) string {
	level, err := s.store.GetLevel(detail.LevelID)
	if err != nil || level == nil {
		slog.Warn("level lookup failed for explanation", "level_id", detail.LevelID, "error", err)
		return explanationUnavailable
	}

	req := ExplainRequest{
		QuizTitle:         detail.Title,
		LevelDescription:  level.Description,
		QuestionText:      question.Text,
		CorrectAnswerText: correct.Text,
		WasCorrect:        wasCorrect,
	}
	if !wasCorrect {
		req.StudentAnswerText = submitted.Text
	}

	ctx, cancel := context.WithTimeout(ctx, explainTimeout)
	defer cancel()

	text, err := s.explainer.Explain(ctx, req)
	if err != nil {
		slog.Warn("explanation generation failed", "quiz_id", detail.ID, "question_id", question.ID, "error", err)
		return explanationUnavailable
	}
	return text
}

// SubmitResult records a student's score for a completed quiz attempt.
// A first submission inserts; any later one for the same (student,
// quiz) pair overwrites it.
func (s *Service) SubmitResult(user *model.User, quizID int64, score, maxScore int) (*model.Result, error) {
	if user.Role != model.RoleStudent {
		return nil, fmt.Errorf("%w: only students can submit results", ErrForbidden)
	}

	quiz, err := s.store.GetQuiz(quizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz %d: %w", quizID, err)
	}
	if quiz == nil {
		return nil, fmt.Errorf("%w: quiz with id %d", ErrNotFound, quizID)
	}

	if score < 0 || maxScore <= 0 {
		return nil, fmt.Errorf("%w: score must be non-negative and max_score positive", ErrInvalidArgument)
	}
	if score > maxScore {
		return nil, fmt.Errorf("%w: score cannot be greater than max_score", ErrInvalidArgument)
	}
	count, err := s.store.QuestionCountByQuiz(quizID)
	if err != nil {
		return nil, fmt.Errorf("count questions for quiz %d: %w", quizID, err)
	}
	if maxScore != count {
		return nil, fmt.Errorf("%w: max_score must match the number of questions", ErrInvalidArgument)
	}

	err = s.store.UpsertResult(model.Result{
		UserID:   user.ID,
		QuizID:   quizID,
		Score:    score,
		MaxScore: maxScore,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert result: %w", err)
	}

	result, err := s.store.GetResult(user.ID, quizID)
	if err != nil {
		return nil, fmt.Errorf("reload result: %w", err)
	}
	return result, nil
}
