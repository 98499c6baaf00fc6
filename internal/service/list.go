package service

import (
	"fmt"

	"quizhub/internal/model"
	"quizhub/internal/store"
)

// ListQuizzes returns a sorted, optionally filtered quiz listing
// scoped to the requester's role. Students only ever see published
// quizzes — their status filter is ignored outright — and each of
// their rows carries their own last result. Admins see everything,
// restricted by the status filter when one is given.
func (s *Service) ListQuizzes(user *model.User, sortBy, order, status string) ([]model.QuizSummary, error) {
	key, dir, err := parseSort(sortBy, order)
	if err != nil {
		return nil, err
	}

	opts := store.QuizListOptions{SortBy: key, Order: dir}
	if user.Role == model.RoleStudent {
		published := model.StatusPublished
		opts.Status = &published
		opts.ResultUserID = user.ID
	} else if status != "" {
		st := model.QuizStatus(status)
		if !st.Valid() {
			return nil, fmt.Errorf("%w: status must be draft or published", ErrInvalidArgument)
		}
		opts.Status = &st
	}

	summaries, err := s.store.ListQuizSummaries(opts)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return summaries, nil
}

// parseSort maps the requested sort parameters onto the closed key
// and direction enumerations. Empty values take the defaults, level
// ascending; anything else outside the enumerations is rejected
// before data access.
func parseSort(sortBy, order string) (model.SortKey, model.SortOrder, error) {
	key := model.SortByLevel
	switch model.SortKey(sortBy) {
	case "":
	case model.SortByLevel, model.SortByTitle, model.SortByUpdated:
		key = model.SortKey(sortBy)
	default:
		return "", "", fmt.Errorf("%w: unknown sort key %q", ErrInvalidArgument, sortBy)
	}

	dir := model.SortAsc
	switch model.SortOrder(order) {
	case "":
	case model.SortAsc, model.SortDesc:
		dir = model.SortOrder(order)
	default:
		return "", "", fmt.Errorf("%w: order must be asc or desc", ErrInvalidArgument)
	}
	return key, dir, nil
}

// GetQuiz loads a full quiz aggregate for the requester. Students can
// only retrieve published quizzes; drafts look exactly like missing
// ones to them.
func (s *Service) GetQuiz(user *model.User, quizID int64) (*model.QuizDetail, error) {
	detail, err := s.store.GetQuizDetail(quizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz %d: %w", quizID, err)
	}
	if detail == nil {
		return nil, fmt.Errorf("%w: quiz with id %d", ErrNotFound, quizID)
	}
	if user.Role == model.RoleStudent && detail.Status != model.StatusPublished {
		return nil, fmt.Errorf("%w: quiz with id %d", ErrNotFound, quizID)
	}
	return detail, nil
}

// DeleteQuiz removes a quiz aggregate along with its results.
func (s *Service) DeleteQuiz(quizID int64) error {
	ok, err := s.store.DeleteQuiz(quizID)
	if err != nil {
		return fmt.Errorf("delete quiz %d: %w", quizID, err)
	}
	if !ok {
		return fmt.Errorf("%w: quiz with id %d", ErrNotFound, quizID)
	}
	return nil
}
