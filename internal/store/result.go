package store

import (
	"database/sql"
	"time"

	"quizhub/internal/model"
)

// UpsertResult inserts or overwrites a student's result for a quiz,
// keyed on the (user, quiz) uniqueness constraint.
func (s *Store) UpsertResult(r model.Result) error {
	_, err := s.db.Exec(
		`INSERT INTO results (user_id, quiz_id, score, max_score, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, quiz_id) DO UPDATE SET score = ?, max_score = ?`,
		r.UserID, r.QuizID, r.Score, r.MaxScore, time.Now(), r.Score, r.MaxScore,
	)
	return err
}

// GetResult returns a student's result for a quiz, or nil if none exists.
func (s *Store) GetResult(userID, quizID int64) (*model.Result, error) {
	var r model.Result
	err := s.db.QueryRow(
		`SELECT id, user_id, quiz_id, score, max_score, created_at
		 FROM results WHERE user_id = ? AND quiz_id = ?`, userID, quizID,
	).Scan(&r.ID, &r.UserID, &r.QuizID, &r.Score, &r.MaxScore, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CountResultsByQuiz returns the number of results recorded for a quiz.
func (s *Store) CountResultsByQuiz(quizID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM results WHERE quiz_id = ?`, quizID).Scan(&count)
	return count, err
}
