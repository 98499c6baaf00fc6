package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"quizhub/internal/model"
)

// CreateQuiz inserts a quiz with all its questions and answers in a
// single transaction and returns the new quiz ID.
func (s *Store) CreateQuiz(q model.Quiz, questions []model.QuestionPayload) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO quizzes (title, status, level_id, creator_id, updated_at) VALUES (?, ?, ?, ?, ?)`,
		q.Title, q.Status, q.LevelID, q.CreatorID, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	quizID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, qp := range questions {
		if err := insertQuestion(tx, quizID, qp); err != nil {
			return 0, err
		}
	}

	return quizID, tx.Commit()
}

func insertQuestion(tx *sql.Tx, quizID int64, qp model.QuestionPayload) error {
	res, err := tx.Exec(`INSERT INTO questions (quiz_id, text) VALUES (?, ?)`, quizID, qp.Text)
	if err != nil {
		return err
	}
	questionID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for _, ap := range qp.Answers {
		_, err := tx.Exec(
			`INSERT INTO answers (question_id, text, is_correct) VALUES (?, ?, ?)`,
			questionID, ap.Text, ap.IsCorrect,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetQuiz returns a quiz row by ID, or nil if not found.
func (s *Store) GetQuiz(id int64) (*model.Quiz, error) {
	var q model.Quiz
	err := s.db.QueryRow(
		`SELECT id, title, status, level_id, creator_id, updated_at FROM quizzes WHERE id = ?`, id,
	).Scan(&q.ID, &q.Title, &q.Status, &q.LevelID, &q.CreatorID, &q.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// GetQuizDetail loads a quiz with all its questions and answers, or
// nil if the quiz does not exist.
func (s *Store) GetQuizDetail(id int64) (*model.QuizDetail, error) {
	quiz, err := s.GetQuiz(id)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, nil
	}

	questions, err := s.ListQuestionsByQuiz(id)
	if err != nil {
		return nil, err
	}

	detail := &model.QuizDetail{Quiz: *quiz}
	for _, q := range questions {
		answers, err := s.ListAnswersByQuestion(q.ID)
		if err != nil {
			return nil, err
		}
		detail.Questions = append(detail.Questions, model.QuestionDetail{
			Question: q,
			Answers:  answers,
		})
	}
	return detail, nil
}

// ListQuestionsByQuiz returns all questions of a quiz in insertion order.
func (s *Store) ListQuestionsByQuiz(quizID int64) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, quiz_id, text FROM questions WHERE quiz_id = ? ORDER BY id`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListAnswersByQuestion returns all answers of a question in insertion order.
func (s *Store) ListAnswersByQuestion(questionID int64) ([]model.Answer, error) {
	rows, err := s.db.Query(
		`SELECT id, question_id, text, is_correct FROM answers WHERE question_id = ? ORDER BY id`, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// QuestionCountByQuiz returns the current number of questions in a quiz.
func (s *Store) QuestionCountByQuiz(quizID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions WHERE quiz_id = ?`, quizID).Scan(&count)
	return count, err
}

// ReconcileQuiz applies a full desired aggregate shape to a quiz in a
// single transaction: questions absent from the payload are deleted
// with their answers, questions carrying an ID are updated in place
// (their answer lists diffed the same way), and questions without an
// ID are inserted fresh. Scalar fields are updated unconditionally.
// Either the whole new shape is committed or nothing is.
func (s *Store) ReconcileQuiz(quizID int64, upd model.QuizUpdate) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	persisted, err := questionIDs(tx, quizID)
	if err != nil {
		return err
	}

	owned := make(map[int64]bool, len(persisted))
	for _, id := range persisted {
		owned[id] = true
	}

	kept := make(map[int64]bool)
	for _, qp := range upd.Questions {
		if qp.ID != nil {
			kept[*qp.ID] = true
		}
	}

	var stale []int64
	for _, id := range persisted {
		if !kept[id] {
			stale = append(stale, id)
		}
	}
	if err := deleteQuestions(tx, stale); err != nil {
		return err
	}

	for _, qp := range upd.Questions {
		if qp.ID == nil {
			if err := insertQuestion(tx, quizID, qp); err != nil {
				return err
			}
			continue
		}
		// IDs pointing outside this quiz are ignored so a payload can
		// never reach into another quiz's rows.
		if !owned[*qp.ID] {
			continue
		}
		if err := reconcileQuestion(tx, quizID, *qp.ID, qp); err != nil {
			return err
		}
	}

	query := `UPDATE quizzes SET title = ?, level_id = ?, updated_at = ? WHERE id = ?`
	args := []any{upd.Title, upd.LevelID, time.Now(), quizID}
	if upd.Status != "" {
		query = `UPDATE quizzes SET title = ?, level_id = ?, status = ?, updated_at = ? WHERE id = ?`
		args = []any{upd.Title, upd.LevelID, upd.Status, time.Now(), quizID}
	}
	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return tx.Commit()
}

// reconcileQuestion diffs one existing question's answers against the
// payload. Ownership is enforced in every statement: a question ID
// pointing at another quiz never updates anything.
func reconcileQuestion(tx *sql.Tx, quizID, questionID int64, qp model.QuestionPayload) error {
	_, err := tx.Exec(
		`UPDATE questions SET text = ? WHERE id = ? AND quiz_id = ?`,
		qp.Text, questionID, quizID,
	)
	if err != nil {
		return err
	}

	persisted, err := answerIDs(tx, questionID)
	if err != nil {
		return err
	}

	kept := make(map[int64]bool)
	for _, ap := range qp.Answers {
		if ap.ID != nil {
			kept[*ap.ID] = true
		}
	}

	var stale []int64
	for _, id := range persisted {
		if !kept[id] {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		query := fmt.Sprintf(`DELETE FROM answers WHERE id IN (%s)`, placeholders(len(stale)))
		if _, err := tx.Exec(query, int64Args(stale)...); err != nil {
			return err
		}
	}

	for _, ap := range qp.Answers {
		if ap.ID == nil {
			_, err := tx.Exec(
				`INSERT INTO answers (question_id, text, is_correct) VALUES (?, ?, ?)`,
				questionID, ap.Text, ap.IsCorrect,
			)
			if err != nil {
				return err
			}
			continue
		}
		_, err := tx.Exec(
			`UPDATE answers SET text = ?, is_correct = ? WHERE id = ? AND question_id = ?`,
			ap.Text, ap.IsCorrect, *ap.ID, questionID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// deleteQuestions removes questions and their answers. Answers go
// first so no orphaned rows survive a partial failure.
func deleteQuestions(tx *sql.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	ph := placeholders(len(ids))
	args := int64Args(ids)
	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM answers WHERE question_id IN (%s)`, ph), args...); err != nil {
		return err
	}
	_, err := tx.Exec(fmt.Sprintf(`DELETE FROM questions WHERE id IN (%s)`, ph), args...)
	return err
}

// DeleteQuiz removes a quiz with its questions, answers, and results
// in one transaction. Returns false if the quiz did not exist.
func (s *Store) DeleteQuiz(id int64) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	ids, err := questionIDs(tx, id)
	if err != nil {
		return false, err
	}
	if err := deleteQuestions(tx, ids); err != nil {
		return false, err
	}
	if _, err := tx.Exec(`DELETE FROM results WHERE quiz_id = ?`, id); err != nil {
		return false, err
	}
	res, err := tx.Exec(`DELETE FROM quizzes WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, tx.Commit()
}

func questionIDs(tx *sql.Tx, quizID int64) ([]int64, error) {
	rows, err := tx.Query(`SELECT id FROM questions WHERE quiz_id = ? ORDER BY id`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func answerIDs(tx *sql.Tx, questionID int64) ([]int64, error) {
	rows, err := tx.Query(`SELECT id FROM answers WHERE question_id = ? ORDER BY id`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// QuizListOptions configures a quiz listing query.
type QuizListOptions struct {
	// Status restricts by publication state; nil means all statuses.
	Status *model.QuizStatus
	// ResultUserID attaches that user's last result to each row when
	// non-zero.
	ResultUserID int64
	SortBy       model.SortKey
	Order        model.SortOrder
}

var sortColumns = map[model.SortKey]string{
	model.SortByLevel:   "l.rank",
	model.SortByTitle:   "q.title COLLATE NOCASE",
	model.SortByUpdated: "q.updated_at",
}

// ListQuizSummaries returns quiz rows augmented with a live question
// count and, optionally, one user's last result.
func (s *Store) ListQuizSummaries(opts QuizListOptions) ([]model.QuizSummary, error) {
	column, ok := sortColumns[opts.SortBy]
	if !ok {
		return nil, fmt.Errorf("unknown sort key %q", opts.SortBy)
	}
	direction := "ASC"
	if opts.Order == model.SortDesc {
		direction = "DESC"
	}

	query := `
	SELECT q.id, q.title, q.status, q.level_id, q.creator_id, q.updated_at,
	       (SELECT COUNT(*) FROM questions WHERE quiz_id = q.id),
	       r.score, r.max_score
	FROM quizzes q
	JOIN levels l ON l.id = q.level_id
	LEFT JOIN results r ON r.quiz_id = q.id AND r.user_id = ?`
	args := []any{opts.ResultUserID}

	if opts.Status != nil {
		query += ` WHERE q.status = ?`
		args = append(args, *opts.Status)
	}
	query += fmt.Sprintf(` ORDER BY %s %s`, column, direction)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []model.QuizSummary
	for rows.Next() {
		var sm model.QuizSummary
		var score, maxScore sql.NullInt64
		err := rows.Scan(
			&sm.ID, &sm.Title, &sm.Status, &sm.LevelID, &sm.CreatorID, &sm.UpdatedAt,
			&sm.QuestionCount, &score, &maxScore,
		)
		if err != nil {
			return nil, err
		}
		if score.Valid && maxScore.Valid {
			sm.LastResult = &model.LastResult{Score: int(score.Int64), MaxScore: int(maxScore.Int64)}
		}
		summaries = append(summaries, sm)
	}
	return summaries, rows.Err()
}
