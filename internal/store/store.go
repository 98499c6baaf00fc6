package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('admin', 'student')),
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS levels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL,
		rank INTEGER NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS quizzes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('draft', 'published')),
		level_id INTEGER NOT NULL,
		creator_id INTEGER NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (level_id) REFERENCES levels(id),
		FOREIGN KEY (creator_id) REFERENCES users(id)
	);
	CREATE INDEX IF NOT EXISTS idx_quizzes_status ON quizzes(status);
	CREATE INDEX IF NOT EXISTS idx_quizzes_level_id ON quizzes(level_id);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		quiz_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		FOREIGN KEY (quiz_id) REFERENCES quizzes(id)
	);
	CREATE INDEX IF NOT EXISTS idx_questions_quiz_id ON questions(quiz_id);

	CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		is_correct INTEGER NOT NULL CHECK (is_correct IN (0, 1)),
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);
	CREATE INDEX IF NOT EXISTS idx_answers_question_id ON answers(question_id);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		quiz_id INTEGER NOT NULL,
		score INTEGER NOT NULL,
		max_score INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (user_id, quiz_id),
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (quiz_id) REFERENCES quizzes(id)
	);
	CREATE INDEX IF NOT EXISTS idx_results_quiz_id ON results(quiz_id);
	`
	_, err := s.db.Exec(schema)
	return err
}
