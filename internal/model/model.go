package model

import (
	"context"
	"time"
)

// Role represents a user's access level.
type Role string

const (
	// RoleAdmin is an administrator user role.
	RoleAdmin Role = "admin"
	// RoleStudent is a student user role.
	RoleStudent Role = "student"
)

// QuizStatus represents the publication state of a quiz.
type QuizStatus string

const (
	StatusDraft     QuizStatus = "draft"
	StatusPublished QuizStatus = "published"
)

// Valid reports whether the status is one of the known states.
func (s QuizStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// User represents a system user. Role is fixed at creation.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession represents a bearer-token authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Level is immutable difficulty reference data, seeded once. Rank
// gives the ordering across levels and is unique.
type Level struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Rank        int    `json:"level"`
}

// Quiz represents a quiz row. Its questions are loaded separately.
type Quiz struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Status    QuizStatus `json:"status"`
	LevelID   int64      `json:"level_id"`
	CreatorID int64      `json:"creator_id"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Question belongs to exactly one quiz.
type Question struct {
	ID     int64  `json:"id"`
	QuizID int64  `json:"quiz_id"`
	Text   string `json:"text"`
}

// Answer belongs to exactly one question.
type Answer struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

// Result stores a student's most recent score for a quiz.
// At most one result exists per (user, quiz) pair.
type Result struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	QuizID    int64     `json:"quiz_id"`
	Score     int       `json:"score"`
	MaxScore  int       `json:"max_score"`
	CreatedAt time.Time `json:"created_at"`
}

// QuestionDetail combines a question with its answers.
type QuestionDetail struct {
	Question
	Answers []Answer `json:"answers"`
}

// QuizDetail is a quiz aggregate: the quiz row with all nested
// questions and answers.
type QuizDetail struct {
	Quiz
	Questions []QuestionDetail `json:"questions"`
}

// LastResult is the score pair shown on quiz listings.
type LastResult struct {
	Score    int `json:"score"`
	MaxScore int `json:"max_score"`
}

// QuizSummary is one row of a quiz listing, augmented with the current
// question count and, for students, their own last result.
type QuizSummary struct {
	Quiz
	QuestionCount int         `json:"question_count"`
	LastResult    *LastResult `json:"last_result,omitempty"`
}

// AnswerPayload is a client-supplied answer in a quiz update. A nil ID
// means "insert fresh"; a non-nil ID targets an existing row.
type AnswerPayload struct {
	ID        *int64 `json:"id,omitempty"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionPayload is a client-supplied question in a quiz update.
type QuestionPayload struct {
	ID      *int64          `json:"id,omitempty"`
	Text    string          `json:"text"`
	Answers []AnswerPayload `json:"answers"`
}

// QuizUpdate is the full desired shape of a quiz aggregate. Applying
// it makes persisted state equal the payload.
type QuizUpdate struct {
	Title     string            `json:"title"`
	LevelID   int64             `json:"level_id"`
	Status    QuizStatus        `json:"status,omitempty"`
	Questions []QuestionPayload `json:"questions"`
}

// SortKey selects the field a quiz listing is ordered by. The set is
// closed; anything else is rejected at the boundary.
type SortKey string

const (
	SortByLevel   SortKey = "level"
	SortByTitle   SortKey = "title"
	SortByUpdated SortKey = "updated_at"
)

// SortOrder selects the listing direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// GeneratedAnswer is one answer option from the generation collaborator.
type GeneratedAnswer struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// GeneratedQuestion is one question from the generation collaborator.
type GeneratedQuestion struct {
	Text    string            `json:"text"`
	Answers []GeneratedAnswer `json:"answers"`
}

// GeneratedQuiz is the generation collaborator's full output.
type GeneratedQuiz struct {
	Title     string              `json:"title"`
	Questions []GeneratedQuestion `json:"questions"`
}
