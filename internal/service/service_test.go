package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"quizhub/internal/model"
	"quizhub/internal/store"
)

type fakeGenerator struct {
	quiz *model.GeneratedQuiz
	err  error

	gotTopic string
	gotCount int
	gotLevel model.Level
}

func (f *fakeGenerator) GenerateQuiz(ctx context.Context, topic string, questionCount int, level model.Level) (*model.GeneratedQuiz, error) {
	f.gotTopic = topic
	f.gotCount = questionCount
	f.gotLevel = level
	return f.quiz, f.err
}

type fakeExplainer struct {
	text string
	err  error

	got ExplainRequest
}

func (f *fakeExplainer) Explain(ctx context.Context, req ExplainRequest) (string, error) {
	f.got = req
	return f.text, f.err
}

type testEnv struct {
	store     *store.Store
	generator *fakeGenerator
	explainer *fakeExplainer
	svc       *Service

	admin   *model.User
	student *model.User
	levelID int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	env := &testEnv{
		store:     s,
		generator: &fakeGenerator{},
		explainer: &fakeExplainer{text: "Because four is the sum."},
	}
	env.svc = New(s, env.generator, env.explainer)

	levelID, err := s.CreateLevel(model.Level{Code: "I", Description: "Klasa I", Rank: 1})
	if err != nil {
		t.Fatalf("CreateLevel: %v", err)
	}
	env.levelID = levelID

	adminID, err := s.CreateUser(model.User{Username: "admin", PasswordHash: "x", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("CreateUser admin: %v", err)
	}
	studentID, err := s.CreateUser(model.User{Username: "student", PasswordHash: "x", Role: model.RoleStudent})
	if err != nil {
		t.Fatalf("CreateUser student: %v", err)
	}
	env.admin = &model.User{ID: adminID, Username: "admin", Role: model.RoleAdmin}
	env.student = &model.User{ID: studentID, Username: "student", Role: model.RoleStudent}
	return env
}

func (env *testEnv) createQuiz(t *testing.T, title string, status model.QuizStatus) int64 {
	t.Helper()
	id, err := env.store.CreateQuiz(
		model.Quiz{Title: title, Status: status, LevelID: env.levelID, CreatorID: env.admin.ID},
		[]model.QuestionPayload{
			{Text: "What is two plus two?", Answers: []model.AnswerPayload{
				{Text: "4", IsCorrect: true},
				{Text: "5"},
			}},
			{Text: "What is three plus three?", Answers: []model.AnswerPayload{
				{Text: "6", IsCorrect: true},
				{Text: "7"},
			}},
		},
	)
	if err != nil {
		t.Fatalf("createQuiz: %v", err)
	}
	return id
}

func TestUpdateQuizValidation(t *testing.T) {
	env := newTestEnv(t)
	quizID := env.createQuiz(t, "Arithmetic", model.StatusDraft)

	cases := []struct {
		name string
		upd  model.QuizUpdate
	}{
		{"short title", model.QuizUpdate{Title: "ab", LevelID: env.levelID}},
		{"long title", model.QuizUpdate{Title: strings.Repeat("x", 257), LevelID: env.levelID}},
		{"bad status", model.QuizUpdate{Title: "Arithmetic", LevelID: env.levelID, Status: "archived"}},
		{"short question", model.QuizUpdate{Title: "Arithmetic", LevelID: env.levelID,
			Questions: []model.QuestionPayload{{Text: "hi", Answers: []model.AnswerPayload{{Text: "a", IsCorrect: true}}}}}},
		{"empty answer", model.QuizUpdate{Title: "Arithmetic", LevelID: env.levelID,
			Questions: []model.QuestionPayload{{Text: "What is two plus two?", Answers: []model.AnswerPayload{{Text: ""}}}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.UpdateQuiz(quizID, tc.upd)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestUpdateQuizMissingTargets(t *testing.T) {
	env := newTestEnv(t)
	quizID := env.createQuiz(t, "Arithmetic", model.StatusDraft)

	_, err := env.svc.UpdateQuiz(9999, model.QuizUpdate{Title: "Arithmetic", LevelID: env.levelID})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing quiz, got %v", err)
	}

	_, err = env.svc.UpdateQuiz(quizID, model.QuizUpdate{Title: "Arithmetic", LevelID: 9999})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing level, got %v", err)
	}
}

func TestUpdateQuizReturnsReloadedAggregate(t *testing.T) {
	env := newTestEnv(t)
	quizID := env.createQuiz(t, "Arithmetic", model.StatusDraft)

	detail, err := env.svc.UpdateQuiz(quizID, model.QuizUpdate{
		Title:   "Arithmetic revised",
		LevelID: env.levelID,
		Status:  model.StatusPublished,
		Questions: []model.QuestionPayload{
			{Text: "What is ten minus one?", Answers: []model.AnswerPayload{
				{Text: "9", IsCorrect: true},
				{Text: "8"},
			}},
		},
	})
	if err != nil {
		t.Fatalf("UpdateQuiz: %v", err)
	}
	if detail.Title != "Arithmetic revised" || detail.Status != model.StatusPublished {
		t.Errorf("unexpected quiz row: %+v", detail.Quiz)
	}
	if len(detail.Questions) != 1 || detail.Questions[0].Text != "What is ten minus one?" {
		t.Errorf("unexpected questions: %+v", detail.Questions)
	}
}

func TestListQuizzesRoleScoping(t *testing.T) {
	env := newTestEnv(t)
	published := env.createQuiz(t, "Alpha", model.StatusPublished)
	draft := env.createQuiz(t, "Bravo", model.StatusDraft)
	_ = draft

	if err := env.store.UpsertResult(model.Result{UserID: env.student.ID, QuizID: published, Score: 2, MaxScore: 2}); err != nil {
		t.Fatalf("UpsertResult: %v", err)
	}

	// Students see published quizzes only, with their own last result.
	// A status filter from a student is ignored.
	list, err := env.svc.ListQuizzes(env.student, "", "", "draft")
	if err != nil {
		t.Fatalf("ListQuizzes student: %v", err)
	}
	if len(list) != 1 || list[0].ID != published {
		t.Fatalf("expected only the published quiz, got %+v", list)
	}
	if list[0].LastResult == nil || list[0].LastResult.Score != 2 {
		t.Errorf("expected student's last result, got %+v", list[0].LastResult)
	}

	// Admins see everything by default and never get a last result.
	list, err = env.svc.ListQuizzes(env.admin, "", "", "")
	if err != nil {
		t.Fatalf("ListQuizzes admin: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 quizzes for admin, got %d", len(list))
	}
	for _, sm := range list {
		if sm.LastResult != nil {
			t.Errorf("admin listing carried a last result: %+v", sm)
		}
	}

	// Admins can filter by status.
	list, err = env.svc.ListQuizzes(env.admin, "", "", "draft")
	if err != nil {
		t.Fatalf("ListQuizzes admin draft: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Bravo" {
		t.Fatalf("expected only the draft quiz, got %+v", list)
	}
}

func TestListQuizzesRejectsUnknownSort(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.ListQuizzes(env.admin, "creator", "", "")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for sort key, got %v", err)
	}
	_, err = env.svc.ListQuizzes(env.admin, "title", "sideways", "")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for order, got %v", err)
	}
	_, err = env.svc.ListQuizzes(env.admin, "", "", "archived")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for status filter, got %v", err)
	}
}

func TestGetQuizRoleScoping(t *testing.T) {
	env := newTestEnv(t)
	draft := env.createQuiz(t, "Bravo", model.StatusDraft)

	// A draft quiz looks missing to a student.
	_, err := env.svc.GetQuiz(env.student, draft)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for student on draft, got %v", err)
	}

	detail, err := env.svc.GetQuiz(env.admin, draft)
	if err != nil {
		t.Fatalf("GetQuiz admin: %v", err)
	}
	if detail.ID != draft {
		t.Errorf("expected quiz %d, got %d", draft, detail.ID)
	}
}

func TestCheckAnswerPreconditions(t *testing.T) {
	env := newTestEnv(t)
	published := env.createQuiz(t, "Alpha", model.StatusPublished)
	draft := env.createQuiz(t, "Bravo", model.StatusDraft)

	detail, err := env.store.GetQuizDetail(published)
	if err != nil {
		t.Fatalf("GetQuizDetail: %v", err)
	}
	question := detail.Questions[0]

	ctx := context.Background()

	_, err = env.svc.CheckAnswer(ctx, env.admin, published, AnswerCheck{QuestionID: question.ID, AnswerID: question.Answers[0].ID})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for admin, got %v", err)
	}

	// A draft quiz is reported exactly like a missing one.
	_, err = env.svc.CheckAnswer(ctx, env.student, draft, AnswerCheck{QuestionID: question.ID, AnswerID: question.Answers[0].ID})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for draft quiz, got %v", err)
	}
	_, err = env.svc.CheckAnswer(ctx, env.student, 9999, AnswerCheck{QuestionID: question.ID, AnswerID: question.Answers[0].ID})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing quiz, got %v", err)
	}

	_, err = env.svc.CheckAnswer(ctx, env.student, published, AnswerCheck{QuestionID: 9999, AnswerID: question.Answers[0].ID})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign question, got %v", err)
	}
	_, err = env.svc.CheckAnswer(ctx, env.student, published, AnswerCheck{QuestionID: question.ID, AnswerID: 9999})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign answer, got %v", err)
	}
}

func TestCheckAnswerCorrectAndWrong(t *testing.T) {
	env := newTestEnv(t)
	quizID := env.createQuiz(t, "Alpha", model.StatusPublished)
	detail, err := env.store.GetQuizDetail(quizID)
	if err != nil {
		t.Fatalf("GetQuizDetail: %v", err)
	}
	question := detail.Questions[0]
	correct, wrong := question.Answers[0], question.Answers[1]

	res, err := env.svc.CheckAnswer(context.Background(), env.student, quizID, AnswerCheck{QuestionID: question.ID, AnswerID: correct.ID})
	if err != nil {
		t.Fatalf("CheckAnswer correct: %v", err)
	}
	if !res.IsCorrect || res.CorrectAnswerID != correct.ID {
		t.Errorf("unexpected result for correct answer: %+v", res)
	}
	if res.Explanation != "Because four is the sum." {
		t.Errorf("expected explainer text, got %q", res.Explanation)
	}
	if !env.explainer.got.WasCorrect || env.explainer.got.StudentAnswerText != "" {
		t.Errorf("unexpected explain request for correct answer: %+v", env.explainer.got)
	}

	res, err = env.svc.CheckAnswer(context.Background(), env.student, quizID, AnswerCheck{QuestionID: question.ID, AnswerID: wrong.ID})
	if err != nil {
		t.Fatalf("CheckAnswer wrong: %v", err)
	}
	if res.IsCorrect || res.CorrectAnswerID != correct.ID {
		t.Errorf("unexpected result for wrong answer: %+v", res)
	}
	if env.explainer.got.WasCorrect || env.explainer.got.StudentAnswerText != wrong.Text {
		t.Errorf("unexpected explain request for wrong answer: %+v", env.explainer.got)
	}
	if env.explainer.got.QuestionText != question.Text || env.explainer.got.CorrectAnswerText != correct.Text {
		t.Errorf("explain request missing question context: %+v", env.explainer.got)
	}
}

func TestCheckAnswerExplainerFailureDegrades(t *testing.T) {
	env := newTestEnv(t)
	env.explainer.err = errors.New("model overloaded")
	quizID := env.createQuiz(t, "Alpha", model.StatusPublished)
	detail, err := env.store.GetQuizDetail(quizID)
	if err != nil {
		t.Fatalf("GetQuizDetail: %v", err)
	}
	question := detail.Questions[0]

	res, err := env.svc.CheckAnswer(context.Background(), env.student, quizID, AnswerCheck{QuestionID: question.ID, AnswerID: question.Answers[0].ID})
	if err != nil {
		t.Fatalf("CheckAnswer: %v", err)
	}
	if !res.IsCorrect {
		t.Error("evaluation result must not depend on explanation availability")
	}
	if res.Explanation != explanationUnavailable {
		t.Errorf("expected placeholder explanation, got %q", res.Explanation)
	}
}

func TestSubmitResult(t *testing.T) {
	env := newTestEnv(t)
	quizID := env.createQuiz(t, "Alpha", model.StatusPublished)

	_, err := env.svc.SubmitResult(env.admin, quizID, 2, 2)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for admin, got %v", err)
	}
	_, err = env.svc.SubmitResult(env.student, 9999, 2, 2)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	_, err = env.svc.SubmitResult(env.student, quizID, 3, 2)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for score > max_score, got %v", err)
	}
	_, err = env.svc.SubmitResult(env.student, quizID, 1, 5)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for max_score mismatch, got %v", err)
	}

	r, err := env.svc.SubmitResult(env.student, quizID, 1, 2)
	if err != nil {
		t.Fatalf("SubmitResult: %v", err)
	}
	if r.Score != 1 || r.MaxScore != 2 {
		t.Errorf("unexpected result: %+v", r)
	}

	// Resubmission overwrites instead of accumulating.
	r, err = env.svc.SubmitResult(env.student, quizID, 2, 2)
	if err != nil {
		t.Fatalf("SubmitResult resubmission: %v", err)
	}
	if r.Score != 2 {
		t.Errorf("expected overwritten score 2, got %d", r.Score)
	}
	count, err := env.store.CountResultsByQuiz(quizID)
	if err != nil {
		t.Fatalf("CountResultsByQuiz: %v", err)
	}
	if count != 1 {
		t.Errorf("expected a single result row, got %d", count)
	}
}

func validGenerated(count int) *model.GeneratedQuiz {
	g := &model.GeneratedQuiz{Title: "Generated arithmetic quiz"}
	for i := 0; i < count; i++ {
		q := model.GeneratedQuestion{Text: "What is one plus one, attempt " + strings.Repeat("x", i+1) + "?"}
		for j := 0; j < 4; j++ {
			q.Answers = append(q.Answers, model.GeneratedAnswer{Text: "option", IsCorrect: j == 0})
		}
		g.Questions = append(g.Questions, q)
	}
	return g
}

func TestGenerateQuiz(t *testing.T) {
	env := newTestEnv(t)
	env.generator.quiz = validGenerated(5)

	detail, err := env.svc.GenerateQuiz(context.Background(), env.admin, GenerateRequest{
		Topic:         "arithmetic",
		QuestionCount: 5,
		LevelID:       env.levelID,
	})
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if detail.Status != model.StatusDraft {
		t.Errorf("generated quiz must start as a draft, got %q", detail.Status)
	}
	if detail.CreatorID != env.admin.ID {
		t.Errorf("expected creator %d, got %d", env.admin.ID, detail.CreatorID)
	}
	if len(detail.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(detail.Questions))
	}
	if env.generator.gotTopic != "arithmetic" || env.generator.gotCount != 5 {
		t.Errorf("generator called with %q/%d", env.generator.gotTopic, env.generator.gotCount)
	}
	if env.generator.gotLevel.ID != env.levelID {
		t.Errorf("generator called with level %d", env.generator.gotLevel.ID)
	}
}

func TestGenerateQuizValidation(t *testing.T) {
	env := newTestEnv(t)
	env.generator.quiz = validGenerated(5)
	ctx := context.Background()

	_, err := env.svc.GenerateQuiz(ctx, env.admin, GenerateRequest{Topic: "  ", QuestionCount: 5, LevelID: env.levelID})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty topic, got %v", err)
	}
	_, err = env.svc.GenerateQuiz(ctx, env.admin, GenerateRequest{Topic: "math", QuestionCount: 4, LevelID: env.levelID})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for low count, got %v", err)
	}
	_, err = env.svc.GenerateQuiz(ctx, env.admin, GenerateRequest{Topic: "math", QuestionCount: 21, LevelID: env.levelID})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for high count, got %v", err)
	}
	_, err = env.svc.GenerateQuiz(ctx, env.admin, GenerateRequest{Topic: "math", QuestionCount: 5, LevelID: 9999})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing level, got %v", err)
	}
}

func TestGenerateQuizCollaboratorFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := GenerateRequest{Topic: "math", QuestionCount: 5, LevelID: env.levelID}

	env.generator.err = errors.New("model overloaded")
	_, err := env.svc.GenerateQuiz(ctx, env.admin, req)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	env.generator.err = nil

	// Malformed output is rejected, not repaired.
	bad := validGenerated(5)
	bad.Questions[2].Answers = bad.Questions[2].Answers[:3]
	env.generator.quiz = bad
	_, err = env.svc.GenerateQuiz(ctx, env.admin, req)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for wrong answer count, got %v", err)
	}

	bad = validGenerated(5)
	bad.Questions[0].Answers[1].IsCorrect = true
	env.generator.quiz = bad
	_, err = env.svc.GenerateQuiz(ctx, env.admin, req)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for two correct answers, got %v", err)
	}

	bad = validGenerated(5)
	bad.Title = ""
	env.generator.quiz = bad
	_, err = env.svc.GenerateQuiz(ctx, env.admin, req)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for missing title, got %v", err)
	}

	// A rejected generation leaves nothing behind.
	list, err := env.store.ListQuizSummaries(store.QuizListOptions{SortBy: model.SortByLevel, Order: model.SortAsc})
	if err != nil {
		t.Fatalf("ListQuizSummaries: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no quizzes after failed generations, got %d", len(list))
	}
}

func TestDeleteQuiz(t *testing.T) {
	env := newTestEnv(t)
	quizID := env.createQuiz(t, "Alpha", model.StatusPublished)

	if err := env.svc.DeleteQuiz(quizID); err != nil {
		t.Fatalf("DeleteQuiz: %v", err)
	}
	err := env.svc.DeleteQuiz(quizID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
