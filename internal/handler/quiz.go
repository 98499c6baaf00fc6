package handler

import (
	"log/slog"
	"net/http"

	"quizhub/internal/model"
	"quizhub/internal/service"
)

// Student-facing quiz views omit the is_correct flag so quiz content
// never reveals the answer key.
type studentAnswerView struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type studentQuestionView struct {
	ID      int64               `json:"id"`
	QuizID  int64               `json:"quiz_id"`
	Text    string              `json:"text"`
	Answers []studentAnswerView `json:"answers"`
}

type studentQuizView struct {
	model.Quiz
	Questions []studentQuestionView `json:"questions"`
}

func toStudentView(detail *model.QuizDetail) studentQuizView {
	view := studentQuizView{Quiz: detail.Quiz, Questions: []studentQuestionView{}}
	for _, q := range detail.Questions {
		qv := studentQuestionView{ID: q.ID, QuizID: q.QuizID, Text: q.Text, Answers: []studentAnswerView{}}
		for _, a := range q.Answers {
			qv.Answers = append(qv.Answers, studentAnswerView{ID: a.ID, Text: a.Text})
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

func writeQuizDetail(w http.ResponseWriter, status int, user *model.User, detail *model.QuizDetail) {
	if user.Role == model.RoleStudent {
		writeJSON(w, status, toStudentView(detail))
		return
	}
	writeJSON(w, status, detail)
}

func (h *Handler) handleListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.store.ListLevels()
	if err != nil {
		slog.Error("list levels", "error", err)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if levels == nil {
		levels = []model.Level{}
	}
	writeJSON(w, http.StatusOK, levels)
}

func (h *Handler) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	q := r.URL.Query()

	quizzes, err := h.service.ListQuizzes(user, q.Get("sort_by"), q.Get("order"), q.Get("status"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if quizzes == nil {
		quizzes = []model.QuizSummary{}
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	user := model.UserFromContext(r.Context())

	detail, err := h.service.GetQuiz(user, quizID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeQuizDetail(w, http.StatusOK, user, detail)
}

func (h *Handler) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req service.GenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user := model.UserFromContext(r.Context())

	detail, err := h.service.GenerateQuiz(r.Context(), user, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	slog.Info("quiz generated", "quiz_id", detail.ID, "topic", req.Topic, "creator", user.Username)
	writeJSON(w, http.StatusCreated, detail)
}

func (h *Handler) handleUpdateQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	var upd model.QuizUpdate
	if !decodeBody(w, r, &upd) {
		return
	}

	detail, err := h.service.UpdateQuiz(quizID, upd)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteQuiz(quizID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCheckAnswer(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	var check service.AnswerCheck
	if !decodeBody(w, r, &check) {
		return
	}
	user := model.UserFromContext(r.Context())

	result, err := h.service.CheckAnswer(r.Context(), user, quizID, check)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type submitResultRequest struct {
	Score    int `json:"score"`
	MaxScore int `json:"max_score"`
}

func (h *Handler) handleSubmitResult(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	var req submitResultRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user := model.UserFromContext(r.Context())

	result, err := h.service.SubmitResult(user, quizID, req.Score, req.MaxScore)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
