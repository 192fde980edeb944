package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"quiz-attempt-service/internal/domain"
)

// Handler serves the REST surface of the attempt engine.
type Handler struct {
	engine Engine
}

func NewHandler(engine Engine) *Handler {
	return &Handler{engine: engine}
}

type answerRequest struct {
	Answer any `json:"answer"`
}

var errMissingUser = errors.New("missing user identity")

func (h *Handler) startAttempt(w http.ResponseWriter, r *http.Request) {
	quizID, ok := int64Param(w, r, "quizID")
	if !ok {
		return
	}
	userID, ok := UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorPayload{Message: errMissingUser.Error()})
		return
	}
	view, err := h.engine.StartQuizAttempt(r.Context(), quizID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) listAttempts(w http.ResponseWriter, r *http.Request) {
	quizID, ok := int64Param(w, r, "quizID")
	if !ok {
		return
	}
	userID, ok := UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorPayload{Message: errMissingUser.Error()})
		return
	}
	history, err := h.engine.ListAttempts(r.Context(), userID, quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) updateAnswer(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attemptID")
	questionID, ok := int64Param(w, r, "questionID")
	if !ok {
		return
	}
	var req answerRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "bad json"})
		return
	}
	if err := authorizeAttempt(r.Context(), h.engine, attemptID); err != nil {
		writeError(w, err)
		return
	}
	score, err := h.engine.UpdateAnswerAndScore(r.Context(), attemptID, questionID, req.Answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (h *Handler) resumeAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attemptID")
	if err := authorizeAttempt(r.Context(), h.engine, attemptID); err != nil {
		writeError(w, err)
		return
	}
	view, err := h.engine.ResumeQuizAttempt(r.Context(), attemptID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) submitAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attemptID")
	if err := authorizeAttempt(r.Context(), h.engine, attemptID); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.engine.SubmitQuizAttempt(r.Context(), attemptID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) attemptResult(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attemptID")
	if err := authorizeAttempt(r.Context(), h.engine, attemptID); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.engine.GetAttemptResult(r.Context(), attemptID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// authorizeAttempt rejects access to another user's attempt when the caller is
// known. Anonymous callers are trusted to be internal.
func authorizeAttempt(ctx context.Context, engine Engine, attemptID string) error {
	userID, ok := UserFromContext(ctx)
	if !ok {
		return nil
	}
	attempt, err := engine.GetAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	if attempt.UserID != userID {
		return domain.ErrNotAttemptOwner
	}
	return nil
}

func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid " + name})
		return 0, false
	}
	return v, true
}
