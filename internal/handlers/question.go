package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vidsage-backend/internal/middleware"
	"vidsage-backend/internal/models"
	"vidsage-backend/internal/services"
)

type QuestionHandler struct {
	qaService *services.QAService
}

func NewQuestionHandler(qaService *services.QAService) *QuestionHandler {
	return &QuestionHandler{qaService: qaService}
}

// Ask answers a question about a completed video and records the
// exchange.
func (h *QuestionHandler) Ask(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid video ID", r))
		return
	}

	var req models.AskQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("MISSING_FIELDS", "question is required", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	exchange, err := h.qaService.AskQuestion(r.Context(), jobID, userID, req.Question)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data":    exchange,
		"message": "Question answered successfully",
	})
}

// ListQuestions returns the caller's thread for a video, oldest first.
func (h *QuestionHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid video ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	exchanges, err := h.qaService.ListQuestions(r.Context(), jobID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if exchanges == nil {
		exchanges = []*models.QuestionExchange{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": exchanges})
}
