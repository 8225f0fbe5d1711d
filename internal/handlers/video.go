package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"vidsage-backend/internal/middleware"
	"vidsage-backend/internal/models"
	"vidsage-backend/internal/services"
	"vidsage-backend/internal/worker"
)

type videoJobRepository interface {
	Create(ctx context.Context, j *models.VideoJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.VideoJob, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.VideoJob, error)
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
}

type VideoHandler struct {
	jobRepo videoJobRepository
	queue   *redis.Client
}

func NewVideoHandler(jobRepo videoJobRepository, queue *redis.Client) *VideoHandler {
	return &VideoHandler{jobRepo: jobRepo, queue: queue}
}

// Submit accepts a video link, creates a pending job and dispatches it to
// the processing queue. The link is resolved up front so an unusable one
// is rejected before anything is persisted.
func (h *VideoHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	req.SourceURL = strings.TrimSpace(req.SourceURL)
	if req.SourceURL == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("MISSING_FIELDS", "source_url is required", r))
		return
	}

	if services.ExtractVideoID(req.SourceURL) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid or unsupported YouTube link", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	job := &models.VideoJob{
		UserID:    userID,
		SourceURL: req.SourceURL,
	}
	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create video job", r))
		return
	}

	queued, _ := json.Marshal(worker.QueuedJob{JobID: job.ID})
	if err := h.queue.LPush(r.Context(), worker.QueueName, string(queued)).Err(); err != nil {
		log.Printf("failed to enqueue video job %s: %v", job.ID, err)
		_ = h.jobRepo.MarkFailed(r.Context(), job.ID, "processing queue is unavailable")
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to enqueue video job", r))
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid video ID", r))
		return
	}

	job, err := h.jobRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Video not found", r))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load video", r))
		return
	}

	// A foreign job reads the same as a missing one.
	userID := middleware.GetUserID(r.Context())
	if job.UserID != userID {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Video not found", r))
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	jobs, err := h.jobRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list videos", r))
		return
	}

	if jobs == nil {
		jobs = []*models.VideoJob{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": jobs})
}
