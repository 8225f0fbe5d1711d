package models

import (
	"time"

	"github.com/google/uuid"
)

// VideoJob statuses. Transitions only move forward:
// pending -> processing -> completed | failed.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// IsTerminal reports whether a job status admits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

type VideoJob struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	SourceURL       string    `json:"source_url"`
	VideoID         *string   `json:"video_id"`
	Status          string    `json:"status"`
	Title           *string   `json:"title"`
	Thumbnail       *string   `json:"thumbnail"`
	DurationSeconds *int      `json:"duration_seconds"`
	Transcript      *string   `json:"transcript"`
	Summary         *string   `json:"summary"`
	ErrorMessage    *string   `json:"error_message"`
	CreatedAt       time.Time `json:"created_at"`
}

type SubmitVideoRequest struct {
	SourceURL string `json:"source_url"`
}

type VideoMetadata struct {
	VideoID         string `json:"video_id"`
	Title           string `json:"title"`
	Thumbnail       string `json:"thumbnail"`
	DurationSeconds int    `json:"duration_seconds"`
}
