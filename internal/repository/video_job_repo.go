package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"vidsage-backend/internal/models"
)

// ErrInvalidTransition is returned when a status update would move a job
// backwards (e.g. completed -> processing). Every transition UPDATE is
// guarded by the expected prior status, so a stale or duplicate update
// affects zero rows.
var ErrInvalidTransition = errors.New("invalid job status transition")

type VideoJobRepo struct {
	pool *pgxpool.Pool
}

func NewVideoJobRepo(pool *pgxpool.Pool) *VideoJobRepo {
	return &VideoJobRepo{pool: pool}
}

func (r *VideoJobRepo) Create(ctx context.Context, j *models.VideoJob) error {
	j.ID = uuid.New()
	j.Status = models.StatusPending

	query := `INSERT INTO video_jobs (id, user_id, source_url, status)
		VALUES ($1, $2, $3, $4) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		j.ID, j.UserID, j.SourceURL, j.Status,
	).Scan(&j.CreatedAt)
}

func (r *VideoJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.VideoJob, error) {
	j := &models.VideoJob{}
	query := `SELECT id, user_id, source_url, video_id, status, title, thumbnail,
		duration_seconds, transcript, summary, error_message, created_at
		FROM video_jobs WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&j.ID, &j.UserID, &j.SourceURL, &j.VideoID, &j.Status, &j.Title,
		&j.Thumbnail, &j.DurationSeconds, &j.Transcript, &j.Summary,
		&j.ErrorMessage, &j.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (r *VideoJobRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.VideoJob, error) {
	query := `SELECT id, user_id, source_url, video_id, status, title, thumbnail,
		duration_seconds, transcript, summary, error_message, created_at
		FROM video_jobs WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.VideoJob
	for rows.Next() {
		j := &models.VideoJob{}
		if err := rows.Scan(
			&j.ID, &j.UserID, &j.SourceURL, &j.VideoID, &j.Status, &j.Title,
			&j.Thumbnail, &j.DurationSeconds, &j.Transcript, &j.Summary,
			&j.ErrorMessage, &j.CreatedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// MarkProcessing moves a pending job into processing.
func (r *VideoJobRepo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE video_jobs SET status = $1 WHERE id = $2 AND status = $3",
		models.StatusProcessing, id, models.StatusPending,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// SetResolved records the canonical video ID once resolution succeeds.
func (r *VideoJobRepo) SetResolved(ctx context.Context, id uuid.UUID, videoID string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE video_jobs SET video_id = $1 WHERE id = $2", videoID, id)
	return err
}

func (r *VideoJobRepo) SetMetadata(ctx context.Context, id uuid.UUID, meta *models.VideoMetadata) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE video_jobs SET title = $1, thumbnail = $2, duration_seconds = $3 WHERE id = $4`,
		meta.Title, meta.Thumbnail, meta.DurationSeconds, id,
	)
	return err
}

// MarkCompleted persists the processing result and finishes the job.
// Transcript and summary are only ever written together with the
// completed status.
func (r *VideoJobRepo) MarkCompleted(ctx context.Context, id uuid.UUID, transcript, summary string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE video_jobs SET status = $1, transcript = $2, summary = $3
		 WHERE id = $4 AND status = $5`,
		models.StatusCompleted, transcript, summary, id, models.StatusProcessing,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// MarkFailed terminates the job with a human-readable error message.
// Allowed from pending or processing; terminal states stay put.
func (r *VideoJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE video_jobs SET status = $1, error_message = $2
		 WHERE id = $3 AND status IN ($4, $5)`,
		models.StatusFailed, message, id, models.StatusPending, models.StatusProcessing,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}
