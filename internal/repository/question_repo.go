package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"vidsage-backend/internal/models"
)

type QuestionRepo struct {
	pool *pgxpool.Pool
}

func NewQuestionRepo(pool *pgxpool.Pool) *QuestionRepo {
	return &QuestionRepo{pool: pool}
}

func (r *QuestionRepo) Create(ctx context.Context, q *models.QuestionExchange) error {
	q.ID = uuid.New()

	query := `INSERT INTO question_exchanges (id, video_job_id, user_id, question, answer)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		q.ID, q.VideoJobID, q.UserID, q.Question, q.Answer,
	).Scan(&q.CreatedAt)
}

// ListRecent returns the newest exchanges of one user's thread on a job,
// most recent first, capped at limit. Used to build the conversation
// context window.
func (r *QuestionRepo) ListRecent(ctx context.Context, jobID, userID uuid.UUID, limit int) ([]*models.QuestionExchange, error) {
	query := `SELECT id, video_job_id, user_id, question, answer, created_at
		FROM question_exchanges
		WHERE video_job_id = $1 AND user_id = $2
		ORDER BY created_at DESC LIMIT $3`

	return r.queryExchanges(ctx, query, jobID, userID, limit)
}

// ListByThread returns the full thread in chronological order for display.
func (r *QuestionRepo) ListByThread(ctx context.Context, jobID, userID uuid.UUID) ([]*models.QuestionExchange, error) {
	query := `SELECT id, video_job_id, user_id, question, answer, created_at
		FROM question_exchanges
		WHERE video_job_id = $1 AND user_id = $2
		ORDER BY created_at ASC`

	return r.queryExchanges(ctx, query, jobID, userID)
}

func (r *QuestionRepo) queryExchanges(ctx context.Context, query string, args ...interface{}) ([]*models.QuestionExchange, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exchanges []*models.QuestionExchange
	for rows.Next() {
		q := &models.QuestionExchange{}
		if err := rows.Scan(
			&q.ID, &q.VideoJobID, &q.UserID, &q.Question, &q.Answer, &q.CreatedAt,
		); err != nil {
			return nil, err
		}
		exchanges = append(exchanges, q)
	}
	return exchanges, rows.Err()
}
