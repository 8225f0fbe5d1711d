package services

import (
	"context"
	"errors"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"vidsage-backend/internal/models"
)

type videoJobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.VideoJob, error)
}

type questionStore interface {
	Create(ctx context.Context, q *models.QuestionExchange) error
	ListRecent(ctx context.Context, jobID, userID uuid.UUID, limit int) ([]*models.QuestionExchange, error)
	ListByThread(ctx context.Context, jobID, userID uuid.UUID) ([]*models.QuestionExchange, error)
}

// AnswerEngine is the outbound AI collaborator for question answering.
type AnswerEngine interface {
	AnswerQuestion(ctx context.Context, transcript, summary, question string, history []models.QAPair) (string, error)
}

// QAService validates, answers and persists questions against completed
// video jobs.
type QAService struct {
	jobs      videoJobStore
	questions questionStore
	engine    AnswerEngine

	// One mutex per (job, asker) thread. Serializing the read-window +
	// append keeps two near-simultaneous questions from the same user
	// from building overlapping context windows.
	mu      sync.Mutex
	threads map[string]*sync.Mutex
}

func NewQAService(jobs videoJobStore, questions questionStore, engine AnswerEngine) *QAService {
	return &QAService{
		jobs:      jobs,
		questions: questions,
		engine:    engine,
		threads:   make(map[string]*sync.Mutex),
	}
}

func (s *QAService) threadLock(jobID, userID uuid.UUID) *sync.Mutex {
	key := jobID.String() + ":" + userID.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.threads[key]
	if !ok {
		lock = &sync.Mutex{}
		s.threads[key] = lock
	}
	return lock
}

// AskQuestion runs the full ask flow: length validation, ownership and
// readiness checks, context building, AI answer, atomic persist. Exactly
// one exchange is created per successful call; rejected paths create
// nothing.
func (s *QAService) AskQuestion(ctx context.Context, jobID, askerID uuid.UUID, question string) (*models.QuestionExchange, error) {
	// Length check runs before anything is loaded.
	if n := utf8.RuneCountInString(question); n < models.QuestionMinLength || n > models.QuestionMaxLength {
		return nil, &LengthError{Field: "question", Min: models.QuestionMinLength, Max: models.QuestionMaxLength}
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "Video not found"}
		}
		return nil, err
	}

	if job.UserID != askerID {
		return nil, &ForbiddenError{Message: "You do not have access to this video"}
	}

	if job.Status != models.StatusCompleted {
		return nil, &NotReadyError{Status: job.Status}
	}

	lock := s.threadLock(jobID, askerID)
	lock.Lock()
	defer lock.Unlock()

	recent, err := s.questions.ListRecent(ctx, jobID, askerID, ContextWindowSize)
	if err != nil {
		return nil, err
	}
	history := BuildContext(recent)

	transcript, summary := "", ""
	if job.Transcript != nil {
		transcript = *job.Transcript
	}
	if job.Summary != nil {
		summary = *job.Summary
	}

	answer, err := s.engine.AnswerQuestion(ctx, transcript, summary, question, history)
	if err != nil {
		return nil, err
	}

	exchange := &models.QuestionExchange{
		VideoJobID: jobID,
		UserID:     askerID,
		Question:   question,
		Answer:     answer,
	}
	if err := s.questions.Create(ctx, exchange); err != nil {
		return nil, err
	}

	return exchange, nil
}

// ListQuestions returns the caller's thread on a job in chronological
// order. A job that is absent and a job owned by someone else produce the
// same response, so existence of other users' videos is never confirmed.
func (s *QAService) ListQuestions(ctx context.Context, jobID, askerID uuid.UUID) ([]*models.QuestionExchange, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ForbiddenError{Message: "You do not have access to this video"}
		}
		return nil, err
	}

	if job.UserID != askerID {
		return nil, &ForbiddenError{Message: "You do not have access to this video"}
	}

	return s.questions.ListByThread(ctx, jobID, askerID)
}
