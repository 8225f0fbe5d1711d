package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"vidsage-backend/internal/models"
)

// ─── Test Doubles ───

type fakeJobStore struct {
	jobs    map[uuid.UUID]*models.VideoJob
	getErr  error
	getCall int
}

func (f *fakeJobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.VideoJob, error) {
	f.getCall++
	if f.getErr != nil {
		return nil, f.getErr
	}
	job, ok := f.jobs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return job, nil
}

type fakeQuestionStore struct {
	recent    []*models.QuestionExchange
	created   []*models.QuestionExchange
	createErr error

	// Thread the last query was scoped to.
	queriedJobID  uuid.UUID
	queriedUserID uuid.UUID
}

func (f *fakeQuestionStore) Create(ctx context.Context, q *models.QuestionExchange) error {
	if f.createErr != nil {
		return f.createErr
	}
	q.ID = uuid.New()
	f.created = append(f.created, q)
	return nil
}

func (f *fakeQuestionStore) ListRecent(ctx context.Context, jobID, userID uuid.UUID, limit int) ([]*models.QuestionExchange, error) {
	f.queriedJobID = jobID
	f.queriedUserID = userID
	if limit < len(f.recent) {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakeQuestionStore) ListByThread(ctx context.Context, jobID, userID uuid.UUID) ([]*models.QuestionExchange, error) {
	f.queriedJobID = jobID
	f.queriedUserID = userID
	// Thread order is oldest first.
	out := make([]*models.QuestionExchange, len(f.recent))
	for i, q := range f.recent {
		out[len(f.recent)-1-i] = q
	}
	return out, nil
}

type fakeAnswerEngine struct {
	answer  string
	err     error
	history []models.QAPair
	calls   int
}

func (f *fakeAnswerEngine) AnswerQuestion(ctx context.Context, transcript, summary, question string, history []models.QAPair) (string, error) {
	f.calls++
	f.history = history
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func strPtr(s string) *string { return &s }

func completedJob(owner uuid.UUID) *models.VideoJob {
	return &models.VideoJob{
		ID:         uuid.New(),
		UserID:     owner,
		SourceURL:  "https://youtu.be/dQw4w9WgXcQ",
		Status:     models.StatusCompleted,
		Transcript: strPtr("full transcript"),
		Summary:    strPtr("short summary"),
	}
}

func newQATestService(job *models.VideoJob) (*QAService, *fakeJobStore, *fakeQuestionStore, *fakeAnswerEngine) {
	jobs := &fakeJobStore{jobs: map[uuid.UUID]*models.VideoJob{}}
	if job != nil {
		jobs.jobs[job.ID] = job
	}
	questions := &fakeQuestionStore{}
	engine := &fakeAnswerEngine{answer: "the answer"}
	return NewQAService(jobs, questions, engine), jobs, questions, engine
}

// ─── AskQuestion Tests ───

func TestAskQuestion_LengthValidation(t *testing.T) {
	tests := []struct {
		name     string
		question string
	}{
		{"too short", "short?"},
		{"empty", ""},
		{"too long", strings.Repeat("a", 501)},
		{"too long multibyte", strings.Repeat("é", 501)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			owner := uuid.New()
			job := completedJob(owner)
			svc, jobs, questions, engine := newQATestService(job)

			_, err := svc.AskQuestion(context.Background(), job.ID, owner, tc.question)

			var lengthErr *LengthError
			if !errors.As(err, &lengthErr) {
				t.Fatalf("Expected LengthError, got %v", err)
			}
			// Validation runs before anything is loaded or answered.
			if jobs.getCall != 0 {
				t.Errorf("Job store hit %d times on invalid input", jobs.getCall)
			}
			if engine.calls != 0 {
				t.Errorf("Engine hit %d times on invalid input", engine.calls)
			}
			if len(questions.created) != 0 {
				t.Errorf("Exchange created on invalid input")
			}
		})
	}
}

func TestAskQuestion_RuneCountNotByteCount(t *testing.T) {
	owner := uuid.New()
	job := completedJob(owner)
	svc, _, _, _ := newQATestService(job)

	// 10 runes but 20 bytes. Must be accepted.
	if _, err := svc.AskQuestion(context.Background(), job.ID, owner, strings.Repeat("é", 10)); err != nil {
		t.Fatalf("Expected 10-rune question to pass validation, got %v", err)
	}
}

func TestAskQuestion_VideoNotFound(t *testing.T) {
	svc, _, questions, _ := newQATestService(nil)

	_, err := svc.AskQuestion(context.Background(), uuid.New(), uuid.New(), "what is this video about?")

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
	if len(questions.created) != 0 {
		t.Error("Exchange created for missing video")
	}
}

func TestAskQuestion_NotOwner(t *testing.T) {
	job := completedJob(uuid.New())
	svc, _, questions, engine := newQATestService(job)

	_, err := svc.AskQuestion(context.Background(), job.ID, uuid.New(), "what is this video about?")

	var forbidden *ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("Expected ForbiddenError, got %v", err)
	}
	if engine.calls != 0 {
		t.Error("Engine invoked for foreign video")
	}
	if len(questions.created) != 0 {
		t.Error("Exchange created for foreign video")
	}
}

func TestAskQuestion_NotCompleted(t *testing.T) {
	for _, status := range []string{models.StatusPending, models.StatusProcessing, models.StatusFailed} {
		t.Run(status, func(t *testing.T) {
			owner := uuid.New()
			job := completedJob(owner)
			job.Status = status
			svc, _, questions, engine := newQATestService(job)

			_, err := svc.AskQuestion(context.Background(), job.ID, owner, "what is this video about?")

			var notReady *NotReadyError
			if !errors.As(err, &notReady) {
				t.Fatalf("Expected NotReadyError, got %v", err)
			}
			if !strings.Contains(notReady.Error(), status) {
				t.Errorf("Error %q does not name status %q", notReady.Error(), status)
			}
			if engine.calls != 0 {
				t.Error("Engine invoked for unready video")
			}
			if len(questions.created) != 0 {
				t.Error("Exchange created for unready video")
			}
		})
	}
}

func TestAskQuestion_Success(t *testing.T) {
	owner := uuid.New()
	job := completedJob(owner)
	svc, _, questions, engine := newQATestService(job)

	exchange, err := svc.AskQuestion(context.Background(), job.ID, owner, "what is this video about?")
	if err != nil {
		t.Fatalf("AskQuestion failed: %v", err)
	}

	if exchange.Answer != "the answer" {
		t.Errorf("Answer = %q, want %q", exchange.Answer, "the answer")
	}
	if exchange.VideoJobID != job.ID || exchange.UserID != owner {
		t.Error("Exchange not bound to the asked job and asker")
	}
	if len(questions.created) != 1 {
		t.Fatalf("Expected exactly 1 exchange created, got %d", len(questions.created))
	}
	if engine.calls != 1 {
		t.Errorf("Expected exactly 1 engine call, got %d", engine.calls)
	}
}

func TestAskQuestion_WindowScopedToAskerThread(t *testing.T) {
	owner := uuid.New()
	job := completedJob(owner)
	svc, _, questions, _ := newQATestService(job)
	questions.recent = recentExchanges(2)

	if _, err := svc.AskQuestion(context.Background(), job.ID, owner, "what is this video about?"); err != nil {
		t.Fatalf("AskQuestion failed: %v", err)
	}

	// The context window must be read from the asking user's own thread
	// on this job, never the whole job's exchanges.
	if questions.queriedJobID != job.ID {
		t.Errorf("Window queried for job %s, want %s", questions.queriedJobID, job.ID)
	}
	if questions.queriedUserID != owner {
		t.Errorf("Window queried for user %s, want asker %s", questions.queriedUserID, owner)
	}
}

func TestAskQuestion_ContextWindowChronological(t *testing.T) {
	owner := uuid.New()
	job := completedJob(owner)
	svc, _, questions, engine := newQATestService(job)

	// Seven prior exchanges, most recent first.
	questions.recent = recentExchanges(7)

	if _, err := svc.AskQuestion(context.Background(), job.ID, owner, "and what happens at the end?"); err != nil {
		t.Fatalf("AskQuestion failed: %v", err)
	}

	if len(engine.history) != ContextWindowSize {
		t.Fatalf("Engine got %d history pairs, want %d", len(engine.history), ContextWindowSize)
	}
	if engine.history[0].Question != "q4" || engine.history[ContextWindowSize-1].Question != "q0" {
		t.Errorf("History not chronological: first %q, last %q",
			engine.history[0].Question, engine.history[ContextWindowSize-1].Question)
	}
}

func TestAskQuestion_EngineFailureCreatesNothing(t *testing.T) {
	owner := uuid.New()
	job := completedJob(owner)
	svc, _, questions, engine := newQATestService(job)
	engine.err = errors.New("model overloaded")

	_, err := svc.AskQuestion(context.Background(), job.ID, owner, "what is this video about?")
	if err == nil {
		t.Fatal("Expected error from engine failure")
	}
	if len(questions.created) != 0 {
		t.Error("Exchange created despite engine failure")
	}
}

// ─── ListQuestions Tests ───

func TestListQuestions_AbsentAndForeignLookAlike(t *testing.T) {
	job := completedJob(uuid.New())
	svc, _, _, _ := newQATestService(job)

	asker := uuid.New()

	_, errAbsent := svc.ListQuestions(context.Background(), uuid.New(), asker)
	_, errForeign := svc.ListQuestions(context.Background(), job.ID, asker)

	var f1, f2 *ForbiddenError
	if !errors.As(errAbsent, &f1) {
		t.Fatalf("Expected ForbiddenError for absent video, got %v", errAbsent)
	}
	if !errors.As(errForeign, &f2) {
		t.Fatalf("Expected ForbiddenError for foreign video, got %v", errForeign)
	}
	if f1.Message != f2.Message {
		t.Errorf("Absent and foreign errors differ: %q vs %q", f1.Message, f2.Message)
	}
}

func TestListQuestions_Owner(t *testing.T) {
	owner := uuid.New()
	job := completedJob(owner)
	svc, _, questions, _ := newQATestService(job)
	questions.recent = recentExchanges(3)

	exchanges, err := svc.ListQuestions(context.Background(), job.ID, owner)
	if err != nil {
		t.Fatalf("ListQuestions failed: %v", err)
	}
	if len(exchanges) != 3 {
		t.Fatalf("Expected 3 exchanges, got %d", len(exchanges))
	}
	// Oldest first.
	if exchanges[0].Question != "q2" {
		t.Errorf("First exchange = %q, want %q", exchanges[0].Question, "q2")
	}
	// Listing reads the caller's thread only.
	if questions.queriedJobID != job.ID || questions.queriedUserID != owner {
		t.Errorf("Thread queried for (%s, %s), want (%s, %s)",
			questions.queriedJobID, questions.queriedUserID, job.ID, owner)
	}
}
