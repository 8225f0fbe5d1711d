package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"vidsage-backend/internal/models"
	"vidsage-backend/internal/repository"
	"vidsage-backend/internal/services"
)

// ─── Test Doubles ───

// memJobStore mirrors the repository's guarded transitions so the
// pipeline is tested against the same monotonic status rules production
// enforces.
type memJobStore struct {
	job        *models.VideoJob
	getErr     error
	statusLog  []string
	failMsg    string
	transcript string
	summary    string
}

func newMemJobStore(sourceURL string) *memJobStore {
	return &memJobStore{
		job: &models.VideoJob{
			ID:        uuid.New(),
			UserID:    uuid.New(),
			SourceURL: sourceURL,
			Status:    models.StatusPending,
		},
	}
}

func (s *memJobStore) setStatus(status string) {
	s.job.Status = status
	s.statusLog = append(s.statusLog, status)
}

func (s *memJobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.VideoJob, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	copied := *s.job
	return &copied, nil
}

func (s *memJobStore) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	if s.job.Status != models.StatusPending {
		return repository.ErrInvalidTransition
	}
	s.setStatus(models.StatusProcessing)
	return nil
}

func (s *memJobStore) SetResolved(ctx context.Context, id uuid.UUID, videoID string) error {
	s.job.VideoID = &videoID
	return nil
}

func (s *memJobStore) SetMetadata(ctx context.Context, id uuid.UUID, meta *models.VideoMetadata) error {
	s.job.Title = &meta.Title
	s.job.DurationSeconds = &meta.DurationSeconds
	return nil
}

func (s *memJobStore) MarkCompleted(ctx context.Context, id uuid.UUID, transcript, summary string) error {
	if s.job.Status != models.StatusProcessing {
		return repository.ErrInvalidTransition
	}
	s.transcript = transcript
	s.summary = summary
	s.setStatus(models.StatusCompleted)
	return nil
}

func (s *memJobStore) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	if models.IsTerminal(s.job.Status) {
		return repository.ErrInvalidTransition
	}
	s.failMsg = message
	s.setStatus(models.StatusFailed)
	return nil
}

type fakeMedia struct {
	meta        *models.VideoMetadata
	metaErr     error
	captions    string
	captionsErr error
	audio       []byte
	audioErr    error
}

func (f *fakeMedia) GetMetadata(ctx context.Context, videoID string) (*models.VideoMetadata, error) {
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	if f.meta != nil {
		return f.meta, nil
	}
	return &models.VideoMetadata{VideoID: videoID, Title: "A Video", DurationSeconds: 300}, nil
}

func (f *fakeMedia) DownloadAudio(ctx context.Context, videoID string) ([]byte, string, error) {
	if f.audioErr != nil {
		return nil, "", f.audioErr
	}
	if f.audio != nil {
		return f.audio, "audio/mp4", nil
	}
	return []byte("audio-bytes"), "audio/mp4", nil
}

func (f *fakeMedia) GetCaptions(videoID string) (string, error) {
	if f.captionsErr != nil {
		return "", f.captionsErr
	}
	return f.captions, nil
}

type fakeEngine struct {
	transcript string
	summary    string
	err        error
	audioCalls int
	textCalls  int
}

func (f *fakeEngine) SummarizeAudio(ctx context.Context, audio []byte, mimeType string) (string, string, error) {
	f.audioCalls++
	if f.err != nil {
		return "", "", f.err
	}
	return f.transcript, f.summary, nil
}

func (f *fakeEngine) SummarizeTranscript(ctx context.Context, transcript string) (string, error) {
	f.textCalls++
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

type fakeEvents struct {
	messages []models.WSMessage
}

func (f *fakeEvents) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	f.messages = append(f.messages, msg)
}

func (f *fakeEvents) types() []string {
	out := make([]string, len(f.messages))
	for i, m := range f.messages {
		out[i] = m.Type
	}
	return out
}

// ─── Pipeline Tests ───

func TestProcess_HappyPathAudio(t *testing.T) {
	store := newMemJobStore("https://youtu.be/dQw4w9WgXcQ")
	media := &fakeMedia{captionsErr: errors.New("no caption tracks")}
	engine := &fakeEngine{transcript: "spoken words", summary: "what was said"}
	events := &fakeEvents{}

	p := New(store, media, engine, events, 3600)
	if err := p.Process(context.Background(), store.job.ID); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if store.job.Status != models.StatusCompleted {
		t.Fatalf("Status = %q, want completed", store.job.Status)
	}
	if store.transcript != "spoken words" || store.summary != "what was said" {
		t.Errorf("Persisted transcript/summary = %q/%q", store.transcript, store.summary)
	}
	if store.job.VideoID == nil || *store.job.VideoID != "dQw4w9WgXcQ" {
		t.Error("Video ID not resolved and saved")
	}
	if engine.audioCalls != 1 {
		t.Errorf("SummarizeAudio calls = %d, want 1", engine.audioCalls)
	}

	got := events.types()
	if got[len(got)-1] != "completed" {
		t.Errorf("Last event = %q, want completed", got[len(got)-1])
	}
}

func TestProcess_CaptionsFastPath(t *testing.T) {
	store := newMemJobStore("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	media := &fakeMedia{captions: "caption transcript", audioErr: errors.New("audio should not be touched")}
	engine := &fakeEngine{summary: "summary from captions"}

	p := New(store, media, engine, &fakeEvents{}, 3600)
	if err := p.Process(context.Background(), store.job.ID); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if store.transcript != "caption transcript" {
		t.Errorf("Transcript = %q, want caption track", store.transcript)
	}
	if engine.audioCalls != 0 || engine.textCalls != 1 {
		t.Errorf("Engine calls audio=%d text=%d, want 0/1", engine.audioCalls, engine.textCalls)
	}
}

func TestProcess_InvalidLink(t *testing.T) {
	store := newMemJobStore("not a youtube link at all")
	engine := &fakeEngine{}
	events := &fakeEvents{}

	p := New(store, &fakeMedia{}, engine, events, 3600)
	if err := p.Process(context.Background(), store.job.ID); err == nil {
		t.Fatal("Expected error for unresolvable link")
	}

	if store.job.Status != models.StatusFailed {
		t.Fatalf("Status = %q, want failed", store.job.Status)
	}
	if store.failMsg != "invalid or unsupported link" {
		t.Errorf("Failure message = %q", store.failMsg)
	}
	if engine.audioCalls != 0 || engine.textCalls != 0 {
		t.Error("Engine invoked for unresolvable link")
	}

	got := events.types()
	if got[len(got)-1] != "error" {
		t.Errorf("Last event = %q, want error", got[len(got)-1])
	}
}

func TestProcess_DurationRejectedBeforeEngine(t *testing.T) {
	store := newMemJobStore("https://youtu.be/dQw4w9WgXcQ")
	media := &fakeMedia{meta: &models.VideoMetadata{VideoID: "dQw4w9WgXcQ", Title: "Long", DurationSeconds: 7200}}
	engine := &fakeEngine{}

	p := New(store, media, engine, &fakeEvents{}, 3600)
	err := p.Process(context.Background(), store.job.ID)

	var durErr *services.DurationError
	if !errors.As(err, &durErr) {
		t.Fatalf("Expected DurationError, got %v", err)
	}

	if store.job.Status != models.StatusFailed {
		t.Fatalf("Status = %q, want failed", store.job.Status)
	}
	// Rejection message speaks in minutes.
	if !strings.Contains(store.failMsg, "120 minutes") || !strings.Contains(store.failMsg, "60 minutes") {
		t.Errorf("Failure message = %q, want minutes of both durations", store.failMsg)
	}
	if engine.audioCalls != 0 || engine.textCalls != 0 {
		t.Error("Engine invoked for over-length video")
	}
}

func TestProcess_EngineFailureSanitized(t *testing.T) {
	store := newMemJobStore("https://youtu.be/dQw4w9WgXcQ")
	media := &fakeMedia{captionsErr: errors.New("no caption tracks")}
	engine := &fakeEngine{err: errors.New("rpc error: code = Internal desc = backend blew up")}

	p := New(store, media, engine, &fakeEvents{}, 3600)
	if err := p.Process(context.Background(), store.job.ID); err == nil {
		t.Fatal("Expected error from engine failure")
	}

	if store.job.Status != models.StatusFailed {
		t.Fatalf("Status = %q, want failed", store.job.Status)
	}
	if strings.Contains(store.failMsg, "rpc error") {
		t.Errorf("Engine internals leaked into failure message: %q", store.failMsg)
	}
	if store.failMsg == "" {
		t.Error("Failed job has empty failure message")
	}
}

func TestProcess_MetadataFailure(t *testing.T) {
	store := newMemJobStore("https://youtu.be/dQw4w9WgXcQ")
	media := &fakeMedia{metaErr: errors.New("video is unavailable")}

	p := New(store, media, &fakeEngine{}, &fakeEvents{}, 3600)
	if err := p.Process(context.Background(), store.job.ID); err == nil {
		t.Fatal("Expected error from metadata failure")
	}

	if store.job.Status != models.StatusFailed {
		t.Fatalf("Status = %q, want failed", store.job.Status)
	}
	if store.failMsg != "video is unavailable" {
		t.Errorf("Failure message = %q", store.failMsg)
	}
}

func TestProcess_SkipsNonPending(t *testing.T) {
	for _, status := range []string{models.StatusProcessing, models.StatusCompleted, models.StatusFailed} {
		t.Run(status, func(t *testing.T) {
			store := newMemJobStore("https://youtu.be/dQw4w9WgXcQ")
			store.job.Status = status
			engine := &fakeEngine{}

			p := New(store, &fakeMedia{}, engine, &fakeEvents{}, 3600)
			if err := p.Process(context.Background(), store.job.ID); err != nil {
				t.Fatalf("Expected nil for already-claimed job, got %v", err)
			}

			if store.job.Status != status {
				t.Errorf("Status changed from %q to %q", status, store.job.Status)
			}
			if engine.audioCalls != 0 || engine.textCalls != 0 {
				t.Error("Engine invoked for non-pending job")
			}
		})
	}
}

func TestProcess_LoadFailureIsRetryable(t *testing.T) {
	store := newMemJobStore("https://youtu.be/dQw4w9WgXcQ")
	store.getErr = errors.New("connection refused")
	engine := &fakeEngine{}

	p := New(store, &fakeMedia{}, engine, &fakeEvents{}, 3600)
	err := p.Process(context.Background(), store.job.ID)

	// A store outage before any transition surfaces as ErrJobLoad so the
	// worker can requeue instead of abandoning the pending job.
	if !errors.Is(err, ErrJobLoad) {
		t.Fatalf("Expected ErrJobLoad, got %v", err)
	}
	if store.job.Status != models.StatusPending {
		t.Errorf("Status = %q, want pending untouched", store.job.Status)
	}
	if len(store.statusLog) != 0 {
		t.Errorf("Transitions recorded on load failure: %v", store.statusLog)
	}
	if engine.audioCalls != 0 || engine.textCalls != 0 {
		t.Error("Engine invoked on load failure")
	}
}

func TestProcess_StatusNeverRegresses(t *testing.T) {
	store := newMemJobStore("https://youtu.be/dQw4w9WgXcQ")
	media := &fakeMedia{captionsErr: errors.New("no caption tracks")}
	engine := &fakeEngine{transcript: "t", summary: "s"}

	p := New(store, media, engine, &fakeEvents{}, 3600)
	if err := p.Process(context.Background(), store.job.ID); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// pending is the initial state, never logged; every observed
	// transition moves forward.
	want := []string{models.StatusProcessing, models.StatusCompleted}
	if len(store.statusLog) != len(want) {
		t.Fatalf("Status log = %v, want %v", store.statusLog, want)
	}
	for i := range want {
		if store.statusLog[i] != want[i] {
			t.Fatalf("Status log = %v, want %v", store.statusLog, want)
		}
	}
}

func TestProcess_StatusUpdatesOrdered(t *testing.T) {
	store := newMemJobStore("https://youtu.be/dQw4w9WgXcQ")
	media := &fakeMedia{captionsErr: errors.New("no caption tracks")}
	events := &fakeEvents{}

	p := New(store, media, &fakeEngine{transcript: "t", summary: "s"}, events, 3600)
	if err := p.Process(context.Background(), store.job.ID); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	var steps []int
	for _, m := range events.messages {
		if m.Type == "status_update" {
			steps = append(steps, m.Payload.(models.StatusUpdate).Step)
		}
	}
	for i := 1; i < len(steps); i++ {
		if steps[i] <= steps[i-1] {
			t.Fatalf("Steps out of order: %v", steps)
		}
	}
}
