package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"vidsage-backend/internal/models"
	"vidsage-backend/internal/services"
)

// MediaSource is the outbound video platform collaborator.
type MediaSource interface {
	GetMetadata(ctx context.Context, videoID string) (*models.VideoMetadata, error)
	DownloadAudio(ctx context.Context, videoID string) ([]byte, string, error)
	GetCaptions(videoID string) (string, error)
}

// Engine is the outbound transcription/summarization collaborator.
type Engine interface {
	SummarizeAudio(ctx context.Context, audio []byte, mimeType string) (transcript, summary string, err error)
	SummarizeTranscript(ctx context.Context, transcript string) (string, error)
}

type jobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.VideoJob, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	SetResolved(ctx context.Context, id uuid.UUID, videoID string) error
	SetMetadata(ctx context.Context, id uuid.UUID, meta *models.VideoMetadata) error
	MarkCompleted(ctx context.Context, id uuid.UUID, transcript, summary string) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
}

type events interface {
	Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

// ErrJobLoad marks a job that could not be read from the store before
// any transition happened. The job is still pending, so the caller may
// put it back on the queue rather than drop it.
var ErrJobLoad = errors.New("failed to load job")

// Pipeline drives one video job from pending to a terminal status.
// Collaborators are injected so tests can substitute doubles.
type Pipeline struct {
	jobs        jobStore
	media       MediaSource
	engine      Engine
	events      events
	maxDuration int
}

func New(jobs jobStore, media MediaSource, engine Engine, ev events, maxDurationSeconds int) *Pipeline {
	return &Pipeline{
		jobs:        jobs,
		media:       media,
		engine:      engine,
		events:      ev,
		maxDuration: maxDurationSeconds,
	}
}

// Process runs the full pipeline for a job. Steps run strictly in order;
// any step error (or panic) becomes a failed transition with a non-empty
// message, so an observable fault can never leave the job stuck in
// processing. Failed is terminal: there are no retries, resubmission
// creates a new job.
func (p *Pipeline) Process(ctx context.Context, jobID uuid.UUID) (err error) {
	job, err := p.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrJobLoad, jobID, err)
	}

	if job.Status != models.StatusPending {
		log.Printf("Skipping job %s in status %s", job.ID, job.Status)
		return nil
	}

	if err := p.jobs.MarkProcessing(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to start job %s: %w", job.ID, err)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic while processing job %s: %v", job.ID, r)
			err = fmt.Errorf("panic: %v", r)
			p.fail(context.Background(), job, "internal processing error")
		}
	}()

	// Step 1: resolve the canonical video ID.
	p.publishStep(ctx, job, 1, "Resolving video link")
	videoID := services.ExtractVideoID(job.SourceURL)
	if videoID == "" {
		p.fail(ctx, job, "invalid or unsupported link")
		return fmt.Errorf("no video ID in %q", job.SourceURL)
	}
	if err := p.jobs.SetResolved(ctx, job.ID, videoID); err != nil {
		p.fail(ctx, job, "internal processing error")
		return fmt.Errorf("failed to save video ID for job %s: %w", job.ID, err)
	}

	// Step 2: metadata and duration acceptance.
	p.publishStep(ctx, job, 2, "Fetching video metadata")
	meta, err := p.media.GetMetadata(ctx, videoID)
	if err != nil {
		p.fail(ctx, job, err.Error())
		return err
	}
	if p.maxDuration > 0 && meta.DurationSeconds > p.maxDuration {
		durErr := &services.DurationError{DurationSeconds: meta.DurationSeconds, MaxSeconds: p.maxDuration}
		p.fail(ctx, job, durErr.Error())
		return durErr
	}
	if err := p.jobs.SetMetadata(ctx, job.ID, meta); err != nil {
		p.fail(ctx, job, "internal processing error")
		return fmt.Errorf("failed to save metadata for job %s: %w", job.ID, err)
	}

	// Steps 3-4: transcript + summary, captions first, audio STT fallback.
	transcript, summary, err := p.transcribe(ctx, job, videoID)
	if err != nil {
		return err
	}

	// Step 5: persist result, terminal success.
	if err := p.jobs.MarkCompleted(ctx, job.ID, transcript, summary); err != nil {
		p.fail(ctx, job, "internal processing error")
		return fmt.Errorf("failed to complete job %s: %w", job.ID, err)
	}

	p.events.Publish(ctx, job.UserID, models.WSMessage{
		Type:    "completed",
		Payload: models.CompletedEvent{JobID: job.ID},
	})
	log.Printf("Job %s completed (video %s)", job.ID, videoID)

	return nil
}

// transcribe acquires a transcript and summary. A caption track is the
// cheap path; when none is available the lowest-quality audio stream is
// downloaded and handed to the engine for speech-to-text.
func (p *Pipeline) transcribe(ctx context.Context, job *models.VideoJob, videoID string) (string, string, error) {
	p.publishStep(ctx, job, 3, "Extracting transcript")

	if captions, capErr := p.media.GetCaptions(videoID); capErr == nil && captions != "" {
		p.publishStep(ctx, job, 4, "Generating summary")
		summary, err := p.engine.SummarizeTranscript(ctx, captions)
		if err != nil {
			log.Printf("Summarization failed for job %s: %v", job.ID, err)
			p.fail(ctx, job, "the summarization engine could not process this video")
			return "", "", err
		}
		return captions, summary, nil
	}

	audio, mimeType, err := p.media.DownloadAudio(ctx, videoID)
	if err != nil {
		p.fail(ctx, job, err.Error())
		return "", "", err
	}

	p.publishStep(ctx, job, 4, "Transcribing and summarizing audio")
	transcript, summary, err := p.engine.SummarizeAudio(ctx, audio, mimeType)
	if err != nil {
		// Keep engine internals out of the job record.
		log.Printf("Engine failure for job %s: %v", job.ID, err)
		p.fail(ctx, job, "the summarization engine could not process this video")
		return "", "", err
	}

	return transcript, summary, nil
}

func (p *Pipeline) fail(ctx context.Context, job *models.VideoJob, message string) {
	if message == "" {
		message = "video processing failed"
	}

	if err := p.jobs.MarkFailed(ctx, job.ID, message); err != nil {
		log.Printf("Failed to mark job %s failed: %v", job.ID, err)
	}

	p.events.Publish(ctx, job.UserID, models.WSMessage{
		Type:    "error",
		Payload: models.ErrorEvent{JobID: job.ID, ErrorMessage: message},
	})
	log.Printf("Job %s failed: %s", job.ID, message)
}

func (p *Pipeline) publishStep(ctx context.Context, job *models.VideoJob, step int, name string) {
	p.events.Publish(ctx, job.UserID, models.WSMessage{
		Type:    "status_update",
		Payload: models.StatusUpdate{JobID: job.ID, Step: step, StepName: name},
	})
}
