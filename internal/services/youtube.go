package services

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"

	"vidsage-backend/internal/models"
)

// Link patterns tried in priority order: full watch URL, short link,
// embed URL, then a bare 11-character video ID. The bare-ID pattern is
// anchored so it only matches when nothing else did.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?(?:[^\s#]*&)?v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`^([A-Za-z0-9_-]{11})$`),
}

// ExtractVideoID resolves a canonical video ID from a user-supplied link.
// Returns "" when no supported format matches. Never panics, no side
// effects.
func ExtractVideoID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	for _, pattern := range videoIDPatterns {
		if m := pattern.FindStringSubmatch(raw); len(m) > 1 {
			return m[1]
		}
	}

	return ""
}

// DurationError rejects a video longer than the configured maximum before
// any audio is transferred.
type DurationError struct {
	DurationSeconds int
	MaxSeconds      int
}

func (e *DurationError) Error() string {
	return fmt.Sprintf("Video is too long (%d minutes). Maximum allowed: %d minutes.",
		e.DurationSeconds/60, e.MaxSeconds/60)
}

type YouTubeService struct {
	ytClient      *yt.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
	maxDuration   int
}

func NewYouTubeService(maxDurationSeconds int) *YouTubeService {
	return &YouTubeService{
		ytClient:      &yt.Client{},
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		maxDuration:   maxDurationSeconds,
	}
}

// GetMetadata fetches title, thumbnail and duration for a resolved video ID.
func (s *YouTubeService) GetMetadata(ctx context.Context, videoID string) (*models.VideoMetadata, error) {
	video, err := s.ytClient.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video metadata: %w", err)
	}

	thumbnail := fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)
	if len(video.Thumbnails) > 0 {
		// Thumbnails are ordered smallest first; take the largest.
		thumbnail = video.Thumbnails[len(video.Thumbnails)-1].URL
	}

	return &models.VideoMetadata{
		VideoID:         videoID,
		Title:           video.Title,
		Thumbnail:       thumbnail,
		DurationSeconds: int(video.Duration.Seconds()),
	}, nil
}

// DownloadAudio buffers the lowest-quality audio stream for a video.
// Duration is re-checked against the configured maximum before any bytes
// are transferred, so an oversized video fails fast.
func (s *YouTubeService) DownloadAudio(ctx context.Context, videoID string) ([]byte, string, error) {
	video, err := s.ytClient.GetVideoContext(ctx, videoID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch video for audio download: %w", err)
	}

	duration := int(video.Duration.Seconds())
	if s.maxDuration > 0 && duration > s.maxDuration {
		return nil, "", &DurationError{DurationSeconds: duration, MaxSeconds: s.maxDuration}
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, "", fmt.Errorf("no audio formats available for video %s", videoID)
	}

	// Lowest bitrate keeps transfer size and transcription cost down.
	lowest := formats[0]
	for _, f := range formats {
		if f.Bitrate < lowest.Bitrate {
			lowest = f
		}
	}

	stream, _, err := s.ytClient.GetStreamContext(ctx, video, &lowest)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer stream.Close()

	const maxAudioBytes = 100 * 1024 * 1024 // 100MB safety cap
	limited := io.LimitReader(stream, maxAudioBytes+1)
	audioBytes, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read audio stream: %w", err)
	}
	if len(audioBytes) > maxAudioBytes {
		return nil, "", fmt.Errorf("audio stream exceeds %d MB limit", maxAudioBytes/(1024*1024))
	}

	mimeType := strings.TrimSpace(strings.Split(lowest.MimeType, ";")[0])
	if mimeType == "" {
		mimeType = "audio/mp4"
	}

	return audioBytes, mimeType, nil
}

// GetCaptions fetches the caption track for a video, preferring English.
// Callers treat any error as "no captions" and fall back to audio
// transcription.
func (s *YouTubeService) GetCaptions(videoID string) (string, error) {
	transcript, err := s.transcriptAPI.GetTranscript(videoID, []string{"en", "en-US", "en-GB"})
	if err != nil {
		// Any available language beats none.
		transcript, err = s.transcriptAPI.GetTranscript(videoID, nil)
		if err != nil {
			return "", fmt.Errorf("no captions available: %w", err)
		}
	}

	if len(transcript.Entries) == 0 {
		return "", fmt.Errorf("caption track is empty")
	}

	var fullText strings.Builder
	for _, entry := range transcript.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		fullText.WriteString(text)
		fullText.WriteString(" ")
	}

	cleaned := strings.TrimSpace(fullText.String())
	if cleaned == "" {
		return "", fmt.Errorf("caption text resolved to empty content")
	}

	return cleaned, nil
}
