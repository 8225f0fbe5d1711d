package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"vidsage-backend/internal/models"
)

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// SummarizeAudio transcribes a buffered audio payload via the Gemini File
// API and then summarizes the transcript. Returns both texts.
func (s *GeminiService) SummarizeAudio(ctx context.Context, audio []byte, mimeType string) (string, string, error) {
	transcript, err := s.transcribeAudio(ctx, audio, mimeType)
	if err != nil {
		return "", "", err
	}

	summary, err := s.SummarizeTranscript(ctx, transcript)
	if err != nil {
		return "", "", err
	}

	return transcript, summary, nil
}

func (s *GeminiService) transcribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	if len(audio) == 0 {
		return "", fmt.Errorf("audio payload is empty")
	}

	file, err := s.client.UploadFile(ctx, "", bytes.NewReader(audio), &genai.UploadFileOptions{
		DisplayName: "video-audio",
		MIMEType:    mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audio to Gemini: %w", err)
	}

	// Ensure remote file is cleaned up
	defer s.client.DeleteFile(context.Background(), file.Name)

	// Wait until file is active
	for i := 0; i < 20; i++ {
		current, getErr := s.client.GetFile(ctx, file.Name)
		if getErr != nil {
			return "", fmt.Errorf("failed to get uploaded file status: %w", getErr)
		}

		if current.State == genai.FileStateActive {
			file = current
			break
		}
		if current.State == genai.FileStateFailed {
			return "", fmt.Errorf("Gemini failed to process uploaded audio file")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	if file.State != genai.FileStateActive {
		return "", fmt.Errorf("audio file did not become active in time")
	}

	prompt := "Transcribe the provided audio verbatim. Return plain text only, without markdown, headers, or explanations."

	resp, err := s.model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.FileData{MIMEType: mimeType, URI: file.URI},
	)
	if err != nil {
		return "", fmt.Errorf("Gemini transcription error: %w", err)
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", fmt.Errorf("Gemini returned empty transcription")
	}

	return text, nil
}

// SummarizeTranscript produces a concise prose summary of a transcript.
func (s *GeminiService) SummarizeTranscript(ctx context.Context, transcript string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	resp, err := s.model.GenerateContent(ctx, genai.Text(buildSummaryPrompt(transcript)))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	summary := strings.TrimSpace(extractText(resp))
	if summary == "" {
		return "", fmt.Errorf("Gemini returned empty summary")
	}

	return summary, nil
}

// AnswerQuestion answers a question grounded in a video's transcript and
// summary, carrying the prior turns of the same conversation.
func (s *GeminiService) AnswerQuestion(ctx context.Context, transcript, summary, question string, history []models.QAPair) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	prompt := buildAnswerPrompt(transcript, summary, question, history)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	answer := strings.TrimSpace(extractText(resp))
	if answer == "" {
		return "", fmt.Errorf("Gemini returned empty answer")
	}

	return answer, nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func buildSummaryPrompt(transcript string) string {
	var b strings.Builder

	b.WriteString("You are an expert video content analyst. Write a clear, well-structured summary of the following video transcript.\n\n")
	b.WriteString("Cover the main topic, the key points in the order they are made, and any conclusions. Write flowing prose with short paragraphs; no preamble.\n\n")

	b.WriteString("---TRANSCRIPT START---\n")
	b.WriteString(transcript)
	b.WriteString("\n---TRANSCRIPT END---\n")

	return b.String()
}

const maxPromptTranscriptChars = 30000

func buildAnswerPrompt(transcript, summary, question string, history []models.QAPair) string {
	var b strings.Builder

	b.WriteString("You are a helpful assistant answering questions about a video. Ground every answer strictly in the transcript and summary below. If the video does not cover something, say so.\n\n")

	b.WriteString("---SUMMARY---\n")
	b.WriteString(summary)
	b.WriteString("\n\n---TRANSCRIPT---\n")
	if len(transcript) > maxPromptTranscriptChars {
		transcript = transcript[:maxPromptTranscriptChars]
	}
	b.WriteString(transcript)
	b.WriteString("\n")

	if len(history) > 0 {
		b.WriteString("\n---CONVERSATION SO FAR---\n")
		for _, turn := range history {
			b.WriteString("User: ")
			b.WriteString(turn.Question)
			b.WriteString("\nAssistant: ")
			b.WriteString(turn.Answer)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n---NEW QUESTION---\n")
	b.WriteString(question)
	b.WriteString("\n")

	return b.String()
}
