package services

import "vidsage-backend/internal/models"

// ContextWindowSize bounds how many prior exchanges are fed back to the
// AI on each new question.
const ContextWindowSize = 5

// BuildContext turns a user's most-recent-first exchanges on a job into
// the conversation history handed to the AI collaborator. The window is
// capped at ContextWindowSize and reversed into chronological order so
// the model sees turns the way they happened. Pure transformation; the
// caller is responsible for only passing exchanges of one
// (videoJobID, askerID) thread.
func BuildContext(recent []*models.QuestionExchange) []models.QAPair {
	if len(recent) > ContextWindowSize {
		recent = recent[:ContextWindowSize]
	}

	history := make([]models.QAPair, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		history = append(history, models.QAPair{
			Question: recent[i].Question,
			Answer:   recent[i].Answer,
		})
	}

	return history
}
