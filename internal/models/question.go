package models

import (
	"time"

	"github.com/google/uuid"
)

// Question length bounds, inclusive.
const (
	QuestionMinLength = 10
	QuestionMaxLength = 500
)

type QuestionExchange struct {
	ID         uuid.UUID `json:"id"`
	VideoJobID uuid.UUID `json:"video_job_id"`
	UserID     uuid.UUID `json:"user_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	CreatedAt  time.Time `json:"created_at"`
}

type AskQuestionRequest struct {
	Question string `json:"question"`
}

// QAPair is one prior question/answer turn supplied to the AI as
// conversation history.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
