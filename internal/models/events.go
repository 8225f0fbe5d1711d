package models

import "github.com/google/uuid"

// WebSocket message envelope pushed over the per-user pub/sub channel.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	JobID    uuid.UUID `json:"job_id"`
	Step     int       `json:"step"`
	StepName string    `json:"step_name"`
}

type CompletedEvent struct {
	JobID uuid.UUID `json:"job_id"`
}

type ErrorEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
