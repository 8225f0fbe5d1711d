package services

import "fmt"

// Typed service errors. Handlers map these onto HTTP status codes in one
// place (handleServiceError); everything else falls through as internal.

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

// LengthError reports a free-text field outside its inclusive bounds.
type LengthError struct {
	Field string
	Min   int
	Max   int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("%s must be between %d and %d characters", e.Field, e.Min, e.Max)
}

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

// NotReadyError rejects an operation on a job that has not finished
// processing. The current status is echoed so the caller can show it.
type NotReadyError struct{ Status string }

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("Video is still %s. Please wait for processing to complete.", e.Status)
}

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }
