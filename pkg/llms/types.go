// Package llms implements generation backend providers. A provider performs
// exactly one completion attempt chain against its API (transient failures
// are retried at the HTTP layer); the retry budget and the offline fallback
// policy live in pkg/generator.
package llms

import (
	"context"
	"fmt"
)

// Provider is the narrow interface the agent consumes from a generation
// backend.
type Provider interface {
	// Complete returns generated text for the request, or a *BackendError.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// ModelName returns the configured model identifier.
	ModelName() string

	Close() error
}

// CompletionRequest carries one prompt to the backend.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// BackendError describes a generation backend failure. Transient failures
// (timeout, rate limit, transport failure) are worth retrying; permanent
// failures (authentication, malformed request) are not.
type BackendError struct {
	Transient bool
	Message   string
	Err       error
}

func (e *BackendError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Err != nil {
		return fmt.Sprintf("backend error (%s): %s: %v", kind, e.Message, e.Err)
	}
	return fmt.Sprintf("backend error (%s): %s", kind, e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as a retryable backend failure.
func NewTransientError(message string, err error) *BackendError {
	return &BackendError{Transient: true, Message: message, Err: err}
}

// NewPermanentError wraps err as a non-retryable backend failure.
func NewPermanentError(message string, err error) *BackendError {
	return &BackendError{Transient: false, Message: message, Err: err}
}
