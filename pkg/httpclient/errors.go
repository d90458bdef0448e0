package httpclient

import (
	"fmt"
	"net/http"
	"time"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Transient reports whether the status indicates a failure worth retrying.
func (e *StatusError) Transient() bool {
	return DefaultRetryStrategy(e.Code) != NoRetry
}

// RetryableError is returned when the retry budget was exhausted on a
// transient failure.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("HTTP %d: %s (retry after %v)", e.StatusCode, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func (e *RetryableError) IsRetryable() bool {
	return true
}

// permanentStatuses covers failures that retrying cannot fix.
var permanentStatuses = map[int]bool{
	http.StatusBadRequest:   true,
	http.StatusUnauthorized: true,
	http.StatusForbidden:    true,
	http.StatusNotFound:     true,
}

// PermanentStatus reports whether the status code describes a permanent
// failure (authentication failure, malformed request).
func PermanentStatus(code int) bool {
	return permanentStatuses[code]
}
