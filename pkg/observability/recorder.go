// Package observability provides the fire-and-forget instrumentation hooks
// the core invokes. The core never blocks on these and never depends on
// their success; export wiring (Prometheus scrape endpoint) lives in the
// server.
package observability

import (
	"context"
	"time"
)

// Outcome labels for backend call attempts.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeFallback = "fallback"
)

// Recorder receives lifecycle hooks from the core.
type Recorder interface {
	RecordTaskCreated(ctx context.Context, intent string)
	RecordBackendCall(ctx context.Context, attempt int, latency time.Duration, outcome string)
	RecordTaskTerminal(ctx context.Context, state string)
}
