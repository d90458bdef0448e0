package observability

import (
	"context"
	"time"
)

// NoopRecorder discards all hooks. Used when metrics are disabled and in
// tests.
type NoopRecorder struct{}

func (NoopRecorder) RecordTaskCreated(context.Context, string) {}

func (NoopRecorder) RecordBackendCall(context.Context, int, time.Duration, string) {}

func (NoopRecorder) RecordTaskTerminal(context.Context, string) {}
