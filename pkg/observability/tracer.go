package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Span names used across the agent.
const (
	SpanTaskExecute = "quoter.task.execute"
	SpanBackendCall = "quoter.backend.call"
)

// Attribute keys.
const (
	AttrTaskID    = "task.id"
	AttrIntent    = "task.intent"
	AttrTaskState = "task.state"
	AttrLLMModel  = "llm.model"
)

// GetTracer returns a tracer from the global provider. Without an installed
// SDK this is a no-op tracer, which keeps trace export out of the core.
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
