package task

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/quoter/pkg/a2a"
	"github.com/kadirpekel/quoter/pkg/intent"
	"github.com/kadirpekel/quoter/pkg/observability"
)

// QuoteGenerator produces quote text for a classified intent.
type QuoteGenerator interface {
	Generate(ctx context.Context, it intent.Intent) (string, error)
}

// Engine drives the task lifecycle: it accepts inbound messages, classifies
// them, runs generation asynchronously and applies the resulting transitions
// through the registry.
type Engine struct {
	registry  *Registry
	generator QuoteGenerator
	recorder  observability.Recorder
}

// NewEngine creates an engine over the given registry and generator.
func NewEngine(registry *Registry, generator QuoteGenerator, recorder observability.Recorder) *Engine {
	if recorder == nil {
		recorder = observability.NoopRecorder{}
	}
	return &Engine{
		registry:  registry,
		generator: generator,
		recorder:  recorder,
	}
}

// Registry exposes the underlying registry for read paths and subscriptions.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Submit validates the inbound message, creates a task and starts generation
// in the background. The returned task is in the submitted state; callers
// always receive the id before any terminal event is observable.
func (e *Engine) Submit(ctx context.Context, msg a2a.Message) (a2a.Task, error) {
	if strings.TrimSpace(msg.Text()) == "" {
		return a2a.Task{}, invalidRequest("message has no text content")
	}
	if msg.Role != a2a.MessageRoleUser {
		return a2a.Task{}, invalidRequest("message role must be user")
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	t := e.registry.Create(msg)

	it := intent.Classify(msg.Text())
	if err := e.registry.SetIntent(t.ID, it); err != nil {
		return a2a.Task{}, err
	}
	e.recorder.RecordTaskCreated(ctx, string(it.Kind))

	slog.Info("Task submitted", "task_id", t.ID, "intent", it.Kind, "topic", it.Topic)

	go e.execute(context.WithoutCancel(ctx), t.ID, it)

	return t, nil
}

// SubmitAndWait runs Submit and blocks until the task reaches a terminal
// state or the context expires. Used by the synchronous message/send binding.
func (e *Engine) SubmitAndWait(ctx context.Context, msg a2a.Message) (a2a.Task, error) {
	t, err := e.Submit(ctx, msg)
	if err != nil {
		return a2a.Task{}, err
	}

	sub, err := e.registry.Attach(t.ID)
	if err != nil {
		return a2a.Task{}, err
	}
	defer e.registry.Detach(sub)

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok || event.Final {
				return e.registry.Get(t.ID)
			}
		case <-ctx.Done():
			return e.registry.Get(t.ID)
		}
	}
}

// Get returns a snapshot of the task.
func (e *Engine) Get(taskID string) (a2a.Task, error) {
	return e.registry.Get(taskID)
}

// Subscribe attaches a subscriber to the task's event stream.
func (e *Engine) Subscribe(taskID string) (*Subscriber, error) {
	return e.registry.Attach(taskID)
}

// Unsubscribe detaches a subscriber.
func (e *Engine) Unsubscribe(sub *Subscriber) {
	e.registry.Detach(sub)
}

// Cancel moves a non-terminal task to canceled. Canceling a task that is
// already terminal is a no-op reported as canceled=false; the stored outcome
// is untouched. Generation running for the task keeps going but its result
// is discarded when it lands.
func (e *Engine) Cancel(ctx context.Context, taskID, reason string) (bool, error) {
	_, err := e.registry.ApplyTransition(taskID, a2a.TaskStateCanceled, reason, nil)
	if err != nil {
		if errors.Is(err, ErrTerminalState) {
			return false, nil
		}
		return false, err
	}

	e.recorder.RecordTaskTerminal(ctx, string(a2a.TaskStateCanceled))
	slog.Info("Task canceled", "task_id", taskID, "reason", reason)
	return true, nil
}

// execute runs the generation pipeline for one task. Late results against a
// canceled task surface as ErrTerminalState from ApplyTransition and are
// dropped.
func (e *Engine) execute(ctx context.Context, taskID string, it intent.Intent) {
	tracer := observability.GetTracer("quoter.task")
	ctx, span := tracer.Start(ctx, observability.SpanTaskExecute,
		trace.WithAttributes(
			attribute.String(observability.AttrTaskID, taskID),
			attribute.String(observability.AttrIntent, string(it.Kind)),
		),
	)
	defer span.End()

	if _, err := e.registry.ApplyTransition(taskID, a2a.TaskStateWorking, "", nil); err != nil {
		slog.Debug("Task left submitted state before work started", "task_id", taskID, "error", err)
		return
	}

	text, err := e.generator.Generate(ctx, it)
	if err != nil {
		e.fail(ctx, taskID, err)
		return
	}

	if _, err := e.registry.ApplyTransition(taskID, a2a.TaskStateCompleted, text, nil); err != nil {
		slog.Debug("Discarding result for finished task", "task_id", taskID, "error", err)
		return
	}

	e.recorder.RecordTaskTerminal(ctx, string(a2a.TaskStateCompleted))
	slog.Info("Task completed", "task_id", taskID)
}

func (e *Engine) fail(ctx context.Context, taskID string, cause error) {
	taskErr := &a2a.TaskError{
		Code:    "generation_failed",
		Message: "quote generation failed",
		Details: cause.Error(),
	}

	if _, err := e.registry.ApplyTransition(taskID, a2a.TaskStateFailed, "", taskErr); err != nil {
		slog.Debug("Discarding failure for finished task", "task_id", taskID, "error", err)
		return
	}

	e.recorder.RecordTaskTerminal(ctx, string(a2a.TaskStateFailed))
	slog.Error("Task failed", "task_id", taskID, "error", cause)
}
