package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/quoter/pkg/a2a"
	"github.com/kadirpekel/quoter/pkg/intent"
	"github.com/kadirpekel/quoter/pkg/testutils"
)

type stubGenerator struct {
	text    string
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *stubGenerator) Generate(ctx context.Context, it intent.Intent) (string, error) {
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func newTestEngine(gen QuoteGenerator) *Engine {
	return NewEngine(NewRegistry(testutils.TestConfig().Tasks), gen, nil)
}

func waitTerminal(t *testing.T, e *Engine, taskID string) a2a.Task {
	t.Helper()

	var got a2a.Task
	require.Eventually(t, func() bool {
		task, err := e.Get(taskID)
		if err != nil {
			return false
		}
		got = task
		return task.Status.State.Terminal()
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestEngine_SubmitCompletesTask(t *testing.T) {
	e := newTestEngine(&stubGenerator{text: `"Keep going." - Anonymous`})

	submitted, err := e.Submit(context.Background(), userMessage("quote about courage"))
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateSubmitted, submitted.Status.State)

	got := waitTerminal(t, e, submitted.ID)
	assert.Equal(t, a2a.TaskStateCompleted, got.Status.State)
	assert.Equal(t, `"Keep going." - Anonymous`, got.Result)
	assert.Nil(t, got.Error)
	assert.Equal(t, string(intent.KindTopicQuote), got.Intent)
}

func TestEngine_SubmitRejectsEmptyMessage(t *testing.T) {
	e := newTestEngine(&stubGenerator{text: "x"})

	_, err := e.Submit(context.Background(), userMessage("   "))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = e.Submit(context.Background(), a2a.Message{Role: a2a.MessageRoleUser})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEngine_SubmitRejectsAgentRole(t *testing.T) {
	e := newTestEngine(&stubGenerator{text: "x"})

	_, err := e.Submit(context.Background(), a2a.NewTextMessage(a2a.MessageRoleAgent, "quote"))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEngine_SubmitAndWait(t *testing.T) {
	e := newTestEngine(&stubGenerator{text: `"Done." - Anonymous`})

	got, err := e.SubmitAndWait(testutils.TestContext(t), userMessage("random quote please"))
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, got.Status.State)
	assert.Equal(t, `"Done." - Anonymous`, got.Result)
	assert.Equal(t, string(intent.KindRandomQuote), got.Intent)
}

func TestEngine_GenerationFailureFailsTask(t *testing.T) {
	e := newTestEngine(&stubGenerator{err: errors.New("backend exploded")})

	submitted, err := e.Submit(context.Background(), userMessage("quote about rain"))
	require.NoError(t, err)

	got := waitTerminal(t, e, submitted.ID)
	assert.Equal(t, a2a.TaskStateFailed, got.Status.State)
	assert.Empty(t, got.Result)
	require.NotNil(t, got.Error)
	assert.Equal(t, "generation_failed", got.Error.Code)
	assert.Contains(t, got.Error.Details, "backend exploded")
}

func TestEngine_CancelRunningTask(t *testing.T) {
	gen := &stubGenerator{
		text:    "late result",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	e := newTestEngine(gen)

	submitted, err := e.Submit(context.Background(), userMessage("quote about patience"))
	require.NoError(t, err)
	<-gen.started

	canceled, err := e.Cancel(context.Background(), submitted.ID, "client gave up")
	require.NoError(t, err)
	assert.True(t, canceled)

	// The in-flight generation lands after cancellation and must be dropped.
	close(gen.release)

	got := waitTerminal(t, e, submitted.ID)
	assert.Equal(t, a2a.TaskStateCanceled, got.Status.State)
	assert.Equal(t, "client gave up", got.Status.Reason)
	assert.Empty(t, got.Result)

	// Give the discard path a moment, then confirm nothing changed.
	time.Sleep(20 * time.Millisecond)
	got, err = e.Get(submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCanceled, got.Status.State)
	assert.Empty(t, got.Result)
}

func TestEngine_CancelIsIdempotent(t *testing.T) {
	gen := &stubGenerator{
		text:    "x",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	e := newTestEngine(gen)

	submitted, err := e.Submit(context.Background(), userMessage("quote"))
	require.NoError(t, err)
	<-gen.started

	first, err := e.Cancel(context.Background(), submitted.ID, "")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := e.Cancel(context.Background(), submitted.ID, "")
	require.NoError(t, err)
	assert.False(t, second, "cancel on a terminal task reports canceled=false")

	close(gen.release)
}

func TestEngine_CancelCompletedTaskPreservesOutcome(t *testing.T) {
	e := newTestEngine(&stubGenerator{text: "kept"})

	submitted, err := e.Submit(context.Background(), userMessage("quote"))
	require.NoError(t, err)
	waitTerminal(t, e, submitted.ID)

	canceled, err := e.Cancel(context.Background(), submitted.ID, "")
	require.NoError(t, err)
	assert.False(t, canceled)

	got, err := e.Get(submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, got.Status.State)
	assert.Equal(t, "kept", got.Result)
}

func TestEngine_CancelUnknownTask(t *testing.T) {
	e := newTestEngine(&stubGenerator{text: "x"})

	_, err := e.Cancel(context.Background(), "task-missing", "")
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestEngine_SubscriberSeesValidStatePath(t *testing.T) {
	e := newTestEngine(&stubGenerator{
		text:    "ok",
		started: make(chan struct{}),
		release: make(chan struct{}),
	})

	submitted, err := e.Submit(context.Background(), userMessage("quote about focus"))
	require.NoError(t, err)

	sub, err := e.Subscribe(submitted.ID)
	require.NoError(t, err)
	defer e.Unsubscribe(sub)

	close(e.generator.(*stubGenerator).release)

	var states []a2a.TaskState
	var lastSeq uint64
	for event := range sub.Events() {
		assert.Greater(t, event.Sequence, lastSeq, "sequence must be strictly increasing")
		lastSeq = event.Sequence
		states = append(states, event.ToState)
	}

	require.NotEmpty(t, states)
	assert.Equal(t, a2a.TaskStateCompleted, states[len(states)-1])
	for i := 1; i < len(states); i++ {
		assert.NoError(t, validateStateTransition(states[i-1], states[i]))
	}
}

func TestValidateStateTransition(t *testing.T) {
	valid := []struct{ from, to a2a.TaskState }{
		{a2a.TaskStateSubmitted, a2a.TaskStateWorking},
		{a2a.TaskStateSubmitted, a2a.TaskStateCanceled},
		{a2a.TaskStateWorking, a2a.TaskStateCompleted},
		{a2a.TaskStateWorking, a2a.TaskStateFailed},
		{a2a.TaskStateWorking, a2a.TaskStateInputRequired},
		{a2a.TaskStateInputRequired, a2a.TaskStateWorking},
		{a2a.TaskStateWorking, a2a.TaskStateWorking},
	}
	for _, tc := range valid {
		assert.NoError(t, validateStateTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	invalid := []struct{ from, to a2a.TaskState }{
		{a2a.TaskStateSubmitted, a2a.TaskStateCompleted},
		{a2a.TaskStateCompleted, a2a.TaskStateWorking},
		{a2a.TaskStateFailed, a2a.TaskStateCanceled},
		{a2a.TaskStateCanceled, a2a.TaskStateWorking},
		{a2a.TaskStateInputRequired, a2a.TaskStateCompleted},
	}
	for _, tc := range invalid {
		assert.Error(t, validateStateTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
