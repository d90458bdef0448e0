package task

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/quoter/pkg/a2a"
	"github.com/kadirpekel/quoter/pkg/config"
	"github.com/kadirpekel/quoter/pkg/intent"
)

// Subscriber is a transport-agnostic sink attached to one task. Events
// arrive on Events() in strictly increasing sequence order; the channel is
// closed after the terminal event (or on detach).
type Subscriber struct {
	taskID string
	ch     chan a2a.Event
	closed bool // guarded by the registry mutex
}

// Events returns the delivery channel.
func (s *Subscriber) Events() <-chan a2a.Event {
	return s.ch
}

// TaskID returns the id of the task this subscriber is attached to.
func (s *Subscriber) TaskID() string {
	return s.taskID
}

// entry is the registry's record for one task: the task itself, its intent,
// the per-task event sequence, the bounded replay buffer and the live
// subscriber set.
type entry struct {
	task       a2a.Task
	intent     intent.Intent
	seq        uint64
	buffer     []a2a.Event
	subs       map[*Subscriber]struct{}
	terminalAt time.Time
}

// Registry is the in-memory table of active tasks. All mutation goes through
// its methods; ApplyTransition is the single writer path for state changes
// and fans events out to attached subscribers.
type Registry struct {
	mu      sync.RWMutex
	tasks   map[string]*entry
	cfg     config.TaskConfig
	nowFunc func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg config.TaskConfig) *Registry {
	return &Registry{
		tasks:   make(map[string]*entry),
		cfg:     cfg,
		nowFunc: time.Now,
	}
}

// Create registers a new task in the submitted state and emits the creation
// event. Task ids are unique and never reused.
func (r *Registry) Create(request a2a.Message) a2a.Task {
	now := r.nowFunc()
	t := a2a.Task{
		ID: generateTaskID(),
		Status: a2a.TaskStatus{
			State:     a2a.TaskStateSubmitted,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Request: request,
	}

	e := &entry{
		task: t,
		subs: make(map[*Subscriber]struct{}),
	}

	r.mu.Lock()
	r.tasks[t.ID] = e
	event := r.appendEventLocked(e, a2a.TaskStateSubmitted, a2a.TaskStateSubmitted, "", nil)
	r.publishLocked(e, event)
	r.mu.Unlock()

	return t
}

// Get returns a snapshot of the task.
func (r *Registry) Get(taskID string) (a2a.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tasks[taskID]
	if !ok {
		return a2a.Task{}, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	return e.task, nil
}

// SetIntent records the classification result. Set once, immutable after.
func (r *Registry) SetIntent(taskID string, it intent.Intent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tasks[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	if e.intent.Kind == "" {
		e.intent = it
		e.task.Intent = string(it.Kind)
	}
	return nil
}

// Intent returns the classification result for the task.
func (r *Registry) Intent(taskID string) (intent.Intent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tasks[taskID]
	if !ok {
		return intent.Intent{}, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	return e.intent, nil
}

// ApplyTransition moves the task to the next state and delivers the
// resulting event to every attached subscriber. It is atomic: readers never
// observe a half-applied transition. Returns ErrTerminalState when the task
// already reached a terminal state, which callers use to discard stale
// backend results after cancellation.
func (r *Registry) ApplyTransition(taskID string, next a2a.TaskState, payload string, taskErr *a2a.TaskError) (a2a.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tasks[taskID]
	if !ok {
		return a2a.Event{}, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}

	current := e.task.Status.State
	if current.Terminal() {
		return a2a.Event{}, fmt.Errorf("%w: %s is %s", ErrTerminalState, taskID, current)
	}
	if err := validateStateTransition(current, next); err != nil {
		return a2a.Event{}, err
	}

	now := r.nowFunc()
	e.task.Status.State = next
	e.task.Status.UpdatedAt = now

	// Result is set iff completed; error is set iff failed; the cancel
	// reason lands on the status.
	switch next {
	case a2a.TaskStateCompleted:
		e.task.Result = payload
	case a2a.TaskStateFailed:
		e.task.Error = taskErr
	case a2a.TaskStateCanceled:
		e.task.Status.Reason = payload
	}
	if next.Terminal() {
		e.terminalAt = now
	}

	event := r.appendEventLocked(e, current, next, payload, taskErr)
	r.publishLocked(e, event)

	if next.Terminal() {
		r.closeSubscribersLocked(e)
	}

	return event, nil
}

// Attach adds a subscriber to the task and replays the buffered event
// window so late joiners observe the task's current state and, at minimum,
// its terminal event. Fails with ErrUnknownTask once the task is swept.
func (r *Registry) Attach(taskID string) (*Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}

	sub := &Subscriber{
		taskID: taskID,
		ch:     make(chan a2a.Event, r.subscriberBuffer()),
	}

	// Replay cannot overflow: the window is smaller than the channel buffer.
	for _, event := range e.buffer {
		sub.ch <- event
	}

	// Attaching to a terminal task still delivers the replay; the channel is
	// closed right away since no further events will come.
	if e.task.Status.State.Terminal() {
		close(sub.ch)
		sub.closed = true
	}

	// Attached subscribers pin the task past its grace period until Detach,
	// closed or not, so readers can drain the replay at their own pace.
	e.subs[sub] = struct{}{}
	return sub, nil
}

// Detach removes the subscriber and closes its channel. Safe to call twice.
func (r *Registry) Detach(sub *Subscriber) {
	if sub == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.tasks[sub.taskID]; ok {
		delete(e.subs, sub)
	}
	if !sub.closed {
		close(sub.ch)
		sub.closed = true
	}
}

// SweepExpired removes terminal tasks whose grace period elapsed and which
// have no attached subscribers. Returns the number of tasks removed.
func (r *Registry) SweepExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	removed := 0
	for id, e := range r.tasks {
		if !e.task.Status.State.Terminal() {
			continue
		}
		if len(e.subs) > 0 {
			continue
		}
		if now.Sub(e.terminalAt) < r.cfg.GracePeriod {
			continue
		}
		delete(r.tasks, id)
		removed++
	}
	return removed
}

// Len returns the number of tasks currently held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// appendEventLocked assigns the next sequence number and records the event
// in the bounded replay buffer. Caller holds the write lock.
func (r *Registry) appendEventLocked(e *entry, from, to a2a.TaskState, payload string, taskErr *a2a.TaskError) a2a.Event {
	e.seq++
	event := a2a.Event{
		TaskID:    e.task.ID,
		Sequence:  e.seq,
		FromState: from,
		ToState:   to,
		Payload:   payload,
		Error:     taskErr,
		Final:     to.Terminal(),
		Timestamp: r.nowFunc(),
	}

	e.buffer = append(e.buffer, event)
	if window := r.replayWindow(); len(e.buffer) > window {
		e.buffer = e.buffer[len(e.buffer)-window:]
	}

	return event
}

// publishLocked delivers the event to every attached subscriber without
// blocking. A subscriber whose buffer is full is detached so it can never
// stall delivery to others; it may resubscribe and be replayed the window.
func (r *Registry) publishLocked(e *entry, event a2a.Event) {
	for sub := range e.subs {
		select {
		case sub.ch <- event:
		default:
			slog.Warn("Detaching slow subscriber",
				"task_id", e.task.ID, "sequence", event.Sequence, "error", ErrDeliveryOverflow)
			delete(e.subs, sub)
			close(sub.ch)
			sub.closed = true
		}
	}
}

// closeSubscribersLocked closes all subscriber channels after the terminal
// event was delivered. Subscribers stay in the set until Detach so they keep
// pinning the task against the sweeper.
func (r *Registry) closeSubscribersLocked(e *entry) {
	for sub := range e.subs {
		if !sub.closed {
			close(sub.ch)
			sub.closed = true
		}
	}
}

func (r *Registry) subscriberBuffer() int {
	if r.cfg.SubscriberBuffer > 0 {
		return r.cfg.SubscriberBuffer
	}
	return 32
}

func (r *Registry) replayWindow() int {
	window := r.cfg.ReplayWindow
	if window <= 0 {
		window = 16
	}
	if buffer := r.subscriberBuffer(); window >= buffer {
		window = buffer - 1
	}
	return window
}

func generateTaskID() string {
	return fmt.Sprintf("task-%s", uuid.New().String())
}
