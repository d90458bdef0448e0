package task

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest rejects malformed inbound messages. No task is created.
var ErrInvalidRequest = errors.New("invalid request")

// ErrUnknownTask is returned for operations on an absent or already swept
// task id.
var ErrUnknownTask = errors.New("unknown task")

// ErrTerminalState is returned when a transition is applied to a task that
// already reached a terminal state.
var ErrTerminalState = errors.New("task is in a terminal state")

// ErrDeliveryOverflow marks a subscriber that fell behind the event stream
// and was detached. Delivery to other subscribers is unaffected.
var ErrDeliveryOverflow = errors.New("subscriber delivery overflow")

func invalidRequest(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, reason)
}
