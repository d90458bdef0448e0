package task

import (
	"fmt"

	"github.com/kadirpekel/quoter/pkg/a2a"
)

// validateStateTransition enforces the task state graph:
//   - terminal states (completed, failed, canceled) are immutable
//   - submitted moves to working or input_required
//   - working moves to any terminal state or input_required
//   - input_required re-enters working (multi-turn skills) or cancels/fails
func validateStateTransition(current, next a2a.TaskState) error {
	if current == next {
		// Idempotent updates are allowed.
		return nil
	}

	if current.Terminal() {
		return fmt.Errorf("cannot transition from terminal state %q to %q", current, next)
	}

	var validNext []a2a.TaskState
	switch current {
	case a2a.TaskStateSubmitted:
		validNext = []a2a.TaskState{
			a2a.TaskStateWorking,
			a2a.TaskStateInputRequired,
			a2a.TaskStateCanceled,
		}
	case a2a.TaskStateWorking:
		validNext = []a2a.TaskState{
			a2a.TaskStateCompleted,
			a2a.TaskStateFailed,
			a2a.TaskStateCanceled,
			a2a.TaskStateInputRequired,
		}
	case a2a.TaskStateInputRequired:
		validNext = []a2a.TaskState{
			a2a.TaskStateWorking,
			a2a.TaskStateCanceled,
			a2a.TaskStateFailed,
		}
	default:
		return fmt.Errorf("unknown task state %q", current)
	}

	for _, s := range validNext {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("invalid transition from %q to %q", current, next)
}
