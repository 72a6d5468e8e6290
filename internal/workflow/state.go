package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/trendcore/internal/core/domain"
)

// State is an alias for domain.WorkflowState for internal use.
type State = domain.WorkflowState

// State constants re-exported for convenience.
const (
	StateIdle      = domain.WorkflowIdle
	StateRunning   = domain.WorkflowRunning
	StateCompleted = domain.WorkflowCompleted
	StateFailed    = domain.WorkflowFailed
)

var (
	// ErrMisuse is the sentinel behind every MisuseError.
	ErrMisuse = errors.New("workflow misuse")

	// ErrStaleRun is returned when a run ID no longer matches the manager's current run.
	ErrStaleRun = errors.New("stale workflow run")
)

// MisuseError reports an operation called in a state that does not allow it.
type MisuseError struct {
	Op    string
	State State
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("workflow misuse: cannot %s while %s", e.Op, e.State)
}

func (e *MisuseError) Is(target error) bool {
	return target == ErrMisuse
}

// ValidTransitions defines allowed state transitions.
// Key is the current state, value is the list of valid next states.
// Every state may also go back to Idle through Reset.
var ValidTransitions = map[State][]State{
	StateIdle:      {StateRunning},
	StateRunning:   {StateRunning, StateCompleted, StateFailed},
	StateCompleted: {StateIdle},
	StateFailed:    {StateIdle},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to State) bool {
	if to == StateIdle {
		return true
	}
	for _, target := range ValidTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Transition represents a state change with metadata.
type Transition struct {
	From      State
	To        State
	Step      int
	Reason    string
	Timestamp time.Time
}

// NewTransition creates a new transition record.
func NewTransition(from, to State, step int, reason string) Transition {
	return Transition{
		From:      from,
		To:        to,
		Step:      step,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// StateDescription returns a human-readable description of a state.
func StateDescription(s State) string {
	switch s {
	case StateIdle:
		return "Idle - no step has started"
	case StateRunning:
		return "Running - a step is in progress"
	case StateCompleted:
		return "Completed - every step finished"
	case StateFailed:
		return "Failed - a step failed, reset to run again"
	default:
		return "Unknown state"
	}
}
