// Package workflow tracks the progress of one multi-step research run.
//
// # State Machine
//
//	IDLE → RUNNING(0) → RUNNING(1) → ... → COMPLETED
//	                 ↘ FAILED(i)
//
// Reset returns any state to IDLE. Starting a manager that is not IDLE is a
// MisuseError; so is advancing or failing one that is not RUNNING.
//
// # Run IDs
//
// Start issues a fresh RunID. A caller that may still be holding an old run
// (for example, a response arriving after the user reset the view) uses
// AdvanceRun and FailRun, which refuse with ErrStaleRun instead of moving the
// new run forward.
//
// The manager performs no network calls; it is driven by its caller.
package workflow

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/trendcore/internal/core/domain"
	"github.com/vietddude/trendcore/internal/metrics"
)

// RunID identifies one Start..Reset cycle of a manager.
type RunID = uuid.UUID

// Step is one entry of a workflow's fixed step list.
type Step struct {
	Index      int
	Label      string
	Status     domain.StepStatus
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Snapshot is a consistent copy of a manager's state.
type Snapshot struct {
	Kind     domain.WorkflowKind
	RunID    RunID
	State    State
	Current  int
	Progress int
	Steps    []Step
	Err      error
	Timeout  time.Duration
}

// Manager tracks one in-flight workflow. It is safe for concurrent use, but
// represents a single run at a time.
type Manager struct {
	def Definition
	log *slog.Logger
	now func() time.Time

	mu       sync.RWMutex
	state    State
	current  int
	steps    []Step
	runID    RunID
	err      error
	history  *History
	callback func(domain.WorkflowKind, Transition)
}

// NewManager creates an idle manager for kind.
func NewManager(kind domain.WorkflowKind) (*Manager, error) {
	def, ok := Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("unknown workflow kind %q", kind)
	}

	steps := make([]Step, len(def.Steps))
	for i, label := range def.Steps {
		steps[i] = Step{Index: i, Label: label, Status: domain.StepPending}
	}

	return &Manager{
		def:     def,
		log:     slog.Default().With("workflow", string(kind)),
		now:     time.Now,
		state:   StateIdle,
		steps:   steps,
		history: newHistory(),
	}, nil
}

// Kind returns the workflow kind.
func (m *Manager) Kind() domain.WorkflowKind {
	return m.def.Kind
}

// Timeout returns the advisory duration of a whole run.
func (m *Manager) Timeout() time.Duration {
	return m.def.Timeout
}

// SetStateChangeCallback registers callback for state changes.
// The callback runs after the change is applied, outside the manager's lock.
func (m *Manager) SetStateChangeCallback(fn func(domain.WorkflowKind, Transition)) {
	m.mu.Lock()
	m.callback = fn
	m.mu.Unlock()
}

// Start moves an idle manager to the first step and returns the new run's ID.
func (m *Manager) Start() (RunID, error) {
	m.mu.Lock()
	if m.state != StateIdle {
		state := m.state
		m.mu.Unlock()
		return uuid.Nil, &MisuseError{Op: "start", State: state}
	}

	now := m.now()
	m.runID = uuid.New()
	m.current = 0
	m.err = nil
	m.steps[0].Status = domain.StepActive
	m.steps[0].StartedAt = now
	t := m.transitionLocked(StateRunning, "started")
	id := m.runID
	m.mu.Unlock()

	m.notify(t)
	return id, nil
}

// Advance marks the current step done and activates the next one.
// Advancing past the last step completes the workflow.
func (m *Manager) Advance() error {
	m.mu.Lock()
	t, err := m.advanceLocked()
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.notify(t)
	return nil
}

// AdvanceRun is Advance for run id only.
func (m *Manager) AdvanceRun(id RunID) error {
	m.mu.Lock()
	if err := m.checkRunLocked(id); err != nil {
		m.mu.Unlock()
		return err
	}
	t, err := m.advanceLocked()
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.notify(t)
	return nil
}

// Fail marks the current step failed with cause and fails the workflow.
func (m *Manager) Fail(cause error) error {
	m.mu.Lock()
	t, err := m.failLocked(cause)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.notify(t)
	return nil
}

// FailRun is Fail for run id only.
func (m *Manager) FailRun(id RunID, cause error) error {
	m.mu.Lock()
	if err := m.checkRunLocked(id); err != nil {
		m.mu.Unlock()
		return err
	}
	t, err := m.failLocked(cause)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.notify(t)
	return nil
}

// WithRun calls fn while holding the manager's lock, provided id is still the
// current run. fn must not call back into the manager.
func (m *Manager) WithRun(id RunID, fn func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkRunLocked(id); err != nil {
		return err
	}
	fn()
	return nil
}

// Reset returns the manager to Idle with every step pending.
func (m *Manager) Reset() {
	m.mu.Lock()
	if m.state == StateIdle {
		m.mu.Unlock()
		return
	}

	for i := range m.steps {
		m.steps[i].Status = domain.StepPending
		m.steps[i].Err = nil
		m.steps[i].StartedAt = time.Time{}
		m.steps[i].FinishedAt = time.Time{}
	}
	m.current = 0
	m.err = nil
	m.runID = uuid.Nil
	m.history.clearSteps()
	t := m.transitionLocked(StateIdle, "reset")
	m.mu.Unlock()

	m.notify(t)
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// RunID returns the current run's ID, or uuid.Nil when idle.
func (m *Manager) RunID() RunID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runID
}

// Err returns the error the workflow failed with, if any.
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// CurrentStep returns the active step while running, or the failed step after a failure.
func (m *Manager) CurrentStep() (Step, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateRunning && m.state != StateFailed {
		return Step{}, false
	}
	return m.steps[m.current], true
}

// Steps returns a copy of the step list.
func (m *Manager) Steps() []Step {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copySteps()
}

// Progress returns the percentage of finished steps (current*100/total).
func (m *Manager) Progress() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.progressLocked()
}

// History returns recent transitions, oldest first.
func (m *Manager) History() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history.Transitions()
}

// StepDuration returns how long a finished step took.
func (m *Manager) StepDuration(index int) (time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history.StepDuration(index)
}

// Snapshot returns a consistent copy of the manager's state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Kind:     m.def.Kind,
		RunID:    m.runID,
		State:    m.state,
		Current:  m.current,
		Progress: m.progressLocked(),
		Steps:    m.copySteps(),
		Err:      m.err,
		Timeout:  m.def.Timeout,
	}
}

func (m *Manager) checkRunLocked(id RunID) error {
	if id == uuid.Nil || id != m.runID {
		return fmt.Errorf("%w: %s", ErrStaleRun, id)
	}
	return nil
}

func (m *Manager) advanceLocked() (Transition, error) {
	if m.state != StateRunning {
		return Transition{}, &MisuseError{Op: "advance", State: m.state}
	}

	now := m.now()
	step := &m.steps[m.current]
	step.Status = domain.StepDone
	step.FinishedAt = now
	m.history.RecordStep(step.Index, now.Sub(step.StartedAt))

	if m.current+1 >= len(m.steps) {
		m.current = len(m.steps)
		return m.transitionLocked(StateCompleted, "all steps done"), nil
	}

	m.current++
	m.steps[m.current].Status = domain.StepActive
	m.steps[m.current].StartedAt = now
	return m.transitionLocked(StateRunning, m.steps[m.current].Label), nil
}

func (m *Manager) failLocked(cause error) (Transition, error) {
	if m.state != StateRunning {
		return Transition{}, &MisuseError{Op: "fail", State: m.state}
	}

	now := m.now()
	step := &m.steps[m.current]
	step.Status = domain.StepFailed
	step.Err = cause
	step.FinishedAt = now
	m.err = cause

	reason := "failed"
	if cause != nil {
		reason = cause.Error()
	}
	return m.transitionLocked(StateFailed, reason), nil
}

func (m *Manager) transitionLocked(to State, reason string) Transition {
	if !CanTransition(m.state, to) {
		m.log.Error("Invalid workflow transition", "from", m.state, "to", to)
	}
	t := NewTransition(m.state, to, m.current, reason)
	t.Timestamp = m.now()
	m.state = to
	m.history.RecordTransition(t)
	metrics.WorkflowTransitions.WithLabelValues(string(m.def.Kind), string(to)).Inc()
	return t
}

func (m *Manager) progressLocked() int {
	if len(m.steps) == 0 {
		return 0
	}
	return m.current * 100 / len(m.steps)
}

func (m *Manager) copySteps() []Step {
	out := make([]Step, len(m.steps))
	copy(out, m.steps)
	return out
}

func (m *Manager) notify(t Transition) {
	m.log.Debug("Workflow transition",
		"from", t.From,
		"to", t.To,
		"step", t.Step,
		"reason", t.Reason,
	)

	m.mu.RLock()
	cb := m.callback
	m.mu.RUnlock()
	if cb != nil {
		cb(m.def.Kind, t)
	}
}
