package workflow

import "time"

// historySize is the number of transitions kept per manager.
const historySize = 10

// History holds recent transitions and step timings for one manager.
type History struct {
	transitions   []Transition
	stepDurations map[int]time.Duration
}

func newHistory() *History {
	return &History{
		transitions:   make([]Transition, 0, historySize),
		stepDurations: make(map[int]time.Duration),
	}
}

// RecordTransition records a state transition.
func (h *History) RecordTransition(t Transition) {
	// Keep only the last historySize transitions
	if len(h.transitions) >= historySize {
		copy(h.transitions, h.transitions[1:])
		h.transitions[len(h.transitions)-1] = t
	} else {
		h.transitions = append(h.transitions, t)
	}
}

// RecordStep records how long a finished step took.
func (h *History) RecordStep(index int, d time.Duration) {
	h.stepDurations[index] = d
}

// Transitions returns a copy of the recorded transitions, oldest first.
func (h *History) Transitions() []Transition {
	out := make([]Transition, len(h.transitions))
	copy(out, h.transitions)
	return out
}

// StepDuration returns the recorded duration of step index.
func (h *History) StepDuration(index int) (time.Duration, bool) {
	d, ok := h.stepDurations[index]
	return d, ok
}

// clearSteps drops step timings; transitions survive a reset.
func (h *History) clearSteps() {
	h.stepDurations = make(map[int]time.Duration)
}
