package workout

// PhaseKind discriminates the WorkoutPhase tagged union.
type PhaseKind string

const (
	PhaseIdle              PhaseKind = "idle"
	PhaseReady             PhaseKind = "ready"
	PhaseActive            PhaseKind = "active"
	PhaseResting           PhaseKind = "resting"
	PhaseRestingForFailure PhaseKind = "resting_for_failure"
	PhaseRestingBetween    PhaseKind = "resting_between_exercises"
	PhaseFailureSet        PhaseKind = "failure_set"
	PhaseFailureInput      PhaseKind = "failure_input"
	PhaseSkippedPrompt     PhaseKind = "skipped_exercises_prompt"
	PhaseComplete          PhaseKind = "complete"
	PhasePaused            PhaseKind = "paused"
)

// Phase is the current stage of a live workout. Exactly one variant is
// current at any time. Exercise and Set index into the template while
// the phase is neither idle nor complete. RestSecs carries the planned
// countdown for the resting variants. Prev is set only for paused and
// preserves the exact wrapped phase.
type Phase struct {
	Kind     PhaseKind `json:"kind"`
	Exercise int       `json:"exercise"`
	Set      int       `json:"set"`
	RestSecs int       `json:"rest_secs,omitempty"`
	Prev     *Phase    `json:"prev,omitempty"`
}

// IsRest reports whether the phase is one of the resting variants.
func (p Phase) IsRest() bool {
	switch p.Kind {
	case PhaseResting, PhaseRestingForFailure, PhaseRestingBetween:
		return true
	}
	return false
}

// Unwrap returns the wrapped phase for paused, or the phase itself.
func (p Phase) Unwrap() Phase {
	if p.Kind == PhasePaused && p.Prev != nil {
		return *p.Prev
	}
	return p
}

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p.Kind == PhaseComplete
}
