package workout

import "github.com/claude/repflow/internal/models"

// phaseEvent is a discrete input to the phase state machine.
type phaseEvent int

const (
	evStart phaseEvent = iota
	evSetDone
	evFailureInput
	evFailureDone
	evRestDone
	evBeginSet
	evSkipCurrent
	evReturnTo
	evPause
	evResume
	evFinish
)

// progress is the read-only view of session state the transition
// function needs: what has been completed and what has been skipped.
type progress struct {
	exercises []models.ExerciseDefinition
	setsDone  []int
	failDone  []bool
	skipped   map[int]bool
	returnTo  int // target index for evReturnTo
}

func (pr progress) exerciseDone(i int) bool {
	ex := pr.exercises[i]
	if pr.setsDone[i] < ex.Sets {
		return false
	}
	if ex.ToFailure && !pr.failDone[i] {
		return false
	}
	return true
}

// nextUnfinished returns the first exercise after idx that is neither
// skipped nor done, or -1.
func (pr progress) nextUnfinished(idx int) int {
	for j := idx + 1; j < len(pr.exercises); j++ {
		if !pr.skipped[j] && !pr.exerciseDone(j) {
			return j
		}
	}
	return -1
}

func (pr progress) skippedRemain() bool {
	for i := range pr.exercises {
		if pr.skipped[i] && !pr.exerciseDone(i) {
			return true
		}
	}
	return false
}

// nextPhase is the single pure (phase, event) -> phase function. It
// never mutates the accumulator; callers record sets before invoking
// it so pr reflects post-event counts. Unknown combinations return the
// phase unchanged.
func nextPhase(p Phase, ev phaseEvent, pr progress) Phase {
	switch ev {
	case evPause:
		switch p.Kind {
		case PhaseIdle, PhaseComplete, PhasePaused:
			return p
		}
		prev := p
		return Phase{Kind: PhasePaused, Prev: &prev}

	case evResume:
		return p.Unwrap()

	case evFinish:
		return Phase{Kind: PhaseComplete}
	}

	switch p.Kind {
	case PhaseIdle:
		if ev == evStart {
			return Phase{Kind: PhaseActive, Exercise: 0, Set: 0}
		}

	case PhaseReady:
		if ev == evBeginSet {
			return Phase{Kind: PhaseActive, Exercise: p.Exercise, Set: p.Set}
		}
		if ev == evSkipCurrent {
			return afterExercise(p.Exercise, pr)
		}

	case PhaseActive:
		switch ev {
		case evSetDone:
			return afterSet(p.Exercise, pr)
		case evSkipCurrent:
			return afterExercise(p.Exercise, pr)
		}

	case PhaseResting:
		switch ev {
		case evRestDone:
			return Phase{Kind: PhaseActive, Exercise: p.Exercise, Set: pr.setsDone[p.Exercise]}
		case evSkipCurrent:
			return afterExercise(p.Exercise, pr)
		}

	case PhaseRestingForFailure:
		switch ev {
		case evRestDone:
			return Phase{Kind: PhaseFailureSet, Exercise: p.Exercise, Set: pr.setsDone[p.Exercise]}
		case evSkipCurrent:
			return afterExercise(p.Exercise, pr)
		}

	case PhaseRestingBetween:
		switch ev {
		case evRestDone:
			return Phase{Kind: PhaseActive, Exercise: p.Exercise, Set: pr.setsDone[p.Exercise]}
		case evSkipCurrent:
			return afterExercise(p.Exercise, pr)
		}

	case PhaseFailureSet:
		switch ev {
		case evFailureInput:
			return Phase{Kind: PhaseFailureInput, Exercise: p.Exercise, Set: p.Set}
		case evFailureDone:
			return afterExercise(p.Exercise, pr)
		case evSkipCurrent:
			return afterExercise(p.Exercise, pr)
		}

	case PhaseFailureInput:
		if ev == evFailureDone {
			return afterExercise(p.Exercise, pr)
		}

	case PhaseSkippedPrompt:
		if ev == evReturnTo {
			return Phase{Kind: PhaseReady, Exercise: pr.returnTo, Set: pr.setsDone[pr.returnTo]}
		}
	}

	return p
}

// afterSet decides where to go once a main set for exercise e has been
// recorded: more main sets, then the failure set, then the next
// exercise.
func afterSet(e int, pr progress) Phase {
	ex := pr.exercises[e]
	if pr.setsDone[e] < ex.Sets {
		return restOrSkipTo(Phase{Kind: PhaseResting, Exercise: e, Set: pr.setsDone[e], RestSecs: ex.RestTimeSec})
	}
	if ex.ToFailure && !pr.failDone[e] {
		return restOrSkipTo(Phase{Kind: PhaseRestingForFailure, Exercise: e, Set: pr.setsDone[e], RestSecs: ex.RestTimeSec})
	}
	return afterExercise(e, pr)
}

// afterExercise advances past exercise e to the next unfinished one,
// the skipped-exercises prompt, or completion.
//
// The between-exercise rest uses the rest time of the exercise that
// just finished, not the upcoming one.
func afterExercise(e int, pr progress) Phase {
	next := pr.nextUnfinished(e)
	if next >= 0 {
		return restOrSkipTo(Phase{
			Kind:     PhaseRestingBetween,
			Exercise: next,
			Set:      pr.setsDone[next],
			RestSecs: pr.exercises[e].RestTimeSec,
		})
	}
	if pr.skippedRemain() {
		return Phase{Kind: PhaseSkippedPrompt, Exercise: e}
	}
	return Phase{Kind: PhaseComplete}
}

// restOrSkipTo collapses a resting phase with a zero countdown straight
// into its target, so rest_time = 0 never produces a visible wait.
func restOrSkipTo(rest Phase) Phase {
	if rest.RestSecs > 0 {
		return rest
	}
	switch rest.Kind {
	case PhaseResting, PhaseRestingBetween:
		return Phase{Kind: PhaseActive, Exercise: rest.Exercise, Set: rest.Set}
	case PhaseRestingForFailure:
		return Phase{Kind: PhaseFailureSet, Exercise: rest.Exercise, Set: rest.Set}
	}
	return rest
}
