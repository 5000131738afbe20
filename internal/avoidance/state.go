package avoidance

import "math"

// State is the ego behavioural mode for one planning cycle. It is a tagged
// value recomputed every cycle as a pure function of the planning data and
// the safety verdict; nothing transitions, nothing persists.
type State string

const (
	// StateNotAvoid: no avoidance targets exist.
	StateNotAvoid State = "NOT_AVOID"
	// StateAvoidPathNotReady: targets exist but no executable shift line
	// does (not yet generated, or waiting for approval).
	StateAvoidPathNotReady State = "AVOID_PATH_NOT_READY"
	// StateAvoidExecute: safe shift lines are active.
	StateAvoidExecute State = "AVOID_EXECUTE"
	// StateYield: a target forces yielding, either unavoidable and close
	// or failing the safety check.
	StateYield State = "YIELD"
)

// DeriveState computes the cycle's behavioural state.
// yieldDistance bounds how close an unavoidable target must be to force a
// yield; activeLines is the number of shift lines currently committed or
// approved for execution.
func DeriveState(data *PlanningData, activeLines int, yieldDistance float64) State {
	if len(data.TargetObjects) == 0 {
		return StateNotAvoid
	}

	for _, o := range data.TargetObjects {
		unavoidableAndClose := !o.IsAvoidable && math.Abs(o.Longitudinal) < yieldDistance
		if unavoidableAndClose {
			return StateYield
		}
	}
	if !data.Safe {
		return StateYield
	}

	if activeLines > 0 {
		return StateAvoidExecute
	}
	return StateAvoidPathNotReady
}
