package avoidance

// HoldDebounce keeps a boolean decision stable around its trigger boundary.
// While the previous decision was false the raw predicate is evaluated at the
// nominal threshold (factor 1.0); once it has latched true, the predicate is
// re-evaluated against a threshold expanded by ExpandFactor, so small
// oscillations of the input no longer flip the decision every cycle.
//
// The same primitive backs avoid-required, the stoppable judgement and the
// forced-avoidance trigger.
type HoldDebounce struct {
	ExpandFactor float64
}

// Evaluate returns the new decision given the previous one and a predicate
// parametrised by a threshold factor.
func (d HoldDebounce) Evaluate(prev bool, check func(factor float64) bool) bool {
	if !prev {
		return check(1.0)
	}
	return check(d.ExpandFactor)
}
