package avoidance

import (
	"math"
	"time"

	"github.com/banshee-data/lateralplan/internal/geometry"
)

// ObjectRegistry carries object state across planning cycles: the registered
// set used for envelope smoothing, hysteresis and detection-lost
// compensation, and the stopped set backing the move/stop timers. It is owned
// by the engine and mutated only between the read phase of one tick and the
// next; it is an explicit store, not ambient state.
type ObjectRegistry struct {
	registered []ObjectData
	stopped    []ObjectData
}

// Registered returns the current registered set.
func (r *ObjectRegistry) Registered() []ObjectData { return r.registered }

func findByID(objs []ObjectData, id string) int {
	for i := range objs {
		if objs[i].Object.ID == id {
			return i
		}
	}
	return -1
}

// Update reconciles the registered set against this cycle's detections.
// A registered object is refreshed by identity match, falling back to the
// nearest detection within matchRadius; unmatched objects accrue lost time
// and are evicted once it exceeds lastSeenThreshold (seconds). New ids are
// added.
func (r *ObjectRegistry) Update(now time.Time, detected []ObjectData, matchRadius, lastSeenThreshold float64) {
	match := func(reg *ObjectData) bool {
		if i := findByID(detected, reg.Object.ID); i >= 0 {
			*reg = detected[i]
			return true
		}
		for i := range detected {
			if reg.Object.Pose.Point.DistanceTo(detected[i].Object.Pose.Point) < matchRadius {
				*reg = detected[i]
				return true
			}
		}
		return false
	}

	kept := r.registered[:0]
	for i := range r.registered {
		reg := r.registered[i]
		if match(&reg) {
			reg.LastSeen = now
			reg.LostTime = 0
		} else {
			reg.LostTime = now.Sub(reg.LastSeen).Nanoseconds()
		}
		if float64(reg.LostTime)/1e9 <= lastSeenThreshold {
			kept = append(kept, reg)
		}
	}
	r.registered = kept

	for i := range detected {
		if findByID(r.registered, detected[i].Object.ID) < 0 {
			o := detected[i]
			o.LastSeen = now
			r.registered = append(r.registered, o)
		}
	}
}

// CompensateDetectionLost re-injects registered objects that were neither
// detected this cycle nor already rejected, so a briefly occluded target does
// not drop out of the plan.
func (r *ObjectRegistry) CompensateDetectionLost(detected *[]ObjectData, others []ObjectData) {
	for i := range r.registered {
		reg := r.registered[i]
		if findByID(*detected, reg.Object.ID) >= 0 {
			continue
		}
		if findByID(others, reg.Object.ID) >= 0 {
			continue
		}
		*detected = append(*detected, reg)
	}
}

// FillMovingTime maintains the object's move/stop timers against the stopped
// set. A newly seen moving object gets an infinite move time so it is never
// mistaken for a fresh stop; a stopped object's stop time accrues from its
// last observed movement; an object moving longer than movingTimeThreshold
// (seconds) leaves the stopped set.
func (r *ObjectRegistry) FillMovingTime(now time.Time, o *ObjectData, movingSpeedThreshold, movingTimeThreshold float64) {
	moving := o.Object.Speed > movingSpeedThreshold
	idx := findByID(r.stopped, o.Object.ID)

	if !moving {
		o.LastStop = now
		o.MoveTime = 0
		if idx < 0 {
			o.StopTime = 0
			o.LastMove = now
			r.stopped = append(r.stopped, *o)
			return
		}
		s := &r.stopped[idx]
		s.StopTime = now.Sub(s.LastMove).Nanoseconds()
		s.LastStop = now
		s.MoveTime = 0
		o.StopTime = s.StopTime
		return
	}

	if idx < 0 {
		o.MoveTime = int64(1) << 62 // effectively infinite
		o.StopTime = 0
		o.LastMove = now
		return
	}

	o.LastStop = r.stopped[idx].LastStop
	o.MoveTime = now.Sub(o.LastStop).Nanoseconds()
	o.StopTime = 0

	if o.MoveSeconds() > movingTimeThreshold {
		r.stopped = append(r.stopped[:idx], r.stopped[idx+1:]...)
	}
}

// FillEnvelope sets the object's time-smoothed envelope polygon. While the
// raw footprint stays inside the registered envelope the registered polygon
// is kept, so detection jitter does not ripple into the shift profile; a
// footprint escaping it grows the envelope by union.
func (r *ObjectRegistry) FillEnvelope(o *ObjectData, closestPose geometry.Pose, buffer float64) {
	fresh := geometry.Envelope(o.Object.Footprint, closestPose, buffer)

	idx := findByID(r.registered, o.Object.ID)
	if idx < 0 || len(r.registered[idx].Envelope) == 0 {
		o.Envelope = fresh
		return
	}
	prior := r.registered[idx].Envelope

	if o.Object.Footprint.Within(prior) {
		o.Envelope = prior
		return
	}

	union := geometry.Union(fresh, prior)
	if len(union) == 0 {
		o.Envelope = fresh
		return
	}
	o.Envelope = geometry.Envelope(union, closestPose, 0)
}

// FillAvoidRequired sets the hysteretic avoid-required flag. The raw
// condition is "the envelope overhang leaves less than the safety margin";
// once latched, it is re-checked against the margin expanded by the
// hysteresis factor.
func (r *ObjectRegistry) FillAvoidRequired(o *ObjectData, safetyMargin float64, debounce HoldDebounce) {
	check := func(factor float64) bool {
		if o.OnRight() {
			return math.Abs(o.OverhangDist) < safetyMargin*factor
		}
		return o.OverhangDist < safetyMargin*factor
	}

	prev := false
	if idx := findByID(r.registered, o.Object.ID); idx >= 0 {
		prev = r.registered[idx].AvoidRequired
	}
	o.AvoidRequired = debounce.Evaluate(prev, check)
}

// FillStoppable sets the stoppable judgement. Under the "reliable"
// deceleration policy the planner always assumes the ego can stop; otherwise
// an object is stoppable while the distance to its stop line exceeds the
// feasible stop distance, and the decision is sticky once made.
func (r *ObjectRegistry) FillStoppable(o *ObjectData, feasibleStopDistance float64, policy string) {
	if policy == "reliable" {
		o.IsStoppable = true
		return
	}
	if !o.AvoidRequired {
		o.IsStoppable = false
		return
	}
	if o.ToStopLine > feasibleStopDistance {
		o.IsStoppable = true
		return
	}
	if idx := findByID(r.registered, o.Object.ID); idx >= 0 {
		o.IsStoppable = r.registered[idx].IsStoppable
		return
	}
	o.IsStoppable = false
}
