package avoidance

import (
	"math"
	"sort"

	"github.com/banshee-data/lateralplan/internal/geometry"
)

// AvoidLine is one atomic shift instruction: a linear lateral-offset
// transition from StartShift to EndShift over the arc-length interval
// [StartLongitudinal, EndLongitudinal] of the reference path.
type AvoidLine struct {
	ID       uint64
	ObjectID string // originating object, empty for synthetic lines

	StartPose geometry.Pose
	EndPose   geometry.Pose

	StartLongitudinal float64
	EndLongitudinal   float64
	StartShift        float64
	EndShift          float64

	// ParentIDs are the ids of earlier lines whose arc-length interval
	// overlaps this one, preserving lineage through merges.
	ParentIDs []uint64

	// SameDirectionMerge marks a line whose shift sign no longer matches
	// its originating object's side because it absorbed a same-direction
	// neighbour.
	SameDirectionMerge bool
}

// RelativeLongitudinal returns the arc-length span of the line.
func (l AvoidLine) RelativeLongitudinal() float64 {
	return l.EndLongitudinal - l.StartLongitudinal
}

// RelativeShift returns the shift change across the line.
func (l AvoidLine) RelativeShift() float64 { return l.EndShift - l.StartShift }

// Gradient returns the shift change per metre of arc length. A zero-span
// line has gradient zero.
func (l AvoidLine) Gradient() float64 {
	span := l.RelativeLongitudinal()
	if math.Abs(span) < 1e-9 {
		return 0
	}
	return l.RelativeShift() / span
}

// AvoidLineArray is an ordered set of shift lines.
type AvoidLineArray []AvoidLine

// SortByLongitudinal orders lines ascending by start arc length. The sort is
// stable so that on exact ties earlier (registered) lines keep precedence
// over newly generated ones.
func (ls AvoidLineArray) SortByLongitudinal() {
	sort.SliceStable(ls, func(i, j int) bool {
		return ls[i].StartLongitudinal < ls[j].StartLongitudinal
	})
}

// AvoidOutline is one object's candidate maneuver: the shift away from
// center, an optional run of middle lines holding the shift across chained
// neighbours, and the return to center.
type AvoidOutline struct {
	AvoidLine   AvoidLine
	MiddleLines AvoidLineArray
	ReturnLine  AvoidLine
}

// Lines flattens the outline into execution order.
func (o AvoidOutline) Lines() AvoidLineArray {
	out := make(AvoidLineArray, 0, len(o.MiddleLines)+2)
	out = append(out, o.AvoidLine)
	out = append(out, o.MiddleLines...)
	out = append(out, o.ReturnLine)
	return out
}

// AvoidOutlines is the per-cycle set of candidate maneuvers.
type AvoidOutlines []AvoidOutline

// ShiftLength computes the absolute lateral position the ego must reach to
// clear an object: past the overhang by the avoid margin, on the side away
// from the object. Magnitudes of 1e-3 or less collapse to zero.
func ShiftLength(onRight bool, overhang, margin float64) float64 {
	length := overhang - margin
	if onRight {
		length = overhang + margin
	}
	if math.Abs(length) <= 1e-3 {
		return 0
	}
	return length
}

// ShiftNecessary reports whether the computed shift actually moves the ego
// away from the object. A right-side object needs a leftward (positive)
// shift and vice versa; anything else means the ego already clears it.
func ShiftNecessary(onRight bool, shift float64) bool {
	if onRight && shift < 0 {
		return false
	}
	if !onRight && shift > 0 {
		return false
	}
	return true
}

// SameDirectionShift reports whether the shift points toward the object's
// side rather than away from it.
func SameDirectionShift(onRight bool, shift float64) bool {
	return onRight == math.Signbit(shift)
}

// LerpShiftOnArc evaluates the line's shift length at arc position arc.
// Outside [start, end) it contributes nothing; a degenerate zero-span line
// evaluates to its end shift.
func LerpShiftOnArc(arc float64, l AvoidLine) float64 {
	if arc < l.StartLongitudinal || arc >= l.EndLongitudinal {
		return 0
	}
	span := l.RelativeLongitudinal()
	if math.Abs(span) < 1e-5 {
		return l.EndShift
	}
	w := (l.EndLongitudinal - arc) / span
	return w*l.StartShift + (1-w)*l.EndShift
}

// ConcatParentIDs unions two parent-id sets, deduplicated and sorted.
func ConcatParentIDs(a, b []uint64) []uint64 {
	set := make(map[uint64]struct{}, len(a)+len(b))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		set[id] = struct{}{}
	}
	out := make([]uint64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CalcParentIDs collects the ids of lines in origins whose arc-length
// interval overlaps line.
func CalcParentIDs(origins AvoidLineArray, line AvoidLine) []uint64 {
	var ids []uint64
	for _, al := range origins {
		noOverlap := al.EndLongitudinal < line.StartLongitudinal ||
			line.EndLongitudinal < al.StartLongitudinal
		if noOverlap {
			continue
		}
		ids = append(ids, al.ID)
	}
	return ConcatParentIDs(ids, nil)
}

// RequiredLongitudinal returns the arc-length span needed to change the
// lateral offset by shift at the given speed without exceeding jerk,
// assuming a minimum-jerk lateral profile.
func RequiredLongitudinal(shift, speed, jerk float64) float64 {
	j := math.Abs(jerk)
	l := math.Abs(shift)
	if j < 1e-8 {
		return math.Inf(1)
	}
	return speed * math.Cbrt(32*l/j)
}

// JerkFromLatLonDistance is the inverse of RequiredLongitudinal: the peak
// lateral jerk of a minimum-jerk transition of lateral metres over
// longitudinal metres at the given speed.
func JerkFromLatLonDistance(lateral, longitudinal, speed float64) float64 {
	if longitudinal < 1e-6 {
		return math.Inf(1)
	}
	t := longitudinal / speed
	if t < 1e-6 {
		return math.Inf(1)
	}
	return 32 * math.Abs(lateral) / (t * t * t)
}

// Comfortable reports whether every line stays below the lateral jerk limit
// at the given speed.
func Comfortable(lines AvoidLineArray, speed, jerkLimit float64) bool {
	for _, l := range lines {
		if JerkFromLatLonDistance(l.RelativeShift(), l.RelativeLongitudinal(), speed) >= jerkLimit {
			return false
		}
	}
	return true
}
