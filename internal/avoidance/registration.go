package avoidance

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/lateralplan/internal/geometry"
)

// RegisteredShiftLine is a shift line that passed cooperative approval. It
// is retained with world-frame poses independent of recomputation until the
// ego has passed its finish point and the cumulative shift returned to zero.
type RegisteredShiftLine struct {
	Token      uuid.UUID
	Line       AvoidLine
	StartPose  geometry.Pose
	FinishPose geometry.Pose
}

// sideSlot is the single outstanding approval request for one side. It
// covers the side's whole maneuver (avoid, middle and return lines); a new
// candidate maneuver on the same side cancels and replaces the previous
// unapproved one.
type sideSlot struct {
	token uuid.UUID
	lines AvoidLineArray // sorted, nearest first
	open  bool
}

// Registration attributes finalized lines to approval slots and persists
// approved lines across cycles. One request may be outstanding per side;
// shift-length sign picks the side (positive is left).
type Registration struct {
	approval CooperateInterface

	left  sideSlot
	right sideSlot

	registered []RegisteredShiftLine
}

// NewRegistration wires the cooperative transport.
func NewRegistration(approval CooperateInterface) *Registration {
	return &Registration{approval: approval}
}

// Registered returns the currently approved lines.
func (r *Registration) Registered() []RegisteredShiftLine { return r.registered }

// RegisteredLines returns the approved lines as a pipeline input array.
func (r *Registration) RegisteredLines() AvoidLineArray {
	out := make(AvoidLineArray, 0, len(r.registered))
	for _, reg := range r.registered {
		out = append(out, reg.Line)
	}
	return out
}

func (r *Registration) slotFor(shift float64) *sideSlot {
	if shift > 0 {
		return &r.left
	}
	return &r.right
}

// RequestCandidates files approval requests for this cycle's new lines. One
// request per side covers the side's whole fresh maneuver; an open request
// whose maneuver has materially changed is cancelled and re-filed. ready
// mirrors whether the planner could execute immediately on approval.
func (r *Registration) RequestCandidates(now time.Time, fresh AvoidLineArray, egoArc float64, ready bool) {
	for _, side := range []float64{+1, -1} {
		var picked AvoidLineArray
		for _, l := range fresh {
			// A return line ends at zero; its side is where it starts.
			shift := l.EndShift
			if shift == 0 {
				shift = l.StartShift
			}
			if shift*side > 0 {
				picked = append(picked, l)
			}
		}
		slot := r.slotFor(side)

		if len(picked) == 0 {
			if slot.open {
				r.approval.Remove(slot.token)
				slot.open = false
			}
			continue
		}
		picked.SortByLongitudinal()

		if slot.open && !sameManeuver(slot.lines[0], picked[0]) {
			r.approval.Remove(slot.token)
			slot.open = false
		}
		if !slot.open {
			slot.token = uuid.New()
			slot.open = true
		}
		slot.lines = picked
		r.approval.UpdateStatus(slot.token, ready,
			picked[0].StartLongitudinal-egoArc,
			picked[len(picked)-1].EndLongitudinal-egoArc, now)
	}
}

func sameManeuver(a, b AvoidLine) bool {
	return math.Abs(a.StartLongitudinal-b.StartLongitudinal) < 1.0 &&
		math.Abs(a.EndShift-b.EndShift) < 0.5
}

// PromoteApproved moves every line of an approved maneuver into the
// registered set with its world-frame poses and closes the slot.
func (r *Registration) PromoteApproved() (promoted []RegisteredShiftLine) {
	for _, slot := range []*sideSlot{&r.left, &r.right} {
		if !slot.open {
			continue
		}
		if r.approval.Status(slot.token) != ApprovalApproved {
			continue
		}
		for _, line := range slot.lines {
			reg := RegisteredShiftLine{
				Token:      slot.token,
				Line:       line,
				StartPose:  line.StartPose,
				FinishPose: line.EndPose,
			}
			r.registered = append(r.registered, reg)
			promoted = append(promoted, reg)
		}
		slot.open = false
	}
	return promoted
}

// Refresh re-anchors every registered line on the current reference path and
// updates its approval record with fresh start/finish distances. egoArc is
// the ego position on the path-start arc-length axis; line longitudinals are
// kept in that frame while the approval record carries ego-relative values.
func (r *Registration) Refresh(now time.Time, path geometry.Path, egoPos geometry.Point, egoArc float64) {
	for i := range r.registered {
		reg := &r.registered[i]
		start := path.SignedArcLength(egoPos, reg.StartPose.Point)
		finish := path.SignedArcLength(egoPos, reg.FinishPose.Point)
		reg.Line.StartLongitudinal = egoArc + start
		reg.Line.EndLongitudinal = egoArc + finish
		r.approval.UpdateStatus(reg.Token, true, start, finish, now)
	}
}

// Expire discards registered lines once the ego has passed their finish
// point, provided the cumulative shift has returned to zero (baseOffset).
// Removing them earlier would replan a maneuver the ego is mid-way through.
func (r *Registration) Expire(path geometry.Path, egoPos geometry.Point, baseOffset float64) {
	if math.Abs(baseOffset) > 0.1 {
		return
	}
	kept := r.registered[:0]
	for _, reg := range r.registered {
		finish := path.SignedArcLength(egoPos, reg.FinishPose.Point)
		if finish < -1e-3 {
			r.approval.Remove(reg.Token)
			continue
		}
		kept = append(kept, reg)
	}
	r.registered = kept
}
