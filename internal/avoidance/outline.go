package avoidance

import (
	"math"
	"sort"
)

// OutlineGenerator turns avoidance targets into candidate maneuvers in
// arc-length/shift-length space. Each outline shifts from the current
// lateral offset to the required shift over a jerk-feasible span, holds it
// past the object and returns to center; chained same-side objects share one
// outline through middle lines instead of returning to center in between.
type OutlineGenerator struct {
	params *Parameters
	nextID func() uint64
}

// NewOutlineGenerator builds a generator. nextID supplies unique line ids.
func NewOutlineGenerator(params *Parameters, nextID func() uint64) *OutlineGenerator {
	return &OutlineGenerator{params: params, nextID: nextID}
}

// Generate builds outlines for every avoidable target. Targets whose
// required shift is degenerate or jerk-infeasible within the available
// distance are folded back into data.OtherObjects instead of emitting a
// broken line; profile evaluates the currently committed shift profile.
func (g *OutlineGenerator) Generate(data *PlanningData, profile func(float64) float64) AvoidOutlines {
	p := g.params
	pathLen := data.ReferencePath.Length()
	speed := math.Max(data.EgoSpeed, p.NominalAvoidanceSpeed)

	fold := func(o ObjectData) {
		o.Reason = ReasonLessThanExecutionThreshold
		data.OtherObjects = append(data.OtherObjects, o)
		data.Rejections = append(data.Rejections, RejectionRecord{ObjectID: o.Object.ID, Reason: o.Reason})
	}

	targets := make([]ObjectData, 0, len(data.TargetObjects))
	targets = append(targets, data.TargetObjects...)
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].Longitudinal < targets[j].Longitudinal
	})

	var outlines AvoidOutlines
	kept := targets[:0]
	for _, o := range targets {
		if o.AvoidMargin == nil {
			// Unavoidable objects stay targets (they drive yielding) but
			// produce no outline.
			kept = append(kept, o)
			continue
		}

		shift := ShiftLength(o.OnRight(), o.OverhangDist, *o.AvoidMargin)
		if shift == 0 {
			fold(o)
			continue
		}

		// Object longitudinals are ego relative; lines live on the
		// path-start arc-length axis.
		avoidEnd := data.EgoArcLength + o.Longitudinal - p.LongitudinalFrontBuffer
		available := avoidEnd - data.EgoArcLength
		if available <= 0 {
			fold(o)
			continue
		}

		delta := shift - profile(data.EgoArcLength)
		span := RequiredLongitudinal(delta, speed, p.NominalLateralJerk)
		if span > available {
			// Nominal jerk does not fit; accept anything up to the hard
			// jerk limit before giving up on the object.
			if RequiredLongitudinal(delta, speed, p.MaxLateralJerk) > available {
				fold(o)
				continue
			}
			span = available
		}
		avoidStart := avoidEnd - span

		returnStart := data.EgoArcLength + o.Longitudinal + o.Length + p.LongitudinalRearBuffer
		returnEnd := returnStart + RequiredLongitudinal(shift, speed, p.NominalLateralJerk)
		if returnStart > pathLen {
			returnStart = pathLen
		}
		if returnEnd > pathLen {
			returnEnd = pathLen
		}

		al := AvoidLine{
			ID:                g.nextID(),
			ObjectID:          o.Object.ID,
			StartLongitudinal: avoidStart,
			EndLongitudinal:   avoidEnd,
			StartShift:        profile(avoidStart),
			EndShift:          shift,
			StartPose:         data.ReferencePath.PoseAtArcLength(avoidStart),
			EndPose:           data.ReferencePath.PoseAtArcLength(avoidEnd),
		}
		rl := AvoidLine{
			ID:                g.nextID(),
			ObjectID:          o.Object.ID,
			StartLongitudinal: returnStart,
			EndLongitudinal:   returnEnd,
			StartShift:        shift,
			EndShift:          0,
			StartPose:         data.ReferencePath.PoseAtArcLength(returnStart),
			EndPose:           data.ReferencePath.PoseAtArcLength(returnEnd),
		}
		outlines = append(outlines, AvoidOutline{AvoidLine: al, ReturnLine: rl})
		kept = append(kept, o)
	}
	data.TargetObjects = kept

	return g.chain(outlines, data)
}

// chain folds consecutive same-side outlines whose intervals overlap or sit
// closer than the configured gap into a single outline, bridging the
// objects with a middle line instead of a return to center.
func (g *OutlineGenerator) chain(outlines AvoidOutlines, data *PlanningData) AvoidOutlines {
	if len(outlines) < 2 {
		return outlines
	}
	p := g.params

	out := AvoidOutlines{outlines[0]}
	for _, next := range outlines[1:] {
		cur := &out[len(out)-1]

		sameSide := math.Signbit(cur.AvoidLine.EndShift) == math.Signbit(next.AvoidLine.EndShift)
		gap := next.AvoidLine.StartLongitudinal - cur.ReturnLine.EndLongitudinal
		if !sameSide || gap > p.MiddleLineChainGap {
			out = append(out, next)
			continue
		}

		// Hold the shift across the gap: a middle line runs from the end
		// of the current avoid transition to the end of the next one.
		mid := AvoidLine{
			ID:                g.nextID(),
			ObjectID:          cur.AvoidLine.ObjectID,
			StartLongitudinal: cur.AvoidLine.EndLongitudinal,
			EndLongitudinal:   next.AvoidLine.EndLongitudinal,
			StartShift:        cur.AvoidLine.EndShift,
			EndShift:          next.AvoidLine.EndShift,
			StartPose:         data.ReferencePath.PoseAtArcLength(cur.AvoidLine.EndLongitudinal),
			EndPose:           next.AvoidLine.EndPose,
			ParentIDs:         ConcatParentIDs([]uint64{cur.AvoidLine.ID}, []uint64{next.AvoidLine.ID}),
		}
		cur.MiddleLines = append(cur.MiddleLines, mid)
		cur.ReturnLine = next.ReturnLine
	}
	return out
}
