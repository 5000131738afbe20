package avoidance

import (
	"fmt"
	"math"

	"github.com/banshee-data/lateralplan/internal/geometry"
)

// arcEps treats arc-length differences below this as coincident.
const arcEps = 1e-6

// Pipeline converts the cycle's outlines plus the previously registered
// lines into one ordered, non-overlapping shift-line array:
// combine -> add-return -> merge -> fill-gap -> trim -> extract-new,
// finished by a validity check of the resulting profile at the ego position.
type Pipeline struct {
	params *Parameters
	nextID func() uint64
}

// NewPipeline builds a pipeline. nextID supplies unique line ids.
func NewPipeline(params *Parameters, nextID func() uint64) *Pipeline {
	return &Pipeline{params: params, nextID: nextID}
}

// Run executes all stages. It returns the final candidate array and the
// subset needing fresh approval. A validity failure returns an error; the
// caller keeps the previously committed plan for the cycle.
func (pl *Pipeline) Run(data *PlanningData, registered AvoidLineArray, shifter *PathShifter) (candidates, fresh AvoidLineArray, err error) {
	lines := pl.combine(data.RawOutlines, registered)
	lines = pl.addReturnLine(lines, data, shifter)
	lines = pl.merge(lines)
	lines = pl.fillGap(lines, data, shifter)
	lines = pl.trim(lines)

	if err := pl.checkValidity(lines, data, shifter); err != nil {
		return nil, nil, err
	}

	fresh = pl.extractNew(lines, registered)
	return lines, fresh, nil
}

// combine flattens the outlines and prepends the registered lines. An
// outline whose object already has a near-identical registered line (start
// within DuplicatePoseDelta metres, shift within DuplicateShiftDelta) is
// skipped so the same maneuver is not emitted twice. Registered lines come
// first: on exact arc-length ties older lines keep precedence.
func (pl *Pipeline) combine(outlines AvoidOutlines, registered AvoidLineArray) AvoidLineArray {
	p := pl.params

	duplicated := func(o AvoidOutline) bool {
		for _, r := range registered {
			if r.ObjectID != o.AvoidLine.ObjectID {
				continue
			}
			poseDelta := r.StartPose.Point.DistanceTo(o.AvoidLine.StartPose.Point)
			shiftDelta := math.Abs(r.EndShift - o.AvoidLine.EndShift)
			if poseDelta < p.DuplicatePoseDelta && shiftDelta < p.DuplicateShiftDelta {
				return true
			}
		}
		return false
	}

	out := make(AvoidLineArray, 0, len(registered)+len(outlines)*2)
	out = append(out, registered...)
	for _, o := range outlines {
		if duplicated(o) {
			continue
		}
		out = append(out, o.Lines()...)
	}
	out.SortByLongitudinal()
	return out
}

// addReturnLine guarantees the profile comes back to centerline: if the
// farthest nonzero shift among candidates, registered lines and the ego's
// own residual offset never returns to zero, a return line is appended
// after it.
func (pl *Pipeline) addReturnLine(lines AvoidLineArray, data *PlanningData, shifter *PathShifter) AvoidLineArray {
	p := pl.params

	lastArc := data.EgoArcLength
	lastShift := shifter.BaseOffset()
	for _, l := range lines {
		if l.EndLongitudinal > lastArc {
			lastArc = l.EndLongitudinal
			lastShift = l.EndShift
		}
	}
	if math.Abs(lastShift) < 1e-3 {
		return lines
	}

	pathLen := data.ReferencePath.Length()
	if lastArc >= pathLen-arcEps {
		return lines
	}
	speed := math.Max(data.EgoSpeed, p.NominalAvoidanceSpeed)
	end := math.Min(lastArc+RequiredLongitudinal(lastShift, speed, p.NominalLateralJerk), pathLen)

	ret := AvoidLine{
		ID:                pl.nextID(),
		StartLongitudinal: lastArc,
		EndLongitudinal:   end,
		StartShift:        lastShift,
		EndShift:          0,
		StartPose:         data.ReferencePath.PoseAtArcLength(lastArc),
		EndPose:           data.ReferencePath.PoseAtArcLength(end),
	}
	ret.ParentIDs = CalcParentIDs(lines, ret)
	return append(lines, ret)
}

// merge resolves interval overlaps and collapses consecutive lines whose
// gradients lie within the similarity threshold into one spanning line.
// Parent-id sets are unioned through every collapse. Running merge on its
// own output is a no-op.
func (pl *Pipeline) merge(lines AvoidLineArray) AvoidLineArray {
	if len(lines) < 2 {
		return lines
	}
	p := pl.params
	lines.SortByLongitudinal()

	lineage := func(l AvoidLine) []uint64 {
		return ConcatParentIDs(l.ParentIDs, []uint64{l.ID})
	}

	// Overlap resolution: a line starting inside the previous one is
	// absorbed into a single spanning line ending wherever the pair
	// reaches furthest.
	merged := AvoidLineArray{lines[0]}
	for _, next := range lines[1:] {
		cur := &merged[len(merged)-1]
		if next.StartLongitudinal >= cur.EndLongitudinal-arcEps {
			merged = append(merged, next)
			continue
		}

		sameDir := math.Signbit(cur.EndShift) == math.Signbit(next.EndShift)
		span := *cur
		span.ID = pl.nextID()
		span.ParentIDs = ConcatParentIDs(lineage(*cur), lineage(next))
		span.SameDirectionMerge = sameDir && cur.ObjectID != next.ObjectID
		if next.EndLongitudinal > cur.EndLongitudinal {
			span.EndLongitudinal = next.EndLongitudinal
			span.EndShift = next.EndShift
			span.EndPose = next.EndPose
		}
		// Keep the deeper shift as the target when the intervals fully
		// coincide.
		if math.Abs(next.EndShift) > math.Abs(span.EndShift) && next.EndLongitudinal >= span.EndLongitudinal-arcEps {
			span.EndShift = next.EndShift
		}
		*cur = span
	}

	// Gradient collapse over adjacent lines.
	out := AvoidLineArray{merged[0]}
	for _, next := range merged[1:] {
		cur := &out[len(out)-1]
		adjacent := next.StartLongitudinal-cur.EndLongitudinal < arcEps
		if adjacent && math.Abs(cur.Gradient()-next.Gradient()) < p.SimilarGradThreshold {
			joined := *cur
			joined.ID = pl.nextID()
			joined.EndLongitudinal = next.EndLongitudinal
			joined.EndShift = next.EndShift
			joined.EndPose = next.EndPose
			joined.ParentIDs = ConcatParentIDs(lineage(*cur), lineage(next))
			*cur = joined
			continue
		}
		out = append(out, next)
	}
	return out
}

// fillGap keeps the shift profile piecewise-linear: wherever two lines leave
// a flat gap whose held shift does not match the next line's start, a
// bridging line is inserted; the same applies between the ego's residual
// offset and the first line.
func (pl *Pipeline) fillGap(lines AvoidLineArray, data *PlanningData, shifter *PathShifter) AvoidLineArray {
	if len(lines) == 0 {
		return lines
	}

	bridge := func(startArc, endArc, startShift, endShift float64, parents []uint64) AvoidLine {
		return AvoidLine{
			ID:                pl.nextID(),
			StartLongitudinal: startArc,
			EndLongitudinal:   endArc,
			StartShift:        startShift,
			EndShift:          endShift,
			StartPose:         data.ReferencePath.PoseAtArcLength(startArc),
			EndPose:           data.ReferencePath.PoseAtArcLength(endArc),
			ParentIDs:         parents,
		}
	}

	var out AvoidLineArray

	first := lines[0]
	base := shifter.BaseOffset()
	if first.StartLongitudinal > data.EgoArcLength+arcEps && math.Abs(first.StartShift-base) > 1e-3 {
		out = append(out, bridge(
			data.EgoArcLength, first.StartLongitudinal, base, first.StartShift,
			ConcatParentIDs(first.ParentIDs, []uint64{first.ID})))
	}

	for i := 0; i < len(lines); i++ {
		out = append(out, lines[i])
		if i+1 >= len(lines) {
			break
		}
		cur, next := lines[i], lines[i+1]
		gap := next.StartLongitudinal - cur.EndLongitudinal
		mismatch := math.Abs(next.StartShift-cur.EndShift) > 1e-3
		if gap > arcEps && mismatch && math.Abs(cur.EndShift) > 1e-3 {
			out = append(out, bridge(
				cur.EndLongitudinal, next.StartLongitudinal, cur.EndShift, next.StartShift,
				ConcatParentIDs(
					ConcatParentIDs(cur.ParentIDs, []uint64{cur.ID}),
					ConcatParentIDs(next.ParentIDs, []uint64{next.ID}))))
		}
	}
	out.SortByLongitudinal()
	return out
}

// trim cleans the candidate array: quantize end shifts, drop noise lines
// under the minimum span, collapse near-flat runs across gaps, and remove
// returns to center superseded by a later same-side requirement. Output
// intervals are ascending and pairwise non-overlapping.
func (pl *Pipeline) trim(lines AvoidLineArray) AvoidLineArray {
	if len(lines) == 0 {
		return lines
	}
	p := pl.params
	lines.SortByLongitudinal()

	// Quantize end shifts and re-chain start shifts of contiguous lines so
	// the profile stays continuous.
	if p.QuantizeSize > 1e-9 {
		for i := range lines {
			lines[i].EndShift = math.Round(lines[i].EndShift/p.QuantizeSize) * p.QuantizeSize
			if i > 0 && lines[i].StartLongitudinal-lines[i-1].EndLongitudinal < arcEps {
				lines[i].StartShift = lines[i-1].EndShift
			}
		}
	}

	// Drop sub-span noise lines that carry no real transition.
	kept := lines[:0]
	for _, l := range lines {
		if l.RelativeLongitudinal() < p.MinShiftSpan && math.Abs(l.RelativeShift()) < p.QuantizeSize {
			continue
		}
		kept = append(kept, l)
	}
	lines = kept

	// Merge near-flat neighbours even across a gap, provided the held
	// shift is continuous through it.
	if len(lines) > 1 {
		out := AvoidLineArray{lines[0]}
		for _, next := range lines[1:] {
			cur := &out[len(out)-1]
			adjacent := next.StartLongitudinal-cur.EndLongitudinal < arcEps
			continuous := math.Abs(next.StartShift-cur.EndShift) < 1e-9
			flatPair := math.Abs(cur.Gradient()) < p.SimilarGradThreshold &&
				math.Abs(next.Gradient()) < p.SimilarGradThreshold
			similar := math.Abs(cur.Gradient()-next.Gradient()) < p.SimilarGradThreshold
			if (adjacent && similar) || (!adjacent && continuous && flatPair) {
				joined := *cur
				joined.ID = pl.nextID()
				joined.EndLongitudinal = next.EndLongitudinal
				joined.EndShift = next.EndShift
				joined.EndPose = next.EndPose
				joined.ParentIDs = ConcatParentIDs(
					ConcatParentIDs(cur.ParentIDs, []uint64{cur.ID}),
					ConcatParentIDs(next.ParentIDs, []uint64{next.ID}))
				*cur = joined
				continue
			}
			out = append(out, next)
		}
		lines = out
	}

	// Remove a return to center when a later line demands a same-side
	// shift again; the next line is re-anchored so the shift is held
	// across the removed return instead.
	if len(lines) > 1 {
		out := make(AvoidLineArray, 0, len(lines))
		for i := 0; i < len(lines); i++ {
			l := lines[i]
			isReturn := math.Abs(l.EndShift) < 1e-3 && math.Abs(l.StartShift) > 1e-3
			if isReturn && i+1 < len(lines) {
				superseded := false
				for j := i + 1; j < len(lines); j++ {
					later := lines[j]
					if math.Abs(later.EndShift) > 1e-3 &&
						math.Signbit(later.EndShift) == math.Signbit(l.StartShift) {
						superseded = true
						break
					}
				}
				if superseded {
					lines[i+1].StartShift = l.StartShift
					continue
				}
			}
			out = append(out, l)
		}
		lines = out
	}

	lines.SortByLongitudinal()
	return lines
}

// extractNew returns the candidate lines that have no matching registered
// counterpart; these require fresh cooperative approval. Matching lines pass
// through the pipeline unchanged and need none.
func (pl *Pipeline) extractNew(candidates, registered AvoidLineArray) AvoidLineArray {
	p := pl.params

	matches := func(c AvoidLine) bool {
		for _, r := range registered {
			if math.Abs(c.StartLongitudinal-r.StartLongitudinal) < p.DuplicatePoseDelta &&
				math.Abs(c.EndLongitudinal-r.EndLongitudinal) < p.DuplicatePoseDelta &&
				math.Abs(c.EndShift-r.EndShift) < p.DuplicateShiftDelta {
				return true
			}
		}
		return false
	}

	var fresh AvoidLineArray
	for _, c := range candidates {
		if !matches(c) {
			fresh = append(fresh, c)
		}
	}
	return fresh
}

// checkValidity builds a trial shifted path from the candidate array and
// rejects the whole batch when its lateral offset at the ego's arc position
// deviates from the ego's actual offset beyond tolerance. A discontinuous
// candidate would otherwise command an instant lateral jump.
func (pl *Pipeline) checkValidity(lines AvoidLineArray, data *PlanningData, shifter *PathShifter) error {
	trial := PathShifter{}
	trial.SetReferencePath(data.ReferencePath)
	trial.SetBaseOffset(shifter.BaseOffset())
	trial.SetLines(lines)

	if _, err := trial.Generate(); err != nil {
		return fmt.Errorf("candidate path generation: %w", err)
	}

	idx := data.ReferencePath.NearestIndex(data.EgoPose.Point)
	egoOffset := geometry.LateralDeviation(data.ReferencePath.Points[idx], data.EgoPose.Point)
	planned := trial.LateralOffsetAt(data.EgoArcLength)
	if dev := math.Abs(planned - egoOffset); dev > pl.params.ValidityTolerance {
		return fmt.Errorf("candidate profile deviates %.2fm from ego at arc %.1f", dev, data.EgoArcLength)
	}
	return nil
}
