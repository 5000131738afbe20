package avoidance

import (
	"fmt"
	"math"

	"github.com/banshee-data/lateralplan/internal/geometry"
)

// ShiftedPath is a reference path with a per-point lateral offset applied.
type ShiftedPath struct {
	Path        geometry.Path
	ShiftLength []float64
}

// PathShifter bends a reference path laterally according to an ordered set
// of shift lines. Between lines the offset holds the last end shift; within
// a line it is interpolated linearly. BaseOffset is the residual offset the
// path starts from (nonzero after lines behind the ego were removed).
type PathShifter struct {
	refPath    geometry.Path
	arcLengths []float64
	lines      AvoidLineArray
	baseOffset float64
}

// SetReferencePath replaces the reference path and its arc-length table.
func (s *PathShifter) SetReferencePath(path geometry.Path) {
	s.refPath = path
	s.arcLengths = path.ArcLengths()
}

// ReferencePath returns the current reference path.
func (s *PathShifter) ReferencePath() geometry.Path { return s.refPath }

// SetLines replaces the shift lines. Lines are kept sorted by arc length.
func (s *PathShifter) SetLines(lines AvoidLineArray) {
	s.lines = append(AvoidLineArray(nil), lines...)
	s.lines.SortByLongitudinal()
}

// AddLines appends new shift lines, keeping order.
func (s *PathShifter) AddLines(lines AvoidLineArray) {
	s.lines = append(s.lines, lines...)
	s.lines.SortByLongitudinal()
}

// Lines returns the current shift lines.
func (s *PathShifter) Lines() AvoidLineArray { return s.lines }

// BaseOffset returns the residual lateral offset applied before any line.
func (s *PathShifter) BaseOffset() float64 { return s.baseOffset }

// SetBaseOffset sets the residual lateral offset.
func (s *PathShifter) SetBaseOffset(v float64) { s.baseOffset = v }

// LastShiftLength returns the lateral offset the profile ends at.
func (s *PathShifter) LastShiftLength() float64 {
	if len(s.lines) == 0 {
		return s.baseOffset
	}
	return s.lines[len(s.lines)-1].EndShift
}

// offsetAt evaluates the shift profile at arc position a.
func (s *PathShifter) offsetAt(a float64) float64 {
	offset := s.baseOffset
	for _, l := range s.lines {
		switch {
		case a < l.StartLongitudinal:
			return offset
		case a < l.EndLongitudinal:
			span := l.RelativeLongitudinal()
			if span < 1e-9 {
				return l.EndShift
			}
			t := (a - l.StartLongitudinal) / span
			return l.StartShift + t*l.RelativeShift()
		default:
			offset = l.EndShift
		}
	}
	return offset
}

// Generate produces the shifted path: each reference point is displaced
// laterally (normal to its heading) by the profile value at its arc length.
func (s *PathShifter) Generate() (ShiftedPath, error) {
	if s.refPath.Empty() {
		return ShiftedPath{}, fmt.Errorf("path shifter: empty reference path")
	}
	for _, l := range s.lines {
		if l.StartLongitudinal > l.EndLongitudinal {
			return ShiftedPath{}, fmt.Errorf("path shifter: line %d has inverted interval", l.ID)
		}
	}

	out := ShiftedPath{
		Path:        geometry.Path{Points: make([]geometry.Pose, len(s.refPath.Points))},
		ShiftLength: make([]float64, len(s.refPath.Points)),
	}
	for i, p := range s.refPath.Points {
		shift := s.offsetAt(s.arcLengths[i])
		out.ShiftLength[i] = shift
		out.Path.Points[i] = geometry.OffsetPose(p, 0, shift)
	}
	return out, nil
}

// RemoveBehindAndRebase drops lines ending at or behind the given path index
// and folds their final shift into the base offset, so the remaining profile
// still starts from the ego's actual lateral position.
func (s *PathShifter) RemoveBehindAndRebase(idx int) {
	if idx < 0 || idx >= len(s.arcLengths) {
		return
	}
	egoArc := s.arcLengths[idx]
	kept := s.lines[:0]
	for _, l := range s.lines {
		if l.EndLongitudinal <= egoArc {
			s.baseOffset = l.EndShift
			continue
		}
		kept = append(kept, l)
	}
	s.lines = kept
}

// LateralOffsetAt returns the profile value at the given arc length. Used by
// the validity check to compare the candidate profile against the ego's
// actual offset.
func (s *PathShifter) LateralOffsetAt(arc float64) float64 {
	return s.offsetAt(math.Max(arc, 0))
}
