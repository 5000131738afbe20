package avoidance

import (
	"math"
	"testing"

	"github.com/banshee-data/lateralplan/internal/geometry"
)

func TestPathShifterGenerate(t *testing.T) {
	var s PathShifter
	s.SetReferencePath(geometry.StraightPath(geometry.Point{}, 100, 1.0))
	s.SetLines(AvoidLineArray{
		{ID: 1, StartLongitudinal: 10, EndLongitudinal: 20, StartShift: 0, EndShift: 2},
		{ID: 2, StartLongitudinal: 40, EndLongitudinal: 50, StartShift: 2, EndShift: 0},
	})

	sp, err := s.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(sp.Path.Points) != 101 {
		t.Fatalf("shifted path has %d points, want 101", len(sp.Path.Points))
	}

	// Before the first line: on the centerline.
	if sp.ShiftLength[5] != 0 {
		t.Errorf("shift at x=5 is %f, want 0", sp.ShiftLength[5])
	}
	// Mid transition: interpolated.
	if math.Abs(sp.ShiftLength[15]-1.0) > 1e-9 {
		t.Errorf("shift at x=15 is %f, want 1.0", sp.ShiftLength[15])
	}
	// Between the lines the last end shift holds.
	if sp.ShiftLength[30] != 2 {
		t.Errorf("shift at x=30 is %f, want 2", sp.ShiftLength[30])
	}
	// After the return: back to centre.
	if sp.ShiftLength[60] != 0 {
		t.Errorf("shift at x=60 is %f, want 0", sp.ShiftLength[60])
	}

	// The shifted geometry is displaced to the left (positive y).
	if math.Abs(sp.Path.Points[30].Y-2) > 1e-9 {
		t.Errorf("point at x=30 has y=%f, want 2", sp.Path.Points[30].Y)
	}
}

func TestPathShifterGenerateRejectsInvertedInterval(t *testing.T) {
	var s PathShifter
	s.SetReferencePath(geometry.StraightPath(geometry.Point{}, 10, 1.0))
	s.SetLines(AvoidLineArray{{ID: 1, StartLongitudinal: 8, EndLongitudinal: 4}})
	if _, err := s.Generate(); err == nil {
		t.Fatal("inverted interval must fail generation")
	}
}

func TestRemoveBehindAndRebase(t *testing.T) {
	var s PathShifter
	s.SetReferencePath(geometry.StraightPath(geometry.Point{}, 100, 1.0))
	s.SetLines(AvoidLineArray{
		{ID: 1, StartLongitudinal: 10, EndLongitudinal: 20, StartShift: 0, EndShift: 2},
		{ID: 2, StartLongitudinal: 40, EndLongitudinal: 50, StartShift: 2, EndShift: 0},
	})

	// Ego at x=30: the completed avoid transition folds into the base
	// offset, the pending return survives.
	s.RemoveBehindAndRebase(30)
	if len(s.Lines()) != 1 || s.Lines()[0].ID != 2 {
		t.Fatalf("lines after rebase: %v", s.Lines())
	}
	if s.BaseOffset() != 2 {
		t.Errorf("base offset %f, want 2", s.BaseOffset())
	}

	sp, err := s.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if sp.ShiftLength[35] != 2 {
		t.Errorf("shift at x=35 is %f, want base offset 2", sp.ShiftLength[35])
	}
	if sp.ShiftLength[60] != 0 {
		t.Errorf("shift at x=60 is %f, want 0", sp.ShiftLength[60])
	}
}

func TestLateralOffsetAt(t *testing.T) {
	var s PathShifter
	s.SetReferencePath(geometry.StraightPath(geometry.Point{}, 100, 1.0))
	s.SetBaseOffset(0.5)
	if got := s.LateralOffsetAt(10); got != 0.5 {
		t.Errorf("offset with no lines %f, want base 0.5", got)
	}
	s.SetLines(AvoidLineArray{{StartLongitudinal: 20, EndLongitudinal: 30, StartShift: 0.5, EndShift: 1.5}})
	if got := s.LateralOffsetAt(25); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("offset mid line %f, want 1.0", got)
	}
}
