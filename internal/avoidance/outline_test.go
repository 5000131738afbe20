package avoidance

import (
	"math"
	"testing"
)

// outlineTarget builds an avoidable target the way the engine does before
// outline generation runs.
func outlineTarget(data *PlanningData, id string, x, y, margin float64) ObjectData {
	o := preparedObject(data, id, ClassCar, x, y)
	o.AvoidMargin = &margin
	o.IsAvoidable = true
	fillLongitudinalExtent(data.ReferencePath, data.EgoPose.Point, &o)
	fillOverhang(data.ReferencePath, &o)
	return o
}

func TestOutlineSingleTarget(t *testing.T) {
	p := DefaultParameters()
	road := DefaultStaticRoad()
	data := planningDataOn(road)

	o := outlineTarget(data, "parked", 60, -2.0, 2.2)
	data.TargetObjects = []ObjectData{o}

	id := uint64(0)
	gen := NewOutlineGenerator(&p, func() uint64 { id++; return id })
	var shifter PathShifter
	shifter.SetReferencePath(data.ReferencePath)

	outlines := gen.Generate(data, shifter.LateralOffsetAt)
	if len(outlines) != 1 {
		t.Fatalf("outlines %d, want 1", len(outlines))
	}
	ol := outlines[0]

	want := ShiftLength(true, o.OverhangDist, 2.2)
	if math.Abs(ol.AvoidLine.EndShift-want) > 1e-9 {
		t.Errorf("avoid shift %f, want %f", ol.AvoidLine.EndShift, want)
	}
	if ol.AvoidLine.StartShift != 0 {
		t.Errorf("avoid start shift %f, want 0", ol.AvoidLine.StartShift)
	}

	// The transition ends a front buffer short of the object and the return
	// begins a rear buffer past it.
	wantEnd := data.EgoArcLength + o.Longitudinal - p.LongitudinalFrontBuffer
	if math.Abs(ol.AvoidLine.EndLongitudinal-wantEnd) > 1e-9 {
		t.Errorf("avoid end %f, want %f", ol.AvoidLine.EndLongitudinal, wantEnd)
	}
	wantReturn := data.EgoArcLength + o.Longitudinal + o.Length + p.LongitudinalRearBuffer
	if math.Abs(ol.ReturnLine.StartLongitudinal-wantReturn) > 1e-9 {
		t.Errorf("return start %f, want %f", ol.ReturnLine.StartLongitudinal, wantReturn)
	}

	if ol.ReturnLine.StartShift != ol.AvoidLine.EndShift {
		t.Errorf("return starts at %f, avoid ends at %f", ol.ReturnLine.StartShift, ol.AvoidLine.EndShift)
	}
	if ol.ReturnLine.EndShift != 0 {
		t.Errorf("return must end at center, got %f", ol.ReturnLine.EndShift)
	}
	if len(ol.MiddleLines) != 0 {
		t.Errorf("single target must not have middle lines, got %d", len(ol.MiddleLines))
	}
}

func TestOutlineChainsNearbySameSideObjects(t *testing.T) {
	p := DefaultParameters()
	road := DefaultStaticRoad()
	data := planningDataOn(road)

	first := outlineTarget(data, "front", 60, -2.0, 2.2)
	second := outlineTarget(data, "rear", 80, -2.0, 2.2)
	data.TargetObjects = []ObjectData{first, second}

	id := uint64(0)
	gen := NewOutlineGenerator(&p, func() uint64 { id++; return id })
	var shifter PathShifter
	shifter.SetReferencePath(data.ReferencePath)

	outlines := gen.Generate(data, shifter.LateralOffsetAt)
	if len(outlines) != 1 {
		t.Fatalf("outlines %d, want 1 chained outline", len(outlines))
	}
	ol := outlines[0]
	if len(ol.MiddleLines) != 1 {
		t.Fatalf("middle lines %d, want 1", len(ol.MiddleLines))
	}

	mid := ol.MiddleLines[0]
	if mid.StartLongitudinal != ol.AvoidLine.EndLongitudinal {
		t.Errorf("middle line starts at %f, avoid ends at %f",
			mid.StartLongitudinal, ol.AvoidLine.EndLongitudinal)
	}
	if mid.EndLongitudinal >= ol.ReturnLine.StartLongitudinal {
		t.Errorf("middle line end %f must precede return start %f",
			mid.EndLongitudinal, ol.ReturnLine.StartLongitudinal)
	}
	if len(mid.ParentIDs) != 2 {
		t.Fatalf("middle line parents %v, want both avoid line ids", mid.ParentIDs)
	}

	// The outline now returns after the rear object, not the front one.
	wantReturn := data.EgoArcLength + second.Longitudinal + second.Length + p.LongitudinalRearBuffer
	if math.Abs(ol.ReturnLine.StartLongitudinal-wantReturn) > 1e-9 {
		t.Errorf("return start %f, want %f", ol.ReturnLine.StartLongitudinal, wantReturn)
	}
}

func TestOutlineFoldsInfeasibleTarget(t *testing.T) {
	p := DefaultParameters()
	road := DefaultStaticRoad()
	data := planningDataOn(road)

	// Too close: the transition would have to end behind the ego.
	o := outlineTarget(data, "late", 5, -2.0, 2.2)
	data.TargetObjects = []ObjectData{o}

	id := uint64(0)
	gen := NewOutlineGenerator(&p, func() uint64 { id++; return id })
	var shifter PathShifter
	shifter.SetReferencePath(data.ReferencePath)

	outlines := gen.Generate(data, shifter.LateralOffsetAt)
	if len(outlines) != 0 {
		t.Fatalf("outlines %d, want none for an unreachable object", len(outlines))
	}
	if len(data.TargetObjects) != 0 {
		t.Errorf("folded object must leave the target set, still %d targets", len(data.TargetObjects))
	}
	if rejectionOf(data, "late") != ReasonLessThanExecutionThreshold {
		t.Errorf("rejection %v, want %v", rejectionOf(data, "late"), ReasonLessThanExecutionThreshold)
	}
}

func TestOutlineKeepsUnavoidableTarget(t *testing.T) {
	p := DefaultParameters()
	road := DefaultStaticRoad()
	data := planningDataOn(road)

	o := preparedObject(data, "blocked", ClassCar, 60, -2.0)
	o.IsAvoidable = false
	fillLongitudinalExtent(data.ReferencePath, data.EgoPose.Point, &o)
	fillOverhang(data.ReferencePath, &o)
	data.TargetObjects = []ObjectData{o}

	id := uint64(0)
	gen := NewOutlineGenerator(&p, func() uint64 { id++; return id })
	var shifter PathShifter
	shifter.SetReferencePath(data.ReferencePath)

	outlines := gen.Generate(data, shifter.LateralOffsetAt)
	if len(outlines) != 0 {
		t.Fatalf("outlines %d, want none without an avoid margin", len(outlines))
	}
	if len(data.TargetObjects) != 1 {
		t.Errorf("unavoidable object must stay a target for yielding, got %d targets", len(data.TargetObjects))
	}
}
