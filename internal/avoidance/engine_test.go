package avoidance

import (
	"math"
	"testing"
	"time"

	"github.com/banshee-data/lateralplan/internal/geometry"
)

func parkedCar(id string, x, y float64) PredictedObject {
	pose := geometry.Pose{Point: geometry.Point{X: x, Y: y}}
	return PredictedObject{
		ID:        id,
		Class:     ClassCar,
		Pose:      pose,
		Footprint: geometry.RectanglePolygon(pose, 4.5, 1.8),
		Width:     1.8,
		Speed:     0,
	}
}

// driveCycles advances the ego along the road at a fixed speed and runs one
// Plan per step, returning the last output.
func driveCycles(e *Engine, road *StaticRoad, objects []PredictedObject, startX, speed, dt float64, cycles int) Output {
	path := geometry.StraightPath(geometry.Point{}, road.Length, 1.0)
	sim := time.Unix(0, 0)
	e.SetClock(func() time.Time { return sim })

	var out Output
	x := startX
	for i := 0; i < cycles; i++ {
		pose := geometry.Pose{Point: geometry.Point{X: x}}
		out = e.Plan(Input{
			ReferencePath: path,
			EgoPose:       &pose,
			EgoSpeed:      speed,
			Lanes:         road.Lanes(),
			Objects:       objects,
		})
		x += speed * dt
		sim = sim.Add(time.Duration(dt * float64(time.Second)))
	}
	return out
}

func TestEnginePlansAroundParkedCar(t *testing.T) {
	road := DefaultStaticRoad()
	e := NewEngine(DefaultParameters(), road, AlwaysSafe{}, NewStaticApproval(true))

	objects := []PredictedObject{parkedCar("parked", 60, -2.0)}
	out := driveCycles(e, road, objects, 0, 8.0, 0.1, 5)

	if out.Degraded {
		t.Fatal("cycle degraded with complete input")
	}
	if out.State != StateAvoidExecute {
		t.Fatalf("state %s, want %s (targets %d, lines %d)",
			out.State, StateAvoidExecute, len(out.Targets), len(out.ShiftLines))
	}
	if len(out.Targets) != 1 {
		t.Fatalf("targets %d, want 1", len(out.Targets))
	}

	peak := 0.0
	for _, s := range out.Path.ShiftLength {
		peak = math.Max(peak, s)
	}
	if math.Abs(peak-1.2) > 0.15 {
		t.Errorf("peak executed shift %f, want about 1.2", peak)
	}
	if last := out.Path.ShiftLength[len(out.Path.ShiftLength)-1]; math.Abs(last) > 0.05 {
		t.Errorf("executed path must return to center, ends at %f", last)
	}
}

func TestEngineWithoutApprovalStaysNotReady(t *testing.T) {
	road := DefaultStaticRoad()
	approval := NewStaticApproval(false)
	e := NewEngine(DefaultParameters(), road, AlwaysSafe{}, approval)

	objects := []PredictedObject{parkedCar("parked", 60, -2.0)}
	out := driveCycles(e, road, objects, 0, 8.0, 0.1, 5)

	if out.State != StateAvoidPathNotReady {
		t.Fatalf("state %s, want %s while approval is pending", out.State, StateAvoidPathNotReady)
	}
	if len(out.NewLines) == 0 {
		t.Error("pending request must keep re-proposing candidate lines")
	}

	// Executed path stays on the centerline until approval lands.
	for _, s := range out.Path.ShiftLength {
		if s != 0 {
			t.Fatalf("executed shift %f before approval, want 0", s)
		}
	}

	// Grant the outstanding requests and replan.
	for _, tok := range approval.Tokens() {
		approval.Approve(tok)
	}
	out = driveCycles(e, road, objects, 4.0, 8.0, 0.1, 2)
	if out.State != StateAvoidExecute {
		t.Fatalf("state %s after approval, want %s", out.State, StateAvoidExecute)
	}
}

func TestEngineEmptyRoadDoesNotAvoid(t *testing.T) {
	road := DefaultStaticRoad()
	e := NewEngine(DefaultParameters(), road, AlwaysSafe{}, NewStaticApproval(true))

	out := driveCycles(e, road, nil, 0, 8.0, 0.1, 3)
	if out.State != StateNotAvoid {
		t.Fatalf("state %s, want %s", out.State, StateNotAvoid)
	}
	for _, s := range out.Path.ShiftLength {
		if s != 0 {
			t.Fatalf("shift %f on an empty road, want 0", s)
		}
	}
}

func TestEngineDegradesOnIncompleteInput(t *testing.T) {
	road := DefaultStaticRoad()
	e := NewEngine(DefaultParameters(), road, AlwaysSafe{}, NewStaticApproval(true))

	out := e.Plan(Input{})
	if !out.Degraded {
		t.Fatal("missing pose must degrade the cycle")
	}
	if out.State != StateNotAvoid {
		t.Errorf("state %s with no prior plan, want %s", out.State, StateNotAvoid)
	}

	// With a prior good cycle, degraded output repeats it.
	objects := []PredictedObject{parkedCar("parked", 60, -2.0)}
	good := driveCycles(e, road, objects, 0, 8.0, 0.1, 3)
	bad := e.Plan(Input{})
	if !bad.Degraded {
		t.Fatal("missing pose must degrade the cycle")
	}
	if bad.State != good.State {
		t.Errorf("degraded state %s, want previous %s", bad.State, good.State)
	}
}
