package geometry

import (
	"math"
	"testing"
)

func TestLateralDeviationSign(t *testing.T) {
	// Heading along +x: a point above the axis is on the left.
	pose := Pose{}
	if got := LateralDeviation(pose, Point{X: 5, Y: 2}); math.Abs(got-2) > 1e-9 {
		t.Errorf("left point: got %f, want 2", got)
	}
	if got := LateralDeviation(pose, Point{X: 5, Y: -2}); math.Abs(got+2) > 1e-9 {
		t.Errorf("right point: got %f, want -2", got)
	}

	// Heading along +y: a point at negative x is on the left.
	pose = Pose{Yaw: math.Pi / 2}
	if got := LateralDeviation(pose, Point{X: -3, Y: 10}); math.Abs(got-3) > 1e-9 {
		t.Errorf("rotated frame: got %f, want 3", got)
	}
}

func TestOffsetPoseRoundTrip(t *testing.T) {
	pose := Pose{Point: Point{X: 2, Y: 1}, Yaw: 0.7}
	off := OffsetPose(pose, 3, -1.5)
	if off.Yaw != pose.Yaw {
		t.Errorf("offset must not change heading: got %f", off.Yaw)
	}
	local := off.Point.ToFrame(pose)
	if math.Abs(local.X-3) > 1e-9 || math.Abs(local.Y+1.5) > 1e-9 {
		t.Errorf("local coords: got (%f, %f), want (3, -1.5)", local.X, local.Y)
	}
}

func TestNormalizeAngle(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{3 * math.Pi, math.Pi},
		{-3 * math.Pi, math.Pi},
		{math.Pi / 4, math.Pi / 4},
		{-math.Pi / 4, -math.Pi / 4},
	}
	for _, c := range cases {
		if got := NormalizeAngle(c.in); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("NormalizeAngle(%f) = %f, want %f", c.in, got, c.want)
		}
	}
}

func TestSegmentIntersection(t *testing.T) {
	p, ok := SegmentIntersection(Point{0, 0}, Point{2, 2}, Point{0, 2}, Point{2, 0})
	if !ok {
		t.Fatal("crossing segments must intersect")
	}
	if math.Abs(p.X-1) > 1e-9 || math.Abs(p.Y-1) > 1e-9 {
		t.Errorf("intersection at (%f, %f), want (1, 1)", p.X, p.Y)
	}

	if _, ok := SegmentIntersection(Point{0, 0}, Point{1, 0}, Point{0, 1}, Point{1, 1}); ok {
		t.Error("parallel segments must not intersect")
	}
	if _, ok := SegmentIntersection(Point{0, 0}, Point{1, 0}, Point{2, -1}, Point{2, 1}); ok {
		t.Error("disjoint segments must not intersect")
	}
}
