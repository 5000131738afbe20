package geometry

import (
	"math"
	"testing"
)

func square(x, y, half float64) Polygon {
	return Polygon{
		{x - half, y - half}, {x + half, y - half},
		{x + half, y + half}, {x - half, y + half},
	}
}

func TestPolygonContains(t *testing.T) {
	sq := square(0, 0, 1)
	if !sq.Contains(Point{0, 0}) {
		t.Error("centre must be inside")
	}
	if !sq.Contains(Point{1, 0}) {
		t.Error("boundary point must count as inside")
	}
	if sq.Contains(Point{1.5, 0}) {
		t.Error("outside point reported inside")
	}
}

func TestPolygonWithin(t *testing.T) {
	inner := square(0, 0, 1)
	outer := square(0, 0, 2)
	if !inner.Within(outer) {
		t.Error("inner square must be within outer")
	}
	if outer.Within(inner) {
		t.Error("outer square cannot be within inner")
	}
}

func TestConvexHullDropsInteriorPoints(t *testing.T) {
	pts := []Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {1, 1}}
	hull := ConvexHull(pts)
	if len(hull) != 4 {
		t.Fatalf("hull has %d vertices, want 4", len(hull))
	}
	if hull.Contains(Point{1, 1}) != true {
		t.Error("hull must contain the dropped interior point")
	}
}

func TestUnionCoversBoth(t *testing.T) {
	a := square(0, 0, 1)
	b := square(1.5, 0, 1)
	u := Union(a, b)
	if !a.Within(u) || !b.Within(u) {
		t.Error("union must cover both inputs")
	}
}

func TestEnvelopeIsStableBoundingBox(t *testing.T) {
	pose := Pose{}
	foot := square(10, 0, 0.9)
	env := Envelope(foot, pose, 0.3)

	if !foot.Within(env) {
		t.Fatal("envelope must contain the footprint")
	}

	// A jittered detection still inside the envelope would yield the same
	// decision upstream; re-enveloping the original footprint reproduces
	// the same box.
	again := Envelope(foot, pose, 0.3)
	if len(again) != len(env) {
		t.Fatalf("re-envelope changed vertex count: %d vs %d", len(again), len(env))
	}
	for i := range env {
		if env[i].DistanceTo(again[i]) > 1e-9 {
			t.Errorf("vertex %d moved: %v vs %v", i, env[i], again[i])
		}
	}

	// Margin expands every side.
	for _, v := range foot {
		if env.DistanceToPoint(v) > 0 && !env.Contains(v) {
			t.Errorf("footprint vertex %v escaped the envelope", v)
		}
	}
}

func TestEnvelopeFollowsFrame(t *testing.T) {
	pose := Pose{Yaw: math.Pi / 4}
	foot := RectanglePolygon(Pose{Point: Point{5, 5}, Yaw: math.Pi / 4}, 4, 2)
	env := Envelope(foot, pose, 0)
	if len(env) != 4 {
		t.Fatalf("envelope has %d vertices, want 4", len(env))
	}
	// A box aligned to the 45 degree frame stays tight: the envelope of an
	// already frame-aligned rectangle has (nearly) the same area footprint.
	if !foot.Within(env.Expand(1e-6)) {
		t.Error("envelope must contain the footprint")
	}
}

func TestRectanglePolygon(t *testing.T) {
	r := RectanglePolygon(Pose{Point: Point{1, 2}}, 4, 2)
	if !r.Contains(Point{1, 2}) {
		t.Error("rectangle must contain its centre")
	}
	if !r.Contains(Point{3, 2}) || !r.Contains(Point{-1, 2}) {
		t.Error("rectangle must span half the length fore and aft")
	}
	if r.Contains(Point{1, 3.5}) {
		t.Error("rectangle wider than specified")
	}
}

func TestDistanceToPolyline(t *testing.T) {
	sq := square(0, 0, 1)
	line := []Point{{3, -5}, {3, 5}}
	if d := sq.DistanceToPolyline(line); math.Abs(d-2) > 1e-9 {
		t.Errorf("distance %f, want 2", d)
	}
	crossing := []Point{{-5, 0}, {5, 0}}
	if d := sq.DistanceToPolyline(crossing); d != 0 {
		t.Errorf("crossing polyline distance %f, want 0", d)
	}
}
