// Package geometry provides the 2D primitives used by the avoidance planner:
// points, poses, polygons and reference-path arc-length computations. All
// coordinates are metres in a fixed world frame, angles are radians.
package geometry

import "math"

// Point is a 2D position in the world frame.
type Point struct {
	X float64
	Y float64
}

// Pose is a position with a heading.
type Pose struct {
	Point
	Yaw float64
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p scaled by s.
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y }

// Cross returns the z component of the cross product p x q.
func (p Point) Cross(q Point) float64 { return p.X*q.Y - p.Y*q.X }

// Norm returns the Euclidean length of p.
func (p Point) Norm() float64 { return math.Hypot(p.X, p.Y) }

// DistanceTo returns the Euclidean distance between p and q.
func (p Point) DistanceTo(q Point) float64 { return p.Sub(q).Norm() }

// ToFrame expresses the world-frame point p in the local frame of pose.
func (p Point) ToFrame(pose Pose) Point {
	d := p.Sub(pose.Point)
	c, s := math.Cos(pose.Yaw), math.Sin(pose.Yaw)
	return Point{c*d.X + s*d.Y, -s*d.X + c*d.Y}
}

// FromFrame expresses the pose-local point p in the world frame.
func (p Point) FromFrame(pose Pose) Point {
	c, s := math.Cos(pose.Yaw), math.Sin(pose.Yaw)
	return Point{pose.X + c*p.X - s*p.Y, pose.Y + s*p.X + c*p.Y}
}

// OffsetPose returns pose translated by (lon, lat) in its own frame. Positive
// lat is to the left of the heading.
func OffsetPose(pose Pose, lon, lat float64) Pose {
	return Pose{Point: Point{lon, lat}.FromFrame(pose), Yaw: pose.Yaw}
}

// LateralDeviation returns the signed lateral offset of point from the axis
// defined by pose. Positive means point lies to the left of the heading.
func LateralDeviation(pose Pose, point Point) float64 {
	d := point.Sub(pose.Point)
	return -math.Sin(pose.Yaw)*d.X + math.Cos(pose.Yaw)*d.Y
}

// YawDeviation returns the normalized heading difference target - ref in
// (-pi, pi].
func YawDeviation(ref, target Pose) float64 {
	return NormalizeAngle(target.Yaw - ref.Yaw)
}

// NormalizeAngle wraps a into (-pi, pi].
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// segmentDistance returns the distance from point p to segment ab.
func segmentDistance(p, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.DistanceTo(a)
	}
	t := p.Sub(a).Dot(ab) / l2
	t = math.Max(0, math.Min(1, t))
	return p.DistanceTo(a.Add(ab.Scale(t)))
}

// SegmentIntersection returns the intersection point of segments p1p2 and
// q1q2, or false if they do not intersect.
func SegmentIntersection(p1, p2, q1, q2 Point) (Point, bool) {
	r := p2.Sub(p1)
	s := q2.Sub(q1)
	denom := r.Cross(s)
	if math.Abs(denom) < 1e-12 {
		return Point{}, false
	}
	t := q1.Sub(p1).Cross(s) / denom
	u := q1.Sub(p1).Cross(r) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Point{}, false
	}
	return p1.Add(r.Scale(t)), true
}
