package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Path is an ordered sequence of poses forming the reference line the planner
// shifts around. Headings are expected to follow the point sequence.
type Path struct {
	Points []Pose
}

// Empty reports whether the path has no points.
func (path Path) Empty() bool { return len(path.Points) == 0 }

// ArcLengths returns the cumulative arc length at every path point, starting
// at zero for the first point.
func (path Path) ArcLengths() []float64 {
	n := len(path.Points)
	if n == 0 {
		return nil
	}
	seg := make([]float64, n)
	for i := 1; i < n; i++ {
		seg[i] = path.Points[i].Point.DistanceTo(path.Points[i-1].Point)
	}
	floats.CumSum(seg, seg)
	return seg
}

// Length returns the total arc length of the path.
func (path Path) Length() float64 {
	arc := path.ArcLengths()
	if len(arc) == 0 {
		return 0
	}
	return arc[len(arc)-1]
}

// NearestIndex returns the index of the path point closest to p.
func (path Path) NearestIndex(p Point) int {
	best, bestDist := 0, math.Inf(1)
	for i, q := range path.Points {
		if d := q.Point.DistanceTo(p); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// FirstNearestIndex returns the index of the first local distance minimum
// along the path. Unlike NearestIndex it will not jump ahead on a
// self-approaching path (e.g. a loop passing near the query twice).
func (path Path) FirstNearestIndex(p Point) int {
	minDist := math.Inf(1)
	minIdx := 0
	decreasing := false
	for i, q := range path.Points {
		d := q.Point.DistanceTo(p)
		if d < minDist {
			decreasing = true
			minDist = d
			minIdx = i
			continue
		}
		if decreasing {
			return minIdx
		}
	}
	return minIdx
}

// SignedArcLength returns the arc length from src to dst measured along the
// path, negative when dst projects behind src.
func (path Path) SignedArcLength(src, dst Point) float64 {
	if path.Empty() {
		return 0
	}
	arc := path.ArcLengths()
	si := path.FirstNearestIndex(src)
	di := path.FirstNearestIndex(dst)
	onPath := arc[di] - arc[si]
	// correct by the longitudinal offsets of the query points from their
	// nearest path points
	srcOff := path.longitudinalOffset(si, src)
	dstOff := path.longitudinalOffset(di, dst)
	return onPath - srcOff + dstOff
}

// longitudinalOffset is the along-heading component of p relative to path
// point idx.
func (path Path) longitudinalOffset(idx int, p Point) float64 {
	pose := path.Points[idx]
	d := p.Sub(pose.Point)
	return math.Cos(pose.Yaw)*d.X + math.Sin(pose.Yaw)*d.Y
}

// IndexFromArcLength returns the first path index whose cumulative arc length
// exceeds target, or the last index when target is past the end.
func (path Path) IndexFromArcLength(target float64) int {
	arc := path.ArcLengths()
	if len(arc) == 0 {
		return 0
	}
	for i, a := range arc {
		if a > target {
			return i
		}
	}
	return len(arc) - 1
}

// PoseAtArcLength interpolates a pose at the given arc length from the path
// start. The query is clamped to the path extent.
func (path Path) PoseAtArcLength(target float64) Pose {
	arc := path.ArcLengths()
	n := len(arc)
	if n == 0 {
		return Pose{}
	}
	if target <= 0 {
		return path.Points[0]
	}
	if target >= arc[n-1] {
		return path.Points[n-1]
	}
	i := 1
	for i < n && arc[i] < target {
		i++
	}
	a, b := path.Points[i-1], path.Points[i]
	span := arc[i] - arc[i-1]
	if span < 1e-9 {
		return b
	}
	t := (target - arc[i-1]) / span
	return Pose{
		Point: Point{a.X + t*(b.X-a.X), a.Y + t*(b.Y-a.Y)},
		Yaw:   a.Yaw + t*NormalizeAngle(b.Yaw-a.Yaw),
	}
}

// StraightPath builds an x-axis aligned path starting at origin with the
// given point spacing. Intended for tests and scenario tooling.
func StraightPath(origin Point, length, spacing float64) Path {
	n := int(length/spacing) + 1
	pts := make([]Pose, n)
	for i := 0; i < n; i++ {
		pts[i] = Pose{Point: Point{origin.X + float64(i)*spacing, origin.Y}}
	}
	return Path{Points: pts}
}
