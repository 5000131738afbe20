package geometry

import (
	"math"
	"sort"
)

// Polygon is a closed 2D ring. Vertices are stored without the closing point
// repeated; edges run between consecutive vertices and from the last back to
// the first.
type Polygon []Point

// Centroid returns the vertex centroid of the polygon.
func (poly Polygon) Centroid() Point {
	if len(poly) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, p := range poly {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(poly))
	return Point{sx / n, sy / n}
}

// Contains reports whether point p lies inside the polygon (ray cast; points
// on the boundary count as inside).
func (poly Polygon) Contains(p Point) bool {
	if len(poly) < 3 {
		return false
	}
	inside := false
	j := len(poly) - 1
	for i := 0; i < len(poly); i++ {
		a, b := poly[i], poly[j]
		if segmentDistance(p, a, b) < 1e-9 {
			return true
		}
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if p.X < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// DistanceToPoint returns the distance from p to the polygon boundary, or 0
// if p is inside.
func (poly Polygon) DistanceToPoint(p Point) float64 {
	if poly.Contains(p) {
		return 0
	}
	min := math.Inf(1)
	for i := range poly {
		d := segmentDistance(p, poly[i], poly[(i+1)%len(poly)])
		if d < min {
			min = d
		}
	}
	return min
}

// DistanceToPolyline returns the minimum distance between the polygon and a
// polyline. Returns 0 when any polyline vertex lies inside the polygon or the
// boundaries cross.
func (poly Polygon) DistanceToPolyline(line []Point) float64 {
	if len(poly) == 0 || len(line) == 0 {
		return math.Inf(1)
	}
	min := math.Inf(1)
	for _, q := range line {
		if d := poly.DistanceToPoint(q); d < min {
			min = d
		}
	}
	for _, p := range poly {
		for i := 0; i+1 < len(line); i++ {
			if d := segmentDistance(p, line[i], line[i+1]); d < min {
				min = d
			}
		}
	}
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		for j := 0; j+1 < len(line); j++ {
			if _, ok := SegmentIntersection(a, b, line[j], line[j+1]); ok {
				return 0
			}
		}
	}
	return min
}

// Within reports whether every vertex of poly lies inside other. For the
// convex envelope polygons used by the planner this is equivalent to polygon
// containment.
func (poly Polygon) Within(other Polygon) bool {
	if len(poly) == 0 {
		return false
	}
	for _, p := range poly {
		if !other.Contains(p) {
			return false
		}
	}
	return true
}

// ConvexHull returns the convex hull of the polygon's vertices in
// counter-clockwise order (Andrew's monotone chain).
func ConvexHull(points []Point) Polygon {
	n := len(points)
	if n < 3 {
		out := make(Polygon, n)
		copy(out, points)
		return out
	}
	pts := make([]Point, n)
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	hull := make([]Point, 0, 2*n)
	// lower chain
	for _, p := range pts {
		for len(hull) >= 2 && hull[len(hull)-1].Sub(hull[len(hull)-2]).Cross(p.Sub(hull[len(hull)-2])) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	// upper chain
	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && hull[len(hull)-1].Sub(hull[len(hull)-2]).Cross(p.Sub(hull[len(hull)-2])) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return Polygon(hull[:len(hull)-1])
}

// Union returns the convex hull of the two polygons' vertices. The planner
// only unions envelope polygons, which are convex and re-enveloped right
// after, so the hull is an exact stand-in for a general polygon union.
func Union(a, b Polygon) Polygon {
	pts := make([]Point, 0, len(a)+len(b))
	pts = append(pts, a...)
	pts = append(pts, b...)
	return ConvexHull(pts)
}

// Expand grows the polygon outward from its centroid by margin metres along
// each vertex direction. Margin 0 returns a copy.
func (poly Polygon) Expand(margin float64) Polygon {
	c := poly.Centroid()
	out := make(Polygon, len(poly))
	for i, p := range poly {
		d := p.Sub(c)
		n := d.Norm()
		if n < 1e-9 {
			out[i] = p
			continue
		}
		out[i] = c.Add(d.Scale((n + margin) / n))
	}
	return out
}

// Envelope returns the margin-expanded, frame-aligned bounding box of the
// polygon: the polygon is expressed in the local frame of pose, wrapped in an
// axis-aligned box there, transformed back to the world frame and expanded.
// This is the footprint smoothing primitive for perceived objects: repeated
// envelopes of a jittering detection are stable as long as the detection
// stays inside the previous envelope.
func Envelope(poly Polygon, pose Pose, margin float64) Polygon {
	if len(poly) == 0 {
		return nil
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range poly {
		q := p.ToFrame(pose)
		minX = math.Min(minX, q.X)
		maxX = math.Max(maxX, q.X)
		minY = math.Min(minY, q.Y)
		maxY = math.Max(maxY, q.Y)
	}
	box := Polygon{
		Point{minX, minY}.FromFrame(pose),
		Point{maxX, minY}.FromFrame(pose),
		Point{maxX, maxY}.FromFrame(pose),
		Point{minX, maxY}.FromFrame(pose),
	}
	if margin == 0 {
		return box
	}
	return box.Expand(margin)
}

// RectanglePolygon builds the world-frame footprint of a rectangle of the
// given length (along heading) and width centred on pose.
func RectanglePolygon(pose Pose, length, width float64) Polygon {
	hl, hw := length/2, width/2
	return Polygon{
		Point{hl, hw}.FromFrame(pose),
		Point{hl, -hw}.FromFrame(pose),
		Point{-hl, -hw}.FromFrame(pose),
		Point{-hl, hw}.FromFrame(pose),
	}
}
