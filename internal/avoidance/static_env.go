package avoidance

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/lateralplan/internal/geometry"
)

// StaticRoad is a RouteGraph over a single straight corridor along the x
// axis. It backs the scenario CLI and the tests; a production deployment
// substitutes a real map backend.
type StaticRoad struct {
	Length    float64
	LaneWidth float64

	// Distances from the centerline to the outermost drivable edge.
	LeftEdge  float64
	RightEdge float64

	// Whether the edge on each side belongs to a road-shoulder lane.
	LeftShoulder  bool
	RightShoulder bool

	// GoalArc is the goal position along x; zero means no goal on route.
	GoalArc float64

	// Stop-factor positions along x.
	TrafficLights []float64
	Crosswalks    []float64
}

// DefaultStaticRoad is a 200 m two-edge corridor with generous shoulders.
func DefaultStaticRoad() *StaticRoad {
	return &StaticRoad{
		Length:        200,
		LaneWidth:     3.5,
		LeftEdge:      4.25,
		RightEdge:     4.25,
		LeftShoulder:  true,
		RightShoulder: true,
	}
}

func (r *StaticRoad) lane() Lane {
	half := r.LaneWidth / 2
	return Lane{
		ID: 1,
		Polygon: geometry.Polygon{
			{X: 0, Y: -half}, {X: r.Length, Y: -half},
			{X: r.Length, Y: half}, {X: 0, Y: half},
		},
		Centerline: geometry.StraightPath(geometry.Point{}, r.Length, 1.0),
	}
}

// Lanes returns the corridor's lane set for engine input.
func (r *StaticRoad) Lanes() []Lane { return []Lane{r.lane()} }

func (r *StaticRoad) ClosestLane(p geometry.Point) (Lane, bool) {
	if p.X < -1 || p.X > r.Length+1 {
		return Lane{}, false
	}
	return r.lane(), true
}

func (r *StaticRoad) ShoulderDistance(_ Lane, envelope geometry.Polygon, onRight bool) float64 {
	if onRight {
		// Ego passes on the left of a right-side object.
		top := math.Inf(-1)
		for _, v := range envelope {
			top = math.Max(top, v.Y)
		}
		return r.LeftEdge - top
	}
	bottom := math.Inf(1)
	for _, v := range envelope {
		bottom = math.Min(bottom, v.Y)
	}
	return bottom + r.RightEdge
}

func (r *StaticRoad) CenterToBoundDistance(_ Lane, _ geometry.Point, onRight bool) (float64, bool) {
	if onRight {
		return r.RightEdge, r.RightShoulder
	}
	return r.LeftEdge, r.LeftShoulder
}

func (r *StaticRoad) DistanceToGoal(p geometry.Point) float64 {
	if r.GoalArc <= 0 {
		return math.Inf(1)
	}
	return r.GoalArc - p.X
}

func (r *StaticRoad) DistanceToTrafficLight(p geometry.Point) float64 {
	return nextAhead(r.TrafficLights, p.X)
}

func (r *StaticRoad) DistanceToCrosswalk(p geometry.Point) float64 {
	return nextAhead(r.Crosswalks, p.X)
}

func (r *StaticRoad) NearCrosswalk(p geometry.Point, radius float64) bool {
	for _, x := range r.Crosswalks {
		if p.DistanceTo(geometry.Point{X: x}) <= radius {
			return true
		}
	}
	return false
}

func nextAhead(xs []float64, from float64) float64 {
	best := math.Inf(1)
	for _, x := range xs {
		if d := x - from; d >= 0 && d < best {
			best = d
		}
	}
	return best
}

// AlwaysSafe is a SafetyChecker that accepts every candidate path.
type AlwaysSafe struct{}

func (AlwaysSafe) IsSafe(ShiftedPath, SurroundObjects, time.Duration) (bool, []string) {
	return true, nil
}

// StaticApproval is an in-memory CooperateInterface. With AutoApprove set it
// grants every request on first sight; otherwise requests stay pending until
// Approve is called. The engine serializes access, so no locking here.
type StaticApproval struct {
	AutoApprove bool
	status      map[uuid.UUID]ApprovalStatus
}

func NewStaticApproval(autoApprove bool) *StaticApproval {
	return &StaticApproval{AutoApprove: autoApprove, status: make(map[uuid.UUID]ApprovalStatus)}
}

func (a *StaticApproval) UpdateStatus(token uuid.UUID, _ bool, _, _ float64, _ time.Time) {
	if _, ok := a.status[token]; !ok {
		st := ApprovalPending
		if a.AutoApprove {
			st = ApprovalApproved
		}
		a.status[token] = st
	}
}

func (a *StaticApproval) Status(token uuid.UUID) ApprovalStatus {
	return a.status[token]
}

// Approve grants a pending request.
func (a *StaticApproval) Approve(token uuid.UUID) {
	if _, ok := a.status[token]; ok {
		a.status[token] = ApprovalApproved
	}
}

// Tokens lists the currently tracked request tokens.
func (a *StaticApproval) Tokens() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(a.status))
	for t := range a.status {
		out = append(out, t)
	}
	return out
}

func (a *StaticApproval) Remove(token uuid.UUID) {
	delete(a.status, token)
}
