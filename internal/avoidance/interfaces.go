package avoidance

import (
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/lateralplan/internal/geometry"
)

// Lane is the slice of the route graph the planner needs: the drivable
// polygon, the centerline, and the turn direction attribute used to exclude
// intersection lanes from parked-vehicle classification.
type Lane struct {
	ID            int64
	Polygon       geometry.Polygon
	Centerline    geometry.Path
	TurnDirection string // "left", "right", "straight" or ""
}

// RouteGraph answers the lane and map queries the planner depends on. It is
// an external collaborator; implementations wrap whichever map backend is in
// use. StaticRoad provides an in-repo implementation for tests and tooling.
type RouteGraph interface {
	// ClosestLane returns the lane nearest to p, false when off-map.
	ClosestLane(p geometry.Point) (Lane, bool)

	// ShoulderDistance returns the lateral clearance between the envelope
	// and the furthest drivable boundary on the side the ego passes on
	// (opposite the object), including any expandable boundary polygons
	// (hatched markings, intersection areas).
	ShoulderDistance(lane Lane, envelope geometry.Polygon, onRight bool) float64

	// CenterToBoundDistance returns the lateral distance from the lane
	// centerline at p to the outermost road edge on the given side, and
	// whether that edge belongs to a road-shoulder lane.
	CenterToBoundDistance(lane Lane, p geometry.Point, onRight bool) (dist float64, isShoulder bool)

	// DistanceToGoal returns the arc distance from p to the route goal,
	// +Inf when the current lane sequence does not contain the goal.
	DistanceToGoal(p geometry.Point) float64

	// DistanceToTrafficLight returns the distance from p to the next
	// traffic light stop line, +Inf when there is none ahead.
	DistanceToTrafficLight(p geometry.Point) float64

	// DistanceToCrosswalk returns the distance from p to the next
	// crosswalk, +Inf when there is none ahead.
	DistanceToCrosswalk(p geometry.Point) float64

	// NearCrosswalk reports whether p lies within radius of any crosswalk.
	NearCrosswalk(p geometry.Point, radius float64) bool
}

// SurroundObjects partitions the non-target objects by lane adjacency for
// the safety check.
type SurroundObjects struct {
	EgoLane      []PredictedObject
	ShiftSide    []PredictedObject
	OppositeSide []PredictedObject
}

// SafetyChecker validates a candidate shifted path against surrounding
// traffic over a time horizon. External collaborator.
type SafetyChecker interface {
	IsSafe(path ShiftedPath, surround SurroundObjects, horizon time.Duration) (bool, []string)
}

// ApprovalStatus is the cooperative-approval state of one request token.
type ApprovalStatus int

const (
	ApprovalPending ApprovalStatus = iota
	ApprovalApproved
)

// CooperateInterface is the transport to the supervisory approval system.
// One request is identified by an opaque token; the planner keeps the
// distance-to-start/finish fields fresh every cycle.
type CooperateInterface interface {
	UpdateStatus(token uuid.UUID, ready bool, startDist, finishDist float64, now time.Time)
	Status(token uuid.UUID) ApprovalStatus
	Remove(token uuid.UUID)
}

// PlanningData is the per-cycle snapshot the pipeline operates on. It is
// owned exclusively by one cycle and never mutated concurrently.
type PlanningData struct {
	ReferencePath geometry.Path
	ArcLengths    []float64 // cumulative arc length from the path start
	EgoPose       geometry.Pose
	EgoSpeed      float64
	EgoArcLength  float64 // ego position on the arc-length table
	CurrentLanes  []Lane

	TargetObjects []ObjectData
	OtherObjects  []ObjectData

	// Pipeline products.
	RawOutlines    AvoidOutlines
	CandidateLines AvoidLineArray
	NewLines       AvoidLineArray

	// Safety verdict for the candidate path.
	Safe            bool
	UnsafeObjectIDs []string

	Rejections []RejectionRecord
}
