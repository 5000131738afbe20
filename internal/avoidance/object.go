// Package avoidance implements the shift-line planning engine: it turns
// perceived obstacles along a reference path into one ordered, feasible
// sequence of lateral shift commands, gated by a cooperative approval
// protocol and a per-cycle ego behavioural state.
package avoidance

import (
	"time"

	"github.com/banshee-data/lateralplan/internal/geometry"
)

// ObjectClass is the perception classification of an obstacle.
type ObjectClass string

const (
	ClassUnknown    ObjectClass = "unknown"
	ClassCar        ObjectClass = "car"
	ClassTruck      ObjectClass = "truck"
	ClassBus        ObjectClass = "bus"
	ClassTrailer    ObjectClass = "trailer"
	ClassMotorcycle ObjectClass = "motorcycle"
	ClassBicycle    ObjectClass = "bicycle"
	ClassPedestrian ObjectClass = "pedestrian"
)

// IsVehicle reports whether the class is a vehicle type for the purposes of
// the parked-vehicle rules. Unknown, pedestrian and bicycle are not.
func (c ObjectClass) IsVehicle() bool {
	switch c {
	case ClassUnknown, ClassPedestrian, ClassBicycle:
		return false
	}
	return true
}

// RejectReason explains why an object was classified as "other" instead of an
// avoidance target. The set is closed; debug consumers key off these values.
type RejectReason string

const (
	ReasonNone                       RejectReason = ""
	ReasonNotTargetType              RejectReason = "ObjectIsNotType"
	ReasonMovingObject               RejectReason = "MovingObject"
	ReasonBehindThreshold            RejectReason = "ObjectIsBehindThreshold"
	ReasonInFrontThreshold           RejectReason = "ObjectIsInFrontThreshold"
	ReasonBehindPathGoal             RejectReason = "ObjectBehindPathGoal"
	ReasonTooNearToGoal              RejectReason = "TooNearToGoal"
	ReasonTooNearToCenterline        RejectReason = "TooNearToCenterline"
	ReasonNotNeedAvoidance           RejectReason = "NotNeedAvoidance"
	ReasonLessThanExecutionThreshold RejectReason = "LessThanExecutionThreshold"
	ReasonCrosswalkUser              RejectReason = "CrosswalkUser"
	ReasonNotParkingObject           RejectReason = "NotParkingObject"
)

// PredictedObject is one raw perception snapshot of an obstacle.
type PredictedObject struct {
	ID        string
	Class     ObjectClass
	Pose      geometry.Pose
	Footprint geometry.Polygon // world frame shape outline
	Width     float64          // lateral shape extent (metres)
	Speed     float64          // velocity magnitude (m/s)
}

// ObjectData is a perception snapshot plus the per-cycle fields the planner
// derives from it. It is recreated every planning cycle; persistent fields
// (envelope, timers, hysteresis flags) are carried forward by the registry.
type ObjectData struct {
	Object PredictedObject

	// Position relative to the reference path.
	Lateral      float64 // signed offset from path, left positive
	Longitudinal float64 // arc length from ego to nearest envelope vertex
	Length       float64 // longitudinal extent of the envelope

	// Overhang of the envelope toward the path.
	OverhangDist  float64
	OverhangPoint geometry.Point

	// Time-smoothed footprint hull.
	Envelope geometry.Polygon

	// Margin decision. AvoidMargin == nil means the object cannot be
	// avoided inside the drivable corridor.
	ToRoadShoulder float64
	AvoidMargin    *float64
	IsAvoidable    bool

	// Hysteretic flags.
	AvoidRequired bool
	IsStoppable   bool

	// Motion bookkeeping (seconds / wall clock).
	MoveTime int64 // nanoseconds the object has been moving
	StopTime int64 // nanoseconds the object has been stopped
	LastMove time.Time
	LastStop time.Time
	LastSeen time.Time
	LostTime int64 // nanoseconds since last matched detection

	// Parked-vehicle classification input: lateral offset from the lane
	// centerline normalised by the distance to the nearest road edge.
	ShiftableRatio float64

	// Distance to whichever stop factor (traffic light, crosswalk) is
	// nearest, when forced avoidance was evaluated.
	ToStopFactorDistance float64
	// Distance the ego has available to stop short of this object.
	ToStopLine float64

	Reason RejectReason
}

// OnRight reports whether the object is on the right side of the reference
// path. Lateral is left-positive, so right means negative.
func (o *ObjectData) OnRight() bool { return o.Lateral < 0 }

// MoveSeconds returns the moving time in seconds.
func (o *ObjectData) MoveSeconds() float64 { return float64(o.MoveTime) / 1e9 }

// StopSeconds returns the stopped time in seconds.
func (o *ObjectData) StopSeconds() float64 { return float64(o.StopTime) / 1e9 }

// RejectionRecord is one debug record explaining an "other" classification.
type RejectionRecord struct {
	ObjectID string
	Reason   RejectReason
}
