package avoidance

import (
	"math"
	"time"

	"github.com/banshee-data/lateralplan/internal/geometry"
)

// TargetFilter classifies the cycle's objects into avoidance targets and
// others, computing the avoidance margin for each target. Rejections are
// evaluated in a fixed order; the first matching rule wins and is recorded.
type TargetFilter struct {
	params   *Parameters
	route    RouteGraph
	registry *ObjectRegistry
}

// NewTargetFilter builds a filter over the shared registry and route graph.
func NewTargetFilter(params *Parameters, route RouteGraph, registry *ObjectRegistry) *TargetFilter {
	return &TargetFilter{params: params, route: route, registry: registry}
}

// fillLongitudinalExtent sets the object's longitudinal position (arc length
// from ego to the nearest envelope vertex) and its longitudinal length.
func fillLongitudinalExtent(path geometry.Path, egoPos geometry.Point, o *ObjectData) {
	min, max := math.Inf(1), math.Inf(-1)
	for _, p := range o.Envelope {
		arc := path.SignedArcLength(egoPos, p)
		min = math.Min(min, arc)
		max = math.Max(max, arc)
	}
	o.Longitudinal = min
	o.Length = max - min
}

// fillOverhang sets the envelope's largest lateral intrusion toward the
// reference path. For a right-side object the overhang is the leftmost
// (maximum) lateral deviation of any envelope vertex, and vice versa.
func fillOverhang(path geometry.Path, o *ObjectData) {
	largest := 100.0
	if o.OnRight() {
		largest = -100.0
	}
	for _, p := range o.Envelope {
		idx := path.NearestIndex(p)
		lateral := geometry.LateralDeviation(path.Points[idx], p)
		if o.OnRight() {
			if lateral > largest {
				largest = lateral
				o.OverhangPoint = p
			}
		} else {
			if lateral < largest {
				largest = lateral
				o.OverhangPoint = p
			}
		}
	}
	o.OverhangDist = largest
}

// Filter runs the rejection cascade over the cycle's objects and fills
// data.TargetObjects / data.OtherObjects.
func (f *TargetFilter) Filter(now time.Time, objects []ObjectData, data *PlanningData) {
	if len(data.CurrentLanes) == 0 {
		return
	}
	p := f.params

	reject := func(o ObjectData, reason RejectReason) {
		o.Reason = reason
		data.OtherObjects = append(data.OtherObjects, o)
		data.Rejections = append(data.Rejections, RejectionRecord{ObjectID: o.Object.ID, Reason: reason})
	}

	distToGoal := f.route.DistanceToGoal(data.EgoPose.Point)

	for _, o := range objects {
		if !p.IsTargetClass(o.Object.Class) {
			reject(o, ReasonNotTargetType)
			continue
		}

		// Objects that kept moving longer than the threshold are traffic,
		// not obstacles.
		if o.MoveSeconds() > p.MovingTimeThreshold {
			reject(o, ReasonMovingObject)
			continue
		}

		fillLongitudinalExtent(data.ReferencePath, data.EgoPose.Point, &o)

		if o.Longitudinal < -p.BackwardCheckDistance {
			reject(o, ReasonBehindThreshold)
			continue
		}
		if o.Longitudinal > p.ForwardCheckDistance {
			reject(o, ReasonInFrontThreshold)
			continue
		}
		if o.Longitudinal > distToGoal {
			reject(o, ReasonBehindPathGoal)
			continue
		}
		if o.Longitudinal+o.Length/2+p.GoalClearanceDistance > distToGoal {
			reject(o, ReasonTooNearToGoal)
			continue
		}

		fillOverhang(data.ReferencePath, &o)

		lane, ok := f.route.ClosestLane(o.Object.Pose.Point)
		if !ok {
			continue
		}

		o.ToRoadShoulder = f.route.ShoulderDistance(lane, o.Envelope, o.OnRight())

		// Three-tier margin decision. The margin must fit between the
		// object and the road shoulder; the hard limit decides
		// avoidability, the soft limit clamps the nominal margin.
		halfWidth := 0.5 * p.VehicleWidth
		maxMargin := p.SafetyBufferLateral + p.AvoidMarginLateral + halfWidth
		minMargin := p.SafetyBufferLateral + halfWidth
		softLimit := o.ToRoadShoulder - p.SoftRoadShoulderMargin - halfWidth
		hardLimit := o.ToRoadShoulder - p.HardRoadShoulderMargin - halfWidth

		switch {
		case hardLimit < minMargin:
			o.AvoidMargin = nil
			o.IsAvoidable = false
		case softLimit < minMargin:
			m := minMargin
			o.AvoidMargin = &m
			o.IsAvoidable = true
		default:
			m := math.Min(softLimit, maxMargin)
			o.AvoidMargin = &m
			o.IsAvoidable = true
		}

		if o.AvoidMargin != nil {
			shift := ShiftLength(o.OnRight(), o.OverhangDist, *o.AvoidMargin)
			if !ShiftNecessary(o.OnRight(), shift) {
				reject(o, ReasonNotNeedAvoidance)
				continue
			}
			if math.Abs(shift) < p.LateralExecutionThreshold {
				reject(o, ReasonLessThanExecutionThreshold)
				continue
			}
		}

		f.fillDecisionFlags(&o, data)

		// Pedestrians and cyclists near a crosswalk belong to the
		// crosswalk module; away from one they are always avoided.
		if !o.Object.Class.IsVehicle() {
			if f.route.NearCrosswalk(o.Object.Pose.Point, p.CrosswalkProximityThreshold) {
				reject(o, ReasonCrosswalkUser)
				continue
			}
			o.LastSeen = now
			data.TargetObjects = append(data.TargetObjects, o)
			continue
		}

		// Vehicle rules from here.

		if p.ForceAvoidanceEnabled && o.StopSeconds() > p.ForceAvoidanceStopTime {
			// A vehicle stopped this long is treated as parked unless it
			// is plausibly waiting at a light or crosswalk.
			toLight := f.route.DistanceToTrafficLight(o.Object.Pose.Point)
			waiting := toLight < p.TrafficLightIgnoreDistance

			toCrosswalk := f.route.DistanceToCrosswalk(data.EgoPose.Point) - o.Longitudinal
			stopForCrosswalk := toCrosswalk < p.CrosswalkIgnoreFrontDist &&
				toCrosswalk > -p.CrosswalkIgnoreBehindDist
			waiting = waiting || stopForCrosswalk

			o.ToStopFactorDistance = math.Min(toLight, toCrosswalk)

			if !waiting {
				o.LastSeen = now
				data.TargetObjects = append(data.TargetObjects, o)
				continue
			}
		}

		if math.Abs(o.Lateral) < p.CenterlineThreshold {
			reject(o, ReasonTooNearToCenterline)
			continue
		}

		// Vehicles inside the ego lane must classify as parked (shiftable
		// ratio above threshold) to be avoided.
		if lane.Polygon.Contains(o.Envelope.Centroid()) {
			if !f.isParkedVehicle(&o, lane) {
				reject(o, ReasonNotParkingObject)
				continue
			}
		}

		o.LastSeen = now
		data.TargetObjects = append(data.TargetObjects, o)
	}
}

// fillDecisionFlags updates the hysteretic avoid-required flag and the
// stoppable judgement for the object.
func (f *TargetFilter) fillDecisionFlags(o *ObjectData, data *PlanningData) {
	p := f.params
	safetyMargin := 0.5*p.VehicleWidth + p.SafetyBufferLateral
	f.registry.FillAvoidRequired(o, safetyMargin, HoldDebounce{ExpandFactor: p.HysteresisExpandFactor})

	o.ToStopLine = o.Longitudinal - p.LongitudinalFrontBuffer
	feasible := feasibleStopDistance(data.EgoSpeed, p.MaxDeceleration)
	f.registry.FillStoppable(o, feasible, p.DecelerationPolicy)
}

// feasibleStopDistance is the distance needed to stop from speed v at the
// configured (negative) deceleration.
func feasibleStopDistance(v, decel float64) float64 {
	a := math.Abs(decel)
	if a < 1e-6 {
		return math.Inf(1)
	}
	return v * v / (2 * a)
}

// isParkedVehicle computes the shiftable ratio: the vehicle's lateral offset
// from the lane centerline, normalised by the distance from centerline to
// the outermost road edge on its side. Lanes without a road-shoulder edge
// get the configured minimum shoulder width added. Intersection lanes never
// hold parked vehicles.
func (f *TargetFilter) isParkedVehicle(o *ObjectData, lane Lane) bool {
	p := f.params

	switch lane.TurnDirection {
	case "right", "left", "straight":
		return false
	}

	centroid := o.Envelope.Centroid()
	idx := lane.Centerline.NearestIndex(centroid)
	centerPose := lane.Centerline.Points[idx]

	boundDist, isShoulder := f.route.CenterToBoundDistance(lane, centroid, o.OnRight())
	shiftable := boundDist - 0.5*o.Object.Width
	if !isShoulder {
		shiftable += p.MinRoadShoulderWidth
	}
	if shiftable < 1e-6 {
		return false
	}

	lateral := geometry.LateralDeviation(centerPose, centroid)
	if o.OnRight() {
		o.ShiftableRatio = -lateral / shiftable
	} else {
		o.ShiftableRatio = lateral / shiftable
	}

	return o.ShiftableRatio > p.ShiftableRatioThreshold
}
