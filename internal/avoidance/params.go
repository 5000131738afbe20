package avoidance

// Parameters holds the tuning values of the avoidance planner. Distances are
// metres, durations seconds, speeds m/s, jerks m/s³.
type Parameters struct {
	VehicleWidth float64

	// Target object classes.
	TargetClasses map[ObjectClass]bool

	// Motion filter.
	MovingSpeedThreshold float64 // object counted as moving above this speed
	MovingTimeThreshold  float64 // moving longer than this -> not a target
	LastSeenThreshold    float64 // registry eviction after lost this long
	PositionMatchRadius  float64 // registry fallback nearest-position match

	// Longitudinal window.
	BackwardCheckDistance   float64
	ForwardCheckDistance    float64
	GoalClearanceDistance   float64
	CenterlineThreshold     float64 // closer to centerline than this -> not parked
	ShiftableRatioThreshold float64 // parked classification ratio
	MinRoadShoulderWidth    float64 // assumed shoulder when lane has none

	// Margin decision.
	SafetyBufferLateral    float64
	AvoidMarginLateral     float64
	EnvelopeBuffer         float64
	SoftRoadShoulderMargin float64
	HardRoadShoulderMargin float64

	// Execution.
	LateralExecutionThreshold float64
	HysteresisExpandFactor    float64

	// Forced avoidance for long-stopped vehicles.
	ForceAvoidanceEnabled       bool
	ForceAvoidanceStopTime      float64
	TrafficLightIgnoreDistance  float64
	CrosswalkIgnoreFrontDist    float64
	CrosswalkIgnoreBehindDist   float64
	CrosswalkProximityThreshold float64

	// Stoppable judgement.
	DecelerationPolicy string // "reliable" or "best_effort"
	MaxDeceleration    float64
	YieldMaxDistance   float64 // unavoidable targets closer than this force a yield

	// Outline generation.
	NominalLateralJerk      float64
	MaxLateralJerk          float64
	NominalAvoidanceSpeed   float64 // floor for the jerk-span computation
	LongitudinalFrontBuffer float64 // avoid line ends this far before the object
	LongitudinalRearBuffer  float64 // return line starts this far past the object
	MiddleLineChainGap      float64 // same-side objects closer than this share an outline

	// Pipeline.
	QuantizeSize         float64
	MinShiftSpan         float64
	SimilarGradThreshold float64
	DuplicatePoseDelta   float64
	DuplicateShiftDelta  float64
	ValidityTolerance    float64
	SafetyCheckHorizon   float64
}

// DefaultParameters returns the planner defaults. Every value can be
// overridden from a tuning config file.
func DefaultParameters() Parameters {
	return Parameters{
		VehicleWidth: 1.8,

		TargetClasses: map[ObjectClass]bool{
			ClassCar: true, ClassTruck: true, ClassBus: true,
			ClassTrailer: true, ClassMotorcycle: true,
			ClassBicycle: true, ClassPedestrian: true,
		},

		MovingSpeedThreshold: 1.0,
		MovingTimeThreshold:  1.0,
		LastSeenThreshold:    2.0,
		PositionMatchRadius:  1.5,

		BackwardCheckDistance:   2.0,
		ForwardCheckDistance:    150.0,
		GoalClearanceDistance:   20.0,
		CenterlineThreshold:     1.0,
		ShiftableRatioThreshold: 0.8,
		MinRoadShoulderWidth:    0.5,

		SafetyBufferLateral:    0.3,
		AvoidMarginLateral:     1.0,
		EnvelopeBuffer:         0.3,
		SoftRoadShoulderMargin: 0.3,
		HardRoadShoulderMargin: 0.3,

		LateralExecutionThreshold: 0.09,
		HysteresisExpandFactor:    2.0,

		ForceAvoidanceEnabled:       true,
		ForceAvoidanceStopTime:      3.0,
		TrafficLightIgnoreDistance:  30.0,
		CrosswalkIgnoreFrontDist:    30.0,
		CrosswalkIgnoreBehindDist:   30.0,
		CrosswalkProximityThreshold: 2.0,

		DecelerationPolicy: "best_effort",
		MaxDeceleration:    -2.0,
		YieldMaxDistance:   20.0,

		NominalLateralJerk:      0.2,
		MaxLateralJerk:          1.0,
		NominalAvoidanceSpeed:   2.78, // 10 km/h floor
		LongitudinalFrontBuffer: 3.0,
		LongitudinalRearBuffer:  3.0,
		MiddleLineChainGap:      10.0,

		QuantizeSize:         0.1,
		MinShiftSpan:         1.5,
		SimilarGradThreshold: 0.034,
		DuplicatePoseDelta:   1.0,
		DuplicateShiftDelta:  0.5,
		ValidityTolerance:    1.0,
		SafetyCheckHorizon:   5.0,
	}
}

// IsTargetClass reports whether the class is configured as avoidable.
func (p *Parameters) IsTargetClass(c ObjectClass) bool {
	return p.TargetClasses[c]
}
