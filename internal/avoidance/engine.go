package avoidance

import (
	"sync"
	"time"

	"github.com/banshee-data/lateralplan/internal/geometry"
	"github.com/banshee-data/lateralplan/internal/monitoring"
)

// Input is one planning cycle's worth of upstream data.
type Input struct {
	ReferencePath geometry.Path
	EgoPose       *geometry.Pose
	EgoSpeed      float64
	Lanes         []Lane
	Objects       []PredictedObject
}

// Output is the committed result of one planning cycle. Path carries only
// approved maneuvers; CandidatePath applies the full finalized profile
// including lines still awaiting approval.
type Output struct {
	State         State
	Path          ShiftedPath
	CandidatePath ShiftedPath
	ShiftLines    AvoidLineArray
	NewLines      AvoidLineArray
	Targets       []ObjectData
	Others        []ObjectData
	Rejections    []RejectionRecord
	Safe          bool
	Degraded      bool
}

// Engine runs the avoidance planner across cycles. It owns the object
// registry, the approval registration and the path shifter, all of which
// carry state between calls to Plan. A single mutex guards the whole tick;
// the returned Output is a snapshot and safe to read concurrently.
type Engine struct {
	mu sync.Mutex

	params Parameters
	route  RouteGraph
	safety SafetyChecker

	registry     ObjectRegistry
	registration *Registration
	shifter      PathShifter
	filter       *TargetFilter
	outlines     *OutlineGenerator
	pipeline     *Pipeline

	idCounter uint64
	now       func() time.Time

	prev    Output
	hasPrev bool
}

// NewEngine wires the planner against its external collaborators.
func NewEngine(params Parameters, route RouteGraph, safety SafetyChecker, approval CooperateInterface) *Engine {
	e := &Engine{
		params: params,
		route:  route,
		safety: safety,
		now:    time.Now,
	}
	e.registration = NewRegistration(approval)
	e.filter = NewTargetFilter(&e.params, route, &e.registry)
	e.outlines = NewOutlineGenerator(&e.params, e.nextID)
	e.pipeline = NewPipeline(&e.params, e.nextID)
	return e
}

// SetClock replaces the time source. Tests drive the moving-time and
// hysteresis logic through this.
func (e *Engine) SetClock(f func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = f
}

func (e *Engine) nextID() uint64 {
	e.idCounter++
	return e.idCounter
}

// Plan runs one planning cycle. When the input is unusable or the finalized
// profile fails its validity check, the previously committed output is
// returned unchanged with Degraded set.
func (e *Engine) Plan(in Input) Output {
	e.mu.Lock()
	defer e.mu.Unlock()

	if in.EgoPose == nil || len(in.ReferencePath.Points) < 2 || len(in.Lanes) == 0 {
		monitoring.Logf("avoidance: incomplete input (pose=%v path=%d lanes=%d), keeping previous plan",
			in.EgoPose != nil, len(in.ReferencePath.Points), len(in.Lanes))
		return e.degraded()
	}

	now := e.now()
	path := in.ReferencePath
	egoPos := in.EgoPose.Point
	egoIdx := path.FirstNearestIndex(egoPos)
	egoArc := path.SignedArcLength(path.Points[0].Point, egoPos)

	data := &PlanningData{
		ReferencePath: path,
		ArcLengths:    path.ArcLengths(),
		EgoPose:       *in.EgoPose,
		EgoSpeed:      in.EgoSpeed,
		EgoArcLength:  egoArc,
		CurrentLanes:  in.Lanes,
	}

	// Re-anchor carried state on this cycle's path before planning on it.
	e.registration.Refresh(now, path, egoPos, egoArc)
	e.shifter.SetReferencePath(path)
	e.shifter.SetLines(e.registration.RegisteredLines())
	e.shifter.RemoveBehindAndRebase(egoIdx)

	objects := e.createObjectData(now, path, in.Objects)
	e.filter.Filter(now, objects, data)
	e.registry.Update(now, data.TargetObjects, e.params.PositionMatchRadius, e.params.LastSeenThreshold)
	e.registry.CompensateDetectionLost(&data.TargetObjects, data.OtherObjects)

	data.RawOutlines = e.outlines.Generate(data, e.shifter.LateralOffsetAt)

	candidates, fresh, err := e.pipeline.Run(data, e.shifter.Lines(), &e.shifter)
	if err != nil {
		monitoring.Logf("avoidance: rejecting cycle: %v", err)
		return e.degraded()
	}
	data.CandidateLines = candidates
	data.NewLines = fresh

	trial := e.shifter
	trial.SetLines(candidates)
	candPath, err := trial.Generate()
	if err != nil {
		monitoring.Logf("avoidance: candidate path generation failed: %v", err)
		return e.degraded()
	}

	data.Safe, data.UnsafeObjectIDs = e.checkSafety(candPath, data)

	ready := len(candidates) > 0 && data.Safe
	e.registration.RequestCandidates(now, fresh, egoArc, ready)
	for _, reg := range e.registration.PromoteApproved() {
		e.shifter.AddLines(AvoidLineArray{reg.Line})
	}
	e.registration.Expire(path, egoPos, e.shifter.BaseOffset())

	execPath, err := e.shifter.Generate()
	if err != nil {
		monitoring.Logf("avoidance: shifted path generation failed: %v", err)
		return e.degraded()
	}

	out := Output{
		State:         DeriveState(data, len(e.shifter.Lines()), e.params.YieldMaxDistance),
		Path:          execPath,
		CandidatePath: candPath,
		ShiftLines:    candidates,
		NewLines:      fresh,
		Targets:       data.TargetObjects,
		Others:        data.OtherObjects,
		Rejections:    data.Rejections,
		Safe:          data.Safe,
	}
	e.prev = out
	e.hasPrev = true
	return out
}

func (e *Engine) degraded() Output {
	out := e.prev
	out.Degraded = true
	if !e.hasPrev {
		out.State = StateNotAvoid
	}
	return out
}

// createObjectData converts detections into planner objects: lateral offset
// from the reference path, envelope polygon and moving-time bookkeeping.
func (e *Engine) createObjectData(now time.Time, path geometry.Path, objects []PredictedObject) []ObjectData {
	out := make([]ObjectData, 0, len(objects))
	for _, po := range objects {
		o := ObjectData{Object: po}
		idx := path.NearestIndex(po.Pose.Point)
		o.Lateral = geometry.LateralDeviation(path.Points[idx], po.Pose.Point)
		e.registry.FillEnvelope(&o, path.Points[idx], e.params.EnvelopeBuffer)
		e.registry.FillMovingTime(now, &o, e.params.MovingSpeedThreshold, e.params.MovingTimeThreshold)
		out = append(out, o)
	}
	return out
}

// checkSafety partitions the non-target traffic by lane adjacency and asks
// the safety checker for a verdict on the candidate path.
func (e *Engine) checkSafety(candPath ShiftedPath, data *PlanningData) (bool, []string) {
	shiftSign := 0.0
	for _, l := range data.CandidateLines {
		if l.EndShift != 0 {
			if l.EndShift > 0 {
				shiftSign = 1
			} else {
				shiftSign = -1
			}
			break
		}
	}

	egoLane, haveLane := e.route.ClosestLane(data.EgoPose.Point)

	var surround SurroundObjects
	for _, o := range data.OtherObjects {
		pos := o.Object.Pose.Point
		switch {
		case haveLane && egoLane.Polygon.Contains(pos):
			surround.EgoLane = append(surround.EgoLane, o.Object)
		case shiftSign != 0 && o.Lateral*shiftSign > 0:
			surround.ShiftSide = append(surround.ShiftSide, o.Object)
		default:
			surround.OppositeSide = append(surround.OppositeSide, o.Object)
		}
	}

	horizon := time.Duration(e.params.SafetyCheckHorizon * float64(time.Second))
	return e.safety.IsSafe(candPath, surround, horizon)
}
