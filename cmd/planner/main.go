// Package main runs the avoidance planner over a scripted scenario: a
// straight corridor, a set of obstacles and an ego that advances along the
// path each cycle. It prints per-cycle results and can record them to
// sqlite for the shift-report tool.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/banshee-data/lateralplan/internal/avoidance"
	"github.com/banshee-data/lateralplan/internal/config"
	"github.com/banshee-data/lateralplan/internal/geometry"
	"github.com/banshee-data/lateralplan/internal/plandb"
)

// Scenario is the JSON description of one planner run.
type Scenario struct {
	Road struct {
		Length        float64   `json:"length"`
		LaneWidth     float64   `json:"lane_width"`
		LeftEdge      float64   `json:"left_edge"`
		RightEdge     float64   `json:"right_edge"`
		LeftShoulder  bool      `json:"left_shoulder"`
		RightShoulder bool      `json:"right_shoulder"`
		GoalArc       float64   `json:"goal_arc"`
		TrafficLights []float64 `json:"traffic_lights"`
		Crosswalks    []float64 `json:"crosswalks"`
	} `json:"road"`
	Ego struct {
		X     float64 `json:"x"`
		Y     float64 `json:"y"`
		Speed float64 `json:"speed"`
	} `json:"ego"`
	Objects []ScenarioObject `json:"objects"`
}

// ScenarioObject is one obstacle in the scenario.
type ScenarioObject struct {
	ID     string  `json:"id"`
	Class  string  `json:"class"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Yaw    float64 `json:"yaw"`
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Speed  float64 `json:"speed"`
}

func main() {
	scenarioPath := flag.String("scenario", "", "scenario JSON file (required)")
	configPath := flag.String("config", "", "tuning config JSON file (optional)")
	dbPath := flag.String("db", "", "sqlite file to record cycles to (optional)")
	cycles := flag.Int("cycles", 30, "number of planning cycles to run")
	dt := flag.Float64("dt", 0.1, "seconds between cycles")
	autoApprove := flag.Bool("auto-approve", true, "approve every maneuver request immediately")
	verbose := flag.Bool("v", false, "print per-cycle shift lines and rejections")
	flag.Parse()

	if *scenarioPath == "" {
		log.Fatal("scenario file is required")
	}
	sc, err := loadScenario(*scenarioPath)
	if err != nil {
		log.Fatalf("load scenario: %v", err)
	}

	params := avoidance.DefaultParameters()
	if *configPath != "" {
		cfg, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		params = cfg.Parameters()
	}

	var db *plandb.DB
	if *dbPath != "" {
		db, err = plandb.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer db.Close()
	}

	road := buildRoad(sc)
	engine := avoidance.NewEngine(params, road, avoidance.AlwaysSafe{},
		avoidance.NewStaticApproval(*autoApprove))

	// Scripted time keeps runs reproducible regardless of wall clock.
	simTime := time.Unix(0, 0)
	engine.SetClock(func() time.Time { return simTime })

	path := geometry.StraightPath(geometry.Point{}, road.Length, 1.0)
	objects := buildObjects(sc.Objects)

	egoX := sc.Ego.X
	for i := 0; i < *cycles; i++ {
		ego := geometry.Pose{Point: geometry.Point{X: egoX, Y: sc.Ego.Y}}
		out := engine.Plan(avoidance.Input{
			ReferencePath: path,
			EgoPose:       &ego,
			EgoSpeed:      sc.Ego.Speed,
			Lanes:         road.Lanes(),
			Objects:       objects,
		})

		fmt.Printf("cycle %2d  x=%6.1f  state=%-20s  targets=%d  lines=%d  new=%d  safe=%v\n",
			i, egoX, out.State, len(out.Targets), len(out.ShiftLines), len(out.NewLines), out.Safe)
		if *verbose {
			for _, l := range out.ShiftLines {
				fmt.Printf("    line %d [%.1f, %.1f] shift %.2f -> %.2f\n",
					l.ID, l.StartLongitudinal, l.EndLongitudinal, l.StartShift, l.EndShift)
			}
			for _, r := range out.Rejections {
				fmt.Printf("    reject %s: %s\n", r.ObjectID, r.Reason)
			}
		}

		if db != nil {
			if _, err := db.RecordCycle(out); err != nil {
				log.Fatalf("record cycle: %v", err)
			}
		}

		egoX += sc.Ego.Speed * *dt
		simTime = simTime.Add(time.Duration(*dt * float64(time.Second)))
	}
}

func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario JSON: %w", err)
	}
	if sc.Road.Length <= 0 {
		return nil, fmt.Errorf("road length must be positive")
	}
	return &sc, nil
}

func buildRoad(sc *Scenario) *avoidance.StaticRoad {
	road := avoidance.DefaultStaticRoad()
	road.Length = sc.Road.Length
	if sc.Road.LaneWidth > 0 {
		road.LaneWidth = sc.Road.LaneWidth
	}
	if sc.Road.LeftEdge > 0 {
		road.LeftEdge = sc.Road.LeftEdge
	}
	if sc.Road.RightEdge > 0 {
		road.RightEdge = sc.Road.RightEdge
	}
	road.LeftShoulder = sc.Road.LeftShoulder
	road.RightShoulder = sc.Road.RightShoulder
	road.GoalArc = sc.Road.GoalArc
	road.TrafficLights = sc.Road.TrafficLights
	road.Crosswalks = sc.Road.Crosswalks
	return road
}

func buildObjects(objs []ScenarioObject) []avoidance.PredictedObject {
	out := make([]avoidance.PredictedObject, 0, len(objs))
	for _, o := range objs {
		pose := geometry.Pose{Point: geometry.Point{X: o.X, Y: o.Y}, Yaw: o.Yaw}
		length, width := o.Length, o.Width
		if length <= 0 {
			length = 4.5
		}
		if width <= 0 {
			width = 1.8
		}
		class := avoidance.ObjectClass(o.Class)
		if o.Class == "" {
			class = avoidance.ClassCar
		}
		out = append(out, avoidance.PredictedObject{
			ID:        o.ID,
			Class:     class,
			Pose:      pose,
			Footprint: geometry.RectanglePolygon(pose, length, width),
			Width:     width,
			Speed:     o.Speed,
		})
	}
	return out
}
