package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/lateralplan/internal/avoidance"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for planner tuning
// parameters. All fields are optional; Parameters falls back to the
// built-in defaults for anything unset, so partial configs are safe.
type TuningConfig struct {
	// Vehicle and target selection
	VehicleWidth         *float64 `json:"vehicle_width,omitempty"`
	MovingSpeedThreshold *float64 `json:"moving_speed_threshold,omitempty"`
	MovingTimeThreshold  *float64 `json:"moving_time_threshold,omitempty"`
	BackwardCheckDist    *float64 `json:"backward_check_distance,omitempty"`
	ForwardCheckDist     *float64 `json:"forward_check_distance,omitempty"`
	CenterlineThreshold  *float64 `json:"centerline_threshold,omitempty"`
	ShiftableRatio       *float64 `json:"shiftable_ratio_threshold,omitempty"`

	// Margins
	SafetyBufferLateral    *float64 `json:"safety_buffer_lateral,omitempty"`
	AvoidMarginLateral     *float64 `json:"avoid_margin_lateral,omitempty"`
	EnvelopeBuffer         *float64 `json:"envelope_buffer,omitempty"`
	SoftRoadShoulderMargin *float64 `json:"soft_road_shoulder_margin,omitempty"`
	HardRoadShoulderMargin *float64 `json:"hard_road_shoulder_margin,omitempty"`
	LateralExecThreshold   *float64 `json:"lateral_execution_threshold,omitempty"`
	HysteresisExpandFactor *float64 `json:"hysteresis_expand_factor,omitempty"`

	// Forced avoidance of long-stopped vehicles
	ForceAvoidanceEnabled  *bool    `json:"force_avoidance_enabled,omitempty"`
	ForceAvoidanceStopTime *float64 `json:"force_avoidance_stop_time,omitempty"`

	// Maneuver shaping
	NominalLateralJerk      *float64 `json:"nominal_lateral_jerk,omitempty"`
	MaxLateralJerk          *float64 `json:"max_lateral_jerk,omitempty"`
	NominalAvoidanceSpeed   *float64 `json:"nominal_avoidance_speed,omitempty"`
	LongitudinalFrontBuffer *float64 `json:"longitudinal_front_buffer,omitempty"`
	LongitudinalRearBuffer  *float64 `json:"longitudinal_rear_buffer,omitempty"`
	QuantizeSize            *float64 `json:"quantize_size,omitempty"`
	MinShiftSpan            *float64 `json:"min_shift_span,omitempty"`

	// Stoppable judgement and yielding
	DecelerationPolicy *string  `json:"deceleration_policy,omitempty"` // "reliable" or "best_effort"
	MaxDeceleration    *float64 `json:"max_deceleration,omitempty"`
	YieldMaxDistance   *float64 `json:"yield_max_distance,omitempty"`
	SafetyCheckHorizon *float64 `json:"safety_check_horizon,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a config file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.VehicleWidth != nil && *c.VehicleWidth <= 0 {
		return fmt.Errorf("vehicle_width must be positive, got %f", *c.VehicleWidth)
	}
	if c.NominalLateralJerk != nil && *c.NominalLateralJerk <= 0 {
		return fmt.Errorf("nominal_lateral_jerk must be positive, got %f", *c.NominalLateralJerk)
	}
	if c.MaxLateralJerk != nil && *c.MaxLateralJerk <= 0 {
		return fmt.Errorf("max_lateral_jerk must be positive, got %f", *c.MaxLateralJerk)
	}
	if c.NominalLateralJerk != nil && c.MaxLateralJerk != nil &&
		*c.MaxLateralJerk < *c.NominalLateralJerk {
		return fmt.Errorf("max_lateral_jerk %f below nominal_lateral_jerk %f",
			*c.MaxLateralJerk, *c.NominalLateralJerk)
	}
	if c.QuantizeSize != nil && *c.QuantizeSize <= 0 {
		return fmt.Errorf("quantize_size must be positive, got %f", *c.QuantizeSize)
	}
	if c.ShiftableRatio != nil && (*c.ShiftableRatio < 0 || *c.ShiftableRatio > 1) {
		return fmt.Errorf("shiftable_ratio_threshold must be between 0 and 1, got %f", *c.ShiftableRatio)
	}
	if c.MaxDeceleration != nil && *c.MaxDeceleration >= 0 {
		return fmt.Errorf("max_deceleration must be negative, got %f", *c.MaxDeceleration)
	}
	if c.DecelerationPolicy != nil {
		switch *c.DecelerationPolicy {
		case "reliable", "best_effort":
		default:
			return fmt.Errorf("deceleration_policy must be 'reliable' or 'best_effort', got %q",
				*c.DecelerationPolicy)
		}
	}
	return nil
}

// Parameters materialises the planner parameter set: the built-in defaults
// overlaid with every field the config sets.
func (c *TuningConfig) Parameters() avoidance.Parameters {
	p := avoidance.DefaultParameters()

	setF := func(dst, src *float64) {
		if src != nil {
			*dst = *src
		}
	}

	setF(&p.VehicleWidth, c.VehicleWidth)
	setF(&p.MovingSpeedThreshold, c.MovingSpeedThreshold)
	setF(&p.MovingTimeThreshold, c.MovingTimeThreshold)
	setF(&p.BackwardCheckDistance, c.BackwardCheckDist)
	setF(&p.ForwardCheckDistance, c.ForwardCheckDist)
	setF(&p.CenterlineThreshold, c.CenterlineThreshold)
	setF(&p.ShiftableRatioThreshold, c.ShiftableRatio)
	setF(&p.SafetyBufferLateral, c.SafetyBufferLateral)
	setF(&p.AvoidMarginLateral, c.AvoidMarginLateral)
	setF(&p.EnvelopeBuffer, c.EnvelopeBuffer)
	setF(&p.SoftRoadShoulderMargin, c.SoftRoadShoulderMargin)
	setF(&p.HardRoadShoulderMargin, c.HardRoadShoulderMargin)
	setF(&p.LateralExecutionThreshold, c.LateralExecThreshold)
	setF(&p.HysteresisExpandFactor, c.HysteresisExpandFactor)
	setF(&p.ForceAvoidanceStopTime, c.ForceAvoidanceStopTime)
	setF(&p.NominalLateralJerk, c.NominalLateralJerk)
	setF(&p.MaxLateralJerk, c.MaxLateralJerk)
	setF(&p.NominalAvoidanceSpeed, c.NominalAvoidanceSpeed)
	setF(&p.LongitudinalFrontBuffer, c.LongitudinalFrontBuffer)
	setF(&p.LongitudinalRearBuffer, c.LongitudinalRearBuffer)
	setF(&p.QuantizeSize, c.QuantizeSize)
	setF(&p.MinShiftSpan, c.MinShiftSpan)
	setF(&p.MaxDeceleration, c.MaxDeceleration)
	setF(&p.YieldMaxDistance, c.YieldMaxDistance)
	setF(&p.SafetyCheckHorizon, c.SafetyCheckHorizon)

	if c.ForceAvoidanceEnabled != nil {
		p.ForceAvoidanceEnabled = *c.ForceAvoidanceEnabled
	}
	if c.DecelerationPolicy != nil {
		p.DecelerationPolicy = *c.DecelerationPolicy
	}

	return p
}
