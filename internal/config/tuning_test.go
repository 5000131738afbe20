package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lateralplan/internal/avoidance"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadTuningConfig(t *testing.T) {
	t.Run("partial config overlays defaults", func(t *testing.T) {
		path := writeConfig(t, "tuning.json",
			`{"nominal_lateral_jerk": 0.5, "avoid_margin_lateral": 1.0, "force_avoidance_enabled": false}`)

		cfg, err := LoadTuningConfig(path)
		require.NoError(t, err)

		p := cfg.Parameters()
		def := avoidance.DefaultParameters()
		assert.Equal(t, 0.5, p.NominalLateralJerk)
		assert.Equal(t, 1.0, p.AvoidMarginLateral)
		assert.False(t, p.ForceAvoidanceEnabled)
		// Unset fields keep their defaults.
		assert.Equal(t, def.VehicleWidth, p.VehicleWidth)
		assert.Equal(t, def.QuantizeSize, p.QuantizeSize)
		assert.Equal(t, def.DecelerationPolicy, p.DecelerationPolicy)
	})

	t.Run("empty object is valid", func(t *testing.T) {
		path := writeConfig(t, "tuning.json", `{}`)
		cfg, err := LoadTuningConfig(path)
		require.NoError(t, err)
		assert.Equal(t, avoidance.DefaultParameters(), cfg.Parameters())
	})

	t.Run("rejects non-json extension", func(t *testing.T) {
		path := writeConfig(t, "tuning.yaml", `{}`)
		_, err := LoadTuningConfig(path)
		assert.ErrorContains(t, err, ".json extension")
	})

	t.Run("rejects missing file", func(t *testing.T) {
		_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		path := writeConfig(t, "tuning.json", `{"vehicle_width": `)
		_, err := LoadTuningConfig(path)
		assert.ErrorContains(t, err, "parse config JSON")
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		path := writeConfig(t, "tuning.json", `{"max_deceleration": 2.0}`)
		_, err := LoadTuningConfig(path)
		assert.ErrorContains(t, err, "max_deceleration")
	})
}

func TestTuningConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     *TuningConfig
		wantErr string
	}{
		{"empty is valid", EmptyTuningConfig(), ""},
		{"negative vehicle width", &TuningConfig{VehicleWidth: ptrFloat64(-1)}, "vehicle_width"},
		{"zero nominal jerk", &TuningConfig{NominalLateralJerk: ptrFloat64(0)}, "nominal_lateral_jerk"},
		{"max jerk below nominal", &TuningConfig{
			NominalLateralJerk: ptrFloat64(0.5),
			MaxLateralJerk:     ptrFloat64(0.2),
		}, "below nominal"},
		{"zero quantize", &TuningConfig{QuantizeSize: ptrFloat64(0)}, "quantize_size"},
		{"ratio above one", &TuningConfig{ShiftableRatio: ptrFloat64(1.2)}, "shiftable_ratio"},
		{"positive deceleration", &TuningConfig{MaxDeceleration: ptrFloat64(1.0)}, "max_deceleration"},
		{"unknown policy", &TuningConfig{DecelerationPolicy: ptrString("eventually")}, "deceleration_policy"},
		{"known policy", &TuningConfig{DecelerationPolicy: ptrString("best_effort")}, ""},
		{"force avoidance toggle", &TuningConfig{ForceAvoidanceEnabled: ptrBool(true)}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tc.wantErr)
			}
		})
	}
}

func TestDefaultsFileMatchesBuiltins(t *testing.T) {
	// The committed defaults file must load cleanly and reproduce the
	// built-in parameter set.
	cfg, err := LoadTuningConfig(filepath.Join("..", "..", DefaultConfigPath))
	require.NoError(t, err)
	assert.Equal(t, avoidance.DefaultParameters(), cfg.Parameters())
}
