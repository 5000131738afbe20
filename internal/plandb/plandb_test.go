package plandb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lateralplan/internal/avoidance"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "plan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleOutput() avoidance.Output {
	return avoidance.Output{
		State: avoidance.StateAvoidExecute,
		Path: avoidance.ShiftedPath{
			ShiftLength: []float64{0, 0.6, 1.2, -0.4, 0},
		},
		ShiftLines: avoidance.AvoidLineArray{
			{ID: 1, ObjectID: "parked", StartLongitudinal: 10, EndLongitudinal: 50, StartShift: 0, EndShift: 1.2},
			{ID: 2, ObjectID: "parked", StartLongitudinal: 65, EndLongitudinal: 110, StartShift: 1.2, EndShift: 0},
		},
		NewLines: avoidance.AvoidLineArray{
			{ID: 2, ObjectID: "parked", StartLongitudinal: 65, EndLongitudinal: 110, StartShift: 1.2, EndShift: 0},
		},
		Targets: []avoidance.ObjectData{{}},
		Others:  []avoidance.ObjectData{{}, {}},
		Rejections: []avoidance.RejectionRecord{
			{ObjectID: "mover", Reason: avoidance.ReasonMovingObject},
			{ObjectID: "walker", Reason: avoidance.ReasonCrosswalkUser},
		},
		Safe: true,
	}
}

func TestRecordCycleRoundTrip(t *testing.T) {
	db := openTestDB(t)

	cycleID, err := db.RecordCycle(sampleOutput())
	require.NoError(t, err)
	require.NotZero(t, cycleID)

	cycles, err := db.Cycles(10)
	require.NoError(t, err)
	require.Len(t, cycles, 1)

	c := cycles[0]
	assert.Equal(t, cycleID, c.CycleID)
	assert.Equal(t, string(avoidance.StateAvoidExecute), c.State)
	assert.Equal(t, 1, c.Targets)
	assert.Equal(t, 2, c.Others)
	assert.Equal(t, 2, c.Lines)
	assert.Equal(t, 1, c.NewLines)
	assert.True(t, c.Safe)
	assert.False(t, c.Degraded)
	assert.InDelta(t, 1.2, c.MaxShift, 1e-9)

	rejections, err := db.Rejections(cycleID)
	require.NoError(t, err)
	require.Len(t, rejections, 2)
	assert.Equal(t, "mover", rejections[0].ObjectID)
	assert.Equal(t, avoidance.ReasonMovingObject, rejections[0].Reason)
}

func TestCyclesNewestFirst(t *testing.T) {
	db := openTestDB(t)

	out := sampleOutput()
	first, err := db.RecordCycle(out)
	require.NoError(t, err)
	out.State = avoidance.StateNotAvoid
	second, err := db.RecordCycle(out)
	require.NoError(t, err)
	require.Greater(t, second, first)

	cycles, err := db.Cycles(10)
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	assert.Equal(t, second, cycles[0].CycleID)
	assert.Equal(t, string(avoidance.StateNotAvoid), cycles[0].State)

	limited, err := db.Cycles(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second, limited[0].CycleID)
}

func TestRejectionsEmptyCycle(t *testing.T) {
	db := openTestDB(t)

	out := sampleOutput()
	out.Rejections = nil
	cycleID, err := db.RecordCycle(out)
	require.NoError(t, err)

	rejections, err := db.Rejections(cycleID)
	require.NoError(t, err)
	assert.Empty(t, rejections)
}
