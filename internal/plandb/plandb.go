package plandb

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/lateralplan/internal/avoidance"
)

// DB records per-cycle planner diagnostics to sqlite for offline review.
type DB struct {
	*sql.DB
}

func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cycles (
			cycle_id INTEGER PRIMARY KEY AUTOINCREMENT,
			state TEXT,
			target_count INTEGER,
			other_count INTEGER,
			line_count INTEGER,
			new_line_count INTEGER,
			safe BOOLEAN,
			degraded BOOLEAN,
			max_shift DOUBLE,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS rejections (
			rejection_id INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id INTEGER,
			object_id TEXT,
			reason TEXT,
			FOREIGN KEY(cycle_id) REFERENCES cycles(cycle_id)
		);
		CREATE TABLE IF NOT EXISTS shift_lines (
			line_id INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id INTEGER,
			object_id TEXT,
			start_longitudinal DOUBLE,
			end_longitudinal DOUBLE,
			start_shift DOUBLE,
			end_shift DOUBLE,
			FOREIGN KEY(cycle_id) REFERENCES cycles(cycle_id)
		);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// RecordCycle stores one planning cycle with its rejections and finalized
// shift lines, returning the cycle id.
func (db *DB) RecordCycle(out avoidance.Output) (int64, error) {
	maxShift := 0.0
	for _, s := range out.Path.ShiftLength {
		maxShift = math.Max(maxShift, math.Abs(s))
	}

	res, err := db.Exec(
		"INSERT INTO cycles (state, target_count, other_count, line_count, new_line_count, safe, degraded, max_shift) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		string(out.State), len(out.Targets), len(out.Others),
		len(out.ShiftLines), len(out.NewLines), out.Safe, out.Degraded, maxShift)
	if err != nil {
		return 0, err
	}
	cycleID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, r := range out.Rejections {
		if _, err := db.Exec(
			"INSERT INTO rejections (cycle_id, object_id, reason) VALUES (?, ?, ?)",
			cycleID, r.ObjectID, string(r.Reason)); err != nil {
			return 0, err
		}
	}
	for _, l := range out.ShiftLines {
		if _, err := db.Exec(
			"INSERT INTO shift_lines (cycle_id, object_id, start_longitudinal, end_longitudinal, start_shift, end_shift) VALUES (?, ?, ?, ?, ?, ?)",
			cycleID, l.ObjectID, l.StartLongitudinal, l.EndLongitudinal, l.StartShift, l.EndShift); err != nil {
			return 0, err
		}
	}
	return cycleID, nil
}

// CycleSummary is one row of the cycles table.
type CycleSummary struct {
	CycleID   int64
	State     string
	Targets   int
	Others    int
	Lines     int
	NewLines  int
	Safe      bool
	Degraded  bool
	MaxShift  float64
	Timestamp time.Time
}

func (c *CycleSummary) String() string {
	return fmt.Sprintf("cycle %d: state=%s targets=%d lines=%d safe=%v max_shift=%.2f",
		c.CycleID, c.State, c.Targets, c.Lines, c.Safe, c.MaxShift)
}

// Cycles returns the most recent planning cycles, newest first.
func (db *DB) Cycles(limit int) ([]CycleSummary, error) {
	rows, err := db.Query(
		"SELECT cycle_id, state, target_count, other_count, line_count, new_line_count, safe, degraded, max_shift, timestamp FROM cycles ORDER BY cycle_id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CycleSummary
	for rows.Next() {
		var c CycleSummary
		if err := rows.Scan(&c.CycleID, &c.State, &c.Targets, &c.Others,
			&c.Lines, &c.NewLines, &c.Safe, &c.Degraded, &c.MaxShift, &c.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Rejections returns the rejection rows for one cycle.
func (db *DB) Rejections(cycleID int64) ([]avoidance.RejectionRecord, error) {
	rows, err := db.Query(
		"SELECT object_id, reason FROM rejections WHERE cycle_id = ?", cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []avoidance.RejectionRecord
	for rows.Next() {
		var objectID, reason string
		if err := rows.Scan(&objectID, &reason); err != nil {
			return nil, err
		}
		out = append(out, avoidance.RejectionRecord{
			ObjectID: objectID,
			Reason:   avoidance.RejectReason(reason),
		})
	}
	return out, rows.Err()
}
