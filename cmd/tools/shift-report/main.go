// Package main renders an HTML report from a planner recording: the peak
// lateral shift per cycle and the shift profile of the latest cycle.
// Pair it with `planner -db` to inspect how a maneuver evolved.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/lateralplan/internal/plandb"
)

func main() {
	dbPath := flag.String("db", "", "planner recording sqlite file (required)")
	outPath := flag.String("out", "shift-report.html", "output HTML file")
	limit := flag.Int("limit", 500, "max cycles to include")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("db file is required")
	}
	db, err := plandb.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	cycleRows, err := db.Cycles(*limit)
	if err != nil {
		log.Fatalf("query cycles: %v", err)
	}
	if len(cycleRows) == 0 {
		log.Fatal("recording holds no cycles")
	}
	// Cycles returns newest first; plot oldest to newest.
	for i, j := 0, len(cycleRows)-1; i < j; i, j = i+1, j-1 {
		cycleRows[i], cycleRows[j] = cycleRows[j], cycleRows[i]
	}

	page := components.NewPage()
	page.AddCharts(shiftOverCycles(cycleRows), profileChart(db, cycleRows[len(cycleRows)-1].CycleID))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		log.Fatalf("render report: %v", err)
	}
	if err := os.WriteFile(*outPath, buf.Bytes(), 0644); err != nil {
		log.Fatalf("write report: %v", err)
	}
	fmt.Printf("wrote %s (%d cycles)\n", *outPath, len(cycleRows))
}

// shiftOverCycles plots the peak applied shift and the line counts across
// the recording.
func shiftOverCycles(rows []plandb.CycleSummary) *charts.Line {
	xs := make([]string, 0, len(rows))
	shift := make([]opts.LineData, 0, len(rows))
	lines := make([]opts.LineData, 0, len(rows))
	for _, r := range rows {
		xs = append(xs, fmt.Sprintf("%d", r.CycleID))
		shift = append(shift, opts.LineData{Value: r.MaxShift})
		lines = append(lines, opts.LineData{Value: r.Lines})
	}

	chart := charts.NewLine()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Avoidance Shift Report", Theme: "dark", Width: "1100px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Peak lateral shift per cycle", Subtitle: fmt.Sprintf("%d cycles", len(rows))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "cycle"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "shift (m)"}),
	)
	chart.SetXAxis(xs)
	chart.AddSeries("max shift", shift)
	chart.AddSeries("line count", lines)
	return chart
}

// profileChart plots the finalized shift lines of one cycle in
// arc-length/shift space.
func profileChart(db *plandb.DB, cycleID int64) *charts.Line {
	rows, err := db.Query(
		"SELECT start_longitudinal, end_longitudinal, start_shift, end_shift FROM shift_lines WHERE cycle_id = ? ORDER BY start_longitudinal",
		cycleID)
	if err != nil {
		log.Fatalf("query shift lines: %v", err)
	}
	defer rows.Close()

	xs := make([]string, 0, 16)
	ys := make([]opts.LineData, 0, 16)
	for rows.Next() {
		var sLon, eLon, sShift, eShift float64
		if err := rows.Scan(&sLon, &eLon, &sShift, &eShift); err != nil {
			log.Fatalf("scan shift line: %v", err)
		}
		xs = append(xs, fmt.Sprintf("%.1f", sLon))
		ys = append(ys, opts.LineData{Value: sShift})
		xs = append(xs, fmt.Sprintf("%.1f", eLon))
		ys = append(ys, opts.LineData{Value: eShift})
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("iterate shift lines: %v", err)
	}

	chart := charts.NewLine()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: "dark", Width: "1100px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Shift profile, cycle %d", cycleID)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "arc length (m)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "shift (m)"}),
	)
	chart.SetXAxis(xs)
	chart.AddSeries("profile", ys)
	return chart
}
