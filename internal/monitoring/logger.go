package monitoring

import "log"

// Logf is the package-level diagnostic logger for the planner. It defaults
// to log.Printf; embedders replace it through SetLogger to route planner
// diagnostics into their own logging.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger, muting planner diagnostics entirely.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
