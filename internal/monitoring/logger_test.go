package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("planner cycle %d", 3)
	if got != "planner cycle %d" {
		t.Errorf("custom logger saw %q", got)
	}

	// nil installs a no-op, not a nil function.
	SetLogger(nil)
	if Logf == nil {
		t.Fatal("Logf must never be nil")
	}
	Logf("muted")
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf must default to a working logger")
	}
}
