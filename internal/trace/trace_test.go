package trace

import (
	"strings"
	"testing"
)

func TestCaptureSkipsPlanFrames(t *testing.T) {
	// This package matches the internal-frame filter, so a capture from
	// here must walk out to the test harness rather than report a frame
	// of the plan layer itself.
	tr := Capture(0)

	if tr.IsZero() {
		t.Fatal("expected a captured frame")
	}
	if strings.Contains(tr.Function, "flowplan/internal/") ||
		strings.Contains(tr.Function, "flowplan/pkg/graph") {
		t.Errorf("expected a frame outside the plan layer, got %q", tr.Function)
	}
}

func TestCaptureFallsBackToFirstFrame(t *testing.T) {
	// With every remaining frame internal the first one wins; a huge skip
	// exhausts the stack and yields the zero trace instead of panicking.
	tr := Capture(1 << 10)
	if !tr.IsZero() {
		t.Errorf("expected zero trace past the stack end, got %v", tr)
	}
}

func TestIsZero(t *testing.T) {
	if !(Trace{}).IsZero() {
		t.Error("zero value should report IsZero")
	}
	tr := Trace{File: "plan.go", Line: 7, Function: "build"}
	if tr.IsZero() {
		t.Error("populated trace should not report IsZero")
	}
}

func TestString(t *testing.T) {
	if got := (Trace{}).String(); got != "<no trace>" {
		t.Errorf("zero trace renders as %q", got)
	}
	tr := Trace{File: "plan.go", Line: 7, Function: "build"}
	if got := tr.String(); got != "plan.go:7 (build)" {
		t.Errorf("unexpected rendering %q", got)
	}
}
