// Package trace captures the construction site of plan nodes for
// diagnostics. A trace never affects type or value computation; it only
// names the user code that built a node when an error is reported.
package trace

import (
	"fmt"
	"runtime"
	"strings"
)

// Trace records one frame of user code.
type Trace struct {
	File     string
	Line     int
	Function string
}

// Capture walks the call stack outward from the caller and returns the
// first frame outside this module's plan-construction packages, so the
// trace points at the operation the user invoked rather than at graph
// internals. skip extra frames may be requested by intermediate helpers.
func Capture(skip int) Trace {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2+skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var first Trace
	for {
		frame, more := frames.Next()
		t := Trace{File: frame.File, Line: frame.Line, Function: frame.Function}
		if first == (Trace{}) {
			first = t
		}
		if !internalFrame(frame.Function) {
			return t
		}
		if !more {
			return first
		}
	}
}

func internalFrame(fn string) bool {
	return strings.Contains(fn, "flowplan/pkg/graph") ||
		strings.Contains(fn, "flowplan/internal/")
}

// IsZero reports whether the trace carries no location.
func (t Trace) IsZero() bool { return t == Trace{} }

func (t Trace) String() string {
	if t.IsZero() {
		return "<no trace>"
	}
	return fmt.Sprintf("%s:%d (%s)", t.File, t.Line, t.Function)
}
