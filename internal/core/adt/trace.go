package adt

import (
	"fmt"
	"io"
)

// Tracer receives diagnostic trace events from the resolver, the same role
// cuelang.org/go/internal/core/adt's OpContext.Logf plays for CUE's own
// evaluator: a narrow, always-present hook for "-trace"-style debugging
// that costs nothing when no one is listening.
type Tracer interface {
	Tracef(format string, args ...interface{})
}

// NoopTracer discards every trace event. The zero value is ready to use,
// and is every component's default until something calls SetTracer.
type NoopTracer struct{}

func (NoopTracer) Tracef(string, ...interface{}) {}

// WriterTracer writes each trace event as a line to W, the concrete Tracer
// a driver wires up behind a `--trace` flag.
type WriterTracer struct {
	W io.Writer
}

func (t WriterTracer) Tracef(format string, args ...interface{}) {
	fmt.Fprintf(t.W, format+"\n", args...)
}
