// Package logging builds the structured loggers ThreadGroup uses for
// lifecycle events (worker start/exit, max_tasks adjustments). It is a
// thin wrapper around logiface/stumpy, following the usage shown in
// joeycumines-go-utilpkg/logiface-stumpy's own example tests: configure a
// stumpy backend via stumpy.L.WithStumpy, then build a logger from it via
// the embedded logiface.LoggerFactory.New.
package logging

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the concrete logger type every ThreadGroup logs through.
type Logger = logiface.Logger[*stumpy.Event]

// New builds a logger that writes newline-delimited JSON to w.
func New(w io.Writer) *Logger {
	return stumpy.L.New(stumpy.L.WithStumpy(stumpy.WithWriter(w)))
}

// Default builds a logger writing to os.Stderr, the logger every
// ThreadGroup is given by NewThreadGroup.
func Default() *Logger {
	return New(os.Stderr)
}

// Discard builds a logger that drops everything, for tests and
// benchmarks that don't want log noise.
func Discard() *Logger {
	return New(io.Discard)
}
