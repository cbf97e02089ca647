// Package logging wires the process's one structured logger: a
// logiface.Logger[*stumpy.Event] writing to stderr and, once a cycle is
// underway, also to the Cycle Data Sink's log file.
package logging

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the concrete type every package in this module logs through.
type Logger = logiface.Logger[*stumpy.Event]

// New builds the process logger. debug raises the level so Debug() calls
// are emitted; otherwise the floor is Informational, matching the syslog
// levels logiface models.
func New(debug bool, extra io.Writer) *Logger {
	level := logiface.LevelInformational
	if debug {
		level = logiface.LevelDebug
	}

	writer := io.Writer(os.Stderr)
	if extra != nil {
		writer = io.MultiWriter(os.Stderr, extra)
	}

	return logiface.New[*stumpy.Event](
		logiface.WithLevel[*stumpy.Event](level),
		stumpy.WithStumpy(stumpy.WithWriter(writer)),
	)
}

// WithCycle returns a child context tagging every subsequent log line with
// the cycle correlation id, the way the UI bridge and background tasks
// identify which cycle a message belongs to.
func WithCycle(l *Logger, cycleID string) *Logger {
	return l.Clone().Str("cycle", cycleID).Logger()
}
