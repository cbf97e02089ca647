// Package tasks implements the sample-cycle composition model: the leaf
// Runnables that wrap a single hardware call or short procedure, and the
// Task compositions (Sample plus its Flask/Tank/Zero/PFPFlask variants)
// that assemble them into one cycle's choreography.
package tasks

import (
	"context"
	"math"

	"github.com/atmoslab/gspc/internal/logging"
	"github.com/atmoslab/gspc/internal/schedule"
)

// Step is the general-purpose Runnable: a single timed action expressed as
// a closure over its Context, used for every leaf action that is just one
// (or a short fixed sequence of) Interface calls — set a valve, pulse a
// line, log a reading. MeasurePressure and the deferred AbortPoint get their
// own types in this package instead of being squeezed into a closure; the
// flow guard (StartFlowGuard) is a Step that launches a background task.
type Step struct {
	schedule.Base
	ctx *schedule.Context
	fn  func(ctx context.Context, sc *schedule.Context) bool
}

// NewStep builds a Step scheduled at origin, with the given set/clear event
// keys, running fn when reached.
func NewStep(sc *schedule.Context, origin float64, set, clear []string, fn func(ctx context.Context, sc *schedule.Context) bool) *Step {
	return &Step{
		Base: schedule.NewBase(sc.TaskIndex, origin, set, clear),
		ctx:  sc,
		fn:   fn,
	}
}

// Prep marks this step as belonging to a task's preparation window (see
// schedule.Base.MarkPreparation): a negative-offset action that reaches
// into the previous cycle's timeframe to pre-position hardware.
func (s *Step) Prep() *Step {
	s.MarkPreparation()
	return s
}

func (s *Step) Execute() bool {
	if s.fn == nil {
		return false
	}
	return s.fn(context.Background(), s.ctx)
}

func logErr(l *logging.Logger, action string, err error) {
	if err == nil || l == nil {
		return
	}
	l.Warning().Str("action", action).Err(err).Log("hardware call failed")
}

// immediate is shorthand for math.Inf(-1), the "run as soon as reached"
// origin. No step in this package is scheduled at it: the cycle-begin step
// runs at the task's own origin.
func immediate() float64 { return math.Inf(-1) }
