package tasks

import "github.com/atmoslab/gspc/internal/schedule"

// AbortPoint is a deferred abort: an earlier Runnable may call Raise with a
// message instead of aborting the schedule directly, so time-critical
// cleanup scheduled between the check and the abort point still runs
// (closing valves, recording the cycle's partial data) before the cycle is
// torn down. When the engine reaches this Runnable, it aborts the schedule
// if anything raised it.
type AbortPoint struct {
	schedule.Base
	sc      *schedule.Context
	pending *string
}

// NewAbortPoint places a deferred abort point at origin.
func NewAbortPoint(sc *schedule.Context, origin float64, pending *string) *AbortPoint {
	return &AbortPoint{
		Base:    schedule.NewBase(sc.TaskIndex, origin, nil, nil),
		sc:      sc,
		pending: pending,
	}
}

// Raise marks the abort point so it fires a message the next time the
// engine reaches it.
func Raise(pending *string, message string) {
	if *pending == "" {
		*pending = message
	}
}

func (a *AbortPoint) Execute() bool {
	if *a.pending != "" {
		a.sc.Engine.Abort(*a.pending)
	}
	return false
}
