// Package schedule implements the single-threaded cooperative engine that
// drives a cycle of Runnables against wall-clock time, with support for
// pausing, mid-run rescheduling and background task tracking.
package schedule

import (
	"math"

	"github.com/atmoslab/gspc/internal/hw"
)

// Event records whether a named point in the schedule has occurred yet, and
// when: ExpectedTime is a projection until Occurred flips true, at which
// point it is the actual wall-clock time it happened.
type Event struct {
	ExpectedTime float64 // seconds since the engine's real-time zero
	Occurred     bool
}

// Base is embedded by every concrete Runnable. It carries the bookkeeping
// the engine needs (origin, context index, set/clear event keys) so
// Runnable implementations only have to supply Execute.
type Base struct {
	ctxIndex    int
	origin      float64
	setEvents   []string
	clearEvents []string
	prep        bool
}

// NewBase constructs the embeddable bookkeeping for a Runnable.
func NewBase(ctxIndex int, origin float64, setEvents, clearEvents []string) Base {
	return Base{ctxIndex: ctxIndex, origin: origin, setEvents: setEvents, clearEvents: clearEvents}
}

// MarkPreparation flags this Runnable as belonging to a task's preparation
// window (an action taken before the task's own origin, reaching back into
// the prior cycle). Reschedule append validation treats these specially:
// see Engine.Reschedule.
func (b *Base) MarkPreparation() { b.prep = true }

func (b Base) Origin() float64        { return b.origin }
func (b Base) SetEvents() []string    { return b.setEvents }
func (b Base) ClearEvents() []string  { return b.clearEvents }
func (b Base) ContextIndex() int      { return b.ctxIndex }
func (b Base) IsPreparation() bool    { return b.prep }
func (b Base) immediate() bool        { return math.IsInf(b.origin, -1) }

// Runnable is one atomic, timed step of a cycle. Execute may block (sleeps,
// hardware round-trips) but must never panic across this boundary — errors
// are logged and folded into an abort by the Runnable itself, using the
// Context it closed over at construction time.
type Runnable interface {
	Origin() float64
	SetEvents() []string
	ClearEvents() []string
	ContextIndex() int
	Execute() (rescheduleFromNow bool)
}

// preparationRunnable is implemented by Runnable when Base.MarkPreparation
// was called.
type preparationRunnable interface {
	IsPreparation() bool
}

// Task is a pure function from a freshly allocated Context to the ordered
// Runnables that implement it, plus the origin distance its successor task
// should be placed at.
type Task interface {
	// OriginAdvance is the origin offset, relative to this task's own
	// origin, at which the next task in the cycle should begin.
	OriginAdvance() float64
	// Schedule returns every Runnable this task contributes, in the order
	// they should run (the engine re-sorts by Origin(), stable, so ties
	// keep this order).
	Schedule(ctx *Context) []Runnable
}

// Context is the per-task record a Task's Runnables close over. The engine
// owns the slice of Contexts and finds a Runnable's Context through the
// index it carries (see Base.ContextIndex), which is how Reschedule drops a
// suffix of contexts and their Runnables. The index is not the only link:
// the concrete Runnables in package tasks also keep a pointer to their
// Context.
type Context struct {
	Interface hw.Interface
	Engine    *Engine
	Origin    float64
	TaskIndex int
	TaskName  string

	TaskActivated bool
	taskStarted   bool
	taskCompleted bool
}

// MarkStarted announces that this task's first substantive action has
// begun. Called by the task's own Runnables (e.g. a cycle-begin step), not
// by the engine's main loop.
func (c *Context) MarkStarted() { c.taskStarted = true }

// MarkCompleted announces that this task has produced its final result.
func (c *Context) MarkCompleted() { c.taskCompleted = true }

func (c *Context) Started() bool   { return c.taskStarted }
func (c *Context) Completed() bool { return c.taskCompleted }
