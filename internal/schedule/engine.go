package schedule

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atmoslab/gspc/internal/hw"
)

// ErrRescheduleInFlight is returned by Reschedule when a previous call has
// not yet been consumed by the main loop.
var ErrRescheduleInFlight = errors.New("schedule: a reschedule request is already pending")

// RescheduleError is returned by Reschedule when the requested mutation is
// invalid; Message matches one of the reasons named in the component design
// (task already active, task requires action in the past).
type RescheduleError struct{ Message string }

func (e *RescheduleError) Error() string { return e.Message }

// TaskState is the per-context lifecycle the UI bridge renders.
type TaskState int

const (
	StatePreparing TaskState = iota
	StateActive
	StateComplete
)

// ContextSnapshot is an immutable view of one Context, safe to hand to a
// goroutine other than the engine's own.
type ContextSnapshot struct {
	TaskIndex int
	TaskName  string
	Origin    float64
	State     TaskState
}

// Snapshot is published by the engine once per main-loop iteration. It is
// the only channel through which another goroutine observes engine state
// (see StateObserver).
type Snapshot struct {
	Contexts []ContextSnapshot
	Events   map[string]Event
	Paused   bool
	Aborted  bool
	AbortMsg string
}

// StateObserver receives a Snapshot every time the engine's state changes
// in a way worth redrawing. Implementations must not block: the engine
// calls this synchronously from its own goroutine.
type StateObserver func(Snapshot)

type rescheduleRequest struct {
	remove *int
	append []Task
	result chan error
}

// Engine is the single-threaded cooperative executor. All mutation methods
// (Pause, Resume, Abort, Reschedule) are safe to call from any goroutine;
// the mutation itself is only ever applied from within Run.
type Engine struct {
	iface hw.Interface

	mu       sync.Mutex
	paused   chan struct{}
	aborted  bool
	abortMsg string
	pending  *rescheduleRequest

	breakSignal chan struct{}

	zeroMonotonic time.Time
	zeroReal      time.Time

	tasks    []Task
	contexts []*Context
	run      []Runnable

	events map[string]Event

	observer StateObserver

	background *Group
}

// New constructs an Engine for a fresh cycle starting with the given tasks,
// in order, each placed at the origin following its predecessor's
// OriginAdvance (the first task starts at origin 0).
func New(iface hw.Interface, tasks []Task, observer StateObserver) *Engine {
	e := &Engine{
		iface:       iface,
		breakSignal: make(chan struct{}, 1),
		events:      make(map[string]Event),
		observer:    observer,
		background:  NewGroup(),
	}
	for _, t := range tasks {
		e.appendTask(t)
	}
	return e
}

func (e *Engine) lastOrigin() float64 {
	if len(e.contexts) == 0 {
		return 0
	}
	last := e.contexts[len(e.contexts)-1]
	return last.Origin + e.tasks[len(e.tasks)-1].OriginAdvance()
}

// appendTask allocates a Context and expands one Task's Runnables into the
// pending run list, without sorting or validating past-origin constraints.
// Its only caller is New, whose run list Run sorts before the first step;
// applyReschedule expands appended tasks itself.
func (e *Engine) appendTask(t Task) *Context {
	origin := e.lastOrigin()
	ctx := &Context{
		Interface: e.iface,
		Engine:    e,
		Origin:    origin,
		TaskIndex: len(e.contexts),
		TaskName:  fmt.Sprintf("%T", t),
	}
	e.tasks = append(e.tasks, t)
	e.contexts = append(e.contexts, ctx)
	e.run = append(e.run, t.Schedule(ctx)...)
	return ctx
}

// Run drives the cycle to completion, returning false if it ended in an
// abort (Aborted() then reports why) or true on normal completion. It
// blocks the calling goroutine for the cycle's entire duration.
func (e *Engine) Run(ctx context.Context) (completed bool, err error) {
	now := time.Now()
	e.zeroMonotonic = now
	e.zeroReal = now

	sort.SliceStable(e.run, func(i, j int) bool { return e.run[i].Origin() < e.run[j].Origin() })

	for len(e.run) > 0 {
		// a. pause check
		e.mu.Lock()
		p := e.paused
		e.mu.Unlock()
		if p != nil {
			e.publish()
			began := time.Now()
			select {
			case <-p:
			case <-ctx.Done():
				return false, ctx.Err()
			}
			elapsed := time.Since(began)
			e.zeroMonotonic = e.zeroMonotonic.Add(elapsed)
			e.zeroReal = e.zeroReal.Add(elapsed)
			continue
		}

		// b. abort check
		e.mu.Lock()
		aborted := e.aborted
		e.mu.Unlock()
		if aborted {
			break
		}

		// c. reschedule check
		e.mu.Lock()
		req := e.pending
		e.pending = nil
		e.mu.Unlock()
		if req != nil {
			req.result <- e.applyReschedule(req)
			continue
		}

		// d. publish event-index projections for the remaining run
		e.projectEvents()

		// e. state update
		e.publish()

		// f. wait for the head of the run to become ready
		r := e.run[0]
		if immediateOrigin(r) {
			select {
			case <-e.breakSignal:
				continue
			default:
			}
		} else {
			target := e.zeroMonotonic.Add(time.Duration(r.Origin() * float64(time.Second)))
			delay := time.Until(target)
			if delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-timer.C:
				case <-e.breakSignal:
					timer.Stop()
					continue
				case <-ctx.Done():
					timer.Stop()
					return false, ctx.Err()
				}
			}
		}

		// g. execute
		e.run = e.run[1:]
		c := e.contexts[r.ContextIndex()]
		c.TaskActivated = true
		e.publish()

		resched := r.Execute()

		e.mu.Lock()
		aborted = e.aborted
		e.mu.Unlock()
		if aborted {
			break
		}

		now := time.Now()
		if resched && !math.IsInf(r.Origin(), -1) {
			shift := -time.Duration(r.Origin() * float64(time.Second))
			e.zeroMonotonic = now.Add(shift)
			e.zeroReal = now.Add(shift)
		}

		for _, k := range r.ClearEvents() {
			delete(e.events, k)
		}
		for _, k := range r.SetEvents() {
			e.events[k] = Event{ExpectedTime: secondsSince(e.zeroReal, now), Occurred: true}
		}

		e.background.Reap()
	}

	if e.aborted {
		e.background.Cancel()
		e.background.Wait()
		return false, nil
	}
	e.background.Wait()
	return true, nil
}

// immediateOrigin reports whether r's origin is -Inf (run as soon as
// reached, no wait).
func immediateOrigin(r Runnable) bool { return math.IsInf(r.Origin(), -1) }

func isFinite(v float64) bool { return !math.IsInf(v, 0) && !math.IsNaN(v) }

func secondsSince(zero, t time.Time) float64 { return t.Sub(zero).Seconds() }

// Pause requests that the main loop suspend before its next step. Idempotent:
// calling it again before Resume has no additional effect.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.paused == nil {
		e.paused = make(chan struct{})
	}
	e.mu.Unlock()
	e.signal()
}

// Resume releases a pending pause. A no-op if the engine is not paused.
func (e *Engine) Resume() {
	e.mu.Lock()
	p := e.paused
	e.paused = nil
	e.mu.Unlock()
	if p != nil {
		close(p)
	}
}

// Paused reports whether the engine is currently suspended.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused != nil
}

// Abort requests the cycle stop at the next main-loop check. Safe to call
// from a Runnable's own Execute (a deferred abort point) or from any other
// goroutine.
func (e *Engine) Abort(message string) {
	e.mu.Lock()
	if !e.aborted {
		e.aborted = true
		e.abortMsg = message
	}
	e.mu.Unlock()
	e.signal()
}

// Aborted reports whether the cycle has been (or is about to be) aborted,
// and the message passed to Abort, if any.
func (e *Engine) Aborted() (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aborted, e.abortMsg
}

func (e *Engine) signal() {
	select {
	case e.breakSignal <- struct{}{}:
	default:
	}
}

// Reschedule atomically drops the suffix of tasks from index remove (if
// non-nil) and appends new tasks (if any), blocking the caller until the
// main loop has applied or rejected the mutation. Only one Reschedule may
// be outstanding at a time.
func (e *Engine) Reschedule(remove *int, appendTasks []Task) error {
	req := &rescheduleRequest{remove: remove, append: appendTasks, result: make(chan error, 1)}
	e.mu.Lock()
	if e.pending != nil {
		e.mu.Unlock()
		return ErrRescheduleInFlight
	}
	e.pending = req
	e.mu.Unlock()
	e.signal()
	return <-req.result
}

func (e *Engine) applyReschedule(req *rescheduleRequest) error {
	newContexts := e.contexts
	newTasks := e.tasks
	newRun := e.run

	if req.remove != nil {
		k := *req.remove
		for i := k; i < len(newContexts); i++ {
			if newContexts[i].TaskActivated {
				return &RescheduleError{Message: "task already active"}
			}
		}
		filtered := newRun[:0:0]
		for _, r := range newRun {
			if r.ContextIndex() < k {
				filtered = append(filtered, r)
			}
		}
		newRun = filtered
		newContexts = newContexts[:k]
		newTasks = newTasks[:k]
	}

	nowOffset := secondsSince(e.zeroMonotonic, time.Now())

	var appended []Runnable
	origin := float64(0)
	if len(newContexts) > 0 {
		origin = newContexts[len(newContexts)-1].Origin + newTasks[len(newTasks)-1].OriginAdvance()
	}
	for _, t := range req.append {
		ctx := &Context{
			Interface: e.iface,
			Engine:    e,
			Origin:    origin,
			TaskIndex: len(newContexts),
			TaskName:  fmt.Sprintf("%T", t),
		}
		for _, r := range t.Schedule(ctx) {
			if isFinite(r.Origin()) && r.Origin() < nowOffset {
				if p, ok := r.(preparationRunnable); ok && p.IsPreparation() {
					continue
				}
				return &RescheduleError{Message: "task requires action in the past"}
			}
			appended = append(appended, r)
		}
		newContexts = append(newContexts, ctx)
		newTasks = append(newTasks, t)
		origin = ctx.Origin + t.OriginAdvance()
	}

	newRun = append(newRun, appended...)
	sort.SliceStable(newRun, func(i, j int) bool { return newRun[i].Origin() < newRun[j].Origin() })

	e.contexts = newContexts
	e.tasks = newTasks
	e.run = newRun
	return nil
}

// StartBackground launches fn on its own goroutine, tracked for reaping and
// cancellation exactly like any other background task (see Group).
func (e *Engine) StartBackground(name string, fn func(ctx context.Context)) {
	e.background.Start(name, fn)
}

// ActiveBackground lists the ids of background tasks still running, for
// the console's status command.
func (e *Engine) ActiveBackground() []uuid.UUID {
	return e.background.Active()
}

func (e *Engine) publish() {
	if e.observer == nil {
		return
	}
	snap := Snapshot{
		Events: make(map[string]Event, len(e.events)),
	}
	for k, v := range e.events {
		snap.Events[k] = v
	}
	e.mu.Lock()
	snap.Paused = e.paused != nil
	snap.Aborted = e.aborted
	snap.AbortMsg = e.abortMsg
	e.mu.Unlock()

	activeRun := make(map[int]bool, 4)
	for _, r := range e.run {
		activeRun[r.ContextIndex()] = true
	}
	for i, c := range e.contexts {
		state := StateComplete
		if activeRun[i] {
			if c.TaskActivated {
				state = StateActive
			} else {
				state = StatePreparing
			}
		}
		snap.Contexts = append(snap.Contexts, ContextSnapshot{
			TaskIndex: c.TaskIndex,
			TaskName:  c.TaskName,
			Origin:    c.Origin,
			State:     state,
		})
	}
	e.observer(snap)
}

// projectEvents rebuilds the future (not-yet-occurred) portion of the event
// index from the still-pending run, in order, applying each Runnable's
// clear/set keys with earliest-wins semantics; real (occurred) entries are
// preserved untouched.
func (e *Engine) projectEvents() {
	fresh := make(map[string]Event, len(e.events))
	for k, v := range e.events {
		if v.Occurred {
			fresh[k] = v
		}
	}
	stop := make(map[string]bool)
	for _, r := range e.run {
		for _, k := range r.ClearEvents() {
			stop[k] = true
		}
		if !isFinite(r.Origin()) {
			continue
		}
		expected := r.Origin()
		for _, k := range r.SetEvents() {
			if stop[k] {
				continue
			}
			if _, ok := fresh[k]; ok {
				continue
			}
			fresh[k] = Event{ExpectedTime: expected, Occurred: false}
		}
	}
	e.events = fresh
}
