package schedule

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRunnable is a minimal Runnable used to exercise the engine without
// touching the hw package.
type testRunnable struct {
	Base
	fn func() bool
}

func (r *testRunnable) Execute() bool {
	if r.fn == nil {
		return false
	}
	return r.fn()
}

// testTask produces a fixed slice of Runnables regardless of context, with
// a caller-supplied OriginAdvance.
type testTask struct {
	advance float64
	build   func(ctx *Context) []Runnable
}

func (t *testTask) OriginAdvance() float64 { return t.advance }
func (t *testTask) Schedule(ctx *Context) []Runnable {
	if t.build == nil {
		return nil
	}
	return t.build(ctx)
}

func newImmediate(ctxIndex int, fn func() bool) *testRunnable {
	b := NewBase(ctxIndex, math.Inf(-1), nil, nil)
	return &testRunnable{Base: b, fn: fn}
}

func newAt(ctxIndex int, origin float64, fn func() bool) *testRunnable {
	b := NewBase(ctxIndex, origin, nil, nil)
	return &testRunnable{Base: b, fn: fn}
}

func TestImmediateRunnablesRunInSubmittedOrder(t *testing.T) {
	var mu sync.Mutex
	var order []int

	task := &testTask{build: func(ctx *Context) []Runnable {
		var rs []Runnable
		for i := 0; i < 5; i++ {
			i := i
			rs = append(rs, newImmediate(ctx.TaskIndex, func() bool {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return false
			}))
		}
		return rs
	}}

	e := New(nil, []Task{task}, nil)
	ok, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestFiniteOriginRunnablesWaitApproximately(t *testing.T) {
	var fired time.Time
	task := &testTask{build: func(ctx *Context) []Runnable {
		return []Runnable{newAt(ctx.TaskIndex, 0.05, func() bool {
			fired = time.Now()
			return false
		})}
	}}
	e := New(nil, []Task{task}, nil)
	start := time.Now()
	ok, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, fired.Sub(start), 40*time.Millisecond)
}

func TestPauseShiftsSubsequentExecutionByPauseDuration(t *testing.T) {
	var second time.Time
	task := &testTask{build: func(ctx *Context) []Runnable {
		return []Runnable{
			newImmediate(ctx.TaskIndex, func() bool { return false }),
			newAt(ctx.TaskIndex, 0.05, func() bool { second = time.Now(); return false }),
		}
	}}
	e := New(nil, []Task{task}, nil)

	e.Pause()
	go func() {
		time.Sleep(60 * time.Millisecond)
		e.Resume()
	}()

	start := time.Now()
	ok, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, second.Sub(start), 100*time.Millisecond)
}

func TestAbortDuringExecuteStopsTheLoop(t *testing.T) {
	var ranSecond bool
	var eng *Engine
	task := &testTask{build: func(ctx *Context) []Runnable {
		return []Runnable{
			newImmediate(ctx.TaskIndex, func() bool {
				eng.Abort("injected")
				return false
			}),
			newImmediate(ctx.TaskIndex, func() bool { ranSecond = true; return false }),
		}
	}}
	eng = New(nil, []Task{task}, nil)
	ok, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, ranSecond)
	aborted, msg := eng.Aborted()
	assert.True(t, aborted)
	assert.Equal(t, "injected", msg)
}

func TestRescheduleRemoveRejectsWhenSuffixAlreadyActive(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})
	var eng *Engine

	task0 := &testTask{advance: 10, build: func(ctx *Context) []Runnable {
		return []Runnable{newImmediate(ctx.TaskIndex, func() bool {
			close(started)
			<-gate
			return false
		})}
	}}
	task1 := &testTask{build: func(ctx *Context) []Runnable { return nil }}

	eng = New(nil, []Task{task0, task1}, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = eng.Run(context.Background())
	}()

	<-started
	// Reschedule blocks until the main loop consumes the request, which it
	// can only do once task0's Runnable returns: release the gate as soon as
	// the request is pending.
	go func() {
		for {
			eng.mu.Lock()
			pending := eng.pending != nil
			eng.mu.Unlock()
			if pending {
				break
			}
			time.Sleep(time.Millisecond)
		}
		close(gate)
	}()
	zero := 0
	err := eng.Reschedule(&zero, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already active")
	<-done
}

func TestRescheduleAppendRejectsPastOriginForOrdinaryRunnable(t *testing.T) {
	task0 := &testTask{build: func(ctx *Context) []Runnable { return nil }}
	eng := New(nil, []Task{task0}, nil)
	eng.zeroMonotonic = time.Now()

	pastTask := &testTask{build: func(ctx *Context) []Runnable {
		return []Runnable{newAt(ctx.TaskIndex, -10, func() bool { return false })}
	}}
	// Reschedule blocks on the main loop consuming the request; since Run
	// is never started here, exercise applyReschedule directly instead.
	req := &rescheduleRequest{append: []Task{pastTask}, result: make(chan error, 1)}
	applyErr := eng.applyReschedule(req)
	require.Error(t, applyErr)
	assert.Contains(t, applyErr.Error(), "past")
}

func TestRescheduleAppendSuppressesPastPreparationRunnable(t *testing.T) {
	task0 := &testTask{build: func(ctx *Context) []Runnable { return nil }}
	eng := New(nil, []Task{task0}, nil)
	eng.zeroMonotonic = time.Now()

	prepTask := &testTask{build: func(ctx *Context) []Runnable {
		r := newAt(ctx.TaskIndex, -814, func() bool { return false })
		r.MarkPreparation()
		return []Runnable{r}
	}}
	req := &rescheduleRequest{append: []Task{prepTask}, result: make(chan error, 1)}
	err := eng.applyReschedule(req)
	assert.NoError(t, err)
	assert.Len(t, eng.run, 0)
	assert.Len(t, eng.contexts, 2)
}

func TestEventIndexRecordsOccurrenceOnExecute(t *testing.T) {
	task := &testTask{build: func(ctx *Context) []Runnable {
		b := NewBase(ctx.TaskIndex, math.Inf(-1), []string{"sample_open"}, nil)
		return []Runnable{&testRunnable{Base: b, fn: func() bool { return false }}}
	}}
	e := New(nil, []Task{task}, nil)
	ok, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	ev, found := e.events["sample_open"]
	assert.True(t, found)
	assert.True(t, ev.Occurred)
}
