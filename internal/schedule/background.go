package schedule

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Group tracks background goroutines the engine has fired off (temperature
// logging, pressure measurement, flow feedback) so they can be reaped once
// finished, or cancelled and awaited together when a cycle aborts.
//
// One WaitGroup, one cancellation scope, membership tracked explicitly
// rather than leaning on a package-level goroutine-local set.
type Group struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	ctx    context.Context
	wg     sync.WaitGroup
	active map[uuid.UUID]struct{}
}

// NewGroup constructs an empty background task group.
func NewGroup() *Group {
	ctx, cancel := context.WithCancel(context.Background())
	return &Group{ctx: ctx, cancel: cancel, active: make(map[uuid.UUID]struct{})}
}

// Start launches fn on its own goroutine, tracked under id for logging and
// status reporting.
func (g *Group) Start(name string, fn func(ctx context.Context)) uuid.UUID {
	id := uuid.New()
	g.mu.Lock()
	g.active[id] = struct{}{}
	g.mu.Unlock()
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.remove(id)
		fn(g.ctx)
	}()
	return id
}

func (g *Group) remove(id uuid.UUID) {
	g.mu.Lock()
	delete(g.active, id)
	g.mu.Unlock()
}

// Reap is a no-op placeholder for symmetry with the main loop's per-step
// bookkeeping; membership is already pruned by each goroutine's own
// deferred cleanup, so there is nothing left to do here beyond the
// opportunity to extend with idle-worker eviction later.
func (g *Group) Reap() {}

// Cancel signals every running background task to stop.
func (g *Group) Cancel() { g.cancel() }

// Wait blocks until every tracked background task has returned.
func (g *Group) Wait() { g.wg.Wait() }

// Active returns the identities of background tasks currently running, for
// the UI bridge's background-task listing.
func (g *Group) Active() []uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(g.active))
	for id := range g.active {
		ids = append(ids, id)
	}
	return ids
}
