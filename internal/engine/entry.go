package engine

import (
	"sync"

	"github.com/openbmc-project/bmc-data-sync/internal/catalog"
)

// State is one SyncEntry's position in the per-entry state machine of
// spec.md §4.6: Idle → Armed → Running → {Succeeded, Failing, Dead}.
type State int

const (
	Idle State = iota
	Armed
	Running
	Succeeded
	Failing
	Dead
)

func (s State) String() string {
	switch s {
	case Armed:
		return "Armed"
	case Running:
		return "Running"
	case Succeeded:
		return "Succeeded"
	case Failing:
		return "Failing"
	case Dead:
		return "Dead"
	default:
		return "Idle"
	}
}

// runtimeEntry is the engine's private per-SyncEntry bookkeeping: current
// state, the entry-wide transfer lock enforcing "at most one transfer per
// entry" (spec.md §8 property 3), and the set of paths with a transfer in
// flight.
//
// pending/wake implement spec.md §4.6's coalescing rule directly: events for
// a path that is already queued (or whose transfer is currently running)
// overwrite that path's entry in pending rather than queuing a second
// invocation, so a write burst against one path produces at most one queued
// rerun, not one invocation per event.
type runtimeEntry struct {
	entry *catalog.SyncEntry

	mu         sync.Mutex
	state      State
	transferMu sync.Mutex // held for the duration of any single transfer involving this entry
	inProgress map[string]bool

	pendingMu sync.Mutex
	pending   map[string]Operation // path -> latest not-yet-started operation for that path
	wake      chan struct{}        // signals runImmediate that pending has new work; buffered 1, coalesced
}

func newRuntimeEntry(e *catalog.SyncEntry) *runtimeEntry {
	return &runtimeEntry{
		entry:      e,
		state:      Idle,
		inProgress: make(map[string]bool),
		pending:    make(map[string]Operation),
		wake:       make(chan struct{}, 1),
	}
}

// enqueue records op as the latest pending operation for its path,
// overwriting any not-yet-started operation already queued for that same
// path, and wakes the Immediate loop. Never blocks.
func (r *runtimeEntry) enqueue(op Operation) {
	r.pendingMu.Lock()
	r.pending[op.Path] = op
	r.pendingMu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// dequeue removes and returns one arbitrary pending operation, if any.
// Events from the same path are never split across two dequeues while
// either is in flight — enqueue always overwrites in place — so which
// operation dequeue picks when several distinct paths are pending does not
// affect the per-path coalescing guarantee.
func (r *runtimeEntry) dequeue() (Operation, bool) {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	for path, op := range r.pending {
		delete(r.pending, path)
		return op, true
	}
	return Operation{}, false
}

func (r *runtimeEntry) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *runtimeEntry) getState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *runtimeEntry) markInProgress(path string) {
	r.mu.Lock()
	r.inProgress[path] = true
	r.mu.Unlock()
}

func (r *runtimeEntry) clearInProgress(path string) {
	r.mu.Lock()
	delete(r.inProgress, path)
	r.mu.Unlock()
}
