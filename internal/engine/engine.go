// Package engine implements the sync engine: spec.md §4.6's central
// coordinator. It owns every SyncEntry's runtime state and, per entry, runs
// one of an Immediate (event-driven) loop, a Periodic (timer-driven) loop,
// or neither (Full-sync-only). It generalizes the teacher's
// internal/task.Scheduler — one cooperative task per unit of work feeding a
// shared results/health view — from a DAG of one-shot tasks to three
// independent long-running per-entry loops. Each loop runs in its own
// goroutine and the loops run concurrently, not on one single-threaded run
// loop: per-entry state is guarded by the entry's own mutex, the control
// surface by its lock, and a per-entry transfer lock keeps at most one
// transfer per entry in flight.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/openbmc-project/bmc-data-sync/internal/catalog"
	"github.com/openbmc-project/bmc-data-sync/internal/control"
	"github.com/openbmc-project/bmc-data-sync/internal/history"
	"github.com/openbmc-project/bmc-data-sync/internal/notifyqueue"
	"github.com/openbmc-project/bmc-data-sync/internal/pathwatch"
	"github.com/openbmc-project/bmc-data-sync/internal/retry"
	"github.com/openbmc-project/bmc-data-sync/internal/role"
	"github.com/openbmc-project/bmc-data-sync/internal/syncerr"
)

// Config wires an Engine to its collaborators.
type Config struct {
	Entries       []*catalog.SyncEntry
	Watcher       *pathwatch.Watcher
	Retry         *retry.Controller
	Control       *control.Surface
	Role          role.Provider
	ErrorReporter *syncerr.Reporter
	History       *history.Store // optional; nil disables attempt recording
	DropDir       string          // notification queue drop directory; "" disables notification
	FullSyncWorkers int           // bounded concurrency for StartFullSync; default 4
	StatusPath    string          // optional; path a snapshot of every entry's state is mirrored to
}

// Engine is the sync engine: the central coordinator of spec.md §4.6.
type Engine struct {
	cfg      Config
	entries  []*runtimeEntry
	byPath   []*runtimeEntry // same slice, ordered longest-path-first for routing
	role     role.State
	roleMu   sync.RWMutex
	wg       sync.WaitGroup
}

// New builds an Engine from cfg. It does not start any loops; call Run.
func New(cfg Config) *Engine {
	if cfg.FullSyncWorkers <= 0 {
		cfg.FullSyncWorkers = 4
	}
	e := &Engine{cfg: cfg}
	for _, se := range cfg.Entries {
		re := newRuntimeEntry(se)
		e.entries = append(e.entries, re)
	}
	e.byPath = append([]*runtimeEntry(nil), e.entries...)
	sortRuntimeEntriesByPathLength(e.byPath)

	cfg.Control.SetFullSyncStarter(e.fullSyncStarter)
	return e
}

func sortRuntimeEntriesByPathLength(entries []*runtimeEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && len(entries[j].entry.Path) > len(entries[j-1].entry.Path); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// Run starts the engine's per-entry loops and the fsnotify demultiplex loop,
// and blocks until ctx is cancelled. Every long-running goroutine observes
// ctx at its next suspension point and returns, per spec.md §5.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.refreshRole(); err != nil {
		slog.Error("role provider unavailable at startup", "error", err)
		return err
	}

	e.wg.Add(1)
	go e.watchRoleChanges(ctx)

	e.wg.Add(1)
	go e.demuxWatcherEvents(ctx)

	e.wg.Add(1)
	go e.pollControlFile(ctx)

	for _, re := range e.entries {
		re := re
		e.arm(re)
		e.persistStatuses()
		switch {
		case re.state() == Dead:
			continue
		case re.entry.SyncType == catalog.Immediate:
			e.wg.Add(1)
			go e.runImmediate(ctx, re)
		case re.entry.SyncType == catalog.Periodic:
			e.wg.Add(1)
			go e.runPeriodic(ctx, re)
		}
	}

	<-ctx.Done()
	e.wg.Wait()
	return nil
}

func (r *runtimeEntry) state() State { return r.getState() }

// EntryStatus is one catalogue entry's path and current runtime state, for
// status reporting (CLI `status`, the `watch` dashboard).
type EntryStatus struct {
	Path  string
	State string
}

// Statuses reports every entry's current state, in catalogue order.
func (e *Engine) Statuses() []EntryStatus {
	out := make([]EntryStatus, 0, len(e.entries))
	for _, re := range e.entries {
		out = append(out, EntryStatus{Path: re.entry.Path, State: re.getState().String()})
	}
	return out
}

// persistStatuses mirrors Statuses() to cfg.StatusPath, the same
// shared-file integration point control.Surface uses, so a separate CLI
// invocation of `status` or `watch` can read this process's live state.
// Best-effort: failures are logged, never fatal.
func (e *Engine) persistStatuses() {
	if e.cfg.StatusPath == "" {
		return
	}
	data, err := json.MarshalIndent(e.Statuses(), "", "  ")
	if err != nil {
		slog.Error("marshal status snapshot", "error", err)
		return
	}
	if dir := filepath.Dir(e.cfg.StatusPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("create status snapshot dir", "error", err)
			return
		}
	}
	tmp := e.cfg.StatusPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		slog.Error("write status snapshot", "error", err)
		return
	}
	if err := os.Rename(tmp, e.cfg.StatusPath); err != nil {
		slog.Error("rename status snapshot", "error", err)
	}
}

// ReadStatuses reads a snapshot previously written by persistStatuses, for
// use by a separate `status`/`watch` CLI invocation. A missing file
// reports an empty snapshot rather than an error.
func ReadStatuses(path string) ([]EntryStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []EntryStatus
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// arm transitions an entry from Idle into Armed (eligible for the current
// role) or Dead (not eligible), and — for Immediate entries — subscribes
// the path watcher, falling back to Periodic on WatchSetup failure per
// spec.md §7.
func (e *Engine) arm(re *runtimeEntry) {
	st := e.currentRole()
	if !re.entry.EligibleFor(catalog.Role(st.Role)) {
		re.setState(Dead)
		return
	}
	re.setState(Armed)

	if re.entry.SyncType != catalog.Immediate {
		return
	}
	if err := e.cfg.Watcher.Add(re.entry.Path, re.entry.IsDir); err != nil {
		if e.cfg.ErrorReporter != nil {
			e.cfg.ErrorReporter.Report(syncerr.WatchSetup, re.entry.Path, err, nil)
		}
		slog.Error("watch setup failed, falling back to periodic", "entry", re.entry.Path, "error", err)
		re.entry.SyncType = catalog.Periodic
		if re.entry.Periodicity <= 0 {
			re.entry.Periodicity = catalog.DefaultPeriodicity
		}
	}
}

func (e *Engine) currentRole() role.State {
	e.roleMu.RLock()
	defer e.roleMu.RUnlock()
	return e.role
}

func (e *Engine) refreshRole() error {
	st, err := e.cfg.Role.Current()
	if err != nil {
		return err
	}
	e.roleMu.Lock()
	e.role = st
	e.roleMu.Unlock()
	return nil
}

func (e *Engine) watchRoleChanges(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-e.cfg.Role.Changes():
			if !ok {
				return
			}
			e.roleMu.Lock()
			e.role = st
			e.roleMu.Unlock()
			for _, re := range e.entries {
				e.arm(re)
			}
		}
	}
}

// pollControlFile periodically re-reads the control surface's persistence
// file, adopting edits a separate `bmc-data-syncd enable|disable`
// invocation made to the shared file since there is no live IPC channel
// between processes.
func (e *Engine) pollControlFile(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.cfg.Control.Refresh(); err != nil {
				slog.Warn("control surface refresh", "error", err)
			}
			e.persistStatuses()
		}
	}
}

// demuxWatcherEvents translates the shared Watcher's PathEvent stream into
// per-entry Operations, routing each event to the entry with the longest
// matching path prefix, per spec.md §4.2/§4.6.
func (e *Engine) demuxWatcherEvents(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case pe, ok := <-e.cfg.Watcher.Events():
			if !ok {
				return
			}
			op, ok := deriveOperation(pe)
			if !ok {
				continue
			}
			re := e.routeEvent(pe.Path)
			if re == nil || re.entry.SyncType != catalog.Immediate {
				continue
			}
			if !inScope(re.entry, op.Path) {
				continue
			}
			re.enqueue(op)
		case err, ok := <-e.cfg.Watcher.Errors():
			if !ok {
				continue
			}
			slog.Warn("path watcher error", "error", err)
		}
	}
}

func (e *Engine) routeEvent(path string) *runtimeEntry {
	for _, re := range e.byPath {
		if path == re.entry.Path || inScope(re.entry, path) {
			return re
		}
	}
	return nil
}

// runImmediate is the event-driven loop of spec.md §4.6. It suspends on
// re.wake and then drains re.pending one path at a time: since enqueue
// overwrites rather than appends, any events that arrive for a path already
// pending (including one whose transfer is currently running) collapse into
// that single queued operation — at most one additional run per path, never
// one run per event, per spec.md §4.6's coalescing rule.
func (e *Engine) runImmediate(ctx context.Context, re *runtimeEntry) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-re.wake:
		}
		for {
			if re.getState() == Dead {
				break
			}
			if e.cfg.Control.Disable() {
				// Disabled: stall at the suspension point without acting,
				// per spec.md §4.6. Pending operations stay queued and are
				// run on the first wake after the entry is re-enabled.
				break
			}
			op, ok := re.dequeue()
			if !ok {
				break
			}
			e.runOperation(ctx, re, op)
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}
}

// runPeriodic is the timer-driven loop of spec.md §4.6. Drift is not
// corrected: the sleep runs from end-of-attempt to start-of-next.
func (e *Engine) runPeriodic(ctx context.Context, re *runtimeEntry) {
	defer e.wg.Done()
	timer := time.NewTimer(re.entry.Periodicity)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if e.cfg.Control.Disable() || re.getState() == Dead {
				timer.Reset(re.entry.Periodicity)
				continue
			}
			e.runWholeEntry(ctx, re)
			timer.Reset(re.entry.Periodicity)
		}
	}
}

// runOperation executes one path-level Copy/Delete for an Immediate entry,
// holding the entry-wide transfer lock for the duration so FullSync and
// Periodic transfers of the same entry cannot overlap it.
func (e *Engine) runOperation(ctx context.Context, re *runtimeEntry, op Operation) {
	re.transferMu.Lock()
	defer re.transferMu.Unlock()

	re.markInProgress(op.Path)
	defer re.clearInProgress(op.Path)
	re.setState(Running)

	started := time.Now()
	dest := destFor(re.entry, op.Path)
	var ok bool
	opName := "Copy"
	switch op.Kind {
	case Copy:
		ok = e.cfg.Retry.RunPath(ctx, re.entry, op.Path, dest)
	case DeletePeer:
		opName = "DeletePeer"
		ok = e.cfg.Retry.RunDelete(ctx, re.entry, op.Path, dest)
	}
	e.recordAttempt(re.entry, opName, op.Path, ok, started)
	e.finishTransfer(re, op.Path, ok)
}

// runWholeEntry executes one whole-entry transfer (Periodic tick or
// FullSync pass), respecting the entry-wide transfer lock.
func (e *Engine) runWholeEntry(ctx context.Context, re *runtimeEntry) bool {
	re.transferMu.Lock()
	defer re.transferMu.Unlock()

	re.setState(Running)
	started := time.Now()
	ok := e.cfg.Retry.Run(ctx, re.entry, 0)
	e.recordAttempt(re.entry, "FullEntry", re.entry.Path, ok, started)
	e.finishTransfer(re, re.entry.Path, ok)
	return ok
}

// recordAttempt writes one row to the history store, if wired. Failures to
// record are logged, never propagated: history is an observability aid, not
// a correctness dependency.
func (e *Engine) recordAttempt(entry *catalog.SyncEntry, operation, path string, ok bool, started time.Time) {
	if e.cfg.History == nil {
		return
	}
	exitCode := 0
	if !ok {
		exitCode = 1
	}
	err := e.cfg.History.RecordAttempt(history.Attempt{
		EntryPath: entry.Path,
		Operation: operation,
		Path:      path,
		Succeeded: ok,
		ExitCode:  exitCode,
		Attempt:   0,
		StartedAt: started,
		Duration:  time.Since(started),
	})
	if err != nil {
		slog.Error("record history attempt", "entry", entry.Path, "error", err)
	}
}

func (e *Engine) finishTransfer(re *runtimeEntry, modifiedPath string, ok bool) {
	defer e.persistStatuses()
	if ok {
		re.setState(Succeeded)
		if err := e.cfg.Control.SetHealth(control.Ok); err != nil {
			slog.Error("persist health", "error", err)
		}
		e.maybeNotify(re.entry, modifiedPath)
		re.setState(Armed)
		return
	}
	re.setState(Failing)
	if err := e.cfg.Control.SetHealth(control.Critical); err != nil {
		slog.Error("persist health", "error", err)
	}
	if e.cfg.ErrorReporter != nil {
		rec := e.cfg.ErrorReporter.Report(syncerr.TransferNonZero, re.entry.Path, errTransferFailed, nil)
		if e.cfg.History != nil {
			if err := e.cfg.History.RecordFFDC(history.FFDCReport{
				Kind: string(rec.Kind), EntryPath: rec.Entry, Message: rec.Message,
				FFDCPath: rec.FFDCPath, RecordedAt: rec.Timestamp,
			}); err != nil {
				slog.Error("record history ffdc", "entry", re.entry.Path, "error", err)
			}
		}
	}
}

var errTransferFailed = errors.New("transfer failed after exhausting retries")

// maybeNotify spools a cross-peer notification request if entry is
// configured for it and modifiedPath matches, per spec.md §4.5.
func (e *Engine) maybeNotify(entry *catalog.SyncEntry, modifiedPath string) {
	if e.cfg.DropDir == "" || !notifyqueue.ShouldNotify(entry, modifiedPath) {
		return
	}
	if err := notifyqueue.EnsureDir(e.cfg.DropDir); err != nil {
		slog.Error("notify queue drop dir", "error", err)
		return
	}
	if err := notifyqueue.Produce(e.cfg.DropDir, modifiedPath, entry.NotifySibling); err != nil {
		if e.cfg.ErrorReporter != nil {
			e.cfg.ErrorReporter.Report(syncerr.NotifySend, entry.Path, err, nil)
		}
		slog.Error("notify queue produce", "entry", entry.Path, "error", err)
	}
}

// fullSyncStarter is wired into control.Surface.SetFullSyncStarter and
// implements the StartFullSync body of spec.md §4.6: iterate every entry
// eligible for the local role through a bounded worker pool, setting
// FullSyncStatus to Completed iff every entry succeeded, else Failed.
func (e *Engine) fullSyncStarter() error {
	ctx := context.Background()
	type job struct{ re *runtimeEntry }
	jobs := make(chan job)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allOK := true

	workers := e.cfg.FullSyncWorkers
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				ok := e.runWholeEntry(ctx, j.re)
				mu.Lock()
				if !ok {
					allOK = false
				}
				mu.Unlock()
			}
		}()
	}

	for _, re := range e.entries {
		if !re.entry.EligibleFor(catalog.Role(e.currentRole().Role)) {
			continue
		}
		jobs <- job{re: re}
	}
	close(jobs)
	wg.Wait()

	status := control.Completed
	if !allOK {
		status = control.Failed
	}
	return e.cfg.Control.SetFullSyncStatus(status)
}
