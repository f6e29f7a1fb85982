package pathwatch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// moveWindow bounds how long a MovedOut waits for its pairing MovedIn.
// fsnotify (unlike raw inotify) does not expose the kernel rename cookie, so
// pairing is approximated by proximity in time: a Create within moveWindow
// of the last MovedOut is reported as its MovedIn.
const moveWindow = 250 * time.Millisecond

// writeDebounce bounds how long a Write event waits for further writes to
// the same path before being emitted. spec.md §4.2 maps kernel
// IN_CLOSE_WRITE — which fires once, after the writer closes the fd — to
// Write{path}, specifically so a sync isn't triggered mid-write. fsnotify
// has no CLOSE_WRITE event, only IN_MODIFY (fires on every write() syscall),
// so this debounce is how that translation is approximated: a burst of
// write() calls against one path collapses into a single Write emitted
// once the burst goes quiet, rather than one PathEvent per syscall. This is
// an approximation, not the kernel's own close-tracking — a writer that
// pauses longer than writeDebounce mid-write without closing the fd still
// produces an early, premature Write. See DESIGN.md.
const writeDebounce = 300 * time.Millisecond

// Watcher maintains a set of fsnotify watches and translates raw filesystem
// notifications into the typed PathEvent stream spec.md §4.2 describes.
// One Watcher instance is shared by every Immediate SyncEntry in the daemon.
type Watcher struct {
	fsw *fsnotify.Watcher

	mu            sync.Mutex
	targets       map[string]bool            // path -> isDir, for paths we watch directly (escalated or existing at add time)
	pending       map[string]map[string]bool // ancestor path -> (target path -> isDir), targets not yet reachable
	lastMove      *moveOutRecord
	pendingWrites map[string]*time.Timer // path -> pending debounced Write emission

	events chan PathEvent
	errs   chan error
	done   chan struct{}

	nextCookie uint32
}

type moveOutRecord struct {
	path   string
	cookie uint32
	at     time.Time
}

// New creates a Watcher and starts its translation loop.
func New() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create inotify watcher: %w", err)
	}
	w := &Watcher{
		fsw:           fsw,
		targets:       make(map[string]bool),
		pending:       make(map[string]map[string]bool),
		pendingWrites: make(map[string]*time.Timer),
		events:        make(chan PathEvent, 64),
		errs:          make(chan error, 8),
		done:          make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Events returns the channel of translated filesystem events. Equivalent to
// spec.md's suspendable next_events(); the suspension point is the channel
// receive.
func (w *Watcher) Events() <-chan PathEvent { return w.events }

// Errors returns the channel of non-fatal watch errors (spec.md §7
// WatchSetup).
func (w *Watcher) Errors() <-chan error { return w.errs }

// Close tears down every watch and stops the translation loop.
func (w *Watcher) Close() error {
	close(w.done)
	w.mu.Lock()
	for _, t := range w.pendingWrites {
		t.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

// Add begins watching path. If path does not currently exist, Add falls
// back to the nearest existing ancestor and escalates to a direct watch
// once a matching Create event arrives, per spec.md §4.2.
func (w *Watcher) Add(path string, isDir bool) error {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err == nil {
		return w.addDirect(path, isDir)
	}
	ancestor, err := nearestExistingAncestor(path)
	if err != nil {
		return fmt.Errorf("no existing ancestor for %s: %w", path, err)
	}
	return w.addAncestorFallback(ancestor, path, isDir)
}

func (w *Watcher) addDirect(path string, isDir bool) error {
	if err := w.fsw.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	w.mu.Lock()
	w.targets[path] = isDir
	w.mu.Unlock()

	if isDir {
		if err := w.addExistingSubdirs(path); err != nil {
			slog.Warn("partial recursive watch", "path", path, "error", err)
		}
	}
	return nil
}

// addExistingSubdirs watches every directory already nested under dir, for
// the initial recursive subscription of a directory entry.
func (w *Watcher) addExistingSubdirs(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		child := filepath.Join(dir, e.Name())
		if err := w.addDirect(child, true); err != nil {
			slog.Warn("watch subdirectory", "path", child, "error", err)
		}
	}
	return nil
}

func (w *Watcher) addAncestorFallback(ancestor, target string, isDir bool) error {
	if err := w.fsw.Add(ancestor); err != nil {
		return fmt.Errorf("watch ancestor %s: %w", ancestor, err)
	}
	w.mu.Lock()
	if w.pending[ancestor] == nil {
		w.pending[ancestor] = make(map[string]bool)
	}
	w.pending[ancestor][target] = isDir
	w.mu.Unlock()
	return nil
}

func nearestExistingAncestor(path string) (string, error) {
	dir := filepath.Dir(path)
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no existing ancestor above %s", path)
		}
		dir = parent
	}
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.translate(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
				slog.Warn("dropping watch error, receiver not draining", "error", err)
			}
		}
	}
}

// translate converts one fsnotify.Event into zero or more PathEvents,
// performs ancestor-escalation and recursive-subdirectory-watch bookkeeping
// synchronously (before the next raw event is read), and emits the result.
func (w *Watcher) translate(ev fsnotify.Event) {
	name := filepath.Clean(ev.Name)

	switch {
	case ev.Has(fsnotify.Create):
		isDir := w.isDirNow(name)
		w.emit(PathEvent{Kind: Create, Path: name, IsDir: isDir})
		if isDir {
			// Recursive watching: synchronous with the Create event, so no
			// nested create inside it can be missed.
			if err := w.addDirect(name, true); err != nil {
				slog.Warn("watch new subdirectory", "path", name, "error", err)
			}
		}
		w.tryEscalate(name)
		w.tryPairMoveIn(name)

	case ev.Has(fsnotify.Write):
		w.debounceWrite(name)

	case ev.Has(fsnotify.Rename):
		// fsnotify reports a rename as this single event on the *old* path;
		// the corresponding new-path Create event (if the destination
		// directory is watched) arrives separately.
		cookie := w.nextCookieValue()
		w.mu.Lock()
		w.lastMove = &moveOutRecord{path: name, cookie: cookie, at: time.Now()}
		w.mu.Unlock()
		w.emit(PathEvent{Kind: MovedOut, Path: name, Cookie: cookie})
		w.retireOrFallback(name)

	case ev.Has(fsnotify.Remove):
		w.mu.Lock()
		_, isTarget := w.targets[name]
		w.mu.Unlock()
		if isTarget {
			w.emit(PathEvent{Kind: SelfDelete, Path: name})
			w.retireOrFallback(name)
		} else {
			w.emit(PathEvent{Kind: Delete, Path: name})
		}
	}
}

// tryPairMoveIn checks whether a just-created path is the MovedIn half of a
// recent MovedOut, approximating inotify's cookie pairing.
func (w *Watcher) tryPairMoveIn(name string) {
	w.mu.Lock()
	last := w.lastMove
	if last != nil && time.Since(last.at) <= moveWindow {
		w.lastMove = nil
	} else {
		last = nil
	}
	w.mu.Unlock()
	if last == nil {
		return
	}
	w.emit(PathEvent{Kind: MovedIn, Path: name, Cookie: last.cookie})
}

// debounceWrite restarts path's pending-Write timer, approximating
// IN_CLOSE_WRITE with a quiet-period timer since fsnotify only exposes
// IN_MODIFY: a fresh write resets the clock, and the Write PathEvent is
// only emitted once no further write lands within writeDebounce, per the
// package-level writeDebounce doc comment.
func (w *Watcher) debounceWrite(path string) {
	w.mu.Lock()
	if t, ok := w.pendingWrites[path]; ok {
		t.Stop()
	}
	w.pendingWrites[path] = time.AfterFunc(writeDebounce, func() {
		w.mu.Lock()
		delete(w.pendingWrites, path)
		w.mu.Unlock()
		w.emit(PathEvent{Kind: Write, Path: path})
	})
	w.mu.Unlock()
}

func (w *Watcher) nextCookieValue() uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextCookie++
	return w.nextCookie
}

// tryEscalate promotes a pending ancestor-fallback watch to a direct watch
// once the target path (or an intermediate ancestor of it) has appeared.
func (w *Watcher) tryEscalate(createdPath string) {
	w.mu.Lock()
	var toEscalate []struct {
		target string
		isDir  bool
	}
	for ancestor, targets := range w.pending {
		if ancestor != createdPath && !strings.HasPrefix(createdPath+string(filepath.Separator), ancestor+string(filepath.Separator)) {
			continue
		}
		for target, isDir := range targets {
			if target == createdPath || strings.HasPrefix(target, createdPath+string(filepath.Separator)) {
				toEscalate = append(toEscalate, struct {
					target string
					isDir  bool
				}{target, isDir})
				delete(targets, target)
			}
		}
		if len(targets) == 0 {
			delete(w.pending, ancestor)
		}
	}
	w.mu.Unlock()

	for _, t := range toEscalate {
		if err := w.Add(t.target, t.isDir); err != nil {
			slog.Warn("escalate ancestor watch", "target", t.target, "error", err)
		}
	}
}

// retireOrFallback drops the direct watch bookkeeping for path and, since
// the path no longer exists, re-subscribes via ancestor fallback so the
// engine keeps learning about it (e.g. it reappears later). Callers at the
// engine layer decide whether to keep tracking or retire the entry.
func (w *Watcher) retireOrFallback(path string) {
	w.mu.Lock()
	isDir, tracked := w.targets[path]
	delete(w.targets, path)
	w.mu.Unlock()

	_ = w.fsw.Remove(path)
	if !tracked {
		return
	}
	if err := w.Add(path, isDir); err != nil {
		slog.Warn("re-subscribe after delete", "path", path, "error", err)
	}
}

func (w *Watcher) emit(pe PathEvent) {
	select {
	case w.events <- pe:
	case <-w.done:
	}
}

func (w *Watcher) isDirNow(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
