package notifyqueue

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openbmc-project/bmc-data-sync/internal/servicebus"
)

// debounce absorbs the write-then-rename double-notify a watched directory
// produces for one logical spool file landing.
const debounce = 200 * time.Millisecond

// Consumer watches a local drop directory for spooled Requests and drives
// the service bus to Restart/Reload the named services, per spec.md §4.5.
type Consumer struct {
	Dir  string
	Bus  servicebus.Bus
}

// NewConsumer creates a Consumer over dir, using bus to carry out
// Restart/Reload calls.
func NewConsumer(dir string, bus servicebus.Bus) *Consumer {
	return &Consumer{Dir: dir, Bus: bus}
}

// Run watches c.Dir until ctx is cancelled, processing both any files
// already present at startup (crash recovery) and newly-created ones.
func (c *Consumer) Run(ctx context.Context) error {
	if err := EnsureDir(c.Dir); err != nil {
		return err
	}

	c.drainExisting(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(c.Dir); err != nil {
		return err
	}

	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, t := range pending {
				t.Stop()
			}
			mu.Unlock()
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !isSpoolFile(ev.Name) {
				continue
			}
			path := ev.Name
			mu.Lock()
			if t, exists := pending[path]; exists {
				t.Stop()
			}
			pending[path] = time.AfterFunc(debounce, func() {
				c.processOne(ctx, path)
				mu.Lock()
				delete(pending, path)
				mu.Unlock()
			})
			mu.Unlock()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Error("notify queue watch error", "error", err)
		}
	}
}

func (c *Consumer) drainExisting(ctx context.Context) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !isSpoolFile(e.Name()) {
			continue
		}
		c.processOne(ctx, filepath.Join(c.Dir, e.Name()))
	}
}

// processOne is one producer-event-to-consumer-task unit: parse, act,
// delete (even on partial failure), per spec.md §4.5.
func (c *Consumer) processOne(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Already consumed by a previous debounce firing, or removed
		// externally — nothing to do.
		return
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		slog.Error("invalid notify spool file", "path", path, "error", err)
		_ = os.Remove(path)
		return
	}

	switch req.NotifyInfo.Mode {
	case "Systemd":
		for _, svc := range req.NotifyInfo.NotifyServices {
			var callErr error
			if req.NotifyInfo.Method == "Reload" {
				callErr = c.Bus.ReloadUnit(ctx, svc)
			} else {
				callErr = c.Bus.RestartUnit(ctx, svc)
			}
			if callErr != nil {
				slog.Error("service bus call failed", "service", svc, "method", req.NotifyInfo.Method, "error", callErr)
			}
		}
	case "DBus":
		slog.Warn("DBus signal notification is reserved, no-op", "path", req.ModifiedDataPath)
	default:
		slog.Warn("unknown notify mode", "mode", req.NotifyInfo.Mode, "path", path)
	}

	_ = os.Remove(path)
}

func isSpoolFile(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, "notifyReq_") && strings.HasSuffix(base, ".json")
}
