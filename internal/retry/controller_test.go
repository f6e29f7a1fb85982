package retry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openbmc-project/bmc-data-sync/internal/catalog"
)

func entry(t *testing.T, path string, attempts uint8) *catalog.SyncEntry {
	t.Helper()
	e := &catalog.SyncEntry{
		Path:      path,
		DestPath:  path + ".dst",
		Direction: catalog.Active2Passive,
		SyncType:  catalog.Immediate,
		RetryPolicy: catalog.Retry{
			Attempts: attempts,
			Interval: time.Millisecond,
		},
	}
	return e
}

func TestController_SucceedsImmediately(t *testing.T) {
	var calls int
	c := &Controller{
		Transferer: TransferFunc(func(ctx context.Context, cmd string) (int, string) {
			calls++
			return 0, ""
		}),
		Command: rsyncCommand,
		Sleep:   func(time.Duration) {},
	}
	if ok := c.Run(context.Background(), entry(t, "/tmp/src", 3), 0); !ok {
		t.Fatal("expected success")
	}
	if calls != 1 {
		t.Errorf("expected exactly one invocation, got %d", calls)
	}
}

func TestController_RetriesUpToBudget(t *testing.T) {
	var calls int
	c := &Controller{
		Transferer: TransferFunc(func(ctx context.Context, cmd string) (int, string) {
			calls++
			return 1, "boom"
		}),
		Command: rsyncCommand,
		Sleep:   func(time.Duration) {},
	}
	if ok := c.Run(context.Background(), entry(t, "/tmp/src", 3), 0); ok {
		t.Fatal("expected eventual failure")
	}
	if calls != 3 {
		t.Errorf("expected attempts=3 invocations, got %d", calls)
	}
}

func TestController_VanishedSourceFallsBackToAncestor(t *testing.T) {
	dir := t.TempDir()
	existingParent := filepath.Join(dir, "parent")
	if err := os.Mkdir(existingParent, 0o755); err != nil {
		t.Fatal(err)
	}
	missingChild := filepath.Join(existingParent, "sub", "file")

	var calls []string
	c := &Controller{
		Transferer: TransferFunc(func(ctx context.Context, cmd string) (int, string) {
			calls = append(calls, cmd)
			if len(calls) == 1 {
				return 24, "rsync: link_stat \"" + missingChild + "\" failed: No such file or directory (2)"
			}
			return 0, ""
		}),
		Command: rsyncCommand,
		Sleep:   func(time.Duration) {},
	}

	e := entry(t, missingChild, 3)
	if ok := c.Run(context.Background(), e, 0); !ok {
		t.Fatal("expected vanished-source fallback to succeed")
	}
	if len(calls) != 2 {
		t.Fatalf("expected exactly one fallback invocation, got %d calls: %v", len(calls), calls)
	}
}

func TestController_VanishedSourceWithNoFallbackStillRespectsBudget(t *testing.T) {
	var calls int
	c := &Controller{
		Transferer: TransferFunc(func(ctx context.Context, cmd string) (int, string) {
			calls++
			return 24, "vanished /nonexistent-root-path-xyz"
		}),
		Command: rsyncCommand,
		Sleep:   func(time.Duration) {},
	}
	e := entry(t, "/nonexistent-root-path-xyz", 2)
	if ok := c.Run(context.Background(), e, 0); ok {
		t.Fatal("expected eventual failure when no ancestor fallback helps")
	}
	if calls == 0 {
		t.Fatal("expected at least one invocation")
	}
}

func TestRsyncCommand_IncludesFilters(t *testing.T) {
	cmd := rsyncCommand("/a", "/b", []string{"--filter='-/ /a/x'"})
	want := "rsync -a --filter='-/ /a/x' '/a' '/b'"
	if cmd != want {
		t.Errorf("got %q, want %q", cmd, want)
	}
}
