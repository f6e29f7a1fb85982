package pathwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_WriteEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Add(path, false); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}

	ev := waitFor(t, w, Write)
	if ev.Path != path {
		t.Errorf("expected path %s, got %s", path, ev.Path)
	}
}

func TestWatcher_WriteBurstCoalescesToOneEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file")
	if err := os.WriteFile(path, []byte("v0"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Add(path, false); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("burst"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, w, Write)

	select {
	case ev := <-w.Events():
		t.Fatalf("expected write burst to coalesce into one event, got a second %v for %s", ev.Kind, ev.Path)
	case <-time.After(writeDebounce + 200*time.Millisecond):
	}
}

func TestWatcher_AncestorFallbackThenEscalate(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "sub", "file")

	w, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Add(target, false); err != nil {
		t.Fatal(err)
	}

	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, w, Create)

	if err := os.WriteFile(target, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	// After escalation, a write to target itself should be observed.
	ev := waitFor(t, w, Write)
	if ev.Path != target {
		t.Errorf("expected escalated watch on %s, got event for %s", target, ev.Path)
	}
}

func TestWatcher_SelfDelete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Add(path, false); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	ev := waitFor(t, w, SelfDelete)
	if ev.Path != path {
		t.Errorf("expected self-delete on %s, got %s", path, ev.Path)
	}
}

func waitFor(t *testing.T, w *Watcher, kind Kind) PathEvent {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			if ev.Kind == kind {
				return ev
			}
		case err := <-w.Errors():
			t.Fatalf("watcher error: %v", err)
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %v", kind)
		}
	}
}
