package history

import (
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAndQueryAttempts(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	now := time.Unix(1700000000, 0)
	if err := s.RecordAttempt(Attempt{
		EntryPath: "/etc/foo", Operation: "Copy", Path: "/etc/foo/bar",
		Succeeded: true, ExitCode: 0, Attempt: 0, StartedAt: now, Duration: 2 * time.Second,
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordAttempt(Attempt{
		EntryPath: "/etc/foo", Operation: "Copy", Path: "/etc/foo/baz",
		Succeeded: false, ExitCode: 23, Output: "rsync error", Attempt: 1, StartedAt: now.Add(time.Minute),
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.RecentAttempts("/etc/foo", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(got))
	}
	if got[0].Path != "/etc/foo/baz" {
		t.Errorf("expected most recent first, got %s", got[0].Path)
	}
	if got[0].Succeeded {
		t.Error("expected failed attempt first")
	}
	if got[1].Duration != 2*time.Second {
		t.Errorf("expected duration round-tripped, got %v", got[1].Duration)
	}
}

func TestRecordAndQueryFFDC(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	now := time.Unix(1700000000, 0)
	if err := s.RecordFFDC(FFDCReport{
		Kind: "TransferNonZero", EntryPath: "/etc/foo", Message: "exit 23", FFDCPath: "/var/lib/bmc-data-sync/ffdc/1.json", RecordedAt: now,
	}); err != nil {
		t.Fatal(err)
	}

	got, err := s.RecentFFDC(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 report, got %d", len(got))
	}
	if got[0].Kind != "TransferNonZero" {
		t.Errorf("unexpected kind: %s", got[0].Kind)
	}
}

func TestRecentAttempts_AllEntries(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	now := time.Unix(1700000000, 0)
	for _, p := range []string{"/a", "/b"} {
		if err := s.RecordAttempt(Attempt{EntryPath: p, Operation: "Copy", Path: p, Succeeded: true, StartedAt: now}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.RecentAttempts("", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 attempts across entries, got %d", len(got))
	}
}
