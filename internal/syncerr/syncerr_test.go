package syncerr

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestKind_Retriable(t *testing.T) {
	cases := map[Kind]bool{
		TransferNonZero: true,
		TransferSpawn:   true,
		ConfigParse:     false,
		WatchSetup:      false,
		VanishedSource:  false,
		NotifySend:      false,
		PeerUnavailable: false,
		PersistWrite:    false,
	}
	for k, want := range cases {
		if got := k.Retriable(); got != want {
			t.Errorf("%s.Retriable() = %v, want %v", k, got, want)
		}
	}
}

func TestReport_WithoutFFDC(t *testing.T) {
	r := NewReporter(filepath.Join(t.TempDir(), "ffdc"))
	rec := r.Report(TransferNonZero, "/etc/foo", errors.New("boom"), nil)
	if rec.Kind != TransferNonZero || rec.Entry != "/etc/foo" || rec.Message != "boom" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.FFDCPath != "" {
		t.Fatalf("expected no FFDC file written, got %s", rec.FFDCPath)
	}
}

func TestReport_WritesFFDCFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ffdc")
	r := NewReporter(dir)
	rec := r.Report(TransferNonZero, "/etc/foo/bar", errors.New("exit 23"), []byte("rsync stderr output"))
	if rec.FFDCPath == "" {
		t.Fatal("expected an FFDC path")
	}
	data, err := os.ReadFile(rec.FFDCPath)
	if err != nil {
		t.Fatalf("read ffdc file: %v", err)
	}
	if string(data) != "rsync stderr output" {
		t.Fatalf("unexpected ffdc contents: %q", data)
	}
}

func TestMarshalFile_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")
	rec := Record{Kind: WatchSetup, Entry: "/etc/foo", Message: "inotify limit reached"}
	if err := MarshalFile(path, rec); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
}

func TestSanitize_StripsNonAlphanumerics(t *testing.T) {
	if got := sanitize("/etc/foo-bar.cfg"); got != "_etc_foo_bar_cfg" {
		t.Errorf("unexpected sanitized form: %s", got)
	}
	if got := sanitize(""); got != "entry" {
		t.Errorf("expected fallback for empty input, got %s", got)
	}
}
