package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidCatalogue(t *testing.T) {
	dir := t.TempDir()
	doc := `{
		"Files": [
			{"Path": "/tmp/T/srcA", "DestinationPath": "/tmp/T/dstA", "SyncDirection": "Active2Passive"}
		],
		"Directories": [
			{"Path": "/tmp/T/srcDir", "SyncType": "Periodic", "Periodicity": "PT1S"}
		]
	}`
	writeFile(t, dir, "10-entries.json", doc)

	entries, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	var file, directory *SyncEntry
	for _, e := range entries {
		if e.IsDir {
			directory = e
		} else {
			file = e
		}
	}
	if file == nil || file.DestPath != "/tmp/T/dstA" {
		t.Fatalf("file entry not parsed correctly: %+v", file)
	}
	if directory == nil || directory.SyncType != Periodic || directory.Periodicity != time.Second {
		t.Fatalf("directory entry not parsed correctly: %+v", directory)
	}
}

func TestLoad_SkipsUnparseableFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.json", `{not json`)
	writeFile(t, dir, "good.json", `{"Files":[{"Path":"/tmp/T/src"}]}`)

	entries, err := Load(dir)
	if err != nil {
		t.Fatalf("Load should tolerate a bad file, got error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected the good file's entry to survive, got %d entries", len(entries))
	}
}

func TestLoad_SkipsDuplicatePath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"Files":[{"Path":"/tmp/T/src"}]}`)
	writeFile(t, dir, "b.json", `{"Files":[{"Path":"/tmp/T/src"}]}`)

	entries, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected duplicate path to be deduplicated, got %d entries", len(entries))
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "defaults.json", `{"Files":[{"Path":"/tmp/T/src"}]}`)

	entries, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := entries[0]
	if e.Direction != Active2Passive {
		t.Errorf("expected default direction Active2Passive, got %s", e.Direction)
	}
	if e.SyncType != Immediate {
		t.Errorf("expected default sync type Immediate, got %s", e.SyncType)
	}
	if e.RetryPolicy != DefaultRetry {
		t.Errorf("expected default retry policy, got %+v", e.RetryPolicy)
	}
	if e.DestPath != e.Path {
		t.Errorf("expected DestPath to default to Path, got %s vs %s", e.DestPath, e.Path)
	}
}

func TestLoad_IncludeExcludeConflictSkipsEntry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "conflict.json", `{"Files":[
		{"Path": "/tmp/T/ok"},
		{"Path": "/tmp/T/bad", "IncludeList": ["/tmp/T/bad/x"], "ExcludeList": ["/tmp/T/bad/x"]}
	]}`)

	entries, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected the conflicting entry to be dropped, got %d entries", len(entries))
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("expected an error for a missing catalogue directory")
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
