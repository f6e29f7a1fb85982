package daemonconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.yml")
	doc := "catalogue_dir: /tmp/catalogue\nlog_level: debug\nfull_sync_workers: 8\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CatalogueDir != "/tmp/catalogue" {
		t.Errorf("expected overridden catalogue dir, got %s", cfg.CatalogueDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug log level, got %s", cfg.LogLevel)
	}
	if cfg.FullSyncWorkers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.FullSyncWorkers)
	}
	if cfg.DropDir != Default().DropDir {
		t.Errorf("expected default drop dir preserved, got %s", cfg.DropDir)
	}
}
