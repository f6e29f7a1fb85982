// Package daemonconfig loads the daemon's own YAML runtime configuration —
// distinct from the per-entry JSON catalogue internal/catalog reads. It
// names where the daemon keeps its own state: the catalogue directory, the
// control-surface persistence file, the notification drop directory, the
// FFDC directory, the history database path, and the log level. Modeled on
// internal/config.LoadSettings's tolerant "missing file → zero value"
// loader.
package daemonconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's own runtime configuration.
type Config struct {
	CatalogueDir    string `yaml:"catalogue_dir"`
	StatePath       string `yaml:"state_path"`
	DropDir         string `yaml:"drop_dir"`
	FFDCDir         string `yaml:"ffdc_dir"`
	HistoryDBPath   string `yaml:"history_db_path"`
	RoleSidecar     string `yaml:"role_sidecar"`
	LogLevel        string `yaml:"log_level"`
	FullSyncWorkers int    `yaml:"full_sync_workers"`
}

// Default returns the built-in defaults, matching OpenBMC's conventional
// /var/lib layout for a redundancy-pair daemon.
func Default() Config {
	return Config{
		CatalogueDir:    "/usr/share/bmc-data-sync/config",
		StatePath:       "/var/lib/bmc-data-sync/state.json",
		DropDir:         "/var/lib/bmc-data-sync/notify-drop",
		FFDCDir:         "/var/lib/bmc-data-sync/ffdc",
		HistoryDBPath:   "/var/lib/bmc-data-sync/history.db",
		RoleSidecar:     "/var/lib/bmc-data-sync/role.json",
		LogLevel:        "info",
		FullSyncWorkers: 4,
	}
}

// Load reads path into a Config, starting from Default() and overriding
// whichever fields the YAML document sets. A missing file returns the
// defaults unchanged and a nil error, matching
// internal/config.LoadSettings's tolerance for an absent config file.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read daemon config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse daemon config %s: %w", path, err)
	}
	return cfg, nil
}

// EnsureDirs creates the drop and FFDC directories and the parent
// directories of the state and history files, so a fresh install doesn't
// need to pre-stage /var/lib by hand. The catalogue directory and the role
// sidecar's directory are not created.
func (c Config) EnsureDirs() error {
	for _, p := range []string{c.DropDir, c.FFDCDir} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", p, err)
		}
	}
	for _, p := range []string{c.StatePath, c.HistoryDBPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("create parent of %s: %w", p, err)
		}
	}
	return nil
}
