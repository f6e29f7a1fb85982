package cli

import (
	"fmt"
	"path/filepath"

	"github.com/openbmc-project/bmc-data-sync/internal/catalog"
	"github.com/openbmc-project/bmc-data-sync/internal/control"
	"github.com/openbmc-project/bmc-data-sync/internal/daemonconfig"
	"github.com/openbmc-project/bmc-data-sync/internal/engine"
	"github.com/openbmc-project/bmc-data-sync/internal/history"
	"github.com/openbmc-project/bmc-data-sync/internal/notifyqueue"
	"github.com/openbmc-project/bmc-data-sync/internal/pathwatch"
	"github.com/openbmc-project/bmc-data-sync/internal/retry"
	"github.com/openbmc-project/bmc-data-sync/internal/role"
	"github.com/openbmc-project/bmc-data-sync/internal/syncerr"
	"github.com/openbmc-project/bmc-data-sync/internal/transfer"
)

// statusPath derives the path the engine mirrors its live per-entry status
// snapshot to, alongside the control surface's own persistence file.
func statusPath(cfg daemonconfig.Config) string {
	return filepath.Join(filepath.Dir(cfg.StatePath), "entries.json")
}

// openControl loads the shared control surface file that both the `run`
// daemon and every other one-shot subcommand operate against. PeerReachable
// is wired to the role provider's SiblingReachable field — the out-of-scope
// redundancy stack's own "peer is reachable" signal (spec.md §1), rather
// than a standalone TCP probe with no configured host to dial — so
// StartFullSync's SiblingBMCNotAvailable gate (spec.md §4.7) and Refresh's
// externally-triggered full-sync path both consult the same live source.
func openControl(cfg daemonconfig.Config, roleProvider role.Provider) *control.Surface {
	s := control.Load(cfg.StatePath)
	s.PeerReachable = func() bool {
		st, err := roleProvider.Current()
		if err != nil {
			return false
		}
		return st.SiblingReachable
	}
	return s
}

// buildEngine wires every collaborator package into a runnable Engine,
// following the dependency order the packages themselves impose: catalog
// entries and the path watcher feed the retry controller, which together
// with the control surface, role provider and error reporter are handed to
// engine.New.
func buildEngine(cfg daemonconfig.Config) (*engine.Engine, *control.Surface, *history.Store, error) {
	entries, err := catalog.Load(cfg.CatalogueDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load catalogue: %w", err)
	}

	watcher, err := pathwatch.New()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create path watcher: %w", err)
	}

	retryCtl := retry.New(transfer.Runner{})

	roleProvider := role.NewFileProvider(cfg.RoleSidecar)
	ctrl := openControl(cfg, roleProvider)

	reporter := syncerr.NewReporter(cfg.FFDCDir)

	var hist *history.Store
	if cfg.HistoryDBPath != "" {
		hist, err = history.Open(cfg.HistoryDBPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open history db: %w", err)
		}
	}

	if err := notifyqueue.EnsureDir(cfg.DropDir); err != nil {
		return nil, nil, nil, fmt.Errorf("prepare notify drop dir: %w", err)
	}

	eng := engine.New(engine.Config{
		Entries:         entries,
		Watcher:         watcher,
		Retry:           retryCtl,
		Control:         ctrl,
		Role:            roleProvider,
		ErrorReporter:   reporter,
		History:         hist,
		DropDir:         cfg.DropDir,
		FullSyncWorkers: cfg.FullSyncWorkers,
		StatusPath:      statusPath(cfg),
	})
	return eng, ctrl, hist, nil
}
