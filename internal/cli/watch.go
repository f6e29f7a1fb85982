package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/openbmc-project/bmc-data-sync/internal/daemonconfig"
	"github.com/openbmc-project/bmc-data-sync/internal/engine"
	"github.com/openbmc-project/bmc-data-sync/internal/role"
	"github.com/openbmc-project/bmc-data-sync/internal/tui"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live dashboard of every catalogue entry's sync state",
		Long:  "watch polls the running daemon's shared status snapshot and control surface file and renders a live-updating table, grounded on the teacher's bubbletea live-reporter TUI.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(configFile)
		},
	}
}

func runWatch(path string) error {
	cfg, err := daemonconfig.Load(path)
	if err != nil {
		return fmt.Errorf("load daemon config: %w", err)
	}
	ctrl := openControl(cfg, role.NewFileProvider(cfg.RoleSidecar))
	snapPath := statusPath(cfg)

	getSnapshot := func() tui.Snapshot {
		statuses, _ := engine.ReadStatuses(snapPath)
		_ = ctrl.Refresh()
		entries := make([]tui.EntryStatus, 0, len(statuses))
		for _, es := range statuses {
			entries = append(entries, tui.EntryStatus{Path: es.Path, State: es.State})
		}
		return tui.Snapshot{
			Entries:        entries,
			Health:         ctrl.SyncEventsHealth(),
			FullSyncStatus: ctrl.FullSyncStatus(),
			Disabled:       ctrl.Disable(),
		}
	}

	p := tea.NewProgram(tui.NewModel(getSnapshot), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
