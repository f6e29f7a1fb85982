package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openbmc-project/bmc-data-sync/internal/daemonconfig"
	"github.com/openbmc-project/bmc-data-sync/internal/engine"
	"github.com/openbmc-project/bmc-data-sync/internal/role"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the control surface and per-entry sync state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(configFile)
		},
	}
}

func showStatus(path string) error {
	cfg, err := daemonconfig.Load(path)
	if err != nil {
		return fmt.Errorf("load daemon config: %w", err)
	}
	ctrl := openControl(cfg, role.NewFileProvider(cfg.RoleSidecar))

	fmt.Printf("Disable:          %v\n", ctrl.Disable())
	fmt.Printf("FullSyncStatus:   %s\n", ctrl.FullSyncStatus())
	fmt.Printf("SyncEventsHealth: %s\n\n", ctrl.SyncEventsHealth())

	statuses, err := engine.ReadStatuses(statusPath(cfg))
	if err != nil {
		return fmt.Errorf("read entry statuses: %w", err)
	}
	if len(statuses) == 0 {
		fmt.Println("(no entry status snapshot available; is the daemon running?)")
		return nil
	}
	for _, es := range statuses {
		fmt.Printf("  %-10s %s\n", es.State, es.Path)
	}
	return nil
}
