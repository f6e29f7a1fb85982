package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openbmc-project/bmc-data-sync/internal/daemonconfig"
	"github.com/openbmc-project/bmc-data-sync/internal/role"
)

func newFullSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "full-sync",
		Short: "Request a full synchronization pass",
		Long:  "full-sync sets FullSyncStatus to InProgress via the shared control surface file; the running daemon picks it up on its next poll and runs every role-eligible entry.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return requestFullSync(configFile)
		},
	}
}

func requestFullSync(path string) error {
	cfg, err := daemonconfig.Load(path)
	if err != nil {
		return fmt.Errorf("load daemon config: %w", err)
	}
	ctrl := openControl(cfg, role.NewFileProvider(cfg.RoleSidecar))
	if err := ctrl.StartFullSync(); err != nil {
		return fmt.Errorf("start full sync: %w", err)
	}
	fmt.Println("full sync requested")
	return nil
}
