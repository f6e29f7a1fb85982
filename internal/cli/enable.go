package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openbmc-project/bmc-data-sync/internal/daemonconfig"
	"github.com/openbmc-project/bmc-data-sync/internal/role"
)

func newEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable",
		Short: "Clear the Disable property, resuming Immediate and Periodic sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			return setDisable(configFile, false)
		},
	}
}

func setDisable(path string, v bool) error {
	cfg, err := daemonconfig.Load(path)
	if err != nil {
		return fmt.Errorf("load daemon config: %w", err)
	}
	ctrl := openControl(cfg, role.NewFileProvider(cfg.RoleSidecar))
	if err := ctrl.SetDisable(v); err != nil {
		return fmt.Errorf("set disable: %w", err)
	}
	fmt.Printf("Disable: %v\n", v)
	return nil
}
