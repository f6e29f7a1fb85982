package cli

import "github.com/spf13/cobra"

func newDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Set the Disable property, stalling Immediate and Periodic sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			return setDisable(configFile, true)
		},
	}
}
