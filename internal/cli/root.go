// Package cli wires cobra subcommands for bmc-data-syncd, grounded on the
// teacher's internal/cli package: a NewRootCmd entry point with persistent
// --verbose/--config flags setting up log/slog, and one file per
// subcommand.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version and Commit are set via LDFLAGS at build time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	verbose    bool
	configFile string
)

// NewRootCmd builds the bmc-data-syncd root command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bmc-data-syncd",
		Short: "Keeps OpenBMC Active/Passive controller filesystems in sync",
		Long:  "bmc-data-syncd watches a catalogue of files and directories and keeps them synchronized between the Active and Passive BMC of a redundant pair.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&configFile, "config", "/etc/bmc-data-sync/daemon.yml", "path to the daemon's own YAML config file")

	root.AddCommand(newRunCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newFullSyncCmd())
	root.AddCommand(newEnableCmd())
	root.AddCommand(newDisableCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newVersionCmd())

	return root
}
