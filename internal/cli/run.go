package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openbmc-project/bmc-data-sync/internal/daemonconfig"
	"github.com/openbmc-project/bmc-data-sync/internal/notifyqueue"
	"github.com/openbmc-project/bmc-data-sync/internal/servicebus"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the sync daemon in the foreground",
		Long:  "run loads the catalogue and daemon config, then runs the sync engine until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(configFile)
		},
	}
}

func runDaemon(path string) error {
	cfg, err := daemonconfig.Load(path)
	if err != nil {
		return fmt.Errorf("load daemon config: %w", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return fmt.Errorf("prepare daemon directories: %w", err)
	}

	eng, _, hist, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	if hist != nil {
		defer hist.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := notifyqueue.NewConsumer(cfg.DropDir, servicebus.LoggingStub{})
	go func() {
		if err := consumer.Run(ctx); err != nil {
			slog.Error("notify queue consumer stopped", "error", err)
		}
	}()

	return eng.Run(ctx)
}
