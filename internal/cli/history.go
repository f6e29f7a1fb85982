package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/openbmc-project/bmc-data-sync/internal/daemonconfig"
	"github.com/openbmc-project/bmc-data-sync/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var entryPath string
	var limit int
	var ffdc bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query recorded transfer attempts and FFDC reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistory(configFile, entryPath, limit, ffdc)
		},
	}
	cmd.Flags().StringVar(&entryPath, "entry", "", "restrict to attempts for this catalogue entry path")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to show")
	cmd.Flags().BoolVar(&ffdc, "ffdc", false, "show FFDC reports instead of transfer attempts")
	return cmd
}

func showHistory(path, entryPath string, limit int, ffdc bool) error {
	cfg, err := daemonconfig.Load(path)
	if err != nil {
		return fmt.Errorf("load daemon config: %w", err)
	}
	store, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		return fmt.Errorf("open history db: %w", err)
	}
	defer store.Close()

	if ffdc {
		reports, err := store.RecentFFDC(limit)
		if err != nil {
			return fmt.Errorf("query ffdc reports: %w", err)
		}
		for _, r := range reports {
			fmt.Printf("%s (%s)  %-16s %-30s %s\n", r.RecordedAt.Format("2006-01-02 15:04:05"), humanize.Time(r.RecordedAt), r.Kind, r.EntryPath, r.Message)
		}
		return nil
	}

	attempts, err := store.RecentAttempts(entryPath, limit)
	if err != nil {
		return fmt.Errorf("query attempts: %w", err)
	}
	for _, a := range attempts {
		status := "ok"
		if !a.Succeeded {
			status = fmt.Sprintf("exit %d", a.ExitCode)
		}
		fmt.Printf("%s (%s)  %-10s %-30s %-8s %s\n", a.StartedAt.Format("2006-01-02 15:04:05"), humanize.Time(a.StartedAt), a.Operation, a.Path, status, a.Duration)
	}
	return nil
}
