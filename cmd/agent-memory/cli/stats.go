package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewStatsCommand returns the "stats" command, reporting process
// resource usage and the total event count.
func NewStatsCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report process resource usage and event count",
		RunE: func(cmd *cobra.Command, args []string) error {
			homeFlag, _ := cmd.Flags().GetString("home")
			a, err := newApp(homeFlag, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.facade.GetSystemStats(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("cpu_percent:      %.1f\n", stats.CPUPercent)
			fmt.Printf("memory_in_use_mb: %.1f\n", stats.MemoryInUseMB)
			fmt.Printf("event_count:      %d\n", stats.EventCount)
			return nil
		},
	}
	return cmd
}
