package cli

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
)

// NewSchedulerCommand returns the "scheduler" command tree for
// inspecting and controlling background jobs.
func NewSchedulerCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Inspect and control background jobs",
	}
	cmd.PersistentFlags().StringP("output", "o", "table", "output format: table or json")

	cmd.AddCommand(
		newSchedulerStatusCmd(logger),
		newSchedulerPauseCmd(logger),
		newSchedulerResumeCmd(logger),
	)
	return cmd
}

func newSchedulerStatusCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List every registered job's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			homeFlag, _ := cmd.Flags().GetString("home")
			a, err := newApp(homeFlag, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			statuses, err := a.facade.GetSchedulerStatus(context.Background())
			if err != nil {
				return err
			}

			p := newPrinter(outputFormat(cmd))
			if p.format == "json" {
				return p.json(statuses)
			}
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				rows = append(rows, []string{
					s.Name, s.Cron, string(s.LastResult),
					strconv.FormatInt(s.RunCount, 10), strconv.FormatInt(s.ErrCount, 10),
					boolString(s.IsPaused),
				})
			}
			p.table([]string{"NAME", "CRON", "LAST_RESULT", "RUNS", "ERRORS", "PAUSED"}, rows)
			return nil
		},
	}
}

func newSchedulerPauseCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <job-name>",
		Short: "Pause a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			homeFlag, _ := cmd.Flags().GetString("home")
			a, err := newApp(homeFlag, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.facade.PauseJob(context.Background(), args[0])
		},
	}
}

func newSchedulerResumeCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <job-name>",
		Short: "Resume a paused job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			homeFlag, _ := cmd.Flags().GetString("home")
			a, err := newApp(homeFlag, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.facade.ResumeJob(context.Background(), args[0])
		},
	}
}
