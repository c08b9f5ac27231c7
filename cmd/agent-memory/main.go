// Command agent-memory runs and administers the conversational memory
// store: ingest events, browse the table of contents, route retrieval
// queries, and inspect the background scheduler.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/SpillwaveSolutions/agent-memory/cmd/agent-memory/cli"
	"github.com/SpillwaveSolutions/agent-memory/internal/logging"
)

var version = "dev"

func main() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(logging.NewComponentFilterHandler(handler, slog.LevelInfo))

	rootCmd := &cobra.Command{
		Use:   "agent-memory",
		Short: "Conversational memory store",
	}
	rootCmd.PersistentFlags().String("home", "", "home directory (default: platform config dir)")
	rootCmd.PersistentFlags().String("config", "", "not read: config is always loaded from <home>/config.json")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the memory store service and scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			homeFlag, _ := cmd.Flags().GetString("home")
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()
			return cli.Serve(ctx, logger, homeFlag)
		},
	}

	rootCmd.AddCommand(
		versionCmd,
		serveCmd,
		cli.NewIngestCommand(logger),
		cli.NewTocCommand(logger),
		cli.NewQueryCommand(logger),
		cli.NewSchedulerCommand(logger),
		cli.NewExportCommand(logger),
		cli.NewImportCommand(logger),
		cli.NewStatsCommand(logger),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
