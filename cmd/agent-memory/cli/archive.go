package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/SpillwaveSolutions/agent-memory/internal/archive"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// NewExportCommand returns the "export" command, archiving raw events
// in a time range to a zstd-compressed file.
func NewExportCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <path>",
		Short: "Export events in a time range to a compressed archive",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().Int64("from-ms", 0, "range start, epoch milliseconds (default: all time)")
	cmd.Flags().Int64("to-ms", 0, "range end, epoch milliseconds (default: now)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		homeFlag, _ := cmd.Flags().GetString("home")
		a, err := newApp(homeFlag, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		fromMs, _ := cmd.Flags().GetInt64("from-ms")
		toMs, _ := cmd.Flags().GetInt64("to-ms")
		if toMs == 0 {
			toMs = time.Now().UnixMilli()
		}

		n, err := archive.Export(a.store, args[0], fromMs, toMs)
		if err != nil {
			return err
		}
		fmt.Printf("exported %d events to %s\n", n, args[0])
		return nil
	}
	return cmd
}

// NewImportCommand returns the "import" command, re-ingesting events
// from an archive written by export.
func NewImportCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Import events from a compressed archive",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		homeFlag, _ := cmd.Flags().GetString("home")
		a, err := newApp(homeFlag, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		n, err := archive.Import(args[0], func(e types.Event) error {
			_, _, err := a.ingester.Ingest(ctx, e)
			return err
		})
		if err != nil {
			return err
		}
		fmt.Printf("imported %d events from %s\n", n, args[0])
		return nil
	}
	return cmd
}
