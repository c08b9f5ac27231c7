package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// NewIngestCommand returns the "ingest" command, which validates and
// persists a single event read from flags.
func NewIngestCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a single conversational event",
	}

	cmd.Flags().String("session-id", "", "session identifier (required)")
	cmd.Flags().String("event-type", string(types.EventUserMessage), "event type")
	cmd.Flags().String("role", string(types.RoleUser), "role: User, Assistant, System, or Tool")
	cmd.Flags().String("text", "", "event text")
	cmd.Flags().String("agent", "", "agent name")
	cmd.Flags().Int64("timestamp-ms", 0, "event timestamp in epoch milliseconds (default: now)")
	cmd.Flags().StringP("output", "o", "table", "output format: table or json")
	cmd.MarkFlagRequired("session-id")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		homeFlag, _ := cmd.Flags().GetString("home")
		a, err := newApp(homeFlag, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		sessionID, _ := cmd.Flags().GetString("session-id")
		eventType, _ := cmd.Flags().GetString("event-type")
		role, _ := cmd.Flags().GetString("role")
		text, _ := cmd.Flags().GetString("text")
		agent, _ := cmd.Flags().GetString("agent")
		tsMs, _ := cmd.Flags().GetInt64("timestamp-ms")

		ts := time.Now()
		if tsMs != 0 {
			ts = time.UnixMilli(tsMs)
		}
		e := types.Event{
			EventID:   ulid.MustNew(ulid.Timestamp(ts), nil).String(),
			SessionID: sessionID,
			Timestamp: ts,
			EventType: types.EventType(eventType),
			Role:      types.Role(role),
			Text:      text,
			Agent:     agent,
		}

		ctx := context.Background()
		res, err := a.facade.IngestEvent(ctx, e)
		if err != nil {
			return err
		}

		p := newPrinter(outputFormat(cmd))
		if p.format == "json" {
			return p.json(res)
		}
		fmt.Printf("event_id: %s\ncreated:  %t\n", res.EventID, res.Created)
		return nil
	}

	return cmd
}
