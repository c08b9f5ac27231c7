package cli

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/SpillwaveSolutions/agent-memory/internal/retrieval"
)

// NewQueryCommand returns the "query" command, routing a free-text
// query through the retrieval policy.
func NewQueryCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Route a query through the retrieval policy",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().Int("limit", 20, "maximum results")
	cmd.Flags().Bool("parallel", false, "execute the fallback chain's layers concurrently")
	cmd.Flags().Duration("timeout", 5*time.Second, "overall retrieval timeout")
	cmd.Flags().Bool("explain", false, "print the explainability payload alongside results")
	cmd.Flags().StringP("output", "o", "table", "output format: table or json")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		homeFlag, _ := cmd.Flags().GetString("home")
		a, err := newApp(homeFlag, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		parallel, _ := cmd.Flags().GetBool("parallel")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		explain, _ := cmd.Flags().GetBool("explain")

		mode := retrieval.ModeSequential
		if parallel {
			mode = retrieval.ModeParallel
		}

		result, err := a.facade.RouteQuery(context.Background(), args[0], retrieval.RouteOptions{
			Mode:  mode,
			Limit: limit,
			Stop:  retrieval.StopConditions{OverallTimeout: timeout},
		})
		if err != nil {
			return err
		}

		printable := make([]SearchResultLike, 0, len(result.Results))
		for _, r := range result.Results {
			printable = append(printable, SearchResultLike{DocType: r.DocType, DocID: r.DocID, Text: r.Text, Score: r.Score})
		}
		printSearchResults(cmd, printable)

		if explain {
			p := newPrinter(outputFormat(cmd))
			if p.format == "json" {
				return p.json(result.Explanation)
			}
			p.kv([][2]string{
				{"intent", string(result.Explanation.Intent)},
				{"tier", string(result.Explanation.Tier)},
				{"primary_layer", string(result.Explanation.PrimaryLayer)},
				{"fallback_occurred", boolString(result.Explanation.FallbackOccurred)},
				{"result_count", strconv.Itoa(result.Explanation.ResultCount)},
			})
		}
		return nil
	}

	return cmd
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
