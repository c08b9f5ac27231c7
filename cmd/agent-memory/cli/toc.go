package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewTocCommand returns the "toc" command tree for browsing the table
// of contents.
func NewTocCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toc",
		Short: "Browse the table of contents",
	}
	cmd.PersistentFlags().StringP("output", "o", "table", "output format: table or json")

	cmd.AddCommand(newTocRootCmd(logger), newTocBrowseCmd(logger))
	return cmd
}

func newTocRootCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "root",
		Short: "List the top-level (Year) nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			homeFlag, _ := cmd.Flags().GetString("home")
			a, err := newApp(homeFlag, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			nodes, err := a.facade.GetTocRoot(context.Background())
			if err != nil {
				return err
			}
			printTocNodes(cmd, nodes)
			return nil
		},
	}
}

func newTocBrowseCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse <node-id>",
		Short: "List a node's children",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().Int("limit", 50, "maximum children to return")
	cmd.Flags().String("continuation", "", "continuation token from a previous call")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		homeFlag, _ := cmd.Flags().GetString("home")
		a, err := newApp(homeFlag, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		continuation, _ := cmd.Flags().GetString("continuation")

		children, next, err := a.facade.BrowseToc(context.Background(), args[0], limit, continuation)
		if err != nil {
			return err
		}
		printTocNodes(cmd, children)
		if next != "" {
			p := newPrinter(outputFormat(cmd))
			p.kv([][2]string{{"continuation", next}})
		}
		return nil
	}
	return cmd
}
