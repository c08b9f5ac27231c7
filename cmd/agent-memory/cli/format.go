package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

func printTocNodes(cmd *cobra.Command, nodes []types.TocNode) {
	p := newPrinter(outputFormat(cmd))
	if p.format == "json" {
		_ = p.json(nodes)
		return
	}
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, []string{
			n.NodeID,
			string(n.Level),
			n.Title,
			n.StartTime.Format("2006-01-02 15:04"),
			strconv.Itoa(len(n.ChildNodeIDs)),
		})
	}
	p.table([]string{"NODE_ID", "LEVEL", "TITLE", "START", "CHILDREN"}, rows)
}

func printSearchResults(cmd *cobra.Command, results []SearchResultLike) {
	p := newPrinter(outputFormat(cmd))
	if p.format == "json" {
		_ = p.json(results)
		return
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.DocType, r.DocID, fmt.Sprintf("%.3f", r.Score), truncate(r.Text, 60)})
	}
	p.table([]string{"TYPE", "DOC_ID", "SCORE", "TEXT"}, rows)
}

// SearchResultLike mirrors retrieval.SearchResult's printable fields
// without importing the retrieval package from this file, so format.go
// stays usable from any command that has its own result shape.
type SearchResultLike struct {
	DocType string
	DocID   string
	Text    string
	Score   float64
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
