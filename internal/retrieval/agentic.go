package retrieval

import (
	"context"
	"strings"
	"time"

	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
)

func nowMs() int64 { return time.Now().UnixMilli() }

// AgenticLayer is the universal fallback: a bounded brute-force scan of
// raw events by substring match, with no index dependency at all. It is
// always healthy, matching the "agentic.healthy=true" guarantee callers
// can rely on even when every index is missing or corrupt.
type AgenticLayer struct {
	store     *storage.Storage
	windowMs  int64
	scanLimit int
}

// NewAgenticLayer builds the fallback layer. windowMs bounds how far
// back from now the scan looks; scanLimit bounds how many raw events it
// reads before giving up, so a pathological query can't force an
// unbounded full-table scan.
func NewAgenticLayer(store *storage.Storage, windowMs int64, scanLimit int) *AgenticLayer {
	return &AgenticLayer{store: store, windowMs: windowMs, scanLimit: scanLimit}
}

func (l *AgenticLayer) Name() LayerName { return LayerAgentic }

func (l *AgenticLayer) Healthy(ctx context.Context) bool { return true }

func (l *AgenticLayer) Execute(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	now := nowMs()
	events, err := l.store.GetEventsInRange(now-l.windowMs, now)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var results []SearchResult
	scanned := 0
	for _, e := range events {
		if scanned >= l.scanLimit || len(results) >= limit {
			break
		}
		scanned++
		if needle == "" || strings.Contains(strings.ToLower(e.Text), needle) {
			results = append(results, SearchResult{
				DocType: "event",
				DocID:   e.EventID,
				Text:    e.Text,
				Score:   1.0,
			})
		}
	}
	return results, nil
}
