package indexing

import (
	"context"
	"strings"

	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// StoreResolver resolves outbox entries directly against the storage
// engine: a regular event_id is looked up in the event_docs reverse
// index (populated by the TOC Builder and the Rollup jobs) to find the
// grips and/or node it contributed to; a node-id-shaped event_id (the
// Rollup job's re-index convention) is resolved straight to that node.
type StoreResolver struct {
	store *storage.Storage
}

// NewStoreResolver creates a Resolver backed by store.
func NewStoreResolver(store *storage.Storage) *StoreResolver {
	return &StoreResolver{store: store}
}

var _ Resolver = (*StoreResolver)(nil)

func (r *StoreResolver) Resolve(ctx context.Context, entry types.OutboxEntry) ([]Document, error) {
	if IsNodeID(entry.EventID) {
		node, err := r.store.GetTocNode(entry.EventID)
		if err != nil {
			if err == storage.ErrKeyNotFound {
				return nil, nil
			}
			return nil, err
		}
		return []Document{nodeDocument(node)}, nil
	}

	gripIDs, nodeID, err := r.store.GetEventDocs(entry.EventID)
	if err != nil {
		if err == storage.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var docs []Document
	for _, gripID := range gripIDs {
		grip, err := r.store.GetGrip(gripID)
		if err != nil {
			if err == storage.ErrKeyNotFound {
				continue
			}
			return nil, err
		}
		docs = append(docs, gripDocument(grip))
	}
	if nodeID != "" {
		node, err := r.store.GetTocNode(nodeID)
		if err != nil {
			if err != storage.ErrKeyNotFound {
				return nil, err
			}
		} else {
			docs = append(docs, nodeDocument(node))
		}
	}
	return docs, nil
}

func nodeDocument(n types.TocNode) Document {
	texts := make([]string, 0, len(n.Bullets)+1)
	if n.Title != "" {
		texts = append(texts, n.Title)
	}
	for _, b := range n.Bullets {
		texts = append(texts, b.Text)
	}
	return Document{
		DocType:     "node",
		DocID:       n.NodeID,
		Level:       string(n.Level),
		Text:        strings.Join(texts, " "),
		Keywords:    n.Keywords,
		TimestampMs: n.StartTime.UnixMilli(),
		Agent:       firstAgent(n.ContributingAgents),
	}
}

func gripDocument(g types.Grip) Document {
	return Document{
		DocType:     "grip",
		DocID:       g.GripID,
		Level:       "Grip",
		Text:        g.Excerpt,
		TimestampMs: g.Timestamp.UnixMilli(),
	}
}

func firstAgent(agents []string) string {
	if len(agents) == 0 {
		return ""
	}
	return agents[0]
}
