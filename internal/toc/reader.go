package toc

import (
	"context"
	"errors"
	"fmt"

	"github.com/SpillwaveSolutions/agent-memory/internal/callgroup"
	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/summarize"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// ErrNotFound is returned when a node id resolves to nothing, including
// after attempting on-demand Year synthesis.
var ErrNotFound = errors.New("toc: node not found")

// Reader resolves TOC nodes for the service façade. Year-level nodes are
// never produced by a scheduled rollup job — they are synthesized here,
// on read, from their Month children.
type Reader struct {
	store      *storage.Storage
	summarizer summarize.Summarizer
	yearGroup  callgroup.Group[string, types.TocNode]
}

// NewReader creates a Reader over store, using summarizer to synthesize
// Year nodes on demand.
func NewReader(store *storage.Storage, summarizer summarize.Summarizer) *Reader {
	return &Reader{store: store, summarizer: summarizer}
}

// GetNode resolves nodeID to its latest version, synthesizing a Year
// node from its Month children if none has been persisted yet.
func (r *Reader) GetNode(ctx context.Context, nodeID string) (types.TocNode, error) {
	level, err := storage.LevelOf(nodeID)
	if err != nil {
		return types.TocNode{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	node, err := r.store.GetTocNode(nodeID)
	if err == nil {
		return node, nil
	}
	if !errors.Is(err, storage.ErrKeyNotFound) {
		return types.TocNode{}, err
	}
	if level != types.LevelYear {
		return types.TocNode{}, ErrNotFound
	}
	// Synthesis re-summarizes this year's Month children on every call
	// and is never persisted, so two requests for the same not-yet-
	// synthesized year (GetTocRoot and a direct GetNode, or two
	// concurrent API callers) would otherwise redundantly re-run the
	// same summarizer call. Do collapses them into one.
	return r.yearGroup.Do(nodeID, func() (types.TocNode, error) {
		return r.synthesizeYear(ctx, nodeID)
	})
}

// synthesizeYear builds an ephemeral, unpersisted Year node by rolling
// up its existing Month children's summaries.
func (r *Reader) synthesizeYear(ctx context.Context, nodeID string) (types.TocNode, error) {
	start, end, err := storage.CalendarBounds(nodeID)
	if err != nil {
		return types.TocNode{}, err
	}
	prefix := "toc:month:" + nodeID[len("toc:year:"):] + ":"
	months, err := r.store.ListNodesByIDPrefix(prefix)
	if err != nil {
		return types.TocNode{}, err
	}
	if len(months) == 0 {
		return types.TocNode{}, ErrNotFound
	}

	children := make([]summarize.Summary, len(months))
	childIDs := make([]string, len(months))
	for i, m := range months {
		children[i] = summarize.Summary{Title: m.Title, Bullets: bulletsText(m.Bullets), Keywords: m.Keywords}
		childIDs[i] = m.NodeID
	}
	summary, err := r.summarizer.SummarizeChildren(ctx, children)
	if err != nil {
		return types.TocNode{}, fmt.Errorf("toc reader: synthesize year %s: %w", nodeID, err)
	}

	return types.TocNode{
		NodeID:       nodeID,
		Level:        types.LevelYear,
		Title:        summary.Title,
		StartTime:    start,
		EndTime:      end,
		Bullets:      bulletsFromText(summary.Bullets),
		Keywords:     summary.Keywords,
		ChildNodeIDs: childIDs,
		Version:      0,
	}, nil
}

func bulletsText(bullets []types.Bullet) []string {
	out := make([]string, len(bullets))
	for i, b := range bullets {
		out[i] = b.Text
	}
	return out
}

func bulletsFromText(texts []string) []types.Bullet {
	out := make([]types.Bullet, len(texts))
	for i, t := range texts {
		out[i] = types.Bullet{Text: t}
	}
	return out
}

// GetTocRoot returns every Year node implied by the persisted calendar
// hierarchy, synthesizing each that has no rollup-authored node yet.
func (r *Reader) GetTocRoot(ctx context.Context) ([]types.TocNode, error) {
	months, err := r.store.ListNodesByIDPrefix("toc:month:")
	if err != nil {
		return nil, err
	}
	years := make(map[string]bool)
	for _, m := range months {
		// toc:month:{YYYY}:{MM} -> toc:year:{YYYY}
		parts := splitNodeID(m.NodeID)
		if len(parts) < 3 {
			continue
		}
		years["toc:year:"+parts[2]] = true
	}

	out := make([]types.TocNode, 0, len(years))
	for yearID := range years {
		node, err := r.GetNode(ctx, yearID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

func splitNodeID(nodeID string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(nodeID); i++ {
		if nodeID[i] == ':' {
			parts = append(parts, nodeID[start:i])
			start = i + 1
		}
	}
	parts = append(parts, nodeID[start:])
	return parts
}

// BrowseToc resolves a node's children, honoring limit and an opaque
// continuation token (the last-seen child node id). A non-positive
// limit returns every remaining child.
func (r *Reader) BrowseToc(ctx context.Context, nodeID string, limit int, continuation string) (children []types.TocNode, nextContinuation string, err error) {
	node, err := r.GetNode(ctx, nodeID)
	if err != nil {
		return nil, "", err
	}

	ids := node.ChildNodeIDs
	if continuation != "" {
		idx := indexOf(ids, continuation)
		if idx >= 0 {
			ids = ids[idx+1:]
		}
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	for _, id := range ids {
		child, err := r.GetNode(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, "", err
		}
		children = append(children, child)
	}
	if limit > 0 && len(children) == limit && len(node.ChildNodeIDs) > 0 {
		nextContinuation = ids[len(ids)-1]
	}
	return children, nextContinuation, nil
}

func indexOf(ids []string, id string) int {
	for i, s := range ids {
		if s == id {
			return i
		}
	}
	return -1
}
