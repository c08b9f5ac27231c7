// Package toc implements the TOC Builder: turning one finished Segment
// into a persisted segment-level node, its grips, and the calendar
// hierarchy (Day/Week/Month/Year) above it.
package toc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/SpillwaveSolutions/agent-memory/internal/grip"
	"github.com/SpillwaveSolutions/agent-memory/internal/logging"
	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/summarize"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

const placeholderTitle = "(pending rollup)"

// Builder builds and persists the TOC chain for one segment at a time.
type Builder struct {
	store      *storage.Storage
	summarizer summarize.Summarizer
	extractor  *grip.Extractor
	logger     *slog.Logger
}

// New creates a Builder. A nil logger discards all output.
func New(store *storage.Storage, summarizer summarize.Summarizer, extractor *grip.Extractor, logger *slog.Logger) *Builder {
	logger = logging.Default(logger)
	return &Builder{store: store, summarizer: summarizer, extractor: extractor, logger: logger.With("component", "toc_builder")}
}

// Build summarizes seg, extracts and persists its grips, persists the
// segment-level node, and walks the calendar hierarchy above it,
// creating or augmenting each parent as needed.
func (b *Builder) Build(ctx context.Context, seg types.Segment) (*types.TocNode, error) {
	if len(seg.Events) == 0 {
		return nil, fmt.Errorf("toc builder: segment %s has no events", seg.SegmentID)
	}

	summary, err := b.summarizer.SummarizeEvents(ctx, seg.AllEvents())
	if err != nil {
		return nil, fmt.Errorf("toc builder: summarize segment %s: %w", seg.SegmentID, err)
	}

	grips := b.extractor.Extract(summary.Bullets, seg.Events)

	segID, err := ulid.Parse(seg.SegmentID)
	if err != nil {
		return nil, fmt.Errorf("toc builder: invalid segment id %q: %w", seg.SegmentID, err)
	}
	nodeID := storage.SegmentNodeID(seg.StartTime, segID)

	bullets := buildBullets(summary.Bullets, grips)
	node := types.TocNode{
		NodeID:             nodeID,
		Level:              types.LevelSegment,
		Title:              summary.Title,
		StartTime:          seg.StartTime,
		EndTime:            seg.EndTime,
		Bullets:            bullets,
		Keywords:           summary.Keywords,
		Version:            1,
		CreatedAt:          seg.EndTime,
		ContributingAgents: contributingAgents(seg.Events),
	}

	eventDocNodeID := nodeID
	gripIDs := make([]string, len(grips))
	for i, g := range grips {
		gripIDs[i] = g.GripID
	}

	err = b.store.Batch(func(t *storage.Txn) error {
		for _, g := range grips {
			g.TocNodeID = nodeID
			if err := t.PutGrip(g); err != nil {
				return err
			}
		}
		if err := t.PutTocNode(node); err != nil {
			return err
		}
		for _, e := range seg.Events {
			if err := t.PutEventDocs(e.EventID, gripIDs, eventDocNodeID); err != nil {
				return err
			}
		}
		seq := b.store.NextOutboxSequence()
		return t.PutOutboxEntry(types.OutboxEntry{
			Sequence:    seq,
			EventID:     nodeID,
			TimestampMs: seg.EndTime.UnixMilli(),
			Action:      types.ActionIndexEvent,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("toc builder: persist segment %s: %w", seg.SegmentID, err)
	}

	if err := b.linkCalendarChain(ctx, nodeID, types.LevelSegment, seg.StartTime); err != nil {
		return nil, err
	}

	b.logger.Debug("segment indexed", "node_id", nodeID, "grips", len(grips), "events", len(seg.Events))
	return &node, nil
}

// linkCalendarChain ensures each calendar ancestor above childLevel has
// childNodeID registered, creating missing ancestors with a placeholder
// title/bullet.
func (b *Builder) linkCalendarChain(ctx context.Context, childNodeID string, childLevel types.TocLevel, anchor time.Time) error {
	level := childLevel
	child := childNodeID
	for {
		parentLevel := level.ParentLevel()
		if parentLevel == "" {
			return nil
		}
		parentID := parentNodeID(parentLevel, anchor)
		if err := b.ensureParentLinked(ctx, parentID, parentLevel, child, anchor); err != nil {
			return err
		}
		level = parentLevel
		child = parentID
	}
}

func (b *Builder) ensureParentLinked(ctx context.Context, parentID string, parentLevel types.TocLevel, childID string, anchor time.Time) error {
	return b.store.Batch(func(t *storage.Txn) error {
		existing, err := t.GetTocNode(parentID)
		if err != nil {
			if err != storage.ErrKeyNotFound {
				return err
			}
			start, end, boundsErr := storage.CalendarBounds(parentID)
			if boundsErr != nil {
				return boundsErr
			}
			node := types.TocNode{
				NodeID:       parentID,
				Level:        parentLevel,
				Title:        placeholderTitle,
				StartTime:    start,
				EndTime:      end,
				Bullets:      []types.Bullet{{Text: placeholderTitle}},
				ChildNodeIDs: []string{childID},
				Version:      1,
				CreatedAt:    anchor,
			}
			return t.PutTocNode(node)
		}

		if containsString(existing.ChildNodeIDs, childID) {
			return nil
		}
		existing.ChildNodeIDs = append(existing.ChildNodeIDs, childID)
		existing.Version++
		return t.PutTocNode(existing)
	})
}

func parentNodeID(level types.TocLevel, anchor time.Time) string {
	switch level {
	case types.LevelDay:
		return storage.DayNodeID(anchor)
	case types.LevelWeek:
		return storage.WeekNodeID(anchor)
	case types.LevelMonth:
		return storage.MonthNodeID(anchor)
	case types.LevelYear:
		return storage.YearNodeID(anchor)
	default:
		return ""
	}
}

func buildBullets(bullets []string, grips []types.Grip) []types.Bullet {
	byBullet := make(map[string][]string, len(grips))
	for _, g := range grips {
		byBullet[g.Source] = append(byBullet[g.Source], g.GripID)
	}
	out := make([]types.Bullet, len(bullets))
	for i, text := range bullets {
		out[i] = types.Bullet{Text: text, GripIDs: byBullet[text]}
	}
	return out
}

func contributingAgents(events []types.Event) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range events {
		if e.Agent == "" || seen[e.Agent] {
			continue
		}
		seen[e.Agent] = true
		out = append(out, e.Agent)
	}
	return out
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
