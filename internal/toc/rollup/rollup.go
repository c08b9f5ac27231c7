// Package rollup implements the per-level Rollup Job: periodically
// re-summarizing calendar TOC nodes from their children's summaries,
// writing a new node version without ever mutating the prior one.
//
// Year is deliberately not registered here — the calendar rollup chain
// in the reference pipeline this design is based on only ever creates
// Day, Week, and Month jobs; Year is synthesized on read by
// internal/toc.Reader instead of being driven by a scheduled job.
package rollup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SpillwaveSolutions/agent-memory/internal/logging"
	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/summarize"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// DefaultMinAge returns the minimum age a node must reach before the
// rollup job will consider it, per level.
func DefaultMinAge(level types.TocLevel) time.Duration {
	switch level {
	case types.LevelDay:
		return 1 * time.Hour
	case types.LevelWeek, types.LevelMonth:
		return 24 * time.Hour
	case types.LevelYear:
		return 7 * 24 * time.Hour
	default:
		return 1 * time.Hour
	}
}

// Job rolls up one calendar level.
type Job struct {
	Level           types.TocLevel
	MinAge          time.Duration
	ContinueOnError bool

	store      *storage.Storage
	summarizer summarize.Summarizer
	logger     *slog.Logger
}

// New creates a rollup Job for level. A nil logger discards all output.
func New(level types.TocLevel, store *storage.Storage, summarizer summarize.Summarizer, logger *slog.Logger) *Job {
	logger = logging.Default(logger)
	return &Job{
		Level:           level,
		MinAge:          DefaultMinAge(level),
		ContinueOnError: true,
		store:           store,
		summarizer:      summarizer,
		logger:          logger.With("component", "rollup", "level", level),
	}
}

// Name is the checkpoint/job-registry name for this level's job.
func (j *Job) Name() string {
	return "rollup_" + strings.ToLower(string(j.Level))
}

// Run scans nodes at Level old enough and past the last checkpoint,
// rolling up each that has children. It returns the number of nodes
// successfully rolled up. A per-node failure is logged and skipped
// unless ContinueOnError is false, in which case Run returns the error
// and the checkpoint is not advanced past the failing node.
func (j *Job) Run(ctx context.Context, now time.Time) (int, error) {
	cp, err := j.store.GetCheckpoint(j.Name())
	if err != nil {
		if err != storage.ErrKeyNotFound {
			return 0, err
		}
		cp = types.Checkpoint{JobName: j.Name(), Level: j.Level}
	}

	nodes, err := j.store.ListNodesByIDPrefix(levelPrefix(j.Level))
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-j.MinAge)
	processed := 0
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if n.EndTime.After(cutoff) {
			continue
		}
		if !n.StartTime.After(cp.LastProcessedTime) {
			continue
		}
		if len(n.ChildNodeIDs) == 0 {
			continue
		}

		if err := j.rollupNode(ctx, n, now); err != nil {
			j.logger.Warn("rollup node failed", "node_id", n.NodeID, "error", err)
			if !j.ContinueOnError {
				return processed, fmt.Errorf("rollup %s: node %s: %w", j.Level, n.NodeID, err)
			}
			continue
		}

		processed++
		cp.LastProcessedTime = n.StartTime
		cp.ProcessedCount++
		if err := j.store.PutCheckpoint(cp); err != nil {
			return processed, err
		}
	}
	return processed, nil
}

// rollupNode re-summarizes n from its children and persists a new
// version, then enqueues a follow-up outbox entry pointing at n's node
// id so the indexing pipeline re-indexes it — UpdateToc entries are
// otherwise just a hint the indexers skip, so TOC-side code must be the
// one to ask for re-indexing when a node's bullets actually change.
func (j *Job) rollupNode(ctx context.Context, n types.TocNode, now time.Time) error {
	children, err := j.store.ListChildren(n)
	if err != nil {
		return err
	}
	if len(children) == 0 {
		return nil
	}

	summaries := make([]summarize.Summary, len(children))
	for i, c := range children {
		summaries[i] = summarize.Summary{Title: c.Title, Bullets: bulletTexts(c.Bullets), Keywords: c.Keywords}
	}
	summary, err := j.summarizer.SummarizeChildren(ctx, summaries)
	if err != nil {
		return fmt.Errorf("summarize children: %w", err)
	}

	updated := n
	updated.Title = summary.Title
	updated.Bullets = bulletsFromTexts(summary.Bullets)
	updated.Keywords = summary.Keywords
	updated.Version++
	updated.ChildNodeIDs = reassertChildren(n.ChildNodeIDs, children)

	return j.store.Batch(func(t *storage.Txn) error {
		if err := t.PutTocNode(updated); err != nil {
			return err
		}
		seq := j.store.NextOutboxSequence()
		return t.PutOutboxEntry(types.OutboxEntry{
			Sequence:    seq,
			EventID:     updated.NodeID,
			TimestampMs: now.UnixMilli(),
			Action:      types.ActionIndexEvent,
		})
	})
}

// reassertChildren keeps the original child order but drops any id
// that no longer resolves to a persisted child.
func reassertChildren(ids []string, resolved []types.TocNode) []string {
	present := make(map[string]bool, len(resolved))
	for _, c := range resolved {
		present[c.NodeID] = true
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if present[id] {
			out = append(out, id)
		}
	}
	return out
}

func bulletTexts(bullets []types.Bullet) []string {
	out := make([]string, len(bullets))
	for i, b := range bullets {
		out[i] = b.Text
	}
	return out
}

func bulletsFromTexts(texts []string) []types.Bullet {
	out := make([]types.Bullet, len(texts))
	for i, t := range texts {
		out[i] = types.Bullet{Text: t}
	}
	return out
}

func levelPrefix(level types.TocLevel) string {
	return "toc:" + strings.ToLower(string(level)) + ":"
}
