// Package segmentbuilder drives the Segmenter over newly-ingested
// events and hands each completed segment to the TOC Builder, closing
// the gap between raw event storage and the segment-level TOC nodes
// the rollup jobs expect to already exist.
package segmentbuilder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SpillwaveSolutions/agent-memory/internal/logging"
	"github.com/SpillwaveSolutions/agent-memory/internal/segment"
	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/toc"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

const jobName = "segment_builder"

// Job keeps one Segmenter per session for the life of the process and
// feeds it every event newer than its checkpoint cursor, in timestamp
// order. A session idle longer than FlushAfter is flushed even without
// a boundary crossing, so a conversation that simply stops still gets
// a segment node.
//
// Segmenter state is in-memory only: a process restart starts every
// session fresh, seeded by whatever event arrives for it next. A
// session mid-segment at restart loses its accumulated overlap
// context across the restart boundary.
type Job struct {
	store   *storage.Storage
	builder *toc.Builder
	cfg     segment.Config

	flushAfter      time.Duration
	continueOnError bool
	logger          *slog.Logger

	mu         sync.Mutex
	segmenters map[string]*sessionState
}

type sessionState struct {
	seg      *segment.Segmenter
	lastSeen time.Time
}

// New creates a Job. A nil logger discards all output. flushAfter <= 0
// defaults to one hour.
func New(store *storage.Storage, builder *toc.Builder, cfg segment.Config, flushAfter time.Duration, logger *slog.Logger) *Job {
	logger = logging.Default(logger)
	if flushAfter <= 0 {
		flushAfter = time.Hour
	}
	return &Job{
		store:           store,
		builder:         builder,
		cfg:             cfg,
		flushAfter:      flushAfter,
		continueOnError: true,
		logger:          logger.With("component", "segment_builder"),
		segmenters:      make(map[string]*sessionState),
	}
}

// Name identifies this job for checkpoint storage and scheduler status.
func (j *Job) Name() string { return jobName }

// Run feeds every event newer than the checkpoint cursor into its
// session's Segmenter, building a TOC node for each segment that
// crosses a boundary, then flushes any session that has gone idle
// longer than flushAfter. It returns the number of segments built.
func (j *Job) Run(ctx context.Context, now time.Time) (int, error) {
	cp, err := j.store.GetCheckpoint(jobName)
	if err != nil && err != storage.ErrKeyNotFound {
		return 0, fmt.Errorf("segment_builder: load checkpoint: %w", err)
	}

	fromMs := int64(0)
	if !cp.LastProcessedTime.IsZero() {
		fromMs = cp.LastProcessedTime.UnixMilli() + 1
	}
	events, err := j.store.GetEventsInRange(fromMs, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("segment_builder: scan events: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	built := 0
	var lastProcessed time.Time
	for _, e := range events {
		if ctx.Err() != nil {
			break
		}
		state := j.stateFor(e.SessionID)
		state.lastSeen = e.Timestamp
		if seg, ok := state.seg.Add(e); ok {
			if err := j.build(ctx, *seg); err != nil {
				if !j.continueOnError {
					return built, err
				}
				j.logger.Error("build segment failed", "session_id", e.SessionID, "segment_id", seg.SegmentID, "error", err)
			} else {
				built++
			}
		}
		lastProcessed = e.Timestamp
	}

	built += j.flushIdleSessions(ctx, now)

	if !lastProcessed.IsZero() {
		cp = types.Checkpoint{
			JobName:           jobName,
			LastProcessedTime: lastProcessed,
			ProcessedCount:    cp.ProcessedCount + int64(len(events)),
			CreatedAt:         now,
		}
		if err := j.store.PutCheckpoint(cp); err != nil {
			return built, fmt.Errorf("segment_builder: save checkpoint: %w", err)
		}
	}

	return built, nil
}

func (j *Job) stateFor(sessionID string) *sessionState {
	s, ok := j.segmenters[sessionID]
	if !ok {
		s = &sessionState{seg: segment.New(j.cfg)}
		j.segmenters[sessionID] = s
	}
	return s
}

// flushIdleSessions closes out any session whose last event is older
// than flushAfter relative to now, even though no boundary was crossed,
// and drops its accumulator afterward.
func (j *Job) flushIdleSessions(ctx context.Context, now time.Time) int {
	built := 0
	for sessionID, state := range j.segmenters {
		if now.Sub(state.lastSeen) < j.flushAfter {
			continue
		}
		seg := state.seg.Flush()
		delete(j.segmenters, sessionID)
		if seg == nil {
			continue
		}
		if err := j.build(ctx, *seg); err != nil {
			j.logger.Error("flush idle segment failed", "session_id", sessionID, "segment_id", seg.SegmentID, "error", err)
			continue
		}
		built++
	}
	return built
}

func (j *Job) build(ctx context.Context, seg types.Segment) error {
	_, err := j.builder.Build(ctx, seg)
	return err
}
