package scheduler

import (
	"context"
	"time"

	"github.com/SpillwaveSolutions/agent-memory/internal/index/bm25"
	"github.com/SpillwaveSolutions/agent-memory/internal/index/vector"
	"github.com/SpillwaveSolutions/agent-memory/internal/indexing"
	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/toc/rollup"
	"github.com/SpillwaveSolutions/agent-memory/internal/toc/segmentbuilder"
)

// RetentionConfig mirrors config.Retention: optional per-level pruning
// ages. Month and Year are never eligible regardless of what's set here.
type RetentionConfig struct {
	SegmentAfterDays int
	GripAfterDays    int
	DayAfterDays     int
	WeekAfterDays    int
}

// Enabled reports whether any pruning age is configured.
func (r RetentionConfig) Enabled() bool {
	return r.SegmentAfterDays > 0 || r.GripAfterDays > 0 || r.DayAfterDays > 0 || r.WeekAfterDays > 0
}

// DefaultJobsConfig bundles everything RegisterDefaultJobs needs to wire
// the system's standard cadence table.
type DefaultJobsConfig struct {
	Store          *storage.Storage
	SegmentBuilder *segmentbuilder.Job
	DayRollup      *rollup.Job
	WeekRollup     *rollup.Job
	MonthRollup    *rollup.Job
	IndexPipeline  *indexing.Pipeline
	Bm25Index      *bm25.Index
	VectorIndex    *vector.Index
	Retention      RetentionConfig
}

// RegisterDefaultJobs registers the standard cadence table: segment
// building (every minute — turns newly-ingested events into
// segment-level TOC nodes), Day rollup (01:00 daily), Week rollup
// (02:00 Sun), Month rollup (03:00 on the 1st), outbox indexing (every
// minute), search-index commit (every minute — this is where
// bm25.Index.Commit and vector.Index.Save are invoked), compaction
// (04:00 Sun), and vector prune (03:00 daily, disabled by default).
// Year is deliberately never scheduled; it is synthesized on read
// instead.
func RegisterDefaultJobs(s *Scheduler, cfg DefaultJobsConfig) error {
	jobs := []Spec{
		{
			Name: "segment_builder",
			Cron: "0 * * * * *",
			Overlap: Skip,
			Timeout: 5 * time.Minute,
			Fn: func(ctx context.Context) (map[string]any, error) {
				n, err := cfg.SegmentBuilder.Run(ctx, time.Now())
				return map[string]any{"segments_built": n}, err
			},
		},
		{
			Name: "rollup_day",
			Cron: "0 0 1 * * *",
			Overlap: Skip,
			Timeout: 10 * time.Minute,
			Fn: func(ctx context.Context) (map[string]any, error) {
				n, err := cfg.DayRollup.Run(ctx, time.Now())
				return map[string]any{"nodes_rolled_up": n}, err
			},
		},
		{
			Name: "rollup_week",
			Cron: "0 0 2 * * 0",
			Overlap: Skip,
			Timeout: 10 * time.Minute,
			Fn: func(ctx context.Context) (map[string]any, error) {
				n, err := cfg.WeekRollup.Run(ctx, time.Now())
				return map[string]any{"nodes_rolled_up": n}, err
			},
		},
		{
			Name: "rollup_month",
			Cron: "0 0 3 1 * *",
			Overlap: Skip,
			Timeout: 10 * time.Minute,
			Fn: func(ctx context.Context) (map[string]any, error) {
				n, err := cfg.MonthRollup.Run(ctx, time.Now())
				return map[string]any{"nodes_rolled_up": n}, err
			},
		},
		{
			Name: "outbox_indexing",
			Cron: "0 * * * * *",
			Overlap: Skip,
			Timeout: time.Minute,
			Fn: func(ctx context.Context) (map[string]any, error) {
				n, err := cfg.IndexPipeline.Run(ctx)
				return map[string]any{"entries_processed": n}, err
			},
		},
		{
			Name: "search_index_commit",
			Cron: "0 * * * * *",
			Overlap: Skip,
			Timeout: time.Minute,
			Fn: func(ctx context.Context) (map[string]any, error) {
				if cfg.Bm25Index != nil {
					if err := cfg.Bm25Index.Commit(); err != nil {
						return nil, err
					}
				}
				if cfg.VectorIndex != nil {
					if err := cfg.VectorIndex.Save(); err != nil {
						return nil, err
					}
				}
				return nil, nil
			},
		},
		{
			Name: "compaction",
			Cron: "0 0 4 * * 0",
			Overlap: Skip,
			Timeout: 30 * time.Minute,
			Fn: func(ctx context.Context) (map[string]any, error) {
				return nil, cfg.Store.Compact()
			},
		},
	}

	for _, spec := range jobs {
		if err := s.AddJob(spec); err != nil {
			return err
		}
	}

	prune := Spec{
		Name: "vector_prune",
		Cron: "0 0 3 * * *",
		Overlap: Skip,
		Timeout: 30 * time.Minute,
		Fn: func(ctx context.Context) (map[string]any, error) {
			return pruneVectors(cfg)
		},
	}
	if err := s.AddJob(prune); err != nil {
		return err
	}
	// Disabled by default; month/year are never eligible regardless of
	// configuration, mirroring the BM25 retention policy.
	if !cfg.Retention.Enabled() {
		return s.Pause("vector_prune")
	}
	return nil
}

// pruneVectors removes vector entries older than their configured
// retention age, for the document types eligible for pruning: segment,
// grip, day, week. Month and Year are never eligible.
func pruneVectors(cfg DefaultJobsConfig) (map[string]any, error) {
	if cfg.VectorIndex == nil || cfg.Store == nil {
		return nil, nil
	}

	now := time.Now()
	ages := map[string]int{
		"segment": cfg.Retention.SegmentAfterDays,
		"grip":    cfg.Retention.GripAfterDays,
		"day":     cfg.Retention.DayAfterDays,
		"week":    cfg.Retention.WeekAfterDays,
	}

	removed := 0
	for docType, days := range ages {
		if days <= 0 {
			continue
		}
		cutoff := now.AddDate(0, 0, -days).UnixMilli()
		entries, err := cfg.Store.ListVectorMetaBefore(cutoff, docType)
		if err != nil {
			return map[string]any{"removed": removed}, err
		}
		for _, e := range entries {
			if err := cfg.VectorIndex.Remove(e.ID); err != nil {
				return map[string]any{"removed": removed}, err
			}
			removed++
		}
	}
	return map[string]any{"removed": removed}, nil
}
