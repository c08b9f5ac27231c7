// Package config provides configuration persistence for the system.
//
// Store persists and reloads the desired system configuration across
// restarts. Config is declarative: it describes storage locations and
// tuning knobs, not live component handles. It is loaded once at
// startup; v1 has no hot reload.
package config

import "context"

// Store persists and loads system configuration.
//
// Store is not accessed on the ingest or retrieval hot path. Persistence
// must not block ingestion or queries.
type Store interface {
	// Load reads the configuration. Returns nil config if none exists.
	Load(ctx context.Context) (*Config, error)

	// Save persists the configuration.
	Save(ctx context.Context, cfg *Config) error
}

// Config describes the desired system shape.
type Config struct {
	StoragePath   string        `json:"storage_path"`
	ListenAddress string        `json:"listen_address"`
	Segmentation  Segmentation  `json:"segmentation"`
	Summarizer    Summarizer    `json:"summarizer"`
	Vector        Vector        `json:"vector"`
	Bm25          Bm25          `json:"bm25"`
	Scheduler     Scheduler     `json:"scheduler"`
	Retention     Retention     `json:"retention"`
	Novelty       Novelty       `json:"novelty"`
}

// Segmentation controls the Segmenter's boundary detection.
type Segmentation struct {
	TimeThresholdMs int64 `json:"time_threshold_ms"`
	TokenThreshold  int   `json:"token_threshold"`
	OverlapTimeMs   int64 `json:"overlap_time_ms"`
	OverlapTokens   int   `json:"overlap_tokens"`
}

// Summarizer selects and configures the summarization backend.
type Summarizer struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Key      string `json:"key"`
	Base     string `json:"base"`
}

// Vector tunes the HNSW vector index.
type Vector struct {
	Dimension int `json:"dimension"`
	M         int `json:"m"`
	EfAdd     int `json:"ef_add"`
	EfSearch  int `json:"ef_search"`
	Capacity  int `json:"capacity"`
}

// Bm25 tunes the full-text index writer.
type Bm25 struct {
	WriterMemoryMb int `json:"writer_memory_mb"`
}

// Scheduler configures global scheduler behavior.
type Scheduler struct {
	DefaultTimezone    string `json:"default_timezone"`
	ShutdownTimeoutSec int    `json:"shutdown_timeout_secs"`
}

// Retention configures optional pruning schedules per TOC level.
// Month and Year are never eligible for pruning.
type Retention struct {
	SegmentAfterDays int `json:"segment_after_days,omitempty"`
	DayAfterDays     int `json:"day_after_days,omitempty"`
	WeekAfterDays    int `json:"week_after_days,omitempty"`
}

// Novelty configures the optional retrieval-time dedup pass. Disabled by
// default; novelty scoring itself lives outside this module.
type Novelty struct {
	Enabled     bool  `json:"enabled"`
	Threshold   float64 `json:"threshold"`
	TimeoutMs   int64 `json:"timeout_ms"`
}
