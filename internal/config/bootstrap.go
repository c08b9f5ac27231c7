package config

import "context"

// DefaultConfig returns the bootstrap configuration for first-run: an
// embedded store under "./data", conservative segmentation thresholds,
// the deterministic mock summarizer, and scheduling on for rollups but
// off for retention.
func DefaultConfig() *Config {
	return &Config{
		StoragePath:   "./data",
		ListenAddress: "127.0.0.1:8732",
		Segmentation: Segmentation{
			TimeThresholdMs: 30 * 60 * 1000,
			TokenThreshold:  4000,
			OverlapTimeMs:   2 * 60 * 1000,
			OverlapTokens:   200,
		},
		Summarizer: Summarizer{
			Provider: "mock",
		},
		Vector: Vector{
			Dimension: 768,
			M:         16,
			EfAdd:     200,
			EfSearch:  64,
			Capacity:  1_000_000,
		},
		Bm25: Bm25{
			WriterMemoryMb: 64,
		},
		Scheduler: Scheduler{
			DefaultTimezone:    "UTC",
			ShutdownTimeoutSec: 30,
		},
		Novelty: Novelty{
			Enabled: false,
		},
	}
}

// Bootstrap writes the default configuration to a store. Call this when
// Load returns a nil config (no config exists yet).
func Bootstrap(ctx context.Context, store Store) error {
	return store.Save(ctx, DefaultConfig())
}
