package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SpillwaveSolutions/agent-memory/internal/config"
	configfile "github.com/SpillwaveSolutions/agent-memory/internal/config/file"
	"github.com/SpillwaveSolutions/agent-memory/internal/facade"
	"github.com/SpillwaveSolutions/agent-memory/internal/grip"
	"github.com/SpillwaveSolutions/agent-memory/internal/home"
	"github.com/SpillwaveSolutions/agent-memory/internal/index/bm25"
	"github.com/SpillwaveSolutions/agent-memory/internal/index/vector"
	"github.com/SpillwaveSolutions/agent-memory/internal/indexing"
	"github.com/SpillwaveSolutions/agent-memory/internal/ingest"
	"github.com/SpillwaveSolutions/agent-memory/internal/retrieval"
	"github.com/SpillwaveSolutions/agent-memory/internal/scheduler"
	"github.com/SpillwaveSolutions/agent-memory/internal/segment"
	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/summarize"
	"github.com/SpillwaveSolutions/agent-memory/internal/toc"
	"github.com/SpillwaveSolutions/agent-memory/internal/toc/rollup"
	"github.com/SpillwaveSolutions/agent-memory/internal/toc/segmentbuilder"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// app bundles every component the CLI and serve command need, built
// once from the resolved home directory and config file.
type app struct {
	hd       home.Dir
	cfg      *config.Config
	store    *storage.Storage
	ingester *ingest.Ingester
	reader   *toc.Reader
	builder  *toc.Builder
	expander *grip.Expander
	bm25Idx  *bm25.Index
	vecIdx   *vector.Index
	embedder vector.Embedder
	policy   *retrieval.Policy
	sched    *scheduler.Scheduler
	facade   *facade.Facade
	logger   *slog.Logger
}

// resolveHome returns a Dir from the flag value, or the platform default.
func resolveHome(flagValue string) (home.Dir, error) {
	if flagValue != "" {
		return home.New(flagValue), nil
	}
	return home.Default()
}

// loadConfig reads config.json if present, otherwise returns documented
// defaults so a fresh home directory works without a bootstrap step.
func loadConfig(hd home.Dir) (*config.Config, error) {
	store := configfile.NewStore(hd.ConfigPath())
	cfg, err := store.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg != nil {
		return cfg, nil
	}
	return defaultConfig(hd), nil
}

func defaultConfig(hd home.Dir) *config.Config {
	return &config.Config{
		StoragePath: hd.KVDir(),
		Summarizer:  config.Summarizer{Provider: "mock"},
		Vector:      config.Vector{Dimension: 384, M: 16, EfAdd: 200, EfSearch: 100},
		Bm25:        config.Bm25{WriterMemoryMb: 50},
		Scheduler:   config.Scheduler{DefaultTimezone: "UTC", ShutdownTimeoutSec: 30},
	}
}

// newApp opens storage and indexes and wires every core component
// together for the CLI commands and serve.
func newApp(homeFlag string, logger *slog.Logger) (*app, error) {
	hd, err := resolveHome(homeFlag)
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	if err := hd.EnsureExists(); err != nil {
		return nil, fmt.Errorf("ensure home directory: %w", err)
	}

	cfg, err := loadConfig(hd)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(storage.Config{Dir: hd.KVDir()})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	var summarizer summarize.Summarizer
	if cfg.Summarizer.Provider == "" || cfg.Summarizer.Provider == "mock" {
		summarizer = summarize.NewMock()
	} else {
		summarizer = summarize.NewAPIBackend(cfg.Summarizer.Provider, cfg.Summarizer.Model, cfg.Summarizer.Key, cfg.Summarizer.Base)
	}

	extractor := grip.New(grip.DefaultExtractConfig())
	expander := grip.NewExpander(store, grip.DefaultExpandConfig())
	builder := toc.New(store, summarizer, extractor, logger)
	reader := toc.NewReader(store, summarizer)
	ingester := ingest.New(store, logger)

	bm25Cfg := bm25.DefaultConfig()
	if cfg.Bm25.WriterMemoryMb > 0 {
		bm25Cfg.WriterMemoryBudgetBytes = int64(cfg.Bm25.WriterMemoryMb) * 1024 * 1024
	}
	bm25Idx, err := bm25.Open(hd.Bm25Dir(), bm25Cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open bm25 index: %w", err)
	}

	vecCfg := vector.Config{Dimension: cfg.Vector.Dimension, M: cfg.Vector.M, EfConstruction: 200, EfSearch: cfg.Vector.EfSearch}
	if vecCfg.Dimension == 0 {
		vecCfg = vector.DefaultConfig()
	}
	vecIdx, err := vector.Open(hd.VectorGraphPath(), store, vecCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open vector index: %w", err)
	}
	embedder := vector.NewHashEmbedder(vecCfg.Dimension)

	bm25Layer := retrieval.NewBm25Layer(bm25Idx)
	vectorLayer := retrieval.NewVectorLayer(vecIdx, embedder)
	policy := retrieval.New([]retrieval.Layer{
		bm25Layer,
		vectorLayer,
		retrieval.NewHybridLayer(bm25Layer, vectorLayer),
		retrieval.NewAgenticLayer(store, int64(7*24*60*60*1000), 5000),
	}, logger)

	tz, err := time.LoadLocation(cfg.Scheduler.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone: %w", err)
	}
	sched, err := scheduler.New(scheduler.Config{DefaultTimezone: tz, ShutdownTimeoutSec: cfg.Scheduler.ShutdownTimeoutSec}, logger)
	if err != nil {
		return nil, fmt.Errorf("start scheduler: %w", err)
	}

	resolver := indexing.NewStoreResolver(store)
	bm25Updater := indexing.NewBm25Updater(bm25Idx)
	vectorUpdater := indexing.NewVectorUpdater(vecIdx, embedder)
	combined := indexing.NewCombinedUpdater(bm25Updater, vectorUpdater)
	pipeline := indexing.New(store, resolver, []indexing.Updater{combined}, indexing.DefaultConfig(), logger)

	segJob := segmentbuilder.New(store, builder, segment.DefaultConfig(), time.Hour, logger)
	dayJob := rollup.New(types.LevelDay, store, summarizer, logger)
	weekJob := rollup.New(types.LevelWeek, store, summarizer, logger)
	monthJob := rollup.New(types.LevelMonth, store, summarizer, logger)

	if err := scheduler.RegisterDefaultJobs(sched, scheduler.DefaultJobsConfig{
		Store:          store,
		SegmentBuilder: segJob,
		DayRollup:      dayJob,
		WeekRollup:     weekJob,
		MonthRollup:    monthJob,
		IndexPipeline:  pipeline,
		Bm25Index:      bm25Idx,
		VectorIndex:    vecIdx,
		Retention: scheduler.RetentionConfig{
			SegmentAfterDays: cfg.Retention.SegmentAfterDays,
			DayAfterDays:     cfg.Retention.DayAfterDays,
			WeekAfterDays:    cfg.Retention.WeekAfterDays,
		},
	}); err != nil {
		return nil, fmt.Errorf("register default jobs: %w", err)
	}

	f := facade.New(store, ingester, reader, expander, policy, sched)

	return &app{
		hd: hd, cfg: cfg, store: store, ingester: ingester, reader: reader, builder: builder,
		expander: expander, bm25Idx: bm25Idx, vecIdx: vecIdx, embedder: embedder, policy: policy,
		sched: sched, facade: f, logger: logger,
	}, nil
}

func (a *app) Close() {
	if a.bm25Idx != nil {
		_ = a.bm25Idx.Close()
	}
	if a.sched != nil {
		_ = a.sched.Shutdown()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}
