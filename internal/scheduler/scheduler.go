// Package scheduler is a cron-driven registry of named jobs, built on
// go-co-op/gocron/v2. Each job carries an overlap policy, a jitter
// upper bound, and a timeout; the registry tracks next-run, last-run,
// last-duration, last-result, run count, error count, and whether the
// job is currently running or paused.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/SpillwaveSolutions/agent-memory/internal/logging"
)

// OverlapPolicy controls what happens when a tick fires while the
// previous run of the same job is still in flight.
type OverlapPolicy int

const (
	// Skip drops the new tick (recorded as Skipped) if the job is
	// already running.
	Skip OverlapPolicy = iota
	// Concurrent always runs, regardless of an in-flight run.
	Concurrent
)

// Result is the outcome recorded for the most recent run.
type Result string

const (
	ResultNone      Result = ""
	ResultSuccess   Result = "Success"
	ResultFailed    Result = "Failed"
	ResultSkipped   Result = "Skipped"
	ResultCancelled Result = "Cancelled"
)

// Func is a scheduled job body. It receives a cancellation context and
// returns metadata describing what it did (e.g. prune counts), attached
// to the registry entry for telemetry.
type Func func(ctx context.Context) (meta map[string]any, err error)

// Spec describes one job registration.
type Spec struct {
	Name     string
	Cron     string // 6-field cron expression (seconds field included)
	Timezone *time.Location
	Overlap  OverlapPolicy
	JitterMax time.Duration
	Timeout  time.Duration
	Fn       Func
}

// entry is the registry's internal bookkeeping for one job.
type entry struct {
	spec      Spec
	job       gocron.Job
	running   atomic.Bool
	paused    atomic.Bool
	mu        sync.Mutex
	lastRun   time.Time
	lastDur   time.Duration
	lastResult Result
	lastError string
	lastMeta  map[string]any
	runCount  int64
	errCount  int64
}

// Status is a point-in-time snapshot of one job's registry state, safe
// to copy and hand to a caller.
type Status struct {
	Name       string
	Cron       string
	NextRun    time.Time
	LastRun    time.Time
	LastDur    time.Duration
	LastResult Result
	LastError  string
	LastMeta   map[string]any
	RunCount   int64
	ErrCount   int64
	IsRunning  bool
	IsPaused   bool
}

// Scheduler is the shared registry. All jobs (TOC rollups, outbox
// indexing, search-index commit, compaction, vector pruning) register
// here rather than maintaining their own tickers.
type Scheduler struct {
	mu        sync.Mutex
	gocron    gocron.Scheduler
	entries   map[string]*entry
	shutdownGrace time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// Config tunes scheduler-global behavior.
type Config struct {
	DefaultTimezone    *time.Location
	ShutdownTimeoutSec int
}

// DefaultConfig returns UTC with a 30s shutdown grace period.
func DefaultConfig() Config {
	return Config{DefaultTimezone: time.UTC, ShutdownTimeoutSec: 30}
}

// New creates and starts a Scheduler. A nil logger discards output.
func New(cfg Config, logger *slog.Logger) (*Scheduler, error) {
	tz := cfg.DefaultTimezone
	if tz == nil {
		tz = time.UTC
	}
	gs, err := gocron.NewScheduler(gocron.WithLocation(tz))
	if err != nil {
		return nil, fmt.Errorf("scheduler: create gocron scheduler: %w", err)
	}
	gs.Start()
	s := &Scheduler{
		gocron:        gs,
		entries:       make(map[string]*entry),
		shutdownGrace: time.Duration(cfg.ShutdownTimeoutSec) * time.Second,
		logger:        logging.Default(logger).With("component", "scheduler"),
		now:           time.Now,
	}
	return s, nil
}

// AddJob registers spec. The name must be unique.
func (s *Scheduler) AddJob(spec Spec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[spec.Name]; exists {
		return fmt.Errorf("scheduler: job %q already registered", spec.Name)
	}
	// Per-job timezone isn't separately configurable — gocron ties
	// location to the whole scheduler, set once in New via
	// Config.DefaultTimezone. spec.Timezone is not applied and is not
	// reported on Status; every job runs against the scheduler-wide
	// location.
	e := &entry{spec: spec}

	task := gocron.NewTask(func() { s.runTick(e) })
	def := gocron.CronJob(spec.Cron, true)

	j, err := s.gocron.NewJob(def, task, gocron.WithName(spec.Name))
	if err != nil {
		return fmt.Errorf("scheduler: register job %q: %w", spec.Name, err)
	}
	e.job = j
	s.entries[spec.Name] = e
	s.logger.Info("job registered", "name", spec.Name, "cron", spec.Cron)
	return nil
}

// runTick is the task body gocron invokes on each firing.
func (s *Scheduler) runTick(e *entry) {
	if e.paused.Load() {
		s.recordResult(e, ResultSkipped, 0, nil, nil)
		return
	}

	if e.spec.Overlap == Skip {
		if !e.running.CompareAndSwap(false, true) {
			s.recordResult(e, ResultSkipped, 0, nil, nil)
			return
		}
		defer e.running.Store(false)
	} else {
		e.running.Store(true)
		defer e.running.Store(false)
	}

	if e.spec.JitterMax > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(e.spec.JitterMax))))
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if e.spec.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.spec.Timeout)
		defer cancel()
	}

	start := s.now()
	meta, err := e.spec.Fn(ctx)
	dur := s.now().Sub(start)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		s.recordResult(e, ResultFailed, dur, meta, errors.New("timeout"))
	case errors.Is(err, context.Canceled):
		s.recordResult(e, ResultCancelled, dur, meta, nil)
	case err != nil:
		s.recordResult(e, ResultFailed, dur, meta, err)
	default:
		s.recordResult(e, ResultSuccess, dur, meta, nil)
	}
}

func (s *Scheduler) recordResult(e *entry, result Result, dur time.Duration, meta map[string]any, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastRun = s.now()
	e.lastDur = dur
	e.lastResult = result
	e.lastMeta = meta
	if err != nil {
		e.lastError = err.Error()
		e.errCount++
	} else {
		e.lastError = ""
	}
	e.runCount++
}

// Pause sets a job's is_paused flag; subsequent ticks are recorded
// Skipped without running the body.
func (s *Scheduler) Pause(name string) error {
	e, err := s.get(name)
	if err != nil {
		return err
	}
	e.paused.Store(true)
	return nil
}

// Resume clears a job's is_paused flag.
func (s *Scheduler) Resume(name string) error {
	e, err := s.get(name)
	if err != nil {
		return err
	}
	e.paused.Store(false)
	return nil
}

func (s *Scheduler) get(name string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("scheduler: unknown job %q", name)
	}
	return e, nil
}

// GetJob returns a job's current status.
func (s *Scheduler) GetJob(name string) (Status, bool) {
	e, err := s.get(name)
	if err != nil {
		return Status{}, false
	}
	return s.snapshot(name, e), true
}

// ListJobs returns every registered job's status.
func (s *Scheduler) ListJobs() []Status {
	s.mu.Lock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	entries := make(map[string]*entry, len(s.entries))
	for k, v := range s.entries {
		entries[k] = v
	}
	s.mu.Unlock()

	out := make([]Status, 0, len(names))
	for _, name := range names {
		out = append(out, s.snapshot(name, entries[name]))
	}
	return out
}

func (s *Scheduler) snapshot(name string, e *entry) Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	var next time.Time
	if e.job != nil {
		if nr, err := e.job.NextRun(); err == nil {
			next = nr
		}
	}

	return Status{
		Name:       name,
		Cron:       e.spec.Cron,
		NextRun:    next,
		LastRun:    e.lastRun,
		LastDur:    e.lastDur,
		LastResult: e.lastResult,
		LastError:  e.lastError,
		LastMeta:   e.lastMeta,
		RunCount:   e.runCount,
		ErrCount:   e.errCount,
		IsRunning:  e.running.Load(),
		IsPaused:   e.paused.Load(),
	}
}

// Shutdown stops the underlying gocron scheduler and returns its error.
// Job run contexts are not cancelled. If gocron has not finished within
// the configured grace period, a warning is logged and Shutdown keeps
// waiting; there is no forced stop.
func (s *Scheduler) Shutdown() error {
	done := make(chan error, 1)
	go func() { done <- s.gocron.Shutdown() }()

	select {
	case err := <-done:
		return err
	case <-time.After(s.shutdownGrace):
		s.logger.Warn("scheduler shutdown grace period exceeded, forcing stop")
		return <-done
	}
}
