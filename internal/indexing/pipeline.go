// Package indexing implements the central outbox consumer: it drains
// newly persisted outbox entries in order and dispatches each to every
// registered index updater, advancing a per-updater checkpoint only
// once that updater has durably committed its side of the batch.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SpillwaveSolutions/agent-memory/internal/logging"
	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// State is an updater's position relative to the outbox's tail.
type State string

const (
	StateBehind     State = "BEHIND"
	StateCatchingUp State = "CATCHING_UP"
	StateCaughtUp   State = "CAUGHT_UP"
	StateStalled    State = "STALLED"
)

// Document is a resolved unit of indexable content: a grip or a TOC
// node's rendered text, ready to hand to an updater.
type Document struct {
	DocType     string
	DocID       string
	Level       string
	Text        string
	Keywords    []string
	TimestampMs int64
	Agent       string
}

// Updater is implemented by each index-specific consumer (BM25, Vector,
// or a combined fan-out wrapper). IndexDocument must be safe to call
// repeatedly for the same document (index-or-replace semantics).
type Updater interface {
	Name() string
	Kind() types.IndexType
	IndexDocument(ctx context.Context, doc Document) error
	Commit() error
}

// Resolver turns an outbox entry's event_id (or, for TOC-originated
// entries, a node id) into zero or more indexable Documents. Returning
// zero documents and a nil error is a valid "nothing to index yet"
// outcome — not every event contributes a grip or lands on a segment
// before the pipeline catches up to it.
type Resolver interface {
	Resolve(ctx context.Context, entry types.OutboxEntry) ([]Document, error)
}

// Config tunes one pipeline run.
type Config struct {
	BatchSize       int
	MaxIterations   int
	ContinueOnError bool
}

// DefaultConfig returns sane batch/iteration defaults.
func DefaultConfig() Config {
	return Config{BatchSize: 200, MaxIterations: 50, ContinueOnError: true}
}

type updaterTrack struct {
	updater Updater
	state   State
	lastErr error
}

// Pipeline is the outbox consumer. Each registered Updater owns a
// checkpoint named "index_" + updater.Name(), persisted via the same
// storage engine the rest of the system uses.
type Pipeline struct {
	store    *storage.Storage
	resolver Resolver
	tracks   []*updaterTrack
	cfg      Config
	logger   *slog.Logger
}

// New creates a Pipeline draining store's outbox via resolver, fanning
// out to updaters. A nil logger discards output.
func New(store *storage.Storage, resolver Resolver, updaters []Updater, cfg Config, logger *slog.Logger) *Pipeline {
	tracks := make([]*updaterTrack, len(updaters))
	for i, u := range updaters {
		tracks[i] = &updaterTrack{updater: u, state: StateBehind}
	}
	return &Pipeline{
		store:    store,
		resolver: resolver,
		tracks:   tracks,
		cfg:      cfg,
		logger:   logging.Default(logger).With("component", "indexing-pipeline"),
	}
}

func checkpointName(updaterName string) string {
	return "index_" + updaterName
}

// Status reports each updater's last-observed state, for the façade's
// scheduler-status surface.
type Status struct {
	Name         string
	Kind         types.IndexType
	State        State
	LastSequence uint64
	LastError    error
}

func (p *Pipeline) Status() []Status {
	out := make([]Status, len(p.tracks))
	for i, t := range p.tracks {
		cp, _ := p.store.GetCheckpoint(checkpointName(t.updater.Name()))
		out[i] = Status{
			Name:         t.updater.Name(),
			Kind:         t.updater.Kind(),
			State:        t.state,
			LastSequence: cp.LastSequence,
			LastError:    t.lastErr,
		}
	}
	return out
}

// Run drains the outbox until caught up or MaxIterations is reached,
// returning the total number of outbox entries processed (dispatched to
// at least one updater). A per-entry error is counted against that
// updater and, if ContinueOnError is false, aborts the whole run without
// advancing any checkpoint past the failing entry.
func (p *Pipeline) Run(ctx context.Context) (int, error) {
	if len(p.tracks) == 0 {
		return 0, nil
	}

	checkpoints := make([]types.Checkpoint, len(p.tracks))
	for i, t := range p.tracks {
		cp, err := p.store.GetCheckpoint(checkpointName(t.updater.Name()))
		if err != nil {
			if !errors.Is(err, storage.ErrKeyNotFound) {
				return 0, err
			}
			cp = types.Checkpoint{JobName: checkpointName(t.updater.Name()), IndexType: t.updater.Kind()}
		}
		checkpoints[i] = cp
	}

	totalProcessed := 0
	for iter := 0; iter < p.cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return totalProcessed, err
		}

		resumeAfter := minLastSequence(checkpoints)
		entries, err := p.store.ScanOutboxAfter(resumeAfter, p.cfg.BatchSize)
		if err != nil {
			return totalProcessed, err
		}
		if len(entries) == 0 {
			for _, t := range p.tracks {
				if t.state != StateStalled {
					t.state = StateCaughtUp
				}
			}
			break
		}

		maxSeqProcessed := make([]uint64, len(p.tracks))
		for i := range maxSeqProcessed {
			maxSeqProcessed[i] = checkpoints[i].LastSequence
		}

		for _, entry := range entries {
			docs, err := p.resolver.Resolve(ctx, entry)
			if err != nil {
				if !p.cfg.ContinueOnError {
					return totalProcessed, fmt.Errorf("indexing: resolve entry %d: %w", entry.Sequence, err)
				}
				p.logger.Warn("resolve failed", "sequence", entry.Sequence, "error", err)
				continue
			}

			dispatched := false
			for i, t := range p.tracks {
				if checkpoints[i].LastSequence >= entry.Sequence {
					continue
				}
				if entry.Action != types.ActionIndexEvent {
					maxSeqProcessed[i] = entry.Sequence
					continue
				}
				t.state = StateCatchingUp
				if err := p.indexDocs(ctx, t.updater, docs); err != nil {
					t.state = StateStalled
					t.lastErr = err
					if !p.cfg.ContinueOnError {
						return totalProcessed, fmt.Errorf("indexing: updater %s: entry %d: %w", t.updater.Name(), entry.Sequence, err)
					}
					p.logger.Warn("updater failed on entry", "updater", t.updater.Name(), "sequence", entry.Sequence, "error", err)
					continue
				}
				maxSeqProcessed[i] = entry.Sequence
				dispatched = true
			}
			if dispatched {
				totalProcessed++
			}
		}

		for i, t := range p.tracks {
			if err := t.updater.Commit(); err != nil {
				t.state = StateStalled
				t.lastErr = err
				if !p.cfg.ContinueOnError {
					return totalProcessed, fmt.Errorf("indexing: commit %s: %w", t.updater.Name(), err)
				}
				p.logger.Warn("commit failed", "updater", t.updater.Name(), "error", err)
				continue
			}
			checkpoints[i].LastSequence = maxSeqProcessed[i]
			checkpoints[i].ProcessedCount += int64(len(entries))
			if err := p.store.PutCheckpoint(checkpoints[i]); err != nil {
				return totalProcessed, err
			}
		}

		p.cleanup(entries, checkpoints)

		if len(entries) < p.cfg.BatchSize {
			for _, t := range p.tracks {
				if t.state != StateStalled {
					t.state = StateCaughtUp
				}
			}
			break
		}
	}

	return totalProcessed, nil
}

// indexDocs hands every resolved document to updater. A resolver that
// returned zero documents (nothing to index yet for this entry) is not
// an error.
func (p *Pipeline) indexDocs(ctx context.Context, u Updater, docs []Document) error {
	for _, d := range docs {
		if err := u.IndexDocument(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// cleanup deletes outbox entries that every updater's checkpoint has now
// passed. Failures are logged, never fatal, and not retried: later Runs
// scan only past the updaters' checkpoints.
func (p *Pipeline) cleanup(entries []types.OutboxEntry, checkpoints []types.Checkpoint) {
	floor := minLastSequenceValues(checkpoints)
	for _, e := range entries {
		if e.Sequence > floor {
			continue
		}
		if err := p.store.DeleteOutboxEntry(e.Sequence); err != nil {
			p.logger.Warn("cleanup failed", "sequence", e.Sequence, "error", err)
		}
	}
}

func minLastSequence(checkpoints []types.Checkpoint) uint64 {
	return minLastSequenceValues(checkpoints)
}

func minLastSequenceValues(checkpoints []types.Checkpoint) uint64 {
	if len(checkpoints) == 0 {
		return 0
	}
	min := checkpoints[0].LastSequence
	for _, c := range checkpoints[1:] {
		if c.LastSequence < min {
			min = c.LastSequence
		}
	}
	return min
}

// IsNodeID reports whether an outbox entry's event_id is actually a TOC
// node id (the rollup job's "re-index this node" convention) rather than
// a real event_id.
func IsNodeID(eventID string) bool {
	return strings.HasPrefix(eventID, "toc:")
}
