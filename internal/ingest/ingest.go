// Package ingest implements the event ingestion entrypoint: validate,
// then atomically write the event and an outbox entry that downstream
// indexers will consume.
package ingest

import (
	"context"
	"log/slog"

	"github.com/SpillwaveSolutions/agent-memory/internal/logging"
	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// Ingester is the event ingest entrypoint.
type Ingester struct {
	store  *storage.Storage
	logger *slog.Logger
}

// New creates an Ingester over store. A nil logger discards all output.
func New(store *storage.Storage, logger *slog.Logger) *Ingester {
	logger = logging.Default(logger)
	return &Ingester{store: store, logger: logger.With("component", "ingest")}
}

// Ingest validates and persists a single event. created is false when
// event_id already existed — the call is idempotent and writes nothing
// in that case. ctx is accepted for cancellation/deadline propagation
// even though the write itself does not suspend.
func (g *Ingester) Ingest(ctx context.Context, e types.Event) (eventID string, created bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if err := e.Validate(); err != nil {
		return "", false, err
	}

	tsMs := e.Timestamp.UnixMilli()
	err = g.store.Batch(func(t *storage.Txn) error {
		exists, err := t.HasEvent(e.EventID, tsMs)
		if err != nil {
			return err
		}
		if exists {
			created = false
			return nil
		}
		if err := t.PutEvent(e); err != nil {
			return err
		}
		seq := g.store.NextOutboxSequence()
		entry := types.OutboxEntry{
			Sequence:    seq,
			EventID:     e.EventID,
			TimestampMs: tsMs,
			Action:      types.ActionIndexEvent,
		}
		if err := t.PutOutboxEntry(entry); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return "", false, err
	}

	if created {
		g.logger.Debug("event ingested", "event_id", e.EventID, "session_id", e.SessionID)
	}
	return e.EventID, created, nil
}
