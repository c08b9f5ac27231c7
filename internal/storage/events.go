package storage

import (
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// PutEvent writes an event into the given transaction. The caller is
// responsible for idempotence checks (see internal/ingest) — PutEvent
// itself unconditionally overwrites.
func (t *Txn) PutEvent(e types.Event) error {
	id, err := ulid.Parse(e.EventID)
	if err != nil {
		return fmt.Errorf("event_id is not a valid ulid: %w", err)
	}
	b, err := encodeEvent(e)
	if err != nil {
		return err
	}
	return t.Put(BucketEvents, EventKey(e.Timestamp.UnixMilli(), id), b)
}

// HasEvent reports whether an event with the given id and timestamp
// already exists, implementing the ingest idempotence check.
func (t *Txn) HasEvent(eventID string, timestampMs int64) (bool, error) {
	id, err := ulid.Parse(eventID)
	if err != nil {
		return false, fmt.Errorf("event_id is not a valid ulid: %w", err)
	}
	return t.Has(BucketEvents, EventKey(timestampMs, id)), nil
}

// GetEventsInRange returns every event with timestamp in [fromMs, toMs],
// inclusive, in time order.
func (t *Txn) GetEventsInRange(fromMs, toMs int64) ([]types.Event, error) {
	var out []types.Event
	var decodeErr error
	t.ScanRange(BucketEvents, EventKeyPrefix(fromMs), EventKeyPrefix(toMs+1), func(_, v []byte) bool {
		e, err := decodeEvent(v)
		if err != nil {
			decodeErr = err
			return false
		}
		out = append(out, e)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return out, nil
}

// GetEventsInRange is the read-only convenience wrapper around a single
// View transaction, used by callers outside an existing batch (the Grip
// Expander and the façade's event range query).
func (s *Storage) GetEventsInRange(fromMs, toMs int64) ([]types.Event, error) {
	var out []types.Event
	err := s.View(func(t *Txn) error {
		var err error
		out, err = t.GetEventsInRange(fromMs, toMs)
		return err
	})
	return out, err
}

// PutOutboxEntry appends an outbox entry at the given sequence number.
func (t *Txn) PutOutboxEntry(entry types.OutboxEntry) error {
	b, err := encodeOutboxEntry(entry)
	if err != nil {
		return err
	}
	return t.Put(BucketOutbox, OutboxKey(entry.Sequence), b)
}

// ScanOutboxAfter iterates outbox entries with sequence > afterSeq, up
// to limit entries, in sequence order.
func (t *Txn) ScanOutboxAfter(afterSeq uint64, limit int) ([]types.OutboxEntry, error) {
	var out []types.OutboxEntry
	var decodeErr error
	start := OutboxKey(afterSeq + 1)
	t.ScanRange(BucketOutbox, start, nil, func(_, v []byte) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}
		e, err := decodeOutboxEntry(v)
		if err != nil {
			decodeErr = err
			return false
		}
		out = append(out, e)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return out, nil
}

// DeleteOutboxEntry removes a processed outbox entry.
func (t *Txn) DeleteOutboxEntry(sequence uint64) error {
	return t.Delete(BucketOutbox, OutboxKey(sequence))
}

// ScanOutboxAfter and DeleteOutboxEntry convenience wrappers for callers
// outside an existing batch (the indexing pipeline runs its own
// transactions per iteration).
func (s *Storage) ScanOutboxAfter(afterSeq uint64, limit int) ([]types.OutboxEntry, error) {
	var out []types.OutboxEntry
	err := s.View(func(t *Txn) error {
		var err error
		out, err = t.ScanOutboxAfter(afterSeq, limit)
		return err
	})
	return out, err
}

func (s *Storage) DeleteOutboxEntry(sequence uint64) error {
	return s.Batch(func(t *Txn) error { return t.DeleteOutboxEntry(sequence) })
}

// PutCheckpoint writes a checkpoint under checkpoint:{job_name}.
func (t *Txn) PutCheckpoint(c types.Checkpoint) error {
	b, err := encodeCheckpoint(c)
	if err != nil {
		return err
	}
	return t.Put(BucketCheckpoints, CheckpointKey(c.JobName), b)
}

// GetCheckpoint reads a checkpoint by job name. Returns ErrKeyNotFound
// if none has been written yet.
func (t *Txn) GetCheckpoint(jobName string) (types.Checkpoint, error) {
	b, err := t.Get(BucketCheckpoints, CheckpointKey(jobName))
	if err != nil {
		return types.Checkpoint{}, err
	}
	return decodeCheckpoint(b)
}

// PutCheckpoint and GetCheckpoint convenience wrappers for callers
// outside an existing batch (scheduler jobs run their own transactions).
func (s *Storage) PutCheckpoint(c types.Checkpoint) error {
	return s.Batch(func(t *Txn) error { return t.PutCheckpoint(c) })
}

func (s *Storage) GetCheckpoint(jobName string) (types.Checkpoint, error) {
	var c types.Checkpoint
	err := s.View(func(t *Txn) error {
		var err error
		c, err = t.GetCheckpoint(jobName)
		return err
	})
	return c, err
}

// EventCount returns the total number of stored events. Used by
// diagnostics/status endpoints.
func (s *Storage) EventCount() (int, error) {
	n := 0
	err := s.View(func(t *Txn) error {
		n = t.Count(BucketEvents)
		return nil
	})
	return n, err
}
