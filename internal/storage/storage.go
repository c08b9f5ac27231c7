package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.etcd.io/bbolt"

	"github.com/SpillwaveSolutions/agent-memory/internal/logging"
)

var (
	ErrMissingDir    = errors.New("storage dir is required")
	ErrStoreClosed   = errors.New("storage engine is closed")
	ErrKeyNotFound   = errors.New("key not found")
)

// Config controls how the storage engine opens its embedded database.
type Config struct {
	// Dir is the directory holding the bbolt database file.
	Dir string

	// Logger is scoped with component="storage". If nil, logging is
	// discarded.
	Logger *slog.Logger

	// FileMode is applied to the database file. Defaults to 0o640.
	FileMode os.FileMode
}

// Storage is the single-process embedded key/value engine. All bytes
// are opaque to the engine; encoding is the caller's responsibility.
// Recovery after a crash surfaces every committed batch and never a
// partial one — this is bbolt's native guarantee, since every Batch call
// below runs inside one bbolt read-write transaction.
type Storage struct {
	db     *bbolt.DB
	logger *slog.Logger
	closed atomic.Bool

	// outboxSeq is the monotone outbox sequence generator, recovered
	// from the highest persisted outbox key at open time.
	outboxSeq atomic.Uint64
}

// Open creates (if needed) and opens the embedded store at cfg.Dir,
// ensuring every bucket in AllBuckets exists.
func Open(cfg Config) (*Storage, error) {
	if cfg.Dir == "" {
		return nil, ErrMissingDir
	}
	logger := logging.Default(cfg.Logger).With("component", "storage")

	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", cfg.Dir, err)
	}

	mode := cfg.FileMode
	if mode == 0 {
		mode = 0o640
	}

	dbPath := filepath.Join(cfg.Dir, "store.db")
	db, err := bbolt.Open(dbPath, mode, nil)
	if err != nil {
		return nil, fmt.Errorf("open storage %s: %w", dbPath, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range AllBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Storage{db: db, logger: logger}
	if err := s.recoverOutboxSequence(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("storage opened", "dir", cfg.Dir)
	return s, nil
}

// recoverOutboxSequence scans the outbox bucket's last key to resume the
// monotone sequence counter after a restart.
func (s *Storage) recoverOutboxSequence() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketOutbox))
		k, _ := b.Cursor().Last()
		if k == nil {
			return nil
		}
		seq, err := ParseOutboxKey(k)
		if err != nil {
			return err
		}
		s.outboxSeq.Store(seq)
		return nil
	})
}

// NextOutboxSequence atomically allocates and returns the next monotone
// outbox sequence number. Safe for concurrent callers; the ingest path
// calls this inside the Batch that persists the entry, so two racing
// ingests are always assigned distinct, increasing sequences.
func (s *Storage) NextOutboxSequence() uint64 {
	return s.outboxSeq.Add(1)
}

// Close releases the underlying database handle.
func (s *Storage) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.logger.Info("storage closed")
	return s.db.Close()
}

// Compact rewrites the database file to reclaim space from deleted
// outbox entries and pruned index documents, using bbolt's standard
// copy-compact idiom. Scheduled by the Scheduler's weekly compaction
// job (§4.N).
func (s *Storage) Compact() error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	tmpPath := s.db.Path() + ".compact"
	tmp, err := bbolt.Open(tmpPath, 0o640, nil)
	if err != nil {
		return fmt.Errorf("open compaction target: %w", err)
	}
	if err := bboltCompact(tmp, s.db); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("compact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close compaction target: %w", err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close source before swap: %w", err)
	}
	srcPath := s.db.Path()
	if err := os.Rename(tmpPath, srcPath); err != nil {
		return fmt.Errorf("swap compacted store: %w", err)
	}
	db, err := bbolt.Open(srcPath, 0o640, nil)
	if err != nil {
		return fmt.Errorf("reopen compacted store: %w", err)
	}
	s.db = db
	s.logger.Info("storage compacted")
	return nil
}
