package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// VectorMeta is the metadata the vector index's metadata store (the
// vector_meta bucket) records for each allocated external id: the
// document it belongs to, when it was added, a truncated text preview,
// and the contributing agent. This bucket is the sole authority mapping
// a vector index's opaque u64 handle back to (doc_type, doc_id).
type VectorMeta struct {
	DocType     string `msgpack:"doc_type"`
	DocID       string `msgpack:"doc_id"`
	CreatedAtMs int64  `msgpack:"created_at_ms"`
	TextPreview string `msgpack:"text_preview"`
	Agent       string `msgpack:"agent,omitempty"`
}

var vectorCounterKey = []byte("vecmeta_counter")

func vectorMetaKey(id uint64) []byte {
	return []byte(fmt.Sprintf("vecmeta:%020d", id))
}

// NextVectorID atomically allocates and persists the next vector index
// id, starting from 1 so 0 can be reserved as a sentinel by callers.
func (s *Storage) NextVectorID() (uint64, error) {
	var id uint64
	err := s.Batch(func(t *Txn) error {
		cur, err := t.Get(BucketVectorMeta, vectorCounterKey)
		if err != nil && err != ErrKeyNotFound {
			return err
		}
		var next uint64
		if err == nil {
			next = binary.BigEndian.Uint64(cur)
		}
		next++
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, next)
		if err := t.Put(BucketVectorMeta, vectorCounterKey, buf); err != nil {
			return err
		}
		id = next
		return nil
	})
	return id, err
}

// PutVectorMeta records metadata for a vector index id.
func (s *Storage) PutVectorMeta(id uint64, m VectorMeta) error {
	b, err := msgpack.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode vector meta: %w", err)
	}
	return s.Batch(func(t *Txn) error {
		return t.Put(BucketVectorMeta, vectorMetaKey(id), b)
	})
}

// GetVectorMeta resolves a vector index id to its metadata.
func (s *Storage) GetVectorMeta(id uint64) (VectorMeta, error) {
	var m VectorMeta
	err := s.View(func(t *Txn) error {
		b, err := t.Get(BucketVectorMeta, vectorMetaKey(id))
		if err != nil {
			return err
		}
		return msgpack.Unmarshal(b, &m)
	})
	return m, err
}

// DeleteVectorMeta removes the metadata entry for a vector index id.
func (s *Storage) DeleteVectorMeta(id uint64) error {
	return s.Batch(func(t *Txn) error {
		return t.Delete(BucketVectorMeta, vectorMetaKey(id))
	})
}

// VectorMetaEntry pairs a vector index id with its metadata, for prune
// scans that need the id to call vector.Index.Remove.
type VectorMetaEntry struct {
	ID   uint64
	Meta VectorMeta
}

// ListVectorMetaBefore returns every vector metadata entry of the given
// doc types created strictly before cutoffMs. Used by the vector prune
// job to find candidates without maintaining a separate time index.
func (s *Storage) ListVectorMetaBefore(cutoffMs int64, docTypes ...string) ([]VectorMetaEntry, error) {
	allowed := make(map[string]bool, len(docTypes))
	for _, dt := range docTypes {
		allowed[dt] = true
	}

	var out []VectorMetaEntry
	err := s.View(func(t *Txn) error {
		var scanErr error
		t.ScanPrefix(BucketVectorMeta, []byte("vecmeta:"), func(key, value []byte) bool {
			var m VectorMeta
			if err := msgpack.Unmarshal(value, &m); err != nil {
				scanErr = err
				return false
			}
			if len(allowed) > 0 && !allowed[m.DocType] {
				return true
			}
			if m.CreatedAtMs >= cutoffMs {
				return true
			}
			id, err := parseVectorMetaKey(key)
			if err != nil {
				scanErr = err
				return false
			}
			out = append(out, VectorMetaEntry{ID: id, Meta: m})
			return true
		})
		return scanErr
	})
	return out, err
}

func parseVectorMetaKey(key []byte) (uint64, error) {
	const prefix = "vecmeta:"
	s := string(key)
	if len(s) <= len(prefix) {
		return 0, fmt.Errorf("vector meta key %q too short", s)
	}
	var id uint64
	_, err := fmt.Sscanf(s[len(prefix):], "%d", &id)
	return id, err
}
