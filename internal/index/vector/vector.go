// Package vector wraps github.com/coder/hnsw with a fixed-dimension
// cosine-metric index and a bbolt-backed metadata store mapping the
// opaque u64 handles HNSW deals in back to (doc_type, doc_id).
//
// The HNSW graph is the source of truth for neighbor search; the
// metadata store (a dedicated bucket in the same kv file the rest of
// the system uses) is the source of truth for id allocation and for
// resolving a search hit back to a document.
package vector

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/SpillwaveSolutions/agent-memory/internal/logging"
	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
)

// ErrDimensionMismatch is returned when a vector's length doesn't match
// the index's fixed dimension.
var ErrDimensionMismatch = errors.New("vector: dimension mismatch")

// Config tunes the HNSW graph. EfConstruction is recorded for parity
// with the tuning table but is not separately wired into coder/hnsw,
// which derives construction-time search depth from M rather than
// exposing an independent ef_construction knob; it is kept here so the
// configuration surface matches the documented tuning defaults.
type Config struct {
	Dimension     int
	M             int
	EfConstruction int
	EfSearch      int
}

// DefaultConfig returns the documented tuning defaults: dimension 384,
// M=16, construction expansion 200 (recorded only), search expansion 100.
func DefaultConfig() Config {
	return Config{Dimension: 384, M: 16, EfConstruction: 200, EfSearch: 100}
}

// Meta is the metadata recorded for a vector's external id.
type Meta struct {
	DocType     string
	DocID       string
	CreatedAtMs int64
	TextPreview string
	Agent       string
}

// Hit is a search result: the resolved metadata plus similarity, where
// similarity = 1 - cosine_distance, sorted descending.
type Hit struct {
	ID         uint64
	Meta       Meta
	Similarity float32
}

const textPreviewMaxChars = 200

// Index is a single-writer, many-reader HNSW index gated behind mu, with
// the graph persisted to graphPath and metadata persisted in store.
type Index struct {
	mu        sync.RWMutex
	graph     *hnsw.Graph[uint64]
	graphPath string
	store     *storage.Storage
	cfg       Config
	logger    *slog.Logger
}

// Open loads the graph from graphPath if it exists, otherwise starts an
// empty one. store must already be open; its BucketVectorMeta bucket
// holds the id->metadata mapping and the next-id counter.
func Open(graphPath string, store *storage.Storage, cfg Config, logger *slog.Logger) (*Index, error) {
	logger = logging.Default(logger).With("component", "vector-index")

	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	if cfg.M > 0 {
		g.M = cfg.M
	}
	if cfg.EfSearch > 0 {
		g.EfSearch = cfg.EfSearch
	}

	if f, err := os.Open(graphPath); err == nil {
		defer f.Close()
		imported, err := hnsw.Import[uint64](f)
		if err != nil {
			return nil, fmt.Errorf("vector: import graph from %s: %w", graphPath, err)
		}
		g = imported
		logger.Info("loaded vector graph", "path", graphPath, "size", g.Len())
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("vector: open graph file %s: %w", graphPath, err)
	}

	return &Index{graph: g, graphPath: graphPath, store: store, cfg: cfg, logger: logger}, nil
}

// Add allocates a fresh id for (docType, docID), adds vec to the graph,
// and records its metadata. Returns the allocated id.
func (x *Index) Add(vec []float32, meta Meta) (uint64, error) {
	if len(vec) != x.cfg.Dimension {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), x.cfg.Dimension)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	id, err := x.store.NextVectorID()
	if err != nil {
		return 0, fmt.Errorf("vector: allocate id: %w", err)
	}
	if err := x.store.PutVectorMeta(id, storage.VectorMeta{
		DocType:     meta.DocType,
		DocID:       meta.DocID,
		CreatedAtMs: meta.CreatedAtMs,
		TextPreview: truncatePreview(meta.TextPreview),
		Agent:       meta.Agent,
	}); err != nil {
		return 0, fmt.Errorf("vector: persist metadata: %w", err)
	}

	x.graph.Add(hnsw.MakeNode(id, vec))
	return id, nil
}

// Remove deletes id from the graph and its metadata entry.
func (x *Index) Remove(id uint64) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.graph.Delete(id)
	return x.store.DeleteVectorMeta(id)
}

// Search returns up to k nearest neighbors of query, resolved to their
// metadata, sorted by descending similarity. Returns ErrDimensionMismatch
// if query's length doesn't match the index's configured dimension.
func (x *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != x.cfg.Dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), x.cfg.Dimension)
	}
	if k <= 0 {
		k = 10
	}

	x.mu.RLock()
	neighbors := x.graph.Search(query, k)
	x.mu.RUnlock()

	out := make([]Hit, 0, len(neighbors))
	for _, n := range neighbors {
		meta, err := x.store.GetVectorMeta(n.Key)
		if err != nil {
			if errors.Is(err, storage.ErrKeyNotFound) {
				continue
			}
			return nil, fmt.Errorf("vector: resolve metadata for id %d: %w", n.Key, err)
		}
		dist := hnsw.CosineDistance(query, n.Value)
		out = append(out, Hit{
			ID: n.Key,
			Meta: Meta{
				DocType:     meta.DocType,
				DocID:       meta.DocID,
				CreatedAtMs: meta.CreatedAtMs,
				TextPreview: meta.TextPreview,
				Agent:       meta.Agent,
			},
			Similarity: 1 - dist,
		})
	}
	return out, nil
}

// Len reports the number of vectors currently in the graph.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.graph.Len()
}

// Save serializes the graph to graphPath, via a temp file + rename so a
// crash mid-write never leaves a truncated graph file behind.
func (x *Index) Save() error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	dir := filepath.Dir(x.graphPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vector: create graph dir: %w", err)
	}

	var buf bytes.Buffer
	if err := x.graph.Export(&buf); err != nil {
		return fmt.Errorf("vector: export graph: %w", err)
	}

	tmp := x.graphPath + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("vector: write temp graph file: %w", err)
	}
	if err := os.Rename(tmp, x.graphPath); err != nil {
		return fmt.Errorf("vector: rename graph file: %w", err)
	}
	return nil
}

// Clear empties the graph in memory; callers that also want the
// metadata store cleared and the on-disk file removed must do so
// explicitly (used by the rebuild-from-storage recovery path).
func (x *Index) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.graph = hnsw.NewGraph[uint64]()
	x.graph.Distance = hnsw.CosineDistance
	if x.cfg.M > 0 {
		x.graph.M = x.cfg.M
	}
	if x.cfg.EfSearch > 0 {
		x.graph.EfSearch = x.cfg.EfSearch
	}
}

func truncatePreview(s string) string {
	r := []rune(s)
	if len(r) <= textPreviewMaxChars {
		return s
	}
	return string(r[:textPreviewMaxChars])
}
