package vector

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
)

func openTestIndex(t *testing.T, cfg Config) (*Index, *storage.Storage) {
	t.Helper()
	s, err := storage.Open(storage.Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	graphPath := filepath.Join(t.TempDir(), "graph.hnsw")
	idx, err := Open(graphPath, s, cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return idx, s
}

func unitVec(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1
	return v
}

func TestAddAndSearchReturnsNearestNeighbor(t *testing.T) {
	cfg := Config{Dimension: 4, M: 16, EfSearch: 100}
	idx, _ := openTestIndex(t, cfg)

	idA, err := idx.Add(unitVec(4, 0), Meta{DocType: "grip", DocID: "a"})
	if err != nil {
		t.Fatalf("Add a: %v", err)
	}
	_, err = idx.Add(unitVec(4, 3), Meta{DocType: "grip", DocID: "b"})
	if err != nil {
		t.Fatalf("Add b: %v", err)
	}

	hits, err := idx.Search(unitVec(4, 0), 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != idA || hits[0].Meta.DocID != "a" {
		t.Fatalf("hits = %v, want nearest to be %d/a", hits, idA)
	}
	if hits[0].Similarity < 0.99 {
		t.Fatalf("similarity = %v, want ~1.0 for exact match", hits[0].Similarity)
	}
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	idx, _ := openTestIndex(t, Config{Dimension: 4})
	_, err := idx.Add([]float32{1, 2, 3}, Meta{DocType: "grip", DocID: "a"})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestSearchRejectsDimensionMismatch(t *testing.T) {
	idx, _ := openTestIndex(t, Config{Dimension: 4})
	_, err := idx.Search([]float32{1, 2, 3}, 5)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestRemoveDropsFromGraphAndMetadata(t *testing.T) {
	idx, s := openTestIndex(t, Config{Dimension: 4})
	id, err := idx.Add(unitVec(4, 0), Meta{DocType: "grip", DocID: "a"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Remove(id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if idx.Len() != 0 {
		t.Fatalf("Len = %d, want 0", idx.Len())
	}
	if _, err := s.GetVectorMeta(id); !errors.Is(err, storage.ErrKeyNotFound) {
		t.Fatalf("GetVectorMeta after remove: err = %v, want ErrKeyNotFound", err)
	}
}

func TestSaveAndReopenPreservesGraph(t *testing.T) {
	s, err := storage.Open(storage.Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	graphPath := filepath.Join(t.TempDir(), "graph.hnsw")
	cfg := Config{Dimension: 4, M: 16, EfSearch: 100}

	idx, err := Open(graphPath, s, cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := idx.Add(unitVec(4, 0), Meta{DocType: "grip", DocID: "a"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := Open(graphPath, s, cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Len() != 1 {
		t.Fatalf("reopened Len = %d, want 1", reopened.Len())
	}
	hits, err := reopened.Search(unitVec(4, 0), 1)
	if err != nil {
		t.Fatalf("Search after reopen: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != id {
		t.Fatalf("hits after reopen = %v", hits)
	}
}
