package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.Open(storage.Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAgenticLayerIsAlwaysHealthy(t *testing.T) {
	s := newTestStorage(t)
	l := NewAgenticLayer(s, int64(24*time.Hour/time.Millisecond), 1000)
	if !l.Healthy(context.Background()) {
		t.Fatal("expected AgenticLayer to always be healthy")
	}
}

func TestAgenticLayerFindsSubstringMatch(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()
	id := ulid.MustNew(ulid.Timestamp(now), nil).String()
	err := s.Batch(func(txn *storage.Txn) error {
		return txn.PutEvent(types.Event{
			EventID:   id,
			SessionID: "s1",
			Timestamp: now,
			EventType: types.EventUserMessage,
			Role:      types.RoleUser,
			Text:      "the quick brown fox",
		})
	})
	if err != nil {
		t.Fatalf("PutEvent: %v", err)
	}

	l := NewAgenticLayer(s, int64(24*time.Hour/time.Millisecond), 1000)
	results, err := l.Execute(context.Background(), "brown", 10)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 1 || results[0].DocID != id {
		t.Fatalf("results = %+v", results)
	}
}

func TestAgenticLayerNoMatchReturnsEmpty(t *testing.T) {
	s := newTestStorage(t)
	l := NewAgenticLayer(s, int64(24*time.Hour/time.Millisecond), 1000)
	results, err := l.Execute(context.Background(), "nonexistent", 10)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %+v, want empty", results)
	}
}

func TestHybridLayerFusesBothSources(t *testing.T) {
	bm25 := &fakeLayer{name: LayerBm25, healthy: true, results: []SearchResult{
		{DocID: "a", Score: 2},
		{DocID: "b", Score: 1},
	}}
	vector := &fakeLayer{name: LayerVector, healthy: true, results: []SearchResult{
		{DocID: "b", Score: 0.9},
		{DocID: "c", Score: 0.5},
	}}

	l := NewHybridLayer(bm25, vector)
	if l.Name() != LayerHybrid {
		t.Fatalf("Name() = %s, want Hybrid", l.Name())
	}
	if !l.Healthy(context.Background()) {
		t.Fatal("expected HybridLayer to be healthy when both sources are healthy")
	}

	results, err := l.Execute(context.Background(), "query", 10)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %+v, want 3 fused docs", results)
	}
	// "b" appears in both sources at rank 1 and rank 0 respectively, so it
	// accumulates the highest combined RRF score and should come first.
	if results[0].DocID != "b" {
		t.Fatalf("results[0].DocID = %s, want b (seen in both sources)", results[0].DocID)
	}
}

func TestHybridLayerTakesSoleSurvivorWhenOneSourceErrors(t *testing.T) {
	bm25 := &fakeLayer{name: LayerBm25, healthy: true, err: errors.New("index corrupt")}
	vector := &fakeLayer{name: LayerVector, healthy: true, results: []SearchResult{{DocID: "v", Score: 1}}}

	l := NewHybridLayer(bm25, vector)
	results, err := l.Execute(context.Background(), "query", 10)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 1 || results[0].DocID != "v" {
		t.Fatalf("results = %+v, want sole vector hit", results)
	}
}

func TestHybridLayerErrorsWhenBothSourcesFail(t *testing.T) {
	bm25 := &fakeLayer{name: LayerBm25, healthy: true, err: errors.New("bm25 down")}
	vector := &fakeLayer{name: LayerVector, healthy: true, err: errors.New("vector down")}

	l := NewHybridLayer(bm25, vector)
	if _, err := l.Execute(context.Background(), "query", 10); err == nil {
		t.Fatal("expected an error when both sources fail")
	}
}

func TestHybridLayerUnhealthyWhenEitherSourceUnhealthy(t *testing.T) {
	bm25 := &fakeLayer{name: LayerBm25, healthy: false}
	vector := &fakeLayer{name: LayerVector, healthy: true}

	l := NewHybridLayer(bm25, vector)
	if l.Healthy(context.Background()) {
		t.Fatal("expected HybridLayer to be unhealthy when bm25 side is unhealthy")
	}
}
