package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/SpillwaveSolutions/agent-memory/internal/index/bm25"
	"github.com/SpillwaveSolutions/agent-memory/internal/index/vector"
	"github.com/SpillwaveSolutions/agent-memory/internal/retrieval/fusion"
)

// Bm25Layer adapts a bm25.Index to the Layer contract.
type Bm25Layer struct {
	idx *bm25.Index
}

// NewBm25Layer wraps idx as a keyword-search Layer.
func NewBm25Layer(idx *bm25.Index) *Bm25Layer {
	return &Bm25Layer{idx: idx}
}

func (l *Bm25Layer) Name() LayerName { return LayerBm25 }

func (l *Bm25Layer) Execute(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	hits, err := l.idx.Search(query, "", limit)
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, SearchResult{DocType: h.DocType, DocID: h.DocID, Score: h.Score})
	}
	return results, nil
}

func (l *Bm25Layer) Healthy(ctx context.Context) bool {
	return l.idx != nil
}

// VectorLayer adapts a vector.Index to the Layer contract, embedding the
// query text with embedder before searching.
type VectorLayer struct {
	idx      *vector.Index
	embedder vector.Embedder
}

// NewVectorLayer wraps idx as a semantic-search Layer.
func NewVectorLayer(idx *vector.Index, embedder vector.Embedder) *VectorLayer {
	return &VectorLayer{idx: idx, embedder: embedder}
}

func (l *VectorLayer) Name() LayerName { return LayerVector }

func (l *VectorLayer) Execute(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	vec, err := l.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := l.idx.Search(vec, limit)
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, SearchResult{
			DocType: h.Meta.DocType,
			DocID:   h.Meta.DocID,
			Text:    h.Meta.TextPreview,
			Score:   float64(h.Similarity),
		})
	}
	return results, nil
}

func (l *VectorLayer) Healthy(ctx context.Context) bool {
	return l.idx != nil && l.embedder != nil
}

// HybridLayer runs a keyword layer and a semantic layer concurrently and
// fuses their ranked lists with Reciprocal Rank Fusion, so a caller that
// wants the blended Hybrid tier doesn't have to run both layers itself
// and merge the results by hand.
type HybridLayer struct {
	bm25   Layer
	vector Layer
}

// NewHybridLayer wraps a keyword and a semantic layer as a single fused
// Layer. bm25 and vector are typically the same *Bm25Layer/*VectorLayer
// instances already registered standalone with the Policy.
func NewHybridLayer(bm25, vector Layer) *HybridLayer {
	return &HybridLayer{bm25: bm25, vector: vector}
}

func (l *HybridLayer) Name() LayerName { return LayerHybrid }

func (l *HybridLayer) Execute(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	overfetch := limit * 2
	if overfetch <= 0 {
		overfetch = limit
	}

	var wg sync.WaitGroup
	var bm25Results, vectorResults []SearchResult
	var bm25Err, vectorErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		bm25Results, bm25Err = l.bm25.Execute(ctx, query, overfetch)
	}()
	go func() {
		defer wg.Done()
		vectorResults, vectorErr = l.vector.Execute(ctx, query, overfetch)
	}()
	wg.Wait()

	if bm25Err != nil && vectorErr != nil {
		return nil, fmt.Errorf("hybrid layer: both sources failed: bm25: %v, vector: %v", bm25Err, vectorErr)
	}

	byDocID := make(map[string]SearchResult, len(bm25Results)+len(vectorResults))
	sources := make([]fusion.Source, 0, 2)

	if bm25Err == nil {
		sources = append(sources, fusion.Source{Name: "bm25", Weight: bm25Weight, Results: toFusionResults(bm25Results, byDocID)})
	}
	if vectorErr == nil {
		sources = append(sources, fusion.Source{Name: "vector", Weight: vectorWeight, Results: toFusionResults(vectorResults, byDocID)})
	}

	fused := fusion.RRF(sources, limit)
	results := make([]SearchResult, 0, len(fused))
	for _, f := range fused {
		r := byDocID[f.DocID]
		r.Score = f.Score
		results = append(results, r)
	}
	return results, nil
}

func (l *HybridLayer) Healthy(ctx context.Context) bool {
	return l.bm25 != nil && l.vector != nil && l.bm25.Healthy(ctx) && l.vector.Healthy(ctx)
}

var bm25Weight, vectorWeight = fusion.DefaultWeights()

func toFusionResults(results []SearchResult, byDocID map[string]SearchResult) []fusion.Result {
	out := make([]fusion.Result, len(results))
	for i, r := range results {
		out[i] = fusion.Result{DocID: r.DocID, Rank: i}
		if _, ok := byDocID[r.DocID]; !ok {
			byDocID[r.DocID] = r
		}
	}
	return out
}
