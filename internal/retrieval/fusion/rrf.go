// Package fusion combines ranked result lists from multiple retrieval
// layers into one ranking, the way the hybrid tier blends BM25 and
// vector search. The merge strategy is modeled on a multi-source,
// rank-ordered combine idiom: instead of interleaving cursors by
// timestamp, it interleaves ranked lists by reciprocal rank.
package fusion

import "sort"

// Result is one ranked hit from a single retrieval layer, identified by
// DocID. Rank is this hit's 0-based position within its own source list,
// independent of any other source.
type Result struct {
	DocID string
	Rank  int
}

// Scored is a document after fusion, with its fused score.
type Scored struct {
	DocID string
	Score float64
}

// Source is one ranked list contributed by a layer, with its fusion
// weight. Weights default to 0.5/0.5 for a two-source hybrid blend but
// the formula generalizes to any number of sources.
type Source struct {
	Name    string
	Weight  float64
	Results []Result
}

// K is the RRF rank-offset constant. Larger k flattens the influence of
// rank differences near the top of each list.
const K = 60

// RRF computes Reciprocal Rank Fusion over sources:
//
//	rrf(d) = Σ_source (weight_source / (K + rank_source(d) + 1))
//
// summed across every source d appears in. Sources should already be
// over-fetched (2×top_k is the caller's convention) so truncation after
// fusion doesn't starve a document that ranked just outside one source's
// naive top_k. Ties in the final score are broken by whichever
// contributing source ranked the document earliest (the "earlier-ranked
// document wins" rule); this is stable because Go's sort.SliceStable
// preserves the original Results order within a tie, and callers pass
// sources in priority order.
func RRF(sources []Source, topK int) []Scored {
	scores := make(map[string]float64)
	firstRank := make(map[string]int)
	order := make([]string, 0)

	for _, src := range sources {
		for _, r := range src.Results {
			if _, seen := scores[r.DocID]; !seen {
				order = append(order, r.DocID)
				firstRank[r.DocID] = r.Rank
			} else if r.Rank < firstRank[r.DocID] {
				firstRank[r.DocID] = r.Rank
			}
			scores[r.DocID] += src.Weight / float64(K+r.Rank+1)
		}
	}

	out := make([]Scored, len(order))
	for i, id := range order {
		out[i] = Scored{DocID: id, Score: scores[id]}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return firstRank[out[i].DocID] < firstRank[out[j].DocID]
	})

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

// DefaultWeights returns the standard 0.5/0.5 two-source blend.
func DefaultWeights() (bm25Weight, vectorWeight float64) {
	return 0.5, 0.5
}
