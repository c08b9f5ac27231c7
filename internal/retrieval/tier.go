package retrieval

// LayerName identifies one retrieval layer.
type LayerName string

const (
	LayerBm25    LayerName = "BM25"
	LayerVector  LayerName = "Vector"
	LayerHybrid  LayerName = "Hybrid"
	LayerTopics  LayerName = "Topics"
	LayerAgentic LayerName = "Agentic"
)

// Tier is the capability posture achievable given which layers are
// healthy, ordered Full > Hybrid > Semantic > Keyword > Agentic.
type Tier string

const (
	TierFull     Tier = "Full"
	TierHybrid   Tier = "Hybrid"
	TierSemantic Tier = "Semantic"
	TierKeyword  Tier = "Keyword"
	TierAgentic  Tier = "Agentic"
)

// Health reports whether each layer is configured, reachable, and (for
// indexes) non-empty. Agentic has no index to be empty; it is healthy
// whenever an agentic fallback executor is registered at all.
type Health struct {
	Bm25    bool
	Vector  bool
	Topics  bool
	Agentic bool
}

// DetectTier derives the capability tier from layer health.
func DetectTier(h Health) Tier {
	switch {
	case h.Bm25 && h.Vector && h.Topics:
		return TierFull
	case h.Bm25 && h.Vector:
		return TierHybrid
	case h.Vector:
		return TierSemantic
	case h.Bm25:
		return TierKeyword
	default:
		return TierAgentic
	}
}
