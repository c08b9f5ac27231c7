package retrieval

// layerPreference orders the non-Agentic layers by how well each intent
// is served, most-preferred first. Hybrid (fused BM25+Vector) outranks
// standalone Vector wherever both are available, since a tier that can
// run Hybrid never needs the unfused layer on its own. Agentic is
// appended to every chain separately since it always "succeeds" (it has
// no index to be empty) and is the universal last resort.
var layerPreference = map[Intent][]LayerName{
	IntentExplore:   {LayerTopics, LayerHybrid, LayerVector, LayerBm25},
	IntentAnswer:    {LayerHybrid, LayerVector, LayerBm25, LayerTopics},
	IntentLocate:    {LayerBm25, LayerHybrid, LayerVector, LayerTopics},
	IntentTimeBoxed: {LayerBm25, LayerHybrid, LayerVector, LayerTopics},
}

// tierLayers lists which layers a tier makes available at all. Full and
// Hybrid expose the fused Hybrid layer instead of standalone Vector,
// since both BM25 and Vector are healthy whenever either of those tiers
// is detected; Semantic and Keyword only ever have one of the two
// underlying indexes healthy, so they expose that layer unfused.
var tierLayers = map[Tier]map[LayerName]bool{
	TierFull:     {LayerHybrid: true, LayerBm25: true, LayerTopics: true},
	TierHybrid:   {LayerHybrid: true, LayerBm25: true},
	TierSemantic: {LayerVector: true},
	TierKeyword:  {LayerBm25: true},
	TierAgentic:  {},
}

// FallbackChain builds the ordered list of layers to try for a given
// (intent, tier) pair: the intent's preferred layer order, filtered down
// to the layers the tier actually makes available, with Agentic always
// appended last as the universal fallback.
//
//	(Answer, Hybrid) → [Hybrid, BM25, Agentic]
func FallbackChain(intent Intent, tier Tier) []LayerName {
	available := tierLayers[tier]
	pref := layerPreference[intent]

	chain := make([]LayerName, 0, len(pref)+1)
	for _, layer := range pref {
		if available[layer] {
			chain = append(chain, layer)
		}
	}
	chain = append(chain, LayerAgentic)
	return chain
}
