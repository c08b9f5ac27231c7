package retrieval

import (
	"context"
	"errors"
	"testing"
)

type fakeLayer struct {
	name    LayerName
	results []SearchResult
	err     error
	healthy bool
}

func (f *fakeLayer) Name() LayerName { return f.name }
func (f *fakeLayer) Healthy(ctx context.Context) bool { return f.healthy }
func (f *fakeLayer) Execute(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	return f.results, f.err
}

func TestClassifyIntentKeywords(t *testing.T) {
	cases := []struct {
		query string
		want  Intent
	}{
		{"what topics were discussed recently", IntentExplore},
		{"where did we find the config bug", IntentLocate},
		{"how did the migration go", IntentAnswer},
		{"totally unrelated text with no keywords", IntentAnswer},
	}
	for _, c := range cases {
		got, _ := ClassifyIntent(c.query, false)
		if got != c.want {
			t.Errorf("ClassifyIntent(%q) = %s, want %s", c.query, got, c.want)
		}
	}
}

func TestClassifyIntentTimeExpressionWins(t *testing.T) {
	got, conf := ClassifyIntent("what topics did we discuss", true)
	if got != IntentTimeBoxed {
		t.Fatalf("got %s, want TimeBoxed", got)
	}
	if conf != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", conf)
	}
}

func TestDetectTierAllHealthyIsFull(t *testing.T) {
	got := DetectTier(Health{Bm25: true, Vector: true, Topics: true, Agentic: true})
	if got != TierFull {
		t.Fatalf("got %s, want Full", got)
	}
}

func TestDetectTierNoneHealthyIsAgentic(t *testing.T) {
	got := DetectTier(Health{Agentic: true})
	if got != TierAgentic {
		t.Fatalf("got %s, want Agentic", got)
	}
}

func TestFallbackChainAlwaysEndsInAgentic(t *testing.T) {
	chain := FallbackChain(IntentAnswer, TierHybrid)
	if len(chain) == 0 || chain[len(chain)-1] != LayerAgentic {
		t.Fatalf("chain = %v, want last element Agentic", chain)
	}
	if chain[0] != LayerHybrid {
		t.Fatalf("chain = %v, want Hybrid first for Answer intent", chain)
	}
}

func TestFallbackChainMatchesHybridExample(t *testing.T) {
	chain := FallbackChain(IntentAnswer, TierHybrid)
	want := []LayerName{LayerHybrid, LayerBm25, LayerAgentic}
	if len(chain) != len(want) {
		t.Fatalf("chain = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Fatalf("chain = %v, want %v", chain, want)
		}
	}
}

func TestRouteSequentialStopsOnFirstNonEmptyWithoutMinConditions(t *testing.T) {
	bm25 := &fakeLayer{name: LayerBm25, healthy: true, results: []SearchResult{{DocID: "a", Score: 1}}}
	vector := &fakeLayer{name: LayerVector, healthy: true, results: []SearchResult{{DocID: "b", Score: 1}}}
	hybrid := &fakeLayer{name: LayerHybrid, healthy: true, results: []SearchResult{{DocID: "h", Score: 1}}}
	agentic := &fakeLayer{name: LayerAgentic, healthy: true, results: []SearchResult{{DocID: "c", Score: 1}}}

	p := New([]Layer{bm25, vector, hybrid, agentic}, nil)
	res, err := p.Route(context.Background(), "how does this work", RouteOptions{})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if res.Explanation.Tier != TierHybrid {
		t.Fatalf("tier = %s, want Hybrid", res.Explanation.Tier)
	}
	if len(res.Results) == 0 {
		t.Fatal("expected non-empty results")
	}
	if res.Explanation.PrimaryLayer != LayerHybrid {
		t.Fatalf("primary = %s, want Hybrid", res.Explanation.PrimaryLayer)
	}
}

func TestRouteDegradesToAgenticWhenNoIndexesConfigured(t *testing.T) {
	agentic := &fakeLayer{name: LayerAgentic, healthy: true, results: []SearchResult{{DocID: "fallback", Score: 0.1}}}
	p := New([]Layer{agentic}, nil)

	res, err := p.Route(context.Background(), "anything", RouteOptions{})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if res.Explanation.Tier != TierAgentic {
		t.Fatalf("tier = %s, want Agentic", res.Explanation.Tier)
	}
}

func TestRouteLayerErrorAdvancesToNextLayer(t *testing.T) {
	hybrid := &fakeLayer{name: LayerHybrid, healthy: true, err: errors.New("index corrupt")}
	bm25 := &fakeLayer{name: LayerBm25, healthy: true, results: []SearchResult{{DocID: "b", Score: 1}}}
	vector := &fakeLayer{name: LayerVector, healthy: true, results: []SearchResult{{DocID: "v", Score: 1}}}
	agentic := &fakeLayer{name: LayerAgentic, healthy: true}

	p := New([]Layer{hybrid, bm25, vector, agentic}, nil)
	res, err := p.Route(context.Background(), "how does it work", RouteOptions{})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if res.Explanation.PrimaryLayer != LayerBm25 {
		t.Fatalf("primary = %s, want BM25", res.Explanation.PrimaryLayer)
	}
	if !res.Explanation.FallbackOccurred {
		t.Fatal("expected fallback_occurred = true")
	}
}
