// Package retrieval implements the query routing policy: classify
// intent, detect the achievable capability tier, build a fallback chain
// of layers, execute it (sequentially or in parallel), and report an
// explainability payload alongside the results.
//
// Layer implementations are abstracted behind a single contract so the
// policy never branches on which concrete layer it's talking to — the
// same shape as the teacher's query engine treating every backing store
// as an interchangeable cursor source.
package retrieval

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SpillwaveSolutions/agent-memory/internal/logging"
)

// SearchResult is one hit returned by a layer, independent of which
// layer produced it.
type SearchResult struct {
	DocType string
	DocID   string
	Text    string
	Score   float64
}

// Layer is the single contract every retrieval backend implements.
type Layer interface {
	Name() LayerName
	Execute(ctx context.Context, query string, limit int) ([]SearchResult, error)
	// Healthy reports whether this layer is configured, reachable, and
	// (for indexes) non-empty.
	Healthy(ctx context.Context) bool
}

// Mode selects how the fallback chain is walked.
type Mode string

const (
	// ModeSequential tries each layer in order, advancing on an empty
	// result or error. Layers have no timeout of their own; every layer
	// runs under the one overall timeout from StopConditions.
	ModeSequential Mode = "Sequential"
	// ModeParallel fans every layer in the chain out concurrently,
	// awaits all of them, and merges whatever came back.
	ModeParallel Mode = "Parallel"
)

// StopConditions bound how much of the fallback chain gets walked.
type StopConditions struct {
	OverallTimeout time.Duration
	MinResults     int
	MinScore       float64
}

// DefaultStopConditions returns permissive defaults: a 10s overall
// timeout and no minimum result count or score, so a sequential walk
// stops at the first layer that returns any result.
func DefaultStopConditions() StopConditions {
	return StopConditions{OverallTimeout: 10 * time.Second}
}

func (s StopConditions) satisfied(results []SearchResult) bool {
	if s.MinResults > 0 && len(results) < s.MinResults {
		return false
	}
	if s.MinScore > 0 {
		best := 0.0
		for _, r := range results {
			if r.Score > best {
				best = r.Score
			}
		}
		if best < s.MinScore {
			return false
		}
	}
	return true
}

// Explanation is the routing decision's audit trail, returned alongside
// every RouteQuery result.
type Explanation struct {
	Intent               Intent
	Tier                 Tier
	LayersAttempted      []LayerName
	PrimaryLayer         LayerName
	CandidatesConsidered int
	ResultCount          int
	FallbackOccurred     bool
}

// RouteOptions lets a caller override what would otherwise be derived
// automatically.
type RouteOptions struct {
	IntentOverride *Intent
	HasTimeExpr    bool
	Mode           Mode
	Stop           StopConditions
	Limit          int
}

// RouteResult bundles the merged results with their explanation.
type RouteResult struct {
	Results     []SearchResult
	Explanation Explanation
}

// Policy routes queries across registered layers.
type Policy struct {
	layers map[LayerName]Layer
	logger *slog.Logger
}

// New creates a Policy over the given layers. A nil logger discards
// output. Layers absent from the map are simply skipped wherever the
// fallback chain names them — a Policy can be constructed with any
// subset of {BM25, Vector, Topics, Agentic} registered.
func New(layers []Layer, logger *slog.Logger) *Policy {
	m := make(map[LayerName]Layer, len(layers))
	for _, l := range layers {
		m[l.Name()] = l
	}
	return &Policy{layers: m, logger: logging.Default(logger).With("component", "retrieval-policy")}
}

// Route classifies the query, detects the tier, builds the fallback
// chain, executes it per opts.Mode, and returns the merged results with
// an explanation.
func (p *Policy) Route(ctx context.Context, query string, opts RouteOptions) (RouteResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Stop == (StopConditions{}) {
		opts.Stop = DefaultStopConditions()
	}
	if opts.Mode == "" {
		opts.Mode = ModeSequential
	}

	intent := opts.IntentOverride
	var classified Intent
	if intent != nil {
		classified = *intent
	} else {
		classified, _ = ClassifyIntent(query, opts.HasTimeExpr)
	}

	health := p.detectHealth(ctx)
	tier := DetectTier(health)
	chain := FallbackChain(classified, tier)

	ctx, cancel := context.WithTimeout(ctx, opts.Stop.OverallTimeout)
	defer cancel()

	var (
		results   []SearchResult
		attempted []LayerName
		primary   LayerName
		candCount int
	)

	switch opts.Mode {
	case ModeParallel:
		results, attempted, primary, candCount = p.executeParallel(ctx, chain, query, opts.Limit)
	default:
		results, attempted, primary, candCount = p.executeSequential(ctx, chain, query, opts.Limit, opts.Stop)
	}

	return RouteResult{
		Results: results,
		Explanation: Explanation{
			Intent:               classified,
			Tier:                 tier,
			LayersAttempted:      attempted,
			PrimaryLayer:         primary,
			CandidatesConsidered: candCount,
			ResultCount:          len(results),
			FallbackOccurred:     len(attempted) > 1,
		},
	}, nil
}

func (p *Policy) detectHealth(ctx context.Context) Health {
	return Health{
		Bm25:    p.layerHealthy(ctx, LayerBm25),
		Vector:  p.layerHealthy(ctx, LayerVector),
		Topics:  p.layerHealthy(ctx, LayerTopics),
		Agentic: p.layerHealthy(ctx, LayerAgentic),
	}
}

func (p *Policy) layerHealthy(ctx context.Context, name LayerName) bool {
	l, ok := p.layers[name]
	if !ok {
		return false
	}
	return l.Healthy(ctx)
}

func (p *Policy) executeSequential(ctx context.Context, chain []LayerName, query string, limit int, stop StopConditions) ([]SearchResult, []LayerName, LayerName, int) {
	var attempted []LayerName
	var primary LayerName
	var merged []SearchResult
	candidates := 0

	for _, name := range chain {
		layer, ok := p.layers[name]
		if !ok {
			continue
		}
		attempted = append(attempted, name)

		results, err := layer.Execute(ctx, query, limit)
		if err != nil {
			p.logger.Warn("layer failed", "layer", name, "error", err)
			continue
		}
		candidates += len(results)
		if len(results) == 0 {
			continue
		}
		if primary == "" {
			primary = name
		}
		merged = append(merged, results...)
		if stop.satisfied(merged) {
			break
		}
	}
	return merged, attempted, primary, candidates
}

func (p *Policy) executeParallel(ctx context.Context, chain []LayerName, query string, limit int) ([]SearchResult, []LayerName, LayerName, int) {
	type outcome struct {
		name    LayerName
		results []SearchResult
		err     error
	}

	var attempted []LayerName
	var wg sync.WaitGroup
	outcomes := make([]outcome, 0, len(chain))
	var mu sync.Mutex

	for _, name := range chain {
		layer, ok := p.layers[name]
		if !ok {
			continue
		}
		attempted = append(attempted, name)
		wg.Add(1)
		go func(name LayerName, layer Layer) {
			defer wg.Done()
			results, err := layer.Execute(ctx, query, limit)
			mu.Lock()
			outcomes = append(outcomes, outcome{name: name, results: results, err: err})
			mu.Unlock()
		}(name, layer)
	}
	wg.Wait()

	var merged []SearchResult
	var primary LayerName
	candidates := 0
	for _, name := range chain {
		for _, o := range outcomes {
			if o.name != name {
				continue
			}
			if o.err != nil {
				p.logger.Warn("layer failed", "layer", name, "error", o.err)
				continue
			}
			candidates += len(o.results)
			if len(o.results) > 0 && primary == "" {
				primary = name
			}
			merged = append(merged, o.results...)
		}
	}
	return merged, attempted, primary, candidates
}
