package retrieval

import "strings"

// Intent is the classified purpose of a query.
type Intent string

const (
	IntentExplore   Intent = "Explore"
	IntentAnswer    Intent = "Answer"
	IntentLocate    Intent = "Locate"
	IntentTimeBoxed Intent = "TimeBoxed"
)

// exploreKeywords, locateKeywords, and answerKeywords are checked in this
// order; the first keyword set that matches wins ties.
var exploreKeywords = []string{"topics", "themes", "discussed", "recurring", "patterns", "overview"}
var locateKeywords = []string{"find", "where", "locate", "search for", "look up"}
var answerKeywords = []string{"how", "why", "what was", "what is", "explain"}

// ClassifyIntent is a pure keyword heuristic: it scans the lowercased
// query for Explore, then Locate, then Answer keyword hits, and falls
// back to Answer with low confidence if nothing matches. A caller that
// has already parsed a time expression out of the query should pass
// hasTimeExpr=true, which takes priority over every keyword match and
// always yields TimeBoxed.
func ClassifyIntent(query string, hasTimeExpr bool) (Intent, float64) {
	if hasTimeExpr {
		return IntentTimeBoxed, 1.0
	}

	lower := strings.ToLower(query)
	if n := countMatches(lower, exploreKeywords); n > 0 {
		return IntentExplore, confidenceFor(n)
	}
	if n := countMatches(lower, locateKeywords); n > 0 {
		return IntentLocate, confidenceFor(n)
	}
	if n := countMatches(lower, answerKeywords); n > 0 {
		return IntentAnswer, confidenceFor(n)
	}
	return IntentAnswer, 0.2
}

func countMatches(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

func confidenceFor(matches int) float64 {
	conf := 0.5 + 0.15*float64(matches)
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}
