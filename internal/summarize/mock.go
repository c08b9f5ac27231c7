package summarize

import (
	"context"
	"sort"
	"strings"

	"github.com/SpillwaveSolutions/agent-memory/internal/tokenize"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// Mock is a deterministic, no-I/O Summarizer. It is the default when no
// remote summarizer is configured, and the backbone of every test that
// exercises the TOC Builder or Rollup jobs without a network dependency.
type Mock struct{}

// NewMock creates a Mock summarizer.
func NewMock() *Mock { return &Mock{} }

var _ Summarizer = (*Mock)(nil)

const (
	maxBullets  = 5
	minBullets  = 3
	maxKeywords = 7
	minKeywords = 3
)

// SummarizeEvents builds a title from the most frequent terms across all
// events, bullets from the longest event texts, and keywords from term
// frequency.
func (m *Mock) SummarizeEvents(ctx context.Context, events []types.Event) (Summary, error) {
	if len(events) == 0 {
		return Summary{}, ErrNoEvents
	}
	texts := make([]string, len(events))
	for i, e := range events {
		texts[i] = e.Text
	}
	return summarizeTexts(texts), nil
}

// SummarizeChildren builds a parent summary from already-produced child
// summaries, treating each child's title and bullets as its
// representative text.
func (m *Mock) SummarizeChildren(ctx context.Context, children []Summary) (Summary, error) {
	if len(children) == 0 {
		return Summary{}, ErrNoEvents
	}
	texts := make([]string, len(children))
	for i, c := range children {
		texts[i] = c.Title + " " + strings.Join(c.Bullets, " ")
	}
	return summarizeTexts(texts), nil
}

func summarizeTexts(texts []string) Summary {
	freq := make(map[string]int)
	for _, text := range texts {
		tokenize.IterBytes([]byte(strings.ToLower(text)), nil, func(tok []byte) bool {
			freq[string(tok)]++
			return true
		})
	}

	keywords := topTerms(freq, maxKeywords)
	if len(keywords) < minKeywords {
		keywords = topTerms(freq, minKeywords)
	}

	title := strings.Join(keywords[:min(len(keywords), 8)], " ")
	if title == "" {
		title = "untitled"
	}

	bullets := longestTexts(texts, maxBullets)
	if len(bullets) < minBullets && len(bullets) > 0 {
		// Pad by repeating the longest bullet; this keeps the mock
		// deterministic without inventing content.
		for len(bullets) < minBullets {
			bullets = append(bullets, bullets[0])
		}
	}

	return Summary{Title: title, Bullets: bullets, Keywords: keywords}
}

// topTerms returns up to n terms sorted by descending frequency, then
// lexicographically for deterministic ties.
func topTerms(freq map[string]int, n int) []string {
	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

// longestTexts returns up to n texts, longest first, in original
// relative order for ties.
func longestTexts(texts []string, n int) []string {
	idx := make([]int, len(texts))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return len(texts[idx[i]]) > len(texts[idx[j]])
	})
	if len(idx) > n {
		idx = idx[:n]
	}
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = texts[j]
	}
	return out
}
