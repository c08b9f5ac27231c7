// Package grip implements grip extraction from a segment's summary and
// events, and grip expansion back into a windowed view of surrounding
// events.
package grip

import (
	"crypto/rand"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/SpillwaveSolutions/agent-memory/internal/storage"
	"github.com/SpillwaveSolutions/agent-memory/internal/types"
)

// ExtractConfig tunes the extraction policy.
type ExtractConfig struct {
	MinTermLength   int
	MinScore        float64
	ExtendFactor    float64
	ExcerptMaxChars int
}

// DefaultExtractConfig returns the extraction defaults.
func DefaultExtractConfig() ExtractConfig {
	return ExtractConfig{
		MinTermLength:   3,
		MinScore:        0.30,
		ExtendFactor:    0.8,
		ExcerptMaxChars: 200,
	}
}

// Extractor produces Grips from a summary's bullets and a
// segment's events.
type Extractor struct {
	cfg ExtractConfig
}

// New creates an Extractor with cfg. A zero Config is replaced
// field-by-field with DefaultExtractConfig's values.
func New(cfg ExtractConfig) *Extractor {
	d := DefaultExtractConfig()
	if cfg.MinTermLength == 0 {
		cfg.MinTermLength = d.MinTermLength
	}
	if cfg.MinScore == 0 {
		cfg.MinScore = d.MinScore
	}
	if cfg.ExtendFactor == 0 {
		cfg.ExtendFactor = d.ExtendFactor
	}
	if cfg.ExcerptMaxChars == 0 {
		cfg.ExcerptMaxChars = d.ExcerptMaxChars
	}
	return &Extractor{cfg: cfg}
}

// Extract scores every event in events against each bullet's
// significant terms, keeps the best-scoring contiguous run per bullet
// that clears MinScore, and builds one grip per surviving bullet.
func (x *Extractor) Extract(bullets []string, events []types.Event) []types.Grip {
	if len(events) == 0 {
		return nil
	}
	var out []types.Grip
	for _, bullet := range bullets {
		terms := significantTerms(bullet, x.cfg.MinTermLength)
		if len(terms) == 0 {
			continue
		}

		scores := make([]float64, len(events))
		bestIdx, bestScore := -1, 0.0
		for i, e := range events {
			scores[i] = score(terms, e.Text)
			if scores[i] > bestScore {
				bestScore = scores[i]
				bestIdx = i
			}
		}
		if bestIdx < 0 || bestScore < x.cfg.MinScore {
			continue
		}

		threshold := x.cfg.ExtendFactor * bestScore
		start, end := bestIdx, bestIdx
		for start > 0 && scores[start-1] >= threshold {
			start--
		}
		for end < len(events)-1 && scores[end+1] >= threshold {
			end++
		}

		matched := events[start : end+1]
		out = append(out, types.Grip{
			GripID:       storage.GripID(matched[0].Timestamp.UnixMilli(), newULID(matched[0])),
			Excerpt:      buildExcerpt(matched, x.cfg.ExcerptMaxChars),
			EventIDStart: matched[0].EventID,
			EventIDEnd:   matched[len(matched)-1].EventID,
			Timestamp:    matched[0].Timestamp,
			Source:       bullet,
		})
	}
	return out
}

// significantTerms splits text on whitespace and keeps lowercased terms
// longer than minLen.
func significantTerms(text string, minLen int) []string {
	fields := strings.Fields(text)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > minLen {
			terms = append(terms, strings.ToLower(f))
		}
	}
	return terms
}

// score is the fraction of terms found as a substring of the event's
// lowercased text.
func score(terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	found := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			found++
		}
	}
	return float64(found) / float64(len(terms))
}

// buildExcerpt joins the matched events' texts and truncates to
// maxChars with an ellipsis if truncated.
func buildExcerpt(events []types.Event, maxChars int) string {
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = e.Text
	}
	joined := strings.Join(parts, " ")
	if len(joined) <= maxChars {
		return joined
	}
	if maxChars <= 3 {
		return joined[:maxChars]
	}
	return joined[:maxChars-3] + "..."
}

func newULID(e types.Event) ulid.ULID {
	return ulid.MustNew(ulid.Timestamp(e.Timestamp), rand.Reader)
}
