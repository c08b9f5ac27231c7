package vector

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder turns text into a fixed-dimension embedding vector. Real
// embedding-model inference is out of scope for this module — the
// model cache directory is reserved in the persisted state layout but
// nothing here loads a model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// HashEmbedder is a deterministic, dependency-free stand-in: it spreads
// a text's token hashes across a fixed-width vector and L2-normalizes
// the result, so the same text always yields the same vector and
// similar token sets overlap rather than being orthogonal. It exists
// so the pipeline, tests, and a zero-configuration deployment have a
// working embedding source without requiring a model download.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a HashEmbedder producing vectors of length dim.
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{dim: dim}
}

func (h *HashEmbedder) Dimension() int { return h.dim }

func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	for _, tok := range splitWords(text) {
		hsh := fnv.New32a()
		_, _ = hsh.Write([]byte(tok))
		idx := int(hsh.Sum32()) % h.dim
		if idx < 0 {
			idx += h.dim
		}
		vec[idx]++
	}
	normalize(vec)
	return vec, nil
}

func splitWords(text string) []string {
	var words []string
	start := -1
	isWord := func(r byte) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
	}
	for i := 0; i < len(text); i++ {
		if isWord(text[i]) {
			if start == -1 {
				start = i
			}
		} else if start != -1 {
			words = append(words, text[start:i])
			start = -1
		}
	}
	if start != -1 {
		words = append(words, text[start:])
	}
	return words
}

func normalize(vec []float32) {
	var sumSq float32
	for _, v := range vec {
		sumSq += v * v
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(float64(sumSq)))
	for i := range vec {
		vec[i] /= norm
	}
}
