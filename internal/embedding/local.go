package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Local is a deterministic feature-hashing embedder: words are hashed into
// a fixed number of buckets and the resulting counts are L2-normalized.
// It needs no external service, which makes it the default for offline use
// and the embedder of choice in tests.
type Local struct {
	dim int
}

// NewLocal returns a local embedder producing vectors of the given length.
func NewLocal(dim int) *Local {
	if dim <= 0 {
		dim = 256
	}
	return &Local{dim: dim}
}

// Name returns the identifier of this embedder implementation.
func (l *Local) Name() string { return "local" }

// Dimension returns the fixed vector length.
func (l *Local) Dimension() int { return l.dim }

// Embed hashes the text's words into buckets. The zero vector is returned
// for text with no words.
func (l *Local) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, l.dim)
	for _, word := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[int(h.Sum32())%l.dim]++
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
