package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLocalEmbedDeterministic(t *testing.T) {
	e := NewLocal(64)
	a, err := e.Embed(context.Background(), "remote work and deep focus")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, _ := e.Embed(context.Background(), "remote work and deep focus")
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("embedding not deterministic (-a +b):\n%s", diff)
	}
	if len(a) != 64 {
		t.Errorf("dimension: got %d, want 64", len(a))
	}
}

func TestLocalEmbedNormalized(t *testing.T) {
	e := NewLocal(64)
	v, _ := e.Embed(context.Background(), "several words to hash into buckets")
	norm := 0.0
	for _, x := range v {
		norm += x * x
	}
	if math.Abs(norm-1.0) > 1e-9 {
		t.Errorf("vector not L2-normalized: |v|^2 = %v", norm)
	}
}

func TestLocalEmbedEmptyTextZeroVector(t *testing.T) {
	e := NewLocal(16)
	v, err := e.Embed(context.Background(), "   ")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	for _, x := range v {
		if x != 0 {
			t.Fatalf("expected zero vector, got %v", v)
		}
	}
}

func TestLocalSimilarTextsCloserThanUnrelated(t *testing.T) {
	e := NewLocal(256)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "remote work productivity focus")
	b, _ := e.Embed(ctx, "productivity while working remote")
	c, _ := e.Embed(ctx, "banana bread recipe oven")

	if dot(a, b) <= dot(a, c) {
		t.Errorf("related texts should score higher: related=%v unrelated=%v", dot(a, b), dot(a, c))
	}
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
