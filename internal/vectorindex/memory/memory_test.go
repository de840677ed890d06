package memory

import (
	"context"
	"sync"
	"testing"

	"opponent/internal/domain"
)

func entry(id, path, content string, tags []string, vec []float64) domain.Entry {
	return domain.Entry{
		ID:      id,
		Content: content,
		Metadata: domain.Metadata{
			Path:  path,
			Title: path,
			Tags:  tags,
		},
		Vector: vec,
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()
	err := ix.Upsert(ctx, []domain.Entry{
		entry("a0", "a.md", "close", nil, []float64{1, 0, 0}),
		entry("b0", "b.md", "far", nil, []float64{0, 1, 0}),
		entry("c0", "c.md", "middle", nil, []float64{0.7, 0.7, 0}),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := ix.Search(ctx, []float64{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Metadata.Path != "a.md" || got[1].Metadata.Path != "c.md" {
		t.Errorf("ranking wrong: %q then %q", got[0].Metadata.Path, got[1].Metadata.Path)
	}
	if got[0].Score < got[1].Score {
		t.Errorf("scores not descending: %v", got)
	}
	for _, r := range got {
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("score out of [0,1]: %v", r.Score)
		}
	}
}

func TestSearchTagFilter(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()
	_ = ix.Upsert(ctx, []domain.Entry{
		entry("a0", "a.md", "tagged", []string{"opponent"}, []float64{1, 0}),
		entry("b0", "b.md", "plain", nil, []float64{1, 0}),
	})

	got, err := ix.Search(ctx, []float64{1, 0}, 10, &domain.Filter{Tag: "opponent"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Metadata.Path != "a.md" {
		t.Errorf("tag filter failed: %+v", got)
	}
}

func TestUpsertReplacesByID(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()
	_ = ix.Upsert(ctx, []domain.Entry{entry("a0", "a.md", "old", nil, []float64{1, 0})})
	_ = ix.Upsert(ctx, []domain.Entry{entry("a0", "a.md", "new", nil, []float64{0, 1})})

	if ix.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", ix.Len())
	}
	got, _ := ix.Search(ctx, []float64{0, 1}, 1, nil)
	if got[0].Content != "new" {
		t.Errorf("entry not replaced: %+v", got[0])
	}
}

func TestDeleteAndGetByFilter(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()
	e1 := entry("a0", "a.md", "first", nil, []float64{1, 0})
	e1.Metadata.ChunkIndex = 0
	e2 := entry("a1", "a.md", "second", nil, []float64{0, 1})
	e2.Metadata.ChunkIndex = 1
	e3 := entry("b0", "b.md", "other", nil, []float64{1, 1})
	_ = ix.Upsert(ctx, []domain.Entry{e2, e1, e3})

	byPath, err := ix.GetByFilter(ctx, &domain.Filter{Path: "a.md"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(byPath) != 2 || byPath[0].ID != "a0" || byPath[1].ID != "a1" {
		t.Errorf("expected a.md chunks in order, got %+v", byPath)
	}

	if err := ix.Delete(ctx, []string{"a0", "a1"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ix.Len() != 1 {
		t.Errorf("expected 1 entry after delete, got %d", ix.Len())
	}
	rest, _ := ix.GetByFilter(ctx, nil)
	if len(rest) != 1 || rest[0].ID != "b0" {
		t.Errorf("wrong survivor: %+v", rest)
	}
}

func TestConcurrentReadsDuringWrites(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = ix.Upsert(ctx, []domain.Entry{entry("id", "p.md", "c", nil, []float64{1, 0})})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = ix.Search(ctx, []float64{1, 0}, 3, nil)
			}
		}()
	}
	wg.Wait()
}

func TestCosineBounds(t *testing.T) {
	if got := Cosine([]float64{1, 0}, []float64{-1, 0}); got != 0 {
		t.Errorf("opposite vectors should clamp to 0, got %v", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{1, 0}); got != 1 {
		t.Errorf("identical vectors should score 1, got %v", got)
	}
	if got := Cosine([]float64{0, 0}, []float64{1, 0}); got != 0 {
		t.Errorf("zero vector should score 0, got %v", got)
	}
}
