// Package memory is an in-memory similarity index using brute-force cosine
// similarity. Reads take a shared lock so queries proceed concurrently with
// each other and block only against writes.
package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"opponent/internal/domain"
)

// Index holds embedded chunks and answers nearest-neighbor queries.
type Index struct {
	mu      sync.RWMutex
	entries []domain.Entry
	byID    map[string]int
}

// NewIndex returns an empty in-memory index.
func NewIndex() *Index {
	return &Index{byID: make(map[string]int)}
}

// Upsert inserts entries, replacing any existing entry with the same id.
func (ix *Index) Upsert(_ context.Context, entries []domain.Entry) error {
	for _, e := range entries {
		if e.ID == "" {
			return errors.New("memory index: entry id required")
		}
		if len(e.Vector) == 0 {
			return errors.New("memory index: entry vector required")
		}
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, e := range entries {
		if pos, ok := ix.byID[e.ID]; ok {
			ix.entries[pos] = e
			continue
		}
		ix.byID[e.ID] = len(ix.entries)
		ix.entries = append(ix.entries, e)
	}
	return nil
}

// Search returns the topK entries most similar to vector, optionally
// narrowed by filter. Scores are cosine similarity clamped to [0,1].
func (ix *Index) Search(_ context.Context, vector []float64, topK int, filter *domain.Filter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var results []domain.SearchResult
	for _, e := range ix.entries {
		if !filter.Matches(e.Metadata) {
			continue
		}
		results = append(results, domain.SearchResult{
			Content:  e.Content,
			Metadata: e.Metadata,
			Score:    Cosine(vector, e.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes entries by id. Unknown ids are ignored.
func (ix *Index) Delete(_ context.Context, ids []string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := ix.entries[:0]
	for _, e := range ix.entries {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	ix.entries = kept
	ix.byID = make(map[string]int, len(ix.entries))
	for i, e := range ix.entries {
		ix.byID[e.ID] = i
	}
	return nil
}

// GetByFilter returns all entries matching filter, ordered by path then
// chunk index.
func (ix *Index) GetByFilter(_ context.Context, filter *domain.Filter) ([]domain.Entry, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []domain.Entry
	for _, e := range ix.entries {
		if filter.Matches(e.Metadata) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Metadata.Path != out[j].Metadata.Path {
			return out[i].Metadata.Path < out[j].Metadata.Path
		}
		return out[i].Metadata.ChunkIndex < out[j].Metadata.ChunkIndex
	})
	return out, nil
}

// Len returns the number of stored entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Cosine computes cosine similarity clamped to [0,1]. Higher is better.
func Cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}
