// Package retrieval issues similarity queries against the index, merges
// and deduplicates candidates across strategies, and reranks opposition
// evidence with a model-scored relevance pass.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"opponent/internal/domain"
)

// opponentTag marks notes written as deliberate counter-material; the
// tag-filtered opposition strategy is restricted to them.
const opponentTag = "opponent"

// conceptWindow bounds how much of a note feeds the concept-extraction
// prompt for link retrieval.
const conceptWindow = 1000

// Engine performs the three retrieval modes over a similarity index.
type Engine struct {
	index domain.SimilarityIndex
	embed domain.Embedder
	gen   domain.Generator
	topK  int
}

// New creates a retrieval engine. topK is the default result limit.
func New(index domain.SimilarityIndex, embed domain.Embedder, gen domain.Generator, topK int) *Engine {
	if topK <= 0 {
		topK = 5
	}
	return &Engine{index: index, embed: embed, gen: gen, topK: topK}
}

// TopK returns the engine's default result limit.
func (e *Engine) TopK() int { return e.topK }

// ForLinking retrieves notes related to content, excluding the note's own
// path. The query is a short model-generated list of the note's key
// concepts. Results carry no duplicate paths and never the excluded path.
func (e *Engine) ForLinking(ctx context.Context, content, excludePath string) ([]domain.SearchResult, error) {
	window := truncate(content, conceptWindow)
	prompt := strings.Join([]string{
		"Extract 2-3 key concepts or themes from this note that would benefit from links to related notes.",
		"",
		"Note Content:",
		window,
		"",
		"Return ONLY the concepts as a comma-separated list, nothing else.",
	}, "\n")
	concepts, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("link retrieval: extract concepts: %w", err)
	}

	// Over-fetch so the exclusion and path dedupe below can still fill topK.
	candidates, err := e.search(ctx, concepts, e.topK*2, nil)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{excludePath: true}
	var results []domain.SearchResult
	for _, r := range candidates {
		path := r.Metadata.Path
		if seen[path] {
			continue
		}
		seen[path] = true
		results = append(results, r)
		if len(results) >= e.topK {
			break
		}
	}
	return results, nil
}

// ForOpposition retrieves evidence opposing claim using two strategies:
// notes tagged as opposition material, and a general query with an
// opposition-phrased reformulation. Merged candidates are deduplicated by
// path (first occurrence wins, tagged results first) and reranked by
// model-scored relevance before truncation.
func (e *Engine) ForOpposition(ctx context.Context, claim, extra string) ([]domain.SearchResult, error) {
	fullQuery := claim
	if extra != "" {
		fullQuery = claim + "\n\nContext: " + extra
	}

	tagged, err := e.search(ctx, fullQuery, e.topK, &domain.Filter{Tag: opponentTag})
	if err != nil {
		return nil, err
	}

	oppositionQuery := fmt.Sprintf("arguments against %s, counterpoints to %s, challenges to %s", claim, claim, claim)
	general, err := e.search(ctx, oppositionQuery, e.topK, nil)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var merged []domain.SearchResult
	for _, r := range append(tagged, general...) {
		if seen[r.Metadata.Path] {
			continue
		}
		seen[r.Metadata.Path] = true
		merged = append(merged, r)
	}
	if len(merged) == 0 {
		return nil, nil
	}

	reranked := e.rerank(ctx, claim, merged)
	if len(reranked) > e.topK {
		reranked = reranked[:e.topK]
	}
	return reranked, nil
}

// ByTag is declared for retrieving notes by tag but is not implemented.
// It fails loudly rather than returning a plausible empty list.
func (e *Engine) ByTag(ctx context.Context, tag string, topK int) ([]domain.SearchResult, error) {
	return nil, fmt.Errorf("tag retrieval: %w", domain.ErrNotImplemented)
}

// search embeds the query text and runs a nearest-neighbor query.
func (e *Engine) search(ctx context.Context, query string, topK int, filter *domain.Filter) ([]domain.SearchResult, error) {
	vec, err := e.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}
	results, err := e.index.Search(ctx, vec, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("retrieval: index search: %w", err)
	}
	return results, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
