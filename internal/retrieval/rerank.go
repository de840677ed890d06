package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"opponent/internal/domain"
)

// rerankExcerpt bounds how much of each candidate is shown to the scorer.
const rerankExcerpt = 500

// rerank asks the model to score each candidate 0-10 for how well it
// opposes the claim, then sorts descending by score (stable on ties). Any
// failure to obtain or parse a same-length score array degrades to the
// original candidate order; reranking never fails a retrieval.
func (e *Engine) rerank(ctx context.Context, claim string, results []domain.SearchResult) []domain.SearchResult {
	var sb strings.Builder
	sb.WriteString(strings.Join([]string{
		"You are evaluating search results for their ability to oppose or counter this claim:",
		"",
		"CLAIM: " + claim,
		"",
		"For each result below, assign a score from 0-10 based on:",
		"- How directly it contradicts or challenges the claim",
		"- Quality of counter-arguments or alternative perspectives",
		"- Relevance of evidence provided",
		"",
		"Results:",
	}, "\n"))
	for i, r := range results {
		excerpt := truncate(r.Content, rerankExcerpt)
		fmt.Fprintf(&sb, "\n[%d] %s...\n", i+1, excerpt)
	}
	sb.WriteString("Return ONLY a JSON array of scores in order, like: [8, 3, 6, 9, 2]\n")
	sb.WriteString("Do not include any explanation, just the array.")

	response, err := e.gen.Generate(ctx, sb.String())
	if err != nil {
		log.Printf("rerank: scoring call failed, keeping original order: %v", err)
		return results
	}

	var scores []int
	if err := json.Unmarshal([]byte(strings.TrimSpace(response)), &scores); err != nil {
		log.Printf("rerank: unparseable score payload, keeping original order: %v", err)
		return results
	}
	if len(scores) != len(results) {
		log.Printf("rerank: got %d scores for %d candidates, keeping original order", len(scores), len(results))
		return results
	}

	scored := make([]domain.SearchResult, len(results))
	copy(scored, results)
	for i := range scored {
		s := float64(scores[i])
		scored[i].RerankScore = &s
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return *scored[i].RerankScore > *scored[j].RerankScore
	})
	return scored
}
