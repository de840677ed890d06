package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"opponent/internal/domain"
	"opponent/internal/embedding"
	"opponent/internal/retrieval"
	"opponent/internal/vectorindex/memory"
)

// scriptedGen answers prompts by substring match. It records every prompt
// so tests can assert which model calls happened.
type scriptedGen struct {
	mu      sync.Mutex
	replies []scriptedReply
	prompts []string
}

type scriptedReply struct {
	match string
	text  string // Generate response (or raw JSON for GenerateJSON)
	err   error
}

func (g *scriptedGen) on(match, text string) *scriptedGen {
	g.replies = append(g.replies, scriptedReply{match: match, text: text})
	return g
}

func (g *scriptedGen) failOn(match string, err error) *scriptedGen {
	g.replies = append(g.replies, scriptedReply{match: match, err: err})
	return g
}

func (g *scriptedGen) lookup(prompt string) (scriptedReply, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	for _, r := range g.replies {
		if strings.Contains(prompt, r.match) {
			return r, r.err
		}
	}
	return scriptedReply{}, fmt.Errorf("unscripted prompt: %.60s", prompt)
}

func (g *scriptedGen) Generate(_ context.Context, prompt string) (string, error) {
	r, err := g.lookup(prompt)
	if err != nil {
		return "", err
	}
	return r.text, nil
}

func (g *scriptedGen) GenerateJSON(_ context.Context, prompt string, out any) error {
	r, err := g.lookup(prompt)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(r.text), out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSchemaMismatch, err)
	}
	return nil
}

func (g *scriptedGen) sawPrompt(match string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range g.prompts {
		if strings.Contains(p, match) {
			return true
		}
	}
	return false
}

// seedIndex embeds and indexes a note under the given path.
func seedIndex(ctx context.Context, ix *memory.Index, path, title, content string, tags []string) error {
	emb := embedding.NewLocal(64)
	vec, err := emb.Embed(ctx, content)
	if err != nil {
		return err
	}
	return ix.Upsert(ctx, []domain.Entry{{
		ID:      path + "_0",
		Content: content,
		Metadata: domain.Metadata{
			Path: path, Title: title, Tags: tags, ChunkIndex: 0, TotalChunks: 1,
		},
		Vector: vec,
	}})
}

// newRetriever wires a retrieval engine over an in-memory index.
func newRetriever(ix *memory.Index, gen domain.Generator, topK int) *retrieval.Engine {
	return retrieval.New(ix, embedding.NewLocal(64), gen, topK)
}

func TestTruncatePreservesRuneBoundaries(t *testing.T) {
	cases := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"under limit", "claim", 10, "claim"},
		{"ascii cut", "abcdef", 3, "abc"},
		{"multibyte backs up", "x" + strings.Repeat("é", 3), 4, "xé"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := truncate(tc.in, tc.n)
			if got != tc.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate produced invalid UTF-8: %q", got)
			}
		})
	}
}
