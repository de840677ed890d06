package chunker

import (
	"strings"

	"opponent/internal/domain"
)

// ParagraphChunker splits text into paragraph-aligned chunks bounded by a
// word-count target. Consecutive chunks overlap by one paragraph: when a
// chunk closes, its last paragraph seeds the next one so an idea spanning a
// boundary stays queryable from both sides.
type ParagraphChunker struct {
	targetWords int
}

// NewParagraphChunker returns a chunker with the given word-count target.
func NewParagraphChunker(targetWords int) *ParagraphChunker {
	if targetWords <= 0 {
		targetWords = 512
	}
	return &ParagraphChunker{targetWords: targetWords}
}

// Chunk splits content on blank-line boundaries and packs paragraphs into
// chunks of at most targetWords words. A single paragraph longer than the
// target is never split mid-paragraph; it becomes its own chunk. Content
// with no paragraphs yields one chunk holding the content verbatim.
func (c *ParagraphChunker) Chunk(content string) []domain.Chunk {
	paragraphs := splitParagraphs(content)
	if len(paragraphs) == 0 {
		return []domain.Chunk{{Text: content, Index: 0, Total: 1}}
	}

	var texts []string
	var current []string
	currentWords := 0

	for _, p := range paragraphs {
		words := wordCount(p)
		if currentWords+words > c.targetWords && len(current) > 0 {
			texts = append(texts, strings.Join(current, "\n\n"))
			// Carry the closed chunk's last paragraph forward as overlap,
			// then append the paragraph that triggered the overflow.
			last := current[len(current)-1]
			current = []string{last}
			currentWords = wordCount(last)
		}
		current = append(current, p)
		currentWords += words
	}
	if len(current) > 0 {
		texts = append(texts, strings.Join(current, "\n\n"))
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{Text: t, Index: i, Total: len(texts)}
	}
	return chunks
}

func splitParagraphs(content string) []string {
	var out []string
	for _, p := range strings.Split(content, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func wordCount(s string) int { return len(strings.Fields(s)) }
