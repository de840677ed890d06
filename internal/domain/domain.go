package domain

import "context"

// Chunk is a bounded contiguous segment of one document, the unit that gets
// embedded and indexed. Index is the chunk's position within the document.
type Chunk struct {
	Text  string
	Index int
	Total int
}

// Metadata describes the note a chunk was cut from.
type Metadata struct {
	Path        string
	Title       string
	Tags        []string
	ChunkIndex  int
	TotalChunks int
}

// HasTag reports whether the note carries the given tag.
func (m Metadata) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SearchResult is a matching chunk with its similarity score in [0,1].
// RerankScore is set only after a successful model-scored rerank pass.
type SearchResult struct {
	Content     string
	Metadata    Metadata
	Score       float64
	RerankScore *float64
}

// Filter narrows index queries by metadata. Zero-value fields are ignored.
type Filter struct {
	Path string // exact path match
	Tag  string // note must carry this tag
}

// Matches reports whether the metadata satisfies the filter.
func (f *Filter) Matches(m Metadata) bool {
	if f == nil {
		return true
	}
	if f.Path != "" && m.Path != f.Path {
		return false
	}
	if f.Tag != "" && !m.HasTag(f.Tag) {
		return false
	}
	return true
}

// Entry is one embedded chunk as stored in a similarity index.
type Entry struct {
	ID       string
	Content  string
	Metadata Metadata
	Vector   []float64
}

// Generator is the text-generation capability. GenerateJSON constrains the
// model to JSON output and decodes it into out; a payload that does not
// decode is a failed call (wrapped ErrSchemaMismatch).
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string, out any) error
}

// Embedder converts text into a fixed-length numeric vector.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// SimilarityIndex stores embedded chunks and answers nearest-neighbor
// queries. Reads are safe concurrently with writes; mutation of the same
// document id must not race.
type SimilarityIndex interface {
	Search(ctx context.Context, vector []float64, topK int, filter *Filter) ([]SearchResult, error)
	Upsert(ctx context.Context, entries []Entry) error
	Delete(ctx context.Context, ids []string) error
	GetByFilter(ctx context.Context, filter *Filter) ([]Entry, error)
}
