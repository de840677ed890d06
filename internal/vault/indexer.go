// Package vault turns a directory of markdown notes into similarity-index
// entries: it walks the vault, extracts frontmatter, chunks note bodies,
// embeds each chunk and upserts the result.
package vault

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"opponent/internal/chunker"
	"opponent/internal/domain"
)

// embedWorkers bounds concurrent embedding calls during a vault walk.
const embedWorkers = 4

// Stats summarizes an indexing pass.
type Stats struct {
	TotalNotes  int
	TotalChunks int
}

// Note is a vault note reassembled from its indexed chunks.
type Note struct {
	Content  string
	Metadata domain.Metadata
}

// Indexer feeds vault notes into a similarity index.
type Indexer struct {
	index   domain.SimilarityIndex
	embed   domain.Embedder
	chunker *chunker.ParagraphChunker
}

// NewIndexer wires an indexer over the given collaborators.
func NewIndexer(index domain.SimilarityIndex, embed domain.Embedder, ch *chunker.ParagraphChunker) *Indexer {
	return &Indexer{index: index, embed: embed, chunker: ch}
}

// IndexVault walks vaultPath recursively, indexing every markdown note.
// Files that fail to read or parse are skipped with a log line; they do
// not abort the pass.
func (ix *Indexer) IndexVault(ctx context.Context, vaultPath string) (Stats, error) {
	info, err := os.Stat(vaultPath)
	if err != nil || !info.IsDir() {
		return Stats{}, fmt.Errorf("vault: %s is not a directory", vaultPath)
	}

	var stats Stats
	err = filepath.WalkDir(vaultPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("vault: skipping %s: %v", path, err)
			return nil
		}
		n, err := ix.indexNote(ctx, path, string(data))
		if err != nil {
			log.Printf("vault: skipping %s: %v", path, err)
			return nil
		}
		stats.TotalNotes++
		stats.TotalChunks += n
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("vault: walk %s: %w", vaultPath, err)
	}
	return stats, nil
}

// UpdateDocument replaces a note's indexed chunks with a fresh
// chunk/embed pass over content.
func (ix *Indexer) UpdateDocument(ctx context.Context, path, content string) error {
	existing, err := ix.index.GetByFilter(ctx, &domain.Filter{Path: path})
	if err != nil {
		return fmt.Errorf("vault: lookup %s: %w", path, err)
	}
	if len(existing) > 0 {
		ids := make([]string, len(existing))
		for i, e := range existing {
			ids[i] = e.ID
		}
		if err := ix.index.Delete(ctx, ids); err != nil {
			return fmt.Errorf("vault: delete stale chunks of %s: %w", path, err)
		}
	}
	if _, err := ix.indexNote(ctx, path, content); err != nil {
		return fmt.Errorf("vault: reindex %s: %w", path, err)
	}
	return nil
}

// GetByPath reassembles a note from its indexed chunks, or returns nil if
// the path is not indexed.
func (ix *Indexer) GetByPath(ctx context.Context, path string) (*Note, error) {
	entries, err := ix.index.GetByFilter(ctx, &domain.Filter{Path: path})
	if err != nil {
		return nil, fmt.Errorf("vault: lookup %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.Content
	}
	return &Note{Content: strings.Join(parts, "\n\n"), Metadata: entries[0].Metadata}, nil
}

// indexNote chunks, embeds and upserts one note, returning its chunk count.
func (ix *Indexer) indexNote(ctx context.Context, path, content string) (int, error) {
	meta, body, err := parseFrontmatter(content)
	if err != nil {
		return 0, fmt.Errorf("parse frontmatter: %w", err)
	}
	title := meta.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	chunks := ix.chunker.Chunk(body)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	entries := make([]domain.Entry, len(chunks))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(embedWorkers)
	for i, c := range chunks {
		i, c := i, c
		eg.Go(func() error {
			vec, err := ix.embed.Embed(gctx, c.Text)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", c.Index, err)
			}
			entries[i] = domain.Entry{
				ID:      fmt.Sprintf("%s_%d", stem, c.Index),
				Content: c.Text,
				Metadata: domain.Metadata{
					Path:        path,
					Title:       title,
					Tags:        meta.Tags,
					ChunkIndex:  c.Index,
					TotalChunks: c.Total,
				},
				Vector: vec,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}
	if err := ix.index.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("upsert: %w", err)
	}
	return len(entries), nil
}
