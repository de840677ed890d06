package vault

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"opponent/internal/chunker"
	"opponent/internal/domain"
	"opponent/internal/embedding"
	"opponent/internal/vectorindex/memory"
)

func writeNote(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestIndexer() (*Indexer, *memory.Index) {
	ix := memory.NewIndex()
	return NewIndexer(ix, embedding.NewLocal(64), chunker.NewParagraphChunker(50)), ix
}

func TestIndexVaultWalksMarkdownFiles(t *testing.T) {
	dir := t.TempDir()
	writeNote(t, dir, "a.md", "---\ntitle: Note A\ntags: [opponent, focus]\n---\nBody of note A.")
	writeNote(t, dir, "nested/b.md", "Body of note B with no frontmatter.")
	writeNote(t, dir, "ignored.txt", "not a note")

	indexer, ix := newTestIndexer()
	stats, err := indexer.IndexVault(context.Background(), dir)
	if err != nil {
		t.Fatalf("index vault: %v", err)
	}
	if stats.TotalNotes != 2 {
		t.Errorf("TotalNotes = %d, want 2", stats.TotalNotes)
	}
	if stats.TotalChunks != ix.Len() {
		t.Errorf("TotalChunks = %d but index holds %d", stats.TotalChunks, ix.Len())
	}

	entries, _ := ix.GetByFilter(context.Background(), &domain.Filter{Tag: "opponent"})
	if len(entries) != 1 || entries[0].Metadata.Title != "Note A" {
		t.Errorf("frontmatter metadata lost: %+v", entries)
	}
}

func TestIndexVaultTitleFallsBackToFilename(t *testing.T) {
	dir := t.TempDir()
	path := writeNote(t, dir, "daily-note.md", "Just a body.")

	indexer, ix := newTestIndexer()
	if _, err := indexer.IndexVault(context.Background(), dir); err != nil {
		t.Fatalf("index vault: %v", err)
	}
	entries, _ := ix.GetByFilter(context.Background(), &domain.Filter{Path: path})
	if len(entries) != 1 || entries[0].Metadata.Title != "daily-note" {
		t.Errorf("expected filename title, got %+v", entries)
	}
}

func TestIndexVaultRejectsMissingDirectory(t *testing.T) {
	indexer, _ := newTestIndexer()
	if _, err := indexer.IndexVault(context.Background(), "/does/not/exist"); err == nil {
		t.Fatal("expected error for missing vault")
	}
}

func TestUpdateDocumentReplacesChunks(t *testing.T) {
	dir := t.TempDir()
	path := writeNote(t, dir, "note.md", "Original body.")

	indexer, ix := newTestIndexer()
	if _, err := indexer.IndexVault(context.Background(), dir); err != nil {
		t.Fatalf("index vault: %v", err)
	}
	if err := indexer.UpdateDocument(context.Background(), path, "Rewritten body."); err != nil {
		t.Fatalf("update: %v", err)
	}

	entries, _ := ix.GetByFilter(context.Background(), &domain.Filter{Path: path})
	if len(entries) != 1 || entries[0].Content != "Rewritten body." {
		t.Errorf("stale chunks survived update: %+v", entries)
	}
}

func TestGetByPathReassemblesNote(t *testing.T) {
	ix := memory.NewIndex()
	// Small chunk target to force a multi-chunk note.
	indexer := NewIndexer(ix, embedding.NewLocal(64), chunker.NewParagraphChunker(3))

	dir := t.TempDir()
	path := writeNote(t, dir, "long.md", "one two three\n\nfour five six\n\nseven eight nine")
	if _, err := indexer.IndexVault(context.Background(), dir); err != nil {
		t.Fatalf("index vault: %v", err)
	}

	note, err := indexer.GetByPath(context.Background(), path)
	if err != nil {
		t.Fatalf("get by path: %v", err)
	}
	if note == nil || note.Content == "" {
		t.Fatal("expected reassembled note")
	}

	missing, err := indexer.GetByPath(context.Background(), "absent.md")
	if err != nil {
		t.Fatalf("get by path: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unindexed path, got %+v", missing)
	}
}

func TestParseFrontmatter(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		wantMeta noteMeta
		wantBody string
	}{
		{
			name:     "with frontmatter",
			in:       "---\ntitle: Hello\ntags:\n  - a\n  - b\n---\nBody here.",
			wantMeta: noteMeta{Title: "Hello", Tags: []string{"a", "b"}},
			wantBody: "Body here.",
		},
		{
			name:     "without frontmatter",
			in:       "Plain body.",
			wantMeta: noteMeta{},
			wantBody: "Plain body.",
		},
		{
			name:     "unterminated block treated as body",
			in:       "---\ntitle: Broken",
			wantMeta: noteMeta{},
			wantBody: "---\ntitle: Broken",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			meta, body, err := parseFrontmatter(tc.in)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if diff := cmp.Diff(tc.wantMeta, meta); diff != "" {
				t.Errorf("meta mismatch (-want +got):\n%s", diff)
			}
			if body != tc.wantBody {
				t.Errorf("body = %q, want %q", body, tc.wantBody)
			}
		})
	}
}
