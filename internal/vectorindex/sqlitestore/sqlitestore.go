// Package sqlitestore is a persistent similarity index on SQLite. Chunk
// metadata lives in columns, vectors as JSON blobs; similarity is computed
// in-process over the (filtered) candidate rows, which is plenty for a
// personal note collection.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"opponent/internal/domain"
	"opponent/internal/vectorindex/memory"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id           TEXT PRIMARY KEY,
	content      TEXT NOT NULL,
	path         TEXT NOT NULL,
	title        TEXT NOT NULL,
	tags         TEXT NOT NULL,
	chunk_index  INTEGER NOT NULL,
	total_chunks INTEGER NOT NULL,
	vector       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path);
`

// Index is a SQLite-backed similarity index.
type Index struct {
	db *sql.DB
}

// Open opens (or creates) the index database at path.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite index: ensure dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite index: open: %w", err)
	}
	// SQLite allows one writer at a time; serialize connection use so
	// concurrent upserts queue instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite index: init schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the database handle.
func (ix *Index) Close() error { return ix.db.Close() }

// Upsert inserts entries, replacing any existing entry with the same id.
func (ix *Index) Upsert(ctx context.Context, entries []domain.Entry) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite index: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO chunks
		(id, content, path, title, tags, chunk_index, total_chunks, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite index: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("sqlite index: entry id required")
		}
		vec, err := json.Marshal(e.Vector)
		if err != nil {
			return fmt.Errorf("sqlite index: encode vector: %w", err)
		}
		_, err = stmt.ExecContext(ctx, e.ID, e.Content, e.Metadata.Path, e.Metadata.Title,
			strings.Join(e.Metadata.Tags, ","), e.Metadata.ChunkIndex, e.Metadata.TotalChunks, string(vec))
		if err != nil {
			return fmt.Errorf("sqlite index: upsert %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Search returns the topK stored chunks most similar to vector, optionally
// narrowed by filter.
func (ix *Index) Search(ctx context.Context, vector []float64, topK int, filter *domain.Filter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	entries, err := ix.GetByFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(entries))
	for _, e := range entries {
		results = append(results, domain.SearchResult{
			Content:  e.Content,
			Metadata: e.Metadata,
			Score:    memory.Cosine(vector, e.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes entries by id. Unknown ids are ignored.
func (ix *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := ix.db.ExecContext(ctx, "DELETE FROM chunks WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("sqlite index: delete: %w", err)
	}
	return nil
}

// GetByFilter returns all entries matching filter, ordered by path then
// chunk index. The tag filter is refined in-process since tags are stored
// comma-joined.
func (ix *Index) GetByFilter(ctx context.Context, filter *domain.Filter) ([]domain.Entry, error) {
	query := `SELECT id, content, path, title, tags, chunk_index, total_chunks, vector
		FROM chunks`
	var args []any
	if filter != nil && filter.Path != "" {
		query += " WHERE path = ?"
		args = append(args, filter.Path)
	}
	query += " ORDER BY path, chunk_index"

	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite index: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		var e domain.Entry
		var tags, vec string
		if err := rows.Scan(&e.ID, &e.Content, &e.Metadata.Path, &e.Metadata.Title,
			&tags, &e.Metadata.ChunkIndex, &e.Metadata.TotalChunks, &vec); err != nil {
			return nil, fmt.Errorf("sqlite index: scan: %w", err)
		}
		if tags != "" {
			e.Metadata.Tags = strings.Split(tags, ",")
		}
		if err := json.Unmarshal([]byte(vec), &e.Vector); err != nil {
			return nil, fmt.Errorf("sqlite index: decode vector for %s: %w", e.ID, err)
		}
		if !filter.Matches(e.Metadata) {
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
