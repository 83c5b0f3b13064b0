package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/charlielabs/charlie/internal/chunk"
)

// ChunkStore persists chunk text and provenance in SQLite. The vector
// store only holds embeddings keyed by chunk ID; this is where the
// content behind a search hit comes from.
type ChunkStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

const chunkSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id        TEXT PRIMARY KEY,
	file_path TEXT NOT NULL,
	content   TEXT NOT NULL,
	language  TEXT NOT NULL DEFAULT '',
	idx       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_chunks_file_path ON chunks(file_path);
`

// NewChunkStore opens (or creates) a chunk database. An empty path
// creates an in-memory store for testing.
func NewChunkStore(path string) (*ChunkStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk database: %w", err)
	}

	// modernc.org/sqlite serializes writes; one connection avoids
	// SQLITE_BUSY under concurrent access.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(chunkSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create chunk schema: %w", err)
	}

	return &ChunkStore{db: db}, nil
}

// Put upserts chunks in a single transaction.
func (s *ChunkStore) Put(ctx context.Context, chunks []*chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("chunk store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, file_path, content, language, idx)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_path = excluded.file_path,
			content   = excluded.content,
			language  = excluded.language,
			idx       = excluded.idx`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.FilePath, c.Content, c.Language, c.Index); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// Get returns a chunk by ID, or nil if not found.
func (s *ChunkStore) Get(ctx context.Context, id string) (*chunk.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, file_path, content, language, idx FROM chunks WHERE id = ?`, id)

	var c chunk.Chunk
	if err := row.Scan(&c.ID, &c.FilePath, &c.Content, &c.Language, &c.Index); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read chunk %s: %w", id, err)
	}

	return &c, nil
}

// IDsForFile returns all chunk IDs belonging to a file, ordered by
// position within the file.
func (s *ChunkStore) IDsForFile(ctx context.Context, filePath string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM chunks WHERE file_path = ? ORDER BY idx`, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks for %s: %w", filePath, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// DeleteFile removes all chunks belonging to a file and returns their IDs
// so the caller can evict matching vectors.
func (s *ChunkStore) DeleteFile(ctx context.Context, filePath string) ([]string, error) {
	ids, err := s.IDsForFile(ctx, filePath)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE file_path = ?`, filePath); err != nil {
		return nil, fmt.Errorf("failed to delete chunks for %s: %w", filePath, err)
	}

	return ids, nil
}

// Count returns the number of stored chunks.
func (s *ChunkStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("chunk store is closed")
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *ChunkStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
