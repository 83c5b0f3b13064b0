package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlielabs/charlie/internal/chunk"
)

func newTestChunkStore(t *testing.T) *ChunkStore {
	t.Helper()
	s, err := NewChunkStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testChunk(id, path, content string, idx int) *chunk.Chunk {
	return &chunk.Chunk{
		ID:       id,
		FilePath: path,
		Content:  content,
		Language: "go",
		Index:    idx,
	}
}

func TestChunkStore_PutAndGet(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []*chunk.Chunk{
		testChunk("c1", "main.go", "package main", 0),
		testChunk("c2", "main.go", "func main() {}", 1),
	}))

	got, err := s.Get(ctx, "c2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "func main() {}", got.Content)
	assert.Equal(t, "main.go", got.FilePath)
	assert.Equal(t, 1, got.Index)
	assert.Equal(t, "go", got.Language)
}

func TestChunkStore_GetMissingIsNil(t *testing.T) {
	s := newTestChunkStore(t)

	got, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestChunkStore_PutUpserts(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []*chunk.Chunk{testChunk("c1", "a.go", "old", 0)}))
	require.NoError(t, s.Put(ctx, []*chunk.Chunk{testChunk("c1", "a.go", "new", 0)}))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Content)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestChunkStore_IDsForFileOrdered(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []*chunk.Chunk{
		testChunk("c3", "a.go", "third", 2),
		testChunk("c1", "a.go", "first", 0),
		testChunk("c2", "a.go", "second", 1),
		testChunk("d1", "b.go", "other", 0),
	}))

	ids, err := s.IDsForFile(ctx, "a.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2", "c3"}, ids)
}

func TestChunkStore_DeleteFile(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, []*chunk.Chunk{
		testChunk("c1", "a.go", "x", 0),
		testChunk("c2", "a.go", "y", 1),
		testChunk("d1", "b.go", "z", 0),
	}))

	deleted, err := s.DeleteFile(ctx, "a.go")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, deleted)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Get(ctx, "d1")
	require.NoError(t, err)
	assert.NotNil(t, got, "other files untouched")
}

func TestChunkStore_PersistsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.db")
	ctx := context.Background()

	s, err := NewChunkStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, []*chunk.Chunk{testChunk("c1", "a.go", "persisted", 0)}))
	require.NoError(t, s.Close())

	reopened, err := NewChunkStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Get(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "persisted", got.Content)
}

func TestChunkStore_ClosedErrors(t *testing.T) {
	s, err := NewChunkStore("")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Error(t, s.Put(context.Background(), []*chunk.Chunk{testChunk("c", "a", "x", 0)}))
	_, err = s.Get(context.Background(), "c")
	assert.Error(t, err)
}
