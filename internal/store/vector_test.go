package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, dims int) *HNSWStore {
	t.Helper()
	s, err := NewHNSWStore(VectorStoreConfig{Dimensions: dims})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func unitVec(dims, hot int) []float32 {
	v := make([]float32, dims)
	v[hot] = 1
	return v
}

func TestHNSWStore_AddAndSearch(t *testing.T) {
	s := newTestStore(t, 4)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx,
		[]string{"a", "b", "c"},
		[][]float32{unitVec(4, 0), unitVec(4, 1), unitVec(4, 2)}))

	assert.Equal(t, 3, s.Count())

	results, err := s.Search(ctx, unitVec(4, 1), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5, "exact match scores ~1")
}

func TestHNSWStore_EmptySearch(t *testing.T) {
	s := newTestStore(t, 4)

	results, err := s.Search(context.Background(), unitVec(4, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWStore_DimensionMismatch(t *testing.T) {
	s := newTestStore(t, 4)
	ctx := context.Background()

	err := s.Add(ctx, []string{"a"}, [][]float32{make([]float32, 8)})
	var dimErr ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 8, dimErr.Got)

	_, err = s.Search(ctx, make([]float32, 8), 1)
	assert.ErrorAs(t, err, &dimErr)
}

func TestHNSWStore_UpdateReplacesVector(t *testing.T) {
	s := newTestStore(t, 4)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{unitVec(4, 0)}))
	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{unitVec(4, 3)}))

	assert.Equal(t, 1, s.Count())

	results, err := s.Search(ctx, unitVec(4, 3), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
}

func TestHNSWStore_DeleteExcludesFromResults(t *testing.T) {
	s := newTestStore(t, 4)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx,
		[]string{"a", "b"},
		[][]float32{unitVec(4, 0), unitVec(4, 1)}))
	require.NoError(t, s.Delete(ctx, []string{"a"}))

	assert.Equal(t, 1, s.Count())
	assert.False(t, s.Contains("a"))
	assert.True(t, s.Contains("b"))

	results, err := s.Search(ctx, unitVec(4, 0), 2)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ID, "deleted vectors never surface")
	}
}

func TestHNSWStore_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")
	ctx := context.Background()

	s := newTestStore(t, 4)
	require.NoError(t, s.Add(ctx,
		[]string{"x", "y"},
		[][]float32{unitVec(4, 0), unitVec(4, 2)}))
	require.NoError(t, s.Save(path))

	loaded, err := NewHNSWStore(VectorStoreConfig{Dimensions: 4})
	require.NoError(t, err)
	defer func() { _ = loaded.Close() }()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 2, loaded.Count())

	results, err := loaded.Search(ctx, unitVec(4, 2), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "y", results[0].ID)
}

func TestReadStoredDimensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	// No file yet.
	dims, err := ReadStoredDimensions(path)
	require.NoError(t, err)
	assert.Zero(t, dims)

	s := newTestStore(t, 16)
	require.NoError(t, s.Add(context.Background(), []string{"a"}, [][]float32{unitVec(16, 0)}))
	require.NoError(t, s.Save(path))

	dims, err = ReadStoredDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 16, dims)
}

func TestHNSWStore_ClosedErrors(t *testing.T) {
	s, err := NewHNSWStore(VectorStoreConfig{Dimensions: 4})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Error(t, s.Add(context.Background(), []string{"a"}, [][]float32{unitVec(4, 0)}))
	_, err = s.Search(context.Background(), unitVec(4, 0), 1)
	assert.Error(t, err)
	assert.Zero(t, s.Count())
}

func TestNewHNSWStore_RequiresDimensions(t *testing.T) {
	_, err := NewHNSWStore(VectorStoreConfig{})
	assert.Error(t, err)
}
