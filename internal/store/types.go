// Package store persists index artifacts: the HNSW vector index, the
// chunk content database, and the file fingerprint metadata. All saves
// are atomic (temp file + rename) so a crash never leaves a torn file.
package store

import (
	"context"
	"fmt"
)

// VectorStoreConfig configures a vector store.
type VectorStoreConfig struct {
	// Dimensions is the embedding dimension.
	Dimensions int
	// Metric is the distance metric ("cos" or "l2").
	Metric string
	// M is the HNSW max connections per node (0 = default).
	M int
	// EfSearch is the HNSW search candidate list size (0 = default).
	EfSearch int
}

// VectorResult is a single nearest-neighbor hit.
type VectorResult struct {
	ID       string
	Distance float32
	Score    float32
}

// VectorStore stores embeddings and answers nearest-neighbor queries.
type VectorStore interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Delete(ctx context.Context, ids []string) error
	Count() int
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch indicates a vector of the wrong dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
