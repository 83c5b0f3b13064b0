// Package chunk splits files into overlapping retrievable units sized
// for the embedding model.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Chunk size defaults, in characters. Sized for nomic-embed-text's
// context window with enough overlap to keep split statements retrievable.
const (
	DefaultChunkSize = 800
	DefaultOverlap   = 100
)

// Chunk is a retrievable unit of content.
type Chunk struct {
	ID       string // SHA256(file_path + chunk index)[:16]
	FilePath string // Relative to project root
	Content  string
	Language string // go, typescript, python, etc.
	Index    int    // Position of this chunk within the file
}

// FileInput is a file to be split.
type FileInput struct {
	Path     string // Relative path
	Content  []byte
	Language string
}

// chunkID derives a stable chunk identifier from path and position.
func chunkID(path string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", path, index)))
	return hex.EncodeToString(sum[:])[:16]
}
