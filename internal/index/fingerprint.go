// Package index builds and queries the incremental codebase index. It
// ties together scanning, fingerprinting, chunking, embedding, and the
// vector and chunk stores behind a single façade.
package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

// Fingerprint returns the hex-encoded SHA-256 digest of content.
// Fingerprints depend only on content, never on modification time, so
// touched-but-unchanged files are not re-embedded.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ReadError marks a file that could not be read during an index pass.
// Individual read failures are recorded and skipped; they never abort
// the pass.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// fingerprintFile reads a file and returns its content and digest.
func fingerprintFile(absPath, relPath string) ([]byte, string, error) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, "", &ReadError{Path: relPath, Err: err}
	}
	return content, Fingerprint(content), nil
}
