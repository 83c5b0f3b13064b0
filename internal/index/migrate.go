package index

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// DirName is the index directory at the project root.
	DirName = ".charlie_index"

	// LegacyDirName is the index directory used by older releases.
	LegacyDirName = ".codeflow_index"
)

// Dir returns the index directory path for a project root.
func Dir(root string) string {
	return filepath.Join(root, DirName)
}

// migrateLegacyDir renames a legacy index directory to the current name
// so existing fingerprints and vectors carry over without re-embedding.
// Runs only when the current directory does not exist; if both exist
// the legacy one is left alone.
func migrateLegacyDir(root string) error {
	newDir := filepath.Join(root, DirName)
	if _, err := os.Stat(newDir); err == nil {
		return nil
	}

	oldDir := filepath.Join(root, LegacyDirName)
	if _, err := os.Stat(oldDir); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat legacy index directory: %w", err)
	}

	if err := os.Rename(oldDir, newDir); err != nil {
		return fmt.Errorf("failed to migrate legacy index directory: %w", err)
	}

	slog.Info("migrated legacy index directory",
		slog.String("from", oldDir),
		slog.String("to", newDir))

	return nil
}
