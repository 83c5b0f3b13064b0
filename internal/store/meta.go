package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// MetaFileName is the file fingerprint metadata file inside the index
// directory.
const MetaFileName = "index_meta.json"

// LoadMeta reads the path -> content digest map from the index directory.
// A missing file yields an empty map (first run). A corrupt file also
// yields an empty map after a warning, which forces a full re-index
// rather than failing the whole pass.
func LoadMeta(indexDir string) map[string]string {
	path := filepath.Join(indexDir, MetaFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read index metadata",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		return map[string]string{}
	}

	var meta map[string]string
	if err := json.Unmarshal(data, &meta); err != nil {
		slog.Warn("corrupt index metadata, rebuilding from scratch",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return map[string]string{}
	}
	if meta == nil {
		return map[string]string{}
	}

	return meta
}

// SaveMeta atomically writes the path -> digest map to the index
// directory, creating it if needed.
func SaveMeta(indexDir string, meta map[string]string) error {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index metadata: %w", err)
	}

	path := filepath.Join(indexDir, MetaFileName)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index metadata: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename index metadata: %w", err)
	}

	return nil
}
