package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlielabs/charlie/internal/config"
)

func TestInitCmd_WritesConfig(t *testing.T) {
	dir := t.TempDir()

	output, err := execute(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, output, ".charlie.yaml")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultChunkSize, cfg.Index.ChunkSize)
}

func TestInitCmd_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".charlie.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))

	_, err := execute(t, "init", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInitCmd_ForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".charlie.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bogus"), 0o644))

	_, err := execute(t, "init", dir, "--force")
	require.NoError(t, err)

	_, err = config.Load(dir)
	require.NoError(t, err)
}
