package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/charlielabs/charlie/internal/config"
	"github.com/charlielabs/charlie/internal/index"
)

// newIndexCmd creates the index command.
func newIndexCmd() *cobra.Command {
	var offline bool
	var reindex bool

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Build or refresh the project index",
		Long: `Build or refresh the index for a project directory.

Only files whose content changed since the last run are re-embedded;
deleted files are purged from the index.

Examples:
  charlie index
  charlie index ~/src/myproject
  charlie index --reindex`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runIndex(cmd.Context(), cmd, path, offline, reindex)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (skip Ollama)")
	cmd.Flags().BoolVar(&reindex, "reindex", false, "Discard the existing index and rebuild")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, path string, offline, reindex bool) error {
	root, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	cleanup := setupFileLogging(cfg.Log.Level)
	defer cleanup()

	embedder := newEmbedder(ctx, cfg, offline)
	defer func() { _ = embedder.Close() }()

	idx, err := index.BuildOrLoad(ctx, index.Options{
		RootDir:  root,
		Config:   cfg,
		Embedder: embedder,
		Reindex:  reindex,
	})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	defer func() { _ = idx.Close() }()

	stats := idx.Stats()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Indexed %d files (%d changed, %d unchanged, %d deleted)\n",
		stats.FilesScanned, stats.FilesChanged, stats.FilesUnchanged, stats.FilesDeleted)
	fmt.Fprintf(out, "Embedded %d chunks\n", stats.ChunksEmbedded)
	if stats.FilesFailed > 0 {
		fmt.Fprintf(out, "Skipped %d unreadable files (see log)\n", stats.FilesFailed)
	}

	return nil
}
