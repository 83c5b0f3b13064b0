package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/charlielabs/charlie/internal/config"
	"github.com/charlielabs/charlie/internal/index"
)

// newSearchCmd creates the search command.
func newSearchCmd() *cobra.Command {
	var topK int
	var offline bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed codebase",
		Long: `Search the indexed codebase by semantic similarity and print the
most relevant chunks with their file paths.

Examples:
  charlie search "where is the config loaded"
  charlie search "http retry logic" -k 10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, topK, offline)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results (default from config)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (skip Ollama)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, topK int, offline bool) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
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
	})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	defer func() { _ = idx.Close() }()

	results, err := idx.Search(ctx, query, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()

	// Piped output gets one path per line for composing with other tools.
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		for _, r := range results {
			fmt.Fprintf(out, "%s\t%.3f\n", r.Path, r.Score)
		}
		return nil
	}

	if len(results) == 0 {
		fmt.Fprintf(out, "No results found for %q\n", query)
		return nil
	}

	fmt.Fprintf(out, "Found %d results for %q:\n\n", len(results), query)
	for i, r := range results {
		fmt.Fprintf(out, "%d. %s (score: %.2f)\n", i+1, r.Path, r.Score)
		for _, line := range snippet(r.Content, 3) {
			fmt.Fprintf(out, "   %s\n", line)
		}
		fmt.Fprintln(out)
	}

	return nil
}

// snippet returns the first n non-empty-trailing lines of content.
func snippet(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
