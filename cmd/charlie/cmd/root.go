// Package cmd provides the CLI commands for charlie.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/charlielabs/charlie/internal/chat"
	"github.com/charlielabs/charlie/internal/config"
	"github.com/charlielabs/charlie/internal/embed"
	"github.com/charlielabs/charlie/internal/index"
	"github.com/charlielabs/charlie/internal/logging"
	"github.com/charlielabs/charlie/internal/memory"
	"github.com/charlielabs/charlie/internal/ui"
	"github.com/charlielabs/charlie/pkg/version"
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the charlie CLI.
func NewRootCmd() *cobra.Command {
	var offline bool
	var reindex bool

	cmd := &cobra.Command{
		Use:   "charlie",
		Short: "Chat with your codebase in the terminal",
		Long: `Charlie indexes the current project and answers questions about it
using a local Ollama model, entirely on your machine.

The index is incremental: unchanged files are never re-embedded, so
after the first run startup is fast.

Just run 'charlie' in your project directory to get started.`,
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runChat(cmd.Context(), offline, reindex)
		},
	}

	cmd.SetVersionTemplate("charlie version {{.Version}}\n")

	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (skip Ollama)")
	cmd.Flags().BoolVar(&reindex, "reindex", false, "Discard the existing index and rebuild")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.charlie/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// startLogging enables debug file logging when --debug is set.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}

	cleanup, err := logging.SetupDefault(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup

	slog.Info("debug logging enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Version))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// setupFileLogging routes slog to the log file so the terminal stays
// clean. A no-op when --debug already installed a logger.
func setupFileLogging(level string) func() {
	if loggingCleanup != nil {
		return func() {}
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = level

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return func() {}
	}
	return cleanup
}

// runChat is the default flow: bring the index up to date, then hand
// the terminal to the chat UI.
func runChat(ctx context.Context, offline, reindex bool) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("interactive chat requires a terminal; use 'charlie search' for scripted queries")
	}

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
		Reindex:  reindex,
	})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	defer func() { _ = idx.Close() }()

	client := chat.NewClient(chat.ClientConfig{
		Host:  cfg.Ollama.Host,
		Model: cfg.Ollama.ChatModel,
	})

	chain := chat.NewChain(client, idx,
		memory.New(cfg.Chat.HistoryTurns), cfg.Index.TopK, slog.Default())

	return ui.Run(chain)
}

// newEmbedder returns the Ollama embedder, falling back to static
// embeddings when offline is set or Ollama is unreachable. Search
// quality drops but everything still works.
func newEmbedder(ctx context.Context, cfg *config.Config, offline bool) embed.Embedder {
	if offline {
		slog.Info("using static embeddings", slog.String("reason", "offline flag"))
		return embed.NewStaticEmbedder()
	}

	ollama, err := embed.NewOllamaEmbedder(ctx, embed.OllamaConfig{
		Host:  cfg.Ollama.Host,
		Model: cfg.Ollama.EmbedModel,
	})
	if err != nil {
		slog.Warn("Ollama unavailable, falling back to static embeddings",
			slog.String("host", cfg.Ollama.Host),
			slog.String("error", err.Error()))
		return embed.NewStaticEmbedder()
	}

	slog.Info("using Ollama embeddings",
		slog.String("model", ollama.ModelName()),
		slog.Int("dimensions", ollama.Dimensions()))
	return ollama
}
