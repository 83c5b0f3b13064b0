// Package config loads charlie configuration from defaults, the project's
// .charlie.yaml, and CHARLIE_* environment variables, in increasing
// precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete charlie configuration.
type Config struct {
	Version int          `yaml:"version" json:"version"`
	Paths   PathsConfig  `yaml:"paths" json:"paths"`
	Index   IndexConfig  `yaml:"index" json:"index"`
	Ollama  OllamaConfig `yaml:"ollama" json:"ollama"`
	Chat    ChatConfig   `yaml:"chat" json:"chat"`
	Log     LogConfig    `yaml:"log" json:"log"`
}

// PathsConfig configures which paths to exclude from indexing.
type PathsConfig struct {
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// IndexConfig configures the indexing pipeline.
type IndexConfig struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// ChunkOverlap is the overlap between consecutive chunks in characters.
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
	// MaxFileSize is the maximum file size to index in bytes.
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
	// TopK is the default number of chunks retrieved per query.
	TopK int `yaml:"top_k" json:"top_k"`
	// RespectGitignore enables .gitignore parsing during scans.
	RespectGitignore bool `yaml:"respect_gitignore" json:"respect_gitignore"`
}

// OllamaConfig configures the local Ollama endpoint.
type OllamaConfig struct {
	// Host is the Ollama API endpoint (default: http://localhost:11434).
	Host string `yaml:"host" json:"host"`
	// EmbedModel is the embedding model name.
	EmbedModel string `yaml:"embed_model" json:"embed_model"`
	// ChatModel is the chat completion model name.
	ChatModel string `yaml:"chat_model" json:"chat_model"`
}

// ChatConfig configures the chat chain.
type ChatConfig struct {
	// HistoryTurns is the number of conversation turns kept in memory.
	HistoryTurns int `yaml:"history_turns" json:"history_turns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// defaultExcludePatterns are always excluded from indexing.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
}

// Defaults matching the embedding model's context and typical code files.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
	DefaultMaxFileSize  = 10 * 1024 * 1024
	DefaultTopK         = 5
	DefaultHistoryTurns = 12

	DefaultOllamaHost = "http://localhost:11434"
	DefaultEmbedModel = "nomic-embed-text"
	DefaultChatModel  = "qwen2.5-coder"
)

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Exclude: defaultExcludePatterns,
		},
		Index: IndexConfig{
			ChunkSize:        DefaultChunkSize,
			ChunkOverlap:     DefaultChunkOverlap,
			MaxFileSize:      DefaultMaxFileSize,
			TopK:             DefaultTopK,
			RespectGitignore: true,
		},
		Ollama: OllamaConfig{
			Host:       DefaultOllamaHost,
			EmbedModel: DefaultEmbedModel,
			ChatModel:  DefaultChatModel,
		},
		Chat: ChatConfig{
			HistoryTurns: DefaultHistoryTurns,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration for the given project directory.
// Precedence, lowest to highest: defaults, .charlie.yaml, CHARLIE_* env.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .charlie.yaml or .charlie.yml.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".charlie.yaml", ".charlie.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
	}
	// No config file is fine - use defaults.
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if len(other.Paths.Exclude) > 0 {
		// Merge with defaults rather than replace.
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}

	if other.Index.ChunkSize != 0 {
		c.Index.ChunkSize = other.Index.ChunkSize
	}
	if other.Index.ChunkOverlap != 0 {
		c.Index.ChunkOverlap = other.Index.ChunkOverlap
	}
	if other.Index.MaxFileSize != 0 {
		c.Index.MaxFileSize = other.Index.MaxFileSize
	}
	if other.Index.TopK != 0 {
		c.Index.TopK = other.Index.TopK
	}

	if other.Ollama.Host != "" {
		c.Ollama.Host = other.Ollama.Host
	}
	if other.Ollama.EmbedModel != "" {
		c.Ollama.EmbedModel = other.Ollama.EmbedModel
	}
	if other.Ollama.ChatModel != "" {
		c.Ollama.ChatModel = other.Ollama.ChatModel
	}

	if other.Chat.HistoryTurns != 0 {
		c.Chat.HistoryTurns = other.Chat.HistoryTurns
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}

// applyEnvOverrides applies CHARLIE_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CHARLIE_OLLAMA_HOST"); v != "" {
		c.Ollama.Host = v
	}
	if v := os.Getenv("CHARLIE_EMBED_MODEL"); v != "" {
		c.Ollama.EmbedModel = v
	}
	if v := os.Getenv("CHARLIE_CHAT_MODEL"); v != "" {
		c.Ollama.ChatModel = v
	}
	if v := os.Getenv("CHARLIE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CHARLIE_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.ChunkSize = n
		}
	}
	if v := os.Getenv("CHARLIE_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Index.ChunkOverlap = n
		}
	}
	if v := os.Getenv("CHARLIE_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Index.TopK = n
		}
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("index.chunk_size must be positive, got %d", c.Index.ChunkSize)
	}
	if c.Index.ChunkOverlap < 0 {
		return fmt.Errorf("index.chunk_overlap must be non-negative, got %d", c.Index.ChunkOverlap)
	}
	if c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("index.chunk_overlap (%d) must be smaller than index.chunk_size (%d)",
			c.Index.ChunkOverlap, c.Index.ChunkSize)
	}
	if c.Index.TopK <= 0 {
		return fmt.Errorf("index.top_k must be positive, got %d", c.Index.TopK)
	}
	if c.Index.MaxFileSize <= 0 {
		return fmt.Errorf("index.max_file_size must be positive, got %d", c.Index.MaxFileSize)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Log.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
