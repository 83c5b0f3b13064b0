// Package chat answers questions about the indexed codebase. It
// retrieves relevant chunks, assembles a grounded prompt with recent
// conversation history, and streams the model's reply token by token.
package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnreachable reports that the Ollama endpoint could not be reached.
var ErrUnreachable = errors.New("ollama unreachable")

// ClientConfig configures the Ollama chat client.
type ClientConfig struct {
	// Host is the Ollama API endpoint.
	Host string
	// Model is the chat model name.
	Model string
	// Timeout bounds a full streamed response.
	Timeout time.Duration
}

// DefaultTimeout allows for slow local generation.
const DefaultTimeout = 5 * time.Minute

// Client streams chat completions from Ollama's /api/chat endpoint.
type Client struct {
	httpClient *http.Client
	config     ClientConfig
}

// Message is a chat message on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the /api/chat request body.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// chatChunk is one NDJSON line of a streamed response.
type chatChunk struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// NewClient creates a chat client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{},
		config:     cfg,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}

// Stream sends the conversation and invokes onToken for each streamed
// fragment. It returns the full assembled reply.
func (c *Client) Stream(ctx context.Context, messages []Message, onToken func(string)) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.config.Model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.config.Host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() == nil {
			return "", fmt.Errorf("%w at %s (is ollama running?): %w", ErrUnreachable, c.config.Host, err)
		}
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var full bytes.Buffer
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return full.String(), fmt.Errorf("failed to decode stream chunk: %w", err)
		}
		if chunk.Error != "" {
			return full.String(), fmt.Errorf("ollama error: %s", chunk.Error)
		}

		if chunk.Message.Content != "" {
			full.WriteString(chunk.Message.Content)
			if onToken != nil {
				onToken(chunk.Message.Content)
			}
		}
		if chunk.Done {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("stream read failed: %w", err)
	}

	return full.String(), nil
}
