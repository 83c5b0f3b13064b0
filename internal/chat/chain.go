package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charlielabs/charlie/internal/index"
	"github.com/charlielabs/charlie/internal/memory"
)

// Retriever finds chunks relevant to a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]index.SearchResult, error)
}

// LLM streams a chat completion.
type LLM interface {
	Stream(ctx context.Context, messages []Message, onToken func(string)) (string, error)
}

// systemPrompt grounds the model in the retrieved code.
const systemPrompt = `You are charlie, an assistant that answers questions about the user's codebase.
Answer using the provided code context. When you reference code, mention the file path it came from.
If the context does not contain the answer, say so instead of guessing.`

// Chain is the retrieval-augmented chat pipeline: retrieve, prompt,
// stream, remember.
type Chain struct {
	llm       LLM
	retriever Retriever
	mem       *memory.Memory
	topK      int
	log       *slog.Logger
}

// NewChain creates a chat chain. mem may be nil to disable history.
func NewChain(llm LLM, retriever Retriever, mem *memory.Memory, topK int, log *slog.Logger) *Chain {
	if mem == nil {
		mem = memory.New(0)
	}
	if topK <= 0 {
		topK = 5
	}
	if log == nil {
		log = slog.Default()
	}
	return &Chain{
		llm:       llm,
		retriever: retriever,
		mem:       mem,
		topK:      topK,
		log:       log,
	}
}

// Ask answers a question about the codebase. onToken receives streamed
// reply fragments; the full reply is returned and recorded in memory.
func (c *Chain) Ask(ctx context.Context, question string, onToken func(string)) (string, error) {
	hits, err := c.retriever.Search(ctx, question, c.topK)
	if err != nil {
		return "", fmt.Errorf("retrieval failed: %w", err)
	}

	c.log.Debug("retrieved context",
		slog.String("question", question),
		slog.Int("chunks", len(hits)))

	messages := c.buildMessages(question, hits)

	reply, err := c.llm.Stream(ctx, messages, onToken)
	if err != nil {
		return "", err
	}

	c.mem.AddTurn(question, reply)
	return reply, nil
}

// buildMessages assembles system prompt, retrieved context, history,
// and the current question.
func (c *Chain) buildMessages(question string, hits []index.SearchResult) []Message {
	var sb strings.Builder
	sb.WriteString(systemPrompt)

	if len(hits) > 0 {
		sb.WriteString("\n\nCode context:\n")
		for _, hit := range hits {
			sb.WriteString(fmt.Sprintf("\n--- %s ---\n%s\n", hit.Path, hit.Content))
		}
	} else {
		sb.WriteString("\n\nNo relevant code context was found for this question.")
	}

	messages := []Message{{Role: "system", Content: sb.String()}}

	for _, m := range c.mem.Messages() {
		messages = append(messages, Message{Role: string(m.Role), Content: m.Content})
	}

	messages = append(messages, Message{Role: "user", Content: question})
	return messages
}
