package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOllama serves /api/tags and /api/embed with canned responses.
func fakeOllama(t *testing.T, models []string, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			var infos []ollamaModelInfo
			for _, m := range models {
				infos = append(infos, ollamaModelInfo{Name: m})
			}
			_ = json.NewEncoder(w).Encode(ollamaModelListResponse{Models: infos})

		case "/api/embed":
			var req ollamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			inputs, ok := req.Input.([]any)
			require.True(t, ok, "input should be a list")

			embeddings := make([][]float32, len(inputs))
			for i := range inputs {
				vec := make([]float32, dims)
				vec[i%dims] = 1
				embeddings[i] = vec
			}
			_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{
				Model:      req.Model,
				Embeddings: embeddings,
			})

		default:
			http.NotFound(w, r)
		}
	}))
}

func TestOllamaEmbedder_DiscoversModelAndDimensions(t *testing.T) {
	srv := fakeOllama(t, []string{"nomic-embed-text:latest"}, 768)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:  srv.URL,
		Model: "nomic-embed-text",
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "nomic-embed-text:latest", e.ModelName(), "tag-suffixed model matches base name")
	assert.Equal(t, 768, e.Dimensions(), "dimensions auto-detected from probe")
}

func TestOllamaEmbedder_ModelNotFound(t *testing.T) {
	srv := fakeOllama(t, []string{"llama3:latest"}, 768)
	defer srv.Close()

	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:  srv.URL,
		Model: "nomic-embed-text",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nomic-embed-text")
}

func TestOllamaEmbedder_EmbedBatch(t *testing.T) {
	srv := fakeOllama(t, []string{"nomic-embed-text"}, 8)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:       srv.URL,
		Model:      "nomic-embed-text",
		Dimensions: 8,
		BatchSize:  2,
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	for _, v := range vecs {
		assert.Len(t, v, 8)
	}
}

func TestOllamaEmbedder_ServerDown(t *testing.T) {
	srv := fakeOllama(t, []string{"nomic-embed-text"}, 8)
	srv.Close() // Immediately unreachable.

	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:  srv.URL,
		Model: "nomic-embed-text",
	})
	assert.Error(t, err)
}

func TestOllamaEmbedder_ClosedErrors(t *testing.T) {
	srv := fakeOllama(t, []string{"nomic-embed-text"}, 8)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		Model:           "nomic-embed-text",
		Dimensions:      8,
		SkipHealthCheck: true,
	})
	require.NoError(t, err)
	require.NoError(t, e.Close())

	_, err = e.Embed(context.Background(), "text")
	assert.Error(t, err)
	assert.False(t, e.Available(context.Background()))
}
