package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc) *Embedder {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{URL: server.URL, Model: "nomic-embed-text"})
}

func TestEmbedder_EmbedDocuments(t *testing.T) {
	t.Run("batches all texts in one request", func(t *testing.T) {
		var gotInput []string
		embedder := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/embed", r.URL.Path)
			var req struct {
				Model string   `json:"model"`
				Input []string `json:"input"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			gotInput = req.Input
			assert.Equal(t, "nomic-embed-text", req.Model)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{0.1, 0.2}, {0.3, 0.4}},
			})
		})

		vectors, err := embedder.EmbedDocuments(context.Background(), []string{"one", "two"})
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two"}, gotInput)
		require.Len(t, vectors, 2)
		assert.Equal(t, []float32{0.3, 0.4}, vectors[1])
	})

	t.Run("rejects a count mismatch", func(t *testing.T) {
		embedder := newTestEmbedder(t, func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{0.1}},
			})
		})

		_, err := embedder.EmbedDocuments(context.Background(), []string{"one", "two"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 embedding(s) for 2 input(s)")
	})

	t.Run("no request for no texts", func(t *testing.T) {
		embedder := newTestEmbedder(t, func(w http.ResponseWriter, _ *http.Request) {
			t.Error("unexpected request")
		})

		vectors, err := embedder.EmbedDocuments(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, vectors)
	})
}

func TestEmbedder_VectorSize(t *testing.T) {
	t.Run("probes once and caches", func(t *testing.T) {
		calls := 0
		embedder := newTestEmbedder(t, func(w http.ResponseWriter, _ *http.Request) {
			calls++
			_ = json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{make([]float32, 768)},
			})
		})

		size, err := embedder.VectorSize(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 768, size)

		size, err = embedder.VectorSize(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 768, size)
		assert.Equal(t, 1, calls)
	})

	t.Run("configured size skips the probe", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Error("unexpected request")
		}))
		t.Cleanup(server.Close)
		embedder := New(Config{URL: server.URL, Model: "m", VectorSize: 384})

		size, err := embedder.VectorSize(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 384, size)
	})
}

func TestEmbedder_VectorName(t *testing.T) {
	embedder := New(Config{Model: "Snowflake/Arctic-embed:latest"})
	assert.Equal(t, "ollama-snowflake-arctic-embed-latest", embedder.VectorName())
}
