// Package ollama implements the embedding port against a local Ollama
// instance.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/quiver-labs/quiver-cli/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*Embedder)(nil)

const defaultTimeout = 60 * time.Second

// Embedder embeds text through the Ollama /api/embed endpoint.
// Requests are paced by a rate limiter so bulk stores do not saturate
// the local instance.
type Embedder struct {
	baseURL string
	model   string
	client  *http.Client
	limiter *rate.Limiter

	sizeOnce sync.Once
	size     int
	sizeErr  error
}

// Config holds the connection settings of an Embedder.
type Config struct {
	// URL is the base URL of the Ollama instance, e.g.
	// http://localhost:11434.
	URL   string
	Model string
	// RequestsPerSecond paces embedding calls; 0 disables pacing.
	RequestsPerSecond float64
	// VectorSize overrides the probed embedding dimension.
	VectorSize int
	Timeout    time.Duration
}

// New creates an Ollama embedder.
func New(cfg Config) *Embedder {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Embedder{
		baseURL: cfg.URL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		size:    cfg.VectorSize,
	}
}

// EmbedDocuments embeds all texts in one request.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, texts)
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("ollama returned no embedding for query")
	}
	return vectors[0], nil
}

// VectorName returns the named-vector key derived from the model, so
// collections embedded with different models never collide.
func (e *Embedder) VectorName() string {
	return "ollama-" + sanitizeModel(e.model)
}

// VectorSize reports the embedding dimension, probing the model once
// when not configured.
func (e *Embedder) VectorSize(ctx context.Context) (int, error) {
	e.sizeOnce.Do(func() {
		if e.size > 0 {
			return
		}
		vectors, err := e.embed(ctx, []string{"dimension probe"})
		if err != nil {
			e.sizeErr = fmt.Errorf("probing embedding dimension: %w", err)
			return
		}
		if len(vectors) == 0 || len(vectors[0]) == 0 {
			e.sizeErr = fmt.Errorf("ollama returned an empty probe embedding")
			return
		}
		e.size = len(vectors[0])
	})
	return e.size, e.sizeErr
}

func (e *Embedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body := map[string]any{
		"model": e.model,
		"input": texts,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama embed: %s: %s", resp.Status, bytes.TrimSpace(detail))
	}

	var parsed struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embedding(s) for %d input(s)", len(parsed.Embeddings), len(texts))
	}
	return parsed.Embeddings, nil
}

func sanitizeModel(model string) string {
	model = strings.ToLower(model)
	model = strings.ReplaceAll(model, "/", "-")
	model = strings.ReplaceAll(model, ":", "-")
	return model
}
