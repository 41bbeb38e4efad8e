// Package openai implements the embedding port against the OpenAI
// embeddings API, or any compatible endpoint.
package openai

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

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 60 * time.Second
)

// Embedder embeds text through the /embeddings endpoint. All chunks of
// a document go out in one batched request.
type Embedder struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	limiter *rate.Limiter

	sizeOnce sync.Once
	size     int
	sizeErr  error
}

// Config holds the connection settings of an Embedder.
type Config struct {
	// URL overrides the API base URL, for compatible providers.
	URL    string
	APIKey string
	Model  string
	// RequestsPerSecond paces embedding calls; 0 disables pacing.
	RequestsPerSecond float64
	// VectorSize overrides the probed embedding dimension.
	VectorSize int
	Timeout    time.Duration
}

// New creates an OpenAI embedder.
func New(cfg Config) *Embedder {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Embedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		size:    cfg.VectorSize,
	}
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, texts)
}

func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("openai returned no embedding for query")
	}
	return vectors[0], nil
}

func (e *Embedder) VectorName() string {
	return "openai-" + strings.ToLower(e.model)
}

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
			e.sizeErr = fmt.Errorf("openai returned an empty probe embedding")
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
		return nil, fmt.Errorf("encoding embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("openai embeddings: %s: %s", resp.Status, bytes.TrimSpace(detail))
	}

	var parsed struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding embeddings response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embedding(s) for %d input(s)", len(parsed.Data), len(texts))
	}

	// The API does not guarantee response order; index does.
	vectors := make([][]float32, len(texts))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("openai returned out-of-range embedding index %d", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}
