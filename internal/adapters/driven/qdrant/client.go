// Package qdrant implements the vector index port over the Qdrant REST
// API. It speaks plain HTTP; the official client is not required for
// the handful of endpoints used here.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quiver-labs/quiver-cli/internal/core/domain"
	"github.com/quiver-labs/quiver-cli/internal/core/ports/driven"
	"github.com/quiver-labs/quiver-cli/internal/logger"
)

// Ensure Client implements the port.
var _ driven.VectorIndex = (*Client)(nil)

const defaultTimeout = 30 * time.Second

// Client is a REST client to one Qdrant instance. Writes use
// wait=true so the change is visible to the next request.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Config holds the connection settings of a Client.
type Config struct {
	// URL is the base URL of the Qdrant instance, e.g.
	// http://localhost:6333.
	URL    string
	APIKey string
	// Timeout bounds each HTTP request. Defaults to 30s.
	Timeout time.Duration
}

// NewClient creates a Qdrant REST client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, "/collections", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Result.Collections))
	for _, collection := range resp.Result.Collections {
		names = append(names, collection.Name)
	}
	return names, nil
}

func (c *Client) CollectionExists(ctx context.Context, collection string) (bool, error) {
	var resp struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/exists", collection)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.Result.Exists, nil
}

func (c *Client) CreateCollection(ctx context.Context, collection, vectorName string, size int) error {
	logger.Debug("creating collection %q (vector %q, %d dims)", collection, vectorName, size)
	body := map[string]any{
		"vectors": map[string]any{
			vectorName: map[string]any{
				"size":     size,
				"distance": "Cosine",
			},
		},
	}
	return c.do(ctx, http.MethodPut, "/collections/"+collection, body, nil)
}

func (c *Client) CreatePayloadIndex(ctx context.Context, collection, field string, schema driven.PayloadSchema) error {
	body := map[string]any{
		"field_name":   field,
		"field_schema": string(schema),
	}
	path := fmt.Sprintf("/collections/%s/index?wait=true", collection)
	return c.do(ctx, http.MethodPut, path, body, nil)
}

func (c *Client) Upsert(ctx context.Context, collection string, points []driven.Point) error {
	wire := make([]map[string]any, len(points))
	for i, point := range points {
		wire[i] = map[string]any{
			"id":      point.ID,
			"vector":  point.Vectors,
			"payload": point.Payload,
		}
	}
	body := map[string]any{"points": wire}
	path := fmt.Sprintf("/collections/%s/points?wait=true", collection)
	return c.do(ctx, http.MethodPut, path, body, nil)
}

func (c *Client) Scroll(ctx context.Context, collection string, filter []domain.FilterCondition, limit int, offset any) ([]driven.Record, any, error) {
	body := map[string]any{
		"limit":        limit,
		"with_payload": true,
	}
	if f := serializeFilter(filter); f != nil {
		body["filter"] = f
	}
	if offset != nil {
		body["offset"] = offset
	}

	var resp struct {
		Result struct {
			Points []struct {
				ID      any            `json:"id"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
			NextPageOffset any `json:"next_page_offset"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/scroll", collection)
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, nil, err
	}

	records := make([]driven.Record, 0, len(resp.Result.Points))
	for _, point := range resp.Result.Points {
		records = append(records, driven.Record{
			ID:      fmt.Sprint(point.ID),
			Payload: point.Payload,
		})
	}
	return records, resp.Result.NextPageOffset, nil
}

func (c *Client) Count(ctx context.Context, collection string, filter []domain.FilterCondition) (int, error) {
	body := map[string]any{"exact": true}
	if f := serializeFilter(filter); f != nil {
		body["filter"] = f
	}
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/count", collection)
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (c *Client) Query(ctx context.Context, collection, vectorName string, vector []float32, limit int, filter []domain.FilterCondition) ([]driven.ScoredPoint, error) {
	body := map[string]any{
		"query":        vector,
		"using":        vectorName,
		"limit":        limit,
		"with_payload": true,
	}
	if f := serializeFilter(filter); f != nil {
		body["filter"] = f
	}

	var resp struct {
		Result struct {
			Points []struct {
				ID      any            `json:"id"`
				Score   float64        `json:"score"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/query", collection)
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}

	hits := make([]driven.ScoredPoint, 0, len(resp.Result.Points))
	for _, point := range resp.Result.Points {
		hits = append(hits, driven.ScoredPoint{
			ID:      fmt.Sprint(point.ID),
			Score:   point.Score,
			Payload: point.Payload,
		})
	}
	return hits, nil
}

func (c *Client) DeletePoints(ctx context.Context, collection string, ids []string) error {
	body := map[string]any{"points": ids}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", collection)
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) DeleteByFilter(ctx context.Context, collection string, filter []domain.FilterCondition) error {
	f := serializeFilter(filter)
	if f == nil {
		// An empty filter would wipe the collection.
		return fmt.Errorf("refusing filtered delete with empty filter on %q", collection)
	}
	body := map[string]any{"filter": f}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", collection)
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) SetPayloadKey(ctx context.Context, collection, pointID, key string, value any) error {
	body := map[string]any{
		"payload": map[string]any{key: value},
		"points":  []string{pointID},
	}
	path := fmt.Sprintf("/collections/%s/points/payload?wait=true", collection)
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// do runs one JSON request against the Qdrant API. Non-2xx responses
// become errors carrying the response body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding qdrant request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building qdrant request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant %s %s: %s: %s", method, path, resp.Status, bytes.TrimSpace(detail))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding qdrant response: %w", err)
		}
	}
	return nil
}
