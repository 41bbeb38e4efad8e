// Package ollama implements the summarizer port against a local
// Ollama instance. Generation failures degrade to empty results so a
// flaky model never blocks a store.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quiver-labs/quiver-cli/internal/core/ports/driven"
	"github.com/quiver-labs/quiver-cli/internal/logger"
)

var _ driven.Summarizer = (*Summarizer)(nil)

// Generation is slow on local models; give it room.
const defaultTimeout = 120 * time.Second

const abstractSystemPrompt = "You are a summarization assistant. Generate a concise abstract (2-4 sentences) " +
	"of the following document. The abstract should capture the key topic, main points, " +
	"and purpose of the document. Write in the same language as the document. " +
	"Respond with ONLY the abstract, no preamble or explanation."

const tagsSystemPrompt = "You are a tagging assistant. Generate 3-6 concise, lowercase tags for the following document. " +
	"Tags should capture the key topics, technologies, and concepts. " +
	"Use single words or short hyphenated phrases (e.g. 'docker', 'network-config', 'backup'). " +
	"Respond with ONLY a comma-separated list of tags, nothing else. " +
	"Example: docker, networking, linux, firewall"

// maxTagLength drops degenerate model output masquerading as a tag.
const maxTagLength = 40

// Summarizer generates document abstracts and tags through the Ollama
// /api/generate endpoint. A zero model name disables it.
type Summarizer struct {
	baseURL string
	model   string
	client  *http.Client
}

// Config holds the connection settings of a Summarizer.
type Config struct {
	// URL is the base URL of the Ollama instance, usually shared with
	// the embedding provider.
	URL string
	// Model names the generation model; empty disables summarization.
	Model   string
	Timeout time.Duration
}

// New creates an Ollama summarizer.
func New(cfg Config) *Summarizer {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Summarizer{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a generation model is configured.
func (s *Summarizer) Enabled() bool {
	return s.model != ""
}

// GenerateAbstract produces a short abstract of the document, or ""
// when disabled or on any failure.
func (s *Summarizer) GenerateAbstract(ctx context.Context, text, title string) string {
	if !s.Enabled() {
		return ""
	}
	abstract, err := s.generate(ctx, abstractSystemPrompt, text, title)
	if err != nil {
		logger.Warn("abstract generation failed for %q: %v", titleOrUntitled(title), err)
		return ""
	}
	if abstract == "" {
		logger.Warn("empty abstract returned for %q", titleOrUntitled(title))
	}
	return abstract
}

// GenerateTags produces lowercase tags for the document, or nil when
// disabled or on any failure.
func (s *Summarizer) GenerateTags(ctx context.Context, text, title string) []string {
	if !s.Enabled() {
		return nil
	}
	raw, err := s.generate(ctx, tagsSystemPrompt, text, title)
	if err != nil {
		logger.Warn("tag generation failed for %q: %v", titleOrUntitled(title), err)
		return nil
	}
	if raw == "" {
		logger.Warn("empty tags returned for %q", titleOrUntitled(title))
		return nil
	}

	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.ToLower(strings.TrimSpace(tag))
		tag = strings.Trim(tag, `"'`)
		if tag != "" && len(tag) <= maxTagLength {
			tags = append(tags, tag)
		}
	}
	return tags
}

func (s *Summarizer) generate(ctx context.Context, system, text, title string) (string, error) {
	prompt := text
	if title != "" {
		prompt = fmt.Sprintf("Title: %s\n\n%s", title, text)
	}

	body := map[string]any{
		"model":  s.model,
		"system": system,
		"prompt": prompt,
		"stream": false,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encoding generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama generate: %s: %s", resp.Status, bytes.TrimSpace(detail))
	}

	var parsed struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding generate response: %w", err)
	}
	return strings.TrimSpace(parsed.Response), nil
}

func titleOrUntitled(title string) string {
	if title == "" {
		return "(untitled)"
	}
	return title
}
