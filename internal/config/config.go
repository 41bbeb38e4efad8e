// Package config loads the Quiver configuration from a TOML file with
// environment overrides. The file is optional; every setting has a
// default that works against a local Qdrant and Ollama.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the config file location relative to the home
// directory.
const DefaultPath = ".quiver/config.toml"

// Config is the full application configuration, immutable after Load.
type Config struct {
	Qdrant     Qdrant    `toml:"qdrant"`
	Collection string    `toml:"collection"`
	ReadOnly   bool      `toml:"read_only"`
	Embedding  Embedding `toml:"embedding"`
	Summary    Summary   `toml:"summary"`
	Chunking   Chunking  `toml:"chunking"`
	// FilterableFields declares extra payload indexes created alongside
	// the structural ones.
	FilterableFields []FilterableField `toml:"filterable_fields"`
	// ToolDescriptions overrides MCP tool descriptions by tool name.
	ToolDescriptions map[string]string `toml:"tool_descriptions"`
}

// Qdrant holds the vector database connection settings.
type Qdrant struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

// Embedding selects and configures the embedding provider.
type Embedding struct {
	// Provider is "ollama" or "openai".
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	// OllamaURL is shared with the summarizer.
	OllamaURL string `toml:"ollama_url"`
	// OpenAIURL overrides the OpenAI base URL for compatible providers.
	OpenAIURL string `toml:"openai_url"`
	APIKey    string `toml:"api_key"`
	// VectorSize skips the dimension probe when set.
	VectorSize int `toml:"vector_size"`
	// RequestsPerSecond paces embedding calls; 0 disables pacing.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Summary configures abstract and tag generation. An empty model
// disables it.
type Summary struct {
	Model string `toml:"model"`
}

// Chunking configures the text splitter.
type Chunking struct {
	// ChunkSize and ChunkOverlap are in estimated tokens.
	ChunkSize     int     `toml:"chunk_size"`
	ChunkOverlap  int     `toml:"chunk_overlap"`
	CharsPerToken float64 `toml:"chars_per_token"`
}

// FilterableField declares one extra payload index.
type FilterableField struct {
	// Name is the payload field path, e.g. "metadata.project".
	Name string `toml:"name"`
	// Schema is the index schema: keyword, integer, float, bool, text.
	Schema string `toml:"schema"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Qdrant:     Qdrant{URL: "http://localhost:6333"},
		Collection: "memories",
		Embedding: Embedding{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			OllamaURL: "http://localhost:11434",
		},
		Chunking: Chunking{
			ChunkSize:     1000,
			ChunkOverlap:  100,
			CharsPerToken: 3.3,
		},
	}
}

// Load reads the configuration: defaults, then the TOML file at path
// (or ~/.quiver/config.toml when path is empty, missing file ignored),
// then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, DefaultPath)
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Environment variable names follow the original deployment convention
// so existing setups keep working.
func (c *Config) applyEnv() {
	setString(&c.Qdrant.URL, "QDRANT_URL")
	setString(&c.Qdrant.APIKey, "QDRANT_API_KEY")
	setString(&c.Collection, "COLLECTION_NAME")
	setBool(&c.ReadOnly, "QDRANT_READ_ONLY")
	setString(&c.Embedding.Provider, "EMBEDDING_PROVIDER")
	setString(&c.Embedding.Model, "EMBEDDING_MODEL")
	setString(&c.Embedding.OllamaURL, "OLLAMA_URL")
	setString(&c.Embedding.OpenAIURL, "OPENAI_BASE_URL")
	setString(&c.Embedding.APIKey, "OPENAI_API_KEY")
	setString(&c.Summary.Model, "SUMMARY_MODEL")
	setInt(&c.Chunking.ChunkSize, "CHUNK_SIZE")
	setInt(&c.Chunking.ChunkOverlap, "CHUNK_OVERLAP")

	if c.ToolDescriptions == nil {
		c.ToolDescriptions = make(map[string]string)
	}
	for env, tool := range toolDescriptionEnv {
		if v := os.Getenv(env); v != "" {
			c.ToolDescriptions[tool] = v
		}
	}
}

var toolDescriptionEnv = map[string]string{
	"TOOL_STORE_DESCRIPTION":            "qdrant-store",
	"TOOL_FIND_DESCRIPTION":             "qdrant-find",
	"TOOL_LIST_DESCRIPTION":             "qdrant-list",
	"TOOL_DELETE_DESCRIPTION":           "qdrant-delete",
	"TOOL_UPDATE_DESCRIPTION":           "qdrant-update",
	"TOOL_APPEND_DESCRIPTION":           "qdrant-append",
	"TOOL_SET_METADATA_DESCRIPTION":     "qdrant-set-metadata",
	"TOOL_ADD_TAGS_DESCRIPTION":         "qdrant-add-tags",
	"TOOL_REMOVE_TAGS_DESCRIPTION":      "qdrant-remove-tags",
	"TOOL_LIST_COLLECTIONS_DESCRIPTION": "qdrant-list-collections",
}

func setString(target *string, env string) {
	if v := os.Getenv(env); v != "" {
		*target = v
	}
}

func setInt(target *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func setBool(target *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}
