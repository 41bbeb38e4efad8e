// Package cli implements the quiver command line interface using cobra.
// The root command wires configuration and adapters; subcommands reach
// the core only through the driving ports.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	embollama "github.com/quiver-labs/quiver-cli/internal/adapters/driven/embedding/ollama"
	embopenai "github.com/quiver-labs/quiver-cli/internal/adapters/driven/embedding/openai"
	"github.com/quiver-labs/quiver-cli/internal/adapters/driven/qdrant"
	sumollama "github.com/quiver-labs/quiver-cli/internal/adapters/driven/summarizer/ollama"
	"github.com/quiver-labs/quiver-cli/internal/chunker"
	"github.com/quiver-labs/quiver-cli/internal/config"
	"github.com/quiver-labs/quiver-cli/internal/core/ports/driven"
	"github.com/quiver-labs/quiver-cli/internal/core/services"
	"github.com/quiver-labs/quiver-cli/internal/logger"
)

// version is set from main at startup.
var version = "dev"

// Shared wiring, built once in the root PersistentPreRunE.
var (
	cfg           config.Config
	vectorIndex   driven.VectorIndex
	memoryService *services.MemoryStore
)

var (
	flagVerbose    bool
	flagConfigPath string
)

var rootCmd = &cobra.Command{
	Use:   "quiver",
	Short: "Document memory store over Qdrant",
	Long: `Quiver stores documents as chunked, embedded memories in a Qdrant
collection and serves them back to AI assistants over MCP. Documents
are split at natural boundaries, grouped per document on retrieval,
and tracked by access so stale memories can be cleaned up.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)

		loaded, err := config.Load(flagConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded

		return initServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging to stderr")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file (default ~/"+config.DefaultPath+")")
}

// Execute runs the CLI with the given build version.
func Execute(buildVersion string) error {
	if buildVersion != "" {
		version = buildVersion
	}
	return rootCmd.Execute()
}

// initServices builds the adapter stack from the loaded configuration.
func initServices() error {
	vectorIndex = qdrant.NewClient(qdrant.Config{
		URL:    cfg.Qdrant.URL,
		APIKey: cfg.Qdrant.APIKey,
	})

	embedder, err := newEmbedder()
	if err != nil {
		return err
	}

	var summarizer driven.Summarizer
	if cfg.Summary.Model != "" {
		summarizer = sumollama.New(sumollama.Config{
			URL:   cfg.Embedding.OllamaURL,
			Model: cfg.Summary.Model,
		})
	}

	memoryService = services.NewMemoryStore(services.MemoryStoreConfig{
		Index:      vectorIndex,
		Embedder:   embedder,
		Summarizer: summarizer,
		Chunker: chunker.New(
			chunker.WithChunkSize(cfg.Chunking.ChunkSize),
			chunker.WithOverlap(cfg.Chunking.ChunkOverlap),
			chunker.WithCharsPerToken(cfg.Chunking.CharsPerToken),
		),
		DefaultCollection: cfg.Collection,
		FieldIndexes:      fieldIndexes(cfg.FilterableFields),
		ReadOnly:          cfg.ReadOnly,
	})

	logger.Debug("configured qdrant at %s, collection %q, provider %s", cfg.Qdrant.URL, cfg.Collection, cfg.Embedding.Provider)
	return nil
}

func newEmbedder() (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embopenai.New(embopenai.Config{
			URL:               cfg.Embedding.OpenAIURL,
			APIKey:            cfg.Embedding.APIKey,
			Model:             cfg.Embedding.Model,
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
			VectorSize:        cfg.Embedding.VectorSize,
		}), nil
	case "ollama", "":
		return embollama.New(embollama.Config{
			URL:               cfg.Embedding.OllamaURL,
			Model:             cfg.Embedding.Model,
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
			VectorSize:        cfg.Embedding.VectorSize,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

func fieldIndexes(fields []config.FilterableField) map[string]driven.PayloadSchema {
	if len(fields) == 0 {
		return nil
	}
	indexes := make(map[string]driven.PayloadSchema, len(fields))
	for _, field := range fields {
		schema := driven.PayloadSchema(field.Schema)
		if schema == "" {
			schema = driven.SchemaKeyword
		}
		indexes[field.Name] = schema
	}
	return indexes
}
