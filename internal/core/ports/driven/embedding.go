package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Note: this is separate from VectorIndex, which stores and searches
// vectors. EmbeddingService generates vectors; VectorIndex stores them.
//
// Implementations may include:
//   - Ollama (nomic-embed-text, embeddinggemma)
//   - OpenAI-compatible APIs (text-embedding-3-small, -large)
type EmbeddingService interface {
	// EmbedDocuments generates an embedding per input text, in order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// VectorName returns the stable named-vector key this provider
	// occupies in a collection. Different models must map to different
	// names so their vectors never mix.
	VectorName() string

	// VectorSize returns the embedding dimension. It is read once, at
	// collection creation, and may probe the backend.
	VectorSize(ctx context.Context) (int, error)
}
