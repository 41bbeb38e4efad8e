package driving

import (
	"context"

	"github.com/quiver-labs/quiver-cli/internal/core/domain"
)

// StoreRequest carries the inputs of a store operation.
type StoreRequest struct {
	Title   string
	Content string
	// Metadata may carry source_type, source_ref, category and tags.
	// Missing source_type defaults to composed.
	Metadata map[string]any
	// Collection targets a collection other than the default.
	Collection string
	// DocumentID preserves an existing id on re-index; a fresh id is
	// generated when empty.
	DocumentID string
}

// MemoryService is the inbound port of the document memory store.
//
// All write operations identify their target through a flat filter map
// (see domain.TranslateFilter). When a filter resolves to more than one
// document, mutating operations abort and return the candidates for
// disambiguation instead of touching anything.
type MemoryService interface {
	// Store chunks, embeds and writes a document.
	Store(ctx context.Context, req StoreRequest) (domain.OperationResult, error)

	// Search finds documents by semantic similarity, grouped by
	// document and ordered by first hit.
	Search(ctx context.Context, query, collection string, limit int, filter map[string]any) ([]domain.DocumentSummary, error)

	// List scans documents matching the filter, without ranking.
	List(ctx context.Context, filter map[string]any, limit int, collection string) ([]domain.DocumentSummary, error)

	// Delete removes a single composed document and all its chunks.
	Delete(ctx context.Context, filter map[string]any, collection string) (domain.OperationResult, error)

	// Update replaces the content of a single composed document.
	Update(ctx context.Context, filter map[string]any, newContent string, newMetadata map[string]any, collection string) (domain.OperationResult, error)

	// Append adds text to the end of a single composed document.
	Append(ctx context.Context, filter map[string]any, text, collection string) (domain.OperationResult, error)

	// SetMetadata merges metadata keys onto every chunk of the matched
	// documents. Allowed for all source types.
	SetMetadata(ctx context.Context, filter map[string]any, metadata map[string]any, collection string) (domain.OperationResult, error)

	// AddTags unions tags into the tag set of the matched documents.
	AddTags(ctx context.Context, filter map[string]any, tags []string, collection string) (domain.OperationResult, error)

	// RemoveTags removes tags from the matched documents.
	RemoveTags(ctx context.Context, filter map[string]any, tags []string, collection string) (domain.OperationResult, error)

	// Collections lists the collections on the vector index.
	Collections(ctx context.Context) ([]string, error)
}
