package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quiver-labs/quiver-cli/internal/chunker"
	"github.com/quiver-labs/quiver-cli/internal/core/domain"
	"github.com/quiver-labs/quiver-cli/internal/core/ports/driven"
	"github.com/quiver-labs/quiver-cli/internal/core/ports/driving"
	"github.com/quiver-labs/quiver-cli/internal/logger"
)

// Ensure MemoryStore implements the interface.
var _ driving.MemoryService = (*MemoryStore)(nil)

// Access-tracking score increments per operation.
const (
	scoreSearch = 3
	scoreUpdate = 2
	scoreList   = 1
)

// resolveScanLimit bounds how many chunks a filter resolution scans.
const resolveScanLimit = 200

// chunkScanLimit bounds how many chunks of one document are fetched.
const chunkScanLimit = 500

// listOverFetch is the over-fetch factor applied when scanning for
// distinct documents: multi-chunk documents collapse during grouping.
const listOverFetch = 5

// MemoryStore owns the chunking, embedding and indexing pipeline of the
// two-level document/chunk model. Documents are split into chunks that
// fit the embedding model's context window; all chunks of a document
// share a document_id and carry redundant document-level metadata.
//
// Consistency is best effort: the resolve-then-mutate sequence is not
// atomic, and per-chunk access tracking is an unguarded
// read-modify-write, so concurrent actors can lose updates. All chunk
// writes of one store/update go out in a single upsert batch.
type MemoryStore struct {
	index             driven.VectorIndex
	embedder          driven.EmbeddingService
	summarizer        driven.Summarizer
	splitter          *chunker.Chunker
	defaultCollection string
	fieldIndexes      map[string]driven.PayloadSchema
	readOnly          bool
	now               func() time.Time
}

// MemoryStoreConfig holds the collaborators and settings of a
// MemoryStore.
type MemoryStoreConfig struct {
	Index    driven.VectorIndex
	Embedder driven.EmbeddingService
	// Summarizer is optional; nil disables abstract generation.
	Summarizer driven.Summarizer
	Chunker    *chunker.Chunker
	// DefaultCollection is used when an operation names no collection.
	DefaultCollection string
	// FieldIndexes are caller-declared payload indexes merged into the
	// structural ones at collection creation.
	FieldIndexes map[string]driven.PayloadSchema
	// ReadOnly rejects all mutating operations.
	ReadOnly bool
	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewMemoryStore creates a memory store from its configuration.
func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	splitter := cfg.Chunker
	if splitter == nil {
		splitter = chunker.New()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		index:             cfg.Index,
		embedder:          cfg.Embedder,
		summarizer:        cfg.Summarizer,
		splitter:          splitter,
		defaultCollection: cfg.DefaultCollection,
		fieldIndexes:      cfg.FieldIndexes,
		readOnly:          cfg.ReadOnly,
		now:               now,
	}
}

// NewDocumentID generates a fresh document id (uuid v4 hex).
func NewDocumentID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Store chunks, embeds and writes a document. All points share one
// document_id; chunk 0 of composed documents additionally carries the
// full original text.
func (s *MemoryStore) Store(ctx context.Context, req driving.StoreRequest) (domain.OperationResult, error) {
	if s.readOnly {
		return domain.OperationResult{}, domain.ErrReadOnly
	}
	collection := s.collectionOrDefault(req.Collection)
	if err := s.ensureCollectionExists(ctx, collection); err != nil {
		return domain.OperationResult{}, err
	}

	now := domain.Timestamp(s.now())
	meta := documentMetadataFromInput(req.Metadata, now)

	abstract := ""
	if s.summarizer != nil && s.summarizer.Enabled() {
		abstract = s.summarizer.GenerateAbstract(ctx, req.Content, req.Title)
		if len(meta.Tags) == 0 {
			meta.Tags = s.summarizer.GenerateTags(ctx, req.Content, req.Title)
		}
	}

	chunks := s.splitter.Chunk(req.Content)
	if len(chunks) == 0 {
		return domain.Failure("Empty content, nothing to store."), nil
	}

	docID := req.DocumentID
	if docID == "" {
		docID = NewDocumentID()
	}

	points, err := s.buildPoints(ctx, docID, req.Title, abstract, req.Content, chunks, meta)
	if err != nil {
		return domain.OperationResult{}, err
	}
	if err := s.index.Upsert(ctx, collection, points); err != nil {
		return domain.OperationResult{}, fmt.Errorf("storing document %q: %w", req.Title, err)
	}

	logger.Debug("stored document %q (%s) with %d chunk(s) in %q", req.Title, docID, len(chunks), collection)
	return domain.OperationResult{
		Success:    true,
		Message:    fmt.Sprintf("Stored document '%s' with %d chunk(s).", req.Title, len(chunks)),
		Count:      len(chunks),
		DocumentID: docID,
	}, nil
}

// Search embeds the query, runs a nearest-neighbour lookup over chunk
// vectors and groups the hits into document summaries ordered by first
// appearance. Every returned document gets an access bump of +3.
func (s *MemoryStore) Search(ctx context.Context, query, collection string, limit int, filter map[string]any) ([]domain.DocumentSummary, error) {
	collection = s.collectionOrDefault(collection)
	exists, err := s.index.CollectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := s.index.Query(ctx, collection, s.embedder.VectorName(), vector, limit, domain.TranslateFilter(filter))
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	records := make([]driven.Record, len(hits))
	for i := range hits {
		records[i] = driven.Record{ID: hits[i].ID, Payload: hits[i].Payload}
	}
	documents := groupRecords(records, true)

	if err := s.bumpAccess(ctx, collection, documentIDs(documents), scoreSearch); err != nil {
		return nil, err
	}
	return documents, nil
}

// List scans chunks matching the filter without ranking, over-fetching
// to yield up to limit distinct documents after grouping. Every
// returned document gets an access bump of +1.
func (s *MemoryStore) List(ctx context.Context, filter map[string]any, limit int, collection string) ([]domain.DocumentSummary, error) {
	collection = s.collectionOrDefault(collection)
	exists, err := s.index.CollectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	records, _, err := s.index.Scroll(ctx, collection, domain.TranslateFilter(filter), limit*listOverFetch, nil)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	documents := groupRecords(records, true)
	if len(documents) > limit {
		documents = documents[:limit]
	}

	if err := s.bumpAccess(ctx, collection, documentIDs(documents), scoreList); err != nil {
		return nil, err
	}
	return documents, nil
}

// Collections lists the collections on the vector index.
func (s *MemoryStore) Collections(ctx context.Context) ([]string, error) {
	return s.index.ListCollections(ctx)
}

// resolveDocuments finds all documents matching a filter, grouped by
// document_id and ordered by first appearance. Used by every mutating
// operation. An unresolvable (empty) filter matches nothing.
func (s *MemoryStore) resolveDocuments(ctx context.Context, filter map[string]any, collection string) ([]domain.DocumentSummary, error) {
	conditions := domain.TranslateFilter(filter)
	if len(conditions) == 0 {
		return nil, nil
	}
	records, _, err := s.index.Scroll(ctx, collection, conditions, resolveScanLimit, nil)
	if err != nil {
		return nil, err
	}
	return groupRecords(records, false), nil
}

// buildPoints embeds the chunks and assembles one point per chunk.
// Chunk 0 of composed documents carries the full original text.
func (s *MemoryStore) buildPoints(ctx context.Context, docID, title, abstract, fullContent string, chunks []string, meta domain.DocumentMetadata) ([]driven.Point, error) {
	vectors, err := s.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding %d chunk(s): %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding service returned %d vector(s) for %d chunk(s)", len(vectors), len(chunks))
	}
	vectorName := s.embedder.VectorName()

	points := make([]driven.Point, len(chunks))
	for i := range chunks {
		payload := domain.ChunkPayload{
			DocumentID: docID,
			Title:      title,
			ChunkIndex: i,
			Content:    chunks[i],
			Abstract:   abstract,
			Metadata:   meta,
		}
		if i == 0 && meta.SourceType.IsComposed() {
			payload.FullContent = fullContent
		}
		points[i] = driven.Point{
			ID:      uuid.NewString(),
			Vectors: map[string][]float32{vectorName: vectors[i]},
			Payload: payload.ToPayload(),
		}
	}
	return points, nil
}

// ensureCollectionExists lazily creates the collection with the named
// vector configuration and the structural payload indexes the
// document/chunk model filters on, merged with any configured ones.
func (s *MemoryStore) ensureCollectionExists(ctx context.Context, collection string) error {
	exists, err := s.index.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	size, err := s.embedder.VectorSize(ctx)
	if err != nil {
		return fmt.Errorf("reading embedding dimension: %w", err)
	}
	if err := s.index.CreateCollection(ctx, collection, s.embedder.VectorName(), size); err != nil {
		return fmt.Errorf("creating collection %q: %w", collection, err)
	}

	indexes := map[string]driven.PayloadSchema{
		domain.FieldDocumentID:               driven.SchemaKeyword,
		domain.FieldChunkIndex:               driven.SchemaInteger,
		domain.MetadataPath + ".source_type": driven.SchemaKeyword,
		domain.MetadataPath + ".category":    driven.SchemaKeyword,
		domain.MetadataPath + ".tags":        driven.SchemaKeyword,
	}
	for field, schema := range s.fieldIndexes {
		indexes[field] = schema
	}

	fields := make([]string, 0, len(indexes))
	for field := range indexes {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if err := s.index.CreatePayloadIndex(ctx, collection, field, indexes[field]); err != nil {
			return fmt.Errorf("indexing payload field %q: %w", field, err)
		}
	}
	return nil
}

func (s *MemoryStore) collectionOrDefault(collection string) string {
	if collection == "" {
		return s.defaultCollection
	}
	return collection
}

// groupRecords deduplicates chunk records into one summary per
// document, ordered by first appearance, counting grouped chunks.
// Points without a document_id predate the document/chunk model; with
// wrapLegacy set they are returned as single-point documents so old
// collections still show up in search and list. Resolution for
// mutating operations skips them instead, since a legacy_ id cannot
// address any stored chunk.
func groupRecords(records []driven.Record, wrapLegacy bool) []domain.DocumentSummary {
	var (
		order   []string
		grouped = make(map[string]*domain.DocumentSummary)
	)
	for _, record := range records {
		chunk := domain.ChunkPayloadFromPayload(record.Payload)
		docID := chunk.DocumentID
		if docID == "" {
			if !wrapLegacy {
				continue
			}
			docID = "legacy_" + record.ID
		}
		if existing, ok := grouped[docID]; ok {
			existing.ChunkCount++
			continue
		}
		title := chunk.Title
		if title == "" {
			title = "(untitled)"
		}
		grouped[docID] = &domain.DocumentSummary{
			DocumentID: docID,
			Title:      title,
			Abstract:   chunk.Abstract,
			Metadata:   chunk.Metadata,
			ChunkCount: 1,
		}
		order = append(order, docID)
	}

	documents := make([]domain.DocumentSummary, 0, len(order))
	for _, id := range order {
		documents = append(documents, *grouped[id])
	}
	return documents
}

func documentIDs(documents []domain.DocumentSummary) []string {
	ids := make([]string, len(documents))
	for i := range documents {
		ids[i] = documents[i].DocumentID
	}
	return ids
}

// documentMetadataFromInput builds the stored metadata from the free
// form metadata map of a store request.
func documentMetadataFromInput(input map[string]any, now string) domain.DocumentMetadata {
	meta := domain.DocumentMetadata{
		SourceType:     domain.SourceComposed,
		CreatedAt:      now,
		RelevanceScore: 0,
		LastAccessedAt: now,
	}
	if input == nil {
		return meta
	}
	if v, ok := input["source_type"].(string); ok && v != "" {
		meta.SourceType = domain.SourceType(v)
	}
	if v, ok := input["source_ref"].(string); ok {
		meta.SourceRef = v
	}
	if v, ok := input["category"].(string); ok {
		meta.Category = v
	}
	switch tags := input["tags"].(type) {
	case []string:
		meta.Tags = tags
	case []any:
		for _, tag := range tags {
			if s, ok := tag.(string); ok {
				meta.Tags = append(meta.Tags, s)
			}
		}
	}
	return meta
}
