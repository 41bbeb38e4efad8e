package services

import (
	"context"
	"fmt"

	"github.com/quiver-labs/quiver-cli/internal/core/domain"
	"github.com/quiver-labs/quiver-cli/internal/logger"
)

// Delete removes a single composed document and all its chunks.
// External source types are refused: they are owned by the sync
// pipeline and must be deleted at the source.
func (s *MemoryStore) Delete(ctx context.Context, filter map[string]any, collection string) (domain.OperationResult, error) {
	if s.readOnly {
		return domain.OperationResult{}, domain.ErrReadOnly
	}
	collection = s.collectionOrDefault(collection)

	doc, result, err := s.resolveSingle(ctx, filter, collection)
	if err != nil || !result.Success {
		return result, err
	}

	if !doc.Metadata.SourceType.IsComposed() {
		return forbiddenResult(doc,
			"Cannot delete '%s' — it is a '%s' entry (source: %s). "+
				"Delete it at the source; the sync will update the index automatically.",
		), nil
	}

	if err := s.deleteAllChunks(ctx, collection, doc.DocumentID); err != nil {
		return domain.OperationResult{}, fmt.Errorf("deleting document %q: %w", doc.DocumentID, err)
	}

	logger.Debug("deleted document %q (%s, %d chunk(s)) from %q", doc.Title, doc.DocumentID, doc.ChunkCount, collection)
	return domain.OperationResult{
		Success: true,
		Message: fmt.Sprintf("Deleted document '%s' (%d chunk(s)).", doc.Title, doc.ChunkCount),
		Count:   1,
	}, nil
}

// Update replaces the content of a single composed document: the new
// content is re-chunked and re-embedded, the abstract is regenerated,
// new metadata keys are merged over the existing ones, and the old
// chunk set is replaced under the same document id. Empty replacement
// content fails before anything is deleted.
func (s *MemoryStore) Update(ctx context.Context, filter map[string]any, newContent string, newMetadata map[string]any, collection string) (domain.OperationResult, error) {
	if s.readOnly {
		return domain.OperationResult{}, domain.ErrReadOnly
	}
	collection = s.collectionOrDefault(collection)

	doc, result, err := s.resolveSingle(ctx, filter, collection)
	if err != nil || !result.Success {
		return result, err
	}

	if !doc.Metadata.SourceType.IsComposed() {
		return forbiddenResult(doc,
			"Cannot update '%s' — it is a '%s' entry (source: %s). "+
				"Edit the source directly; the sync will update the index.",
		), nil
	}

	// Merge new metadata over the existing document metadata; new keys
	// win. The update itself counts as an access (+2).
	merged := doc.Metadata.ToMap()
	for key, value := range newMetadata {
		merged[key] = value
	}
	now := domain.Timestamp(s.now())
	merged["updated_at"] = now
	merged["relevance_score"] = doc.Metadata.RelevanceScore + scoreUpdate
	merged["last_accessed_at"] = now
	meta := domain.MetadataFromMap(merged)

	chunks := s.splitter.Chunk(newContent)
	if len(chunks) == 0 {
		return domain.Failure("New content is empty."), nil
	}

	abstract := ""
	if s.summarizer != nil && s.summarizer.Enabled() {
		abstract = s.summarizer.GenerateAbstract(ctx, newContent, doc.Title)
	}

	if err := s.deleteAllChunks(ctx, collection, doc.DocumentID); err != nil {
		return domain.OperationResult{}, fmt.Errorf("replacing document %q: %w", doc.DocumentID, err)
	}

	points, err := s.buildPoints(ctx, doc.DocumentID, doc.Title, abstract, newContent, chunks, meta)
	if err != nil {
		return domain.OperationResult{}, err
	}
	if err := s.index.Upsert(ctx, collection, points); err != nil {
		return domain.OperationResult{}, fmt.Errorf("rewriting document %q: %w", doc.DocumentID, err)
	}

	return domain.OperationResult{
		Success:    true,
		Message:    fmt.Sprintf("Updated document '%s' with %d chunk(s).", doc.Title, len(chunks)),
		Count:      1,
		DocumentID: doc.DocumentID,
	}, nil
}

// Append adds text to the end of a single composed document. The full
// text is fetched from chunk 0, joined with a blank line, and the
// result is delegated to Update to reuse its re-chunk/re-embed path.
func (s *MemoryStore) Append(ctx context.Context, filter map[string]any, text, collection string) (domain.OperationResult, error) {
	if s.readOnly {
		return domain.OperationResult{}, domain.ErrReadOnly
	}
	collection = s.collectionOrDefault(collection)

	doc, result, err := s.resolveSingle(ctx, filter, collection)
	if err != nil || !result.Success {
		return result, err
	}

	if !doc.Metadata.SourceType.IsComposed() {
		return forbiddenResult(doc,
			"Cannot append to '%s' — it is a '%s' entry (source: %s). No full text is kept "+
				"for external entries; fetch the text from the source and use update instead.",
		), nil
	}

	fullContent, err := s.fullContent(ctx, collection, doc.DocumentID)
	if err != nil {
		return domain.OperationResult{}, err
	}
	if fullContent == "" {
		return domain.Failure("Could not retrieve the full text of document '%s'.", doc.Title), nil
	}

	combined := fullContent + "\n\n" + text
	return s.Update(ctx, map[string]any{domain.FieldDocumentID: doc.DocumentID}, combined, nil, collection)
}

// SetMetadata shallow-merges the given keys into the metadata object of
// every chunk of every matched document. Allowed for all source types;
// chunk text and vectors are untouched.
func (s *MemoryStore) SetMetadata(ctx context.Context, filter map[string]any, metadata map[string]any, collection string) (domain.OperationResult, error) {
	return s.rewriteMetadata(ctx, filter, collection,
		"Updated metadata on %d document(s).",
		func(existing map[string]any) {
			for key, value := range metadata {
				existing[key] = value
			}
		})
}

// AddTags unions the given tags into the tag set of every matched
// document. Idempotent; allowed for all source types.
func (s *MemoryStore) AddTags(ctx context.Context, filter map[string]any, tags []string, collection string) (domain.OperationResult, error) {
	return s.rewriteMetadata(ctx, filter, collection,
		"Added tags to %d document(s).",
		func(existing map[string]any) {
			merged := metadataTags(existing)
			for _, tag := range tags {
				if !containsString(merged, tag) {
					merged = append(merged, tag)
				}
			}
			existing["tags"] = merged
		})
}

// RemoveTags removes the named tags from every matched document.
// Allowed for all source types.
func (s *MemoryStore) RemoveTags(ctx context.Context, filter map[string]any, tags []string, collection string) (domain.OperationResult, error) {
	return s.rewriteMetadata(ctx, filter, collection,
		"Removed tags from %d document(s).",
		func(existing map[string]any) {
			var kept []string
			for _, tag := range metadataTags(existing) {
				if !containsString(tags, tag) {
					kept = append(kept, tag)
				}
			}
			if kept == nil {
				kept = []string{}
			}
			existing["tags"] = kept
		})
}

// rewriteMetadata applies mutate to a copy of the metadata object of
// every chunk of every document matching the filter, stamps updated_at,
// and writes each object back. The per-chunk writes are individual
// payload patches; chunk text and vectors are untouched.
func (s *MemoryStore) rewriteMetadata(ctx context.Context, filter map[string]any, collection, messageFormat string, mutate func(map[string]any)) (domain.OperationResult, error) {
	if s.readOnly {
		return domain.OperationResult{}, domain.ErrReadOnly
	}
	collection = s.collectionOrDefault(collection)

	exists, err := s.index.CollectionExists(ctx, collection)
	if err != nil {
		return domain.OperationResult{}, err
	}
	if !exists {
		return domain.Failure("Collection does not exist."), nil
	}

	documents, err := s.resolveDocuments(ctx, filter, collection)
	if err != nil {
		return domain.OperationResult{}, err
	}
	if len(documents) == 0 {
		return domain.Failure("No matching documents found."), nil
	}

	now := domain.Timestamp(s.now())
	for _, doc := range documents {
		records, err := s.chunksOf(ctx, collection, doc.DocumentID)
		if err != nil {
			return domain.OperationResult{}, err
		}
		for _, record := range records {
			existing, _ := record.Payload[domain.MetadataPath].(map[string]any)
			updated := copyMap(existing)
			mutate(updated)
			updated["updated_at"] = now
			if err := s.index.SetPayloadKey(ctx, collection, record.ID, domain.MetadataPath, updated); err != nil {
				return domain.OperationResult{}, fmt.Errorf("patching metadata on point %q: %w", record.ID, err)
			}
		}
	}

	return domain.OperationResult{
		Success: true,
		Message: fmt.Sprintf(messageFormat, len(documents)),
		Count:   len(documents),
	}, nil
}

// resolveSingle resolves the filter to exactly one document. The
// returned result has Success=true only when a single document was
// found; otherwise it carries the not-found or disambiguation outcome
// and the caller must return it unchanged.
func (s *MemoryStore) resolveSingle(ctx context.Context, filter map[string]any, collection string) (domain.DocumentSummary, domain.OperationResult, error) {
	exists, err := s.index.CollectionExists(ctx, collection)
	if err != nil {
		return domain.DocumentSummary{}, domain.OperationResult{}, err
	}
	if !exists {
		return domain.DocumentSummary{}, domain.Failure("Collection does not exist."), nil
	}

	documents, err := s.resolveDocuments(ctx, filter, collection)
	if err != nil {
		return domain.DocumentSummary{}, domain.OperationResult{}, err
	}
	if len(documents) == 0 {
		return domain.DocumentSummary{}, domain.Failure("No matching documents found."), nil
	}
	if len(documents) > 1 {
		return domain.DocumentSummary{}, domain.Ambiguous(documents), nil
	}
	return documents[0], domain.OperationResult{Success: true}, nil
}

// forbiddenResult builds the refusal for composed-only operations
// targeting an external document. The format receives title, source
// type and source ref, in that order.
func forbiddenResult(doc domain.DocumentSummary, format string) domain.OperationResult {
	result := domain.Failure(format, doc.Title, doc.Metadata.SourceType, doc.Metadata.SourceRef)
	result.Documents = []domain.DocumentSummary{doc}
	return result
}

func metadataTags(meta map[string]any) []string {
	switch v := meta["tags"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+2)
	for key, value := range m {
		out[key] = value
	}
	return out
}
