package services

import (
	"context"
	"fmt"

	"github.com/quiver-labs/quiver-cli/internal/core/domain"
	"github.com/quiver-labs/quiver-cli/internal/core/ports/driven"
)

// bumpAccess increments relevance_score by delta and refreshes
// last_accessed_at on every chunk of the given documents. The two
// fields always move together. Each chunk is an individual
// read-modify-write without a version check; a concurrent actor can
// lose a bump.
func (s *MemoryStore) bumpAccess(ctx context.Context, collection string, docIDs []string, delta int) error {
	if len(docIDs) == 0 {
		return nil
	}
	now := domain.Timestamp(s.now())

	for _, docID := range docIDs {
		records, err := s.chunksOf(ctx, collection, docID)
		if err != nil {
			return err
		}
		for _, record := range records {
			existing, _ := record.Payload[domain.MetadataPath].(map[string]any)
			updated := copyMap(existing)
			score := domain.MetadataFromMap(existing).RelevanceScore
			updated["relevance_score"] = score + delta
			updated["last_accessed_at"] = now
			if err := s.index.SetPayloadKey(ctx, collection, record.ID, domain.MetadataPath, updated); err != nil {
				return fmt.Errorf("tracking access on point %q: %w", record.ID, err)
			}
		}
	}
	return nil
}

// chunksOf fetches all stored chunks of one document.
func (s *MemoryStore) chunksOf(ctx context.Context, collection, docID string) ([]driven.Record, error) {
	records, _, err := s.index.Scroll(ctx, collection,
		[]domain.FilterCondition{domain.Equals(domain.FieldDocumentID, docID)},
		chunkScanLimit, nil)
	if err != nil {
		return nil, fmt.Errorf("scanning chunks of document %q: %w", docID, err)
	}
	return records, nil
}

// fullContent retrieves the original text from chunk 0 of a composed
// document. Returns "" when the chunk carries no full text.
func (s *MemoryStore) fullContent(ctx context.Context, collection, docID string) (string, error) {
	records, _, err := s.index.Scroll(ctx, collection,
		[]domain.FilterCondition{
			domain.Equals(domain.FieldDocumentID, docID),
			domain.Equals(domain.FieldChunkIndex, 0),
		}, 1, nil)
	if err != nil {
		return "", fmt.Errorf("fetching full text of document %q: %w", docID, err)
	}
	if len(records) == 0 {
		return "", nil
	}
	content, _ := records[0].Payload[domain.FieldFullContent].(string)
	return content, nil
}

// deleteAllChunks removes every point sharing the document id with one
// filtered delete.
func (s *MemoryStore) deleteAllChunks(ctx context.Context, collection, docID string) error {
	return s.index.DeleteByFilter(ctx, collection,
		[]domain.FilterCondition{domain.Equals(domain.FieldDocumentID, docID)})
}
