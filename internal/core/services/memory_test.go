package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiver-labs/quiver-cli/internal/chunker"
	"github.com/quiver-labs/quiver-cli/internal/core/domain"
	"github.com/quiver-labs/quiver-cli/internal/core/ports/driven"
	"github.com/quiver-labs/quiver-cli/internal/core/ports/driving"
)

var testClock = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

type storeFixture struct {
	store *MemoryStore
	index *fakeIndex
}

func newStoreFixture(t *testing.T, opts ...func(*MemoryStoreConfig)) storeFixture {
	t.Helper()
	index := newFakeIndex()
	cfg := MemoryStoreConfig{
		Index:             index,
		Embedder:          newStubEmbedder(),
		Chunker:           chunker.New(),
		DefaultCollection: "memories",
		Now:               func() time.Time { return testClock },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return storeFixture{store: NewMemoryStore(cfg), index: index}
}

func TestMemoryStore_Store(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a single-chunk document", func(t *testing.T) {
		fx := newStoreFixture(t)

		result, err := fx.store.Store(ctx, driving.StoreRequest{
			Title:   "Meeting notes",
			Content: "Discussed the rollout plan.",
		})
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 1, result.Count)
		require.NotEmpty(t, result.DocumentID)

		points := fx.index.pointsIn("memories")
		require.Len(t, points, 1)
		payload := points[0].Payload
		assert.Equal(t, result.DocumentID, payload[domain.FieldDocumentID])
		assert.Equal(t, "Meeting notes", payload[domain.FieldTitle])
		assert.Equal(t, 0, payload[domain.FieldChunkIndex])
		assert.Equal(t, "Discussed the rollout plan.", payload[domain.FieldDocument])
		assert.Equal(t, "Discussed the rollout plan.", payload[domain.FieldFullContent])

		meta := domain.MetadataFromMap(payload[domain.MetadataPath].(map[string]any))
		assert.Equal(t, domain.SourceComposed, meta.SourceType)
		assert.Equal(t, 0, meta.RelevanceScore)
		assert.Equal(t, domain.Timestamp(testClock), meta.CreatedAt)
		assert.Equal(t, domain.Timestamp(testClock), meta.LastAccessedAt)
	})

	t.Run("splits long content and keeps full text on chunk 0 only", func(t *testing.T) {
		fx := newStoreFixture(t, func(cfg *MemoryStoreConfig) {
			cfg.Chunker = chunker.New(
				chunker.WithChunkSize(10),
				chunker.WithOverlap(0),
				chunker.WithCharsPerToken(1),
			)
		})

		content := "alpha beta gamma delta epsilon zeta"
		result, err := fx.store.Store(ctx, driving.StoreRequest{Title: "Long", Content: content})
		require.NoError(t, err)
		assert.Greater(t, result.Count, 1)

		points := fx.index.pointsIn("memories")
		require.Len(t, points, result.Count)
		for _, point := range points {
			payload := point.Payload
			assert.Equal(t, result.DocumentID, payload[domain.FieldDocumentID])
			if payload[domain.FieldChunkIndex] == 0 {
				assert.Equal(t, content, payload[domain.FieldFullContent])
			} else {
				assert.NotContains(t, payload, domain.FieldFullContent)
			}
		}
	})

	t.Run("creates the collection with structural payload indexes", func(t *testing.T) {
		fx := newStoreFixture(t)

		_, err := fx.store.Store(ctx, driving.StoreRequest{Title: "First", Content: "text"})
		require.NoError(t, err)

		assert.Equal(t, []string{
			"chunk_index",
			"document_id",
			"metadata.category",
			"metadata.source_type",
			"metadata.tags",
		}, fx.index.sortedIndexFields("memories"))
	})

	t.Run("carries caller metadata and preserves explicit tags", func(t *testing.T) {
		fx := newStoreFixture(t, func(cfg *MemoryStoreConfig) {
			cfg.Summarizer = &stubSummarizer{enabled: true, abstract: "An abstract.", tags: []string{"generated"}}
		})

		result, err := fx.store.Store(ctx, driving.StoreRequest{
			Title:   "Tagged",
			Content: "body",
			Metadata: map[string]any{
				"category": "work",
				"tags":     []string{"explicit"},
			},
		})
		require.NoError(t, err)

		payload := fx.index.pointsIn("memories")[0].Payload
		assert.Equal(t, "An abstract.", payload[domain.FieldAbstract])
		meta := domain.MetadataFromMap(payload[domain.MetadataPath].(map[string]any))
		assert.Equal(t, "work", meta.Category)
		assert.Equal(t, []string{"explicit"}, meta.Tags)

		_ = result
	})

	t.Run("generates tags when the caller passes none", func(t *testing.T) {
		fx := newStoreFixture(t, func(cfg *MemoryStoreConfig) {
			cfg.Summarizer = &stubSummarizer{enabled: true, abstract: "a", tags: []string{"auto", "topic"}}
		})

		_, err := fx.store.Store(ctx, driving.StoreRequest{Title: "Untagged", Content: "body"})
		require.NoError(t, err)

		meta := domain.MetadataFromMap(fx.index.pointsIn("memories")[0].Payload[domain.MetadataPath].(map[string]any))
		assert.Equal(t, []string{"auto", "topic"}, meta.Tags)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		fx := newStoreFixture(t)

		result, err := fx.store.Store(ctx, driving.StoreRequest{Title: "Empty", Content: "   \n  "})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "Empty content, nothing to store.", result.Message)
		assert.Empty(t, fx.index.pointsIn("memories"))
	})

	t.Run("refuses writes in read-only mode", func(t *testing.T) {
		fx := newStoreFixture(t, func(cfg *MemoryStoreConfig) { cfg.ReadOnly = true })

		_, err := fx.store.Store(ctx, driving.StoreRequest{Title: "x", Content: "y"})
		assert.ErrorIs(t, err, domain.ErrReadOnly)
	})

	t.Run("reuses a caller-supplied document id", func(t *testing.T) {
		fx := newStoreFixture(t)

		result, err := fx.store.Store(ctx, driving.StoreRequest{
			Title:      "Pinned",
			Content:    "text",
			DocumentID: "doc-pinned",
		})
		require.NoError(t, err)
		assert.Equal(t, "doc-pinned", result.DocumentID)
	})
}

func TestMemoryStore_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("groups chunk hits into documents and bumps access", func(t *testing.T) {
		fx := newStoreFixture(t)
		stored, err := fx.store.Store(ctx, driving.StoreRequest{Title: "Notes", Content: "rollout plan"})
		require.NoError(t, err)

		docs, err := fx.store.Search(ctx, "rollout", "", 5, nil)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, stored.DocumentID, docs[0].DocumentID)
		assert.Equal(t, "Notes", docs[0].Title)
		assert.Equal(t, 1, docs[0].ChunkCount)

		// Search bumps relevance by 3 on every chunk.
		meta := domain.MetadataFromMap(fx.index.pointsIn("memories")[0].Payload[domain.MetadataPath].(map[string]any))
		assert.Equal(t, 3, meta.RelevanceScore)
		assert.Equal(t, domain.Timestamp(testClock), meta.LastAccessedAt)
	})

	t.Run("applies metadata filters", func(t *testing.T) {
		fx := newStoreFixture(t)
		_, err := fx.store.Store(ctx, driving.StoreRequest{
			Title: "Work", Content: "a", Metadata: map[string]any{"category": "work"},
		})
		require.NoError(t, err)
		_, err = fx.store.Store(ctx, driving.StoreRequest{
			Title: "Home", Content: "b", Metadata: map[string]any{"category": "home"},
		})
		require.NoError(t, err)

		docs, err := fx.store.Search(ctx, "anything", "", 5, map[string]any{"category": "home"})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Home", docs[0].Title)
	})

	t.Run("returns nothing for a missing collection", func(t *testing.T) {
		fx := newStoreFixture(t)

		docs, err := fx.store.Search(ctx, "anything", "ghost", 5, nil)
		require.NoError(t, err)
		assert.Nil(t, docs)
	})
}

func TestMemoryStore_List(t *testing.T) {
	ctx := context.Background()

	t.Run("lists distinct documents and bumps access by one", func(t *testing.T) {
		fx := newStoreFixture(t)
		first, err := fx.store.Store(ctx, driving.StoreRequest{Title: "One", Content: "a"})
		require.NoError(t, err)
		_, err = fx.store.Store(ctx, driving.StoreRequest{Title: "Two", Content: "b"})
		require.NoError(t, err)

		docs, err := fx.store.List(ctx, nil, 10, "")
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "One", docs[0].Title)
		assert.Equal(t, "Two", docs[1].Title)

		for _, point := range fx.index.pointsIn("memories") {
			if point.Payload[domain.FieldDocumentID] != first.DocumentID {
				continue
			}
			meta := domain.MetadataFromMap(point.Payload[domain.MetadataPath].(map[string]any))
			assert.Equal(t, 1, meta.RelevanceScore)
		}
	})

	t.Run("caps results at the limit after grouping", func(t *testing.T) {
		fx := newStoreFixture(t)
		for _, title := range []string{"a", "b", "c"} {
			_, err := fx.store.Store(ctx, driving.StoreRequest{Title: title, Content: "text " + title})
			require.NoError(t, err)
		}

		docs, err := fx.store.List(ctx, nil, 2, "")
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	})

	t.Run("filters by tag", func(t *testing.T) {
		fx := newStoreFixture(t)
		_, err := fx.store.Store(ctx, driving.StoreRequest{
			Title: "Tagged", Content: "a", Metadata: map[string]any{"tags": []string{"keep"}},
		})
		require.NoError(t, err)
		_, err = fx.store.Store(ctx, driving.StoreRequest{Title: "Plain", Content: "b"})
		require.NoError(t, err)

		docs, err := fx.store.List(ctx, map[string]any{"tags": "keep"}, 10, "")
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Tagged", docs[0].Title)
	})

	t.Run("returns nothing for a missing collection", func(t *testing.T) {
		fx := newStoreFixture(t)

		docs, err := fx.store.List(ctx, nil, 10, "ghost")
		require.NoError(t, err)
		assert.Nil(t, docs)
	})
}

func TestMemoryStore_LegacyPoints(t *testing.T) {
	ctx := context.Background()

	// seedLegacy writes a point without document_id, as collections
	// looked before the document/chunk model.
	seedLegacy := func(t *testing.T) storeFixture {
		t.Helper()
		fx := newStoreFixture(t)
		require.NoError(t, fx.index.CreateCollection(ctx, "memories", "stub-model", 4))
		require.NoError(t, fx.index.Upsert(ctx, "memories", []driven.Point{{
			ID:      "old-point",
			Vectors: map[string][]float32{"stub-model": make([]float32, 4)},
			Payload: map[string]any{
				domain.FieldDocument: "a memory from before chunking",
				domain.MetadataPath:  map[string]any{"source_type": "composed"},
			},
		}}))
		return fx
	}

	t.Run("list wraps them as single-point documents", func(t *testing.T) {
		fx := seedLegacy(t)

		docs, err := fx.store.List(ctx, nil, 10, "")
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "legacy_old-point", docs[0].DocumentID)
		assert.Equal(t, "(untitled)", docs[0].Title)
		assert.Equal(t, 1, docs[0].ChunkCount)
	})

	t.Run("search returns them alongside chunked documents", func(t *testing.T) {
		fx := seedLegacy(t)
		stored, err := fx.store.Store(ctx, driving.StoreRequest{Title: "New", Content: "text"})
		require.NoError(t, err)

		docs, err := fx.store.Search(ctx, "anything", "", 10, nil)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "legacy_old-point", docs[0].DocumentID)
		assert.Equal(t, stored.DocumentID, docs[1].DocumentID)
	})

	t.Run("mutating operations do not resolve them", func(t *testing.T) {
		fx := seedLegacy(t)

		result, err := fx.store.Delete(ctx, map[string]any{"content": "before chunking"}, "")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "No matching documents found.", result.Message)
		assert.Len(t, fx.index.pointsIn("memories"), 1)
	})
}

func TestMemoryStore_Collections(t *testing.T) {
	fx := newStoreFixture(t)
	ctx := context.Background()

	_, err := fx.store.Store(ctx, driving.StoreRequest{Title: "a", Content: "x"})
	require.NoError(t, err)
	_, err = fx.store.Store(ctx, driving.StoreRequest{Title: "b", Content: "y", Collection: "projects"})
	require.NoError(t, err)

	names, err := fx.store.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"memories", "projects"}, names)
}

func TestNewDocumentID(t *testing.T) {
	id := NewDocumentID()
	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
	assert.NotEqual(t, id, NewDocumentID())
}
