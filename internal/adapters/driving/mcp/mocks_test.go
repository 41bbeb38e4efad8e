package mcp

import (
	"context"

	"github.com/quiver-labs/quiver-cli/internal/core/domain"
	"github.com/quiver-labs/quiver-cli/internal/core/ports/driving"
)

// mockMemoryService is a mock implementation of driving.MemoryService.
// It records the last call's inputs and returns canned results.
type mockMemoryService struct {
	result      domain.OperationResult
	documents   []domain.DocumentSummary
	collections []string
	err         error

	lastFilter     map[string]any
	lastCollection string
	lastQuery      string
	lastLimit      int
	lastContent    string
	lastTags       []string
	lastMetadata   map[string]any
	lastRequest    driving.StoreRequest
}

func (m *mockMemoryService) Store(_ context.Context, req driving.StoreRequest) (domain.OperationResult, error) {
	m.lastRequest = req
	return m.result, m.err
}

func (m *mockMemoryService) Search(_ context.Context, query, collection string, limit int, filter map[string]any) ([]domain.DocumentSummary, error) {
	m.lastQuery = query
	m.lastCollection = collection
	m.lastLimit = limit
	m.lastFilter = filter
	return m.documents, m.err
}

func (m *mockMemoryService) List(_ context.Context, filter map[string]any, limit int, collection string) ([]domain.DocumentSummary, error) {
	m.lastFilter = filter
	m.lastLimit = limit
	m.lastCollection = collection
	return m.documents, m.err
}

func (m *mockMemoryService) Delete(_ context.Context, filter map[string]any, collection string) (domain.OperationResult, error) {
	m.lastFilter = filter
	m.lastCollection = collection
	return m.result, m.err
}

func (m *mockMemoryService) Update(_ context.Context, filter map[string]any, newContent string, newMetadata map[string]any, collection string) (domain.OperationResult, error) {
	m.lastFilter = filter
	m.lastContent = newContent
	m.lastMetadata = newMetadata
	m.lastCollection = collection
	return m.result, m.err
}

func (m *mockMemoryService) Append(_ context.Context, filter map[string]any, text, collection string) (domain.OperationResult, error) {
	m.lastFilter = filter
	m.lastContent = text
	m.lastCollection = collection
	return m.result, m.err
}

func (m *mockMemoryService) SetMetadata(_ context.Context, filter map[string]any, metadata map[string]any, collection string) (domain.OperationResult, error) {
	m.lastFilter = filter
	m.lastMetadata = metadata
	m.lastCollection = collection
	return m.result, m.err
}

func (m *mockMemoryService) AddTags(_ context.Context, filter map[string]any, tags []string, collection string) (domain.OperationResult, error) {
	m.lastFilter = filter
	m.lastTags = tags
	m.lastCollection = collection
	return m.result, m.err
}

func (m *mockMemoryService) RemoveTags(_ context.Context, filter map[string]any, tags []string, collection string) (domain.OperationResult, error) {
	m.lastFilter = filter
	m.lastTags = tags
	m.lastCollection = collection
	return m.result, m.err
}

func (m *mockMemoryService) Collections(_ context.Context) ([]string, error) {
	return m.collections, m.err
}
