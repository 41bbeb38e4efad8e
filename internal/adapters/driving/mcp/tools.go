package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quiver-labs/quiver-cli/internal/core/domain"
	"github.com/quiver-labs/quiver-cli/internal/core/ports/driving"
)

// Tool names, also the keys of the description overrides.
const (
	ToolStore           = "qdrant-store"
	ToolFind            = "qdrant-find"
	ToolList            = "qdrant-list"
	ToolDelete          = "qdrant-delete"
	ToolUpdate          = "qdrant-update"
	ToolAppend          = "qdrant-append"
	ToolSetMetadata     = "qdrant-set-metadata"
	ToolAddTags         = "qdrant-add-tags"
	ToolRemoveTags      = "qdrant-remove-tags"
	ToolListCollections = "qdrant-list-collections"
)

const defaultFindLimit = 10

var defaultDescriptions = map[string]string{
	ToolStore:           "Store a document in the memory store. The content is chunked, embedded and indexed for later retrieval.",
	ToolFind:            "Find stored documents by semantic similarity to a natural-language query. Results are grouped per document.",
	ToolList:            "List stored documents matching a metadata filter, without ranking.",
	ToolDelete:          "Delete a stored document and all its chunks. Refused for externally synced documents.",
	ToolUpdate:          "Replace the content of a stored document. The text is re-chunked and re-embedded; the document id is preserved.",
	ToolAppend:          "Append text to the end of a stored document.",
	ToolSetMetadata:     "Merge metadata keys onto a stored document.",
	ToolAddTags:         "Add tags to a stored document.",
	ToolRemoveTags:      "Remove tags from a stored document.",
	ToolListCollections: "List the collections of the memory store.",
}

// StoreInput is the input schema for the store tool.
type StoreInput struct {
	Title      string         `json:"title" jsonschema:"short title of the document"`
	Content    string         `json:"content" jsonschema:"the full text to remember"`
	Metadata   map[string]any `json:"metadata,omitempty" jsonschema:"optional metadata: category, tags, source_type, source_ref"`
	Collection string         `json:"collection,omitempty" jsonschema:"target collection (defaults to the configured one)"`
}

// FindInput is the input schema for the find tool.
type FindInput struct {
	Query      string         `json:"query" jsonschema:"natural-language description of what to look for"`
	Limit      int            `json:"limit,omitempty" jsonschema:"maximum number of documents to return (default 10)"`
	Filter     map[string]any `json:"filter,omitempty" jsonschema:"optional filter: document_id, title, category, tags or other metadata keys"`
	Collection string         `json:"collection,omitempty" jsonschema:"collection to search (defaults to the configured one)"`
}

// FindOutput is the output schema for the find and list tools.
type FindOutput struct {
	// Results holds one formatted block per document.
	Results []string `json:"results"`
	Count   int      `json:"count"`
}

// ListInput is the input schema for the list tool.
type ListInput struct {
	Filter     map[string]any `json:"filter,omitempty" jsonschema:"filter: document_id, title, category, tags or other metadata keys"`
	Limit      int            `json:"limit,omitempty" jsonschema:"maximum number of documents to return (default 10)"`
	Collection string         `json:"collection,omitempty" jsonschema:"collection to list (defaults to the configured one)"`
}

// TargetInput identifies the documents of a mutating tool call.
type TargetInput struct {
	Filter     map[string]any `json:"filter" jsonschema:"filter resolving the target document: document_id, title, category, tags or other metadata keys"`
	Collection string         `json:"collection,omitempty" jsonschema:"collection holding the document (defaults to the configured one)"`
}

// UpdateInput is the input schema for the update tool.
type UpdateInput struct {
	TargetInput
	Content  string         `json:"content" jsonschema:"the replacement text"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"metadata keys to merge over the existing ones"`
}

// AppendInput is the input schema for the append tool.
type AppendInput struct {
	TargetInput
	Text string `json:"text" jsonschema:"the text to append"`
}

// SetMetadataInput is the input schema for the set-metadata tool.
type SetMetadataInput struct {
	TargetInput
	Metadata map[string]any `json:"metadata" jsonschema:"metadata keys to merge"`
}

// TagsInput is the input schema for the add-tags and remove-tags tools.
type TagsInput struct {
	TargetInput
	Tags []string `json:"tags" jsonschema:"the tags to add or remove"`
}

// OperationOutput is the output schema of every mutating tool.
type OperationOutput struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Count      int    `json:"count,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	// Candidates holds the matched documents when the filter was
	// ambiguous, formatted for disambiguation.
	Candidates []string `json:"candidates,omitempty"`
}

// CollectionsOutput is the output schema for the list-collections tool.
type CollectionsOutput struct {
	Collections []string `json:"collections"`
}

// registerTools registers all tool handlers with the MCP server.
// In read-only mode the mutating tools are not registered at all, so
// they never appear in the tool listing.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, s.tool(ToolFind), s.handleFind)
	mcp.AddTool(s.server, s.tool(ToolList), s.handleList)
	mcp.AddTool(s.server, s.tool(ToolListCollections), s.handleListCollections)

	if s.options.ReadOnly {
		return
	}

	mcp.AddTool(s.server, s.tool(ToolStore), s.handleStore)
	mcp.AddTool(s.server, s.tool(ToolDelete), s.handleDelete)
	mcp.AddTool(s.server, s.tool(ToolUpdate), s.handleUpdate)
	mcp.AddTool(s.server, s.tool(ToolAppend), s.handleAppend)
	mcp.AddTool(s.server, s.tool(ToolSetMetadata), s.handleSetMetadata)
	mcp.AddTool(s.server, s.tool(ToolAddTags), s.handleAddTags)
	mcp.AddTool(s.server, s.tool(ToolRemoveTags), s.handleRemoveTags)
}

func (s *Server) tool(name string) *mcp.Tool {
	description := defaultDescriptions[name]
	if override, ok := s.options.Descriptions[name]; ok && override != "" {
		description = override
	}
	return &mcp.Tool{Name: name, Description: description}
}

func (s *Server) handleStore(ctx context.Context, _ *mcp.CallToolRequest, input StoreInput) (*mcp.CallToolResult, OperationOutput, error) {
	result, err := s.ports.Memory.Store(ctx, driving.StoreRequest{
		Title:      input.Title,
		Content:    input.Content,
		Metadata:   input.Metadata,
		Collection: input.Collection,
	})
	if err != nil {
		return nil, OperationOutput{}, err
	}
	return nil, operationOutput(result), nil
}

func (s *Server) handleFind(ctx context.Context, _ *mcp.CallToolRequest, input FindInput) (*mcp.CallToolResult, FindOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultFindLimit
	}

	documents, err := s.ports.Memory.Search(ctx, input.Query, input.Collection, limit, input.Filter)
	if err != nil {
		return nil, FindOutput{}, err
	}
	return nil, findOutput(documents), nil
}

func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, FindOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultFindLimit
	}

	documents, err := s.ports.Memory.List(ctx, input.Filter, limit, input.Collection)
	if err != nil {
		return nil, FindOutput{}, err
	}
	return nil, findOutput(documents), nil
}

func (s *Server) handleDelete(ctx context.Context, _ *mcp.CallToolRequest, input TargetInput) (*mcp.CallToolResult, OperationOutput, error) {
	result, err := s.ports.Memory.Delete(ctx, input.Filter, input.Collection)
	if err != nil {
		return nil, OperationOutput{}, err
	}
	return nil, operationOutput(result), nil
}

func (s *Server) handleUpdate(ctx context.Context, _ *mcp.CallToolRequest, input UpdateInput) (*mcp.CallToolResult, OperationOutput, error) {
	result, err := s.ports.Memory.Update(ctx, input.Filter, input.Content, input.Metadata, input.Collection)
	if err != nil {
		return nil, OperationOutput{}, err
	}
	return nil, operationOutput(result), nil
}

func (s *Server) handleAppend(ctx context.Context, _ *mcp.CallToolRequest, input AppendInput) (*mcp.CallToolResult, OperationOutput, error) {
	result, err := s.ports.Memory.Append(ctx, input.Filter, input.Text, input.Collection)
	if err != nil {
		return nil, OperationOutput{}, err
	}
	return nil, operationOutput(result), nil
}

func (s *Server) handleSetMetadata(ctx context.Context, _ *mcp.CallToolRequest, input SetMetadataInput) (*mcp.CallToolResult, OperationOutput, error) {
	result, err := s.ports.Memory.SetMetadata(ctx, input.Filter, input.Metadata, input.Collection)
	if err != nil {
		return nil, OperationOutput{}, err
	}
	return nil, operationOutput(result), nil
}

func (s *Server) handleAddTags(ctx context.Context, _ *mcp.CallToolRequest, input TagsInput) (*mcp.CallToolResult, OperationOutput, error) {
	result, err := s.ports.Memory.AddTags(ctx, input.Filter, input.Tags, input.Collection)
	if err != nil {
		return nil, OperationOutput{}, err
	}
	return nil, operationOutput(result), nil
}

func (s *Server) handleRemoveTags(ctx context.Context, _ *mcp.CallToolRequest, input TagsInput) (*mcp.CallToolResult, OperationOutput, error) {
	result, err := s.ports.Memory.RemoveTags(ctx, input.Filter, input.Tags, input.Collection)
	if err != nil {
		return nil, OperationOutput{}, err
	}
	return nil, operationOutput(result), nil
}

func (s *Server) handleListCollections(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, CollectionsOutput, error) {
	collections, err := s.ports.Memory.Collections(ctx)
	if err != nil {
		return nil, CollectionsOutput{}, err
	}
	return nil, CollectionsOutput{Collections: collections}, nil
}

func findOutput(documents []domain.DocumentSummary) FindOutput {
	results := make([]string, len(documents))
	for i := range documents {
		results[i] = documents[i].FormatForLLM()
	}
	return FindOutput{Results: results, Count: len(documents)}
}

func operationOutput(result domain.OperationResult) OperationOutput {
	output := OperationOutput{
		Success:    result.Success,
		Message:    result.Message,
		Count:      result.Count,
		DocumentID: result.DocumentID,
	}
	for _, candidate := range result.Documents {
		output.Candidates = append(output.Candidates, candidate.FormatForLLM())
	}
	return output
}
