package domain

import (
	"fmt"
	"strings"
	"time"
)

// SourceType identifies where a document originated.
// Composed documents live natively in the vector store; every other
// source type is owned by an external sync pipeline.
type SourceType string

const (
	// SourceComposed is a document authored directly in Quiver.
	// Full text is retained on chunk 0 and the document may be
	// deleted, updated and appended to through the store.
	SourceComposed SourceType = "composed"

	// SourceTrilium is a note synced from a Trilium instance.
	SourceTrilium SourceType = "trilium"

	// SourcePDF is a document extracted from a PDF file.
	SourcePDF SourceType = "pdf"

	// SourcePaperless is a document synced from Paperless-ngx.
	SourcePaperless SourceType = "paperless"
)

// IsComposed reports whether the source type allows content mutation
// through the store. External types must be edited at their source.
func (s SourceType) IsComposed() bool {
	return s == SourceComposed || s == ""
}

// Payload field names of the stored chunk wire contract.
const (
	// FieldDocument holds the embedded chunk text.
	FieldDocument = "document"
	// FieldDocumentID groups all chunks of one document.
	FieldDocumentID = "document_id"
	// FieldTitle is the human-readable document title.
	FieldTitle = "title"
	// FieldChunkIndex is the zero-based position within the document.
	FieldChunkIndex = "chunk_index"
	// FieldAbstract is the generated summary, identical on all chunks.
	FieldAbstract = "abstract"
	// FieldFullContent is the original text, chunk 0 of composed documents only.
	FieldFullContent = "full_content"
	// MetadataPath is the payload key of the document-level metadata object.
	MetadataPath = "metadata"
)

// DocumentMetadata is the document-level metadata stored redundantly on
// every chunk, under the MetadataPath payload key. The redundancy avoids
// a secondary lookup when filtering chunk hits.
type DocumentMetadata struct {
	SourceType     SourceType `json:"source_type"`
	SourceRef      string     `json:"source_ref,omitempty"`
	Category       string     `json:"category,omitempty"`
	Tags           []string   `json:"tags"`
	CreatedAt      string     `json:"created_at"`
	UpdatedAt      string     `json:"updated_at,omitempty"`
	RelevanceScore int        `json:"relevance_score"`
	LastAccessedAt string     `json:"last_accessed_at"`
}

// ToMap converts the metadata into the map form stored in the payload.
func (m DocumentMetadata) ToMap() map[string]any {
	out := map[string]any{
		"source_type":      string(m.SourceType),
		"tags":             m.Tags,
		"created_at":       m.CreatedAt,
		"relevance_score":  m.RelevanceScore,
		"last_accessed_at": m.LastAccessedAt,
	}
	if m.Tags == nil {
		out["tags"] = []string{}
	}
	if m.SourceRef != "" {
		out["source_ref"] = m.SourceRef
	}
	if m.Category != "" {
		out["category"] = m.Category
	}
	if m.UpdatedAt != "" {
		out["updated_at"] = m.UpdatedAt
	}
	return out
}

// MetadataFromMap reconstructs DocumentMetadata from a payload map.
// Values arrive via JSON, so numbers are float64 and lists are []any.
func MetadataFromMap(raw map[string]any) DocumentMetadata {
	m := DocumentMetadata{
		SourceType:     SourceType(stringAt(raw, "source_type")),
		SourceRef:      stringAt(raw, "source_ref"),
		Category:       stringAt(raw, "category"),
		Tags:           stringSliceAt(raw, "tags"),
		CreatedAt:      stringAt(raw, "created_at"),
		UpdatedAt:      stringAt(raw, "updated_at"),
		RelevanceScore: intAt(raw, "relevance_score"),
		LastAccessedAt: stringAt(raw, "last_accessed_at"),
	}
	if m.SourceType == "" {
		m.SourceType = SourceComposed
	}
	return m
}

// ChunkPayload is the full payload stored on a single vector point.
// Document-level fields (document_id, title, abstract) are duplicated on
// every chunk of a document.
type ChunkPayload struct {
	DocumentID string
	Title      string
	ChunkIndex int
	// Content is the embedded chunk text, stored under FieldDocument.
	Content string
	// Abstract is the generated document summary, if any.
	Abstract string
	// FullContent is the original document text. Present only on
	// chunk 0 of composed documents.
	FullContent string
	Metadata    DocumentMetadata
}

// ToPayload converts the chunk into the wire map stored on the point.
func (c ChunkPayload) ToPayload() map[string]any {
	payload := map[string]any{
		FieldDocument:   c.Content,
		FieldDocumentID: c.DocumentID,
		FieldTitle:      c.Title,
		FieldChunkIndex: c.ChunkIndex,
		MetadataPath:    c.Metadata.ToMap(),
	}
	if c.Abstract != "" {
		payload[FieldAbstract] = c.Abstract
	}
	if c.FullContent != "" {
		payload[FieldFullContent] = c.FullContent
	}
	return payload
}

// ChunkPayloadFromPayload reconstructs a ChunkPayload from a stored
// point payload.
func ChunkPayloadFromPayload(payload map[string]any) ChunkPayload {
	meta, _ := payload[MetadataPath].(map[string]any)
	return ChunkPayload{
		DocumentID:  stringAt(payload, FieldDocumentID),
		Title:       stringAt(payload, FieldTitle),
		ChunkIndex:  intAt(payload, FieldChunkIndex),
		Content:     stringAt(payload, FieldDocument),
		Abstract:    stringAt(payload, FieldAbstract),
		FullContent: stringAt(payload, FieldFullContent),
		Metadata:    MetadataFromMap(meta),
	}
}

// DocumentSummary is the document-level result returned from search and
// list operations. Chunk hits are grouped by document_id and
// deduplicated into one summary per document.
type DocumentSummary struct {
	DocumentID string           `json:"document_id"`
	Title      string           `json:"title"`
	Abstract   string           `json:"abstract,omitempty"`
	Metadata   DocumentMetadata `json:"metadata"`
	// ChunkCount is the number of grouped hits for this document.
	ChunkCount int `json:"chunk_count"`
}

// FormatForLLM renders the summary as the tagged block returned to
// language model callers.
func (d DocumentSummary) FormatForLLM() string {
	parts := []string{fmt.Sprintf("<document id=%q>", d.DocumentID)}
	parts = append(parts, fmt.Sprintf("<title>%s</title>", d.Title))
	if d.Abstract != "" {
		parts = append(parts, fmt.Sprintf("<abstract>%s</abstract>", d.Abstract))
	}

	var meta []string
	if d.Metadata.SourceType != "" {
		meta = append(meta, "source_type="+string(d.Metadata.SourceType))
	}
	if d.Metadata.SourceRef != "" {
		meta = append(meta, "source_ref="+d.Metadata.SourceRef)
	}
	if d.Metadata.Category != "" {
		meta = append(meta, "category="+d.Metadata.Category)
	}
	if len(d.Metadata.Tags) > 0 {
		meta = append(meta, "tags="+strings.Join(d.Metadata.Tags, ","))
	}
	if len(meta) > 0 {
		parts = append(parts, fmt.Sprintf("<metadata>%s</metadata>", strings.Join(meta, " | ")))
	}

	parts = append(parts, "</document>")
	return strings.Join(parts, "\n")
}

// Timestamp formats t as the RFC 3339 UTC string stored in payloads.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp parses a payload timestamp. The zero time and false
// are returned when the value is missing or unparsable.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func stringAt(raw map[string]any, key string) string {
	if raw == nil {
		return ""
	}
	s, _ := raw[key].(string)
	return s
}

func intAt(raw map[string]any, key string) int {
	if raw == nil {
		return 0
	}
	switch v := raw[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func stringSliceAt(raw map[string]any, key string) []string {
	if raw == nil {
		return nil
	}
	switch v := raw[key].(type) {
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
