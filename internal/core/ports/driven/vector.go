package driven

import (
	"context"

	"github.com/quiver-labs/quiver-cli/internal/core/domain"
)

// PayloadSchema identifies the index schema of a payload field.
type PayloadSchema string

const (
	// SchemaKeyword indexes a field for exact keyword matching.
	SchemaKeyword PayloadSchema = "keyword"
	// SchemaInteger indexes a numeric field.
	SchemaInteger PayloadSchema = "integer"
	// SchemaFloat indexes a floating point field.
	SchemaFloat PayloadSchema = "float"
	// SchemaBool indexes a boolean field.
	SchemaBool PayloadSchema = "bool"
	// SchemaText indexes a field for full-text matching.
	SchemaText PayloadSchema = "text"
)

// Point is one record written to the vector index: an id, one or more
// named vectors, and an arbitrary payload.
type Point struct {
	ID      string
	Vectors map[string][]float32
	Payload map[string]any
}

// ScoredPoint is a nearest-neighbour hit.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Record is a stored point as returned by a scan, without vectors.
type Record struct {
	ID      string
	Payload map[string]any
}

// VectorIndex is the outbound port to the vector database.
// Filters are expressed as translated domain conditions; the adapter
// owns their serialization. Scan offsets are opaque: pass nil to start
// and feed the returned offset back to continue; a nil returned offset
// means the scan is exhausted.
//
// Implementations may include:
//   - Qdrant over its REST API
//   - An in-memory double for tests
type VectorIndex interface {
	// ListCollections returns the names of all collections.
	ListCollections(ctx context.Context) ([]string, error)

	// CollectionExists reports whether the named collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// CreateCollection creates a collection with a single named vector
	// of the given size, using cosine distance.
	CreateCollection(ctx context.Context, collection, vectorName string, size int) error

	// CreatePayloadIndex creates a payload field index.
	CreatePayloadIndex(ctx context.Context, collection, field string, schema PayloadSchema) error

	// Upsert writes all points in one batch.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Scroll pages through stored points matching the filter.
	Scroll(ctx context.Context, collection string, filter []domain.FilterCondition, limit int, offset any) ([]Record, any, error)

	// Count returns the exact number of points matching the filter.
	Count(ctx context.Context, collection string, filter []domain.FilterCondition) (int, error)

	// Query runs a nearest-neighbour search over the named vector.
	Query(ctx context.Context, collection, vectorName string, vector []float32, limit int, filter []domain.FilterCondition) ([]ScoredPoint, error)

	// DeletePoints deletes points by id.
	DeletePoints(ctx context.Context, collection string, ids []string) error

	// DeleteByFilter deletes every point matching the filter.
	DeleteByFilter(ctx context.Context, collection string, filter []domain.FilterCondition) error

	// SetPayloadKey overwrites a single top-level payload key on one
	// point, leaving the rest of the payload untouched.
	SetPayloadKey(ctx context.Context, collection, pointID, key string, value any) error
}
