package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/quiver-labs/quiver-cli/internal/core/domain"
	"github.com/quiver-labs/quiver-cli/internal/core/ports/driven"
)

// fakeIndex is an in-memory VectorIndex double. Filters are evaluated
// against payloads the way the Qdrant adapter serializes them; scans
// return points in insertion order.
type fakeIndex struct {
	collections map[string]*fakeCollection
	order       []string
}

type fakeCollection struct {
	vectorName string
	vectorSize int
	indexes    map[string]driven.PayloadSchema
	points     []driven.Point
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{collections: make(map[string]*fakeCollection)}
}

func (f *fakeIndex) ListCollections(_ context.Context) ([]string, error) {
	return append([]string(nil), f.order...), nil
}

func (f *fakeIndex) CollectionExists(_ context.Context, collection string) (bool, error) {
	_, ok := f.collections[collection]
	return ok, nil
}

func (f *fakeIndex) CreateCollection(_ context.Context, collection, vectorName string, size int) error {
	if _, ok := f.collections[collection]; ok {
		return fmt.Errorf("collection %q already exists", collection)
	}
	f.collections[collection] = &fakeCollection{
		vectorName: vectorName,
		vectorSize: size,
		indexes:    make(map[string]driven.PayloadSchema),
	}
	f.order = append(f.order, collection)
	return nil
}

func (f *fakeIndex) CreatePayloadIndex(_ context.Context, collection, field string, schema driven.PayloadSchema) error {
	c, ok := f.collections[collection]
	if !ok {
		return fmt.Errorf("collection %q not found", collection)
	}
	c.indexes[field] = schema
	return nil
}

func (f *fakeIndex) Upsert(_ context.Context, collection string, points []driven.Point) error {
	c, ok := f.collections[collection]
	if !ok {
		return fmt.Errorf("collection %q not found", collection)
	}
	for _, point := range points {
		replaced := false
		for i := range c.points {
			if c.points[i].ID == point.ID {
				c.points[i] = point
				replaced = true
				break
			}
		}
		if !replaced {
			c.points = append(c.points, point)
		}
	}
	return nil
}

func (f *fakeIndex) Scroll(_ context.Context, collection string, filter []domain.FilterCondition, limit int, offset any) ([]driven.Record, any, error) {
	c, ok := f.collections[collection]
	if !ok {
		return nil, nil, fmt.Errorf("collection %q not found", collection)
	}

	start := 0
	if offset != nil {
		start = offset.(int)
	}

	var records []driven.Record
	scanned := 0
	for i, point := range c.points {
		if i < start {
			continue
		}
		scanned = i + 1
		if !matchesAll(point.Payload, filter) {
			continue
		}
		records = append(records, driven.Record{ID: point.ID, Payload: point.Payload})
		if len(records) == limit {
			break
		}
	}
	if scanned < len(c.points) {
		return records, scanned, nil
	}
	return records, nil, nil
}

func (f *fakeIndex) Count(_ context.Context, collection string, filter []domain.FilterCondition) (int, error) {
	c, ok := f.collections[collection]
	if !ok {
		return 0, fmt.Errorf("collection %q not found", collection)
	}
	count := 0
	for _, point := range c.points {
		if matchesAll(point.Payload, filter) {
			count++
		}
	}
	return count, nil
}

func (f *fakeIndex) Query(_ context.Context, collection, vectorName string, _ []float32, limit int, filter []domain.FilterCondition) ([]driven.ScoredPoint, error) {
	c, ok := f.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %q not found", collection)
	}
	if vectorName != c.vectorName {
		return nil, fmt.Errorf("unknown vector %q", vectorName)
	}

	var hits []driven.ScoredPoint
	for i, point := range c.points {
		if !matchesAll(point.Payload, filter) {
			continue
		}
		hits = append(hits, driven.ScoredPoint{
			ID:      point.ID,
			Score:   0.99 - float64(i)*0.01,
			Payload: point.Payload,
		})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func (f *fakeIndex) DeletePoints(_ context.Context, collection string, ids []string) error {
	c, ok := f.collections[collection]
	if !ok {
		return fmt.Errorf("collection %q not found", collection)
	}
	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		doomed[id] = true
	}
	var kept []driven.Point
	for _, point := range c.points {
		if !doomed[point.ID] {
			kept = append(kept, point)
		}
	}
	c.points = kept
	return nil
}

func (f *fakeIndex) DeleteByFilter(_ context.Context, collection string, filter []domain.FilterCondition) error {
	c, ok := f.collections[collection]
	if !ok {
		return fmt.Errorf("collection %q not found", collection)
	}
	var kept []driven.Point
	for _, point := range c.points {
		if !matchesAll(point.Payload, filter) {
			kept = append(kept, point)
		}
	}
	c.points = kept
	return nil
}

func (f *fakeIndex) SetPayloadKey(_ context.Context, collection, pointID, key string, value any) error {
	c, ok := f.collections[collection]
	if !ok {
		return fmt.Errorf("collection %q not found", collection)
	}
	for i := range c.points {
		if c.points[i].ID != pointID {
			continue
		}
		payload := make(map[string]any, len(c.points[i].Payload))
		for k, v := range c.points[i].Payload {
			payload[k] = v
		}
		payload[key] = value
		c.points[i].Payload = payload
		return nil
	}
	return fmt.Errorf("point %q not found in %q", pointID, collection)
}

// pointsIn returns the stored points of a collection, for assertions.
func (f *fakeIndex) pointsIn(collection string) []driven.Point {
	c, ok := f.collections[collection]
	if !ok {
		return nil
	}
	return c.points
}

func matchesAll(payload map[string]any, filter []domain.FilterCondition) bool {
	for _, condition := range filter {
		if !matches(payload, condition) {
			return false
		}
	}
	return true
}

func matches(payload map[string]any, condition domain.FilterCondition) bool {
	value, ok := payloadValue(payload, condition.Key)
	if !ok {
		return false
	}
	switch condition.Kind {
	case domain.MatchEquals:
		return valueEquals(value, condition.Value)
	case domain.MatchAny:
		for _, candidate := range condition.Values {
			if valueEquals(value, candidate) {
				return true
			}
		}
		return false
	case domain.MatchText:
		text, _ := value.(string)
		needle, _ := condition.Value.(string)
		return strings.Contains(strings.ToLower(text), strings.ToLower(needle))
	}
	return false
}

func payloadValue(payload map[string]any, key string) (any, bool) {
	if dot := strings.IndexByte(key, '.'); dot >= 0 {
		nested, _ := payload[key[:dot]].(map[string]any)
		if nested == nil {
			return nil, false
		}
		value, ok := nested[key[dot+1:]]
		return value, ok
	}
	value, ok := payload[key]
	return value, ok
}

// valueEquals compares a stored payload value with a filter operand.
// List-valued fields (tags) match when any element equals the operand,
// mirroring keyword-index semantics.
func valueEquals(stored, operand any) bool {
	switch v := stored.(type) {
	case []string:
		for _, item := range v {
			if valueEquals(item, operand) {
				return true
			}
		}
		return false
	case []any:
		for _, item := range v {
			if valueEquals(item, operand) {
				return true
			}
		}
		return false
	case int:
		return fmt.Sprint(v) == fmt.Sprint(operand)
	case float64:
		return fmt.Sprint(v) == fmt.Sprint(operand)
	default:
		return stored == operand
	}
}

// stubEmbedder returns a constant vector for every input.
type stubEmbedder struct {
	name string
	size int
}

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{name: "stub-model", size: 4}
}

func (e *stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, e.size)
	}
	return vectors, nil
}

func (e *stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, e.size), nil
}

func (e *stubEmbedder) VectorName() string { return e.name }

func (e *stubEmbedder) VectorSize(_ context.Context) (int, error) { return e.size, nil }

// stubSummarizer returns canned abstracts and tags.
type stubSummarizer struct {
	enabled  bool
	abstract string
	tags     []string
}

func (s *stubSummarizer) Enabled() bool { return s.enabled }

func (s *stubSummarizer) GenerateAbstract(_ context.Context, _, _ string) string {
	return s.abstract
}

func (s *stubSummarizer) GenerateTags(_ context.Context, _, _ string) []string {
	return s.tags
}

// sortedIndexFields lists the indexed payload fields of a collection.
func (f *fakeIndex) sortedIndexFields(collection string) []string {
	c, ok := f.collections[collection]
	if !ok {
		return nil
	}
	fields := make([]string, 0, len(c.indexes))
	for field := range c.indexes {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
