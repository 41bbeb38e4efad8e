package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/quiver-labs/quiver-cli/internal/core/domain"
	"github.com/quiver-labs/quiver-cli/internal/core/ports/driven"
)

// Cleanup defaults, matching the CLI flag defaults.
const (
	DefaultCleanupThreshold = 1.0
	DefaultDecayLambda      = 0.001
)

// cleanupScanPage is the scroll page size of a cleanup scan.
const cleanupScanPage = 100

// EffectiveScore computes the time-decayed relevance of an entry:
//
//	effectiveScore = relevanceScore × e^(−λ × daysSinceAccess)
func EffectiveScore(relevanceScore, daysSinceAccess, decayLambda float64) float64 {
	return relevanceScore * math.Exp(-decayLambda*daysSinceAccess)
}

// CleanupOptions configures one evaluator run.
type CleanupOptions struct {
	// DryRun reports candidates without deleting anything.
	DryRun bool
	// Threshold is the effective score below which entries are
	// deleted.
	Threshold float64
	// DecayLambda is the exponential decay rate per day.
	DecayLambda float64
	// Collection scopes the run to one collection; empty means all.
	Collection string
	// Flat evaluates and deletes individual points instead of grouped
	// documents, for collections written before the document/chunk
	// model.
	Flat bool
}

// DeletionCandidate is one entry below the threshold.
type DeletionCandidate struct {
	// DocumentID identifies the document in two-level mode.
	DocumentID string
	// PointID identifies the point in flat mode.
	PointID string
	Title   string
	// Preview is the start of the entry's text.
	Preview         string
	RelevanceScore  int
	DaysSinceAccess float64
	EffectiveScore  float64
	// ChunkCount is the number of chunks deleted with the document.
	ChunkCount int
}

// CollectionReport summarizes one collection's evaluation.
type CollectionReport struct {
	Collection string
	// Scanned is the total number of points in the collection.
	Scanned    int
	Candidates []DeletionCandidate
	// Kept counts entries at or above the threshold.
	Kept int
	// NoTracking counts entries without usable tracking fields.
	NoTracking int
	// External counts documents owned by an external sync pipeline;
	// they are never evaluated for deletion.
	External int
}

// CleanupReport aggregates an evaluator run.
type CleanupReport struct {
	DryRun      bool
	Collections []CollectionReport
	Deleted     int
	Kept        int
	NoTracking  int
	External    int
}

// CleanupEvaluator scans collections, scores stored documents with
// exponential time decay and deletes or reports the stale ones. It
// depends only on the vector index; embeddings are never touched.
type CleanupEvaluator struct {
	index driven.VectorIndex
	now   func() time.Time
}

// NewCleanupEvaluator creates an evaluator. A nil clock defaults to
// time.Now.
func NewCleanupEvaluator(index driven.VectorIndex, now func() time.Time) *CleanupEvaluator {
	if now == nil {
		now = time.Now
	}
	return &CleanupEvaluator{index: index, now: now}
}

// Run evaluates the targeted collections and, unless DryRun is set,
// deletes every candidate. Errors are returned only for index
// failures; entries with missing or unparsable tracking fields are
// counted and skipped.
func (e *CleanupEvaluator) Run(ctx context.Context, opts CleanupOptions) (CleanupReport, error) {
	if opts.Threshold == 0 {
		opts.Threshold = DefaultCleanupThreshold
	}
	if opts.DecayLambda == 0 {
		opts.DecayLambda = DefaultDecayLambda
	}

	collections := []string{opts.Collection}
	if opts.Collection == "" {
		var err error
		collections, err = e.index.ListCollections(ctx)
		if err != nil {
			return CleanupReport{}, fmt.Errorf("listing collections: %w", err)
		}
	}

	report := CleanupReport{DryRun: opts.DryRun}
	for _, collection := range collections {
		cr, err := e.evaluateCollection(ctx, collection, opts)
		if err != nil {
			return CleanupReport{}, err
		}
		report.Collections = append(report.Collections, cr)
		report.Deleted += len(cr.Candidates)
		report.Kept += cr.Kept
		report.NoTracking += cr.NoTracking
		report.External += cr.External
	}
	return report, nil
}

func (e *CleanupEvaluator) evaluateCollection(ctx context.Context, collection string, opts CleanupOptions) (CollectionReport, error) {
	total, err := e.index.Count(ctx, collection, nil)
	if err != nil {
		return CollectionReport{}, fmt.Errorf("counting points in %q: %w", collection, err)
	}

	records, err := e.scanAll(ctx, collection)
	if err != nil {
		return CollectionReport{}, err
	}

	var cr CollectionReport
	if opts.Flat {
		cr = e.evaluateFlat(collection, records, opts)
	} else {
		cr = e.evaluateGrouped(collection, records, opts)
	}
	cr.Scanned = total

	if opts.DryRun || len(cr.Candidates) == 0 {
		return cr, nil
	}

	if opts.Flat {
		ids := make([]string, len(cr.Candidates))
		for i := range cr.Candidates {
			ids[i] = cr.Candidates[i].PointID
		}
		if err := e.index.DeletePoints(ctx, collection, ids); err != nil {
			return CollectionReport{}, fmt.Errorf("deleting %d point(s) from %q: %w", len(ids), collection, err)
		}
		return cr, nil
	}

	for _, candidate := range cr.Candidates {
		filter := []domain.FilterCondition{domain.Equals(domain.FieldDocumentID, candidate.DocumentID)}
		if err := e.index.DeleteByFilter(ctx, collection, filter); err != nil {
			return CollectionReport{}, fmt.Errorf("deleting document %q from %q: %w", candidate.DocumentID, collection, err)
		}
	}
	return cr, nil
}

// evaluateGrouped groups records by document id and scores each
// document from the tracking fields of its first-seen chunk (chunks
// are consistent at rest). Non-composed documents belong to an
// external sync pipeline and are never deletion candidates.
func (e *CleanupEvaluator) evaluateGrouped(collection string, records []driven.Record, opts CleanupOptions) CollectionReport {
	cr := CollectionReport{Collection: collection}

	type docEntry struct {
		first  driven.Record
		chunks int
	}
	var order []string
	grouped := make(map[string]*docEntry)
	for _, record := range records {
		docID, _ := record.Payload[domain.FieldDocumentID].(string)
		if docID == "" {
			cr.NoTracking++
			continue
		}
		if entry, ok := grouped[docID]; ok {
			entry.chunks++
			continue
		}
		grouped[docID] = &docEntry{first: record, chunks: 1}
		order = append(order, docID)
	}

	now := e.now()
	for _, docID := range order {
		entry := grouped[docID]
		payload := entry.first.Payload

		meta, _ := payload[domain.MetadataPath].(map[string]any)
		sourceType := domain.SourceType(metaString(meta, "source_type"))
		if sourceType != "" && !sourceType.IsComposed() {
			cr.External++
			continue
		}

		score, days, ok := trackingFields(meta, now)
		if !ok {
			cr.NoTracking++
			continue
		}

		effective := EffectiveScore(float64(score), days, opts.DecayLambda)
		if effective >= opts.Threshold {
			cr.Kept++
			continue
		}

		cr.Candidates = append(cr.Candidates, DeletionCandidate{
			DocumentID:      docID,
			Title:           metaTitle(payload),
			Preview:         preview(payload),
			RelevanceScore:  score,
			DaysSinceAccess: days,
			EffectiveScore:  effective,
			ChunkCount:      entry.chunks,
		})
	}
	return cr
}

// evaluateFlat scores every point individually, the legacy behavior
// for collections without the document/chunk model.
func (e *CleanupEvaluator) evaluateFlat(collection string, records []driven.Record, opts CleanupOptions) CollectionReport {
	cr := CollectionReport{Collection: collection}
	now := e.now()

	for _, record := range records {
		meta, _ := record.Payload[domain.MetadataPath].(map[string]any)
		score, days, ok := trackingFields(meta, now)
		if !ok {
			cr.NoTracking++
			continue
		}

		effective := EffectiveScore(float64(score), days, opts.DecayLambda)
		if effective >= opts.Threshold {
			cr.Kept++
			continue
		}

		cr.Candidates = append(cr.Candidates, DeletionCandidate{
			PointID:         record.ID,
			Title:           metaTitle(record.Payload),
			Preview:         preview(record.Payload),
			RelevanceScore:  score,
			DaysSinceAccess: days,
			EffectiveScore:  effective,
			ChunkCount:      1,
		})
	}
	return cr
}

func (e *CleanupEvaluator) scanAll(ctx context.Context, collection string) ([]driven.Record, error) {
	var (
		all    []driven.Record
		offset any
	)
	for {
		records, next, err := e.index.Scroll(ctx, collection, nil, cleanupScanPage, offset)
		if err != nil {
			return nil, fmt.Errorf("scanning collection %q: %w", collection, err)
		}
		all = append(all, records...)
		if next == nil || len(records) == 0 {
			break
		}
		offset = next
	}
	return all, nil
}

// trackingFields extracts the relevance score and the days elapsed
// since the last access. ok is false when either field is missing or
// the timestamp does not parse.
func trackingFields(meta map[string]any, now time.Time) (score int, days float64, ok bool) {
	if meta == nil {
		return 0, 0, false
	}
	rawScore, hasScore := meta["relevance_score"]
	rawAccess, hasAccess := meta["last_accessed_at"]
	if !hasScore || !hasAccess {
		return 0, 0, false
	}

	switch v := rawScore.(type) {
	case int:
		score = v
	case int64:
		score = int(v)
	case float64:
		score = int(v)
	default:
		return 0, 0, false
	}

	accessStr, _ := rawAccess.(string)
	lastAccess, parsed := domain.ParseTimestamp(accessStr)
	if !parsed {
		return 0, 0, false
	}

	days = now.Sub(lastAccess).Seconds() / 86400
	return score, days, true
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	s, _ := meta[key].(string)
	return s
}

func metaTitle(payload map[string]any) string {
	title, _ := payload[domain.FieldTitle].(string)
	return title
}

// preview returns the first 80 characters of the entry's chunk text.
func preview(payload map[string]any) string {
	text, _ := payload[domain.FieldDocument].(string)
	if len(text) > 80 {
		return text[:80]
	}
	return text
}
