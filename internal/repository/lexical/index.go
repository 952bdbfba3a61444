// Package lexical implements the keyword search index over the video catalog
// with an embedded bleve index.
package lexical

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidrank/internal/domain/video"
)

const (
	docType = "video"

	fieldTitle       = "title"
	fieldDescription = "description"
	fieldTags        = "tags"
	fieldOwnerID     = "owner_id"
	fieldViews       = "views"
	fieldPublished   = "published"
	fieldPublishedAt = "published_at"

	// DefaultSize is used when a query does not set Size.
	DefaultSize = 20
)

// document is the indexed form of a video.
type document struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	OwnerID     string     `json:"owner_id"`
	Views       float64    `json:"views"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

func newDocument(snap *video.Snapshot) document {
	tags := make([]string, 0, len(snap.Tags))
	for _, t := range snap.Tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
	}
	doc := document{
		Title:       snap.Title,
		Description: snap.Description,
		Tags:        tags,
		OwnerID:     snap.OwnerID,
		Views:       float64(snap.Views),
		Published:   snap.Published,
	}
	if ts := snap.Timestamp(); !ts.IsZero() {
		doc.PublishedAt = &ts
	}
	return doc
}

// Index is the LexicalIndex backed by bleve.
type Index struct {
	idx    bleve.Index
	logger *zap.Logger
}

// Open opens the index at path, creating it when missing. An empty path
// creates a memory-only index.
func Open(path string, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if path == "" {
		idx, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &Index{idx: idx, logger: logger}, nil
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		logger.Info("Creating lexical index", zap.String("path", path))
		idx, err = bleve.New(path, newMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open lexical index %s: %w", path, err)
	}
	return &Index{idx: idx, logger: logger}, nil
}

func newMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name

	videoMapping := bleve.NewDocumentMapping()

	text := func(analyzer string) *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = analyzer
		f.Store = false
		return f
	}
	videoMapping.AddFieldMappingsAt(fieldTitle, text(standard.Name))
	videoMapping.AddFieldMappingsAt(fieldDescription, text(standard.Name))
	videoMapping.AddFieldMappingsAt(fieldTags, text(keyword.Name))
	videoMapping.AddFieldMappingsAt(fieldOwnerID, text(keyword.Name))

	views := bleve.NewNumericFieldMapping()
	views.Store = false
	videoMapping.AddFieldMappingsAt(fieldViews, views)

	published := bleve.NewBooleanFieldMapping()
	published.Store = false
	videoMapping.AddFieldMappingsAt(fieldPublished, published)

	publishedAt := bleve.NewDateTimeFieldMapping()
	publishedAt.Store = false
	videoMapping.AddFieldMappingsAt(fieldPublishedAt, publishedAt)

	indexMapping.AddDocumentMapping(docType, videoMapping)
	indexMapping.DefaultType = docType
	return indexMapping
}

// Index adds or replaces the document for a video.
func (i *Index) Index(ctx context.Context, id video.ID, snap *video.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("index %s: nil snapshot", id)
	}
	if err := i.idx.Index(string(id), newDocument(snap)); err != nil {
		return fmt.Errorf("index %s: %w", id, err)
	}
	return nil
}

// IndexBatch indexes many videos in one bleve batch.
func (i *Index) IndexBatch(ctx context.Context, snaps map[video.ID]video.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b := i.idx.NewBatch()
	for id, snap := range snaps {
		if err := b.Index(string(id), newDocument(&snap)); err != nil {
			return fmt.Errorf("batch index %s: %w", id, err)
		}
	}
	if err := i.idx.Batch(b); err != nil {
		return fmt.Errorf("apply batch: %w", err)
	}
	return nil
}

// Delete removes a video; deleting an unknown ID is a no-op.
func (i *Index) Delete(ctx context.Context, id video.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := i.idx.Delete(string(id)); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// Search returns matching videos best first. Candidates carry the bleve score
// but no metadata.
func (i *Index) Search(ctx context.Context, q video.LexicalQuery) ([]video.Candidate, error) {
	bq, ok := buildQuery(q)
	if !ok {
		return nil, nil
	}

	size := q.Size
	if size <= 0 {
		size = DefaultSize
	}

	req := bleve.NewSearchRequestOptions(bq, size, 0, false)
	req.SortBy([]string{"-_score", "_id"})

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	out := make([]video.Candidate, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, video.Candidate{ID: video.ID(hit.ID), Score: hit.Score})
	}
	return out, nil
}

// buildQuery returns false when the query has nothing to match on.
func buildQuery(q video.LexicalQuery) (query.Query, bool) {
	var should []query.Query
	for _, term := range q.Terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		for _, field := range []string{fieldTitle, fieldDescription} {
			mq := bleve.NewMatchQuery(term)
			mq.SetField(field)
			should = append(should, mq)
		}
		tq := bleve.NewTermQuery(strings.ToLower(term))
		tq.SetField(fieldTags)
		should = append(should, tq)
	}
	for _, tag := range q.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		tq := bleve.NewTermQuery(tag)
		tq.SetField(fieldTags)
		should = append(should, tq)
	}
	if len(should) == 0 {
		return nil, false
	}

	bq := bleve.NewBooleanQuery()
	bq.AddMust(bleve.NewDisjunctionQuery(should...))
	if q.PublishedOnly {
		pq := bleve.NewBoolFieldQuery(true)
		pq.SetField(fieldPublished)
		bq.AddMust(pq)
	}
	if len(q.Exclude) > 0 {
		ids := make([]string, len(q.Exclude))
		for n, id := range q.Exclude {
			ids[n] = string(id)
		}
		bq.AddMustNot(bleve.NewDocIDQuery(ids))
	}
	return bq, true
}

// DocCount returns the number of indexed videos.
func (i *Index) DocCount(_ context.Context) (uint64, error) {
	n, err := i.idx.DocCount()
	if err != nil {
		return 0, fmt.Errorf("doc count: %w", err)
	}
	return n, nil
}

// Close releases the underlying index.
func (i *Index) Close() error {
	return i.idx.Close()
}
