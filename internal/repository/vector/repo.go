// Package vector implements the video vector index on top of the Redis Query Engine.
// Embeddings live in the video hash; the FT index makes them searchable.
package vector

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vidrank/internal/db"
	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/domain/search/filter"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
	videorepo "github.com/kailas-cloud/vidrank/internal/repository/video"
)

const vectorAlias = "vector"

// store is the consumer interface for vector operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HDel(ctx context.Context, key string, fields ...string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// HNSWConfig holds HNSW tuning parameters; zero values use server defaults.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo is the VectorIndex: nearest-neighbour queries plus upsert/delete of vectors.
type Repo struct {
	store store
	dim   int
	hnsw  HNSWConfig
}

// New creates a vector repository for embeddings of the given dimension.
func New(s store, dim int, hnsw HNSWConfig) *Repo {
	return &Repo{store: s, dim: dim, hnsw: hnsw}
}

// Query returns the TopK nearest videos, nearest first, with metadata returned
// by the index and Score = cosine similarity.
func (r *Repo) Query(ctx context.Context, q video.VectorQuery) ([]video.Candidate, error) {
	if len(q.Vector) != r.dim {
		return nil, fmt.Errorf("query vector has %d dims, index has %d: %w",
			len(q.Vector), r.dim, domain.ErrVectorDimMismatch)
	}

	knn := &db.KNNQuery{
		IndexName:    videorepo.IndexName,
		VectorField:  vectorAlias,
		Vector:       q.Vector,
		K:            q.TopK,
		ReturnFields: videorepo.MetadataFields,
	}
	if q.PublishedOnly {
		knn.Filters = filter.Published()
	}

	sr, err := r.store.SearchKNN(ctx, knn)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	if sr == nil {
		return nil, nil
	}

	out := make([]video.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		snap := videorepo.FromFields(e.Fields)
		out = append(out, video.Candidate{
			ID:       videorepo.IDFromKey(e.Key),
			Snapshot: &snap,
			Score:    e.Score,
		})
	}
	return out, nil
}

// Upsert writes the vector and the filterable fields for id. Idempotent.
func (r *Repo) Upsert(ctx context.Context, id video.ID, vec []float32, snap video.Snapshot) error {
	if len(vec) != r.dim {
		return fmt.Errorf("vector for %s has %d dims, index has %d: %w",
			id, len(vec), r.dim, domain.ErrVectorDimMismatch)
	}

	fields := videorepo.IndexFields(snap)
	fields[videorepo.FieldEmbedding] = db.EncodeVector(vec)

	if err := r.store.HSet(ctx, videorepo.Key(id), fields); err != nil {
		return fmt.Errorf("upsert vector %s: %w", id, err)
	}
	return nil
}

// Delete drops the vector of id; the metadata record stays.
func (r *Repo) Delete(ctx context.Context, id video.ID) error {
	if err := r.store.HDel(ctx, videorepo.Key(id), videorepo.FieldEmbedding); err != nil {
		return fmt.Errorf("delete vector %s: %w", id, err)
	}
	return nil
}

// EnsureIndex creates the FT index when it is missing. Reports whether it was created.
func (r *Repo) EnsureIndex(ctx context.Context) (bool, error) {
	exists, err := r.store.IndexExists(ctx, videorepo.IndexName)
	if err != nil {
		return false, fmt.Errorf("check index: %w", err)
	}
	if exists {
		return false, nil
	}

	def, err := r.indexDefinition()
	if err != nil {
		return false, err
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index: %w", err)
	}
	return true, nil
}

func (r *Repo) indexDefinition() (*db.IndexDefinition, error) {
	def, err := db.NewSchema(videorepo.IndexName, videorepo.KeyPrefix).
		Text(videorepo.FieldTitle).
		Text(videorepo.FieldDescription).
		Tag(videorepo.FieldTags, ",").
		Tag(videorepo.FieldOwnerID, "").
		Tag(videorepo.FieldPublished, "").
		Numeric(videorepo.FieldViews).
		Numeric(videorepo.FieldPublishedAt).
		Vector(videorepo.FieldEmbedding, vectorAlias, r.dim, db.DistanceCosine).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build index definition: %w", err)
	}

	last := &def.Fields[len(def.Fields)-1]
	last.VectorM = r.hnsw.M
	last.VectorEFConstruct = r.hnsw.EFConstruct
	return def, nil
}
