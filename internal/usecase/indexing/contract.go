package indexing

import (
	"context"

	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
)

// VideoReader loads video records.
type VideoReader interface {
	Get(ctx context.Context, id video.ID) (video.Snapshot, error)
	ListPublished(ctx context.Context, limit int) ([]video.Candidate, error)
}

// VectorWriter maintains the vector index.
type VectorWriter interface {
	Upsert(ctx context.Context, id video.ID, vec []float32, snap video.Snapshot) error
	Delete(ctx context.Context, id video.ID) error
	EnsureIndex(ctx context.Context) (bool, error)
}

// LexicalWriter maintains the lexical index.
type LexicalWriter interface {
	Index(ctx context.Context, id video.ID, snap *video.Snapshot) error
	Delete(ctx context.Context, id video.ID) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
