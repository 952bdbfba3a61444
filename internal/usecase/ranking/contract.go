package ranking

import (
	"context"

	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorIndex answers nearest-neighbour queries, nearest first.
type VectorIndex interface {
	Query(ctx context.Context, q video.VectorQuery) ([]video.Candidate, error)
}

// LexicalIndex answers keyword queries, best match first.
type LexicalIndex interface {
	Search(ctx context.Context, q video.LexicalQuery) ([]video.Candidate, error)
}

// MetadataStore resolves video metadata. FetchByIDs omits unknown IDs.
type MetadataStore interface {
	Get(ctx context.Context, id video.ID) (video.Snapshot, error)
	FetchByIDs(ctx context.Context, ids []video.ID) (map[video.ID]video.Snapshot, error)
}

// Catalog lists published videos with metadata.
type Catalog interface {
	ListPublished(ctx context.Context, limit int) ([]video.Candidate, error)
	ListTagged(ctx context.Context, tags []string, limit int) ([]video.Candidate, error)
	CountPublished(ctx context.Context) (int, error)
}

// SocialGraph returns the owner IDs a user is subscribed to.
type SocialGraph interface {
	SubscriptionsOf(ctx context.Context, userID string) ([]string, error)
}

// UserHistory returns a user's recent activity, newest first.
type UserHistory interface {
	RecentWatched(ctx context.Context, userID string, limit int) ([]video.ID, error)
	RecentLiked(ctx context.Context, userID string, limit int) ([]video.ID, error)
}

// Deps are the collaborators of the ranking service. A nil collaborator is
// treated as unavailable and the strategies depending on it are skipped.
type Deps struct {
	Embedder Embedder
	Vectors  VectorIndex
	Lexical  LexicalIndex
	Metadata MetadataStore
	Catalog  Catalog
	Social   SocialGraph
	History  UserHistory
}
