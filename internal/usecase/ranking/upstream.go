package ranking

import (
	"context"
	"time"

	"github.com/kailas-cloud/vidrank/internal/metrics"
)

// Upstream source labels.
const (
	sourceEmbedder     = "embedder"
	sourceVectorIndex  = "vector_index"
	sourceLexicalIndex = "lexical_index"
	sourceMetadata     = "metadata"
	sourceCatalog      = "catalog"
	sourceSocialGraph  = "social_graph"
	sourceWatchHistory = "watch_history"
	sourceLikeHistory  = "like_history"
)

// callUpstream runs fn under its own deadline and records its latency.
func callUpstream[T any](
	ctx context.Context, timeout time.Duration, source string,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	res, err := fn(ctx)
	metrics.ObserveUpstream(source, start, err)
	return res, err
}
