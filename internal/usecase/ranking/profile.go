package ranking

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
	"github.com/kailas-cloud/vidrank/internal/logger"
)

// UserProfile is the request-scoped summary of a user's taste.
type UserProfile struct {
	PreferenceVector []float32 // nil when unknown
	TopTags          []string
	Subscriptions    map[string]struct{}
	Excluded         map[video.ID]struct{} // watched ∪ liked
}

// ProfileAggregator derives a UserProfile from history, subscriptions and metadata.
type ProfileAggregator struct {
	history  UserHistory
	social   SocialGraph
	metadata MetadataStore
	embedder Embedder
	opts     ProfileOptions
	timeout  time.Duration
	logger   *zap.Logger
}

// NewProfileAggregator creates a profile aggregator over the given collaborators.
func NewProfileAggregator(deps Deps, opts ProfileOptions, timeout time.Duration, l *zap.Logger) *ProfileAggregator {
	if l == nil {
		l = zap.NewNop()
	}
	return &ProfileAggregator{
		history:  deps.History,
		social:   deps.Social,
		metadata: deps.Metadata,
		embedder: deps.Embedder,
		opts:     opts,
		timeout:  timeout,
		logger:   l,
	}
}

// Build assembles the profile. Collaborator failures are logged and leave the
// corresponding signal empty; Build itself never fails.
func (a *ProfileAggregator) Build(ctx context.Context, userID string) UserProfile {
	log := logger.FromContextOr(ctx, a.logger).With(zap.String("user_id", userID))

	var (
		watched, liked []video.ID
		subs           []string
	)

	var g errgroup.Group
	if a.history != nil {
		g.Go(func() error {
			watched = a.recent(ctx, log, sourceWatchHistory, userID, a.opts.WatchWindow, a.history.RecentWatched)
			return nil
		})
		g.Go(func() error {
			liked = a.recent(ctx, log, sourceLikeHistory, userID, a.opts.LikeWindow, a.history.RecentLiked)
			return nil
		})
	}
	if a.social != nil {
		g.Go(func() error {
			var err error
			subs, err = callUpstream(ctx, a.timeout, sourceSocialGraph,
				func(ctx context.Context) ([]string, error) { return a.social.SubscriptionsOf(ctx, userID) })
			if err != nil {
				log.Warn("Profile signal unavailable", zap.String("source", sourceSocialGraph), zap.Error(err))
				subs = nil
			}
			return nil
		})
	}
	_ = g.Wait()

	profile := UserProfile{
		Subscriptions: make(map[string]struct{}, len(subs)),
		Excluded:      make(map[video.ID]struct{}, len(watched)+len(liked)),
	}
	for _, s := range subs {
		profile.Subscriptions[s] = struct{}{}
	}
	for _, id := range watched {
		profile.Excluded[id] = struct{}{}
	}
	for _, id := range liked {
		profile.Excluded[id] = struct{}{}
	}

	items := a.fetchWatched(ctx, log, watched)
	if len(items) == 0 {
		return profile
	}

	profile.TopTags = topTags(items, a.opts.TopTags)

	vectors := make([][]float32, 0, len(items))
	for _, s := range items {
		if s.HasEmbedding() {
			vectors = append(vectors, s.Embedding)
		}
	}
	profile.PreferenceVector = domain.MeanVector(vectors)
	if profile.PreferenceVector == nil {
		profile.PreferenceVector = a.embedTitles(ctx, log, items)
	}
	return profile
}

func (a *ProfileAggregator) recent(
	ctx context.Context, log *zap.Logger, source, userID string, window int,
	fn func(ctx context.Context, userID string, limit int) ([]video.ID, error),
) []video.ID {
	ids, err := callUpstream(ctx, a.timeout, source,
		func(ctx context.Context) ([]video.ID, error) { return fn(ctx, userID, window) })
	if err != nil {
		log.Warn("Profile signal unavailable", zap.String("source", source), zap.Error(err))
		return nil
	}
	return ids
}

// fetchWatched loads metadata for the most recent watched videos, newest first.
func (a *ProfileAggregator) fetchWatched(ctx context.Context, log *zap.Logger, watched []video.ID) []*video.Snapshot {
	if a.metadata == nil || len(watched) == 0 {
		return nil
	}
	if a.opts.FetchBatch > 0 && len(watched) > a.opts.FetchBatch {
		watched = watched[:a.opts.FetchBatch]
	}

	byID, err := callUpstream(ctx, a.timeout, sourceMetadata,
		func(ctx context.Context) (map[video.ID]video.Snapshot, error) { return a.metadata.FetchByIDs(ctx, watched) })
	if err != nil {
		log.Warn("Profile signal unavailable", zap.String("source", sourceMetadata), zap.Error(err))
		return nil
	}

	items := make([]*video.Snapshot, 0, len(byID))
	for _, id := range watched {
		if snap, ok := byID[id]; ok {
			items = append(items, &snap)
		}
	}
	return items
}

// embedTitles embeds the titles and descriptions of the most recent items.
func (a *ProfileAggregator) embedTitles(ctx context.Context, log *zap.Logger, items []*video.Snapshot) []float32 {
	if a.embedder == nil {
		return nil
	}
	if a.opts.TitleWindow > 0 && len(items) > a.opts.TitleWindow {
		items = items[:a.opts.TitleWindow]
	}

	parts := make([]string, len(items))
	for i, s := range items {
		parts[i] = s.Title + "\n" + s.Description
	}
	text := strings.Join(parts, "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	res, err := callUpstream(ctx, a.timeout, sourceEmbedder,
		func(ctx context.Context) (domain.EmbeddingResult, error) { return a.embedder.Embed(ctx, text) })
	if err != nil {
		log.Warn("Profile signal unavailable", zap.String("source", sourceEmbedder), zap.Error(err))
		return nil
	}
	if len(res.Embedding) == 0 {
		return nil
	}
	return res.Embedding
}

// topTags returns the n most frequent non-empty tags, ties by first appearance.
func topTags(items []*video.Snapshot, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, s := range items {
		for _, t := range s.Tags {
			if t == "" {
				continue
			}
			if _, ok := counts[t]; !ok {
				order = append(order, t)
			}
			counts[t]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if n > 0 && len(order) > n {
		order = order[:n]
	}
	return order
}
