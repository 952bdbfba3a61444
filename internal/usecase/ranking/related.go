package ranking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
	"github.com/kailas-cloud/vidrank/internal/logger"
)

const minSuggestLength = 2

// Related returns videos similar to a published source video.
func (s *Service) Related(ctx context.Context, rawID string) (Page, error) {
	id, err := video.ParseID(rawID)
	if err != nil {
		return Page{}, fmt.Errorf("video id: %w", err)
	}
	if s.deps.Metadata == nil {
		return Page{}, fmt.Errorf("metadata store: %w", errNotConfigured)
	}

	src, err := callUpstream(ctx, s.opts.UpstreamTimeout, sourceMetadata,
		func(ctx context.Context) (video.Snapshot, error) { return s.deps.Metadata.Get(ctx, id) })
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Page{}, err
		}
		return Page{}, fmt.Errorf("load video %s: %w: %w", id, domain.ErrUpstreamUnavailable, err)
	}
	if !src.Published {
		return Page{}, fmt.Errorf("video %s: %w", id, domain.ErrNotFound)
	}

	limit := s.relatedLimit()
	exclude := map[video.ID]struct{}{id: {}}
	tags := normalizeTags(src.Tags)

	out := s.runChain(ctx, opRelated, []strategy{
		{engine: EngineVector, attempt: func(ctx context.Context) (outcome, error) {
			return s.relatedVector(ctx, &src, exclude, limit)
		}},
		{engine: EngineLexical, attempt: func(ctx context.Context) (outcome, error) {
			return s.relatedLexical(ctx, id, tags, limit)
		}},
		{engine: EngineFallback, attempt: func(ctx context.Context) (outcome, error) {
			return s.tagged(ctx, tags, exclude, limit)
		}},
	})
	return paginate(out, 1, limit), nil
}

func (s *Service) relatedVector(
	ctx context.Context, src *video.Snapshot, exclude map[video.ID]struct{}, limit int,
) (outcome, error) {
	if s.deps.Vectors == nil {
		return outcome{}, errNotConfigured
	}
	if !src.HasEmbedding() {
		return outcome{}, nil
	}

	vq := video.VectorQuery{Vector: src.Embedding, TopK: limit + 1, PublishedOnly: true}
	hits, err := callUpstream(ctx, s.opts.UpstreamTimeout, sourceVectorIndex,
		func(ctx context.Context) ([]video.Candidate, error) { return s.deps.Vectors.Query(ctx, vq) })
	if err != nil {
		return outcome{}, fmt.Errorf("vector query: %w", err)
	}

	fused, err := Fuse([]video.RankedList{{Source: string(EngineVector), Candidates: hits}}, s.opts.RRFK, exclude)
	if err != nil {
		return outcome{}, fmt.Errorf("fuse: %w", err)
	}
	return s.resolveCapped(ctx, fused, limit)
}

func (s *Service) relatedLexical(ctx context.Context, id video.ID, tags []string, limit int) (outcome, error) {
	if s.deps.Lexical == nil || s.deps.Metadata == nil {
		return outcome{}, errNotConfigured
	}
	if len(tags) == 0 {
		return outcome{}, nil
	}

	lq := video.LexicalQuery{Tags: tags, Exclude: []video.ID{id}, Size: limit, PublishedOnly: true}
	hits, err := callUpstream(ctx, s.opts.UpstreamTimeout, sourceLexicalIndex,
		func(ctx context.Context) ([]video.Candidate, error) { return s.deps.Lexical.Search(ctx, lq) })
	if err != nil {
		return outcome{}, fmt.Errorf("lexical query: %w", err)
	}
	return s.resolveCapped(ctx, hits, limit)
}

// resolveCapped resolves metadata and truncates to limit; the total is exact.
func (s *Service) resolveCapped(ctx context.Context, cands []video.Candidate, limit int) (outcome, error) {
	out, err := s.resolve(ctx, cands, true)
	if err != nil {
		return outcome{}, err
	}
	if len(out.items) > limit {
		out.items = out.items[:limit]
	}
	out.approximate = false
	return out, nil
}

// tagged lists published videos sharing any of tags, most viewed first.
func (s *Service) tagged(ctx context.Context, tags []string, exclude map[video.ID]struct{}, limit int) (outcome, error) {
	if s.deps.Catalog == nil {
		return outcome{}, errNotConfigured
	}
	if len(tags) == 0 {
		return outcome{}, nil
	}

	cands, err := callUpstream(ctx, s.opts.UpstreamTimeout, sourceCatalog,
		func(ctx context.Context) ([]video.Candidate, error) {
			return s.deps.Catalog.ListTagged(ctx, tags, s.opts.FallbackCandidateLimit)
		})
	if err != nil {
		return outcome{}, fmt.Errorf("list tagged: %w", err)
	}

	items := make([]video.Candidate, 0, len(cands))
	for _, c := range cands {
		if _, skip := exclude[c.ID]; skip {
			continue
		}
		if c.Snapshot == nil || !c.Snapshot.Published {
			continue
		}
		items = append(items, c)
	}
	sortByViews(items)
	if len(items) > limit {
		items = items[:limit]
	}
	return outcome{items: items}, nil
}

// ByTags lists published videos carrying any of the tags, most viewed first.
func (s *Service) ByTags(ctx context.Context, tags []string) (Page, error) {
	tags = normalizeTags(tags)
	if len(tags) == 0 {
		return Page{}, fmt.Errorf("%w: at least one tag is required", domain.ErrInvalidInput)
	}

	limit := s.relatedLimit()
	out := s.runChain(ctx, opByTags, []strategy{
		{engine: EngineFallback, attempt: func(ctx context.Context) (outcome, error) {
			return s.tagged(ctx, tags, nil, limit)
		}},
	})
	return paginate(out, 1, limit), nil
}

// Suggest returns up to SuggestLimit titles of published videos matching the
// query or its aliases, most viewed first. Short queries yield nothing.
func (s *Service) Suggest(ctx context.Context, q string) ([]string, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < minSuggestLength {
		return []string{}, nil
	}

	cands, _, err := s.catalog(ctx)
	if err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("Suggestions unavailable",
			zap.String("operation", opSuggest), zap.Error(err))
		return []string{}, nil
	}

	terms := ExpandQuery(q)
	matched := make([]video.Candidate, 0)
	for _, c := range cands {
		if c.Snapshot != nil && c.Snapshot.Published && containsAny(c.Snapshot.Title, terms) {
			matched = append(matched, c)
		}
	}
	sortByViews(matched)

	limit := s.opts.SuggestLimit
	if limit <= 0 {
		limit = DefaultOptions().SuggestLimit
	}
	seen := make(map[string]struct{}, limit)
	titles := make([]string, 0, limit)
	for _, c := range matched {
		if len(titles) == limit {
			break
		}
		if _, dup := seen[c.Snapshot.Title]; dup {
			continue
		}
		seen[c.Snapshot.Title] = struct{}{}
		titles = append(titles, c.Snapshot.Title)
	}
	return titles, nil
}

func (s *Service) relatedLimit() int {
	if s.opts.RelatedLimit > 0 {
		return s.opts.RelatedLimit
	}
	return DefaultOptions().RelatedLimit
}

// normalizeTags trims tags and drops blanks and duplicates, keeping order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
