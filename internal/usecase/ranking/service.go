// Package ranking blends vector similarity, lexical matching and heuristic signals
// into ordered, paginated video lists. Every operation degrades along a chain of
// strategies instead of failing when a collaborator is down.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
	"github.com/kailas-cloud/vidrank/internal/logger"
)

// Operation labels.
const (
	opSearch    = "search"
	opRecommend = "recommend"
	opRelated   = "related"
	opByTags    = "by_tags"
	opSuggest   = "suggest"
)

// SortOrder selects the ordering of search results.
type SortOrder string

// Sort orders.
const (
	SortRelevance SortOrder = "relevance"
	SortDate      SortOrder = "date"
	SortViews     SortOrder = "views"
)

// ParseSortOrder validates a sort order; empty means relevance.
func ParseSortOrder(raw string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SortRelevance:
		return SortRelevance, nil
	case SortDate:
		return SortDate, nil
	case SortViews:
		return SortViews, nil
	default:
		return "", fmt.Errorf("%w: unknown sort order %q", domain.ErrInvalidInput, raw)
	}
}

// SearchRequest is a free-text search.
type SearchRequest struct {
	Query    string
	Page     int
	PageSize int
	UserID   string // optional, enables the subscription bonus
	SortBy   SortOrder
}

// RecommendRequest asks for personalised recommendations.
type RecommendRequest struct {
	UserID   string
	Page     int
	PageSize int
}

// Service is the ranking orchestrator.
type Service struct {
	deps      Deps
	opts      Options
	profiles  *ProfileAggregator
	search    Scorer
	recommend Scorer
	logger    *zap.Logger
}

// New creates a ranking service. Any collaborator in deps may be nil.
func New(deps Deps, opts Options, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{
		deps:      deps,
		opts:      opts,
		profiles:  NewProfileAggregator(deps, opts.Profile, opts.UpstreamTimeout, l),
		search:    NewScorer(opts.SearchScoring),
		recommend: NewScorer(opts.RecommendScoring),
		logger:    l,
	}
}

// SetClock replaces the clock used for recency scoring.
func (s *Service) SetClock(now func() time.Time) {
	s.search.Now = now
	s.recommend.Now = now
}

// Search ranks videos matching a free-text query.
func (s *Service) Search(ctx context.Context, req SearchRequest) (Page, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Page{}, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if err := s.validatePage(req.Page, req.PageSize); err != nil {
		return Page{}, err
	}
	if req.UserID != "" {
		if err := video.ValidateIdentifier(req.UserID); err != nil {
			return Page{}, fmt.Errorf("user id: %w", err)
		}
	}
	if req.SortBy == "" {
		req.SortBy = SortRelevance
	}

	terms := ExpandQuery(query)
	out := s.runChain(ctx, opSearch, []strategy{
		{engine: EngineVector, attempt: func(ctx context.Context) (outcome, error) {
			return s.searchVector(ctx, query, terms, req)
		}},
		{engine: EngineFallback, attempt: func(ctx context.Context) (outcome, error) {
			return s.searchFallback(ctx, terms, req)
		}},
	})
	return paginate(out, req.Page, req.PageSize), nil
}

func (s *Service) searchVector(ctx context.Context, query string, terms []string, req SearchRequest) (outcome, error) {
	if s.deps.Embedder == nil || s.deps.Vectors == nil || s.deps.Metadata == nil {
		return outcome{}, errNotConfigured
	}

	emb, err := callUpstream(ctx, s.opts.UpstreamTimeout, sourceEmbedder,
		func(ctx context.Context) (domain.EmbeddingResult, error) { return s.deps.Embedder.Embed(ctx, query) })
	if err != nil {
		return outcome{}, fmt.Errorf("embed query: %w", err)
	}

	topK := s.opts.vectorTopK(req.Page, req.PageSize)
	lists, err := s.retrieve(ctx, video.VectorQuery{Vector: emb.Embedding, TopK: topK, PublishedOnly: true}, terms)
	if err != nil {
		return outcome{}, err
	}

	fused, err := Fuse(lists, s.opts.RRFK, nil)
	if err != nil {
		return outcome{}, fmt.Errorf("fuse: %w", err)
	}
	return s.resolve(ctx, fused, exhausted(lists, topK))
}

// exhausted reports whether every source returned fewer than topK hits,
// meaning nothing lies beyond what was retrieved.
func exhausted(lists []video.RankedList, topK int) bool {
	for _, l := range lists {
		if len(l.Candidates) >= topK {
			return false
		}
	}
	return true
}

// retrieve runs the vector query and, in hybrid mode, the lexical query
// concurrently. Lexical failures degrade to vector-only.
func (s *Service) retrieve(ctx context.Context, vq video.VectorQuery, terms []string) ([]video.RankedList, error) {
	queryVectors := func(ctx context.Context) ([]video.Candidate, error) {
		return callUpstream(ctx, s.opts.UpstreamTimeout, sourceVectorIndex,
			func(ctx context.Context) ([]video.Candidate, error) { return s.deps.Vectors.Query(ctx, vq) })
	}

	if !s.opts.Hybrid || s.deps.Lexical == nil {
		hits, err := queryVectors(ctx)
		if err != nil {
			return nil, fmt.Errorf("vector query: %w", err)
		}
		return []video.RankedList{{Source: string(EngineVector), Candidates: hits}}, nil
	}

	var vectorHits, lexicalHits []video.Candidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vectorHits, err = queryVectors(gctx)
		if err != nil {
			return fmt.Errorf("vector query: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		hits, err := callUpstream(gctx, s.opts.UpstreamTimeout, sourceLexicalIndex,
			func(ctx context.Context) ([]video.Candidate, error) {
				return s.deps.Lexical.Search(ctx, video.LexicalQuery{Terms: terms, Size: vq.TopK, PublishedOnly: true})
			})
		if err != nil {
			logger.FromContextOr(ctx, s.logger).Warn("Lexical retrieval failed, continuing with vector hits",
				zap.String("operation", opSearch), zap.Error(err))
			return nil
		}
		lexicalHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return []video.RankedList{
		{Source: string(EngineLexical), Candidates: lexicalHits},
		{Source: string(EngineVector), Candidates: vectorHits},
	}, nil
}

// resolve attaches stored metadata to fused candidates, preserving order.
// Candidates without a record or not published are dropped. When the sources
// were exhausted the approximate total counts only what survived resolution.
func (s *Service) resolve(ctx context.Context, fused []video.Candidate, exhausted bool) (outcome, error) {
	out := outcome{hits: len(fused), approximate: true}
	if len(fused) == 0 {
		return out, nil
	}

	ids := video.RankedList{Candidates: fused}.IDs()
	byID, err := callUpstream(ctx, s.opts.UpstreamTimeout, sourceMetadata,
		func(ctx context.Context) (map[video.ID]video.Snapshot, error) { return s.deps.Metadata.FetchByIDs(ctx, ids) })
	if err != nil {
		return outcome{}, fmt.Errorf("fetch metadata: %w", err)
	}

	log := logger.FromContextOr(ctx, s.logger)
	out.items = make([]video.Candidate, 0, len(fused))
	for _, c := range fused {
		snap, ok := byID[c.ID]
		if !ok {
			log.Debug("Dropping candidate without metadata", zap.String("video_id", string(c.ID)))
			continue
		}
		if !snap.Published {
			continue
		}
		c.Snapshot = &snap
		out.items = append(out.items, c)
	}
	if exhausted {
		out.hits = len(out.items)
	}
	return out, nil
}

func (s *Service) searchFallback(ctx context.Context, terms []string, req SearchRequest) (outcome, error) {
	cands, truncated, err := s.catalog(ctx)
	if err != nil {
		return outcome{}, err
	}

	matched := make([]video.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Snapshot == nil || !c.Snapshot.Published {
			continue
		}
		if matchesAny(c.Snapshot, terms) {
			matched = append(matched, c)
		}
	}

	sig := Signals{Terms: terms}
	if req.UserID != "" {
		sig.Subscriptions = s.subscriptions(ctx, req.UserID)
	}
	ranked := s.search.Rank(matched, sig)

	switch req.SortBy {
	case SortDate:
		sort.SliceStable(ranked, func(i, j int) bool { return newerFirst(ranked[i], ranked[j]) })
	case SortViews:
		sortByViews(ranked)
	}
	// A truncated catalog means matches beyond the candidate limit were never seen.
	return outcome{items: ranked, hits: len(ranked), approximate: truncated}, nil
}

// Recommend ranks videos for a user. Upstream failures never surface; the
// worst case is a popularity/recency ranking of the catalog.
func (s *Service) Recommend(ctx context.Context, req RecommendRequest) (Page, error) {
	if err := video.ValidateIdentifier(req.UserID); err != nil {
		return Page{}, fmt.Errorf("user id: %w", err)
	}
	if err := s.validatePage(req.Page, req.PageSize); err != nil {
		return Page{}, err
	}

	profile := s.profiles.Build(ctx, req.UserID)

	out := s.runChain(ctx, opRecommend, []strategy{
		{engine: EngineVector, attempt: func(ctx context.Context) (outcome, error) {
			return s.recommendVector(ctx, profile, req)
		}},
		{engine: EngineFallback, attempt: func(ctx context.Context) (outcome, error) {
			return s.recommendFallback(ctx, profile)
		}},
	})
	return paginate(out, req.Page, req.PageSize), nil
}

func (s *Service) recommendVector(ctx context.Context, profile UserProfile, req RecommendRequest) (outcome, error) {
	if s.deps.Vectors == nil || s.deps.Metadata == nil {
		return outcome{}, errNotConfigured
	}
	if profile.PreferenceVector == nil {
		return outcome{}, nil
	}

	topK := s.opts.vectorTopK(req.Page, req.PageSize)
	vq := video.VectorQuery{
		Vector:        profile.PreferenceVector,
		TopK:          topK,
		PublishedOnly: true,
	}
	hits, err := callUpstream(ctx, s.opts.UpstreamTimeout, sourceVectorIndex,
		func(ctx context.Context) ([]video.Candidate, error) { return s.deps.Vectors.Query(ctx, vq) })
	if err != nil {
		return outcome{}, fmt.Errorf("vector query: %w", err)
	}

	lists := []video.RankedList{{Source: string(EngineVector), Candidates: hits}}
	fused, err := Fuse(lists, s.opts.RRFK, profile.Excluded)
	if err != nil {
		return outcome{}, fmt.Errorf("fuse: %w", err)
	}
	return s.resolve(ctx, fused, exhausted(lists, topK))
}

func (s *Service) recommendFallback(ctx context.Context, profile UserProfile) (outcome, error) {
	cands, truncated, err := s.catalog(ctx)
	if err != nil {
		return outcome{}, err
	}

	published := make([]video.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Snapshot != nil && c.Snapshot.Published {
			published = append(published, c)
		}
	}
	ranked := s.recommend.Rank(published, Signals{
		Subscriptions: profile.Subscriptions,
		TopTags:       profile.TopTags,
	})
	out := outcome{items: ranked}
	if truncated {
		out.approximate = true
		out.hits = s.countPublished(ctx, len(ranked))
	}
	return out, nil
}

// catalog lists published videos for the fallback strategies. truncated is set
// when the listing hit FallbackCandidateLimit and more videos may exist.
func (s *Service) catalog(ctx context.Context) (cands []video.Candidate, truncated bool, err error) {
	if s.deps.Catalog == nil {
		return nil, false, errNotConfigured
	}
	limit := s.opts.FallbackCandidateLimit
	cands, err = callUpstream(ctx, s.opts.UpstreamTimeout, sourceCatalog,
		func(ctx context.Context) ([]video.Candidate, error) { return s.deps.Catalog.ListPublished(ctx, limit) })
	if err != nil {
		return nil, false, fmt.Errorf("list catalog: %w", err)
	}
	return cands, limit > 0 && len(cands) >= limit, nil
}

// countPublished returns the size of the whole published catalog, or seen when
// the count is unavailable.
func (s *Service) countPublished(ctx context.Context, seen int) int {
	n, err := callUpstream(ctx, s.opts.UpstreamTimeout, sourceCatalog, s.deps.Catalog.CountPublished)
	if err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("Catalog count unavailable",
			zap.String("source", sourceCatalog), zap.Error(err))
		return seen
	}
	return max(n, seen)
}

func (s *Service) subscriptions(ctx context.Context, userID string) map[string]struct{} {
	if s.deps.Social == nil {
		return nil
	}
	subs, err := callUpstream(ctx, s.opts.UpstreamTimeout, sourceSocialGraph,
		func(ctx context.Context) ([]string, error) { return s.deps.Social.SubscriptionsOf(ctx, userID) })
	if err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("Subscriptions unavailable",
			zap.String("source", sourceSocialGraph), zap.Error(err))
		return nil
	}
	set := make(map[string]struct{}, len(subs))
	for _, id := range subs {
		set[id] = struct{}{}
	}
	return set
}

func (s *Service) validatePage(page, pageSize int) error {
	if page < 1 {
		return fmt.Errorf("%w: page must be >= 1", domain.ErrInvalidInput)
	}
	if pageSize < 1 || (s.opts.MaxPageSize > 0 && pageSize > s.opts.MaxPageSize) {
		return fmt.Errorf("%w: page size must be between 1 and %d", domain.ErrInvalidInput, s.opts.MaxPageSize)
	}
	// The offset (page-1)*pageSize must fit an int.
	if maxPage := (math.MaxInt-1)/pageSize + 1; page > maxPage {
		return fmt.Errorf("%w: page must be <= %d", domain.ErrInvalidInput, maxPage)
	}
	return nil
}

// matchesAny reports whether any term occurs in the title, description or a tag.
func matchesAny(snap *video.Snapshot, terms []string) bool {
	if containsAny(snap.Title, terms) || containsAny(snap.Description, terms) {
		return true
	}
	for _, tag := range snap.Tags {
		if containsAny(tag, terms) {
			return true
		}
	}
	return false
}

// sortByViews orders by views desc, then timestamp desc, then ID asc.
func sortByViews(cands []video.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		vi, vj := views(cands[i]), views(cands[j])
		if vi != vj {
			return vi > vj
		}
		return newerFirst(cands[i], cands[j])
	})
}

func views(c video.Candidate) int64 {
	if c.Snapshot == nil {
		return 0
	}
	return c.Snapshot.Views
}
