// Package app assembles the storage, embedding and index components shared by
// the API server and the reindex tool.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidrank/internal/config"
	dbredis "github.com/kailas-cloud/vidrank/internal/db/redis"
	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/metrics"
	"github.com/kailas-cloud/vidrank/internal/repository/breaker"
	"github.com/kailas-cloud/vidrank/internal/repository/embcache"
	"github.com/kailas-cloud/vidrank/internal/repository/lexical"
	userrepo "github.com/kailas-cloud/vidrank/internal/repository/user"
	vectorrepo "github.com/kailas-cloud/vidrank/internal/repository/vector"
	videorepo "github.com/kailas-cloud/vidrank/internal/repository/video"
	openaiEmb "github.com/kailas-cloud/vidrank/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/vidrank/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vidrank/internal/usecase/health"
	"github.com/kailas-cloud/vidrank/internal/usecase/indexing"
	"github.com/kailas-cloud/vidrank/internal/usecase/ranking"
)

// Components holds the wired collaborators.
type Components struct {
	Store   *dbredis.Store
	Videos  *videorepo.Repo
	Vectors *vectorrepo.Repo
	Users   *userrepo.Repo
	Lexical *lexical.Index

	// Embedder is the breaker-guarded provider chain; nil when no provider is configured.
	Embedder *breaker.Embedder

	cfg    config.Config
	logger *zap.Logger
}

// Build connects to the store, opens the lexical index and assembles the embedder chain.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Components, error) {
	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

	lex, err := lexical.Open(cfg.Lexical.Path, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open lexical index: %w", err)
	}

	c := &Components{
		Store:   store,
		Videos:  videorepo.New(store),
		Vectors: vectorrepo.New(store, cfg.Embedding.Dimensions, vectorrepo.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		}),
		Users:   userrepo.New(store),
		Lexical: lex,
		cfg:     cfg,
		logger:  logger,
	}

	if cfg.Embedding.Enabled() {
		emb, err := c.buildEmbedder()
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Embedder = emb
		logger.Info("Embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	} else {
		logger.Warn("No embedding provider configured, vector ranking disabled")
	}

	return c, nil
}

// Close releases the store and the lexical index.
func (c *Components) Close() {
	if err := c.Lexical.Close(); err != nil {
		c.logger.Warn("Failed to close lexical index", zap.Error(err))
	}
	c.Store.Close()
}

// Ranking builds the ranking service with breaker-guarded indexes.
func (c *Components) Ranking() *ranking.Service {
	bs := c.breakerSettings
	deps := ranking.Deps{
		Vectors:  breaker.NewVectorIndex(c.Vectors, bs("vector_index"), c.logger),
		Lexical:  breaker.NewLexicalIndex(c.Lexical, bs("lexical_index"), c.logger),
		Metadata: c.Videos,
		Catalog:  c.Videos,
		Social:   c.Users,
		History:  c.Users,
	}
	if c.Embedder != nil {
		deps.Embedder = withInstruction(c.Embedder, c.cfg.Embedding.QueryInstruction)
	}
	return ranking.New(deps, RankingOptions(c.cfg.Ranking), c.logger)
}

// Indexing builds the indexing service.
func (c *Components) Indexing(forceEmbed bool) *indexing.Service {
	var embed indexing.Embedder
	if c.Embedder != nil {
		embed = withInstruction(c.Embedder, c.cfg.Embedding.DocumentInstruction)
	}
	return indexing.New(c.Videos, c.Vectors, c.Lexical, embed, indexing.Options{
		Concurrency:  c.cfg.Index.Concurrency,
		CatalogLimit: c.cfg.Index.CatalogLimit,
		ForceEmbed:   forceEmbed,
	}, c.logger)
}

// Health builds the health service.
func (c *Components) Health() *healthuc.Service {
	var emb healthuc.EmbeddingChecker
	if c.Embedder != nil {
		emb = c.Embedder
	}
	return healthuc.New(c.Store, emb, c.Lexical)
}

func (c *Components) breakerSettings(name string) breaker.Settings {
	b := c.cfg.Ranking.Breaker
	return breaker.Settings{
		Name:         name,
		MaxRequests:  b.MaxRequests,
		Interval:     time.Duration(b.IntervalSec) * time.Second,
		Timeout:      time.Duration(b.TimeoutSec) * time.Second,
		MinRequests:  b.MinRequests,
		FailureRatio: b.FailureRatio,
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Breaker.
func (c *Components) buildEmbedder() (*breaker.Embedder, error) {
	ec := c.cfg.Embedding
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:        ec.APIKey,
		BaseURL:       ec.BaseURL,
		Model:         ec.Model,
		Dimensions:    ec.Dimensions,
		Provider:      ec.Provider,
		Normalize:     ec.Normalize,
		MaxInputChars: ec.MaxInputChars,
		Timeout:       time.Duration(ec.TimeoutMs) * time.Millisecond,
		Logger:        c.logger,
	})

	cached, err := embcache.New(base, c.Store, embcache.Options{
		LocalSize: ec.Cache.LocalSize,
		TTL:       time.Duration(ec.Cache.TTLSec) * time.Second,
	}, metrics.EmbeddingCacheTotal, c.logger)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	instrumented := embeddinguc.NewInstrumentedEmbedder(cached, ec.Provider, ec.Model, c.logger)
	return breaker.NewEmbedder(instrumented, c.breakerSettings("embedding"), c.logger), nil
}

// withInstruction prepends the instruction outermost so the cache key includes it.
func withInstruction(inner domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return inner
	}
	return domain.NewInstructionEmbedder(inner, instruction)
}

// RankingOptions maps configuration onto ranking options.
func RankingOptions(rc config.RankingConfig) ranking.Options {
	opts := ranking.DefaultOptions()
	if rc.RRFK != nil {
		opts.RRFK = *rc.RRFK
	}
	opts.UpstreamTimeout = rc.UpstreamTimeout()
	opts.Overfetch = rc.Overfetch
	opts.VectorFloor = rc.VectorFloor
	opts.MaxTopK = rc.MaxTopK
	opts.MaxPageSize = rc.MaxPageSize
	opts.FallbackCandidateLimit = rc.FallbackCandidateLimit
	opts.Hybrid = rc.Search.Hybrid
	opts.RelatedLimit = rc.RelatedLimit
	opts.SuggestLimit = rc.SuggestLimit
	opts.Profile = ranking.ProfileOptions{
		WatchWindow: rc.Profile.WatchWindow,
		LikeWindow:  rc.Profile.LikeWindow,
		FetchBatch:  rc.Profile.FetchBatch,
		TitleWindow: rc.Profile.TitleWindow,
		TopTags:     rc.Profile.TopTags,
	}
	opts.SearchScoring = scoring(rc.Scoring.Search)
	opts.RecommendScoring = scoring(rc.Scoring.Recommend)
	return opts
}

func scoring(w config.ScoringWeights) ranking.ScoringConfig {
	return ranking.ScoringConfig{
		SubscriptionBonus:     w.SubscriptionBonus,
		TagWeight:             w.TagWeight,
		ViewScale:             w.ViewScale,
		PopularityCap:         w.PopularityCap,
		RecencyMax:            w.RecencyMax,
		RecencyWindowDays:     w.RecencyWindowDays,
		TitleMatchBonus:       w.TitleMatchBonus,
		DescriptionMatchBonus: w.DescriptionMatchBonus,
	}
}
