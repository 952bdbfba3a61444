// Package embcache memoises embeddings: an in-process LRU in front of a shared
// key-value tier, keyed by the SHA-256 of the text.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidrank/internal/db"
	"github.com/kailas-cloud/vidrank/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options tunes both cache tiers.
type Options struct {
	LocalSize int           // LRU entries kept in process; 0 disables the local tier
	TTL       time.Duration // shared tier expiry; 0 keeps entries forever
}

// CachedEmbedder caches embeddings in process and in a key-value store.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	local      *lru.Cache[string, []float32]
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("local_hit"/"hit"/"miss").
func New(
	inner domain.Embedder,
	s store,
	opts Options,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) (*CachedEmbedder, error) {
	c := &CachedEmbedder{
		inner:      inner,
		store:      s,
		ttl:        opts.TTL,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
	if opts.LocalSize > 0 {
		local, err := lru.New[string, []float32](opts.LocalSize)
		if err != nil {
			return nil, fmt.Errorf("create local cache: %w", err)
		}
		c.local = local
	}
	return c, nil
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hits report zero tokens.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := cacheKey(text)

	if c.local != nil {
		if vec, ok := c.local.Get(key); ok {
			c.incCache("local_hit")
			return domain.EmbeddingResult{Embedding: vec}, nil
		}
	}

	if vec, ok := c.getFromStore(ctx, key); ok {
		c.incCache("hit")
		c.remember(key, vec)
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	c.incCache("miss")

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.remember(key, result.Embedding)
	c.putToStore(ctx, key, result.Embedding)
	return result, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) remember(key string, vec []float32) {
	if c.local != nil && len(vec) > 0 {
		c.local.Add(key, vec)
	}
}

func cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromStore(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := db.DecodeVector(string(data))
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) putToStore(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, []byte(db.EncodeVector(vec)), c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}
