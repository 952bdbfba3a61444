package breaker

import (
	"context"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
)

// Embedder guards an embedding provider.
type Embedder struct {
	inner domain.Embedder
	cb    *gobreaker.CircuitBreaker[domain.EmbeddingResult]
}

// NewEmbedder wraps inner with a circuit breaker.
func NewEmbedder(inner domain.Embedder, s Settings, logger *zap.Logger) *Embedder {
	return &Embedder{inner: inner, cb: newBreaker[domain.EmbeddingResult](s, logger)}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return execute(e.cb, func() (domain.EmbeddingResult, error) {
		return e.inner.Embed(ctx, text)
	})
}

// HealthCheck bypasses the breaker so that recovery is visible to health probes.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// State reports the breaker state.
func (e *Embedder) State() string { return e.cb.State().String() }

type vectorQuerier interface {
	Query(ctx context.Context, q video.VectorQuery) ([]video.Candidate, error)
}

// VectorIndex guards nearest-neighbour queries. Writes are not wrapped.
type VectorIndex struct {
	inner vectorQuerier
	cb    *gobreaker.CircuitBreaker[[]video.Candidate]
}

// NewVectorIndex wraps inner with a circuit breaker.
func NewVectorIndex(inner vectorQuerier, s Settings, logger *zap.Logger) *VectorIndex {
	return &VectorIndex{inner: inner, cb: newBreaker[[]video.Candidate](s, logger)}
}

// Query implements the ranking VectorIndex contract.
func (v *VectorIndex) Query(ctx context.Context, q video.VectorQuery) ([]video.Candidate, error) {
	return execute(v.cb, func() ([]video.Candidate, error) {
		return v.inner.Query(ctx, q)
	})
}

type lexicalSearcher interface {
	Search(ctx context.Context, q video.LexicalQuery) ([]video.Candidate, error)
}

// LexicalIndex guards keyword searches.
type LexicalIndex struct {
	inner lexicalSearcher
	cb    *gobreaker.CircuitBreaker[[]video.Candidate]
}

// NewLexicalIndex wraps inner with a circuit breaker.
func NewLexicalIndex(inner lexicalSearcher, s Settings, logger *zap.Logger) *LexicalIndex {
	return &LexicalIndex{inner: inner, cb: newBreaker[[]video.Candidate](s, logger)}
}

// Search implements the ranking LexicalIndex contract.
func (l *LexicalIndex) Search(ctx context.Context, q video.LexicalQuery) ([]video.Candidate, error) {
	return execute(l.cb, func() ([]video.Candidate, error) {
		return l.inner.Search(ctx, q)
	})
}
