package embedding

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/logger"
)

// DefaultSlowThreshold marks embedding calls that are logged at warn level.
const DefaultSlowThreshold = 2 * time.Second

// InstrumentedEmbedder logs every embedding call with the request-scoped
// logger when one is present in the context. Transport metrics are
// recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner  domain.Embedder
	slow   time.Duration
	base   *zap.Logger
	fields []zap.Field
}

// NewInstrumentedEmbedder wraps inner, tagging every log line with provider and model.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, log *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:  inner,
		slow:   DefaultSlowThreshold,
		base:   log,
		fields: []zap.Field{zap.String("provider", provider), zap.String("model", model)},
	}
}

// Embed delegates to the inner embedder.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	elapsed := time.Since(start)

	log := logger.FromContextOr(ctx, p.base).With(p.fields...)
	chars := zap.Int("input_chars", utf8.RuneCountInString(text))

	if err != nil {
		log.Error("Embedding request failed", chars, zap.Duration("duration", elapsed), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	fields := []zap.Field{
		chars,
		zap.Duration("duration", elapsed),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	}
	if elapsed >= p.slow {
		log.Warn("Slow embedding request", fields...)
		return result, nil
	}
	log.Debug("Embedding request completed", fields...)
	return result, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := p.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("embedder health: %w", err)
	}
	return nil
}
