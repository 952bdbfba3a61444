package ranking

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
	"github.com/kailas-cloud/vidrank/internal/logger"
	"github.com/kailas-cloud/vidrank/internal/metrics"
)

// Engine names the strategy that produced a page.
type Engine string

// Engines.
const (
	EngineVector   Engine = "vector"
	EngineLexical  Engine = "lexical"
	EngineFallback Engine = "fallback"
)

// Fallback reasons.
const (
	reasonUnavailable = "unavailable"
	reasonTimeout     = "timeout"
	reasonEmpty       = "empty"
)

// errNotConfigured marks a strategy whose collaborators are not wired.
var errNotConfigured = fmt.Errorf("not configured: %w", domain.ErrUpstreamUnavailable)

// outcome is the fully ordered result of one strategy, before pagination.
type outcome struct {
	items       []video.Candidate
	hits        int // raw hits before metadata resolution
	approximate bool
	engine      Engine
}

type strategy struct {
	engine  Engine
	attempt func(ctx context.Context) (outcome, error)
}

// runChain tries strategies in order until one yields results. The last
// strategy's outcome is returned even when empty; its errors are swallowed.
func (s *Service) runChain(ctx context.Context, operation string, chain []strategy) outcome {
	log := logger.FromContextOr(ctx, s.logger)

	for i, st := range chain {
		last := i == len(chain)-1
		out, err := st.attempt(ctx)
		out.engine = st.engine

		if err != nil {
			reason := classify(err)
			if errors.Is(err, errNotConfigured) {
				log.Debug("Ranking strategy skipped",
					zap.String("operation", operation), zap.String("source", string(st.engine)))
			} else {
				log.Warn("Ranking strategy failed",
					zap.String("operation", operation),
					zap.String("source", string(st.engine)),
					zap.String("reason", reason),
					zap.Error(err),
				)
			}
			metrics.RankingFallbacksTotal.WithLabelValues(operation, string(st.engine), reason).Inc()
			if last {
				return outcome{engine: st.engine}
			}
			continue
		}

		if len(out.items) == 0 && !last {
			metrics.RankingFallbacksTotal.WithLabelValues(operation, string(st.engine), reasonEmpty).Inc()
			continue
		}
		metrics.RankingRequestsTotal.WithLabelValues(operation, string(st.engine)).Inc()
		return out
	}
	return outcome{engine: EngineFallback}
}

func classify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return reasonTimeout
	}
	return reasonUnavailable
}
