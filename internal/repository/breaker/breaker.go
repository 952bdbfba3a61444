// Package breaker wraps upstream collaborators with circuit breakers so that a
// failing embedding provider or index is skipped quickly instead of being waited on.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/metrics"
)

// Settings configures one circuit breaker.
type Settings struct {
	Name         string
	MaxRequests  uint32        // probes allowed while half-open
	Interval     time.Duration // closed-state count reset period
	Timeout      time.Duration // open → half-open delay
	MinRequests  uint32        // requests needed before the ratio is evaluated
	FailureRatio float64       // trip when failures/requests reaches this
}

// DefaultSettings returns settings for the named upstream.
func DefaultSettings(name string) Settings {
	return Settings{
		Name:         name,
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

func newBreaker[T any](s Settings, logger *zap.Logger) *gobreaker.CircuitBreaker[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: isSuccessful,
	})
}

// isSuccessful keeps caller mistakes and caller cancellation from tripping the breaker.
func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrEmptyText)
}

func execute[T any](cb *gobreaker.CircuitBreaker[T], fn func() (T, error)) (T, error) {
	res, err := cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, fmt.Errorf("%s: %w: %w", cb.Name(), err, domain.ErrUpstreamUnavailable)
	}
	return res, err
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
