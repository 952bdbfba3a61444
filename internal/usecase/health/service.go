package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; ranking still answers through fallbacks.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status           Status
	Checks           map[string]CheckResult
	LexicalDocuments uint64
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	lexical   LexicalCounter
	timeout   time.Duration
}

// New creates a Service. embedding and lexical can be nil.
func New(db DBPinger, embedding EmbeddingChecker, lexical LexicalCounter) *Service {
	return &Service{db: db, embedding: embedding, lexical: lexical, timeout: DefaultCheckTimeout}
}

// Check runs health checks against all components concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult)
		docs   uint64
	)
	set := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			checks[name] = CheckError
		} else {
			checks[name] = CheckOK
		}
	}

	var g errgroup.Group
	g.Go(func() error {
		set("database", s.run(ctx, s.db.Ping))
		return nil
	})
	if s.embedding != nil {
		g.Go(func() error {
			set("embedding", s.run(ctx, s.embedding.HealthCheck))
			return nil
		})
	}
	if s.lexical != nil {
		g.Go(func() error {
			err := s.run(ctx, func(ctx context.Context) error {
				n, err := s.lexical.DocCount(ctx)
				if err == nil {
					mu.Lock()
					docs = n
					mu.Unlock()
				}
				return err
			})
			set("lexical", err)
			return nil
		})
	}
	_ = g.Wait()

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, LexicalDocuments: docs}
}

func (s *Service) run(ctx context.Context, check func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return check(ctx)
}
