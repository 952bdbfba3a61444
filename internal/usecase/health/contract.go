package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// LexicalCounter reports the size of the lexical index.
type LexicalCounter interface {
	DocCount(ctx context.Context) (uint64, error)
}
