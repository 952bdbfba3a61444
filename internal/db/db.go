// Package db defines the storage contracts the repositories are built on.
// Repositories depend on the narrow interfaces; only main sees the full Store.
package db

import (
	"context"
	"time"
)

// Store combines every capability the repositories need from one backend.
type Store interface {
	Pinger
	HashStore
	KVStore
	HistoryStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore reads and writes the per-video hashes.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
}

// KVStore holds opaque values such as cached embeddings.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// HistoryStore reads user activity: newest-first lists and subscription sets.
type HistoryStore interface {
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	SMembers(ctx context.Context, key string) ([]string, error)
}

// IndexManager creates and probes FT indexes.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchList(ctx context.Context, q *ListQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}
