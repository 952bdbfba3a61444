package redis

import (
	"context"

	"github.com/kailas-cloud/vidrank/internal/db"
)

// LRange returns list elements between start and stop (inclusive, negative from tail).
// Activity lists are LPUSHed, so index 0 is the most recent entry.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	out, err := s.do(ctx, s.b().Lrange().Key(key).Start(start).Stop(stop).Build()).AsStrSlice()
	if err != nil {
		return nil, wrap(db.OpLRange, err)
	}
	return out, nil
}

// SMembers returns all members of a set. A missing key yields an empty slice.
func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	out, err := s.do(ctx, s.b().Smembers().Key(key).Build()).AsStrSlice()
	if err != nil {
		return nil, wrap(db.OpSMembers, err)
	}
	return out, nil
}
