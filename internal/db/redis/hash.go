package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vidrank/internal/db"
)

// HSet writes the given hash fields; an empty map is a no-op.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	cmd := s.b().Hset().Key(key).FieldValue()
	for k, v := range fields {
		cmd = cmd.FieldValue(k, v)
	}
	if err := s.do(ctx, cmd.Build()).Error(); err != nil {
		return wrap(db.OpHSet, err)
	}
	return nil
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, wrap(db.OpHGetAll, err)
	}
	return m, nil
}

// HGetAllMulti pipelines HGETALL for every key. Results are positional and
// missing keys yield empty maps, so callers can zip them back to their IDs.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, 0, len(keys))
	for _, key := range keys {
		cmds = append(cmds, s.b().Hgetall().Key(key).Build())
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([]map[string]string, len(results))
	for i, res := range results {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, wrap(db.OpHGetAll, fmt.Errorf("key %s: %w", keys[i], err))
		}
		out[i] = m
	}
	return out, nil
}

// HDel removes fields from a hash, e.g. a video's embedding.
func (s *Store) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.do(ctx, s.b().Hdel().Key(key).Field(fields...).Build()).Error(); err != nil {
		return wrap(db.OpHDel, err)
	}
	return nil
}
