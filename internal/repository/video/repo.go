// Package video stores video metadata as Redis hashes and lists the published catalog
// through the FT index.
package video

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vidrank/internal/db"
	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/domain/search/filter"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
)

const listPageSize = 500

// store is the consumer interface for video records (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements the metadata store and catalog contracts of the ranking engine.
type Repo struct {
	store store
}

// New creates a video repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get returns a single video including its embedding.
func (r *Repo) Get(ctx context.Context, id video.ID) (video.Snapshot, error) {
	m, err := r.store.HGetAll(ctx, Key(id))
	if err != nil {
		return video.Snapshot{}, fmt.Errorf("hgetall %s: %w", id, err)
	}
	if len(m) == 0 {
		return video.Snapshot{}, fmt.Errorf("video %s: %w", id, domain.ErrNotFound)
	}
	return FromFields(m), nil
}

// FetchByIDs loads metadata for ids in one round-trip. Unknown IDs are absent from
// the returned map.
func (r *Repo) FetchByIDs(ctx context.Context, ids []video.ID) (map[video.ID]video.Snapshot, error) {
	if len(ids) == 0 {
		return map[video.ID]video.Snapshot{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = Key(id)
	}

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch %d videos: %w", len(ids), err)
	}

	out := make(map[video.ID]video.Snapshot, len(rows))
	for i, m := range rows {
		if len(m) == 0 {
			continue
		}
		out[ids[i]] = FromFields(m)
	}
	return out, nil
}

// ListPublished returns up to limit published videos (without embeddings).
func (r *Repo) ListPublished(ctx context.Context, limit int) ([]video.Candidate, error) {
	return r.list(ctx, filter.Published(), limit)
}

// ListTagged returns up to limit published videos carrying any of tags.
func (r *Repo) ListTagged(ctx context.Context, tags []string, limit int) ([]video.Candidate, error) {
	cond, err := filter.NewAnyOf(FieldTags, tags...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return r.list(ctx, filter.Published().And(cond), limit)
}

// CountPublished returns the number of published videos.
func (r *Repo) CountPublished(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, IndexName, "@"+FieldPublished+":{true}")
	if err != nil {
		return 0, fmt.Errorf("count published: %w", err)
	}
	return n, nil
}

func (r *Repo) list(ctx context.Context, f filter.Expression, limit int) ([]video.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}

	out := make([]video.Candidate, 0, min(limit, listPageSize))
	for offset := 0; offset < limit; offset += listPageSize {
		res, err := r.store.SearchList(ctx, &db.ListQuery{
			IndexName:    IndexName,
			Filters:      f,
			Offset:       offset,
			Limit:        min(listPageSize, limit-offset),
			ReturnFields: MetadataFields,
		})
		if err != nil {
			return nil, fmt.Errorf("list videos at offset %d: %w", offset, err)
		}
		if res == nil || len(res.Entries) == 0 {
			break
		}

		for _, e := range res.Entries {
			snap := FromFields(e.Fields)
			out = append(out, video.Candidate{ID: IDFromKey(e.Key), Snapshot: &snap})
		}
		if offset+len(res.Entries) >= res.Total {
			break
		}
	}
	return out, nil
}
