// Package user reads per-user activity: watch and like streams (newest first) and
// the set of followed channel owners.
package user

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
)

// store is the consumer interface for user activity (ISP).
type store interface {
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Repo implements the user history and social graph contracts.
type Repo struct {
	store store
}

// New creates a user activity repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// RecentWatched returns up to limit most recently watched video IDs, newest first.
func (r *Repo) RecentWatched(ctx context.Context, userID string, limit int) ([]video.ID, error) {
	return r.recent(ctx, watchedKey(userID), limit)
}

// RecentLiked returns up to limit most recently liked video IDs, newest first.
func (r *Repo) RecentLiked(ctx context.Context, userID string, limit int) ([]video.ID, error) {
	return r.recent(ctx, likedKey(userID), limit)
}

// SubscriptionsOf returns the owner IDs the user follows.
func (r *Repo) SubscriptionsOf(ctx context.Context, userID string) ([]string, error) {
	owners, err := r.store.SMembers(ctx, subscriptionsKey(userID))
	if err != nil {
		return nil, fmt.Errorf("subscriptions of %s: %w", userID, err)
	}
	return owners, nil
}

func (r *Repo) recent(ctx context.Context, key string, limit int) ([]video.ID, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := r.store.LRange(ctx, key, 0, int64(limit-1))
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}

	ids := make([]video.ID, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, s := range raw {
		if s == "" {
			continue
		}
		// re-watches push duplicates; keep the newest occurrence
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		ids = append(ids, video.ID(s))
	}
	return ids, nil
}

func userPrefix(userID string) string { return domain.KeyPrefix + "user:" + userID }

func watchedKey(userID string) string { return userPrefix(userID) + ":watched" }

func likedKey(userID string) string { return userPrefix(userID) + ":liked" }

func subscriptionsKey(userID string) string { return userPrefix(userID) + ":subscriptions" }
