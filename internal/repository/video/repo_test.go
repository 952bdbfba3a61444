package video

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kailas-cloud/vidrank/internal/db"
	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
)

func TestFromFields(t *testing.T) {
	m := map[string]string{
		FieldTitle:       "Intro to Go",
		FieldDescription: "basics",
		FieldTags:        "go, programming,,",
		FieldOwnerID:     "owner-1",
		FieldViews:       "1500",
		FieldPublished:   "true",
		FieldPublishedAt: "1700000000",
		FieldEmbedding:   db.EncodeVector([]float32{1, 2}),
	}
	s := FromFields(m)
	if s.Title != "Intro to Go" || s.OwnerID != "owner-1" || s.Views != 1500 || !s.Published {
		t.Errorf("unexpected snapshot %+v", s)
	}
	if len(s.Tags) != 2 || s.Tags[0] != "go" || s.Tags[1] != "programming" {
		t.Errorf("unexpected tags %v", s.Tags)
	}
	if !s.PublishedAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("unexpected publishedAt %v", s.PublishedAt)
	}
	if !s.CreatedAt.IsZero() {
		t.Errorf("expected zero createdAt, got %v", s.CreatedAt)
	}
	if len(s.Embedding) != 2 || s.Embedding[1] != 2 {
		t.Errorf("unexpected embedding %v", s.Embedding)
	}
}

func TestFromFields_Garbage(t *testing.T) {
	s := FromFields(map[string]string{FieldViews: "many", FieldPublishedAt: "yesterday", FieldEmbedding: "abc"})
	if s.Views != 0 || !s.PublishedAt.IsZero() || s.Embedding != nil || s.Published {
		t.Errorf("expected zero values, got %+v", s)
	}
}

func TestIndexFields(t *testing.T) {
	s := video.Snapshot{Tags: []string{"a", "b"}, Published: true, Views: 7, OwnerID: "o"}
	m := IndexFields(s)
	if m[FieldTags] != "a,b" || m[FieldPublished] != "true" || m[FieldViews] != "7" || m[FieldOwnerID] != "o" {
		t.Errorf("unexpected fields %v", m)
	}
	if _, ok := m[FieldPublishedAt]; ok {
		t.Error("expected published_at omitted when unknown")
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchByIDs(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		if len(keys) != 2 || keys[0] != "vidrank:video:a" || keys[1] != "vidrank:video:b" {
			t.Errorf("unexpected keys %v", keys)
		}
		return []map[string]string{{FieldTitle: "A"}, {}}, nil
	}

	got, err := repo.FetchByIDs(context.Background(), []video.ID{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got["a"].Title != "A" {
		t.Errorf("expected only a, got %v", got)
	}
}

func TestFetchByIDs_Error(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllMultiFn = func(context.Context, []string) ([]map[string]string, error) {
		return nil, errors.New("conn reset")
	}
	if _, err := repo.FetchByIDs(context.Background(), []video.ID{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestListPublished_Paginates(t *testing.T) {
	repo, ms := newTestRepo(t)
	var offsets []int
	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		offsets = append(offsets, q.Offset)
		if q.IndexName != IndexName {
			t.Errorf("unexpected index %s", q.IndexName)
		}
		if len(q.Filters.Must()) != 1 || q.Filters.Must()[0].Key() != FieldPublished {
			t.Errorf("expected published filter, got %+v", q.Filters.Must())
		}
		n := min(q.Limit, 600-q.Offset)
		res := &db.SearchResult{Total: 600}
		for i := range n {
			res.Entries = append(res.Entries, db.SearchEntry{
				Key:    fmt.Sprintf("vidrank:video:v%d", q.Offset+i),
				Fields: map[string]string{FieldPublished: "true"},
			})
		}
		return res, nil
	}

	got, err := repo.ListPublished(context.Background(), 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 600 {
		t.Fatalf("expected 600 candidates, got %d", len(got))
	}
	if len(offsets) != 2 || offsets[1] != listPageSize {
		t.Errorf("unexpected offsets %v", offsets)
	}
	if got[0].ID != "v0" || got[0].Snapshot == nil || !got[0].Snapshot.Published {
		t.Errorf("unexpected first candidate %+v", got[0])
	}
}

func TestListPublished_RespectsLimit(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		if q.Limit != 3 {
			t.Errorf("expected limit 3, got %d", q.Limit)
		}
		return &db.SearchResult{Total: 100, Entries: make([]db.SearchEntry, 3)}, nil
	}
	got, err := repo.ListPublished(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3, got %d", len(got))
	}
}

func TestListTagged(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		must := q.Filters.Must()
		if len(must) != 2 || must[1].Key() != FieldTags || len(must[1].Values()) != 2 {
			t.Errorf("unexpected filters %+v", must)
		}
		return &db.SearchResult{}, nil
	}
	if _, err := repo.ListTagged(context.Background(), []string{"go", "rust"}, 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := repo.ListTagged(context.Background(), nil, 20); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for no tags, got %v", err)
	}
}

func TestCountPublished(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchCountFn = func(_ context.Context, index, query string) (int, error) {
		if query != "@published:{true}" {
			t.Errorf("unexpected query %q", query)
		}
		return 12, nil
	}
	n, err := repo.CountPublished(context.Background())
	if err != nil || n != 12 {
		t.Fatalf("expected 12, got %d (%v)", n, err)
	}
}
