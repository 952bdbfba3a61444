package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/vidrank/internal/db"
	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
)

func TestQuery_MapsEntries(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "vidrank:videos:idx" || q.K != 10 || q.VectorField != "vector" {
			t.Errorf("unexpected query %+v", q)
		}
		if q.Filters.IsEmpty() {
			t.Error("expected published filter")
		}
		return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
			{Key: "vidrank:video:b", Score: 0.9, Fields: map[string]string{"title": "B", "published": "true"}},
			{Key: "vidrank:video:a", Score: 0.5, Fields: map[string]string{"title": "A"}},
		}}, nil
	}

	got, err := repo.Query(context.Background(), video.VectorQuery{Vector: testVector(), TopK: 10, PublishedOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("expected order [b a], got %+v", got)
	}
	if got[0].Score != 0.9 || got[0].Snapshot.Title != "B" || !got[0].Snapshot.Published {
		t.Errorf("unexpected first candidate %+v", got[0])
	}
}

func TestQuery_DimensionMismatch(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.Query(context.Background(), video.VectorQuery{Vector: []float32{1}, TopK: 5})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestQuery_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
		return nil, errors.New("timeout")
	}
	if _, err := repo.Query(context.Background(), video.VectorQuery{Vector: testVector(), TopK: 5}); err == nil {
		t.Fatal("expected error")
	}
}

func TestUpsert(t *testing.T) {
	repo, ms := newTestRepo(t)
	var gotKey string
	var gotFields map[string]string
	ms.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		gotKey, gotFields = key, fields
		return nil
	}

	snap := video.Snapshot{Tags: []string{"go"}, Published: true, Views: 3}
	if err := repo.Upsert(context.Background(), "v1", testVector(), snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "vidrank:video:v1" {
		t.Errorf("unexpected key %s", gotKey)
	}
	if len(gotFields["embedding"]) != testDim*4 {
		t.Errorf("expected %d-byte blob, got %d", testDim*4, len(gotFields["embedding"]))
	}
	if gotFields["published"] != "true" || gotFields["tags"] != "go" {
		t.Errorf("unexpected fields %v", gotFields)
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetFn = func(context.Context, string, map[string]string) error {
		t.Fatal("store must not be called")
		return nil
	}
	err := repo.Upsert(context.Background(), "v1", []float32{1, 2}, video.Snapshot{})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hdelFn = func(_ context.Context, key string, fields ...string) error {
		if key != "vidrank:video:v1" || len(fields) != 1 || fields[0] != "embedding" {
			t.Errorf("unexpected HDEL %s %v", key, fields)
		}
		return nil
	}
	if err := repo.Delete(context.Background(), "v1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureIndex_Creates(t *testing.T) {
	repo, ms := newTestRepo(t)
	var def *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, d *db.IndexDefinition) error {
		def = d
		return nil
	}

	created, err := repo.EnsureIndex(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected created=true")
	}
	last := def.Fields[len(def.Fields)-1]
	if last.Type != db.IndexFieldVector || last.Alias != "vector" || last.VectorDim != testDim || last.VectorM != 16 {
		t.Errorf("unexpected vector field %+v", last)
	}
}

func TestEnsureIndex_AlreadyPresent(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.indexExistsFn = func(context.Context, string) (bool, error) { return true, nil }
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error {
		t.Fatal("create must not be called")
		return nil
	}
	created, err := repo.EnsureIndex(context.Background())
	if err != nil || created {
		t.Fatalf("expected (false, nil), got (%v, %v)", created, err)
	}
}

func TestEnsureIndex_RaceTreatedAsExisting(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error { return db.ErrIndexExists }
	created, err := repo.EnsureIndex(context.Background())
	if err != nil || created {
		t.Fatalf("expected (false, nil), got (%v, %v)", created, err)
	}
}
