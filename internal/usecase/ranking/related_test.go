package ranking

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
)

func TestRelated_Vector(t *testing.T) {
	f := newFixture()
	f.vectors.hits = hits("v1", "v3", "v2")

	page, err := f.service().Related(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if page.Engine != EngineVector {
		t.Fatalf("Engine = %s, want vector", page.Engine)
	}
	if ids := candidateIDs(page.Items); !slices.Equal(ids, []video.ID{"v3", "v2"}) {
		t.Errorf("items = %v, source must be excluded", ids)
	}
	if f.vectors.lastQuery.TopK != 21 || !slices.Equal(f.vectors.lastQuery.Vector, []float32{1, 0, 0, 0}) {
		t.Errorf("unexpected vector query %+v", f.vectors.lastQuery)
	}
	if page.TotalApproximate || page.Total != 2 {
		t.Errorf("unexpected totals %+v", page)
	}
}

func TestRelated_LexicalWhenNoEmbedding(t *testing.T) {
	f := newFixture()
	src := f.metadata.videos["v1"]
	src.Embedding = nil
	f.metadata.videos["v1"] = src
	f.lexical.hits = hits("v3")

	page, err := f.service().Related(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if page.Engine != EngineLexical {
		t.Fatalf("Engine = %s, want lexical", page.Engine)
	}
	q := f.lexical.lastQuery
	if !slices.Equal(q.Tags, []string{"js", "web"}) || !slices.Equal(q.Exclude, []video.ID{"v1"}) || !q.PublishedOnly {
		t.Errorf("unexpected lexical query %+v", q)
	}
	if ids := candidateIDs(page.Items); !slices.Equal(ids, []video.ID{"v3"}) {
		t.Errorf("items = %v", ids)
	}
}

func TestRelated_CatalogFallback(t *testing.T) {
	f := newFixture()
	f.vectors.err = domain.ErrUpstreamUnavailable
	f.lexical.err = domain.ErrUpstreamUnavailable

	page, err := f.service().Related(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if page.Engine != EngineFallback {
		t.Fatalf("Engine = %s, want fallback", page.Engine)
	}
	if ids := candidateIDs(page.Items); !slices.Equal(ids, []video.ID{"v3"}) {
		t.Errorf("items = %v, want [v3]", ids)
	}
}

func TestRelated_Errors(t *testing.T) {
	f := newFixture()
	s := f.service()

	if _, err := s.Related(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown video: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Related(context.Background(), "v4"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unpublished video: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Related(context.Background(), "../etc"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("bad id: expected ErrInvalidInput, got %v", err)
	}

	f.metadata.getErr = errors.New("connection refused")
	if _, err := s.Related(context.Background(), "v1"); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Errorf("store down: expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestByTags(t *testing.T) {
	s := newFixture().service()

	page, err := s.ByTags(context.Background(), []string{" js ", "", "js"})
	if err != nil {
		t.Fatalf("ByTags: %v", err)
	}
	if ids := candidateIDs(page.Items); !slices.Equal(ids, []video.ID{"v1", "v3"}) {
		t.Errorf("items = %v, want most viewed first", ids)
	}
	if page.Engine != EngineFallback || page.Total != 2 {
		t.Errorf("unexpected page %+v", page)
	}

	if _, err := s.ByTags(context.Background(), []string{" "}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestByTags_Limit(t *testing.T) {
	f := newFixture()
	f.opts.RelatedLimit = 1

	page, _ := f.service().ByTags(context.Background(), []string{"js", "go"})
	if ids := candidateIDs(page.Items); !slices.Equal(ids, []video.ID{"v2"}) {
		t.Errorf("items = %v, want [v2]", ids)
	}
}

func TestSuggest(t *testing.T) {
	s := newFixture().service()

	got, err := s.Suggest(context.Background(), " j ")
	if err != nil || len(got) != 0 {
		t.Fatalf("short query: %v, %v", got, err)
	}

	got, err = s.Suggest(context.Background(), "js")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if !slices.Equal(got, []string{"Intro to JavaScript"}) {
		t.Errorf("suggestions = %v", got)
	}

	got, _ = s.Suggest(context.Background(), "o")
	if len(got) != 0 {
		t.Errorf("single rune must not suggest, got %v", got)
	}
}

func TestSuggest_MostViewedFirstAndCapped(t *testing.T) {
	videos := map[video.ID]video.Snapshot{}
	for i, views := range []int64{10, 60, 30, 50, 20, 40} {
		id := video.ID(rune('a' + i))
		videos[id] = video.Snapshot{Title: "go part " + string(id), Views: views, Published: true}
	}
	s := newTestService(Deps{Catalog: &mockCatalog{videos: videos}}, DefaultOptions())

	got, _ := s.Suggest(context.Background(), "Go")
	want := []string{"go part b", "go part d", "go part f", "go part c", "go part e"}
	if !slices.Equal(got, want) {
		t.Errorf("suggestions = %v, want %v", got, want)
	}
}

func TestSuggest_CatalogDown(t *testing.T) {
	f := newFixture()
	f.catalog.err = errors.New("down")

	got, err := f.service().Suggest(context.Background(), "go")
	if err != nil || len(got) != 0 {
		t.Errorf("expected empty suggestions, got %v, %v", got, err)
	}
}
