package chi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
	healthuc "github.com/kailas-cloud/vidrank/internal/usecase/health"
	"github.com/kailas-cloud/vidrank/internal/usecase/ranking"
)

type mockRanker struct {
	page      ranking.Page
	err       error
	titles    []string
	searchReq ranking.SearchRequest
	recReq    ranking.RecommendRequest
	relatedID string
	tags      []string
	panicMsg  string
}

func (m *mockRanker) Search(_ context.Context, req ranking.SearchRequest) (ranking.Page, error) {
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	m.searchReq = req
	return m.page, m.err
}

func (m *mockRanker) Recommend(_ context.Context, req ranking.RecommendRequest) (ranking.Page, error) {
	m.recReq = req
	return m.page, m.err
}

func (m *mockRanker) Related(_ context.Context, id string) (ranking.Page, error) {
	m.relatedID = id
	return m.page, m.err
}

func (m *mockRanker) ByTags(_ context.Context, tags []string) (ranking.Page, error) {
	m.tags = tags
	return m.page, m.err
}

func (m *mockRanker) Suggest(_ context.Context, _ string) ([]string, error) {
	return m.titles, m.err
}

type mockIndexer struct {
	indexed []string
	removed []string
	err     error
}

func (m *mockIndexer) IndexVideo(_ context.Context, id string) error {
	m.indexed = append(m.indexed, id)
	return m.err
}

func (m *mockIndexer) RemoveVideo(_ context.Context, id string) error {
	m.removed = append(m.removed, id)
	return m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type testEnv struct {
	ranker  *mockRanker
	indexer *mockIndexer
	health  *mockHealth
	handler http.Handler
}

func newTestEnv(apiKeys ...string) *testEnv {
	env := &testEnv{
		ranker:  &mockRanker{},
		indexer: &mockIndexer{},
		health:  &mockHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}},
	}
	srv := NewServer(env.ranker, env.indexer, env.health, 20, zap.NewNop())
	env.handler = NewRouter(srv, apiKeys)
	return env
}

func (e *testEnv) do(method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func samplePage() ranking.Page {
	published := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return ranking.Page{
		Items: []video.Candidate{
			{ID: "v1", Score: 0.5, Snapshot: &video.Snapshot{
				Title: "Go tips", Tags: []string{"go"}, OwnerID: "u9", Views: 42, Published: true, PublishedAt: published,
			}},
			{ID: "v2"},
		},
		Total:            7,
		TotalApproximate: true,
		Page:             2,
		PageSize:         2,
		TotalPages:       4,
		Engine:           ranking.EngineVector,
	}
}

func TestSearchVideos_PassesParameters(t *testing.T) {
	env := newTestEnv()
	env.ranker.page = samplePage()

	rr := env.do("GET", "/v1/videos/search?q=golang&page=2&limit=2&sort=views", map[string]string{UserIDHeader: "u1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	req := env.ranker.searchReq
	want := ranking.SearchRequest{Query: "golang", Page: 2, PageSize: 2, UserID: "u1", SortBy: ranking.SortViews}
	if req != want {
		t.Errorf("request: got %+v, want %+v", req, want)
	}

	resp := decode[pageResponse](t, rr)
	if resp.Total != 7 || !resp.TotalApproximate || resp.TotalPages != 4 || resp.Engine != "vector" {
		t.Errorf("unexpected envelope: %+v", resp)
	}
	if len(resp.Items) != 2 || resp.Items[0].ID != "v1" || resp.Items[0].Views != 42 {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
	if resp.Items[0].PublishedAt == nil || resp.Items[1].PublishedAt != nil {
		t.Error("published_at must be set only for items with a timestamp")
	}
}

func TestSearchVideos_Defaults(t *testing.T) {
	env := newTestEnv()

	rr := env.do("GET", "/v1/videos/search?q=go", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	req := env.ranker.searchReq
	if req.Page != 1 || req.PageSize != 20 || req.SortBy != ranking.SortRelevance {
		t.Errorf("unexpected defaults: %+v", req)
	}

	resp := decode[pageResponse](t, rr)
	if resp.Items == nil {
		t.Error("items must encode as an empty array")
	}
}

func TestSearchVideos_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing q", "/v1/videos/search"},
		{"page not int", "/v1/videos/search?q=go&page=abc"},
		{"unknown sort", "/v1/videos/search?q=go&sort=oldest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			rr := env.do("GET", tt.target, nil)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
			}
			if resp := decode[errorResponse](t, rr); resp.Code != codeBadRequest {
				t.Errorf("code: got %q, want %q", resp.Code, codeBadRequest)
			}
		})
	}
}

func TestRecommendVideos(t *testing.T) {
	env := newTestEnv()
	env.ranker.page = ranking.Page{Engine: ranking.EngineFallback, Page: 1, PageSize: 5}

	rr := env.do("GET", "/v1/videos/recommendations?limit=5", map[string]string{UserIDHeader: "u1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if env.ranker.recReq != (ranking.RecommendRequest{UserID: "u1", Page: 1, PageSize: 5}) {
		t.Errorf("unexpected request: %+v", env.ranker.recReq)
	}
	if resp := decode[pageResponse](t, rr); resp.Engine != "fallback" {
		t.Errorf("engine: got %q", resp.Engine)
	}
}

func TestRecommendVideos_MissingUser(t *testing.T) {
	env := newTestEnv()

	rr := env.do("GET", "/v1/videos/recommendations", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestDomainErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"invalid input", fmt.Errorf("%w: page must be >= 1", domain.ErrInvalidInput),
			http.StatusBadRequest, codeBadRequest, "invalid input: page must be >= 1"},
		{"not found", fmt.Errorf("video v1: %w", domain.ErrNotFound),
			http.StatusNotFound, codeNotFound, "video v1: not found"},
		{"upstream", fmt.Errorf("redis: dial tcp: %w", domain.ErrUpstreamUnavailable),
			http.StatusServiceUnavailable, codeUpstreamUnavailable, "upstream unavailable"},
		{"provider", fmt.Errorf("openai 400: %w", domain.ErrEmbeddingProviderError),
			http.StatusBadGateway, codeEmbeddingProviderError, "embedding provider error"},
		{"internal", errors.New("boom"),
			http.StatusInternalServerError, codeInternalError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.ranker.err = tt.err

			rr := env.do("GET", "/v1/videos/v1/related", nil)
			if rr.Code != tt.status {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.status)
			}
			resp := decode[errorResponse](t, rr)
			if resp.Code != tt.code || resp.Message != tt.msg {
				t.Errorf("got %+v, want code=%q message=%q", resp, tt.code, tt.msg)
			}
		})
	}
}

func TestRelatedVideos(t *testing.T) {
	env := newTestEnv()
	env.ranker.page = ranking.Page{Engine: ranking.EngineLexical}

	rr := env.do("GET", "/v1/videos/abc_1/related", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if env.ranker.relatedID != "abc_1" {
		t.Errorf("id: got %q", env.ranker.relatedID)
	}
}

func TestVideosByTags(t *testing.T) {
	env := newTestEnv()

	rr := env.do("GET", "/v1/videos/by-tags?tags=go,rust", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if !slices.Equal(env.ranker.tags, []string{"go", "rust"}) {
		t.Errorf("tags: got %v", env.ranker.tags)
	}

	rr = env.do("GET", "/v1/videos/by-tags", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing tags: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSuggestTitles(t *testing.T) {
	env := newTestEnv()

	rr := env.do("GET", "/v1/videos/suggestions?q=g", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if resp := decode[suggestionsResponse](t, rr); resp.Items == nil || len(resp.Items) != 0 {
		t.Errorf("expected empty items, got %v", resp.Items)
	}

	env.ranker.titles = []string{"Go tips", "Go generics"}
	rr = env.do("GET", "/v1/videos/suggestions?q=go", nil)
	if resp := decode[suggestionsResponse](t, rr); len(resp.Items) != 2 {
		t.Errorf("expected 2 suggestions, got %v", resp.Items)
	}
}

func TestIndexEndpoints(t *testing.T) {
	env := newTestEnv()

	rr := env.do("POST", "/v1/index/videos/v7", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if resp := decode[indexResponse](t, rr); resp.ID != "v7" || resp.Status != "indexed" {
		t.Errorf("unexpected response: %+v", resp)
	}

	rr = env.do("DELETE", "/v1/index/videos/v7", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
	if !slices.Equal(env.indexer.indexed, []string{"v7"}) || !slices.Equal(env.indexer.removed, []string{"v7"}) {
		t.Errorf("indexer calls: indexed=%v removed=%v", env.indexer.indexed, env.indexer.removed)
	}

	env.indexer.err = fmt.Errorf("video v8: %w", domain.ErrNotFound)
	rr = env.do("POST", "/v1/index/videos/v8", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing video: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv("secret")
	env.health.report = healthuc.Report{
		Status:           healthuc.Degraded,
		Checks:           map[string]healthuc.CheckResult{"database": healthuc.CheckOK, "lexical": healthuc.CheckError},
		LexicalDocuments: 3,
	}

	rr := env.do("GET", "/health", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	resp := decode[healthResponse](t, rr)
	if resp.Status != "degraded" || resp.Checks["lexical"] != "error" || resp.LexicalDocuments != 3 {
		t.Errorf("unexpected health response: %+v", resp)
	}
}

func TestRouter_RequiresAuth(t *testing.T) {
	env := newTestEnv("secret")

	rr := env.do("GET", "/v1/videos/search?q=go", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	rr = env.do("GET", "/v1/videos/search?q=go", map[string]string{"Authorization": "Bearer secret"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestRouter_PanicReturnsJSON(t *testing.T) {
	env := newTestEnv()
	env.ranker.panicMsg = "kaboom"

	rr := env.do("GET", "/v1/videos/search?q=go", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if resp := decode[errorResponse](t, rr); resp.Code != codeInternalError {
		t.Errorf("code: got %q", resp.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	env := newTestEnv()

	rr := env.do("GET", "/v1/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
	if resp := decode[errorResponse](t, rr); resp.Code != codeNotFound {
		t.Errorf("code: got %q", resp.Code)
	}
}
