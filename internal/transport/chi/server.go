package chi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/metrics"
	healthuc "github.com/kailas-cloud/vidrank/internal/usecase/health"
	"github.com/kailas-cloud/vidrank/internal/usecase/ranking"
)

// UserIDHeader carries the caller identity.
const UserIDHeader = "X-User-ID"

// Ranker serves the read side.
type Ranker interface {
	Search(ctx context.Context, req ranking.SearchRequest) (ranking.Page, error)
	Recommend(ctx context.Context, req ranking.RecommendRequest) (ranking.Page, error)
	Related(ctx context.Context, id string) (ranking.Page, error)
	ByTags(ctx context.Context, tags []string) (ranking.Page, error)
	Suggest(ctx context.Context, q string) ([]string, error)
}

// Indexer serves the write side.
type Indexer interface {
	IndexVideo(ctx context.Context, id string) error
	RemoveVideo(ctx context.Context, id string) error
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	ranker          Ranker
	indexer         Indexer
	health          HealthChecker
	logger          *zap.Logger
	defaultPageSize int
	errorHandlers   []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(ranker Ranker, indexer Indexer, health HealthChecker, defaultPageSize int, logger *zap.Logger) *Server {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	return &Server{
		ranker:          ranker,
		indexer:         indexer,
		health:          health,
		logger:          logger,
		defaultPageSize: defaultPageSize,
		errorHandlers: []errorHandler{
			sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeBadRequest),
			sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
			sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable, codeUpstreamUnavailable),
			sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
		},
	}
}

// NewRouter mounts the API on a chi router with the standard middleware stack.
func NewRouter(s *Server, apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/videos/search", s.SearchVideos)
		r.Get("/videos/recommendations", s.RecommendVideos)
		r.Get("/videos/by-tags", s.VideosByTags)
		r.Get("/videos/suggestions", s.SuggestTitles)
		r.Get("/videos/{id}/related", s.RelatedVideos)
		r.Post("/index/videos/{id}", s.IndexVideo)
		r.Delete("/index/videos/{id}", s.RemoveVideo)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}

type pageParams struct {
	Page  *int
	Limit *int
}

func (s *Server) bindPage(r *http.Request) (page, pageSize int, err error) {
	var p pageParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "page", q, &p.Page); err != nil {
		return 0, 0, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &p.Limit); err != nil {
		return 0, 0, err
	}
	page, pageSize = 1, s.defaultPageSize
	if p.Page != nil {
		page = *p.Page
	}
	if p.Limit != nil {
		pageSize = *p.Limit
	}
	return page, pageSize, nil
}

// SearchVideos handles GET /v1/videos/search.
func (s *Server) SearchVideos(w http.ResponseWriter, r *http.Request) {
	var (
		query string
		sort  *string
	)
	if err := runtime.BindQueryParameter("form", true, true, "q", r.URL.Query(), &query); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid format for parameter q: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "sort", r.URL.Query(), &sort); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid format for parameter sort: "+err.Error())
		return
	}
	page, pageSize, err := s.bindPage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid pagination: "+err.Error())
		return
	}

	order := ranking.SortRelevance
	if sort != nil {
		if order, err = ranking.ParseSortOrder(*sort); err != nil {
			s.handleDomainError(w, r, err)
			return
		}
	}

	res, err := s.ranker.Search(r.Context(), ranking.SearchRequest{
		Query:    query,
		Page:     page,
		PageSize: pageSize,
		UserID:   r.Header.Get(UserIDHeader),
		SortBy:   order,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(res))
}

// RecommendVideos handles GET /v1/videos/recommendations.
func (s *Server) RecommendVideos(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(UserIDHeader)
	if userID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, UserIDHeader+" header is required")
		return
	}
	page, pageSize, err := s.bindPage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid pagination: "+err.Error())
		return
	}

	res, err := s.ranker.Recommend(r.Context(), ranking.RecommendRequest{
		UserID:   userID,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(res))
}

// RelatedVideos handles GET /v1/videos/{id}/related.
func (s *Server) RelatedVideos(w http.ResponseWriter, r *http.Request) {
	id, ok := bindID(w, r)
	if !ok {
		return
	}
	res, err := s.ranker.Related(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(res))
}

// VideosByTags handles GET /v1/videos/by-tags.
func (s *Server) VideosByTags(w http.ResponseWriter, r *http.Request) {
	var tags []string
	if err := runtime.BindQueryParameter("form", false, true, "tags", r.URL.Query(), &tags); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid format for parameter tags: "+err.Error())
		return
	}
	res, err := s.ranker.ByTags(r.Context(), tags)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(res))
}

// SuggestTitles handles GET /v1/videos/suggestions.
func (s *Server) SuggestTitles(w http.ResponseWriter, r *http.Request) {
	var q *string
	if err := runtime.BindQueryParameter("form", true, false, "q", r.URL.Query(), &q); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid format for parameter q: "+err.Error())
		return
	}
	query := ""
	if q != nil {
		query = *q
	}
	titles, err := s.ranker.Suggest(r.Context(), query)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if titles == nil {
		titles = []string{}
	}
	writeJSON(w, http.StatusOK, suggestionsResponse{Items: titles})
}

// IndexVideo handles POST /v1/index/videos/{id}.
func (s *Server) IndexVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := bindID(w, r)
	if !ok {
		return
	}
	if err := s.indexer.IndexVideo(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, indexResponse{ID: id, Status: "indexed"})
}

// RemoveVideo handles DELETE /v1/index/videos/{id}.
func (s *Server) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := bindID(w, r)
	if !ok {
		return
	}
	if err := s.indexer.RemoveVideo(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:           string(report.Status),
		Checks:           checks,
		LexicalDocuments: report.LexicalDocuments,
	})
}

func bindID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid format for parameter id: "+err.Error())
		return "", false
	}
	return id, true
}
