package chi

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidrank/internal/domain/video"
	"github.com/kailas-cloud/vidrank/internal/logger"
	"github.com/kailas-cloud/vidrank/internal/usecase/ranking"
)

const (
	codeBadRequest             = "bad_request"
	codeNotFound               = "not_found"
	codeEmbeddingProviderError = "embedding_provider_error"
	codeUpstreamUnavailable    = "upstream_unavailable"
	codeUnauthorized           = "unauthorized"
	codeInternalError          = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type videoResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	OwnerID     string     `json:"owner_id,omitempty"`
	Views       int64      `json:"views"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Score       float64    `json:"score"`
}

type pageResponse struct {
	Items            []videoResponse `json:"items"`
	Total            int             `json:"total"`
	TotalApproximate bool            `json:"total_approximate"`
	Page             int             `json:"page"`
	PageSize         int             `json:"page_size"`
	TotalPages       int             `json:"total_pages"`
	Engine           string          `json:"engine"`
}

type suggestionsResponse struct {
	Items []string `json:"items"`
}

type indexResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type healthResponse struct {
	Status           string            `json:"status"`
	Checks           map[string]string `json:"checks"`
	LexicalDocuments uint64            `json:"lexical_documents"`
}

func pageToResponse(p ranking.Page) pageResponse {
	items := make([]videoResponse, len(p.Items))
	for i, c := range p.Items {
		items[i] = candidateToResponse(c)
	}
	return pageResponse{
		Items:            items,
		Total:            p.Total,
		TotalApproximate: p.TotalApproximate,
		Page:             p.Page,
		PageSize:         p.PageSize,
		TotalPages:       p.TotalPages,
		Engine:           string(p.Engine),
	}
}

func candidateToResponse(c video.Candidate) videoResponse {
	resp := videoResponse{ID: c.ID.String(), Score: c.Score}
	if s := c.Snapshot; s != nil {
		resp.Title = s.Title
		resp.Description = s.Description
		resp.Tags = s.Tags
		resp.OwnerID = s.OwnerID
		resp.Views = s.Views
		if ts := s.Timestamp(); !ts.IsZero() {
			resp.PublishedAt = &ts
		}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Invalid input keeps its detail; upstream failures only expose the sentinel text.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if status < http.StatusInternalServerError {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
