package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/metrics"
)

// DefaultMaxInputChars bounds the text sent to the provider; longer input is truncated.
const DefaultMaxInputChars = 8000

// Embedder is an embedding provider using the OpenAI-compatible API.
type Embedder struct {
	client        *openai.Client
	model         openai.EmbeddingModel
	dimensions    int
	user          string
	provider      string
	normalize     bool
	maxInputChars int
	logger        *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	Dimensions    int
	User          string
	Provider      string
	Normalize     bool // L2-normalise returned vectors
	MaxInputChars int
	Timeout       time.Duration
	Logger        *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient.(*http.Client).Timeout = cfg.Timeout
	}

	maxChars := cfg.MaxInputChars
	if maxChars <= 0 {
		maxChars = DefaultMaxInputChars
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:        openai.NewClientWithConfig(clientCfg),
		model:         openai.EmbeddingModel(cfg.Model),
		dimensions:    cfg.Dimensions,
		user:          cfg.User,
		provider:      cfg.Provider,
		normalize:     cfg.Normalize,
		maxInputChars: maxChars,
		logger:        logger,
	}
}

// Embed implements domain.Embedder. Returns the vector and usage with transport-level metrics.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	input := cleanText(text, e.maxInputChars)
	if input == "" {
		return domain.EmbeddingResult{}, domain.ErrEmptyText
	}

	req := openai.EmbeddingRequest{
		Input:          []string{input},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	model := string(e.model)
	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, "api_error").Inc()
		return domain.EmbeddingResult{}, parseAPIError(err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	vec := resp.Data[0].Embedding
	if e.dimensions > 0 && len(vec) != e.dimensions {
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, "dimension_mismatch").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("provider returned %d dims, expected %d: %w",
			len(vec), e.dimensions, domain.ErrVectorDimMismatch)
	}
	if e.normalize {
		vec = l2Normalize(vec)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// cleanText collapses whitespace runs (newlines included) and truncates to maxChars runes.
func cleanText(text string, maxChars int) string {
	out := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(out) <= maxChars {
		return out
	}
	runes := []rune(out)
	return strings.TrimSpace(string(runes[:maxChars]))
}

func l2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// parseAPIError extracts a human-readable error from the API response.
// Everything wraps domain.ErrEmbeddingProviderError; transport failures and 5xx/429
// additionally wrap domain.ErrUpstreamUnavailable.
func parseAPIError(err error) error {
	wrap := domain.ErrEmbeddingProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		if retryable(reqErr.HTTPStatusCode) {
			return fmt.Errorf("embedding API error %d: %s: %w: %w",
				reqErr.HTTPStatusCode, detail, wrap, domain.ErrUpstreamUnavailable)
		}
		return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if retryable(apiErr.HTTPStatusCode) {
			return fmt.Errorf("embedding API error %d: %s: %w: %w",
				apiErr.HTTPStatusCode, apiErr.Message, wrap, domain.ErrUpstreamUnavailable)
		}
		return fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request failed: %w: %w: %w", err, wrap, domain.ErrUpstreamUnavailable)
}

func retryable(status int) bool {
	return status == 429 || status >= 500
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
