package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the vidrank API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Lexical   LexicalConfig   `yaml:"lexical"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds HNSW and bulk indexing settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
	Concurrency     int `yaml:"concurrency"`
	CatalogLimit    int `yaml:"catalog_limit"`
}

// LexicalConfig holds lexical index settings.
type LexicalConfig struct {
	Path string `yaml:"path"` // empty keeps the index in memory
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string      `yaml:"provider"`
	APIKey              string      `yaml:"api_key"`
	BaseURL             string      `yaml:"base_url"`
	Model               string      `yaml:"model"`
	Dimensions          int         `yaml:"dimensions"`
	Normalize           bool        `yaml:"normalize"`
	MaxInputChars       int         `yaml:"max_input_chars"`
	TimeoutMs           int         `yaml:"timeout_ms"`
	DocumentInstruction string      `yaml:"document_instruction"`
	QueryInstruction    string      `yaml:"query_instruction"`
	Cache               CacheConfig `yaml:"cache"`
}

// Enabled reports whether an embedding provider is configured.
func (e EmbeddingConfig) Enabled() bool {
	return e.APIKey != "" && e.Model != ""
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	LocalSize int `yaml:"local_size"`
	TTLSec    int `yaml:"ttl_sec"` // 0 keeps entries forever
}

// RankingConfig holds ranking engine settings.
type RankingConfig struct {
	RRFK                   *int          `yaml:"rrf_k"`
	UpstreamTimeoutMs      int           `yaml:"upstream_timeout_ms"`
	Overfetch              int           `yaml:"overfetch"`
	VectorFloor            int           `yaml:"vector_floor"`
	MaxTopK                int           `yaml:"max_top_k"`
	DefaultPageSize        int           `yaml:"default_page_size"`
	MaxPageSize            int           `yaml:"max_page_size"`
	FallbackCandidateLimit int           `yaml:"fallback_candidate_limit"`
	RelatedLimit           int           `yaml:"related_limit"`
	SuggestLimit           int           `yaml:"suggest_limit"`
	Search                 SearchConfig  `yaml:"search"`
	Profile                ProfileConfig `yaml:"profile"`
	Breaker                BreakerConfig `yaml:"breaker"`
	Scoring                ScoringConfig `yaml:"scoring"`
}

// UpstreamTimeout returns the per-call upstream deadline.
func (r RankingConfig) UpstreamTimeout() time.Duration {
	return time.Duration(r.UpstreamTimeoutMs) * time.Millisecond
}

// SearchConfig holds search-specific switches.
type SearchConfig struct {
	Hybrid bool `yaml:"hybrid"`
}

// ProfileConfig bounds the history used for user profiles.
type ProfileConfig struct {
	WatchWindow int `yaml:"watch_window"`
	LikeWindow  int `yaml:"like_window"`
	FetchBatch  int `yaml:"fetch_batch"`
	TitleWindow int `yaml:"title_window"`
	TopTags     int `yaml:"top_tags"`
}

// BreakerConfig holds circuit breaker settings shared by all upstreams.
type BreakerConfig struct {
	MaxRequests  uint32  `yaml:"max_requests"`
	IntervalSec  int     `yaml:"interval_sec"`
	TimeoutSec   int     `yaml:"timeout_sec"`
	MinRequests  uint32  `yaml:"min_requests"`
	FailureRatio float64 `yaml:"failure_ratio"`
}

// ScoringConfig holds both heuristic scoring profiles.
type ScoringConfig struct {
	Search    ScoringWeights `yaml:"search"`
	Recommend ScoringWeights `yaml:"recommend"`
}

// ScoringWeights parameterises the heuristic scorer.
type ScoringWeights struct {
	SubscriptionBonus     float64 `yaml:"subscription_bonus"`
	TagWeight             float64 `yaml:"tag_weight"`
	ViewScale             float64 `yaml:"view_scale"`
	PopularityCap         float64 `yaml:"popularity_cap"`
	RecencyMax            float64 `yaml:"recency_max"`
	RecencyWindowDays     float64 `yaml:"recency_window_days"`
	TitleMatchBonus       float64 `yaml:"title_match_bonus"`
	DescriptionMatchBonus float64 `yaml:"description_match_bonus"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML config data, applies defaults and validates the result.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.MaxInputChars <= 0 {
		c.Embedding.MaxInputChars = 8000
	}
	if c.Embedding.TimeoutMs <= 0 {
		c.Embedding.TimeoutMs = 10000
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 32
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 400
	}
	if c.Index.Concurrency <= 0 {
		c.Index.Concurrency = 8
	}
	if c.Index.CatalogLimit <= 0 {
		c.Index.CatalogLimit = 100000
	}
	c.Ranking.applyDefaults()
}

func (r *RankingConfig) applyDefaults() {
	if r.RRFK == nil {
		k := 60
		r.RRFK = &k
	}
	if r.UpstreamTimeoutMs <= 0 {
		r.UpstreamTimeoutMs = 1500
	}
	if r.Overfetch <= 0 {
		r.Overfetch = 2
	}
	if r.VectorFloor <= 0 {
		r.VectorFloor = 20
	}
	if r.MaxTopK <= 0 {
		r.MaxTopK = 500
	}
	if r.DefaultPageSize <= 0 {
		r.DefaultPageSize = 20
	}
	if r.MaxPageSize <= 0 {
		r.MaxPageSize = 100
	}
	if r.FallbackCandidateLimit <= 0 {
		r.FallbackCandidateLimit = 5000
	}
	if r.RelatedLimit <= 0 {
		r.RelatedLimit = 20
	}
	if r.SuggestLimit <= 0 {
		r.SuggestLimit = 5
	}

	p := &r.Profile
	if p.WatchWindow == 0 {
		p.WatchWindow = 100
	}
	if p.LikeWindow == 0 {
		p.LikeWindow = 50
	}
	if p.FetchBatch == 0 {
		p.FetchBatch = 100
	}
	if p.TitleWindow == 0 {
		p.TitleWindow = 20
	}
	if p.TopTags == 0 {
		p.TopTags = 10
	}

	b := &r.Breaker
	if b.MaxRequests == 0 {
		b.MaxRequests = 3
	}
	if b.IntervalSec <= 0 {
		b.IntervalSec = 60
	}
	if b.TimeoutSec <= 0 {
		b.TimeoutSec = 30
	}
	if b.MinRequests == 0 {
		b.MinRequests = 10
	}
	if b.FailureRatio <= 0 {
		b.FailureRatio = 0.6
	}

	r.Scoring.Search.fill(ScoringWeights{
		SubscriptionBonus: 30, TagWeight: 8, ViewScale: 1000, PopularityCap: 20,
		RecencyMax: 10, RecencyWindowDays: 10, TitleMatchBonus: 50, DescriptionMatchBonus: 20,
	})
	r.Scoring.Recommend.fill(ScoringWeights{
		SubscriptionBonus: 30, TagWeight: 8, ViewScale: 1000, PopularityCap: 25,
		RecencyMax: 20, RecencyWindowDays: 20,
	})
}

// fill replaces zero weights with def. A profile given entirely in YAML is kept as is.
func (w *ScoringWeights) fill(def ScoringWeights) {
	if *w == (ScoringWeights{}) {
		*w = def
		return
	}
	if w.ViewScale == 0 {
		w.ViewScale = def.ViewScale
	}
	if w.RecencyWindowDays == 0 {
		w.RecencyWindowDays = def.RecencyWindowDays
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.Cache.LocalSize < 0 {
		return fmt.Errorf("embedding.cache.local_size must not be negative, got %d", c.Embedding.Cache.LocalSize)
	}
	return c.Ranking.validate()
}

func (r *RankingConfig) validate() error {
	if r.RRFK != nil && *r.RRFK < 0 {
		return fmt.Errorf("ranking.rrf_k must not be negative, got %d", *r.RRFK)
	}
	if r.DefaultPageSize > r.MaxPageSize {
		return fmt.Errorf("ranking.default_page_size (%d) exceeds ranking.max_page_size (%d)",
			r.DefaultPageSize, r.MaxPageSize)
	}

	windows := map[string]int{
		"watch_window": r.Profile.WatchWindow,
		"like_window":  r.Profile.LikeWindow,
		"fetch_batch":  r.Profile.FetchBatch,
		"title_window": r.Profile.TitleWindow,
		"top_tags":     r.Profile.TopTags,
	}
	for _, name := range []string{"watch_window", "like_window", "fetch_batch", "title_window", "top_tags"} {
		if windows[name] <= 0 {
			return fmt.Errorf("ranking.profile.%s must be positive, got %d", name, windows[name])
		}
	}

	if r.Breaker.FailureRatio > 1 {
		return fmt.Errorf("ranking.breaker.failure_ratio must be in (0, 1], got %g", r.Breaker.FailureRatio)
	}

	for name, w := range map[string]ScoringWeights{"search": r.Scoring.Search, "recommend": r.Scoring.Recommend} {
		if err := w.validate(); err != nil {
			return fmt.Errorf("ranking.scoring.%s.%w", name, err)
		}
	}
	return nil
}

func (w ScoringWeights) validate() error {
	if w.ViewScale <= 0 {
		return fmt.Errorf("view_scale must be positive, got %g", w.ViewScale)
	}
	if w.RecencyWindowDays <= 0 {
		return fmt.Errorf("recency_window_days must be positive, got %g", w.RecencyWindowDays)
	}
	if w.PopularityCap < 0 || w.RecencyMax < 0 || w.TagWeight < 0 || w.SubscriptionBonus < 0 {
		return fmt.Errorf("weights must not be negative")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
