package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_NegativeRRFK(t *testing.T) {
	cfg := validConfig()
	k := -1
	cfg.Ranking.RRFK = &k

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for negative rrf_k")
	}
	expected := "ranking.rrf_k must not be negative, got -1"
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ZeroRRFKAllowed(t *testing.T) {
	cfg := validConfig()
	k := 0
	cfg.Ranking.RRFK = &k

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_NonPositiveWindows(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"watch window", func(c *Config) { c.Ranking.Profile.WatchWindow = -5 }, "ranking.profile.watch_window"},
		{"top tags", func(c *Config) { c.Ranking.Profile.TopTags = -1 }, "ranking.profile.top_tags"},
		{"view scale", func(c *Config) { c.Ranking.Scoring.Search.ViewScale = -1 }, "ranking.scoring.search.view_scale"},
		{"recency window", func(c *Config) { c.Ranking.Scoring.Recommend.RecencyWindowDays = -2 }, "ranking.scoring.recommend.recency_window_days"},
		{"negative weight", func(c *Config) { c.Ranking.Scoring.Recommend.TagWeight = -8 }, "ranking.scoring.recommend.weights"},
		{"failure ratio", func(c *Config) { c.Ranking.Breaker.FailureRatio = 1.5 }, "ranking.breaker.failure_ratio"},
		{"page size", func(c *Config) { c.Ranking.DefaultPageSize = 500 }, "ranking.default_page_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.HasPrefix(err.Error(), tt.want) {
				t.Errorf("expected error starting with %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Index.HNSWM != 32 {
		t.Errorf("expected HNSWM=32, got %d", cfg.Index.HNSWM)
	}
	if cfg.Index.HNSWEFConstruct != 400 {
		t.Errorf("expected HNSWEFConstruct=400, got %d", cfg.Index.HNSWEFConstruct)
	}
	if cfg.Ranking.RRFK == nil || *cfg.Ranking.RRFK != 60 {
		t.Errorf("expected RRFK=60, got %v", cfg.Ranking.RRFK)
	}
	if cfg.Ranking.UpstreamTimeout().Milliseconds() != 1500 {
		t.Errorf("expected upstream timeout 1500ms, got %s", cfg.Ranking.UpstreamTimeout())
	}
	if cfg.Ranking.DefaultPageSize != 20 {
		t.Errorf("expected DefaultPageSize=20, got %d", cfg.Ranking.DefaultPageSize)
	}
	if cfg.Ranking.MaxPageSize != 100 {
		t.Errorf("expected MaxPageSize=100, got %d", cfg.Ranking.MaxPageSize)
	}
	if cfg.Ranking.Profile.WatchWindow != 100 || cfg.Ranking.Profile.LikeWindow != 50 {
		t.Errorf("unexpected profile windows: %+v", cfg.Ranking.Profile)
	}
	if cfg.Ranking.Scoring.Search.PopularityCap != 20 || cfg.Ranking.Scoring.Search.TitleMatchBonus != 50 {
		t.Errorf("unexpected search scoring: %+v", cfg.Ranking.Scoring.Search)
	}
	if cfg.Ranking.Scoring.Recommend.PopularityCap != 25 || cfg.Ranking.Scoring.Recommend.TitleMatchBonus != 0 {
		t.Errorf("unexpected recommend scoring: %+v", cfg.Ranking.Scoring.Recommend)
	}
	if cfg.Ranking.Search.Hybrid {
		t.Error("hybrid search must default to off")
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	k := 10
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{ReadinessTimeout: 15},
		Index:    IndexConfig{HNSWM: 16, HNSWEFConstruct: 200},
		Ranking: RankingConfig{
			RRFK:    &k,
			Scoring: ScoringConfig{Recommend: ScoringWeights{TagWeight: 4}},
		},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Index.HNSWM != 16 {
		t.Errorf("expected HNSWM=16, got %d", cfg.Index.HNSWM)
	}
	if *cfg.Ranking.RRFK != 10 {
		t.Errorf("expected RRFK=10, got %d", *cfg.Ranking.RRFK)
	}
	rec := cfg.Ranking.Scoring.Recommend
	if rec.TagWeight != 4 || rec.SubscriptionBonus != 0 {
		t.Errorf("partial scoring profile must be kept, got %+v", rec)
	}
	if rec.ViewScale != 1000 || rec.RecencyWindowDays != 20 {
		t.Errorf("divisors must be filled, got %+v", rec)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("VIDRANK_TEST_PORT", "9090")

	cfg, err := Parse([]byte(`
http:
  port: ${VIDRANK_TEST_PORT}
database:
  addrs: ["${VIDRANK_TEST_MISSING:-localhost:6379}"]
ranking:
  rrf_k: 0
  search:
    hybrid: true
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if len(cfg.Database.Addrs) != 1 || cfg.Database.Addrs[0] != "localhost:6379" {
		t.Errorf("unexpected addrs: %v", cfg.Database.Addrs)
	}
	if *cfg.Ranking.RRFK != 0 {
		t.Errorf("explicit rrf_k 0 must be kept, got %d", *cfg.Ranking.RRFK)
	}
	if !cfg.Ranking.Search.Hybrid {
		t.Error("expected hybrid search enabled")
	}
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("http:\n  port: 8080\n"))
	if err == nil {
		t.Fatal("expected error for missing addrs")
	}
}
