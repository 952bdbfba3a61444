package app

import (
	"testing"
	"time"

	"github.com/kailas-cloud/vidrank/internal/config"
	"github.com/kailas-cloud/vidrank/internal/usecase/ranking"
)

func TestRankingOptions_Defaults(t *testing.T) {
	cfg := config.Config{}
	cfg.ApplyDefaults()

	got := RankingOptions(cfg.Ranking)
	want := ranking.DefaultOptions()

	if got.RRFK != want.RRFK {
		t.Errorf("RRFK: got %d, want %d", got.RRFK, want.RRFK)
	}
	if got.UpstreamTimeout != want.UpstreamTimeout {
		t.Errorf("UpstreamTimeout: got %s, want %s", got.UpstreamTimeout, want.UpstreamTimeout)
	}
	if got.Profile != want.Profile {
		t.Errorf("Profile: got %+v, want %+v", got.Profile, want.Profile)
	}
	if got.SearchScoring != ranking.SearchScoring() {
		t.Errorf("SearchScoring: got %+v", got.SearchScoring)
	}
	if got.RecommendScoring != ranking.RecommendScoring() {
		t.Errorf("RecommendScoring: got %+v", got.RecommendScoring)
	}
	if got.Hybrid {
		t.Error("hybrid must default to off")
	}
}

func TestRankingOptions_Overrides(t *testing.T) {
	k := 0
	cfg := config.Config{Ranking: config.RankingConfig{
		RRFK:              &k,
		UpstreamTimeoutMs: 250,
		Search:            config.SearchConfig{Hybrid: true},
		Scoring: config.ScoringConfig{
			Search: config.ScoringWeights{TagWeight: 3, ViewScale: 10, RecencyWindowDays: 5},
		},
	}}
	cfg.ApplyDefaults()

	got := RankingOptions(cfg.Ranking)
	if got.RRFK != 0 {
		t.Errorf("RRFK: got %d, want 0", got.RRFK)
	}
	if got.UpstreamTimeout != 250*time.Millisecond {
		t.Errorf("UpstreamTimeout: got %s", got.UpstreamTimeout)
	}
	if !got.Hybrid {
		t.Error("expected hybrid enabled")
	}
	if got.SearchScoring.TagWeight != 3 || got.SearchScoring.ViewScale != 10 || got.SearchScoring.TitleMatchBonus != 0 {
		t.Errorf("SearchScoring: got %+v", got.SearchScoring)
	}
}
