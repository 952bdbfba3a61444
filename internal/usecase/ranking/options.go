package ranking

import (
	"math"
	"time"
)

// ScoringConfig parameterises the heuristic scorer.
type ScoringConfig struct {
	SubscriptionBonus     float64
	TagWeight             float64
	ViewScale             float64
	PopularityCap         float64
	RecencyMax            float64
	RecencyWindowDays     float64
	TitleMatchBonus       float64
	DescriptionMatchBonus float64
}

// RecommendScoring is the scoring used by the recommendation fallback.
func RecommendScoring() ScoringConfig {
	return ScoringConfig{
		SubscriptionBonus: 30,
		TagWeight:         8,
		ViewScale:         1000,
		PopularityCap:     25,
		RecencyMax:        20,
		RecencyWindowDays: 20,
	}
}

// SearchScoring is the scoring used by the search fallback.
func SearchScoring() ScoringConfig {
	return ScoringConfig{
		SubscriptionBonus:     30,
		TagWeight:             8,
		ViewScale:             1000,
		PopularityCap:         20,
		RecencyMax:            10,
		RecencyWindowDays:     10,
		TitleMatchBonus:       50,
		DescriptionMatchBonus: 20,
	}
}

// ProfileOptions bounds the history used to build a user profile.
type ProfileOptions struct {
	WatchWindow int
	LikeWindow  int
	FetchBatch  int
	TitleWindow int
	TopTags     int
}

// Options tunes the ranking service.
type Options struct {
	RRFK                   int
	UpstreamTimeout        time.Duration
	Overfetch              int
	VectorFloor            int
	MaxTopK                int
	MaxPageSize            int
	FallbackCandidateLimit int
	Hybrid                 bool
	RelatedLimit           int
	SuggestLimit           int
	Profile                ProfileOptions
	SearchScoring          ScoringConfig
	RecommendScoring       ScoringConfig
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		RRFK:                   60,
		UpstreamTimeout:        1500 * time.Millisecond,
		Overfetch:              2,
		VectorFloor:            20,
		MaxTopK:                500,
		MaxPageSize:            100,
		FallbackCandidateLimit: 5000,
		RelatedLimit:           20,
		SuggestLimit:           5,
		Profile: ProfileOptions{
			WatchWindow: 100,
			LikeWindow:  50,
			FetchBatch:  100,
			TitleWindow: 20,
			TopTags:     10,
		},
		SearchScoring:    SearchScoring(),
		RecommendScoring: RecommendScoring(),
	}
}

// vectorTopK is the number of neighbours requested for the given page.
func (o Options) vectorTopK(page, pageSize int) int {
	perPage := pageSize * max(o.Overfetch, 1)
	want := math.MaxInt
	if page <= math.MaxInt/perPage {
		want = max(page*perPage, o.VectorFloor)
	}
	if o.MaxTopK > 0 {
		want = min(want, o.MaxTopK)
	}
	return want
}
