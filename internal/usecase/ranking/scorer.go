package ranking

import (
	"sort"
	"strings"
	"time"

	"github.com/kailas-cloud/vidrank/internal/domain/video"
)

const day = 24 * time.Hour

// Signals are the request-scoped inputs of the heuristic scorer.
type Signals struct {
	Subscriptions map[string]struct{}
	TopTags       []string
	Terms         []string // search terms for the text bonus
}

// ScoreBreakdown itemises a heuristic score. Total is the sum of the components.
type ScoreBreakdown struct {
	Subscription float64
	TagOverlap   float64
	Popularity   float64
	Recency      float64
	TextMatch    float64
	Total        float64
}

// Scorer computes heuristic scores for candidates that have metadata.
type Scorer struct {
	Config ScoringConfig
	Now    func() time.Time
}

// NewScorer creates a scorer using the wall clock.
func NewScorer(cfg ScoringConfig) Scorer {
	return Scorer{Config: cfg, Now: time.Now}
}

func (s Scorer) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Score computes the breakdown for one snapshot.
func (s Scorer) Score(snap *video.Snapshot, sig Signals) ScoreBreakdown {
	if snap == nil {
		return ScoreBreakdown{}
	}
	cfg := s.Config

	var b ScoreBreakdown
	if snap.OwnerID != "" {
		if _, ok := sig.Subscriptions[snap.OwnerID]; ok {
			b.Subscription = cfg.SubscriptionBonus
		}
	}
	b.TagOverlap = float64(tagOverlap(snap.Tags, sig.TopTags)) * cfg.TagWeight
	if cfg.ViewScale > 0 && snap.Views > 0 {
		b.Popularity = min(float64(snap.Views)/cfg.ViewScale, cfg.PopularityCap)
	}
	b.Recency = s.recency(snap.Timestamp())
	b.TextMatch = textMatch(snap, sig.Terms, cfg)

	b.Total = b.Subscription + b.TagOverlap + b.Popularity + b.Recency + b.TextMatch
	return b
}

func (s Scorer) recency(ts time.Time) float64 {
	window := s.Config.RecencyWindowDays
	if ts.IsZero() || window <= 0 {
		return 0
	}
	ageDays := max(float64(s.now().Sub(ts))/float64(day), 0)
	return max(0, s.Config.RecencyMax-min(ageDays, window)*s.Config.RecencyMax/window)
}

func tagOverlap(tags, top []string) int {
	if len(tags) == 0 || len(top) == 0 {
		return 0
	}
	want := make(map[string]struct{}, len(top))
	for _, t := range top {
		want[t] = struct{}{}
	}
	n := 0
	for _, t := range tags {
		if _, ok := want[t]; ok {
			n++
			delete(want, t)
		}
	}
	return n
}

func textMatch(snap *video.Snapshot, terms []string, cfg ScoringConfig) float64 {
	if len(terms) == 0 || (cfg.TitleMatchBonus == 0 && cfg.DescriptionMatchBonus == 0) {
		return 0
	}
	var bonus float64
	if containsAny(snap.Title, terms) {
		bonus += cfg.TitleMatchBonus
	}
	if containsAny(snap.Description, terms) {
		bonus += cfg.DescriptionMatchBonus
	}
	return bonus
}

// containsAny reports a case-insensitive substring match of any non-empty term.
func containsAny(text string, terms []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" && strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// Rank scores candidates and orders them by total desc, then timestamp desc,
// then ID asc. Candidate.Score carries the total.
func (s Scorer) Rank(cands []video.Candidate, sig Signals) []video.Candidate {
	out := make([]video.Candidate, len(cands))
	for i, c := range cands {
		c.Score = s.Score(c.Snapshot, sig).Total
		out[i] = c
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return newerFirst(out[i], out[j])
	})
	return out
}

// newerFirst orders by timestamp desc, then ID asc.
func newerFirst(a, b video.Candidate) bool {
	ta, tb := a.Snapshot.Timestamp(), b.Snapshot.Timestamp()
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return a.ID < b.ID
}
