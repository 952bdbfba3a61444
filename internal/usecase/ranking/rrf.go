package ranking

import (
	"errors"
	"sort"

	"github.com/kailas-cloud/vidrank/internal/domain/video"
)

// DefaultRRFK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const DefaultRRFK = 60

// ErrInvalidFusionConstant is returned for a negative RRF constant.
var ErrInvalidFusionConstant = errors.New("rrf constant must be non-negative")

type fusedEntry struct {
	snapshot  *video.Snapshot
	score     float64
	firstSeen int
}

// fusionResult accumulates RRF scores per video. The first snapshot seen for a
// video is kept; later sightings only add score.
type fusionResult map[video.ID]*fusedEntry

// Fuse merges ranked lists via Reciprocal Rank Fusion: a candidate at zero-based
// rank r contributes 1/(k+r+1), contributions sum across lists. Excluded IDs are
// dropped. Output is ordered by fused score desc, ties by first appearance (list
// order, then position). Candidate.Score carries the fused score.
func Fuse(lists []video.RankedList, k int, exclude map[video.ID]struct{}) ([]video.Candidate, error) {
	if k < 0 {
		return nil, ErrInvalidFusionConstant
	}

	fused := make(fusionResult)
	seen := 0
	for _, list := range lists {
		for rank, c := range list.Candidates {
			if _, skip := exclude[c.ID]; skip {
				continue
			}
			contribution := 1.0 / float64(k+rank+1)
			if e, ok := fused[c.ID]; ok {
				e.score += contribution
				if e.snapshot == nil {
					e.snapshot = c.Snapshot
				}
				continue
			}
			fused[c.ID] = &fusedEntry{snapshot: c.Snapshot, score: contribution, firstSeen: seen}
			seen++
		}
	}

	return fused.ordered(), nil
}

func (f fusionResult) ordered() []video.Candidate {
	type row struct {
		id video.ID
		e  *fusedEntry
	}
	rows := make([]row, 0, len(f))
	for id, e := range f {
		rows = append(rows, row{id: id, e: e})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].e.score != rows[j].e.score {
			return rows[i].e.score > rows[j].e.score
		}
		return rows[i].e.firstSeen < rows[j].e.firstSeen
	})

	out := make([]video.Candidate, len(rows))
	for i, r := range rows {
		out[i] = video.Candidate{ID: r.id, Snapshot: r.e.snapshot, Score: r.e.score}
	}
	return out
}
