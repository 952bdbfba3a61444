// Package video holds the catalog entities the ranking engine works with.
package video

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kailas-cloud/vidrank/internal/domain"
)

// MaxIDLength bounds the length of a video or user identifier.
const MaxIDLength = 128

var identifierRe = regexp.MustCompile(`^[a-zA-Z0-9_:-]+$`)

// ID is an opaque video identifier.
type ID string

func (id ID) String() string { return string(id) }

// ParseID validates a raw identifier.
func ParseID(raw string) (ID, error) {
	if err := ValidateIdentifier(raw); err != nil {
		return "", err
	}
	return ID(raw), nil
}

// ValidateIdentifier checks video and user identifiers for characters that are unsafe
// inside store keys and index queries.
func ValidateIdentifier(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: identifier is required", domain.ErrInvalidInput)
	}
	if len(raw) > MaxIDLength {
		return fmt.Errorf("%w: identifier longer than %d characters", domain.ErrInvalidInput, MaxIDLength)
	}
	if !identifierRe.MatchString(raw) {
		return fmt.Errorf("%w: identifier %q contains invalid characters", domain.ErrInvalidInput, raw)
	}
	return nil
}

// Snapshot is the metadata known about a video at ranking time. Any field may be
// unknown; the zero value means "not provided".
type Snapshot struct {
	Title       string
	Description string
	Tags        []string
	OwnerID     string
	Views       int64
	Published   bool
	PublishedAt time.Time
	CreatedAt   time.Time
	Embedding   []float32
}

// Timestamp is the publish time, falling back to the creation time.
func (s *Snapshot) Timestamp() time.Time {
	if s == nil {
		return time.Time{}
	}
	if !s.PublishedAt.IsZero() {
		return s.PublishedAt
	}
	return s.CreatedAt
}

// HasEmbedding reports whether the snapshot carries a vector.
func (s *Snapshot) HasEmbedding() bool { return s != nil && len(s.Embedding) > 0 }

// EmbeddingText is the text a video is embedded from: title, description and tags.
func (s *Snapshot) EmbeddingText() string {
	parts := make([]string, 0, 3)
	if t := strings.TrimSpace(s.Title); t != "" {
		parts = append(parts, t)
	}
	if d := strings.TrimSpace(s.Description); d != "" {
		parts = append(parts, d)
	}
	if len(s.Tags) > 0 {
		parts = append(parts, strings.Join(s.Tags, " "))
	}
	return strings.Join(parts, "\n")
}

// Candidate is a video proposed by one source, optionally with metadata and a
// source-specific score.
type Candidate struct {
	ID       ID
	Snapshot *Snapshot
	Score    float64
}

// RankedList is an ordered candidate list from a single source. Rank is the index.
type RankedList struct {
	Source     string
	Candidates []Candidate
}

// IDs returns the candidate identifiers in order.
func (l RankedList) IDs() []ID {
	ids := make([]ID, len(l.Candidates))
	for i, c := range l.Candidates {
		ids[i] = c.ID
	}
	return ids
}
