package video

import (
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/vidrank/internal/db"
	"github.com/kailas-cloud/vidrank/internal/domain"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
)

// Hash field names of a video record.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldTags        = "tags"
	FieldOwnerID     = "owner_id"
	FieldViews       = "views"
	FieldPublished   = "published"
	FieldPublishedAt = "published_at"
	FieldCreatedAt   = "created_at"
	FieldEmbedding   = "embedding"
)

// KeyPrefix is the hash prefix of video records, also the FT index PREFIX.
const KeyPrefix = domain.KeyPrefix + "video:"

// IndexName is the FT index covering video records.
const IndexName = domain.KeyPrefix + "videos:idx"

// MetadataFields are the fields returned by listings (everything but the vector blob).
var MetadataFields = []string{
	FieldTitle, FieldDescription, FieldTags, FieldOwnerID,
	FieldViews, FieldPublished, FieldPublishedAt, FieldCreatedAt,
}

// Key returns the hash key of a video.
func Key(id video.ID) string { return KeyPrefix + string(id) }

// IDFromKey strips the record prefix.
func IDFromKey(key string) video.ID { return video.ID(strings.TrimPrefix(key, KeyPrefix)) }

// FromFields decodes a hash into a snapshot. Unparseable fields are left zero.
func FromFields(m map[string]string) video.Snapshot {
	s := video.Snapshot{
		Title:       m[FieldTitle],
		Description: m[FieldDescription],
		Tags:        SplitTags(m[FieldTags]),
		OwnerID:     m[FieldOwnerID],
		Published:   m[FieldPublished] == "true",
		PublishedAt: parseUnix(m[FieldPublishedAt]),
		CreatedAt:   parseUnix(m[FieldCreatedAt]),
	}
	if v, err := strconv.ParseInt(m[FieldViews], 10, 64); err == nil {
		s.Views = v
	}
	if raw, ok := m[FieldEmbedding]; ok && raw != "" {
		if vec, err := db.DecodeVector(raw); err == nil {
			s.Embedding = vec
		}
	}
	return s
}

// IndexFields encodes the filterable part of a snapshot (what the vector index needs
// next to the embedding).
func IndexFields(s video.Snapshot) map[string]string {
	m := map[string]string{
		FieldTags:      strings.Join(s.Tags, ","),
		FieldPublished: strconv.FormatBool(s.Published),
		FieldViews:     strconv.FormatInt(s.Views, 10),
	}
	if s.OwnerID != "" {
		m[FieldOwnerID] = s.OwnerID
	}
	if !s.PublishedAt.IsZero() {
		m[FieldPublishedAt] = strconv.FormatInt(s.PublishedAt.Unix(), 10)
	}
	return m
}

// SplitTags parses the comma-joined tag field, dropping blanks.
func SplitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func parseUnix(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
