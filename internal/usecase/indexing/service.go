// Package indexing keeps the vector and lexical indexes in sync with the video store.
package indexing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vidrank/internal/domain"
	dombatch "github.com/kailas-cloud/vidrank/internal/domain/batch"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
	"github.com/kailas-cloud/vidrank/internal/logger"
	"github.com/kailas-cloud/vidrank/internal/metrics"
)

// Defaults.
const (
	DefaultConcurrency  = 4
	DefaultCatalogLimit = 100_000
	MaxBatchSize        = 1000
)

// Options tunes the indexing service.
type Options struct {
	Concurrency  int
	CatalogLimit int  // videos considered by ReindexAll
	ForceEmbed   bool // re-embed even when a stored embedding exists
}

// Service indexes videos for ranking. Lexical is optional.
type Service struct {
	videos  VideoReader
	vectors VectorWriter
	lexical LexicalWriter
	embed   Embedder
	opts    Options
	logger  *zap.Logger
}

// New creates an indexing service.
func New(
	videos VideoReader, vectors VectorWriter, lexical LexicalWriter, embed Embedder,
	opts Options, l *zap.Logger,
) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.CatalogLimit <= 0 {
		opts.CatalogLimit = DefaultCatalogLimit
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{videos: videos, vectors: vectors, lexical: lexical, embed: embed, opts: opts, logger: l}
}

// EnsureIndex creates the vector index when it is missing.
func (s *Service) EnsureIndex(ctx context.Context) (bool, error) {
	created, err := s.vectors.EnsureIndex(ctx)
	if err != nil {
		return false, fmt.Errorf("ensure index: %w", err)
	}
	if created {
		logger.FromContextOr(ctx, s.logger).Info("Vector index created")
	}
	return created, nil
}

// IndexVideo loads a video, embeds it when it has no usable embedding and
// writes it to both indexes.
func (s *Service) IndexVideo(ctx context.Context, rawID string) error {
	id, err := video.ParseID(rawID)
	if err != nil {
		return fmt.Errorf("video id: %w", err)
	}
	err = s.indexVideo(ctx, id)
	record("index", err)
	return err
}

func (s *Service) indexVideo(ctx context.Context, id video.ID) error {
	snap, err := s.videos.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}

	if !snap.HasEmbedding() || s.opts.ForceEmbed {
		if err := s.embedSnapshot(ctx, id, &snap); err != nil {
			return err
		}
	}

	err = s.vectors.Upsert(ctx, id, snap.Embedding, snap)
	if errors.Is(err, domain.ErrVectorDimMismatch) && !s.opts.ForceEmbed {
		// stored embedding comes from another model
		if err := s.embedSnapshot(ctx, id, &snap); err != nil {
			return err
		}
		err = s.vectors.Upsert(ctx, id, snap.Embedding, snap)
	}
	if err != nil {
		return fmt.Errorf("upsert vector: %w", err)
	}

	if s.lexical != nil {
		if err := s.lexical.Index(ctx, id, &snap); err != nil {
			return fmt.Errorf("index lexical: %w", err)
		}
	}
	return nil
}

func (s *Service) embedSnapshot(ctx context.Context, id video.ID, snap *video.Snapshot) error {
	if s.embed == nil {
		return fmt.Errorf("video %s has no embedding and no embedder is configured: %w",
			id, domain.ErrUpstreamUnavailable)
	}
	res, err := s.embed.Embed(ctx, snap.EmbeddingText())
	if err != nil {
		return fmt.Errorf("embed video %s: %w", id, err)
	}
	snap.Embedding = res.Embedding
	return nil
}

// RemoveVideo drops a video from both indexes. The metadata record is kept.
func (s *Service) RemoveVideo(ctx context.Context, rawID string) error {
	id, err := video.ParseID(rawID)
	if err != nil {
		return fmt.Errorf("video id: %w", err)
	}

	err = s.vectors.Delete(ctx, id)
	if err == nil && s.lexical != nil {
		err = s.lexical.Delete(ctx, id)
	}
	record("remove", err)
	if err != nil {
		return fmt.Errorf("remove video %s: %w", id, err)
	}
	return nil
}

// BulkIndex indexes ids with bounded concurrency. One failure does not abort the
// batch; results are returned in input order and repeated IDs are skipped.
func (s *Service) BulkIndex(ctx context.Context, ids []video.ID) []dombatch.Result {
	results := make([]dombatch.Result, len(ids))
	log := logger.FromContextOr(ctx, s.logger)
	seen := make(map[video.ID]struct{}, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, id := range ids {
		if _, dup := seen[id]; dup {
			results[i] = dombatch.NewSkipped(id)
			continue
		}
		seen[id] = struct{}{}
		g.Go(func() error {
			if err := video.ValidateIdentifier(string(id)); err != nil {
				results[i] = dombatch.NewError(id, err)
				return nil
			}
			err := s.indexVideo(gctx, id)
			record("index", err)
			if err != nil {
				log.Warn("Failed to index video", zap.String("video_id", string(id)), zap.Error(err))
				results[i] = dombatch.NewError(id, err)
				return nil
			}
			results[i] = dombatch.NewOK(id)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ReindexAll indexes every published video in batches of MaxBatchSize.
func (s *Service) ReindexAll(ctx context.Context) (dombatch.Summary, error) {
	cands, err := s.videos.ListPublished(ctx, s.opts.CatalogLimit)
	if err != nil {
		return dombatch.Summary{}, fmt.Errorf("list catalog: %w", err)
	}

	log := logger.FromContextOr(ctx, s.logger)
	var total dombatch.Summary
	for start := 0; start < len(cands); start += MaxBatchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		end := min(start+MaxBatchSize, len(cands))
		ids := make([]video.ID, 0, end-start)
		for _, c := range cands[start:end] {
			ids = append(ids, c.ID)
		}

		sum := dombatch.Summarize(s.BulkIndex(ctx, ids))
		total.OK += sum.OK
		total.Skipped += sum.Skipped
		total.Failed += sum.Failed
		log.Info("Reindex progress",
			zap.Int("done", end), zap.Int("total", len(cands)),
			zap.Int("ok", total.OK), zap.Int("failed", total.Failed))
	}
	return total, nil
}

// SyncLexical rebuilds the lexical documents of every published video from
// stored metadata without touching embeddings.
func (s *Service) SyncLexical(ctx context.Context) (int, error) {
	if s.lexical == nil {
		return 0, nil
	}
	cands, err := s.videos.ListPublished(ctx, s.opts.CatalogLimit)
	if err != nil {
		return 0, fmt.Errorf("list catalog: %w", err)
	}

	n := 0
	for _, c := range cands {
		if c.Snapshot == nil {
			continue
		}
		if err := s.lexical.Index(ctx, c.ID, c.Snapshot); err != nil {
			record("sync_lexical", err)
			return n, fmt.Errorf("index lexical %s: %w", c.ID, err)
		}
		n++
	}
	record("sync_lexical", nil)
	return n, nil
}

func record(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.IndexingOperationsTotal.WithLabelValues(operation, status).Inc()
}
