// Command reindex rebuilds the vector and lexical indexes from the published catalog.
//
// Usage:
//
//	reindex [-force-embed] [-lexical-only] [-ids v1,v2]
//
// Configuration is read the same way as the API server (ENV selects config/<env>.yaml).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidrank/internal/app"
	"github.com/kailas-cloud/vidrank/internal/config"
	dombatch "github.com/kailas-cloud/vidrank/internal/domain/batch"
	"github.com/kailas-cloud/vidrank/internal/domain/video"
	logpkg "github.com/kailas-cloud/vidrank/internal/logger"
	"github.com/kailas-cloud/vidrank/internal/metrics"
)

type options struct {
	forceEmbed  bool
	lexicalOnly bool
	ids         string
}

func parseFlags() options {
	opts := options{}
	flag.BoolVar(&opts.forceEmbed, "force-embed", false, "re-embed videos that already carry an embedding")
	flag.BoolVar(&opts.lexicalOnly, "lexical-only", false, "only rebuild the lexical index")
	flag.StringVar(&opts.ids, "ids", "", "comma-separated video IDs to index instead of the whole catalog")
	flag.Parse()
	return opts
}

func main() {
	opts := parseFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, "reindex:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRankingMetrics()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	svc := components.Indexing(opts.forceEmbed)
	start := time.Now()

	if opts.lexicalOnly {
		n, err := svc.SyncLexical(ctx)
		if err != nil {
			return err
		}
		logger.Info("Lexical index rebuilt", zap.Int("documents", n), zap.Duration("elapsed", time.Since(start)))
		return nil
	}

	if _, err := svc.EnsureIndex(ctx); err != nil {
		return err
	}

	var summary dombatch.Summary
	if ids := splitIDs(opts.ids); len(ids) > 0 {
		results := svc.BulkIndex(ctx, ids)
		summary = dombatch.Summarize(results)
		for _, f := range dombatch.Failures(results) {
			logger.Warn("Video not indexed", zap.String("video_id", f.ID().String()), zap.Error(f.Err()))
		}
	} else {
		summary, err = svc.ReindexAll(ctx)
		if err != nil {
			return err
		}
	}

	logger.Info("Reindex finished",
		zap.Int("ok", summary.OK),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	if summary.Failed > 0 {
		return fmt.Errorf("%d videos failed to index", summary.Failed)
	}
	return nil
}

func splitIDs(raw string) []video.ID {
	var ids []video.ID
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, video.ID(p))
		}
	}
	return ids
}
