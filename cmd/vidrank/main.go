package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidrank/internal/app"
	"github.com/kailas-cloud/vidrank/internal/config"
	logpkg "github.com/kailas-cloud/vidrank/internal/logger"
	"github.com/kailas-cloud/vidrank/internal/metrics"
	chiTransport "github.com/kailas-cloud/vidrank/internal/transport/chi"
	"github.com/kailas-cloud/vidrank/internal/usecase/indexing"
	"github.com/kailas-cloud/vidrank/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vidrank API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("hybrid_search", cfg.Ranking.Search.Hybrid),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRankingMetrics()

	ctx := context.Background()
	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build components", zap.Error(err))
	}
	defer components.Close()

	indexSvc := components.Indexing(false)
	if _, err := indexSvc.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}
	go warmLexical(ctx, components, indexSvc, logger)

	server := chiTransport.NewServer(
		components.Ranking(), indexSvc, components.Health(), cfg.Ranking.DefaultPageSize, logger,
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// warmLexical fills an empty lexical index from the published catalog.
func warmLexical(ctx context.Context, c *app.Components, svc *indexing.Service, logger *zap.Logger) {
	n, err := c.Lexical.DocCount(ctx)
	if err != nil || n > 0 {
		return
	}
	start := time.Now()
	synced, err := svc.SyncLexical(ctx)
	if err != nil {
		logger.Warn("Lexical warm-up failed", zap.Error(err))
		return
	}
	logger.Info("Lexical index warmed",
		zap.Int("documents", synced),
		zap.Duration("elapsed", time.Since(start)),
	)
}
