package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"haito-mikke/internal/cache"
	"haito-mikke/internal/config"
	"haito-mikke/internal/database"
	"haito-mikke/internal/logger"
	"haito-mikke/internal/services"

	"go.uber.org/zap"
)

// Runs the sync cron without the HTTP server, for deployments that keep
// the API and the batch work in separate processes.
func main() {
	cfg, _ := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitializeDatabase(ctx, zlog, "./migrations")
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL)
	if err != nil {
		zlog.Warn("redis unavailable, cache will not be invalidated", zap.Error(err))
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	stockService := services.NewStockService(db, redisCache, cfg.CacheTTL, zlog.Named("store"))
	runStore := services.NewSyncRunStore(db)
	fetcher := services.NewQuoteFetcher(
		services.NewYahooProvider(cfg.QuoteRateLimit, cfg.QuoteTimeout),
		cfg.SyncBatchSize,
		cfg.SyncBatchDelay,
		zlog.Named("fetcher"),
	)
	syncService := services.NewSyncService(fetcher, stockService, runStore, zlog.Named("sync"))

	scheduler := services.NewSchedulerService(syncService, runStore, services.SchedulerConfig{
		SyncSpec:  cfg.SyncCron,
		Location:  cfg.Location(),
		Retention: cfg.SyncRunRetention,
	}, zlog.Named("scheduler"))

	if err := scheduler.Start(); err != nil {
		zlog.Fatal("failed to start scheduler", zap.Error(err))
	}

	<-ctx.Done()
	zlog.Info("stopping scheduler, waiting for running jobs")
	scheduler.Stop()
}
