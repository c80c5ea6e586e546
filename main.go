package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"haito-mikke/internal/cache"
	"haito-mikke/internal/config"
	"haito-mikke/internal/database"
	"haito-mikke/internal/handlers"
	"haito-mikke/internal/logger"
	"haito-mikke/internal/services"
	"haito-mikke/internal/tasks"
	"haito-mikke/internal/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, envLoaded := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zlog.Sync() }()
	if !envLoaded {
		zlog.Debug("no .env file found")
	}

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	} else if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitializeDatabase(ctx, zlog, "./migrations")
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL)
	if err != nil {
		zlog.Warn("redis unavailable, continuing without cache", zap.Error(err))
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

	if err := tasks.NewTaskRunner(stockService, syncService, runStore, zlog).SeedIfEmpty(ctx); err != nil {
		zlog.Warn("failed to seed constituents", zap.Error(err))
	}

	wsHandler := handlers.NewWebSocketHandler(syncService, cfg.AllowedOrigins, handlers.DefaultMaxConnections, zlog.Named("ws"))
	syncService.OnComplete(wsHandler.BroadcastSyncResult)

	var scheduler *services.SchedulerService
	if cfg.SyncEnabled {
		scheduler = services.NewSchedulerService(syncService, runStore, services.SchedulerConfig{
			SyncSpec:  cfg.SyncCron,
			Location:  cfg.Location(),
			Retention: cfg.SyncRunRetention,
		}, zlog.Named("scheduler"))
		if err := scheduler.Start(); err != nil {
			zlog.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer scheduler.Stop()
	}

	templates, err := web.Templates()
	if err != nil {
		zlog.Fatal("failed to parse templates", zap.Error(err))
	}

	var cachePinger handlers.CachePinger
	if redisCache != nil {
		cachePinger = redisCache
	}
	var schedulerStatus handlers.SchedulerStatusProvider
	if scheduler != nil {
		schedulerStatus = scheduler
	}

	router := handlers.NewRouter(handlers.Routes{
		Stocks: handlers.NewStockHandler(stockService),
		Sync: handlers.NewSyncHandler(syncService, schedulerStatus, runStore, handlers.SyncHandlerConfig{
			CronSecret: cfg.CronSecret,
			Production: cfg.IsProduction(),
		}, zlog.Named("sync")),
		System:    handlers.NewSystemHandler(db, cachePinger, wsHandler),
		WebSocket: wsHandler,
		Pages:     handlers.NewPageHandler(stockService, zlog.Named("pages")),
		Templates: templates,
	}, cfg.AllowedOrigins, zlog.Named("http"))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("starting server", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
