package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"haito-mikke/internal/cache"
	"haito-mikke/internal/config"
	"haito-mikke/internal/database"
	"haito-mikke/internal/logger"
	"haito-mikke/internal/services"
	"haito-mikke/internal/tasks"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg  *config.Config
	zlog *zap.Logger

	db         *sql.DB
	redisCache *cache.RedisCache
	runner     *tasks.TaskRunner

	retention time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "tasks",
	Short:         "haito-mikke maintenance tasks",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, _ = config.Load()
		zlog, err = logger.New(cfg.LogLevel, cfg.IsProduction())
		if err != nil {
			return err
		}
		return connect(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if redisCache != nil {
			redisCache.Close()
		}
		if db != nil {
			db.Close()
		}
		_ = zlog.Sync()
	},
}

// syncCmd runs one full quote synchronization
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch quotes for every Nikkei 225 constituent and upsert them",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := runner.RunSync(cmd.Context())
		fmt.Printf("run %s: synced=%d failed=%d skipped=%d duration=%s\n",
			result.RunID, result.SyncedCount, result.FailedCount, result.SkippedCount, result.Duration().Round(time.Millisecond))
		for _, msg := range result.FirstErrors(10) {
			fmt.Printf("  %s\n", msg)
		}
		return err
	},
}

var seedCmd = &cobra.Command{
	Use:   "db:seed",
	Short: "Register the Nikkei 225 constituents without quote data",
	RunE: func(cmd *cobra.Command, args []string) error {
		seeded, err := runner.SeedDatabase(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("seeded %d stocks\n", seeded)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "db:status",
	Short: "Show stock counts and the last sync run",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := runner.Status(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("stocks:        %d\n", status.Stocks)
		fmt.Printf("constituents:  %d (list as of %s)\n", status.Constituents, status.ListAsOf)
		if status.LastRun == nil {
			fmt.Println("last sync:     never")
			return nil
		}
		run := status.LastRun
		fmt.Printf("last sync:     %s (%s) success=%t synced=%d failed=%d skipped=%d\n",
			run.FinishedAt.In(cfg.Location()).Format("2006-01-02 15:04:05"), run.Trigger,
			run.Success, run.SyncedCount, run.FailedCount, run.SkippedCount)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "cache:clear",
	Short: "Drop every cached stock entry from Redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		if redisCache == nil {
			return fmt.Errorf("redis is not available")
		}
		if err := runner.ClearCache(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("cache cleared")
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "runs:purge",
	Short: "Delete sync run history older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("retention") {
			retention = cfg.SyncRunRetention
		}
		deleted, err := runner.PurgeSyncRuns(cmd.Context(), retention)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d sync runs\n", deleted)
		return nil
	},
}

func init() {
	purgeCmd.Flags().DurationVar(&retention, "retention", 90*24*time.Hour, "keep runs newer than this")
	rootCmd.AddCommand(syncCmd, seedCmd, statusCmd, cacheClearCmd, purgeCmd)
}

func connect(ctx context.Context) error {
	var err error
	db, err = database.Connect(ctx, zlog)
	if err != nil {
		return err
	}

	redisCache, err = cache.NewRedisCache(ctx, cfg.RedisURL)
	if err != nil {
		zlog.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisCache = nil
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

	runner = tasks.NewTaskRunner(stockService, syncService, runStore, zlog)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatalf("task failed: %v", err)
	}
}
