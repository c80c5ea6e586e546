package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"haito-mikke/internal/config"
	"haito-mikke/internal/database"
	"haito-mikke/internal/logger"

	"go.uber.org/zap"
)

func main() {
	command := flag.String("command", "up", "Migration command: up, status")
	dir := flag.String("dir", "./migrations", "Directory holding the .sql migrations")
	flag.Parse()

	cfg, _ := config.Load()
	zlog, err := logger.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx := context.Background()

	db, err := database.Connect(ctx, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, *dir, zlog)

	switch *command {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			zlog.Fatal("migration failed", zap.Error(err))
		}
		zlog.Info("migrations completed")

	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			zlog.Fatal("status check failed", zap.Error(err))
		}
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%03d  %-40s %s\n", s.Version, s.Name, state)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s (available: up, status)\n", *command)
		os.Exit(1)
	}
}
