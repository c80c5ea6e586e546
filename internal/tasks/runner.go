package tasks

import (
	"context"
	"fmt"
	"time"

	"haito-mikke/internal/models"
	"haito-mikke/internal/nikkei"

	"go.uber.org/zap"
)

// StockStore is the part of the stock store the maintenance tasks touch
type StockStore interface {
	SeedConstituents(ctx context.Context, constituents []nikkei.Constituent) (int, error)
	CountStocks(ctx context.Context) (int, error)
	InvalidateCache(ctx context.Context) error
}

type Syncer interface {
	SyncAllStocks(ctx context.Context, trigger string) (models.SyncResult, error)
}

// RunStore reads and prunes the sync run history
type RunStore interface {
	LatestSyncRun(ctx context.Context) (*models.SyncResult, error)
	PurgeSyncRuns(ctx context.Context, before time.Time) (int64, error)
}

type TaskRunner struct {
	stocks StockStore
	syncer Syncer
	runs   RunStore
	log    *zap.Logger
	now    func() time.Time
}

func NewTaskRunner(stocks StockStore, syncer Syncer, runs RunStore, log *zap.Logger) *TaskRunner {
	return &TaskRunner{
		stocks: stocks,
		syncer: syncer,
		runs:   runs,
		log:    log,
		now:    time.Now,
	}
}

// DatabaseStatus summarizes the stored data
type DatabaseStatus struct {
	Stocks       int
	Constituents int
	ListAsOf     string
	LastRun      *models.SyncResult
}

// SeedDatabase registers every Nikkei 225 constituent
func (t *TaskRunner) SeedDatabase(ctx context.Context) (int, error) {
	constituents := nikkei.List()
	t.log.Info("seeding constituents", zap.Int("count", len(constituents)), zap.String("as_of", nikkei.AsOf()))

	seeded, err := t.stocks.SeedConstituents(ctx, constituents)
	if err != nil {
		return 0, fmt.Errorf("failed to seed stocks: %w", err)
	}
	if err := t.stocks.InvalidateCache(ctx); err != nil {
		t.log.Warn("failed to invalidate cache after seeding", zap.Error(err))
	}

	t.log.Info("seeding completed", zap.Int("seeded", seeded), zap.Int("skipped", len(constituents)-seeded))
	return seeded, nil
}

// SeedIfEmpty seeds only when the stocks table has no rows
func (t *TaskRunner) SeedIfEmpty(ctx context.Context) error {
	n, err := t.stocks.CountStocks(ctx)
	if err != nil {
		return fmt.Errorf("failed to count stocks: %w", err)
	}
	if n > 0 {
		return nil
	}
	_, err = t.SeedDatabase(ctx)
	return err
}

// RunSync performs one full synchronization from the command line
func (t *TaskRunner) RunSync(ctx context.Context) (models.SyncResult, error) {
	result, err := t.syncer.SyncAllStocks(ctx, models.TriggerCLI)
	if err != nil {
		return result, err
	}
	if !result.Success {
		return result, fmt.Errorf("sync finished with %d errors", len(result.Errors))
	}
	return result, nil
}

// Status collects stock counts and the last sync run
func (t *TaskRunner) Status(ctx context.Context) (*DatabaseStatus, error) {
	stocks, err := t.stocks.CountStocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count stocks: %w", err)
	}

	lastRun, err := t.runs.LatestSyncRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load last sync run: %w", err)
	}

	return &DatabaseStatus{
		Stocks:       stocks,
		Constituents: len(nikkei.List()),
		ListAsOf:     nikkei.AsOf(),
		LastRun:      lastRun,
	}, nil
}

func (t *TaskRunner) ClearCache(ctx context.Context) error {
	return t.stocks.InvalidateCache(ctx)
}

// PurgeSyncRuns removes sync runs older than retention
func (t *TaskRunner) PurgeSyncRuns(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %s", retention)
	}
	deleted, err := t.runs.PurgeSyncRuns(ctx, t.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to purge sync runs: %w", err)
	}
	t.log.Info("purged sync runs", zap.Int64("deleted", deleted))
	return deleted, nil
}
