package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"haito-mikke/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSyncInProgress is returned when a sync is requested while one is running
var ErrSyncInProgress = errors.New("sync already in progress")

// QuoteSource fetches normalized quotes for the whole universe
type QuoteSource interface {
	FetchAllNikkei225Quotes(ctx context.Context) ([]models.StockQuote, error)
	UniverseSize() int
}

// StockWriter persists quotes
type StockWriter interface {
	UpsertStock(ctx context.Context, q models.StockQuote) error
	InvalidateCache(ctx context.Context) error
}

// SyncRunRecorder keeps the run history
type SyncRunRecorder interface {
	RecordSyncRun(ctx context.Context, r models.SyncResult) error
}

// SyncService runs a full fetch-and-store cycle. At most one cycle runs at a time.
type SyncService struct {
	source QuoteSource
	store  StockWriter
	runs   SyncRunRecorder
	log    *zap.Logger

	running sync.Mutex

	mu        sync.RWMutex
	last      *models.SyncResult
	listeners []func(models.SyncResult)
}

// NewSyncService wires a sync service; runs may be nil to skip history
func NewSyncService(source QuoteSource, store StockWriter, runs SyncRunRecorder, log *zap.Logger) *SyncService {
	return &SyncService{
		source: source,
		store:  store,
		runs:   runs,
		log:    log,
	}
}

// OnComplete registers a callback invoked after every finished run
func (s *SyncService) OnComplete(fn func(models.SyncResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// LastResult returns the most recent result of this process, if any
func (s *SyncService) LastResult() *models.SyncResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

// SyncAllStocks fetches every constituent and upserts what came back.
// Fetch and store failures are reported in the result, not as an error.
func (s *SyncService) SyncAllStocks(ctx context.Context, trigger string) (models.SyncResult, error) {
	if !s.running.TryLock() {
		return models.SyncResult{}, ErrSyncInProgress
	}
	defer s.running.Unlock()

	result := models.SyncResult{
		RunID:          uuid.NewString(),
		Trigger:        trigger,
		RequestedCount: s.source.UniverseSize(),
		Errors:         []string{},
		StartedAt:      time.Now(),
	}
	log := s.log.With(zap.String("run_id", result.RunID), zap.String("trigger", trigger))
	log.Info("stock sync started", zap.Int("requested", result.RequestedCount))

	quotes, err := s.source.FetchAllNikkei225Quotes(ctx)
	if err != nil {
		// partial quotes of an aborted fetch are discarded
		log.Error("quote fetch aborted", zap.Error(err), zap.Int("fetched", len(quotes)))
		result.Errors = append(result.Errors, err.Error())
		quotes = nil
	}

	for _, q := range quotes {
		if err := s.store.UpsertStock(ctx, q); err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", q.Code, err))
			continue
		}
		result.SyncedCount++
	}

	result.SkippedCount = result.RequestedCount - result.SyncedCount - result.FailedCount
	if result.SkippedCount < 0 {
		result.SkippedCount = 0
	}
	result.Success = len(result.Errors) == 0
	result.FinishedAt = time.Now()

	s.finish(ctx, log, result)
	return result, nil
}

func (s *SyncService) finish(ctx context.Context, log *zap.Logger, result models.SyncResult) {
	// bookkeeping must survive a cancelled run
	ctx = context.WithoutCancel(ctx)

	if result.SyncedCount > 0 {
		if err := s.store.InvalidateCache(ctx); err != nil {
			log.Warn("cache invalidation failed", zap.Error(err))
		}
	}

	if s.runs != nil {
		if err := s.runs.RecordSyncRun(ctx, result); err != nil {
			log.Warn("failed to record sync run", zap.Error(err))
		}
	}

	log.Info("stock sync completed",
		zap.Bool("success", result.Success),
		zap.Int("synced", result.SyncedCount),
		zap.Int("failed", result.FailedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Duration("duration", result.Duration()),
	)

	s.mu.Lock()
	s.last = &result
	listeners := append([]func(models.SyncResult){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(result)
	}
}
