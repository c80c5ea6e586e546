package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"haito-mikke/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	purgeSpec      = "0 30 3 * * *"
	maxSyncErrors  = 20
	defaultTimeout = 30 * time.Minute
)

// SyncRunner is the part of SyncService the scheduler drives
type SyncRunner interface {
	SyncAllStocks(ctx context.Context, trigger string) (models.SyncResult, error)
	LastResult() *models.SyncResult
}

// SyncRunPurger deletes old run history
type SyncRunPurger interface {
	PurgeSyncRuns(ctx context.Context, before time.Time) (int64, error)
}

type SchedulerConfig struct {
	SyncSpec    string
	Location    *time.Location
	Retention   time.Duration
	SyncTimeout time.Duration
}

type SchedulerService struct {
	cron   *cron.Cron
	runner SyncRunner
	purger SyncRunPurger
	cfg    SchedulerConfig
	log    *zap.Logger

	mu         sync.RWMutex
	isRunning  bool
	ctx        context.Context
	cancel     context.CancelFunc
	syncEntry  cron.EntryID
	syncErrors []string
}

// SchedulerStatus is served by /api/sync/status
type SchedulerStatus struct {
	IsRunning bool               `json:"isRunning"`
	Schedule  string             `json:"schedule"`
	Timezone  string             `json:"timezone"`
	NextSync  *time.Time         `json:"nextSync"`
	LastRun   *models.SyncResult `json:"lastRun"`
	Errors    []string           `json:"errors,omitempty"`
}

// NewSchedulerService builds a seconds-precision cron in cfg.Location. purger may be nil.
func NewSchedulerService(runner SyncRunner, purger SyncRunPurger, cfg SchedulerConfig, log *zap.Logger) *SchedulerService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = defaultTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	cronLog := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.Location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog)),
	)

	return &SchedulerService{
		cron:       c,
		runner:     runner,
		purger:     purger,
		cfg:        cfg,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		syncErrors: make([]string, 0),
	}
}

// Start registers the jobs and starts the cron
func (s *SchedulerService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	id, err := s.cron.AddFunc(s.cfg.SyncSpec, s.syncStockDataJob)
	if err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.cfg.SyncSpec, err)
	}
	s.syncEntry = id

	if s.purger != nil && s.cfg.Retention > 0 {
		if _, err := s.cron.AddFunc(purgeSpec, s.purgeSyncRunsJob); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.isRunning = true

	s.log.Info("scheduler started",
		zap.String("sync_schedule", s.cfg.SyncSpec),
		zap.String("timezone", s.cfg.Location.String()),
		zap.Time("next_sync", s.nextSync()),
	)
	return nil
}

// Stop cancels running jobs and waits for them to return
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()

	s.log.Info("scheduler stopped")
}

func (s *SchedulerService) syncStockDataJob() {
	select {
	case <-s.ctx.Done():
		return
	default:
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SyncTimeout)
	defer cancel()

	result, err := s.runner.SyncAllStocks(ctx, models.TriggerSchedule)
	if errors.Is(err, ErrSyncInProgress) {
		s.log.Info("scheduled sync skipped, another sync is running")
		return
	}
	if err != nil {
		s.addError("sync failed: " + err.Error())
		return
	}
	for _, msg := range result.FirstErrors(5) {
		s.addError(msg)
	}
}

func (s *SchedulerService) purgeSyncRunsJob() {
	cutoff := time.Now().Add(-s.cfg.Retention)

	deleted, err := s.purger.PurgeSyncRuns(s.ctx, cutoff)
	if err != nil {
		s.addError("failed to purge sync runs: " + err.Error())
		return
	}
	s.log.Info("purged old sync runs", zap.Int64("deleted", deleted), zap.Time("before", cutoff))
}

// Status reports the scheduler state and the latest run
func (s *SchedulerService) Status() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SchedulerStatus{
		IsRunning: s.isRunning,
		Schedule:  s.cfg.SyncSpec,
		Timezone:  s.cfg.Location.String(),
		LastRun:   s.runner.LastResult(),
		Errors:    append([]string(nil), s.syncErrors...),
	}

	if s.isRunning {
		next := s.nextSync()
		status.NextSync = &next
	}
	return status
}

func (s *SchedulerService) nextSync() time.Time {
	return s.cron.Entry(s.syncEntry).Schedule.Next(time.Now().In(s.cfg.Location))
}

// addError keeps the last maxSyncErrors messages
func (s *SchedulerService) addError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.syncErrors = append(s.syncErrors, time.Now().In(s.cfg.Location).Format("2006-01-02 15:04:05")+": "+msg)
	if len(s.syncErrors) > maxSyncErrors {
		s.syncErrors = s.syncErrors[len(s.syncErrors)-maxSyncErrors:]
	}

	s.log.Warn("scheduler job error", zap.String("error", msg))
}
