package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"haito-mikke/internal/models"
)

// SyncRunStore persists the history of sync runs
type SyncRunStore struct {
	db *sql.DB
}

func NewSyncRunStore(db *sql.DB) *SyncRunStore {
	return &SyncRunStore{db: db}
}

// RecordSyncRun stores one finished run
func (s *SyncRunStore) RecordSyncRun(ctx context.Context, r models.SyncResult) error {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	errorsJSON, err := json.Marshal(errs)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, trigger, success, requested_count, synced_count,
		                       failed_count, skipped_count, errors, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		r.RunID, r.Trigger, r.Success, r.RequestedCount, r.SyncedCount,
		r.FailedCount, r.SkippedCount, string(errorsJSON), r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record sync run %s: %w", r.RunID, err)
	}
	return nil
}

// LatestSyncRun returns the most recent run, or nil when none was recorded
func (s *SyncRunStore) LatestSyncRun(ctx context.Context) (*models.SyncResult, error) {
	var (
		r          models.SyncResult
		errorsJSON []byte
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, trigger, success, requested_count, synced_count,
		       failed_count, skipped_count, errors, started_at, finished_at
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT 1
	`).Scan(
		&r.RunID, &r.Trigger, &r.Success, &r.RequestedCount, &r.SyncedCount,
		&r.FailedCount, &r.SkippedCount, &errorsJSON, &r.StartedAt, &r.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest sync run: %w", err)
	}

	if err := json.Unmarshal(errorsJSON, &r.Errors); err != nil {
		return nil, fmt.Errorf("failed to decode sync run errors: %w", err)
	}
	return &r, nil
}

// PurgeSyncRuns deletes runs started before the cutoff
func (s *SyncRunStore) PurgeSyncRuns(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sync_runs WHERE started_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sync runs: %w", err)
	}
	return res.RowsAffected()
}
