package models

import "time"

// Sync triggers
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerCLI      = "cli"
)

// SyncResult is the outcome of one full synchronization run
type SyncResult struct {
	RunID          string    `json:"runId"`
	Trigger        string    `json:"trigger"`
	Success        bool      `json:"success"`
	RequestedCount int       `json:"requestedCount"`
	SyncedCount    int       `json:"syncedCount"`
	FailedCount    int       `json:"failedCount"`
	SkippedCount   int       `json:"skippedCount"`
	Errors         []string  `json:"errors"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
}

// Duration is the wall time of the run
func (r SyncResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FirstErrors returns at most n errors
func (r SyncResult) FirstErrors(n int) []string {
	if len(r.Errors) <= n {
		return r.Errors
	}
	return r.Errors[:n]
}
