package domain

import "time"

// RunStatus represents the lifecycle state of a sync run.
// A run is created RUNNING and ends in exactly one of OK, FAILED, or
// CANCELLED; terminal states have no outgoing transitions.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusOK        RunStatus = "OK"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// Terminal reports whether s is a terminal run state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusOK || s == RunStatusFailed || s == RunStatusCancelled
}

// SyncRun represents one execution of the sync process, with counters
// and a bounded trailing log excerpt for quick inspection.
//
// Active is non-nil only while the run is RUNNING. The unique index on
// the column is what enforces the at-most-one-active-run invariant at
// the storage layer: NULL values never collide, so any number of
// terminal runs coexist, but a second row with active=true is rejected
// by the database in the same statement that creates it.
type SyncRun struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Status      RunStatus  `gorm:"type:text;index;default:RUNNING" json:"status"`
	Active      *bool      `gorm:"uniqueIndex:idx_sync_runs_active" json:"-"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	TotalAssets int        `gorm:"default:0" json:"total_assets"`
	Uploaded    int        `gorm:"default:0" json:"uploaded"`
	Skipped     int        `gorm:"default:0" json:"skipped"`
	Failed      int        `gorm:"default:0" json:"failed"`
	Deleted     int        `gorm:"default:0" json:"deleted"`
	LogExcerpt  string     `gorm:"type:text" json:"log_excerpt,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the database table name for SyncRun.
func (SyncRun) TableName() string {
	return "sync_runs"
}

// ActiveFlag returns the marker value stored in SyncRun.Active while a
// run is RUNNING.
func ActiveFlag() *bool {
	b := true
	return &b
}
