package domain

import "time"

// AuditAction is the kind of per-asset action recorded for a run.
type AuditAction string

const (
	AuditActionUploaded AuditAction = "UPLOADED"
	AuditActionSkipped  AuditAction = "SKIPPED"
	AuditActionFailed   AuditAction = "FAILED"
	AuditActionDeleted  AuditAction = "DELETED"
)

// AuditLogEntry is one row in the append-only per-run action trail.
// Rows are immutable once written; Seq is assigned by the engine and is
// monotonic within a run, so (RunID, Seq) orders the trail regardless
// of the storage backend.
type AuditLogEntry struct {
	ID                uint        `gorm:"primaryKey;autoIncrement" json:"-"`
	RunID             uint        `gorm:"not null;uniqueIndex:idx_audit_run_seq" json:"run_id"`
	Seq               int         `gorm:"not null;uniqueIndex:idx_audit_run_seq" json:"seq"`
	Action            AuditAction `gorm:"type:text;not null" json:"action"`
	SourceAssetID     string      `gorm:"type:text;index" json:"source_asset_id"`
	Filename          string      `gorm:"type:text" json:"filename"`
	DestinationItemID string      `gorm:"type:text" json:"destination_item_id,omitempty"`
	Error             string      `gorm:"type:text" json:"error,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

// TableName returns the database table name for AuditLogEntry.
func (AuditLogEntry) TableName() string {
	return "audit_log"
}
