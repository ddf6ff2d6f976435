package domain

import "time"

// LedgerStatus represents the sync state of a single source asset.
type LedgerStatus string

const (
	LedgerStatusPending  LedgerStatus = "PENDING"
	LedgerStatusOK       LedgerStatus = "OK"
	LedgerStatusFailed   LedgerStatus = "FAILED"
	LedgerStatusOrphaned LedgerStatus = "ORPHANED"
)

// LedgerEntry is the persisted per-asset sync record, keyed by the
// source asset id. A row is created on the first processing attempt
// (success or failure), rewritten on every later run that touches the
// same asset, and removed only when orphan deletion for that asset
// succeeds.
//
// Fingerprint is the last-seen change-detection token: the source
// checksum when available, otherwise updatedAt+filename. Comparing it
// against the current inventory is the sole basis for skip-vs-reupload
// decisions; it is a heuristic, not a cryptographic guarantee.
type LedgerEntry struct {
	SourceAssetID     string       `gorm:"type:text;primaryKey" json:"source_asset_id"`
	Fingerprint       string       `gorm:"type:text" json:"fingerprint"`
	SourceUpdatedAt   string       `gorm:"type:text" json:"source_updated_at,omitempty"`
	Filename          string       `gorm:"type:text" json:"filename"`
	FileSize          int64        `json:"file_size"`
	DestinationItemID string       `gorm:"type:text;index" json:"destination_item_id,omitempty"`
	DestinationURL    string       `gorm:"type:text" json:"destination_url,omitempty"`
	Status            LedgerStatus `gorm:"type:text;index;default:PENDING" json:"status"`
	Error             string       `gorm:"type:text" json:"error,omitempty"`
	LastSyncedAt      *time.Time   `json:"last_synced_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// TableName returns the database table name for LedgerEntry.
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
