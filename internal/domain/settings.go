package domain

import "time"

// SettingsID is the primary key of the single sync_settings row.
const SettingsID = 1

// SyncSettings is runtime-mutable sync configuration: which source
// album is mirrored, the cached destination album mapping, and the
// schedule. Credentials live in the static service config, not here.
//
// The destination album fields start empty and are filled in the first
// time a run resolves or creates the destination container, so later
// runs skip recreation.
type SyncSettings struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	SourceAlbumID        string    `gorm:"type:text" json:"source_album_id"`
	SourceAlbumName      string    `gorm:"type:text" json:"source_album_name"`
	DestinationAlbumID   string    `gorm:"type:text" json:"destination_album_id"`
	DestinationAlbumName string    `gorm:"type:text" json:"destination_album_name"`
	SyncEnabled          bool      `gorm:"default:false" json:"sync_enabled"`
	SyncIntervalMinutes  int       `gorm:"default:60" json:"sync_interval_minutes"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TableName returns the database table name for SyncSettings.
func (SyncSettings) TableName() string {
	return "sync_settings"
}
