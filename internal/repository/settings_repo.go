package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kaito/photomirror/internal/domain"
	"gorm.io/gorm"
)

// SettingsRepository handles the single-row sync settings table.
type SettingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new SettingsRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *SettingsRepository: repository instance bound to db.
func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the settings row, creating it with defaults on first access.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *domain.SyncSettings: current settings.
//   - error: non-nil if the query fails.
func (r *SettingsRepository) Get(ctx context.Context) (*domain.SyncSettings, error) {
	var s domain.SyncSettings
	err := r.db.WithContext(ctx).First(&s, "id = ?", domain.SettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s = domain.SyncSettings{ID: domain.SettingsID, SyncIntervalMinutes: 60}
		if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
			return nil, err
		}
		return &s, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Save persists the full settings row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - s: settings to store.
// Returns:
//   - error: non-nil if the update fails.
func (r *SettingsRepository) Save(ctx context.Context, s *domain.SyncSettings) error {
	s.ID = domain.SettingsID
	return r.db.WithContext(ctx).Save(s).Error
}

// UpdateDestinationAlbum caches the resolved destination album mapping
// so subsequent runs skip recreation.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - albumID: destination container id.
//   - albumName: destination container display name.
// Returns:
//   - error: non-nil if the update fails.
func (r *SettingsRepository) UpdateDestinationAlbum(ctx context.Context, albumID, albumName string) error {
	return r.db.WithContext(ctx).Model(&domain.SyncSettings{}).
		Where("id = ?", domain.SettingsID).
		Updates(map[string]interface{}{
			"destination_album_id":   albumID,
			"destination_album_name": albumName,
			"updated_at":             time.Now().UTC(),
		}).Error
}
