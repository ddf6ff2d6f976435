package repository

import (
	"context"

	"github.com/kaito/photomirror/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository handles per-asset sync state persistence.
type LedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new LedgerRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *LedgerRepository: repository instance bound to db.
func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Get retrieves the ledger entry for a source asset.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sourceAssetID: source asset id (primary key).
// Returns:
//   - *domain.LedgerEntry: entry if found.
//   - error: gorm.ErrRecordNotFound if the asset was never processed.
func (r *LedgerRepository) Get(ctx context.Context, sourceAssetID string) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	if err := r.db.WithContext(ctx).First(&entry, "source_asset_id = ?", sourceAssetID).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Upsert creates or overwrites the ledger entry for its source asset id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entry: entry to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *LedgerRepository) Upsert(ctx context.Context, entry *domain.LedgerEntry) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_asset_id"}},
		UpdateAll: true,
	}).Create(entry).Error
}

// Delete removes the ledger entry for a source asset. Only successful
// orphan deletion goes through here.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - sourceAssetID: source asset id.
// Returns:
//   - error: non-nil if the delete fails.
func (r *LedgerRepository) Delete(ctx context.Context, sourceAssetID string) error {
	return r.db.WithContext(ctx).
		Delete(&domain.LedgerEntry{}, "source_asset_id = ?", sourceAssetID).Error
}

// ListRecent returns ledger entries ordered by last sync, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum rows to return; <= 0 means no limit.
// Returns:
//   - []domain.LedgerEntry: entries.
//   - error: non-nil if the query fails.
func (r *LedgerRepository) ListRecent(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	q := r.db.WithContext(ctx).Order("last_synced_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListLinked returns every entry holding a destination item id. These
// are the only entries the orphan phase may consider: destination items
// with no ledger linkage are invisible to the engine.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []domain.LedgerEntry: linked entries.
//   - error: non-nil if the query fails.
func (r *LedgerRepository) ListLinked(ctx context.Context) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("destination_item_id <> ''").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByStatus returns the number of entries per ledger status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - map[domain.LedgerStatus]int64: counts keyed by status.
//   - error: non-nil if the query fails.
func (r *LedgerRepository) CountByStatus(ctx context.Context) (map[domain.LedgerStatus]int64, error) {
	type row struct {
		Status domain.LedgerStatus
		N      int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&domain.LedgerEntry{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[domain.LedgerStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}
