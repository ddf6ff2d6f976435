package repository

import (
	"context"

	"github.com/kaito/photomirror/internal/domain"
	"gorm.io/gorm"
)

// AuditRepository handles the append-only per-run action trail.
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new AuditRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *AuditRepository: repository instance bound to db.
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one audit entry. Entries are never updated or deleted.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - entry: audit entry to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByRun returns a run's audit entries in sequence order.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - runID: run whose trail to read.
//   - limit: maximum rows to return; <= 0 means no limit.
// Returns:
//   - []domain.AuditLogEntry: ordered entries.
//   - error: non-nil if the query fails.
func (r *AuditRepository) ListByRun(ctx context.Context, runID uint, limit int) ([]domain.AuditLogEntry, error) {
	var entries []domain.AuditLogEntry
	q := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("seq ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
