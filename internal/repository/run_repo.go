package repository

import (
	"context"
	"time"

	"github.com/kaito/photomirror/internal/domain"
	"gorm.io/gorm"
)

// RunRepository handles sync run persistence.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *RunRepository: repository instance bound to db.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run row. When the run carries the active marker,
// the unique index on the column makes this insert double as the
// at-most-one-RUNNING check: a concurrent second insert fails with
// gorm.ErrDuplicatedKey instead of creating a second active run. No
// separate existence query is involved.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run record to persist.
// Returns:
//   - error: gorm.ErrDuplicatedKey if another run is active; other
//     non-nil values for storage failures.
func (r *RunRepository) Create(ctx context.Context, run *domain.SyncRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// GetByID retrieves a run by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: run ID.
// Returns:
//   - *domain.SyncRun: run record if found.
//   - error: gorm.ErrRecordNotFound if missing.
func (r *RunRepository) GetByID(ctx context.Context, id uint) (*domain.SyncRun, error) {
	var run domain.SyncRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRecent returns runs ordered most recent first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum rows to return; <= 0 means no limit.
// Returns:
//   - []domain.SyncRun: run history.
//   - error: non-nil if the query fails.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	var runs []domain.SyncRun
	q := r.db.WithContext(ctx).Order("started_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// UpdateProgress persists the run's counters mid-flight. Status and the
// active marker are deliberately untouched.
func (r *RunRepository) UpdateProgress(ctx context.Context, run *domain.SyncRun) error {
	return r.db.WithContext(ctx).Model(&domain.SyncRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"total_assets": run.TotalAssets,
			"uploaded":     run.Uploaded,
			"skipped":      run.Skipped,
			"failed":       run.Failed,
			"deleted":      run.Deleted,
		}).Error
}

// Finalize transitions a RUNNING run to a terminal state, stamping the
// finish time and trailing log excerpt and releasing the active marker.
// The WHERE clause restricts the update to rows still RUNNING, so a run
// that already reached a terminal state is never reopened or rewritten.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run carrying final counter values.
//   - status: terminal status to record.
//   - excerpt: bounded trailing log excerpt.
// Returns:
//   - bool: true when the transition happened, false when the run was
//     already terminal (or unknown).
//   - error: non-nil if the update fails.
func (r *RunRepository) Finalize(ctx context.Context, run *domain.SyncRun, status domain.RunStatus, excerpt string) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&domain.SyncRun{}).
		Where("id = ? AND status = ?", run.ID, domain.RunStatusRunning).
		Updates(map[string]interface{}{
			"status":       status,
			"active":       nil,
			"finished_at":  now,
			"log_excerpt":  excerpt,
			"total_assets": run.TotalAssets,
			"uploaded":     run.Uploaded,
			"skipped":      run.Skipped,
			"failed":       run.Failed,
			"deleted":      run.Deleted,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	run.Status = status
	run.Active = nil
	run.FinishedAt = &now
	run.LogExcerpt = excerpt
	return true, nil
}

// FailStale marks every run still RUNNING as FAILED. Called once at
// startup: a RUNNING row found at boot means a previous process died
// mid-run, and nothing is going to finish it.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - note: excerpt text explaining the forced failure.
// Returns:
//   - int64: number of runs reconciled.
//   - error: non-nil if the update fails.
func (r *RunRepository) FailStale(ctx context.Context, note string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.SyncRun{}).
		Where("status = ?", domain.RunStatusRunning).
		Updates(map[string]interface{}{
			"status":      domain.RunStatusFailed,
			"active":      nil,
			"finished_at": time.Now().UTC(),
			"log_excerpt": note,
		})
	return res.RowsAffected, res.Error
}
