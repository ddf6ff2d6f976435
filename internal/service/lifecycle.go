package service

import (
	"context"
	"errors"
	"time"

	"github.com/kaito/photomirror/internal/domain"
	"github.com/kaito/photomirror/internal/logger"
	"github.com/kaito/photomirror/internal/repository"
	"gorm.io/gorm"
)

// RunManager owns run lifecycle transitions: atomic creation of the
// single active run and the one-way transition to a terminal state.
type RunManager struct {
	runs   *repository.RunRepository
	logger *logger.Logger
}

// NewRunManager creates a new RunManager.
func NewRunManager(runs *repository.RunRepository, log *logger.Logger) *RunManager {
	return &RunManager{runs: runs, logger: log}
}

// Begin atomically creates a run in RUNNING state. The active-run check
// and the creation are one INSERT guarded by a unique constraint, so
// concurrent triggers (a manual trigger racing the scheduler) cannot
// both succeed: the loser gets ErrRunActive and no run row.
func (m *RunManager) Begin(ctx context.Context) (*domain.SyncRun, error) {
	run := &domain.SyncRun{
		Status:    domain.RunStatusRunning,
		Active:    domain.ActiveFlag(),
		StartedAt: time.Now().UTC(),
	}
	if err := m.runs.Create(ctx, run); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrRunActive
		}
		return nil, err
	}
	return run, nil
}

// Finalize moves a RUNNING run to a terminal state, stamping the finish
// time and the trailing log excerpt. Finalizing an already-terminal run
// is a logged no-op; terminal states are never reopened.
func (m *RunManager) Finalize(ctx context.Context, run *domain.SyncRun, status domain.RunStatus, excerpt string) {
	if !status.Terminal() {
		m.logger.WithFields(logger.Fields{
			logger.FieldRunID: run.ID,
			"target":          status,
		}).Error("Refusing to finalize run to non-terminal state")
		return
	}

	ok, err := m.runs.Finalize(ctx, run, status, excerpt)
	if err != nil {
		m.logger.WithField(logger.FieldRunID, run.ID).
			WithError(err).Error("Failed to finalize run")
		return
	}
	if !ok {
		m.logger.WithFields(logger.Fields{
			logger.FieldRunID: run.ID,
			"target":          status,
		}).Warn("Run already terminal, finalize ignored")
		return
	}

	m.logger.WithFields(logger.Fields{
		logger.FieldRunID:  run.ID,
		logger.FieldStatus: status,
		"uploaded":         run.Uploaded,
		"skipped":          run.Skipped,
		"failed":           run.Failed,
		"deleted":          run.Deleted,
	}).Info("Run finalized")
}

// RecoverStale finalizes as FAILED any run left RUNNING by a previous
// process. Called once at startup; a RUNNING row at boot is a liveness
// anomaly nothing else will repair.
func (m *RunManager) RecoverStale(ctx context.Context) error {
	n, err := m.runs.FailStale(ctx, "run interrupted by service restart")
	if err != nil {
		return err
	}
	if n > 0 {
		m.logger.WithField("count", n).Warn("Reconciled stale running syncs from previous process")
	}
	return nil
}
