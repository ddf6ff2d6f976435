// Package scheduler triggers sync runs on the interval configured in
// the sync settings. It decides only when to trigger; everything else,
// single-run enforcement included, is the engine's job.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/kaito/photomirror/internal/domain"
	"github.com/kaito/photomirror/internal/logger"
	"github.com/kaito/photomirror/internal/repository"
	"github.com/kaito/photomirror/internal/service"
)

// tickInterval is how often current settings are re-evaluated. Settings
// are mutable at runtime, so the loop re-reads them on every tick
// instead of arming a fixed timer.
const tickInterval = time.Minute

// Scheduler runs the periodic trigger loop.
type Scheduler struct {
	engine   *service.Engine
	settings *repository.SettingsRepository
	logger   *logger.Logger

	lastTrigger time.Time
}

// New creates a new Scheduler.
func New(engine *service.Engine, settings *repository.SettingsRepository, log *logger.Logger) *Scheduler {
	return &Scheduler{
		engine:   engine,
		settings: settings,
		logger:   log.WithField(logger.FieldComponent, "scheduler"),
	}
}

// Run blocks until ctx is cancelled, triggering a sync whenever the
// configured interval has elapsed. An already-active run counts as
// this interval's trigger.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	s.logger.Info("Scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load sync settings")
		return
	}
	if !due(settings, s.lastTrigger, now) {
		return
	}

	runID, err := s.engine.Trigger(ctx)
	switch {
	case errors.Is(err, service.ErrRunActive):
		s.logger.Debug("Sync already running, skipping scheduled trigger")
		s.lastTrigger = now
	case err != nil:
		s.logger.WithError(err).Error("Scheduled sync trigger failed")
	default:
		s.logger.WithField(logger.FieldRunID, runID).Info("Scheduled sync triggered")
		s.lastTrigger = now
	}
}

// due reports whether a scheduled trigger should fire at now.
func due(settings *domain.SyncSettings, lastTrigger, now time.Time) bool {
	if !settings.SyncEnabled || settings.SyncIntervalMinutes <= 0 {
		return false
	}
	if lastTrigger.IsZero() {
		return true
	}
	return now.Sub(lastTrigger) >= time.Duration(settings.SyncIntervalMinutes)*time.Minute
}
