package service

import (
	"context"
	"errors"
	"testing"

	"github.com/kaito/photomirror/internal/domain"
	"github.com/kaito/photomirror/internal/repository"
)

func newTestManager(t *testing.T) (*RunManager, *repository.RunRepository) {
	t.Helper()
	runs := repository.NewRunRepository(newTestDB(t))
	return NewRunManager(runs, testLogger()), runs
}

func TestBeginRejectsSecondActiveRun(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first, err := m.Begin(ctx)
	if err != nil {
		t.Fatalf("first Begin: %v", err)
	}

	if _, err := m.Begin(ctx); !errors.Is(err, ErrRunActive) {
		t.Fatalf("second Begin = %v, want ErrRunActive", err)
	}

	// After the active run finishes, a new one may start.
	m.Finalize(ctx, first, domain.RunStatusOK, "")
	if _, err := m.Begin(ctx); err != nil {
		t.Fatalf("Begin after finalize: %v", err)
	}
}

func TestFinalizeIsSticky(t *testing.T) {
	m, runs := newTestManager(t)
	ctx := context.Background()

	run, err := m.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	m.Finalize(ctx, run, domain.RunStatusCancelled, "first")
	// A late competing finalize must not rewrite the terminal state.
	m.Finalize(ctx, run, domain.RunStatusOK, "second")

	stored, err := runs.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("reload run: %v", err)
	}
	if stored.Status != domain.RunStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", stored.Status)
	}
	if stored.LogExcerpt != "first" {
		t.Errorf("excerpt = %q, want the first finalize's excerpt", stored.LogExcerpt)
	}
	if stored.Active != nil {
		t.Error("active marker not released")
	}
}

func TestFinalizeRefusesNonTerminalTarget(t *testing.T) {
	m, runs := newTestManager(t)
	ctx := context.Background()

	run, err := m.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	m.Finalize(ctx, run, domain.RunStatusRunning, "")

	stored, err := runs.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("reload run: %v", err)
	}
	if stored.Status != domain.RunStatusRunning || stored.FinishedAt != nil {
		t.Errorf("run mutated by refused finalize: status=%s finished=%v", stored.Status, stored.FinishedAt)
	}
}

func TestRecoverStale(t *testing.T) {
	m, runs := newTestManager(t)
	ctx := context.Background()

	// Simulates a run left behind by a crashed process.
	stale, err := m.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if err := m.RecoverStale(ctx); err != nil {
		t.Fatalf("RecoverStale: %v", err)
	}

	stored, err := runs.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("reload run: %v", err)
	}
	if stored.Status != domain.RunStatusFailed {
		t.Errorf("stale run status = %s, want FAILED", stored.Status)
	}
	if stored.Active != nil {
		t.Error("active marker not released, new runs would be blocked")
	}
	if stored.FinishedAt == nil {
		t.Error("FinishedAt not stamped")
	}

	// Recovery released the slot.
	if _, err := m.Begin(ctx); err != nil {
		t.Errorf("Begin after recovery: %v", err)
	}
}

func TestRunStatusTerminal(t *testing.T) {
	testCases := []struct {
		status domain.RunStatus
		want   bool
	}{
		{domain.RunStatusRunning, false},
		{domain.RunStatusOK, true},
		{domain.RunStatusFailed, true},
		{domain.RunStatusCancelled, true},
	}
	for _, tc := range testCases {
		if got := tc.status.Terminal(); got != tc.want {
			t.Errorf("Terminal(%s) = %v, want %v", tc.status, got, tc.want)
		}
	}
}
