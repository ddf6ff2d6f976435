package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kaito/photomirror/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	// A private in-memory database exists per connection; one connection
	// keeps every query on the same database.
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func activeRun() *domain.SyncRun {
	return &domain.SyncRun{
		Status:    domain.RunStatusRunning,
		Active:    domain.ActiveFlag(),
		StartedAt: time.Now().UTC(),
	}
}

func TestCreateEnforcesSingleActiveRun(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, activeRun()); err != nil {
		t.Fatalf("first create: %v", err)
	}

	err := repo.Create(ctx, activeRun())
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("second active create = %v, want gorm.ErrDuplicatedKey", err)
	}
}

func TestTerminalRunsDoNotBlockNewRuns(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))
	ctx := context.Background()

	// Any number of finished runs coexist; only the active marker is unique.
	for i := 0; i < 3; i++ {
		run := activeRun()
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if _, err := repo.Finalize(ctx, run, domain.RunStatusOK, ""); err != nil {
			t.Fatalf("finalize %d: %v", i, err)
		}
	}

	runs, err := repo.ListRecent(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("run count = %d, want 3", len(runs))
	}
}

func TestFinalizeTransitionsOnce(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))
	ctx := context.Background()

	run := activeRun()
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("create: %v", err)
	}
	run.Uploaded = 5
	run.TotalAssets = 7

	ok, err := repo.Finalize(ctx, run, domain.RunStatusOK, "done")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !ok {
		t.Fatal("finalize reported no transition for a RUNNING run")
	}

	// Second attempt hits a terminal row and must be a no-op.
	ok, err = repo.Finalize(ctx, run, domain.RunStatusFailed, "late")
	if err != nil {
		t.Fatalf("second finalize: %v", err)
	}
	if ok {
		t.Error("finalize reopened a terminal run")
	}

	stored, err := repo.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != domain.RunStatusOK {
		t.Errorf("status = %s, want OK", stored.Status)
	}
	if stored.Uploaded != 5 || stored.TotalAssets != 7 {
		t.Errorf("counters not persisted: %+v", stored)
	}
	if stored.LogExcerpt != "done" {
		t.Errorf("excerpt = %q, want %q", stored.LogExcerpt, "done")
	}
	if stored.Active != nil {
		t.Error("active marker not released")
	}
}

func TestUpdateProgressLeavesStatusAlone(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))
	ctx := context.Background()

	run := activeRun()
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("create: %v", err)
	}
	run.TotalAssets = 10
	run.Uploaded = 3
	run.Skipped = 2

	if err := repo.UpdateProgress(ctx, run); err != nil {
		t.Fatalf("update progress: %v", err)
	}

	stored, err := repo.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.TotalAssets != 10 || stored.Uploaded != 3 || stored.Skipped != 2 {
		t.Errorf("counters = %+v, want 10/3/2", stored)
	}
	if stored.Status != domain.RunStatusRunning || stored.Active == nil {
		t.Error("progress update touched status or active marker")
	}
}

func TestFailStale(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))
	ctx := context.Background()

	finished := activeRun()
	if err := repo.Create(ctx, finished); err != nil {
		t.Fatalf("create finished: %v", err)
	}
	if _, err := repo.Finalize(ctx, finished, domain.RunStatusOK, "fine"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	stale := activeRun()
	if err := repo.Create(ctx, stale); err != nil {
		t.Fatalf("create stale: %v", err)
	}

	n, err := repo.FailStale(ctx, "interrupted")
	if err != nil {
		t.Fatalf("fail stale: %v", err)
	}
	if n != 1 {
		t.Errorf("reconciled %d runs, want 1", n)
	}

	reloaded, err := repo.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("reload stale: %v", err)
	}
	if reloaded.Status != domain.RunStatusFailed || reloaded.LogExcerpt != "interrupted" {
		t.Errorf("stale run = %s/%q, want FAILED/interrupted", reloaded.Status, reloaded.LogExcerpt)
	}

	// The finished run keeps its state.
	untouched, err := repo.GetByID(ctx, finished.ID)
	if err != nil {
		t.Fatalf("reload finished: %v", err)
	}
	if untouched.Status != domain.RunStatusOK || untouched.LogExcerpt != "fine" {
		t.Errorf("finished run rewritten: %s/%q", untouched.Status, untouched.LogExcerpt)
	}
}

func TestListRecentOrdersAndLimits(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	var ids []uint
	for i := 0; i < 3; i++ {
		run := &domain.SyncRun{
			Status:    domain.RunStatusOK,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len = %d, want 2", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("order = [%d %d], want [%d %d]", runs[0].ID, runs[1].ID, ids[2], ids[1])
	}
}
