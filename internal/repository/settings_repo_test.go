package repository

import (
	"context"
	"testing"

	"github.com/kaito/photomirror/internal/domain"
)

func TestSettingsGetCreatesDefaults(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))
	ctx := context.Background()

	s, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.ID != domain.SettingsID {
		t.Errorf("id = %d, want %d", s.ID, domain.SettingsID)
	}
	if s.SyncEnabled {
		t.Error("sync enabled by default")
	}
	if s.SyncIntervalMinutes != 60 {
		t.Errorf("interval = %d, want 60", s.SyncIntervalMinutes)
	}

	// Second read returns the same row, not a fresh one.
	again, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if again.ID != s.ID {
		t.Errorf("second get created a new row: id %d", again.ID)
	}
}

func TestSettingsSaveRoundTrip(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))
	ctx := context.Background()

	s, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	s.SourceAlbumID = "album-1"
	s.SourceAlbumName = "Trips"
	s.SyncEnabled = true
	s.SyncIntervalMinutes = 15
	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	stored, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.SourceAlbumID != "album-1" || !stored.SyncEnabled || stored.SyncIntervalMinutes != 15 {
		t.Errorf("settings not persisted: %+v", stored)
	}
}

func TestSettingsUpdateDestinationAlbum(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))
	ctx := context.Background()

	if _, err := repo.Get(ctx); err != nil {
		t.Fatalf("get: %v", err)
	}
	if err := repo.UpdateDestinationAlbum(ctx, "dest-9", "Immich - Trips"); err != nil {
		t.Fatalf("update: %v", err)
	}

	s, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if s.DestinationAlbumID != "dest-9" || s.DestinationAlbumName != "Immich - Trips" {
		t.Errorf("mapping = %q/%q, want dest-9/Immich - Trips", s.DestinationAlbumID, s.DestinationAlbumName)
	}
}
