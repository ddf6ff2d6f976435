package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kaito/photomirror/internal/domain"
	"gorm.io/gorm"
)

func TestLedgerUpsertOverwrites(t *testing.T) {
	repo := NewLedgerRepository(newTestDB(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, &domain.LedgerEntry{
		SourceAssetID: "a1",
		Fingerprint:   "sha-old",
		Filename:      "a.jpg",
		Status:        domain.LedgerStatusFailed,
		Error:         "timeout",
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	now := time.Now().UTC()
	if err := repo.Upsert(ctx, &domain.LedgerEntry{
		SourceAssetID:     "a1",
		Fingerprint:       "sha-new",
		Filename:          "a.jpg",
		DestinationItemID: "item-1",
		Status:            domain.LedgerStatusOK,
		LastSyncedAt:      &now,
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	entry, err := repo.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry.Fingerprint != "sha-new" || entry.Status != domain.LedgerStatusOK {
		t.Errorf("entry = %s/%s, want sha-new/OK", entry.Fingerprint, entry.Status)
	}
	if entry.Error != "" {
		t.Errorf("stale error text survived overwrite: %q", entry.Error)
	}
}

func TestLedgerGetUnknownAsset(t *testing.T) {
	repo := NewLedgerRepository(newTestDB(t))

	_, err := repo.Get(context.Background(), "nope")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("Get(unknown) = %v, want gorm.ErrRecordNotFound", err)
	}
}

func TestLedgerDelete(t *testing.T) {
	repo := NewLedgerRepository(newTestDB(t))
	ctx := context.Background()

	if err := repo.Upsert(ctx, &domain.LedgerEntry{SourceAssetID: "a1", Filename: "a.jpg"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Delete(ctx, "a1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "a1"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("entry survived delete: err = %v", err)
	}
}

func TestLedgerListLinked(t *testing.T) {
	repo := NewLedgerRepository(newTestDB(t))
	ctx := context.Background()

	entries := []domain.LedgerEntry{
		{SourceAssetID: "a1", DestinationItemID: "item-1", Status: domain.LedgerStatusOK},
		{SourceAssetID: "b1", DestinationItemID: "", Status: domain.LedgerStatusFailed},
		{SourceAssetID: "c1", DestinationItemID: "item-3", Status: domain.LedgerStatusOK},
	}
	for i := range entries {
		if err := repo.Upsert(ctx, &entries[i]); err != nil {
			t.Fatalf("upsert %s: %v", entries[i].SourceAssetID, err)
		}
	}

	linked, err := repo.ListLinked(ctx)
	if err != nil {
		t.Fatalf("list linked: %v", err)
	}
	if len(linked) != 2 {
		t.Fatalf("linked count = %d, want 2", len(linked))
	}
	for _, e := range linked {
		if e.DestinationItemID == "" {
			t.Errorf("unlinked entry %s returned", e.SourceAssetID)
		}
	}
}

func TestLedgerCountByStatus(t *testing.T) {
	repo := NewLedgerRepository(newTestDB(t))
	ctx := context.Background()

	seed := []domain.LedgerEntry{
		{SourceAssetID: "a1", Status: domain.LedgerStatusOK},
		{SourceAssetID: "b1", Status: domain.LedgerStatusOK},
		{SourceAssetID: "c1", Status: domain.LedgerStatusFailed},
		{SourceAssetID: "d1", Status: domain.LedgerStatusOrphaned},
	}
	for i := range seed {
		if err := repo.Upsert(ctx, &seed[i]); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[domain.LedgerStatusOK] != 2 {
		t.Errorf("OK = %d, want 2", counts[domain.LedgerStatusOK])
	}
	if counts[domain.LedgerStatusFailed] != 1 {
		t.Errorf("FAILED = %d, want 1", counts[domain.LedgerStatusFailed])
	}
	if counts[domain.LedgerStatusOrphaned] != 1 {
		t.Errorf("ORPHANED = %d, want 1", counts[domain.LedgerStatusOrphaned])
	}
}
