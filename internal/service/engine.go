package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kaito/photomirror/internal/destination"
	"github.com/kaito/photomirror/internal/domain"
	"github.com/kaito/photomirror/internal/logger"
	"github.com/kaito/photomirror/internal/repository"
	"github.com/kaito/photomirror/internal/source"
	"gorm.io/gorm"
)

// Engine reconciles the source album inventory against the sync ledger
// and executes the resulting uploads, skips, and orphan deletions.
// Exactly one run executes at a time; within a run every step is
// strictly sequential.
type Engine struct {
	lifecycle *RunManager
	runs      *repository.RunRepository
	ledger    *repository.LedgerRepository
	audit     *repository.AuditRepository
	settings  *repository.SettingsRepository
	source    source.Source
	dest      destination.Destination
	cancels   *CancelRegistry
	logger    *logger.Logger
}

// NewEngine creates a new sync engine.
func NewEngine(
	lifecycle *RunManager,
	runs *repository.RunRepository,
	ledger *repository.LedgerRepository,
	audit *repository.AuditRepository,
	settings *repository.SettingsRepository,
	src source.Source,
	dest destination.Destination,
	cancels *CancelRegistry,
	log *logger.Logger,
) *Engine {
	return &Engine{
		lifecycle: lifecycle,
		runs:      runs,
		ledger:    ledger,
		audit:     audit,
		settings:  settings,
		source:    src,
		dest:      dest,
		cancels:   cancels,
		logger:    log,
	}
}

// Fingerprint computes the change-detection token for an asset: the
// source checksum when present, otherwise updatedAt and filename.
func Fingerprint(asset source.Asset) string {
	if asset.Checksum != "" {
		return asset.Checksum
	}
	return asset.UpdatedAt + "_" + asset.Filename
}

// Trigger starts a new sync run and returns its id immediately; the
// run's steps proceed on their own goroutine. Returns ErrRunActive if a
// run is already RUNNING; no run row is created in that case.
func (e *Engine) Trigger(ctx context.Context) (uint, error) {
	run, err := e.lifecycle.Begin(ctx)
	if err != nil {
		return 0, err
	}

	tok := e.cancels.Token(run.ID)

	// Detached context: the caller's request finishing must not abort
	// the run.
	go e.execute(context.Background(), run, tok)

	return run.ID, nil
}

// RequestCancel flags a run for cooperative cancellation. Unknown run
// ids get ErrRunNotFound; a run that already finished is still
// acknowledged, but no token is armed for it.
func (e *Engine) RequestCancel(ctx context.Context, runID uint) error {
	run, err := e.runs.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRunNotFound
		}
		return err
	}
	if run.Status.Terminal() {
		return nil
	}

	e.cancels.Request(runID)

	// The run may have finalized between the lookup and the arm; its
	// Clear has already fired, so the token must be dropped here.
	fresh, err := e.runs.GetByID(ctx, runID)
	if err == nil && fresh.Status.Terminal() {
		e.cancels.Clear(runID)
	}
	return nil
}

// GetRun returns one run with status, counters, timestamps, and the
// trailing log excerpt.
func (e *Engine) GetRun(ctx context.Context, runID uint) (*domain.SyncRun, error) {
	run, err := e.runs.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

// ListRuns returns run history, most recent first.
func (e *Engine) ListRuns(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	return e.runs.ListRecent(ctx, limit)
}

// GetRunLog returns a run's ordered audit entries.
func (e *Engine) GetRunLog(ctx context.Context, runID uint, limit int) ([]domain.AuditLogEntry, error) {
	if _, err := e.runs.GetByID(ctx, runID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return e.audit.ListByRun(ctx, runID, limit)
}

// ListLedger returns ledger entries, most recently synced first.
func (e *Engine) ListLedger(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	return e.ledger.ListRecent(ctx, limit)
}

// LedgerStats returns ledger entry counts per status.
func (e *Engine) LedgerStats(ctx context.Context) (map[domain.LedgerStatus]int64, error) {
	return e.ledger.CountByStatus(ctx)
}

// runState carries the mutable per-run context through the phases.
type runState struct {
	run     *domain.SyncRun
	tok     *CancelToken
	albumID string
	seq     int
	rl      *runLog
}

// execute drives one run from RUNNING to a terminal state. Every error
// path finalizes the run; the cancel token is cleared on exit.
func (e *Engine) execute(ctx context.Context, run *domain.SyncRun, tok *CancelToken) {
	defer e.cancels.Clear(run.ID)

	log := e.logger.WithField(logger.FieldRunID, run.ID)
	st := &runState{run: run, tok: tok, rl: newRunLog(log)}

	settings, err := e.settings.Get(ctx)
	if err != nil {
		st.rl.Errorf("Failed to load sync settings: %v", err)
		e.lifecycle.Finalize(ctx, run, domain.RunStatusFailed, st.rl.excerpt())
		return
	}
	if settings.SourceAlbumID == "" {
		cfgErr := &ConfigError{Stage: "no source album selected"}
		st.rl.Errorf("%v", cfgErr)
		e.lifecycle.Finalize(ctx, run, domain.RunStatusFailed, st.rl.excerpt())
		return
	}

	st.rl.Infof("Starting sync for album: %s", settings.SourceAlbumName)

	albumID, err := e.ensureDestinationAlbum(ctx, st, settings)
	if err != nil {
		// Fatal before any asset is touched
		st.rl.Errorf("%v", err)
		e.lifecycle.Finalize(ctx, run, domain.RunStatusFailed, st.rl.excerpt())
		return
	}
	st.albumID = albumID

	st.rl.Infof("Fetching source inventory...")
	assets, err := e.source.ListContainerAssets(ctx, settings.SourceAlbumID)
	if err != nil {
		st.rl.Errorf("Failed to list source assets: %v", err)
		e.lifecycle.Finalize(ctx, run, domain.RunStatusFailed, st.rl.excerpt())
		return
	}

	run.TotalAssets = len(assets)
	if err := e.runs.UpdateProgress(ctx, run); err != nil {
		log.WithError(err).Warn("Failed to persist run progress")
	}
	st.rl.Infof("Found %d assets in source album", len(assets))

	if tok.Requested() {
		st.rl.Infof("Cancellation requested before start")
		e.lifecycle.Finalize(ctx, run, domain.RunStatusCancelled, st.rl.excerpt())
		return
	}

	for i, asset := range assets {
		if tok.Requested() {
			st.rl.Infof("Cancellation requested; stopping sync")
			e.lifecycle.Finalize(ctx, run, domain.RunStatusCancelled, st.rl.excerpt())
			return
		}

		st.rl.Infof("Processing asset %d/%d: %s", i+1, len(assets), asset.Filename)
		e.syncAsset(ctx, st, asset)

		if err := e.runs.UpdateProgress(ctx, run); err != nil {
			log.WithError(err).Warn("Failed to persist run progress")
		}
	}

	// Orphan cleanup only after an uncancelled pass over the full
	// inventory; a partial pass would misread unvisited assets as gone.
	e.deleteOrphans(ctx, st, assets)

	st.rl.Infof("Sync completed: %d uploaded, %d skipped, %d failed, %d deleted",
		run.Uploaded, run.Skipped, run.Failed, run.Deleted)
	e.lifecycle.Finalize(ctx, run, domain.RunStatusOK, st.rl.excerpt())
}

// ensureDestinationAlbum resolves the cached destination album mapping
// or creates the album and caches it. Failure here is fatal to the run.
func (e *Engine) ensureDestinationAlbum(ctx context.Context, st *runState, settings *domain.SyncSettings) (string, error) {
	if settings.DestinationAlbumID != "" {
		st.rl.Infof("Using existing destination album: %s", settings.DestinationAlbumName)
		return settings.DestinationAlbumID, nil
	}

	name := fmt.Sprintf("Immich - %s", settings.SourceAlbumName)
	st.rl.Infof("Creating destination album: %s", name)

	albumID, err := e.dest.EnsureContainer(ctx, name)
	if err != nil {
		return "", &ConfigError{Stage: "resolve destination album", Err: err}
	}

	if err := e.settings.UpdateDestinationAlbum(ctx, albumID, name); err != nil {
		return "", &ConfigError{Stage: "cache destination album mapping", Err: err}
	}
	settings.DestinationAlbumID = albumID
	settings.DestinationAlbumName = name

	st.rl.Infof("Destination album ready: %s", albumID)
	return albumID, nil
}

// syncAsset reconciles one asset against the ledger: skip when the
// fingerprint is unchanged and the entry is OK, otherwise upload (or
// re-upload). Failures are absorbed into the ledger and audit trail;
// they never abort the run.
func (e *Engine) syncAsset(ctx context.Context, st *runState, asset source.Asset) {
	fp := Fingerprint(asset)

	entry, err := e.ledger.Get(ctx, asset.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		e.recordAssetFailure(ctx, st, asset, nil, fmt.Errorf("ledger lookup: %w", err))
		return
	}

	if entry != nil && entry.Fingerprint == fp && entry.Status == domain.LedgerStatusOK {
		st.rl.Infof("Skipping unchanged: %s", asset.Filename)
		e.appendAudit(ctx, st, domain.AuditActionSkipped, asset, entry.DestinationItemID, "")
		st.run.Skipped++
		return
	}

	// Re-upload on fingerprint change creates a fresh destination item
	// and overwrites the ledger row; the superseded item is left in
	// place.
	data, err := e.source.FetchAssetBytes(ctx, asset.ID)
	if err != nil {
		e.recordAssetFailure(ctx, st, asset, entry, fmt.Errorf("download: %w", err))
		return
	}
	st.rl.Infof("Downloaded %d bytes for %s", len(data), asset.Filename)

	uploadToken, err := e.dest.Upload(ctx, data, asset.Filename)
	if err != nil {
		e.recordAssetFailure(ctx, st, asset, entry, fmt.Errorf("upload: %w", err))
		return
	}

	results, err := e.dest.FinalizeItems(ctx,
		[]destination.NewItem{{UploadToken: uploadToken, Filename: asset.Filename}},
		st.albumID)
	if err != nil {
		e.recordAssetFailure(ctx, st, asset, entry, fmt.Errorf("finalize: %w", err))
		return
	}
	if len(results) == 0 || results[0].Err != nil {
		cause := errors.New("destination returned no item")
		if len(results) > 0 && results[0].Err != nil {
			cause = results[0].Err
		}
		e.recordAssetFailure(ctx, st, asset, entry, fmt.Errorf("finalize: %w", cause))
		return
	}
	item := results[0]

	now := time.Now().UTC()
	if err := e.ledger.Upsert(ctx, &domain.LedgerEntry{
		SourceAssetID:     asset.ID,
		Fingerprint:       fp,
		SourceUpdatedAt:   asset.UpdatedAt,
		Filename:          asset.Filename,
		FileSize:          asset.Size,
		DestinationItemID: item.ItemID,
		DestinationURL:    item.URL,
		Status:            domain.LedgerStatusOK,
		Error:             "",
		LastSyncedAt:      &now,
	}); err != nil {
		e.recordAssetFailure(ctx, st, asset, entry, fmt.Errorf("persist ledger: %w", err))
		return
	}

	st.rl.Infof("Uploaded %s as destination item %s", asset.Filename, item.ItemID)
	e.appendAudit(ctx, st, domain.AuditActionUploaded, asset, item.ItemID, "")
	st.run.Uploaded++
}

// recordAssetFailure commits a FAILED ledger row and audit entry for
// one asset, then lets the run continue. The previous fingerprint (if
// any) is kept so the next run retries the upload.
func (e *Engine) recordAssetFailure(ctx context.Context, st *runState, asset source.Asset, prev *domain.LedgerEntry, cause error) {
	st.rl.Errorf("Failed to sync %s: %v", asset.Filename, cause)

	failed := domain.LedgerEntry{
		SourceAssetID: asset.ID,
		Filename:      asset.Filename,
		Status:        domain.LedgerStatusFailed,
		Error:         cause.Error(),
	}
	if prev != nil {
		failed.Fingerprint = prev.Fingerprint
		failed.SourceUpdatedAt = prev.SourceUpdatedAt
		failed.FileSize = prev.FileSize
		failed.DestinationItemID = prev.DestinationItemID
		failed.DestinationURL = prev.DestinationURL
		failed.LastSyncedAt = prev.LastSyncedAt
	}
	if err := e.ledger.Upsert(ctx, &failed); err != nil {
		e.logger.WithField(logger.FieldAssetID, asset.ID).
			WithError(err).Error("Failed to record asset failure in ledger")
	}

	e.appendAudit(ctx, st, domain.AuditActionFailed, asset, "", cause.Error())
	st.run.Failed++
}

// deleteOrphans removes destination items whose ledger entry points at
// a source asset no longer present in the current inventory. Only
// ledger-linked items are candidates; destination content the engine
// did not create is never touched. Failures here are recorded per item
// and never downgrade an otherwise-successful run.
func (e *Engine) deleteOrphans(ctx context.Context, st *runState, assets []source.Asset) {
	currentSourceIDs := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		currentSourceIDs[a.ID] = struct{}{}
	}

	linked, err := e.ledger.ListLinked(ctx)
	if err != nil {
		st.rl.Errorf("Orphan scan failed, skipping cleanup: %v", err)
		return
	}

	byItemID := make(map[string]domain.LedgerEntry)
	var candidates []domain.LedgerEntry
	for _, entry := range linked {
		if _, live := currentSourceIDs[entry.SourceAssetID]; !live {
			candidates = append(candidates, entry)
			byItemID[entry.DestinationItemID] = entry
		}
	}
	if len(candidates) == 0 {
		return
	}
	st.rl.Infof("Found %d orphaned ledger entries", len(candidates))

	remote, err := e.dest.ListContainerItems(ctx, st.albumID)
	if err != nil {
		st.rl.Errorf("Failed to list destination items, skipping cleanup: %v", err)
		return
	}
	remoteSet := make(map[string]struct{}, len(remote))
	for _, id := range remote {
		remoteSet[id] = struct{}{}
	}

	var toDelete []string
	for _, entry := range candidates {
		if _, present := remoteSet[entry.DestinationItemID]; present {
			toDelete = append(toDelete, entry.DestinationItemID)
			continue
		}
		// Item vanished on the destination side; the desired end state
		// is already reached, so just drop the row.
		st.rl.Infof("Destination item already gone for %s", entry.Filename)
		e.removeOrphanRow(ctx, st, entry)
	}
	if len(toDelete) == 0 {
		return
	}

	res, err := e.dest.DeleteItems(ctx, toDelete, st.albumID)
	if err != nil {
		st.rl.Errorf("Orphan deletion failed: %v", err)
		for _, itemID := range toDelete {
			e.markOrphaned(ctx, st, byItemID[itemID], err.Error())
		}
		return
	}

	for _, itemID := range res.Deleted {
		e.removeOrphanRow(ctx, st, byItemID[itemID])
	}
	for itemID, msg := range res.Failed {
		e.markOrphaned(ctx, st, byItemID[itemID], msg)
	}
}

// removeOrphanRow deletes the ledger row for a successfully removed
// orphan and records AUDIT(DELETED).
func (e *Engine) removeOrphanRow(ctx context.Context, st *runState, entry domain.LedgerEntry) {
	if err := e.ledger.Delete(ctx, entry.SourceAssetID); err != nil {
		st.rl.Errorf("Failed to remove ledger row for %s: %v", entry.Filename, err)
		return
	}
	st.rl.Infof("Deleted orphan: %s", entry.Filename)
	e.appendAudit(ctx, st, domain.AuditActionDeleted,
		source.Asset{ID: entry.SourceAssetID, Filename: entry.Filename},
		entry.DestinationItemID, "")
	st.run.Deleted++
}

// markOrphaned keeps a failed deletion visible to operators: the ledger
// row survives with status ORPHANED and the destination's error.
func (e *Engine) markOrphaned(ctx context.Context, st *runState, entry domain.LedgerEntry, msg string) {
	st.rl.Errorf("Failed to delete orphan %s: %s", entry.Filename, msg)
	entry.Status = domain.LedgerStatusOrphaned
	entry.Error = msg
	if err := e.ledger.Upsert(ctx, &entry); err != nil {
		e.logger.WithField(logger.FieldAssetID, entry.SourceAssetID).
			WithError(err).Error("Failed to mark ledger entry orphaned")
	}
}

// appendAudit writes one immutable audit entry with the run's next
// sequence number.
func (e *Engine) appendAudit(ctx context.Context, st *runState, action domain.AuditAction, asset source.Asset, destItemID, errText string) {
	st.seq++
	if err := e.audit.Append(ctx, &domain.AuditLogEntry{
		RunID:             st.run.ID,
		Seq:               st.seq,
		Action:            action,
		SourceAssetID:     asset.ID,
		Filename:          asset.Filename,
		DestinationItemID: destItemID,
		Error:             errText,
	}); err != nil {
		e.logger.WithFields(logger.Fields{
			logger.FieldRunID:   st.run.ID,
			logger.FieldAssetID: asset.ID,
		}).WithError(err).Error("Failed to append audit entry")
	}
}
