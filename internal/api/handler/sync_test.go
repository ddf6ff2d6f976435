package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kaito/photomirror/internal/domain"
	"github.com/kaito/photomirror/internal/service"
)

// stubEngine implements SyncService with canned responses.
type stubEngine struct {
	triggerID  uint
	triggerErr error
	cancelErr  error
	run        *domain.SyncRun
	runErr     error
}

func (s *stubEngine) Trigger(ctx context.Context) (uint, error) {
	return s.triggerID, s.triggerErr
}

func (s *stubEngine) RequestCancel(ctx context.Context, runID uint) error {
	return s.cancelErr
}

func (s *stubEngine) GetRun(ctx context.Context, runID uint) (*domain.SyncRun, error) {
	return s.run, s.runErr
}

func (s *stubEngine) ListRuns(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	return nil, nil
}

func (s *stubEngine) GetRunLog(ctx context.Context, runID uint, limit int) ([]domain.AuditLogEntry, error) {
	return nil, nil
}

func (s *stubEngine) ListLedger(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	return nil, nil
}

func (s *stubEngine) LedgerStats(ctx context.Context) (map[domain.LedgerStatus]int64, error) {
	return nil, nil
}

func newSyncRouter(engine SyncService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewSyncHandler(engine, nil)
	r := gin.New()
	r.POST("/api/sync/run", h.TriggerSync)
	r.POST("/api/sync/runs/:id/cancel", h.CancelRun)
	r.GET("/api/sync/runs/:id", h.GetRun)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTriggerSyncAccepted(t *testing.T) {
	r := newSyncRouter(&stubEngine{triggerID: 42})

	w := doRequest(t, r, http.MethodPost, "/api/sync/run")

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["run_id"] != float64(42) {
		t.Errorf("run_id = %v, want 42", body["run_id"])
	}
}

func TestTriggerSyncConflictWhenActive(t *testing.T) {
	r := newSyncRouter(&stubEngine{triggerErr: service.ErrRunActive})

	w := doRequest(t, r, http.MethodPost, "/api/sync/run")

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestCancelRunAccepted(t *testing.T) {
	r := newSyncRouter(&stubEngine{})

	w := doRequest(t, r, http.MethodPost, "/api/sync/runs/7/cancel")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestCancelRunNotFound(t *testing.T) {
	r := newSyncRouter(&stubEngine{cancelErr: service.ErrRunNotFound})

	w := doRequest(t, r, http.MethodPost, "/api/sync/runs/999/cancel")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCancelRunBadID(t *testing.T) {
	r := newSyncRouter(&stubEngine{})

	w := doRequest(t, r, http.MethodPost, "/api/sync/runs/abc/cancel")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetRunNotFound(t *testing.T) {
	r := newSyncRouter(&stubEngine{runErr: service.ErrRunNotFound})

	w := doRequest(t, r, http.MethodGet, "/api/sync/runs/999")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetRun(t *testing.T) {
	run := &domain.SyncRun{ID: 3, Status: domain.RunStatusOK, Uploaded: 4}
	r := newSyncRouter(&stubEngine{run: run})

	w := doRequest(t, r, http.MethodGet, "/api/sync/runs/3")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got domain.SyncRun
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.ID != 3 || got.Status != domain.RunStatusOK || got.Uploaded != 4 {
		t.Errorf("run = %+v, want id 3 / OK / uploaded 4", got)
	}
}
