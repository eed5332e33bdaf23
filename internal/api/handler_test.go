package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"fetalscan/internal/lifecycle"
	"fetalscan/internal/report"
	"fetalscan/internal/testsupport"
)

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, rec report.Record, w io.Writer) error {
	_, err := io.WriteString(w, "%PDF-stub "+rec.Data.Patient.Name)
	return err
}

var handlerNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) (*Handler, *lifecycle.Controller) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seq := 0
	ctrl := lifecycle.New(lifecycle.Options{
		Repo:     st,
		Renderer: stubRenderer{},
		User:     "Dr. Api",
		Now:      func() time.Time { return handlerNow },
		NewID: func() string {
			seq++
			return fmt.Sprintf("rec-%d", seq)
		},
	})
	if _, err := ctrl.LoadInitialState(context.Background()); err != nil {
		t.Fatalf("LoadInitialState: %v", err)
	}
	h := NewHandler(ctrl, st.Health, nil)
	h.now = func() time.Time { return handlerNow }
	return h, ctrl
}

func newContext(method, target, body string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	return c, rec
}

const completePatch = `{"patient":{"name":"Jane Doe","patientId":"P100","age":29,"sex":"female","visitDate":"2024-01-10","gestationalAge":"20w 3d","lmp":"2023-08-20"},"scanParameters":{"fhr":145}}`

func TestHandler_PatchDraft(t *testing.T) {
	h, _ := newTestHandler(t)
	c, rec := newContext(http.MethodPatch, "/api/draft", completePatch)

	if err := h.PatchDraft(c); err != nil {
		t.Fatalf("PatchDraft: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var state lifecycle.State
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.Draft.Data.Patient.Sex != report.SexFemale || !state.HasUnsavedDraft {
		t.Fatalf("state = %+v", state)
	}
}

func TestHandler_PatchDraftRejectsBadBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty", body: ""},
		{name: "unknown key", body: `{"nope":true}`},
		{name: "not json", body: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t)
			c, rec := newContext(http.MethodPatch, "/api/draft", tt.body)
			if err := h.PatchDraft(c); err != nil {
				t.Fatalf("PatchDraft: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandler_FinalizeInvalidDraftReturns422(t *testing.T) {
	h, _ := newTestHandler(t)
	c, rec := newContext(http.MethodPost, "/api/draft/finalize", "")

	if err := h.FinalizeDraft(c); err != nil {
		t.Fatalf("FinalizeDraft: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, field := range []string{report.FieldName, report.FieldPatientID, report.FieldAge, report.FieldSex} {
		if body.Errors[field] == "" {
			t.Fatalf("errors %v missing %q", body.Errors, field)
		}
	}
}

func TestHandler_DraftDocument(t *testing.T) {
	h, ctrl := newTestHandler(t)
	if _, err := ctrl.UpdateJSON(context.Background(), []byte(completePatch)); err != nil {
		t.Fatalf("UpdateJSON: %v", err)
	}
	c, rec := newContext(http.MethodGet, "/api/draft/document", "")

	if err := h.DraftDocument(c); err != nil {
		t.Fatalf("DraftDocument: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "Jane_Doe_2025-03-14.pdf") {
		t.Fatalf("content disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-stub Jane Doe") {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestHandler_PromoteRequiresConfirmation(t *testing.T) {
	h, ctrl := newTestHandler(t)
	archived, err := ctrl.SaveDraftToArchive(context.Background())
	if err != nil {
		t.Fatalf("SaveDraftToArchive: %v", err)
	}

	c, rec := newContext(http.MethodPost, "/api/archive/"+archived.ID+"/promote", "", "key", archived.ID)
	if err := h.PromoteArchived(c); err != nil {
		t.Fatalf("PromoteArchived: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	c, rec = newContext(http.MethodPost, "/api/archive/missing/promote?confirm=true", "", "key", "missing")
	if err := h.PromoteArchived(c); err != nil {
		t.Fatalf("PromoteArchived: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	c, rec = newContext(http.MethodPost, "/api/archive/"+archived.ID+"/promote?confirm=true", "", "key", archived.ID)
	if err := h.PromoteArchived(c); err != nil {
		t.Fatalf("PromoteArchived: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body RecordResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Record.Status != report.StatusReviewed || body.Record.ReviewedBy != "Dr. Api" {
		t.Fatalf("record = %+v", body.Record)
	}
}

func TestHandler_ListFiltersAndEscapedKeys(t *testing.T) {
	h, ctrl := newTestHandler(t)
	ctx := context.Background()
	if _, err := ctrl.UpdateJSON(ctx, []byte(`{"patient":{"name":"Ann Lee","patientId":"A/1"}}`)); err != nil {
		t.Fatalf("UpdateJSON: %v", err)
	}
	if _, err := ctrl.SaveDraftToArchive(ctx); err != nil {
		t.Fatalf("SaveDraftToArchive: %v", err)
	}
	if _, err := ctrl.UpdateJSON(ctx, []byte(`{"patient":{"name":"Bo Chen","patientId":"B2"}}`)); err != nil {
		t.Fatalf("UpdateJSON: %v", err)
	}
	if _, err := ctrl.SaveDraftToArchive(ctx); err != nil {
		t.Fatalf("SaveDraftToArchive: %v", err)
	}

	c, rec := newContext(http.MethodGet, "/api/archive?q=ann", "")
	if err := h.listHandler(report.StateArchivedDraft)(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	var list RecordListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 1 || list.Items[0].Data.Patient.Name != "Ann Lee" {
		t.Fatalf("list = %+v", list)
	}

	c, rec = newContext(http.MethodDelete, "/api/archive/A%2F1?confirm=true", "", "key", "A%2F1")
	if err := h.deleteHandler(report.StateArchivedDraft)(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	left, _ := ctrl.ListArchived(ctx)
	if len(left) != 1 || left[0].Data.Patient.PatientID != "B2" {
		t.Fatalf("archive = %+v", left)
	}
}

func TestHandler_EditOpensDraft(t *testing.T) {
	h, ctrl := newTestHandler(t)
	ctx := context.Background()
	if _, err := ctrl.UpdateJSON(ctx, []byte(completePatch)); err != nil {
		t.Fatalf("UpdateJSON: %v", err)
	}
	final, err := ctrl.SaveAsFinalReport(ctx)
	if err != nil {
		t.Fatalf("SaveAsFinalReport: %v", err)
	}

	c, rec := newContext(http.MethodPost, "/api/final/"+final.ID+"/edit", "", "key", final.ID)
	if err := h.editHandler(report.StateFinal)(c); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := ctrl.Draft().Data.Patient.Name; got != "Jane Doe" {
		t.Fatalf("draft name = %q", got)
	}
}

func TestHandler_PutSettingsMerges(t *testing.T) {
	h, ctrl := newTestHandler(t)
	c, rec := newContext(http.MethodPut, "/api/settings", `{"clinicalSettings":{"enableClinicalWarnings":false}}`)

	if err := h.PutSettings(c); err != nil {
		t.Fatalf("PutSettings: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	settings := ctrl.Settings()
	if settings.Clinical.EnableClinicalWarnings {
		t.Fatal("warnings should be disabled")
	}
	if settings.Clinical.SessionTimeout != 30 || settings.ClinicInfo.Name == "" {
		t.Fatalf("unrelated settings lost: %+v", settings)
	}
}

func TestHandler_ExportAndStats(t *testing.T) {
	h, ctrl := newTestHandler(t)
	ctx := context.Background()
	if _, err := ctrl.UpdateJSON(ctx, []byte(completePatch)); err != nil {
		t.Fatalf("UpdateJSON: %v", err)
	}
	if _, err := ctrl.SaveAsFinalReport(ctx); err != nil {
		t.Fatalf("SaveAsFinalReport: %v", err)
	}

	c, rec := newContext(http.MethodGet, "/api/export", "")
	if err := h.Export(c); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "fetal_reports_2025-03-14.json") {
		t.Fatalf("content disposition = %q", cd)
	}
	var exported []report.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &exported); err != nil || len(exported) != 1 {
		t.Fatalf("export = %s (%v)", rec.Body.String(), err)
	}

	c, rec = newContext(http.MethodGet, "/api/stats", "")
	if err := h.Stats(c); err != nil {
		t.Fatalf("Stats: %v", err)
	}
	var stats lifecycle.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalReports != 1 || stats.ThisMonth != 1 || stats.PendingReview != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	c, rec = newContext(http.MethodGet, "/api/backup", "")
	if err := h.Backup(c); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"exportDate"`)) {
		t.Fatalf("backup body = %s", rec.Body.String())
	}
}

func TestHandler_Health(t *testing.T) {
	h, _ := newTestHandler(t)
	c, rec := newContext(http.MethodGet, "/health", "")
	if err := h.Health(c); err != nil {
		t.Fatalf("Health: %v", err)
	}
	var body HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Store.Path == "" {
		t.Fatalf("health = %+v", body)
	}
}
