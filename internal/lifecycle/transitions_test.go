package lifecycle_test

import (
	"context"
	"errors"
	"testing"

	"fetalscan/internal/lifecycle"
	"fetalscan/internal/report"
	"fetalscan/internal/testsupport"
)

func TestSaveDraftToArchiveAppendsEveryCall(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	first, err := h.ctrl.SaveDraftToArchive(ctx)
	if err != nil {
		t.Fatalf("SaveDraftToArchive: %v", err)
	}
	second, err := h.ctrl.SaveDraftToArchive(ctx)
	if err != nil {
		t.Fatalf("SaveDraftToArchive: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("snapshots share id %q", first.ID)
	}
	archived, err := h.ctrl.ListArchived(ctx)
	if err != nil {
		t.Fatalf("ListArchived: %v", err)
	}
	if len(archived) != 2 {
		t.Fatalf("archive length = %d, want 2", len(archived))
	}
	if archived[0].Status != report.StatusDraft || archived[0].Image != report.PlaceholderImage {
		t.Fatalf("archived record = %+v", archived[0])
	}
}

func TestPromoteToFinalMovesRecord(t *testing.T) {
	tests := []struct {
		name string
		key  func(report.Record) string
	}{
		{name: "by id", key: func(r report.Record) string { return r.ID }},
		{name: "by timestamp", key: func(r report.Record) string { return r.Timestamp }},
		{name: "by patient id", key: func(r report.Record) string { return r.Data.Patient.PatientID }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t)
			completeDraft(t, h)
			archived, err := h.ctrl.SaveDraftToArchive(ctx)
			if err != nil {
				t.Fatalf("SaveDraftToArchive: %v", err)
			}

			final, err := h.ctrl.PromoteToFinal(ctx, tt.key(archived), true)
			if err != nil {
				t.Fatalf("PromoteToFinal: %v", err)
			}
			if final.Status != report.StatusReviewed || final.ReviewedBy != "Dr. Test" || final.ReviewedAt == "" {
				t.Fatalf("final metadata = %+v", final)
			}
			if final.ID != archived.ID {
				t.Fatalf("final id = %q, want %q", final.ID, archived.ID)
			}
			left, _ := h.ctrl.ListArchived(ctx)
			if report.FindIndex(left, archived.ID) >= 0 {
				t.Fatal("promoted record still archived")
			}
			finals, _ := h.ctrl.ListFinal(ctx)
			if len(finals) != 1 || finals[0].Status != report.StatusReviewed {
				t.Fatalf("finals = %+v", finals)
			}
			if len(h.notifier.sent) != 1 || h.notifier.sent[0].By != "Dr. Test" {
				t.Fatalf("notifications = %+v", h.notifier.sent)
			}
		})
	}
}

func TestPromoteToFinalGates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	archived, err := h.ctrl.SaveDraftToArchive(ctx)
	if err != nil {
		t.Fatalf("SaveDraftToArchive: %v", err)
	}

	if _, err := h.ctrl.PromoteToFinal(ctx, archived.ID, false); !errors.Is(err, lifecycle.ErrNotConfirmed) {
		t.Fatalf("unconfirmed error = %v", err)
	}
	if _, err := h.ctrl.PromoteToFinal(ctx, "missing", true); !errors.Is(err, lifecycle.ErrNotFound) {
		t.Fatalf("missing error = %v", err)
	}
	left, _ := h.ctrl.ListArchived(ctx)
	finals, _ := h.ctrl.ListFinal(ctx)
	if len(left) != 1 || len(finals) != 0 {
		t.Fatalf("collections changed: archived=%d final=%d", len(left), len(finals))
	}
}

func TestPromoteFrozenAgainstLaterEdits(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	completeDraft(t, h)
	archived, _ := h.ctrl.SaveDraftToArchive(ctx)
	if _, err := h.ctrl.PromoteToFinal(ctx, archived.ID, true); err != nil {
		t.Fatalf("PromoteToFinal: %v", err)
	}
	if _, err := h.ctrl.Update(ctx, patches(t, "patient.name=Edited Later")...); err != nil {
		t.Fatalf("Update: %v", err)
	}
	finals, _ := h.ctrl.ListFinal(ctx)
	if finals[0].Data.Patient.Name != "Jane Doe" {
		t.Fatalf("final changed to %q", finals[0].Data.Patient.Name)
	}
}

func TestSaveAsFinalReport(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.ctrl.SaveAsFinalReport(ctx)
	var vErr *report.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("SaveAsFinalReport error = %v", err)
	}
	for _, field := range []string{report.FieldName, report.FieldPatientID, report.FieldAge} {
		if _, ok := vErr.Errors[field]; !ok {
			t.Fatalf("error map %v missing %q", vErr.Errors, field)
		}
	}
	if finals, _ := h.ctrl.ListFinal(ctx); len(finals) != 0 {
		t.Fatal("invalid draft must not be finalized")
	}

	completeDraft(t, h, "notes=Normal study")
	final, err := h.ctrl.SaveAsFinalReport(ctx)
	if err != nil {
		t.Fatalf("SaveAsFinalReport: %v", err)
	}
	if final.Status != report.StatusCompleted || final.CreatedBy != "Dr. Test" || final.CreatedAt == "" {
		t.Fatalf("final metadata = %+v", final)
	}
	if final.Data.ClinicalNotes != "Normal study" {
		t.Fatalf("notes = %q", final.Data.ClinicalNotes)
	}
	state := h.ctrl.State()
	if state.HasUnsavedDraft || state.Draft.Data.Patient.Name != "" {
		t.Fatalf("draft not reset: %+v", state)
	}
	if _, ok, _ := h.store.LoadDraft(ctx, report.ReportData{}); ok {
		t.Fatal("stored draft should be cleared")
	}
	if len(h.notifier.sent) != 1 || h.notifier.sent[0].Status != report.StatusCompleted {
		t.Fatalf("notifications = %+v", h.notifier.sent)
	}
}

func TestNotificationFailureDoesNotBlockFinalize(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.notifier.err = errors.New("offline")
	completeDraft(t, h)
	if _, err := h.ctrl.SaveAsFinalReport(ctx); err != nil {
		t.Fatalf("SaveAsFinalReport: %v", err)
	}
	if finals, _ := h.ctrl.ListFinal(ctx); len(finals) != 1 {
		t.Fatalf("final count = %d", len(finals))
	}
}

func TestNotificationRespectsSettings(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	settings := h.ctrl.Settings()
	settings.Notifications.ReportReady = false
	if _, err := h.ctrl.SaveSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	completeDraft(t, h)
	if _, err := h.ctrl.SaveAsFinalReport(ctx); err != nil {
		t.Fatalf("SaveAsFinalReport: %v", err)
	}
	if len(h.notifier.sent) != 0 {
		t.Fatalf("notifications = %+v", h.notifier.sent)
	}
}

func TestDeleteRecords(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	completeDraft(t, h)
	a, _ := h.ctrl.SaveDraftToArchive(ctx)
	b, _ := h.ctrl.SaveDraftToArchive(ctx)
	final, err := h.ctrl.SaveAsFinalReport(ctx)
	if err != nil {
		t.Fatalf("SaveAsFinalReport: %v", err)
	}

	if _, err := h.ctrl.DeleteArchived(ctx, a.ID, false); !errors.Is(err, lifecycle.ErrNotConfirmed) {
		t.Fatalf("unconfirmed delete error = %v", err)
	}
	removed, err := h.ctrl.DeleteArchived(ctx, b.Timestamp, true)
	if err != nil {
		t.Fatalf("DeleteArchived: %v", err)
	}
	// both snapshots share the fixed clock; the first timestamp match wins
	if removed.ID != a.ID {
		t.Fatalf("removed %q, want %q", removed.ID, a.ID)
	}
	if _, err := h.ctrl.DeleteFinal(ctx, final.ID, true); err != nil {
		t.Fatalf("DeleteFinal: %v", err)
	}
	if _, err := h.ctrl.DeleteFinal(ctx, final.ID, true); !errors.Is(err, lifecycle.ErrNotFound) {
		t.Fatalf("second delete error = %v", err)
	}
	left, _ := h.ctrl.ListArchived(ctx)
	if len(left) != 1 || left[0].ID != b.ID {
		t.Fatalf("archive = %+v", left)
	}
}

func TestRequestEditMissing(t *testing.T) {
	h := newHarness(t)
	if _, err := h.ctrl.RequestEdit(context.Background(), report.StateFinal, "nope"); !errors.Is(err, lifecycle.ErrNotFound) {
		t.Fatalf("RequestEdit error = %v", err)
	}
}

func TestLegacyRecordsResolveByFallbackKeys(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedRaw(t, st, "archived-drafts", `[
		{"patient":{"name":"Legacy","patientId":"L1","age":"31"},"timestamp":"2023-05-01T08:00:00.000Z"}
	]`)
	h := newHarnessWithStore(t, st)

	final, err := h.ctrl.PromoteToFinal(ctx, "L1", true)
	if err != nil {
		t.Fatalf("PromoteToFinal: %v", err)
	}
	if final.ID == "" || final.Data.Patient.Age != 31 {
		t.Fatalf("promoted legacy record = %+v", final)
	}
}

func TestOpenForEditLoadsDraft(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	completeDraft(t, h)
	final, err := h.ctrl.SaveAsFinalReport(ctx)
	if err != nil {
		t.Fatalf("SaveAsFinalReport: %v", err)
	}

	state, err := h.ctrl.OpenForEdit(ctx, report.StateFinal, final.ID)
	if err != nil {
		t.Fatalf("OpenForEdit: %v", err)
	}
	if !state.FromEditRequest || state.Draft.Data.Patient.Name != "Jane Doe" {
		t.Fatalf("state = %+v", state)
	}
	finals, _ := h.ctrl.ListFinal(ctx)
	if len(finals) != 1 || finals[0].Status != report.StatusCompleted {
		t.Fatalf("final collection changed: %+v", finals)
	}
}
