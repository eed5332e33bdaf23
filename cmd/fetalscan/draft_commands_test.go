package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fetalscan/internal/lifecycle"
	"fetalscan/internal/report"
)

func TestDraftSetAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "draft", "set", "patient.name=Jane Doe", "scan.fhr=185", "ai.structures.Nasal Bone=91.5")
	requireContains(t, out, "Updated 3 field(s)")
	requireContains(t, out, "Clinical warnings:")

	out = env.mustRun(t, "draft", "show")
	requireContains(t, out, "Jane Doe")
	requireContains(t, out, "ai.structures.Nasal Bone")
	requireContains(t, out, "91.5%")
	requireContains(t, out, "Unsaved draft: yes")

	var state lifecycle.State
	env.mustRunJSON(t, &state, "draft", "show")
	if state.Draft.Data.ScanParameters.FHR != 185 {
		t.Fatalf("fhr = %d, want 185", state.Draft.Data.ScanParameters.FHR)
	}
	if len(state.Warnings) == 0 {
		t.Fatal("expected a fetal heart rate warning")
	}
}

func TestDraftSetRejectsWholeBatchOnBadField(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t, "draft", "set", "patient.name=Kept Out", "scan.fhr=fast")
	var patchErr *report.PatchError
	if !errors.As(err, &patchErr) {
		t.Fatalf("expected PatchError, got %v", err)
	}

	var state lifecycle.State
	env.mustRunJSON(t, &state, "draft", "show")
	if state.Draft.Data.Patient.Name != "" {
		t.Fatalf("partial batch applied: name = %q", state.Draft.Data.Patient.Name)
	}
}

func TestDraftSetImageFromFile(t *testing.T) {
	env := setupCLITestEnv(t)

	path := filepath.Join(t.TempDir(), "scan.gif")
	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
	if err := os.WriteFile(path, gif, 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	env.mustRun(t, "draft", "set", "--image", path)

	var state lifecycle.State
	env.mustRunJSON(t, &state, "draft", "show")
	if !strings.HasPrefix(state.Draft.Image, "data:image/gif;base64,") {
		t.Fatalf("image = %q", state.Draft.Image)
	}

	textPath := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(textPath, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if _, _, err := env.run(t, "draft", "set", "--image", textPath); err == nil {
		t.Fatal("expected unsupported image error")
	}
}

func TestDraftSetHelpListsImageFormats(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "draft", "set", "--help")
	requireContains(t, out, "PNG, JPEG or GIF")
}

func TestDraftValidateReportsFieldErrors(t *testing.T) {
	env := setupCLITestEnv(t)

	_, stderr, err := env.run(t, "draft", "validate")
	var validationErr *report.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if exitCode(err) != 2 {
		t.Fatalf("exit code = %d, want 2", exitCode(err))
	}
	requireContains(t, stderr, "Please fix the following errors:")
	requireContains(t, stderr, report.FieldName)

	env.fillDraft(t)
	out := env.mustRun(t, "draft", "validate")
	requireContains(t, out, "Draft is valid")
}

func TestDraftClearRequiresConfirmation(t *testing.T) {
	env := setupCLITestEnv(t)
	env.mustRun(t, "draft", "set", "patient.name=Jane Doe")

	_, _, err := env.run(t, "draft", "clear")
	if !errors.Is(err, lifecycle.ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if exitCode(err) != 4 {
		t.Fatalf("exit code = %d, want 4", exitCode(err))
	}

	env.mustRun(t, "draft", "clear", "--yes")
	var state lifecycle.State
	env.mustRunJSON(t, &state, "draft", "show")
	if state.Draft.Data.Patient.Name != "" || state.HasUnsavedDraft {
		t.Fatalf("draft not cleared: %+v", state)
	}
}

func TestDraftFinalizeMovesToFinal(t *testing.T) {
	env := setupCLITestEnv(t)
	env.fillDraft(t)

	var finalized report.Record
	env.mustRunJSON(t, &finalized, "draft", "finalize")
	if finalized.Status != report.StatusCompleted || finalized.CreatedBy != "Dr. Rivera" {
		t.Fatalf("finalized record = %+v", finalized)
	}

	var finals []report.Record
	env.mustRunJSON(t, &finals, "final", "list")
	if len(finals) != 1 || finals[0].ID != finalized.ID {
		t.Fatalf("final list = %+v", finals)
	}

	var state lifecycle.State
	env.mustRunJSON(t, &state, "draft", "show")
	if state.HasUnsavedDraft || state.Draft.Data.Patient.Name != "" {
		t.Fatalf("draft not reset after finalize: %+v", state.Draft.Data.Patient)
	}
}

func TestDraftDocumentWritesPDF(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := env.run(t, "draft", "document"); err == nil {
		t.Fatal("expected validation failure for an empty draft")
	}

	env.fillDraft(t)
	dir := t.TempDir()
	_, stderr, err := env.run(t, "draft", "document", "-o", dir)
	if err != nil {
		t.Fatalf("draft document: %v", err)
	}
	path := filepath.Join(dir, "Jane_Doe_"+time.Now().Format(report.DateLayout)+".pdf")
	requireContains(t, stderr, path)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !strings.HasPrefix(string(data), "%PDF-") {
		t.Fatalf("not a pdf: %q", data[:8])
	}

	stdout, _, err := env.run(t, "draft", "document", "-o", "-")
	if err != nil {
		t.Fatalf("document to stdout: %v", err)
	}
	if !strings.HasPrefix(stdout, "%PDF-") {
		t.Fatal("stdout did not receive the pdf")
	}
}

func TestDraftFieldsSkipsConfig(t *testing.T) {
	stdout, _, err := runCLI(t, filepath.Join(t.TempDir(), "missing.toml"), "draft", "fields")
	if err != nil {
		t.Fatalf("draft fields: %v", err)
	}
	requireContains(t, stdout, "patient.name")
	requireContains(t, stdout, "ai.structures.<name>")
}
