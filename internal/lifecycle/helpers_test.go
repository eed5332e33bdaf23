package lifecycle_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"fetalscan/internal/lifecycle"
	"fetalscan/internal/notifications"
	"fetalscan/internal/report"
	"fetalscan/internal/store"
	"fetalscan/internal/testsupport"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []notifications.Finalized
	err   error
	tests int
}

func (n *recordingNotifier) NotifyReportFinalized(_ context.Context, f notifications.Finalized) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, f)
	return n.err
}

func (n *recordingNotifier) TestNotification(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tests++
	return n.err
}

type recordingRenderer struct {
	rendered []report.Record
	err      error
}

func (r *recordingRenderer) Render(_ context.Context, rec report.Record, w io.Writer) error {
	if r.err != nil {
		return r.err
	}
	r.rendered = append(r.rendered, rec)
	_, err := io.WriteString(w, "%PDF-test "+rec.Data.Patient.Name)
	return err
}

type harness struct {
	ctrl     *lifecycle.Controller
	store    *store.Store
	notifier *recordingNotifier
	renderer *recordingRenderer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithUser("Dr. Test"))
	st := testsupport.MustOpenStore(t, cfg)
	return newHarnessWithStore(t, st)
}

func newHarnessWithStore(t *testing.T, st *store.Store) *harness {
	t.Helper()
	h := &harness{
		store:    st,
		notifier: &recordingNotifier{},
		renderer: &recordingRenderer{},
	}
	seq := 0
	h.ctrl = lifecycle.New(lifecycle.Options{
		Repo:     st,
		Renderer: h.renderer,
		Notifier: h.notifier,
		User:     "Dr. Test",
		Now:      func() time.Time { return testNow },
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		},
	})
	if _, err := h.ctrl.LoadInitialState(context.Background()); err != nil {
		t.Fatalf("LoadInitialState: %v", err)
	}
	return h
}

func patches(t *testing.T, args ...string) []report.Patch {
	t.Helper()
	out := make([]report.Patch, 0, len(args))
	for _, arg := range args {
		p, err := report.ParsePatch(arg)
		if err != nil {
			t.Fatalf("ParsePatch(%q): %v", arg, err)
		}
		out = append(out, p)
	}
	return out
}

func completeDraft(t *testing.T, h *harness, extra ...string) {
	t.Helper()
	args := append([]string{
		"patient.name=Jane Doe",
		"patient.patientId=P100",
		"patient.age=29",
		"patient.sex=Female",
		"patient.visitDate=2024-01-10",
		"patient.gestationalAge=20w 3d",
		"patient.lmp=2023-08-20",
		"scan.fhr=145",
	}, extra...)
	if _, err := h.ctrl.Update(context.Background(), patches(t, args...)...); err != nil {
		t.Fatalf("Update: %v", err)
	}
}
