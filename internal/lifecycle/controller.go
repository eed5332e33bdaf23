package lifecycle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fetalscan/internal/logging"
	"fetalscan/internal/notifications"
	"fetalscan/internal/report"
	"fetalscan/internal/store"
)

// Renderer writes a laid-out document for a record.
type Renderer interface {
	Render(ctx context.Context, rec report.Record, w io.Writer) error
}

// Options wires a Controller to its collaborators.
type Options struct {
	Repo     store.Repository
	Renderer Renderer
	Notifier notifications.Service
	Logger   *slog.Logger
	// User is recorded as the author or reviewer of finalized reports.
	User string
	// Clinic seeds the default settings when none are stored.
	Clinic report.ClinicInfo
	Now    func() time.Time
	NewID  func() string
}

// Controller owns the live draft and every transition between collections.
type Controller struct {
	repo     store.Repository
	renderer Renderer
	notifier notifications.Service
	logger   *slog.Logger
	user     string
	clinic   report.ClinicInfo
	now      func() time.Time
	newID    func() string

	mu       sync.Mutex
	draft    report.Record
	warnings []report.Warning
	unsaved  bool
	fromEdit bool
	settings store.Settings
}

// State is a snapshot of the live draft.
type State struct {
	Draft           report.Record    `json:"draft"`
	Warnings        []report.Warning `json:"warnings"`
	HasUnsavedDraft bool             `json:"hasUnsavedDraft"`
	FromEditRequest bool             `json:"fromEditRequest"`
}

// New builds a controller. Call LoadInitialState before using the draft.
func New(opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = NewID
	}
	if opts.Notifier == nil {
		opts.Notifier = notifications.NewService(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	user := strings.TrimSpace(opts.User)
	if user == "" {
		user = "Unknown"
	}
	c := &Controller{
		repo:     opts.Repo,
		renderer: opts.Renderer,
		notifier: opts.Notifier,
		logger:   logging.NewComponentLogger(logger, "lifecycle"),
		user:     user,
		clinic:   opts.Clinic,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	c.settings = store.DefaultSettings(opts.Clinic)
	c.draft = c.freshDraft()
	c.warnings = []report.Warning{}
	return c
}

// NewID returns a time-ordered identifier.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// LoadInitialState seeds the draft from a pending edit request, else from the
// stored draft, else from defaults. A consumed edit request is deleted.
func (c *Controller) LoadInitialState(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	settings, err := c.repo.LoadSettings(ctx, store.DefaultSettings(c.clinic))
	if err != nil {
		return State{}, fmt.Errorf("load settings: %w", err)
	}
	c.settings = settings

	base := c.freshDraft().Data
	rec, ok, err := c.repo.TakeEditRequest(ctx, base)
	if err != nil {
		return State{}, fmt.Errorf("load edit request: %w", err)
	}
	c.fromEdit = ok
	if ok {
		rec = asDraft(rec)
		if err := c.repo.SaveDraft(ctx, rec); err != nil {
			return State{}, fmt.Errorf("save draft: %w", err)
		}
		c.logger.Info("draft seeded from edit request",
			logging.String(logging.FieldReportID, rec.Key()),
			logging.String("patient_id", rec.Data.Patient.PatientID),
		)
	} else {
		rec, ok, err = c.repo.LoadDraft(ctx, base)
		if err != nil {
			return State{}, fmt.Errorf("load draft: %w", err)
		}
		if !ok {
			rec = c.freshDraft()
		}
	}
	c.draft = rec
	c.unsaved = ok
	c.recompute()
	return c.stateLocked(), nil
}

// State returns a copy of the live draft and its warnings.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Draft returns a copy of the live draft.
func (c *Controller) Draft() report.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Snapshot()
}

// Warnings returns the advisory findings for the live draft.
func (c *Controller) Warnings() []report.Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]report.Warning{}, c.warnings...)
}

// Validate checks the live draft without side effects.
func (c *Controller) Validate() report.ErrorMap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return report.Validate(c.draft.Data)
}

// Update applies patches to the live draft and commits the batch once. If any
// patch is rejected nothing changes.
func (c *Controller) Update(ctx context.Context, patches ...report.Patch) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.draft.Snapshot()
	if err := report.ApplyPatches(&next, patches...); err != nil {
		return State{}, err
	}
	if err := c.commit(ctx, next); err != nil {
		return State{}, err
	}
	return c.stateLocked(), nil
}

// UpdateJSON merges a partial JSON document into the live draft and commits.
func (c *Controller) UpdateJSON(ctx context.Context, raw []byte) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.draft.Snapshot()
	if err := report.ApplyJSON(&next, raw); err != nil {
		return State{}, err
	}
	if err := c.commit(ctx, next); err != nil {
		return State{}, err
	}
	return c.stateLocked(), nil
}

// ClearDraft deletes the stored draft and resets the live one to defaults.
func (c *Controller) ClearDraft(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.repo.ClearDraft(ctx); err != nil {
		return State{}, fmt.Errorf("clear draft: %w", err)
	}
	c.resetLocked()
	return c.stateLocked(), nil
}

// Settings returns the settings in effect.
func (c *Controller) Settings() store.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// SaveSettings persists settings and applies them immediately. Disabling
// clinical warnings clears the current list.
func (c *Controller) SaveSettings(ctx context.Context, settings store.Settings) (store.Settings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.repo.SaveSettings(ctx, settings); err != nil {
		return store.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	c.settings = settings
	c.recompute()
	return settings, nil
}

func (c *Controller) commit(ctx context.Context, next report.Record) error {
	if err := c.repo.SaveDraft(ctx, next); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	c.draft = next
	c.unsaved = true
	c.recompute()
	return nil
}

func (c *Controller) recompute() {
	if !c.settings.Clinical.EnableClinicalWarnings {
		c.warnings = []report.Warning{}
		return
	}
	c.warnings = report.ComputeWarnings(c.draft.Data.Patient, c.draft.Data.ScanParameters)
}

func (c *Controller) resetLocked() {
	c.draft = c.freshDraft()
	c.unsaved = false
	c.fromEdit = false
	c.recompute()
}

func (c *Controller) freshDraft() report.Record {
	return report.NewDraft(c.settings.ClinicInfo, c.now())
}

func (c *Controller) stateLocked() State {
	return State{
		Draft:           c.draft.Snapshot(),
		Warnings:        append([]report.Warning{}, c.warnings...),
		HasUnsavedDraft: c.unsaved,
		FromEditRequest: c.fromEdit,
	}
}

func (c *Controller) timestamp() string {
	return c.now().UTC().Format(time.RFC3339Nano)
}

// asDraft strips lifecycle metadata so a seeded draft is a plain working copy.
func asDraft(rec report.Record) report.Record {
	out := rec.Snapshot()
	out.ID = ""
	out.Status = ""
	out.CreatedAt = ""
	out.CreatedBy = ""
	out.ReviewedAt = ""
	out.ReviewedBy = ""
	out.SchemaVersion = report.CurrentSchemaVersion
	return out
}
