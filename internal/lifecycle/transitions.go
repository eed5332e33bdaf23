package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"fetalscan/internal/logging"
	"fetalscan/internal/notifications"
	"fetalscan/internal/report"
	"fetalscan/internal/store"
)

// SaveDraftToArchive appends a snapshot of the live draft, image included, to
// the archive. Incomplete drafts are accepted and repeated calls append
// repeated snapshots, each with its own id and timestamp.
func (c *Controller) SaveDraftToArchive(ctx context.Context) (report.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.draft.Snapshot()
	snapshot.SchemaVersion = report.CurrentSchemaVersion
	snapshot.ID = c.newID()
	snapshot.Timestamp = c.timestamp()
	snapshot.Status = report.StatusDraft
	snapshot.CreatedBy = c.user
	if err := c.repo.AppendArchived(ctx, snapshot); err != nil {
		return report.Record{}, fmt.Errorf("archive draft: %w", err)
	}
	c.logger.Info("draft archived",
		logging.String(logging.FieldReportID, snapshot.ID),
		logging.String(logging.FieldCollection, string(store.KeyArchive)),
	)
	return snapshot, nil
}

// PromoteToFinal moves the archived record key identifies into the final
// collection, marked Reviewed by the current user.
func (c *Controller) PromoteToFinal(ctx context.Context, key string, confirm bool) (report.Record, error) {
	if !confirm {
		return report.Record{}, ErrNotConfirmed
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var final report.Record
	err := c.repo.Atomically(ctx, func(repo store.Repository) error {
		archived, err := repo.ListArchived(ctx)
		if err != nil {
			return err
		}
		idx := report.FindIndex(archived, key)
		if idx < 0 {
			return notFound(report.StateArchivedDraft, key)
		}
		final = archived[idx].Snapshot()
		if final.ID == "" {
			final.ID = c.newID()
		}
		final.SchemaVersion = report.CurrentSchemaVersion
		final.Status = report.StatusReviewed
		final.ReviewedAt = c.timestamp()
		final.ReviewedBy = c.user
		if err := repo.AppendFinal(ctx, final); err != nil {
			return err
		}
		remaining := append(archived[:idx:idx], archived[idx+1:]...)
		return repo.ReplaceArchived(ctx, remaining)
	})
	if err != nil {
		c.logMiss(err, "promote", key)
		return report.Record{}, fmt.Errorf("promote %q: %w", key, err)
	}
	c.logger.Info("archived draft promoted",
		logging.String(logging.FieldReportID, final.ID),
		logging.String("reviewed_by", final.ReviewedBy),
	)
	c.notifyFinalized(ctx, final)
	return final, nil
}

// SaveAsFinalReport validates the live draft and, when it passes, appends it
// to the final collection as Completed, deletes the stored draft, and resets
// the live draft. A failing draft returns *report.ValidationError and nothing
// changes.
func (c *Controller) SaveAsFinalReport(ctx context.Context) (report.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := report.Validate(c.draft.Data).Err(); err != nil {
		return report.Record{}, err
	}
	now := c.timestamp()
	final := c.draft.Snapshot()
	final.SchemaVersion = report.CurrentSchemaVersion
	final.ID = c.newID()
	final.Timestamp = now
	final.Status = report.StatusCompleted
	final.CreatedAt = now
	final.CreatedBy = c.user
	final.ReviewedAt = ""
	final.ReviewedBy = ""

	err := c.repo.Atomically(ctx, func(repo store.Repository) error {
		if err := repo.AppendFinal(ctx, final); err != nil {
			return err
		}
		return repo.ClearDraft(ctx)
	})
	if err != nil {
		return report.Record{}, fmt.Errorf("finalize draft: %w", err)
	}
	c.resetLocked()
	c.logger.Info("draft finalized",
		logging.String(logging.FieldReportID, final.ID),
		logging.String("created_by", final.CreatedBy),
	)
	c.notifyFinalized(ctx, final)
	return final, nil
}

// DeleteArchived removes the archived record key identifies. Deletion is
// permanent.
func (c *Controller) DeleteArchived(ctx context.Context, key string, confirm bool) (report.Record, error) {
	return c.deleteFrom(ctx, report.StateArchivedDraft, key, confirm)
}

// DeleteFinal removes the final report key identifies. Deletion is permanent.
func (c *Controller) DeleteFinal(ctx context.Context, key string, confirm bool) (report.Record, error) {
	return c.deleteFrom(ctx, report.StateFinal, key, confirm)
}

func (c *Controller) deleteFrom(ctx context.Context, source report.State, key string, confirm bool) (report.Record, error) {
	if !confirm {
		return report.Record{}, ErrNotConfirmed
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed report.Record
	err := c.repo.Atomically(ctx, func(repo store.Repository) error {
		records, err := list(ctx, repo, source)
		if err != nil {
			return err
		}
		idx := report.FindIndex(records, key)
		if idx < 0 {
			return notFound(source, key)
		}
		removed = records[idx]
		remaining := append(records[:idx:idx], records[idx+1:]...)
		if source == report.StateFinal {
			return repo.ReplaceFinal(ctx, remaining)
		}
		return repo.ReplaceArchived(ctx, remaining)
	})
	if err != nil {
		c.logMiss(err, "delete", key)
		return report.Record{}, fmt.Errorf("delete %s %q: %w", collectionName(source), key, err)
	}
	c.logger.Info("report deleted",
		logging.String(logging.FieldReportID, removed.Key()),
		logging.String(logging.FieldCollection, collectionName(source)),
	)
	return removed, nil
}

// RequestEdit stages a copy of an archived or final record so the next
// LoadInitialState opens it as the draft. The source record is untouched.
func (c *Controller) RequestEdit(ctx context.Context, source report.State, key string) (report.Record, error) {
	rec, err := c.Find(ctx, source, key)
	if err != nil {
		return report.Record{}, err
	}
	if err := c.repo.SetEditRequest(ctx, rec); err != nil {
		return report.Record{}, fmt.Errorf("stage edit request: %w", err)
	}
	c.logger.Info("edit request staged",
		logging.String(logging.FieldReportID, rec.Key()),
		logging.String(logging.FieldCollection, collectionName(source)),
	)
	return rec, nil
}

// OpenForEdit stages the record key identifies and immediately loads it as
// the live draft.
func (c *Controller) OpenForEdit(ctx context.Context, source report.State, key string) (State, error) {
	if _, err := c.RequestEdit(ctx, source, key); err != nil {
		return State{}, err
	}
	return c.LoadInitialState(ctx)
}

// Find returns the record key identifies in source.
func (c *Controller) Find(ctx context.Context, source report.State, key string) (report.Record, error) {
	records, err := list(ctx, c.repo, source)
	if err != nil {
		return report.Record{}, err
	}
	idx := report.FindIndex(records, key)
	if idx < 0 {
		err := notFound(source, key)
		c.logMiss(err, "find", key)
		return report.Record{}, err
	}
	return records[idx], nil
}

// ListArchived returns the archive in stored order.
func (c *Controller) ListArchived(ctx context.Context) ([]report.Record, error) {
	return list(ctx, c.repo, report.StateArchivedDraft)
}

// ListFinal returns the final reports in stored order.
func (c *Controller) ListFinal(ctx context.Context) ([]report.Record, error) {
	return list(ctx, c.repo, report.StateFinal)
}

func list(ctx context.Context, repo store.Repository, source report.State) ([]report.Record, error) {
	var (
		records []report.Record
		err     error
	)
	switch source {
	case report.StateArchivedDraft:
		records, err = repo.ListArchived(ctx)
	case report.StateFinal:
		records, err = repo.ListFinal(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s reports: %w", collectionName(source), err)
	}
	if records == nil {
		records = []report.Record{}
	}
	return records, nil
}

func (c *Controller) logMiss(err error, op, key string) {
	if !errors.Is(err, ErrNotFound) {
		return
	}
	logging.WarnWithContext(c.logger, "report lookup missed", "report_not_found",
		logging.String("operation", op),
		logging.String("key", key),
		logging.String(logging.FieldErrorHint, "list the collection to find a valid id"),
		logging.String(logging.FieldImpact, "no records were changed"),
	)
}

func (c *Controller) notifyFinalized(ctx context.Context, rec report.Record) {
	if !c.settings.Notifications.ReportReady {
		return
	}
	by := rec.ReviewedBy
	if by == "" {
		by = rec.CreatedBy
	}
	warnings := 0
	if c.settings.Clinical.EnableClinicalWarnings {
		warnings = len(report.ComputeWarnings(rec.Data.Patient, rec.Data.ScanParameters))
	}
	err := c.notifier.NotifyReportFinalized(ctx, notifications.Finalized{
		PatientName: rec.Data.Patient.Name,
		PatientID:   rec.Data.Patient.PatientID,
		Status:      rec.Status,
		By:          by,
		Warnings:    warnings,
	})
	if err != nil {
		logging.WarnWithContext(c.logger, "report notification failed", "notification_failed",
			logging.String(logging.FieldReportID, rec.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
			logging.String(logging.FieldImpact, "report saved without a push notification"),
		)
	}
}
