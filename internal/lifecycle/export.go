package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"fetalscan/internal/report"
	"fetalscan/internal/store"
)

// Backup is the document written by Backup.
type Backup struct {
	Reports    []report.Record `json:"reports"`
	Archived   []report.Record `json:"archived"`
	Draft      *report.Record  `json:"draft"`
	Settings   store.Settings  `json:"settings"`
	ExportDate string          `json:"exportDate"`
}

// ExportFileName names a final-report export taken at now.
func ExportFileName(now time.Time) string {
	return "fetal_reports_" + now.Format(report.DateLayout) + ".json"
}

// BackupFileName names a full backup taken at now.
func BackupFileName(now time.Time) string {
	return "ultrascan_backup_" + now.Format(report.DateLayout) + ".json"
}

// ExportFinal writes the final reports as an indented JSON array.
func (c *Controller) ExportFinal(ctx context.Context, w io.Writer) (int, error) {
	finals, err := c.ListFinal(ctx)
	if err != nil {
		return 0, err
	}
	if err := writeIndented(w, canonical(finals)); err != nil {
		return 0, fmt.Errorf("write export: %w", err)
	}
	return len(finals), nil
}

// Backup writes every collection, the stored draft, and the settings in
// effect as one indented JSON document.
func (c *Controller) Backup(ctx context.Context, w io.Writer) (Backup, error) {
	var backup Backup
	err := c.repo.Atomically(ctx, func(repo store.Repository) error {
		finals, err := list(ctx, repo, report.StateFinal)
		if err != nil {
			return err
		}
		archived, err := list(ctx, repo, report.StateArchivedDraft)
		if err != nil {
			return err
		}
		draft, ok, err := repo.LoadDraft(ctx, report.ReportData{})
		if err != nil {
			return fmt.Errorf("load draft: %w", err)
		}
		backup.Reports = canonical(finals)
		backup.Archived = canonical(archived)
		if ok {
			draft.SchemaVersion = report.CurrentSchemaVersion
			backup.Draft = &draft
		}
		return nil
	})
	if err != nil {
		return Backup{}, err
	}
	backup.Settings = c.Settings()
	backup.ExportDate = c.timestamp()
	if err := writeIndented(w, backup); err != nil {
		return Backup{}, fmt.Errorf("write backup: %w", err)
	}
	return backup, nil
}

func canonical(records []report.Record) []report.Record {
	out := make([]report.Record, len(records))
	for i, rec := range records {
		rec.SchemaVersion = report.CurrentSchemaVersion
		out[i] = rec
	}
	return out
}

func writeIndented(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
