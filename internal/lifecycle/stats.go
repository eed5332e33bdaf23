package lifecycle

import (
	"context"
	"strings"
	"time"

	"fetalscan/internal/report"
	"fetalscan/internal/textutil"
)

// Stats summarizes the stored collections for the dashboard.
type Stats struct {
	TotalReports  int `json:"totalReports"`
	ThisMonth     int `json:"thisMonth"`
	PendingReview int `json:"pendingReview"`
	Completed     int `json:"completed"`
}

// Stats counts final reports overall and in now's calendar month, and
// archived drafts awaiting review.
func (c *Controller) Stats(ctx context.Context, now time.Time) (Stats, error) {
	finals, err := c.ListFinal(ctx)
	if err != nil {
		return Stats{}, err
	}
	archived, err := c.ListArchived(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		TotalReports:  len(finals),
		PendingReview: len(archived),
		Completed:     len(finals),
	}
	year, month, _ := now.Date()
	for _, rec := range finals {
		at, ok := rec.FinalizedAt(now.Location())
		if !ok {
			continue
		}
		y, m, _ := at.In(now.Location()).Date()
		if y == year && m == month {
			stats.ThisMonth++
		}
	}
	return stats, nil
}

// Search filters records whose patient name or id contains term, ignoring
// case. A non-empty status other than "all" must also occur in the record
// status.
func Search(records []report.Record, term, status string) []report.Record {
	status = strings.TrimSpace(status)
	if strings.EqualFold(status, "all") {
		status = ""
	}
	out := make([]report.Record, 0, len(records))
	for _, rec := range records {
		patient := rec.Data.Patient
		if !textutil.FoldContains(patient.Name, term) && !textutil.FoldContains(patient.PatientID, term) {
			continue
		}
		if status != "" && !textutil.FoldContains(rec.Status, status) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
