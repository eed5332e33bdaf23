package document

import (
	"strings"
	"time"

	"fetalscan/internal/report"
	"fetalscan/internal/textutil"
)

// FileName returns the download name for a patient's document:
// <name or patient id or Unknown>_<YYYY-MM-DD>.pdf.
func FileName(patient report.Patient, now time.Time) string {
	base := textutil.SanitizeFileName(strings.TrimSpace(patient.Name))
	if base == "" {
		base = textutil.SanitizeFileName(strings.TrimSpace(patient.PatientID))
	}
	if base == "" {
		base = "Unknown"
	}
	return base + "_" + now.Format(report.DateLayout) + ".pdf"
}
