package api

import (
	"fetalscan/internal/report"
	"fetalscan/internal/store"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}

// RecordListResponse lists stored records.
type RecordListResponse struct {
	Items []report.Record `json:"items"`
	Count int             `json:"count"`
}

// RecordResponse wraps a single record.
type RecordResponse struct {
	Record report.Record `json:"record"`
}

// WarningsResponse lists the advisory findings for the draft.
type WarningsResponse struct {
	Warnings []report.Warning `json:"warnings"`
}

// ValidationResponse reports the draft's validation state without gating.
type ValidationResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string       `json:"status"`
	Store  store.Health `json:"store"`
}

func recordList(records []report.Record) RecordListResponse {
	if records == nil {
		records = []report.Record{}
	}
	return RecordListResponse{Items: records, Count: len(records)}
}
