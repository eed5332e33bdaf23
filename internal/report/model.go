package report

import "time"

// Sex values accepted by validation.
const (
	SexFemale = "Female"
	SexMale   = "Male"
)

// Status strings stored on archived and final records.
const (
	StatusDraft     = "Draft"
	StatusReviewed  = "Reviewed"
	StatusCompleted = "Completed"
)

// State names the lifecycle stage a record belongs to.
type State string

const (
	StateDraft         State = "Draft"
	StateArchivedDraft State = "ArchivedDraft"
	StateFinal         State = "Final"
)

// DateLayout is the calendar date format used for visit dates and file names.
const DateLayout = "2006-01-02"

// Patient holds demographic and pregnancy dating fields.
type Patient struct {
	Name           string `json:"name"`
	Age            int    `json:"age"`
	PatientID      string `json:"patientId"`
	Sex            string `json:"sex"`
	LMP            string `json:"lmp"`
	GestationalAge string `json:"gestationalAge"`
	VisitDate      string `json:"visitDate"`
	ReferredBy     string `json:"referredBy"`
}

// ScanParameters holds biometry in millimetres, heart rate in bpm, and the
// uterine artery pulsatility index.
type ScanParameters struct {
	CRL             float64 `json:"crl"`
	BPD             float64 `json:"bpd"`
	HC              float64 `json:"hc"`
	AC              float64 `json:"ac"`
	FL              float64 `json:"fl"`
	FHR             int     `json:"fhr"`
	UterineArteryPI float64 `json:"uterineArteryPI"`
}

// AIModelOutput holds detected structures and the free-text findings that
// accompany them.
type AIModelOutput struct {
	DetectedStructures Structures `json:"detectedStructures"`
	Indications        string     `json:"indications"`
	ScanType           string     `json:"scanType"`
	Route              string     `json:"route"`
	Gestation          string     `json:"gestation"`
	FetalActivity      string     `json:"fetalActivity"`
	CardiacActivity    string     `json:"cardiacActivity"`
	PlacentaLocation   string     `json:"placentaLocation"`
	LiquorStatus       string     `json:"liquorStatus"`
}

// ClinicInfo is the header printed on every document.
type ClinicInfo struct {
	Name       string `json:"name"`
	Department string `json:"department"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Website    string `json:"website"`
}

// ReportData is the editable body of a record.
type ReportData struct {
	Patient        Patient        `json:"patient"`
	ScanParameters ScanParameters `json:"scanParameters"`
	ClinicInfo     ClinicInfo     `json:"clinicInfo"`
	ClinicalNotes  string         `json:"clinicalNotes"`
	AIModelOutput  AIModelOutput  `json:"aiModelOutput"`
}

// Snapshot returns a deep copy so the caller cannot alias live draft state.
func (d ReportData) Snapshot() ReportData {
	out := d
	out.AIModelOutput.DetectedStructures = d.AIModelOutput.DetectedStructures.Clone()
	return out
}

// Record is the canonical stored form of a draft, archived draft, or final report.
type Record struct {
	SchemaVersion int        `json:"schemaVersion"`
	ID            string     `json:"id,omitempty"`
	Status        string     `json:"status,omitempty"`
	Timestamp     string     `json:"timestamp,omitempty"`
	CreatedAt     string     `json:"createdAt,omitempty"`
	CreatedBy     string     `json:"createdBy,omitempty"`
	ReviewedAt    string     `json:"reviewedAt,omitempty"`
	ReviewedBy    string     `json:"reviewedBy,omitempty"`
	Date          string     `json:"date,omitempty"`
	Image         string     `json:"image,omitempty"`
	Data          ReportData `json:"data"`
}

// Snapshot deep-copies the record.
func (r Record) Snapshot() Record {
	out := r
	out.Data = r.Data.Snapshot()
	return out
}

// Key returns the identifier printed on documents: the id, else the timestamp.
func (r Record) Key() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Timestamp
}

// legacyDateLayouts are the calendar-date forms older final reports stored
// under "date".
var legacyDateLayouts = []string{DateLayout, "1/2/2006"}

// FinalizedAt returns the most relevant finalization instant of a final
// report. Legacy records carrying only a calendar date resolve to midnight
// of that day in loc.
func (r Record) FinalizedAt(loc *time.Location) (time.Time, bool) {
	for _, value := range []string{r.CreatedAt, r.ReviewedAt, r.Timestamp} {
		if value == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
			return ts, true
		}
	}
	if r.Date == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, r.Date); err == nil {
		return ts, true
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range legacyDateLayouts {
		if day, err := time.ParseInLocation(layout, r.Date, loc); err == nil {
			return day, true
		}
	}
	return time.Time{}, false
}

// Warning is an advisory clinical finding. It never blocks a transition.
type Warning struct {
	Severity string `json:"type"`
	Message  string `json:"message"`
	Field    string `json:"field"`
}

// Warning severities.
const (
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)
