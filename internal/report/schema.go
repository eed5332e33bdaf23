package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// CurrentSchemaVersion is written by Encode.
const CurrentSchemaVersion = 2

// Shape identifies which stored layout a record was decoded from.
type Shape int

const (
	// ShapeFlat is the early layout with the report sections at the top level.
	ShapeFlat Shape = iota + 1
	// ShapeWrapped nests the sections under "reportData" beside summary fields.
	ShapeWrapped
	// ShapeCanonical is the versioned layout produced by Encode.
	ShapeCanonical
)

func (s Shape) String() string {
	switch s {
	case ShapeFlat:
		return "v1-flat"
	case ShapeWrapped:
		return "v1-wrapped"
	case ShapeCanonical:
		return "v2"
	default:
		return "unknown"
	}
}

// ErrNotRecord reports stored JSON that is not an object.
var ErrNotRecord = errors.New("record is not a JSON object")

type recordMeta struct {
	SchemaVersion lenientInt    `json:"schemaVersion"`
	ID            lenientString `json:"id"`
	Status        string        `json:"status"`
	Timestamp     lenientString `json:"timestamp"`
	CreatedAt     string        `json:"createdAt"`
	CreatedBy     string        `json:"createdBy"`
	ReviewedAt    string        `json:"reviewedAt"`
	ReviewedBy    string        `json:"reviewedBy"`
	Date          lenientString `json:"date"`
	Image         string        `json:"image"`
	AIImage       string        `json:"aiImage"`
}

// wrappedSummary holds the denormalized fields stored beside "reportData".
type wrappedSummary struct {
	Patient        lenientString `json:"patient"`
	PatientID      lenientString `json:"patientId"`
	GestationalAge string        `json:"gestationalAge"`
}

// Decode normalizes any known stored layout into a canonical record.
// Sections missing from raw are left at their zero values.
func Decode(raw []byte) (Record, Shape, error) {
	return DecodeOnto(raw, ReportData{})
}

// DecodeOnto is Decode with sections missing from raw taken from base.
func DecodeOnto(raw []byte, base ReportData) (Record, Shape, error) {
	fields, err := objectFields(raw)
	if err != nil {
		return Record{}, 0, err
	}

	var meta recordMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Record{}, 0, fmt.Errorf("decode record metadata: %w", err)
	}

	rec := Record{
		SchemaVersion: CurrentSchemaVersion,
		ID:            string(meta.ID),
		Status:        meta.Status,
		Timestamp:     string(meta.Timestamp),
		CreatedAt:     meta.CreatedAt,
		CreatedBy:     meta.CreatedBy,
		ReviewedAt:    meta.ReviewedAt,
		ReviewedBy:    meta.ReviewedBy,
		Date:          string(meta.Date),
		Image:         meta.Image,
	}
	if rec.Image == "" {
		rec.Image = meta.AIImage
	}

	var shape Shape
	var sections map[string]json.RawMessage
	switch {
	case int(meta.SchemaVersion) >= CurrentSchemaVersion:
		shape = ShapeCanonical
		if sections, err = objectFields(fields["data"]); err != nil && !isNull(fields["data"]) {
			return Record{}, 0, fmt.Errorf("decode record data: %w", err)
		}
	case !isNull(fields["reportData"]):
		shape = ShapeWrapped
		if sections, err = objectFields(fields["reportData"]); err != nil {
			return Record{}, 0, fmt.Errorf("decode reportData: %w", err)
		}
	default:
		shape = ShapeFlat
		sections = fields
	}

	data, err := decodeSections(sections, base)
	if err != nil {
		return Record{}, 0, err
	}
	if shape == ShapeWrapped {
		var summary wrappedSummary
		if err := json.Unmarshal(raw, &summary); err == nil {
			applySummary(&data, sections, summary)
		}
	}
	rec.Data = data
	return rec, shape, nil
}

// DecodeList decodes a stored JSON array of records. A missing value is an
// empty list.
func DecodeList(raw []byte) ([]Record, error) {
	if isNull(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode record list: %w", err)
	}
	records := make([]Record, 0, len(items))
	for idx, item := range items {
		rec, _, err := Decode(item)
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", idx, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Encode writes the canonical layout.
func Encode(rec Record) ([]byte, error) {
	rec.SchemaVersion = CurrentSchemaVersion
	return json.Marshal(rec)
}

// EncodeList writes records as a JSON array in canonical layout.
func EncodeList(records []Record) ([]byte, error) {
	out := make([]Record, len(records))
	for i, rec := range records {
		rec.SchemaVersion = CurrentSchemaVersion
		out[i] = rec
	}
	if len(out) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(out)
}

func decodeSections(sections map[string]json.RawMessage, base ReportData) (ReportData, error) {
	data := base.Snapshot()
	if raw := sections["patient"]; !isNull(raw) && isObject(raw) {
		var patient Patient
		if err := json.Unmarshal(raw, &patient); err != nil {
			return ReportData{}, fmt.Errorf("decode patient: %w", err)
		}
		data.Patient = patient
	}
	if raw := sections["scanParameters"]; !isNull(raw) {
		var scan ScanParameters
		if err := json.Unmarshal(raw, &scan); err != nil {
			return ReportData{}, fmt.Errorf("decode scanParameters: %w", err)
		}
		data.ScanParameters = scan
	}
	if raw := sections["clinicInfo"]; !isNull(raw) {
		var clinic ClinicInfo
		if err := json.Unmarshal(raw, &clinic); err != nil {
			return ReportData{}, fmt.Errorf("decode clinicInfo: %w", err)
		}
		data.ClinicInfo = clinic
	}
	if raw := sections["clinicalNotes"]; !isNull(raw) {
		var notes string
		if err := json.Unmarshal(raw, &notes); err != nil {
			return ReportData{}, fmt.Errorf("decode clinicalNotes: %w", err)
		}
		data.ClinicalNotes = notes
	}
	if raw := sections["aiModelOutput"]; !isNull(raw) {
		var ai AIModelOutput
		if err := json.Unmarshal(raw, &ai); err != nil {
			return ReportData{}, fmt.Errorf("decode aiModelOutput: %w", err)
		}
		data.AIModelOutput = ai
	}
	return data, nil
}

// applySummary fills patient fields from the wrapper when reportData carried
// no patient section.
func applySummary(data *ReportData, sections map[string]json.RawMessage, summary wrappedSummary) {
	if raw := sections["patient"]; !isNull(raw) && isObject(raw) {
		return
	}
	if data.Patient.Name == "" {
		data.Patient.Name = string(summary.Patient)
	}
	if data.Patient.PatientID == "" {
		data.Patient.PatientID = string(summary.PatientID)
	}
	if data.Patient.GestationalAge == "" {
		data.Patient.GestationalAge = summary.GestationalAge
	}
}

func objectFields(raw []byte) (map[string]json.RawMessage, error) {
	if !isObject(raw) {
		return nil, ErrNotRecord
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return fields, nil
}

func isNull(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func isObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// lenientString accepts a JSON string or number and keeps its text.
type lenientString string

func (s *lenientString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case isNull(data):
		*s = ""
	case data[0] == '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*s = lenientString(text)
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			*s = ""
			return nil
		}
		if value, err := num.Int64(); err == nil {
			*s = lenientString(strconv.FormatInt(value, 10))
			return nil
		}
		*s = lenientString(num.String())
	}
	return nil
}
