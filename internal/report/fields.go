package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrUnknownField reports a patch path that names no record field.
var ErrUnknownField = errors.New("unknown field")

// PatchError ties a rejected patch to the field it named.
type PatchError struct {
	Field string
	Err   error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *PatchError) Unwrap() error { return e.Err }

// Patch is a single field change addressed by a dotted path such as
// "patient.name" or "ai.structures.nasal bone".
type Patch struct {
	Path  string
	Value string
}

// ParsePatch splits "path=value".
func ParsePatch(arg string) (Patch, error) {
	path, value, ok := strings.Cut(arg, "=")
	path = strings.TrimSpace(path)
	if !ok || path == "" {
		return Patch{}, fmt.Errorf("invalid field assignment %q (want path=value)", arg)
	}
	return Patch{Path: path, Value: value}, nil
}

const structuresPrefix = "ai.structures."

type setter func(rec *Record, value string) error

var fieldSetters = map[string]setter{
	"patient.name":           text(func(r *Record) *string { return &r.Data.Patient.Name }),
	"patient.age":            integer(func(r *Record) *int { return &r.Data.Patient.Age }),
	"patient.patientid":      text(func(r *Record) *string { return &r.Data.Patient.PatientID }),
	"patient.sex":            sex,
	"patient.lmp":            text(func(r *Record) *string { return &r.Data.Patient.LMP }),
	"patient.gestationalage": text(func(r *Record) *string { return &r.Data.Patient.GestationalAge }),
	"patient.visitdate":      text(func(r *Record) *string { return &r.Data.Patient.VisitDate }),
	"patient.referredby":     text(func(r *Record) *string { return &r.Data.Patient.ReferredBy }),
	"scan.crl":               decimal(func(r *Record) *float64 { return &r.Data.ScanParameters.CRL }),
	"scan.bpd":               decimal(func(r *Record) *float64 { return &r.Data.ScanParameters.BPD }),
	"scan.hc":                decimal(func(r *Record) *float64 { return &r.Data.ScanParameters.HC }),
	"scan.ac":                decimal(func(r *Record) *float64 { return &r.Data.ScanParameters.AC }),
	"scan.fl":                decimal(func(r *Record) *float64 { return &r.Data.ScanParameters.FL }),
	"scan.fhr":               integer(func(r *Record) *int { return &r.Data.ScanParameters.FHR }),
	"scan.uterinearterypi":   decimal(func(r *Record) *float64 { return &r.Data.ScanParameters.UterineArteryPI }),
	"clinic.name":            text(func(r *Record) *string { return &r.Data.ClinicInfo.Name }),
	"clinic.department":      text(func(r *Record) *string { return &r.Data.ClinicInfo.Department }),
	"clinic.address":         text(func(r *Record) *string { return &r.Data.ClinicInfo.Address }),
	"clinic.phone":           text(func(r *Record) *string { return &r.Data.ClinicInfo.Phone }),
	"clinic.email":           text(func(r *Record) *string { return &r.Data.ClinicInfo.Email }),
	"clinic.website":         text(func(r *Record) *string { return &r.Data.ClinicInfo.Website }),
	"notes":                  text(func(r *Record) *string { return &r.Data.ClinicalNotes }),
	"ai.indications":         text(func(r *Record) *string { return &r.Data.AIModelOutput.Indications }),
	"ai.scantype":            text(func(r *Record) *string { return &r.Data.AIModelOutput.ScanType }),
	"ai.route":               text(func(r *Record) *string { return &r.Data.AIModelOutput.Route }),
	"ai.gestation":           text(func(r *Record) *string { return &r.Data.AIModelOutput.Gestation }),
	"ai.fetalactivity":       text(func(r *Record) *string { return &r.Data.AIModelOutput.FetalActivity }),
	"ai.cardiacactivity":     text(func(r *Record) *string { return &r.Data.AIModelOutput.CardiacActivity }),
	"ai.placentalocation":    text(func(r *Record) *string { return &r.Data.AIModelOutput.PlacentaLocation }),
	"ai.liquorstatus":        text(func(r *Record) *string { return &r.Data.AIModelOutput.LiquorStatus }),
	"image":                  text(func(r *Record) *string { return &r.Image }),
}

// FieldPaths lists every patch path except the per-structure ones.
func FieldPaths() []string {
	paths := make([]string, 0, len(fieldSetters)+1)
	for path := range fieldSetters {
		paths = append(paths, path)
	}
	paths = append(paths, structuresPrefix+"<name>")
	sort.Strings(paths)
	return paths
}

// ApplyPatches applies every patch to a copy of rec and stores the result only
// when all of them succeed.
func ApplyPatches(rec *Record, patches ...Patch) error {
	next := rec.Snapshot()
	for _, patch := range patches {
		if err := applyPatch(&next, patch); err != nil {
			return err
		}
	}
	*rec = next
	return nil
}

func applyPatch(rec *Record, patch Patch) error {
	path := strings.TrimSpace(patch.Path)
	lowered := strings.ToLower(path)
	if strings.HasPrefix(lowered, structuresPrefix) {
		name := strings.TrimSpace(path[len(structuresPrefix):])
		if name == "" {
			return &PatchError{Field: path, Err: ErrUnknownField}
		}
		ai := &rec.Data.AIModelOutput
		if strings.TrimSpace(patch.Value) == "" {
			ai.DetectedStructures = ai.DetectedStructures.Delete(name)
			return nil
		}
		value, err := parseDecimal(patch.Value)
		if err != nil {
			return &PatchError{Field: path, Err: err}
		}
		ai.DetectedStructures = ai.DetectedStructures.Set(name, value)
		return nil
	}
	set, ok := fieldSetters[lowered]
	if !ok {
		return &PatchError{Field: path, Err: ErrUnknownField}
	}
	if err := set(rec, patch.Value); err != nil {
		return &PatchError{Field: path, Err: err}
	}
	return nil
}

func text(field func(*Record) *string) setter {
	return func(rec *Record, value string) error {
		*field(rec) = value
		return nil
	}
}

func integer(field func(*Record) *int) setter {
	return func(rec *Record, value string) error {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			*field(rec) = 0
			return nil
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return fmt.Errorf("invalid integer %q", value)
		}
		*field(rec) = parsed
		return nil
	}
}

func decimal(field func(*Record) *float64) setter {
	return func(rec *Record, value string) error {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			*field(rec) = 0
			return nil
		}
		parsed, err := parseDecimal(trimmed)
		if err != nil {
			return err
		}
		*field(rec) = parsed
		return nil
	}
}

// parseDecimal accepts finite numbers only; NaN and infinities cannot be
// stored as JSON.
func parseDecimal(value string) (float64, error) {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, fmt.Errorf("invalid number %q", value)
	}
	return parsed, nil
}

func sex(rec *Record, value string) error {
	rec.Data.Patient.Sex = NormalizeSex(value)
	return nil
}

// NormalizeSex maps case variants and single-letter forms onto Female or
// Male. Other input is title-cased and left for validation to reject.
func NormalizeSex(value string) string {
	trimmed := strings.TrimSpace(value)
	switch strings.ToLower(trimmed) {
	case "":
		return ""
	case "f", "female":
		return SexFemale
	case "m", "male":
		return SexMale
	default:
		return cases.Title(language.Und).String(trimmed)
	}
}

// ApplyJSON merges a partial document shaped like ReportData, plus an
// optional top-level "image", into rec. Unknown top-level keys are rejected.
func ApplyJSON(rec *Record, raw []byte) error {
	var body struct {
		ReportData
		Image *string `json:"image"`
	}
	body.ReportData = rec.Data.Snapshot()

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return &PatchError{Field: jsonErrorField(err), Err: err}
	}

	rec.Data = body.ReportData
	rec.Data.Patient.Sex = NormalizeSex(rec.Data.Patient.Sex)
	if body.Image != nil {
		rec.Image = *body.Image
	}
	return nil
}

func jsonErrorField(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return typeErr.Field
	}
	msg := err.Error()
	if _, after, ok := strings.Cut(msg, "unknown field "); ok {
		return strings.Trim(after, `"`)
	}
	return "body"
}
