package report

import (
	"fmt"
	"sort"
	"strings"
)

// Validation error keys.
const (
	FieldName           = "name"
	FieldPatientID      = "patientId"
	FieldAge            = "age"
	FieldSex            = "sex"
	FieldVisitDate      = "visitDate"
	FieldGestationalAge = "gestationalAge"
	FieldLMP            = "lmp"
	FieldFHR            = "fhr"
	FieldCRL            = "crl"
	FieldBPD            = "bpd"
)

// ErrorMap maps a field key to a human-readable message. Empty means valid.
type ErrorMap map[string]string

// Keys returns the field keys in sorted order.
func (m ErrorMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (m ErrorMap) String() string {
	parts := make([]string, 0, len(m))
	for _, key := range m.Keys() {
		parts = append(parts, fmt.Sprintf("%s: %s", key, m[key]))
	}
	return strings.Join(parts, "; ")
}

// ValidationError carries the complete error map of a rejected operation.
type ValidationError struct {
	Errors ErrorMap
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Errors.String()
}

// Err returns a *ValidationError when m is non-empty.
func (m ErrorMap) Err() error {
	if len(m) == 0 {
		return nil
	}
	return &ValidationError{Errors: m}
}

// Validate runs every rule over data.
func Validate(data ReportData) ErrorMap {
	errs := ValidatePatient(data.Patient)
	for key, msg := range ValidateScanParameters(data.ScanParameters) {
		errs[key] = msg
	}
	return errs
}

// ValidatePatient checks demographic and dating fields.
func ValidatePatient(p Patient) ErrorMap {
	errs := ErrorMap{}
	if strings.TrimSpace(p.Name) == "" {
		errs[FieldName] = "Patient name is required"
	}
	if strings.TrimSpace(p.PatientID) == "" {
		errs[FieldPatientID] = "Patient ID is required"
	}
	if p.Age < 12 || p.Age > 60 {
		errs[FieldAge] = "Age must be between 12 and 60 years"
	}
	if p.Sex != SexFemale && p.Sex != SexMale {
		errs[FieldSex] = "Sex selection is required"
	}
	if strings.TrimSpace(p.VisitDate) == "" {
		errs[FieldVisitDate] = "Visit date is required"
	}
	if strings.TrimSpace(p.GestationalAge) == "" {
		errs[FieldGestationalAge] = "Gestational age is required"
	}
	if strings.TrimSpace(p.LMP) == "" {
		errs[FieldLMP] = "LMP date is required"
	}
	return errs
}

// ValidateScanParameters checks measurement ranges.
func ValidateScanParameters(s ScanParameters) ErrorMap {
	errs := ErrorMap{}
	if s.FHR < 100 || s.FHR > 200 {
		errs[FieldFHR] = "Fetal heart rate should be between 100-200 bpm"
	}
	if s.CRL < 0 || s.CRL > 100 {
		errs[FieldCRL] = "CRL should be between 0-100 mm"
	}
	if s.BPD < 0 || s.BPD > 100 {
		errs[FieldBPD] = "BPD should be between 0-100 mm"
	}
	return errs
}
