package report

import (
	"fmt"
	"regexp"
	"strconv"
)

var gestationalWeeks = regexp.MustCompile(`(\d+)w`)

// GestationalWeeks returns the integer before the first "w" marker, or 0 when
// there is none.
func GestationalWeeks(ga string) int {
	match := gestationalWeeks.FindStringSubmatch(ga)
	if match == nil {
		return 0
	}
	weeks, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return weeks
}

// ComputeWarnings evaluates the advisory rules independently. The result is
// never nil.
func ComputeWarnings(p Patient, s ScanParameters) []Warning {
	warnings := []Warning{}
	if s.FHR < 110 || s.FHR > 160 {
		warnings = append(warnings, Warning{
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Abnormal fetal heart rate: %d bpm (Normal range: 110-160 bpm)", s.FHR),
			Field:    FieldFHR,
		})
	}
	if p.GestationalAge != "" {
		if weeks := GestationalWeeks(p.GestationalAge); weeks < 8 || weeks > 42 {
			warnings = append(warnings, Warning{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Unusual gestational age: %s (Normal range: 8-42 weeks)", p.GestationalAge),
				Field:    FieldGestationalAge,
			})
		}
	}
	if p.Age > 35 {
		warnings = append(warnings, Warning{
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("Advanced maternal age: %d years (Consider additional screening)", p.Age),
			Field:    FieldAge,
		})
	}
	return warnings
}
