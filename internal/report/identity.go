package report

import "strings"

// MatchKind names the identifier a lookup key matched on.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchID
	MatchTimestamp
	MatchPatientID
)

func (k MatchKind) String() string {
	switch k {
	case MatchID:
		return "id"
	case MatchTimestamp:
		return "timestamp"
	case MatchPatientID:
		return "patientId"
	default:
		return "none"
	}
}

// Matches reports which identifier of rec equals key, checking id, then
// timestamp, then the nested patient id.
func Matches(rec Record, key string) MatchKind {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return MatchNone
	case rec.ID == key:
		return MatchID
	case rec.Timestamp == key:
		return MatchTimestamp
	case rec.Data.Patient.PatientID == key:
		return MatchPatientID
	default:
		return MatchNone
	}
}

// FindIndex returns the position of the record key identifies, or -1. A
// match on a higher-priority identifier anywhere in the list wins over a
// lower-priority match earlier in it; among equals the first wins.
func FindIndex(records []Record, key string) int {
	best, bestKind := -1, MatchNone
	for idx, rec := range records {
		kind := Matches(rec, key)
		if kind == MatchNone {
			continue
		}
		if bestKind == MatchNone || kind < bestKind {
			best, bestKind = idx, kind
			if kind == MatchID {
				break
			}
		}
	}
	return best
}
