package report

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// lenientFloat accepts a JSON number, a numeric string, an empty string, or
// null. Values that do not parse become 0.
type lenientFloat float64

func (f *lenientFloat) UnmarshalJSON(data []byte) error {
	*f = lenientFloat(parseLenient(data))
	return nil
}

// lenientInt is lenientFloat truncated toward zero.
type lenientInt int

func (i *lenientInt) UnmarshalJSON(data []byte) error {
	*i = lenientInt(math.Trunc(parseLenient(data)))
	return nil
}

func parseLenient(data []byte) float64 {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0
	}
	text := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0
		}
		text = s
	}
	return ParseNumber(text)
}

// ParseNumber parses a decimal, returning 0 for empty or malformed input.
func ParseNumber(text string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// UnmarshalJSON accepts loosely typed numbers for age. Fields absent from
// data keep their current values.
func (p *Patient) UnmarshalJSON(data []byte) error {
	type plain Patient
	var wire struct {
		plain
		Age lenientInt `json:"age"`
	}
	wire.plain = plain(*p)
	wire.Age = lenientInt(p.Age)
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*p = Patient(wire.plain)
	p.Age = int(wire.Age)
	return nil
}

// UnmarshalJSON accepts loosely typed numbers for every measurement. Fields
// absent from data keep their current values.
func (s *ScanParameters) UnmarshalJSON(data []byte) error {
	var wire struct {
		CRL             lenientFloat `json:"crl"`
		BPD             lenientFloat `json:"bpd"`
		HC              lenientFloat `json:"hc"`
		AC              lenientFloat `json:"ac"`
		FL              lenientFloat `json:"fl"`
		FHR             lenientInt   `json:"fhr"`
		UterineArteryPI lenientFloat `json:"uterineArteryPI"`
	}
	wire.CRL = lenientFloat(s.CRL)
	wire.BPD = lenientFloat(s.BPD)
	wire.HC = lenientFloat(s.HC)
	wire.AC = lenientFloat(s.AC)
	wire.FL = lenientFloat(s.FL)
	wire.FHR = lenientInt(s.FHR)
	wire.UterineArteryPI = lenientFloat(s.UterineArteryPI)
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*s = ScanParameters{
		CRL:             float64(wire.CRL),
		BPD:             float64(wire.BPD),
		HC:              float64(wire.HC),
		AC:              float64(wire.AC),
		FL:              float64(wire.FL),
		FHR:             int(wire.FHR),
		UterineArteryPI: float64(wire.UterineArteryPI),
	}
	return nil
}
