package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Structure is one detected anatomical structure with its confidence in percent.
type Structure struct {
	Name       string
	Confidence float64
}

// Structures is an insertion-ordered name to confidence map. It encodes as a
// JSON object whose key order matches the slice order.
type Structures []Structure

// Get returns the confidence for name.
func (s Structures) Get(name string) (float64, bool) {
	for _, item := range s {
		if item.Name == name {
			return item.Confidence, true
		}
	}
	return 0, false
}

// Set updates name in place or appends it when absent.
func (s Structures) Set(name string, confidence float64) Structures {
	for i := range s {
		if s[i].Name == name {
			s[i].Confidence = confidence
			return s
		}
	}
	return append(s, Structure{Name: name, Confidence: confidence})
}

// Delete removes name, preserving the order of the rest.
func (s Structures) Delete(name string) Structures {
	out := s[:0]
	for _, item := range s {
		if item.Name != name {
			out = append(out, item)
		}
	}
	return out
}

// Clone returns an independent copy.
func (s Structures) Clone() Structures {
	if s == nil {
		return nil
	}
	return append(Structures(nil), s...)
}

// MarshalJSON writes the structures as an ordered JSON object.
func (s Structures) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, item := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(item.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(item.Confidence, 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON merges a JSON object into the structures keeping key order.
// Values may be numbers or numeric strings; anything unparsable becomes 0 and
// null removes the entry.
func (s *Structures) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("detected structures: expected object, got %v", tok)
	}
	out := s.Clone()
	if out == nil {
		out = Structures{}
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := keyTok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("detected structures %q: %w", name, err)
		}
		if isNull(value) {
			out = out.Delete(name)
			continue
		}
		out = out.Set(name, parseLenient(value))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}
