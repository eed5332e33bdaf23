package document_test

import (
	"reflect"
	"testing"

	"fetalscan/internal/document"
)

func TestWrap(t *testing.T) {
	// one unit per rune
	measure := func(s string) float64 { return float64(len([]rune(s))) }

	tests := []struct {
		name  string
		text  string
		width float64
		want  []string
	}{
		{name: "fits", text: "short line", width: 20, want: []string{"short line"}},
		{name: "greedy", text: "aaa bbb ccc ddd", width: 7, want: []string{"aaa bbb", "ccc ddd"}},
		{name: "collapses spaces", text: "aaa    bbb", width: 20, want: []string{"aaa bbb"}},
		{name: "explicit newline", text: "first\nsecond", width: 50, want: []string{"first", "second"}},
		{name: "blank line kept", text: "a\n\nb", width: 50, want: []string{"a", "", "b"}},
		{name: "crlf", text: "a\r\nb", width: 50, want: []string{"a", "b"}},
		{name: "overlong token alone", text: "hi supercalifragilistic yo", width: 5, want: []string{"hi", "supercalifragilistic", "yo"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := document.Wrap(tt.text, tt.width, measure)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Wrap(%q, %v) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}
