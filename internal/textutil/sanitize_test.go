package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  Jane Doe ", "Jane_Doe"},
		{"A/B:C*D", "A-B-C-D"},
		{"Who? <Me>", "Who_Me"},
		{"tab\tseparated  name", "tab_separated_name"},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q want %q", tt.in, got, tt.want)
		}
	}
}

func TestFoldContains(t *testing.T) {
	if !FoldContains("Jane DOE", "doe") {
		t.Fatal("expected case-insensitive match")
	}
	if !FoldContains("anything", "  ") {
		t.Fatal("expected empty needle to match")
	}
	if FoldContains("P-100", "p-200") {
		t.Fatal("unexpected match")
	}
}
