package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. Runs of whitespace become one underscore.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	cleaned := fileNameReplacer.Replace(name)
	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, cleaned)
	return strings.Join(strings.Fields(cleaned), "_")
}

// FoldContains reports whether needle occurs in haystack ignoring case.
// An empty needle matches everything.
func FoldContains(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return true
	}
	folder := cases.Fold()
	return strings.Contains(folder.String(haystack), folder.String(needle))
}
