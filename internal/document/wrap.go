package document

import "strings"

// Measurer reports the rendered width of text in millimetres.
type Measurer interface {
	Width(text string, font Font) float64
}

// Wrap breaks text into lines no wider than width using greedy word packing.
// Explicit newlines always start a new line and blank lines are kept. Words
// are never hyphenated; a word wider than width sits alone on its line.
func Wrap(text string, width float64, measure func(string) float64) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			candidate := current + " " + word
			if measure(candidate) <= width {
				current = candidate
				continue
			}
			lines = append(lines, current)
			current = word
		}
		lines = append(lines, current)
	}
	return lines
}
