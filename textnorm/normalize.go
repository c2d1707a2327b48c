// Package textnorm cleans raw extracted document text before chunking.
package textnorm

import "strings"

// Normalize replaces every whitespace run (newlines included) with a single
// space and trims both ends. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}

// IsBlank reports whether text normalizes to an empty string.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
