package strutil

import (
	"strings"
	"unicode/utf8"
)

// Excerpt returns at most limit runes of s, never splitting a UTF-8 sequence.
// A non-positive limit returns s unchanged.
func Excerpt(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}

	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

// NonBlankLines splits text on line breaks and returns the trimmed lines that
// are not empty, in input order.
func NonBlankLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
