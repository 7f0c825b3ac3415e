package util

import (
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`[ \t]+`)

// NormalizeWhitespace trims and collapses runs of spaces and tabs to single
// spaces. Newlines are kept; tweets use them for structure.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
