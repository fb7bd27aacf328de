package slug

import (
	"regexp"
	"strings"
)

const maxLength = 48

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

// Make lowercases input and collapses everything else to single dashes,
// for use in file names.
func Make(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = nonAlphaNum.ReplaceAllString(s, "-")
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return "anonymous"
	}
	return s
}
