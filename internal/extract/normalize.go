package extract

import (
	"regexp"
	"strings"
)

var (
	tagRe   = regexp.MustCompile(`<[^>]+>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// Normalize flattens a fragment to a single line: tag-like substrings are
// dropped, whitespace runs (including NBSP) collapse to one space, edges
// are trimmed. Tags are replaced with a space before collapsing so removal
// never glues adjacent words together.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = tagRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, " ", " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
