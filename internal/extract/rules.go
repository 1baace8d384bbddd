package extract

import (
	"regexp"
	"strings"
	"time"
)

// now is swapped out in tests; extraction itself keeps no other state.
var now = time.Now

// rule is one step of an ordered fallback chain: a pattern plus the parse
// step that turns a submatch into a value or rejects it. Chains are plain
// slices so every rule stays independently testable.
type rule[T any] struct {
	re    *regexp.Regexp
	parse func(m []string) (T, bool)
}

// firstAccepted walks rules in order and, within a rule, every match in
// document order. The first candidate that parses and passes validation
// wins; a rejected candidate never aborts the chain.
func firstAccepted[T any](rules []rule[T], text string) (T, bool) {
	for _, r := range rules {
		for _, m := range r.re.FindAllStringSubmatch(text, -1) {
			if v, ok := r.parse(m); ok {
				return v, true
			}
		}
	}
	var zero T
	return zero, false
}

// keywordRule maps any of its trigger substrings to a canonical label.
type keywordRule struct {
	keys  []string
	label string
}

// firstKeyword does a case-insensitive substring scan in priority order and
// returns "" when nothing triggers.
func firstKeyword(rules []keywordRule, text string) string {
	low := strings.ToLower(text)
	for _, r := range rules {
		for _, k := range r.keys {
			if strings.Contains(low, k) {
				return r.label
			}
		}
	}
	return ""
}
