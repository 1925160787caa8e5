package agent

import (
	"regexp"
	"strings"
)

var bracketRe = regexp.MustCompile(`\[(.*?)\]`)

// ParseRole extracts the first bracketed name from text and returns its index
// among candidates, compared case-insensitively. It returns -1 when no
// bracket is present or the name is not a candidate.
func ParseRole(text string, candidates []string) int {
	m := bracketRe.FindStringSubmatch(text)
	if m == nil {
		return -1
	}
	selected := strings.ToLower(m[1])
	for i, c := range candidates {
		if strings.ToLower(c) == selected {
			return i
		}
	}
	return -1
}
