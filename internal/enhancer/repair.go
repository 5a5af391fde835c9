package enhancer

import (
	"regexp"
	"strings"
)

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// repairJSON applies a bounded set of fixes to a malformed completion
// payload: trim any prose around the outermost object, strip trailing commas
// and close unbalanced braces/brackets. It does not attempt anything beyond
// that; a payload it cannot fix falls back to heuristics.
func repairJSON(raw string) string {
	s := raw

	// Models often wrap JSON in markdown fences or prose.
	if start := strings.IndexAny(s, "{["); start >= 0 {
		s = s[start:]
	}
	if end := strings.LastIndexAny(s, "}]"); end >= 0 {
		s = s[:end+1]
	}

	s = trailingCommaRe.ReplaceAllString(s, "$1")

	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				stack = append(stack, c)
			}
		case '}', ']':
			if !inString && len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if inString {
		s += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			s += "}"
		} else {
			s += "]"
		}
	}
	return s
}
