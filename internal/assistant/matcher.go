package assistant

import "strings"

// Matches reports whether any trigger occurs in text as a contiguous
// substring. Both sides are expected to be lowercase already.
func Matches(triggers []string, text string) bool {
	for _, t := range triggers {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// Normalize turns raw input into an utterance: trimmed and lowercased.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// afterLast returns the part of s following the last sep. When sep does
// not occur the whole string is returned.
func afterLast(s, sep string) string {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s
	}
	return s[i+len(sep):]
}
