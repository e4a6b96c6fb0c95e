package utils

import "strings"

// FirstN returns the first n runes of s, useful for truncating prompts and
// responses in log output.
func FirstN(s string, n int) string {
	i := 0
	for j := range s {
		if i == n {
			return s[:j]
		}
		i++
	}
	return s
}

// HasAnyPrefix reports whether s starts with any of the given prefixes.
func HasAnyPrefix(s string, prefixes ...string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
