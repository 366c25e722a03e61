// Package strings provides string-slice helpers for registration data and
// space-delimited OAuth parameters.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
//	DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "})
//	// []string{"foo", "bar"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// NormalizeSpaceList collapses a space-delimited parameter such as scope into
// single-space separated, de-duplicated tokens. Order is preserved.
//
//	NormalizeSpaceList("  openid profile  openid")
//	// "openid profile"
func NormalizeSpaceList(value string) string {
	return strings.Join(DedupeAndTrim(strings.Fields(value)), " ")
}
