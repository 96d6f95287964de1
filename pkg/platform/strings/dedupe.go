// Package strings provides string helpers shared by stores and adapters.
package strings

import (
	"strings"
)

// DistinctNonEmpty trims each value and returns the distinct non-empty ones.
// Order of first appearance is preserved.
//
// Example:
//
//	DistinctNonEmpty([]string{" 123-A-45", "123-A-45", "", "  "})
//	// Returns: []string{"123-A-45"}
func DistinctNonEmpty(values []string) []string {
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

// JoinNonEmpty joins the trimmed non-empty parts with a single space.
//
//	JoinNonEmpty("Amina", "", " Benali ") // "Amina Benali"
func JoinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, " ")
}

// AnyNonEmpty reports whether at least one value has non-whitespace content.
func AnyNonEmpty(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
