// Package strings provides string list helpers for configuration parsing.
package strings

import (
	"strings"
)

// SplitList splits a comma-separated value, trimming whitespace and dropping
// empty and repeated entries. Order is preserved.
//
// Example:
//
//	SplitList(" a:9092, ,b:9092,a:9092")
//	// Returns: []string{"a:9092", "b:9092"}
func SplitList(csv string) []string {
	return dedupe(strings.Split(csv, ","), strings.TrimSpace)
}

// DedupeLower trims and lowercases each value and drops empty and repeated
// entries. Identities are compared this way throughout the service.
func DedupeLower(values []string) []string {
	return dedupe(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func dedupe(values []string, normalize func(string) string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = normalize(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
