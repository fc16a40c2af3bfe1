package model

import (
	"sort"
	"strings"
)

// NewSet builds a string set: values are trimmed, inner whitespace is
// collapsed, empties are dropped and duplicates are removed case-insensitively
// keeping the first spelling. The result is sorted so equal sets compare
// equal, and is never nil.
func NewSet(values ...string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.Join(strings.Fields(v), " ")
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

// SplitList splits a comma separated value into a set.
func SplitList(v string) []string {
	return NewSet(strings.Split(v, ",")...)
}
