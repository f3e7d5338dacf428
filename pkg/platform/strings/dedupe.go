// Package strings holds small helpers for parsing list-valued settings.
package strings

import (
	"strings"
)

// SplitList splits v on sep, trims each item and drops empties and repeats.
// Order of first appearance is kept. An empty input yields nil.
func SplitList(v, sep string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(v, sep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
