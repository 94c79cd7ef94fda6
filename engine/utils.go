package engine

import (
	"strings"
)

// NormalizeTags trims every tag, drops empties and duplicates, and keeps the
// first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if len(tag) == 0 {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// ParseTags splits a comma-separated list such as "projects, scriptname".
func ParseTags(raw string) []string {
	return NormalizeTags(strings.Split(raw, ","))
}

func FormatTags(tags []string) string {
	return "[" + strings.Join(tags, ", ") + "]"
}
