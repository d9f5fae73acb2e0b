// Package tagging implements tag normalization, content-to-tag heuristics,
// and keyword distillation for the write pipeline's post-insert step.
package tagging

import (
	"sort"
	"strings"
)

// MetadataTags is the set of tags whose presence marks a memory as
// is_metadata (configuration-like rather than substantive knowledge).
var MetadataTags = map[string]bool{
	"config":     true,
	"settings":   true,
	"preference": true,
	"system":     true,
}

// Normalize lowercases and trims each tag, resolves aliases via aliasMap,
// deduplicates, and preserves first-occurrence order.
func Normalize(tags []string, aliasMap map[string]string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if alias, ok := aliasMap[t]; ok {
			t = alias
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// IsMetadata reports whether tags contains any well-known metadata tag.
func IsMetadata(tags []string) bool {
	for _, t := range tags {
		if MetadataTags[t] {
			return true
		}
	}
	return false
}

// contentHeuristics maps a lowercase keyword present in content to the tag
// it implies. Matching is whole-word; a content body can trigger several.
var contentHeuristics = map[string]string{
	"todo":       "todo",
	"fixme":      "todo",
	"bug":        "bug",
	"decision":   "decision",
	"decided":    "decision",
	"meeting":    "meeting",
	"idea":       "idea",
	"question":   "question",
	"deadline":   "deadline",
	"retro":      "retrospective",
	"postmortem": "postmortem",
	"incident":   "incident",
}

// AutoTags derives heuristic tags from content. Tags already present in
// existingTags are not duplicated by the caller (the pipeline merges via
// Normalize afterward), so AutoTags returns only the ones content implies.
func AutoTags(contentText string) []string {
	lower := strings.ToLower(contentText)
	var out []string
	for word, tag := range contentHeuristics {
		if containsWord(lower, word) {
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}

func containsWord(lower, word string) bool {
	idx := 0
	for {
		pos := strings.Index(lower[idx:], word)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(word)
		beforeOK := start == 0 || !isWordByte(lower[start-1])
		afterOK := end == len(lower) || !isWordByte(lower[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
