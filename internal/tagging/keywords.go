package tagging

import (
	"sort"
	"strings"
)

// stopwords are excluded from the generated keyword list; they carry no
// retrieval signal and would otherwise dominate by frequency.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"to": true, "of": true, "in": true, "on": true, "at": true, "for": true,
	"with": true, "by": true, "as": true, "it": true, "this": true, "that": true,
	"i": true, "you": true, "he": true, "she": true, "we": true, "they": true,
}

// Generate distills keywords from content, the final tag set, and linked
// entity names into a single space-joined string stored on the memory.
// Entity names and tags are always included verbatim (they're already
// curated signal); content contributes its most frequent non-stopword
// tokens.
func Generate(contentText string, tags []string, entityNames []string) string {
	seen := map[string]bool{}
	var out []string

	add := func(word string) {
		w := strings.ToLower(strings.TrimSpace(word))
		if w == "" || seen[w] {
			return
		}
		seen[w] = true
		out = append(out, w)
	}

	for _, t := range tags {
		add(t)
	}
	for _, n := range entityNames {
		add(n)
	}

	counts := map[string]int{}
	for _, tok := range strings.Fields(contentText) {
		w := strings.ToLower(trimPunct(tok))
		if w == "" || stopwords[w] || len(w) < 3 {
			continue
		}
		counts[w]++
	}
	type kv struct {
		word  string
		count int
	}
	ranked := make([]kv, 0, len(counts))
	for w, c := range counts {
		ranked = append(ranked, kv{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})
	const maxContentKeywords = 20
	for i, kv := range ranked {
		if i >= maxContentKeywords {
			break
		}
		add(kv.word)
	}

	return strings.Join(out, " ")
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		switch r {
		case '.', ',', '!', '?', ';', ':', '"', '\'', '(', ')', '[', ']', '{', '}':
			return true
		}
		return false
	})
}
