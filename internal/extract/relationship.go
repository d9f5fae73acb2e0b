package extract

import (
	"regexp"
	"strings"
)

// Relationship is one extracted (source, target, relationship, context)
// candidate, matched against entity names the caller already extracted.
type Relationship struct {
	Source       string
	Target       string
	Relationship string
	Confidence   float64
	Context      string
}

// relationPattern is one templated verb pattern: Regex must have exactly
// two capture groups (source name, target phrase before optional trailing
// context). Target phrase is trimmed of a trailing "for/to/in/as/with ..."
// clause, which is reported separately as Context.
type relationPattern struct {
	Regex        *regexp.Regexp
	Relationship string
	Confidence   float64
}

var relationPatterns = []relationPattern{
	{regexp.MustCompile(`\b([A-Z][\w.]*(?:\s[A-Z][\w.]*)?)\s+(?i:works?\s+at)\s+([A-Z][\w.]*(?:\s[A-Z][\w.]*)?)`), "works_at", 0.8},
	{regexp.MustCompile(`\b([A-Z][\w.]*(?:\s[A-Z][\w.]*)?)\s+(?i:uses?)\s+([A-Z][\w.]*(?:\s[A-Z][\w.]*)?)`), "uses", 0.75},
	{regexp.MustCompile(`\b([A-Z][\w.]*(?:\s[A-Z][\w.]*)?)\s+(?i:(?:is\s+)?built\s+with)\s+([A-Z][\w.]*(?:\s[A-Z][\w.]*)?)`), "built_with", 0.75},
	{regexp.MustCompile(`\b([A-Z][\w.]*(?:\s[A-Z][\w.]*)?)\s+(?i:created|built|made)\s+([A-Z][\w.]*(?:\s[A-Z][\w.]*)?)`), "created", 0.75},
	{regexp.MustCompile(`\b([A-Z][\w.]*(?:\s[A-Z][\w.]*)?)\s+(?i:replaces?)\s+([A-Z][\w.]*(?:\s[A-Z][\w.]*)?)`), "replaces", 0.7},
	{regexp.MustCompile(`\b([A-Z][\w.]*(?:\s[A-Z][\w.]*)?)\s+(?i:works?\s+on|leads?|manages?)\s+([A-Z][\w.]*(?:\s[A-Z][\w.]*)?)`), "works_on", 0.7},
}

var trailingContextRE = regexp.MustCompile(`(?i)^(.*?)\s+(?:for|to|in|as|with)\s+(.+)$`)

// Relationships extracts relationship candidates from content, matching
// endpoints back against knownEntities (case-insensitive). Self-relationships
// are rejected, and the matches are passed through Dedupe before returning,
// so each (source, target, relationship) triple appears once.
func Relationships(contentText string, knownEntities []Entity) []Relationship {
	byLower := make(map[string]string, len(knownEntities))
	for _, e := range knownEntities {
		byLower[strings.ToLower(e.Name)] = e.Name
	}

	var out []Relationship
	for _, pat := range relationPatterns {
		for _, m := range pat.Regex.FindAllStringSubmatch(contentText, -1) {
			source := strings.TrimSpace(m[1])
			target := strings.TrimSpace(m[2])
			context := ""
			if sub := trailingContextRE.FindStringSubmatch(target); sub != nil {
				target = strings.TrimSpace(sub[1])
				context = strings.TrimSpace(sub[2])
			}

			resolvedSource, ok := byLower[strings.ToLower(source)]
			if !ok {
				continue
			}
			resolvedTarget, ok := byLower[strings.ToLower(target)]
			if !ok {
				continue
			}
			if strings.EqualFold(resolvedSource, resolvedTarget) {
				continue
			}

			out = append(out, Relationship{
				Source:       resolvedSource,
				Target:       resolvedTarget,
				Relationship: pat.Relationship,
				Confidence:   pat.Confidence,
				Context:      context,
			})
		}
	}
	return Dedupe(out)
}

// Dedupe collapses duplicate (source, target, relationship) triples,
// keeping the highest-confidence occurrence and its context.
func Dedupe(rels []Relationship) []Relationship {
	best := map[[3]string]Relationship{}
	for _, r := range rels {
		key := [3]string{strings.ToLower(r.Source), strings.ToLower(r.Target), r.Relationship}
		if existing, ok := best[key]; !ok || r.Confidence > existing.Confidence {
			best[key] = r
		}
	}
	out := make([]Relationship, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	return out
}
