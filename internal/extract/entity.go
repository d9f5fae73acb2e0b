// Package extract implements rule/regex-based named entity and relationship
// extraction over a closed type vocabulary. There is no LLM in this path:
// curated word lists and templated patterns are the whole extractor.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/memcore/memcore/pkg/types"
)

// Entity is one extracted candidate, named to mirror the shape of an LLM
// extraction response even though nothing here calls a model: name, type,
// confidence.
type Entity struct {
	Name       string
	Type       types.EntityType
	Confidence float64
}

// technology, organization, and person-context words are matched
// case-insensitively as whole words against the raw content; a hit
// contributes a candidate of the corresponding type.
var technologyTerms = []string{
	"go", "golang", "python", "rust", "javascript", "typescript", "java",
	"kubernetes", "docker", "postgres", "postgresql", "sqlite", "redis",
	"kafka", "claude", "gpt", "react", "vue", "graphql", "grpc", "terraform",
	"linux", "aws", "gcp", "azure", "git", "github", "gitlab", "mysql",
	"mongodb", "elasticsearch", "nginx", "webassembly", "llm",
}

var organizationTerms = []string{
	"anthropic", "openai", "google", "microsoft", "amazon", "meta", "apple",
	"netflix", "stripe", "github", "gitlab", "vercel", "cloudflare",
}

// personContextVerbs precede a capitalized name in "<Name> <verb> ..."
// patterns that mark the name as a person rather than, say, a project.
var personContextVerbs = []string{
	"works", "said", "mentioned", "asked", "told", "reported", "joined",
	"wrote", "built", "created", "manages", "leads", "works at", "works on",
}

var capitalizedWordRE = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9]{1,30}\b`)

// verbBlocklist rejects capitalized tokens that are common sentence-start
// words, not names: this avoids mistaking "The", "This", "If" and similar
// for project/concept entities.
var verbBlocklist = map[string]bool{
	"The": true, "This": true, "That": true, "These": true, "Those": true,
	"If": true, "It": true, "We": true, "They": true, "I": true, "A": true,
	"An": true, "In": true, "On": true, "For": true, "And": true, "But": true,
	"So": true, "Because": true, "When": true, "While": true, "After": true,
}

// Entities extracts candidate entities from content. Output is
// per-name deduplicated (case-insensitive), keeping the highest confidence
// seen for each name.
func Entities(contentText string) []Entity {
	best := map[string]Entity{} // lowercase name -> best candidate

	consider := func(e Entity) {
		key := strings.ToLower(e.Name)
		if existing, ok := best[key]; !ok || e.Confidence > existing.Confidence {
			best[key] = e
		}
	}

	lower := strings.ToLower(contentText)
	for _, term := range technologyTerms {
		if containsWord(lower, term) {
			consider(Entity{Name: canonicalTerm(term), Type: types.EntityTechnology, Confidence: 0.75})
		}
	}
	for _, term := range organizationTerms {
		if containsWord(lower, term) {
			consider(Entity{Name: canonicalTerm(term), Type: types.EntityOrganization, Confidence: 0.75})
		}
	}

	for _, name := range capitalizedWordRE.FindAllString(contentText, -1) {
		if verbBlocklist[name] {
			continue
		}
		if containsWord(lower, strings.ToLower(name)) && isKnownTerm(strings.ToLower(name)) {
			continue // already captured as technology/organization above
		}
		if hasPersonContext(contentText, name) {
			consider(Entity{Name: name, Type: types.EntityPerson, Confidence: 0.7})
			continue
		}
		consider(Entity{Name: name, Type: types.EntityConcept, Confidence: 0.5})
	}

	out := make([]Entity, 0, len(best))
	for _, e := range best {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func isKnownTerm(lower string) bool {
	for _, t := range technologyTerms {
		if t == lower {
			return true
		}
	}
	for _, t := range organizationTerms {
		if t == lower {
			return true
		}
	}
	return false
}

func hasPersonContext(content, name string) bool {
	idx := strings.Index(content, name)
	if idx < 0 {
		return false
	}
	after := strings.ToLower(content[idx+len(name):])
	after = strings.TrimLeft(after, " ")
	for _, verb := range personContextVerbs {
		if strings.HasPrefix(after, verb) {
			return true
		}
	}
	return false
}

func containsWord(lowerText, word string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
	return re.MatchString(lowerText)
}

// canonicalTerm restores the conventional display capitalization for a few
// well-known lowercase technology/organization terms; everything else is
// title-cased.
var canonicalNames = map[string]string{
	"go": "Go", "golang": "Go", "python": "Python", "rust": "Rust",
	"javascript": "JavaScript", "typescript": "TypeScript", "java": "Java",
	"kubernetes": "Kubernetes", "docker": "Docker", "postgres": "PostgreSQL",
	"postgresql": "PostgreSQL", "sqlite": "SQLite", "redis": "Redis",
	"kafka": "Kafka", "claude": "Claude", "gpt": "GPT", "react": "React",
	"vue": "Vue", "graphql": "GraphQL", "grpc": "gRPC", "terraform": "Terraform",
	"linux": "Linux", "aws": "AWS", "gcp": "GCP", "azure": "Azure", "git": "Git",
	"github": "GitHub", "gitlab": "GitLab", "mysql": "MySQL", "mongodb": "MongoDB",
	"elasticsearch": "Elasticsearch", "nginx": "NGINX", "webassembly": "WebAssembly",
	"llm": "LLM", "anthropic": "Anthropic", "openai": "OpenAI", "google": "Google",
	"microsoft": "Microsoft", "amazon": "Amazon", "meta": "Meta", "apple": "Apple",
	"netflix": "Netflix", "stripe": "Stripe", "vercel": "Vercel", "cloudflare": "Cloudflare",
}

func canonicalTerm(term string) string {
	if name, ok := canonicalNames[term]; ok {
		return name
	}
	return strings.Title(term)
}
