package content

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

var (
	whitespaceRunRE    = regexp.MustCompile(`\s+`)
	trailingPunctRE    = regexp.MustCompile(`[[:punct:]]+$`)
)

// Normalize lowercases text, collapses runs of whitespace to a single
// space, and strips trailing punctuation, producing the canonical form two
// differently-formatted but substantively identical memories hash to the
// same digest under.
func Normalize(text string) string {
	n := strings.ToLower(text)
	n = whitespaceRunRE.ReplaceAllString(n, " ")
	n = strings.TrimSpace(n)
	n = trailingPunctRE.ReplaceAllString(n, "")
	return strings.TrimSpace(n)
}

// Hash returns the hex-encoded SHA-256 digest of the normalized form of
// text. Deterministic across processes and platforms, as required for the
// hash-uniqueness dedup constraint.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return fmt.Sprintf("%x", sum)
}
