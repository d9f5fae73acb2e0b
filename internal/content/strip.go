// Package content implements the write pipeline's text utilities: private
// block redaction, normalized content hashing, and paragraph/sentence-aware
// chunking. None of it ever persists anything; callers own storage.
package content

import (
	"regexp"
	"strings"

	"github.com/memcore/memcore/internal/memcoreerr"
)

var (
	privateBlockRE = regexp.MustCompile(`(?is)<private>.*?</private>`)
	extraNewlinesRE = regexp.MustCompile(`\n{3,}`)
)

// StripPrivate removes every maximal <private>...</private> region
// (case-insensitive, non-greedy so adjacent blocks don't merge across a
// shared boundary), collapses runs of three or more newlines into two, and
// trims surrounding whitespace. Nested <private> tags are not given special
// handling: the innermost closing tag ends the match, same as any other
// non-greedy regex would treat them.
//
// Returns ErrInvalidInput if the result is empty.
func StripPrivate(raw string) (string, error) {
	stripped := privateBlockRE.ReplaceAllString(raw, "")
	stripped = extraNewlinesRE.ReplaceAllString(stripped, "\n\n")
	stripped = strings.TrimSpace(stripped)
	if stripped == "" {
		return "", memcoreerr.ErrInvalidInput
	}
	return stripped, nil
}
