package tagging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDedupesAndResolvesAliases(t *testing.T) {
	aliases := map[string]string{"js": "javascript"}
	got := Normalize([]string{"JS", " Go ", "go", "js"}, aliases)
	assert.Equal(t, []string{"javascript", "go"}, got)
}

func TestIsMetadataDetectsKnownTags(t *testing.T) {
	assert.True(t, IsMetadata([]string{"config"}))
	assert.False(t, IsMetadata([]string{"go", "project"}))
}

func TestAutoTagsHeuristics(t *testing.T) {
	tags := AutoTags("TODO: fix the bug in the deploy script before the meeting.")
	assert.Contains(t, tags, "todo")
	assert.Contains(t, tags, "bug")
	assert.Contains(t, tags, "meeting")
}

func TestGenerateKeywordsIncludesTagsAndEntities(t *testing.T) {
	kw := Generate("We discussed the roadmap for the project extensively today.", []string{"planning"}, []string{"Alice"})
	assert.Contains(t, kw, "planning")
	assert.Contains(t, kw, "alice")
	assert.Contains(t, kw, "roadmap")
}

func TestGenerateExcludesStopwords(t *testing.T) {
	kw := Generate("the and or but is are", nil, nil)
	assert.Empty(t, kw)
}
