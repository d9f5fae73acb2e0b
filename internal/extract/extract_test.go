package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memcore/memcore/pkg/types"
)

func TestEntitiesRecognizesPersonOrganizationTechnology(t *testing.T) {
	ents := Entities("Alice works at Anthropic on Claude.")

	byName := map[string]Entity{}
	for _, e := range ents {
		byName[e.Name] = e
	}

	require.Contains(t, byName, "Alice")
	assert.Equal(t, types.EntityPerson, byName["Alice"].Type)

	require.Contains(t, byName, "Anthropic")
	assert.Equal(t, types.EntityOrganization, byName["Anthropic"].Type)

	require.Contains(t, byName, "Claude")
	assert.Equal(t, types.EntityTechnology, byName["Claude"].Type)
}

func TestEntitiesDedupesByName(t *testing.T) {
	ents := Entities("Go is great. Go is fast. I use Go every day.")
	count := 0
	for _, e := range ents {
		if e.Name == "Go" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestRelationshipsWorksAt(t *testing.T) {
	ents := Entities("Alice works at Anthropic on Claude.")
	rels := Relationships("Alice works at Anthropic on Claude.", ents)

	require.NotEmpty(t, rels)
	found := false
	for _, r := range rels {
		if r.Source == "Alice" && r.Target == "Anthropic" && r.Relationship == "works_at" {
			found = true
			assert.GreaterOrEqual(t, r.Confidence, 0.7)
		}
	}
	assert.True(t, found)
}

func TestRelationshipsRejectsSelfRelationship(t *testing.T) {
	ents := []Entity{{Name: "Go", Type: types.EntityTechnology}}
	rels := Relationships("Go uses Go internally.", ents)
	for _, r := range rels {
		assert.NotEqual(t, r.Source, r.Target)
	}
}

func TestRelationshipsDedupesTriples(t *testing.T) {
	rels := Dedupe([]Relationship{
		{Source: "A", Target: "B", Relationship: "uses", Confidence: 0.5},
		{Source: "A", Target: "B", Relationship: "uses", Confidence: 0.9},
		{Source: "A", Target: "C", Relationship: "uses", Confidence: 0.6},
	})
	assert.Len(t, rels, 2)
	for _, r := range rels {
		if r.Target == "B" {
			assert.Equal(t, 0.9, r.Confidence)
		}
	}
}

func TestRelationshipsUnknownEndpointsIgnored(t *testing.T) {
	rels := Relationships("Bob works at Initech.", nil)
	assert.Empty(t, rels)
}
