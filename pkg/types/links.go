package types

import "time"

// LinkType is the closed vocabulary of memory-to-memory relationships.
type LinkType string

const (
	LinkRelated      LinkType = "related"
	LinkElaborates   LinkType = "elaborates"
	LinkContradicts  LinkType = "contradicts"
	LinkSupersedes   LinkType = "supersedes"
	LinkSupports     LinkType = "supports"
	LinkDerivedFrom  LinkType = "derived_from"
)

// Valid reports whether t is a recognized link type.
func (t LinkType) Valid() bool {
	switch t {
	case LinkRelated, LinkElaborates, LinkContradicts, LinkSupersedes, LinkSupports, LinkDerivedFrom:
		return true
	}
	return false
}

// MemoryLink is a typed, undirected-in-practice edge between two memories.
// At most one link exists per unordered (source, target) pair; Strength is
// monotone non-decreasing as re-linking strengthens an existing edge.
type MemoryLink struct {
	SourceMemoryID string    `json:"source_memory_id"`
	TargetMemoryID string    `json:"target_memory_id"`
	LinkType       LinkType  `json:"link_type"`
	Strength       float64   `json:"strength"`
	CreatedAt      time.Time `json:"created_at"`
}

// UnorderedKey returns a pair key independent of source/target order, used
// to enforce the "at most one link per unordered pair" invariant.
func UnorderedKey(a, b string) [2]string {
	if a <= b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}
