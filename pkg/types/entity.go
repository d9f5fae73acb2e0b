package types

import "time"

// EntityType is the closed vocabulary the extractor recognizes.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityProject      EntityType = "project"
	EntityTechnology   EntityType = "technology"
	EntityOrganization EntityType = "organization"
	EntityConcept      EntityType = "concept"
)

// Valid reports whether t is a recognized entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityPerson, EntityProject, EntityTechnology, EntityOrganization, EntityConcept:
		return true
	}
	return false
}

// Entity is a named thing extracted from memory content. Names are unique
// case-insensitively; extraction reuses an existing entity on name match
// rather than creating a duplicate.
type Entity struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Type      EntityType     `json:"type"`
	Aliases   []string       `json:"aliases,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// EntityLink associates a memory with an entity it mentions. One link
// exists per (memory, entity) pair; re-linking overwrites Relevance.
type EntityLink struct {
	MemoryID  string    `json:"memory_id"`
	EntityID  string    `json:"entity_id"`
	Relevance float64   `json:"relevance"`
	CreatedAt time.Time `json:"created_at"`
}

// EntityRelationship is a typed, directed, confidence-scored edge between
// two entities, deduplicated by (source, target, relationship).
type EntityRelationship struct {
	ID               string    `json:"id"`
	SourceEntityID   string    `json:"source_entity_id"`
	TargetEntityID   string    `json:"target_entity_id"`
	Relationship     string    `json:"relationship"`
	Confidence       float64   `json:"confidence"`
	SourceMemoryID   string    `json:"source_memory_id,omitempty"`
	Context          string    `json:"context,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Key returns the deduplication key for this relationship.
func (r *EntityRelationship) Key() [3]string {
	return [3]string{r.SourceEntityID, r.TargetEntityID, r.Relationship}
}
