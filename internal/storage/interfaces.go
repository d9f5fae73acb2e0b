package storage

import (
	"context"

	"github.com/memcore/memcore/pkg/types"
)

// MemoryStore is the core persistence contract for the memories table and
// its chunk children. All methods operate within whatever transaction the
// context carries when the backend supports one; see TxRunner.
type MemoryStore interface {
	Insert(ctx context.Context, m *types.Memory) error
	Get(ctx context.Context, id string) (*types.Memory, error)
	Update(ctx context.Context, m *types.Memory) error
	Delete(ctx context.Context, id string) error // hard delete, cascades
	Archive(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) (*PaginatedResult[types.Memory], error)

	// FindActiveByHash returns the active, non-chunk memory matching
	// (contentType, hash), or ErrNotFound.
	FindActiveByHash(ctx context.Context, contentType types.ContentType, hash string) (*types.Memory, error)

	// RecentActiveByType returns up to limit active, non-chunk memories of
	// contentType ordered newest-first, for semantic dedup scanning.
	RecentActiveByType(ctx context.Context, contentType types.ContentType, limit int) ([]types.Memory, error)

	// ChunksOf returns a parent's chunk children ordered by chunk_index.
	ChunksOf(ctx context.Context, parentID string) ([]types.Memory, error)
	DeleteChunks(ctx context.Context, parentID string) error

	RecordAccess(ctx context.Context, id string, query string) error
	IncrementUsefulCount(ctx context.Context, id string) error
	Supersede(ctx context.Context, oldID, newID string) error

	// CandidatesForVectorSearch returns up to limit active memories
	// (including chunks) with a non-null embedding, matching filters.
	CandidatesForVectorSearch(ctx context.Context, opts SearchOptions, limit int) ([]types.Memory, error)
}

// SearchProvider runs the lexical (FTS) side of hybrid retrieval.
type SearchProvider interface {
	// LexicalSearch returns memory IDs and their raw negated-rank score,
	// highest relevance first.
	LexicalSearch(ctx context.Context, query string, opts SearchOptions, limit int) ([]LexicalHit, error)
	Reindex(ctx context.Context, m *types.Memory) error
	RemoveFromIndex(ctx context.Context, id string) error
}

// LexicalHit is one FTS match before fusion with vector/recency/frequency
// scores.
type LexicalHit struct {
	MemoryID string
	RawScore float64
}

// TagStore manages memory_tags, tag_alias, and the metadata-tag set.
type TagStore interface {
	SetTags(ctx context.Context, memoryID string, tags []string) error
	TagsOf(ctx context.Context, memoryID string) ([]string, error)
	AliasMap(ctx context.Context) (map[string]string, error)
	DeleteTags(ctx context.Context, memoryID string) error
}

// EntityStore manages entities, entity_tags, memory_entities, and
// entity_relationships.
type EntityStore interface {
	FindOrCreateByName(ctx context.Context, name string, entityType types.EntityType) (*types.Entity, error)
	LinkMemory(ctx context.Context, memoryID, entityID string, relevance float64) error
	EntitiesForMemory(ctx context.Context, memoryID string) ([]types.Entity, error)
	UpsertRelationship(ctx context.Context, r *types.EntityRelationship) error
	AllEntities(ctx context.Context) ([]types.Entity, error)
	AllRelationships(ctx context.Context) ([]types.EntityRelationship, error)
	MemoriesWithoutEntities(ctx context.Context, limit int) ([]types.Memory, error)
	OrphanEntities(ctx context.Context) ([]types.Entity, error)
	DeleteMemoryLinks(ctx context.Context, memoryID string) error
}

// LinkStore manages memory_links (memory-to-memory edges).
type LinkStore interface {
	Upsert(ctx context.Context, link *types.MemoryLink) error
	Remove(ctx context.Context, a, b string) error
	LinkedTo(ctx context.Context, memoryID string) ([]types.MemoryLink, error)
	DeleteAllFor(ctx context.Context, memoryID string) error
	All(ctx context.Context) ([]types.MemoryLink, error)
}

// GoalStore manages goals and milestones.
type GoalStore interface {
	Insert(ctx context.Context, g *types.Goal) error
	Get(ctx context.Context, id string) (*types.Goal, error)
	Update(ctx context.Context, g *types.Goal) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, status types.GoalStatus) ([]types.Goal, error)
}

// SettingsStore is the DB layer of the layered configuration system
// (file defaults < env < DB).
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}

// CounterStore increments named observability counters (best-effort
// post-insert failures, dedup outcomes, benchmark writes).
type CounterStore interface {
	Increment(ctx context.Context, key string, delta int64) error
	All(ctx context.Context) (map[string]int64, error)
}

// AccessLogStore appends and reads access_log rows for frequency scoring
// and co-retrieval link building.
type AccessLogStore interface {
	Append(ctx context.Context, log types.AccessLog) error
	RecentForMemory(ctx context.Context, memoryID string, limit int) ([]types.AccessLog, error)
	CoRetrieved(ctx context.Context, windowSeconds int) (map[[2]string]int, error)
	CountForMemory(ctx context.Context, memoryID string) (int, error)
}

// TxRunner runs fn within a single database transaction, matching spec
// §5's "every write operation executes inside one transaction" invariant.
// Implementations pass a context carrying the transaction to fn so nested
// store calls participate in it transparently.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Backend bundles every store interface a concrete backend implements,
// so internal/memory and friends depend on one constructor result instead
// of wiring nine interfaces by hand.
type Backend interface {
	TxRunner
	Memories() MemoryStore
	Search() SearchProvider
	Tags() TagStore
	Entities() EntityStore
	Links() LinkStore
	Goals() GoalStore
	Settings() SettingsStore
	Counters() CounterStore
	AccessLog() AccessLogStore
	Close() error
}
