package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

// EnvelopeVersion is bumped whenever the envelope shape changes in a way
// that import needs to branch on. Import rejects any version it doesn't
// recognize rather than guess at a migration.
const EnvelopeVersion = 1

// entityLinkExport is a best-effort (memory, entity) association; bulk
// export has no storage method returning the original per-link relevance,
// so it is not round-tripped (see DESIGN.md).
type entityLinkExport struct {
	MemoryID string `json:"memory_id"`
	EntityID string `json:"entity_id"`
}

// Envelope is the portable representation of a memcore database,
// JSON-encoded and independent of the SQLite/Postgres backend it was
// exported from. It carries memories, entities, relationships, entity
// links, memory links and goals; settings, the access log and the
// observability counters are not included.
type Envelope struct {
	Version       int                        `json:"version"`
	ExportedAt    time.Time                  `json:"exported_at"`
	Memories      []types.Memory             `json:"memories"`
	Entities      []types.Entity             `json:"entities"`
	Relationships []types.EntityRelationship `json:"relationships"`
	EntityLinks   []entityLinkExport         `json:"entity_links"`
	MemoryLinks   []types.MemoryLink         `json:"memory_links"`
	Goals         []types.Goal               `json:"goals"`
}

// BuildEnvelope walks backend and assembles a full Envelope in memory.
// Memories are paged through MemoryStore.List with IncludeInactive set so
// archived and superseded rows are carried too.
func BuildEnvelope(ctx context.Context, backend storage.Backend) (*Envelope, error) {
	env := &Envelope{Version: EnvelopeVersion, ExportedAt: time.Now().UTC()}

	const pageSize = 500
	for page := 1; ; page++ {
		result, err := backend.Memories().List(ctx, storage.ListOptions{
			Page: page, Limit: pageSize, IncludeInactive: true,
			SortBy: "created_at", SortOrder: "asc",
		})
		if err != nil {
			return nil, fmt.Errorf("backup: list memories: %w", err)
		}
		for i := range result.Items {
			m := result.Items[i]
			if tags, err := backend.Tags().TagsOf(ctx, m.ID); err == nil {
				m.Tags = tags
			}
			env.Memories = append(env.Memories, m)

			entities, err := backend.Entities().EntitiesForMemory(ctx, m.ID)
			if err != nil {
				continue
			}
			for _, e := range entities {
				env.EntityLinks = append(env.EntityLinks, entityLinkExport{MemoryID: m.ID, EntityID: e.ID})
			}
		}
		if !result.HasMore {
			break
		}
	}

	entities, err := backend.Entities().AllEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("backup: list entities: %w", err)
	}
	env.Entities = entities

	relationships, err := backend.Entities().AllRelationships(ctx)
	if err != nil {
		return nil, fmt.Errorf("backup: list relationships: %w", err)
	}
	env.Relationships = relationships

	links, err := backend.Links().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("backup: list links: %w", err)
	}
	env.MemoryLinks = links

	goals, err := backend.Goals().List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("backup: list goals: %w", err)
	}
	env.Goals = goals

	return env, nil
}

// MarshalEnvelope serializes env to indented JSON.
func MarshalEnvelope(env *Envelope) ([]byte, error) {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("backup: marshal envelope: %w", err)
	}
	return data, nil
}

// UnmarshalEnvelope parses a JSON envelope and rejects unrecognized versions.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("backup: unmarshal envelope: %w", err)
	}
	if env.Version != EnvelopeVersion {
		return nil, fmt.Errorf("backup: unsupported envelope version %d (want %d)", env.Version, EnvelopeVersion)
	}
	return &env, nil
}

// RestoreEnvelope replays env into backend. Memories are inserted first
// (preserving their original ids/timestamps) since entities, links, and
// goals all reference memory ids; relationships and entity links are
// replayed only for entities/memories that round-tripped. Import is
// best-effort per row: a row that fails to insert (e.g. because it
// already exists) is skipped rather than aborting the whole restore.
func RestoreEnvelope(ctx context.Context, backend storage.Backend, env *Envelope) (RestoreReport, error) {
	var report RestoreReport

	for i := range env.Memories {
		m := env.Memories[i]
		if err := backend.Memories().Insert(ctx, &m); err != nil {
			report.MemoriesSkipped++
			continue
		}
		report.MemoriesRestored++
		if len(m.Tags) > 0 {
			_ = backend.Tags().SetTags(ctx, m.ID, m.Tags)
		}
	}

	// FindOrCreateByName always assigns a fresh id (or reuses one found by
	// name), so the original entity ids in env don't survive restore; every
	// reference to an entity id must be translated through this map.
	idMap := make(map[string]string, len(env.Entities))
	for i := range env.Entities {
		e := env.Entities[i]
		restored, err := backend.Entities().FindOrCreateByName(ctx, e.Name, e.Type)
		if err != nil {
			report.EntitiesSkipped++
			continue
		}
		idMap[e.ID] = restored.ID
		report.EntitiesRestored++
	}

	for _, link := range env.EntityLinks {
		newEntityID, ok := idMap[link.EntityID]
		if !ok {
			continue
		}
		if err := backend.Entities().LinkMemory(ctx, link.MemoryID, newEntityID, 1.0); err == nil {
			report.EntityLinksRestored++
		}
	}

	for i := range env.Relationships {
		r := env.Relationships[i]
		source, sourceOK := idMap[r.SourceEntityID]
		target, targetOK := idMap[r.TargetEntityID]
		if !sourceOK || !targetOK {
			continue
		}
		r.ID, r.SourceEntityID, r.TargetEntityID = "", source, target
		if err := backend.Entities().UpsertRelationship(ctx, &r); err != nil {
			continue
		}
		report.RelationshipsRestored++
	}

	for i := range env.MemoryLinks {
		l := env.MemoryLinks[i]
		if err := backend.Links().Upsert(ctx, &l); err != nil {
			continue
		}
		report.MemoryLinksRestored++
	}

	for i := range env.Goals {
		g := env.Goals[i]
		if err := backend.Goals().Insert(ctx, &g); err != nil {
			report.GoalsSkipped++
			continue
		}
		report.GoalsRestored++
	}

	return report, nil
}

// RestoreReport counts how many rows of each kind were replayed vs
// skipped during RestoreEnvelope.
type RestoreReport struct {
	MemoriesRestored      int
	MemoriesSkipped       int
	EntitiesRestored      int
	EntitiesSkipped       int
	EntityLinksRestored   int
	RelationshipsRestored int
	MemoryLinksRestored   int
	GoalsRestored         int
	GoalsSkipped          int
}
