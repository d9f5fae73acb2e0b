package memory

import (
	"context"
	"log"
	"strings"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/internal/extract"
	"github.com/memcore/memcore/internal/ids"
	"github.com/memcore/memcore/internal/tagging"
	"github.com/memcore/memcore/pkg/types"
)

// enrich implements step 9: entity extraction, relationship extraction,
// auto-tagging, and keyword generation, run against m's full content.
// Every sub-step is best-effort — a failure is logged and counted, never
// propagated, and never rolls back the insert that already committed.
func (p *Pipeline) enrich(ctx context.Context, cfg *config.Config, m *types.Memory) {
	entExtracted := extract.Entities(m.Content)
	entityIDByName := map[string]string{}
	var entityNames []string

	for _, e := range entExtracted {
		entity, err := p.backend.Entities().FindOrCreateByName(ctx, e.Name, e.Type)
		if err != nil {
			p.postInsertFailure(ctx, "find_or_create_entity", err)
			continue
		}
		if err := p.backend.Entities().LinkMemory(ctx, m.ID, entity.ID, e.Confidence); err != nil {
			p.postInsertFailure(ctx, "link_entity", err)
		}
		entityIDByName[strings.ToLower(entity.Name)] = entity.ID
		entityNames = append(entityNames, entity.Name)
	}

	for _, rel := range extract.Relationships(m.Content, entExtracted) {
		srcID, haveSrc := entityIDByName[strings.ToLower(rel.Source)]
		tgtID, haveTgt := entityIDByName[strings.ToLower(rel.Target)]
		if !haveSrc || !haveTgt {
			continue
		}
		err := p.backend.Entities().UpsertRelationship(ctx, &types.EntityRelationship{
			ID:             ids.New(),
			SourceEntityID: srcID,
			TargetEntityID: tgtID,
			Relationship:   rel.Relationship,
			Confidence:     rel.Confidence,
			SourceMemoryID: m.ID,
			Context:        rel.Context,
			CreatedAt:      now(),
		})
		if err != nil {
			p.postInsertFailure(ctx, "upsert_relationship", err)
		}
	}

	finalTags := m.Tags
	if cfg.AutoTagging.Enabled {
		if aliasMap, err := p.backend.Tags().AliasMap(ctx); err != nil {
			p.postInsertFailure(ctx, "load_alias_map_for_autotag", err)
		} else {
			auto := tagging.AutoTags(m.Content)
			merged := tagging.Normalize(append(append([]string{}, m.Tags...), auto...), aliasMap)
			if !sameTags(merged, m.Tags) {
				if err := p.backend.Tags().SetTags(ctx, m.ID, merged); err != nil {
					p.postInsertFailure(ctx, "set_auto_tags", err)
				} else {
					finalTags = merged
				}
			}
		}
	}

	m.Tags = finalTags
	m.Keywords = tagging.Generate(m.Content, finalTags, entityNames)
	if err := p.backend.Memories().Update(ctx, m); err != nil {
		p.postInsertFailure(ctx, "write_keywords", err)
	}
}

func (p *Pipeline) postInsertFailure(ctx context.Context, step string, err error) {
	log.Printf("memcore/memory: post-insert step %q failed (best-effort, not rolled back): %v", step, err)
	p.incr(ctx, types.CounterPostInsertFailures)
}

func sameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
