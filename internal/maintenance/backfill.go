package maintenance

import (
	"context"
	"fmt"
	"strings"

	"github.com/memcore/memcore/internal/extract"
	"github.com/memcore/memcore/internal/ids"
	"github.com/memcore/memcore/pkg/types"
)

const backfillBatchSize = 100

// BackfillEntities runs entity and relationship extraction for every active
// memory that has no entity links yet, the same extraction internal/memory
// runs synchronously at write time — this exists for memories written
// before extraction existed, or whose extraction step failed and was never
// retried. Returns the number of memories backfilled.
func (s *Service) BackfillEntities(ctx context.Context) (int, error) {
	total := 0
	for {
		batch, err := s.backend.Entities().MemoriesWithoutEntities(ctx, backfillBatchSize)
		if err != nil {
			return total, fmt.Errorf("maintenance: list memories without entities: %w", err)
		}
		if len(batch) == 0 {
			return total, nil
		}
		for i := range batch {
			if err := s.backfillOne(ctx, &batch[i]); err != nil {
				return total, err
			}
			total++
			s.incr(ctx, types.CounterMaintenanceBackfilled)
		}
		if len(batch) < backfillBatchSize {
			if total > 0 {
				s.publishRun("backfill_entities")
			}
			return total, nil
		}
	}
}

func (s *Service) backfillOne(ctx context.Context, m *types.Memory) error {
	extracted := extract.Entities(m.Content)
	entityIDByName := map[string]string{}

	for _, e := range extracted {
		entity, err := s.backend.Entities().FindOrCreateByName(ctx, e.Name, e.Type)
		if err != nil {
			return fmt.Errorf("maintenance: find_or_create entity for %s: %w", m.ID, err)
		}
		if err := s.backend.Entities().LinkMemory(ctx, m.ID, entity.ID, e.Confidence); err != nil {
			return fmt.Errorf("maintenance: link entity for %s: %w", m.ID, err)
		}
		entityIDByName[strings.ToLower(entity.Name)] = entity.ID
	}

	for _, rel := range extract.Relationships(m.Content, extracted) {
		srcID, haveSrc := entityIDByName[strings.ToLower(rel.Source)]
		tgtID, haveTgt := entityIDByName[strings.ToLower(rel.Target)]
		if !haveSrc || !haveTgt {
			continue
		}
		err := s.backend.Entities().UpsertRelationship(ctx, &types.EntityRelationship{
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
			return fmt.Errorf("maintenance: upsert relationship for %s: %w", m.ID, err)
		}
	}
	return nil
}
