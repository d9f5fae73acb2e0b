package maintenance

import (
	"context"
	"fmt"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/internal/ids"
	"github.com/memcore/memcore/pkg/types"
)

type entityPair [2]string

func pairKey(a, b string) entityPair {
	if a <= b {
		return entityPair{a, b}
	}
	return entityPair{b, a}
}

// DensifyGraph finds entity pairs that co-occur (appear linked to the same
// memory) in at least cfg.CoOccurrenceThreshold memories and aren't already
// directly related, and inserts a co_occurs relationship between them.
// Returns the number of relationships inserted.
func (s *Service) DensifyGraph(ctx context.Context, cfg config.GraphConfig) (int, error) {
	threshold := cfg.CoOccurrenceThreshold
	if threshold <= 0 {
		threshold = 3
	}

	counts := make(map[entityPair]int)
	err := s.forEachActiveMemory(ctx, func(m *types.Memory) error {
		entities, err := s.backend.Entities().EntitiesForMemory(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("maintenance: entities for %s: %w", m.ID, err)
		}
		for i := 0; i < len(entities); i++ {
			for j := i + 1; j < len(entities); j++ {
				counts[pairKey(entities[i].ID, entities[j].ID)]++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	existingRels, err := s.backend.Entities().AllRelationships(ctx)
	if err != nil {
		return 0, fmt.Errorf("maintenance: load relationships: %w", err)
	}
	related := make(map[entityPair]bool, len(existingRels))
	for _, r := range existingRels {
		related[pairKey(r.SourceEntityID, r.TargetEntityID)] = true
	}

	inserted := 0
	for pair, count := range counts {
		if count < threshold || related[pair] {
			continue
		}
		err := s.backend.Entities().UpsertRelationship(ctx, &types.EntityRelationship{
			ID:             ids.New(),
			SourceEntityID: pair[0],
			TargetEntityID: pair[1],
			Relationship:   "co_occurs",
			Confidence:     0.6,
			CreatedAt:      now(),
		})
		if err != nil {
			return inserted, fmt.Errorf("maintenance: insert co_occurs relationship: %w", err)
		}
		inserted++
		s.incr(ctx, types.CounterMaintenanceDensified)
	}
	if inserted > 0 {
		s.publishRun("densify_graph")
	}
	return inserted, nil
}
