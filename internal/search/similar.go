package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/memcore/memcore/internal/storage"
)

// SearchSimilar finds memories related to memoryID by reusing its tags and
// linked entity names as a synthetic query, filtering the source memory
// itself out of the result set.
func (e *Engine) SearchSimilar(ctx context.Context, memoryID string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}

	source, err := e.backend.Memories().Get(ctx, memoryID)
	if err != nil {
		return nil, fmt.Errorf("search: similar: load source: %w", err)
	}
	tags, err := e.backend.Tags().TagsOf(ctx, memoryID)
	if err != nil {
		return nil, fmt.Errorf("search: similar: load tags: %w", err)
	}
	entities, err := e.backend.Entities().EntitiesForMemory(ctx, memoryID)
	if err != nil {
		return nil, fmt.Errorf("search: similar: load entities: %w", err)
	}

	var parts []string
	parts = append(parts, tags...)
	for _, ent := range entities {
		parts = append(parts, ent.Name)
	}
	if len(parts) == 0 {
		parts = strings.Fields(source.Content)
	}

	resp, err := e.Search(ctx, storage.SearchOptions{
		Query: strings.Join(parts, " "),
		Limit: limit + 1,
	})
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, limit)
	for _, r := range resp.Results {
		if r.Memory.ID == memoryID {
			continue
		}
		out = append(out, r)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
