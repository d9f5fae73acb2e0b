package search

import (
	"context"
	"fmt"

	"github.com/memcore/memcore/pkg/types"
)

// GetByIDs fetches memories by id and implicitly credits any id found
// within a still-live tracked result set's TTL window, per spec's
// feedback loop.
func (e *Engine) GetByIDs(ctx context.Context, ids []string) ([]types.Memory, error) {
	out := make([]types.Memory, 0, len(ids))
	for _, id := range ids {
		m, err := e.backend.Memories().Get(ctx, id)
		if err != nil {
			continue
		}
		if tags, err := e.backend.Tags().TagsOf(ctx, id); err == nil {
			m.Tags = tags
		}
		out = append(out, *m)
		if e.wasRecentlyResulted(id) {
			if err := e.backend.Memories().IncrementUsefulCount(ctx, id); err != nil {
				return nil, fmt.Errorf("search: implicit useful credit: %w", err)
			}
		}
	}
	return out, nil
}

// MarkUseful explicitly bumps useful_count for every id, independent of
// whether it appeared in a tracked result set.
func (e *Engine) MarkUseful(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := e.backend.Memories().IncrementUsefulCount(ctx, id); err != nil {
			return fmt.Errorf("search: mark useful %s: %w", id, err)
		}
	}
	return nil
}
