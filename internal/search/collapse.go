package search

import (
	"context"
	"fmt"

	"github.com/memcore/memcore/pkg/types"
)

// collapseChunks replaces each chunk hit with its parent memory, keeping
// the highest-scoring occurrence when several chunks of the same parent
// appear (duplicates are collapsed per spec §4.4); the chunk-level score
// stays visible by name in the reason string.
func (e *Engine) collapseChunks(ctx context.Context, results []Result) ([]Result, error) {
	parentCache := make(map[string]*types.Memory)
	best := make(map[string]Result, len(results))
	var order []string

	for _, r := range results {
		res := r
		key := r.Memory.ID

		if r.Memory.ParentID != "" {
			parent, ok := parentCache[r.Memory.ParentID]
			if !ok {
				p, err := e.backend.Memories().Get(ctx, r.Memory.ParentID)
				if err != nil {
					continue // parent archived/deleted concurrently; drop the orphaned chunk hit
				}
				tags, err := e.backend.Tags().TagsOf(ctx, p.ID)
				if err != nil {
					return nil, fmt.Errorf("search: load parent tags: %w", err)
				}
				p.Tags = tags
				parent = p
				parentCache[r.Memory.ParentID] = parent
			}
			key = parent.ID
			res.Memory = *parent
			if r.Memory.ChunkIndex != nil {
				res.Reason = fmt.Sprintf("%s (chunk %d)", r.Reason, *r.Memory.ChunkIndex)
			}
		}

		if existing, seen := best[key]; !seen || res.Score > existing.Score {
			if !seen {
				order = append(order, key)
			}
			best[key] = res
		}
	}

	out := make([]Result, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out, nil
}
