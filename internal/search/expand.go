package search

import (
	"context"

	"github.com/memcore/memcore/internal/config"
)

// expandLinks follows memory-link edges one hop out from the primary
// result ids, returning an annex capped at the configured budget. A
// neighbor already present in primaryIDs is skipped — it's already a
// first-class result, not an expansion.
func (e *Engine) expandLinks(ctx context.Context, primaryIDs []string, cfg config.SearchConfig) ([]LinkedRef, error) {
	if len(primaryIDs) == 0 {
		return nil, nil
	}
	budget := cfg.LinkExpansionBudget
	if budget <= 0 {
		budget = 20
	}
	floor := cfg.LinkExpansionFloor

	primary := make(map[string]bool, len(primaryIDs))
	for _, id := range primaryIDs {
		primary[id] = true
	}

	seen := make(map[string]bool)
	var out []LinkedRef

	for _, id := range primaryIDs {
		if len(out) >= budget {
			break
		}
		links, err := e.backend.Links().LinkedTo(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, l := range links {
			if l.Strength < floor {
				continue
			}
			other := l.TargetMemoryID
			if other == id {
				other = l.SourceMemoryID
			}
			if primary[other] || seen[other] {
				continue
			}
			m, err := e.backend.Memories().Get(ctx, other)
			if err != nil {
				continue // link target archived/deleted
			}
			if tags, err := e.backend.Tags().TagsOf(ctx, other); err == nil {
				m.Tags = tags
			}
			seen[other] = true
			out = append(out, LinkedRef{
				Memory:     *m,
				LinkedFrom: id,
				LinkType:   l.LinkType,
				Strength:   l.Strength,
			})
			if len(out) >= budget {
				break
			}
		}
	}
	return out, nil
}
