package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/memcore/memcore/internal/ids"
	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

const timelinePageSize = 200

// Timeline is memory_timeline: it walks the Supersede chain touching id
// and returns it as a flat, time-ordered sequence per mode. Supersession
// forms a DAG by invariant (consolidation can fold several ancestors into
// one summary, so a node can have more than one predecessor), but every
// walk here guards with a visited set and stops rather than loops if that
// invariant is ever violated.
func (p *Pipeline) Timeline(ctx context.Context, id string, mode TimelineMode) ([]TimelineEntry, error) {
	root, err := p.backend.Memories().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var ancestors, descendants []types.Memory

	if mode != TimelineEvolution {
		ancestors, err = p.ancestorsOf(ctx, root)
		if err != nil {
			return nil, err
		}
	}
	if mode != TimelineDecisions {
		descendants, err = p.descendantsOf(ctx, root)
		if err != nil {
			return nil, err
		}
	}

	chain := make([]types.Memory, 0, len(ancestors)+1+len(descendants))
	chain = append(chain, ancestors...)
	chain = append(chain, *root)
	chain = append(chain, descendants...)

	entries := make([]TimelineEntry, len(chain))
	for i, m := range chain {
		t, ok := ids.Timestamp(m.ID)
		if !ok {
			t = m.CreatedAt
		}
		entries[i] = TimelineEntry{Memory: m, IDTime: t, IsRequested: m.ID == root.ID}
	}
	return entries, nil
}

// ancestorsOf collects every memory that root (transitively) superseded,
// i.e. whose superseded_by chain leads to root, oldest first. Consolidation can fan multiple predecessors into one
// successor, so this is a breadth-first walk over a reverse index rather
// than a linear chain.
func (p *Pipeline) ancestorsOf(ctx context.Context, root *types.Memory) ([]types.Memory, error) {
	reverse, err := p.supersededByIndex(ctx)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{root.ID: true}
	queue := []string{root.ID}
	var ancestors []types.Memory
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, prev := range reverse[cur] {
			if visited[prev.ID] {
				continue
			}
			visited[prev.ID] = true
			ancestors = append(ancestors, prev)
			queue = append(queue, prev.ID)
		}
	}
	sort.Slice(ancestors, func(i, j int) bool {
		return ancestors[i].CreatedAt.Before(ancestors[j].CreatedAt)
	})
	return ancestors, nil
}

// descendantsOf follows root's SupersededBy pointer forward until it runs
// dry, hits a dangling reference, or would revisit an id already seen.
func (p *Pipeline) descendantsOf(ctx context.Context, root *types.Memory) ([]types.Memory, error) {
	visited := map[string]bool{root.ID: true}
	var descendants []types.Memory
	cur := root
	for cur.SupersededBy != "" && !visited[cur.SupersededBy] {
		next, err := p.backend.Memories().Get(ctx, cur.SupersededBy)
		if err != nil {
			break
		}
		visited[next.ID] = true
		descendants = append(descendants, *next)
		cur = next
	}
	return descendants, nil
}

// supersededByIndex pages through every memory, including inactive ones,
// and indexes them by the id they point to via SupersededBy — the reverse
// of the forward pointer each row carries, since no dedicated storage
// query answers "who points at me."
func (p *Pipeline) supersededByIndex(ctx context.Context) (map[string][]types.Memory, error) {
	reverse := make(map[string][]types.Memory)
	page := 1
	for {
		result, err := p.backend.Memories().List(ctx, storage.ListOptions{
			Page: page, Limit: timelinePageSize, IncludeInactive: true, IncludeSuperseded: true,
			SortBy: "created_at", SortOrder: "asc",
		})
		if err != nil {
			return nil, fmt.Errorf("memory: timeline index page %d: %w", page, err)
		}
		for _, m := range result.Items {
			if m.SupersededBy != "" {
				reverse[m.SupersededBy] = append(reverse[m.SupersededBy], m)
			}
		}
		if !result.HasMore || len(result.Items) == 0 {
			return reverse, nil
		}
		page++
	}
}
