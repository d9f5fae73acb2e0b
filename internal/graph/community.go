package graph

import (
	"math/rand"
	"sort"
)

// Communities runs synchronous label propagation, iterating up to
// maxIterations (spec default 10) or until a fixpoint where no node changes
// label, whichever comes first. Each iteration visits nodes in a freshly
// shuffled order so label updates don't bias toward insertion order.
// Singleton communities (no other member) are dropped; the rest are
// returned sorted by size descending.
func (g *Graph) Communities(maxIterations int, rng *rand.Rand) []Community {
	if maxIterations <= 0 {
		maxIterations = 10
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	labels := make(map[string]string, len(g.adj.nodes))
	for _, id := range g.adj.order {
		labels[id] = id
	}

	order := make([]string, len(g.adj.order))
	copy(order, g.adj.order)

	for iter := 0; iter < maxIterations; iter++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		changed := false
		for _, id := range order {
			neighbors := g.adj.neighbors(id)
			if len(neighbors) == 0 {
				continue
			}
			counts := make(map[string]int, len(neighbors))
			for _, n := range neighbors {
				counts[labels[n]]++
			}
			best := labels[id]
			bestCount := -1
			var candidates []string
			for label, c := range counts {
				if c > bestCount {
					bestCount = c
					candidates = []string{label}
				} else if c == bestCount {
					candidates = append(candidates, label)
				}
			}
			sort.Strings(candidates)
			if len(candidates) > 0 {
				best = candidates[0]
			}
			if best != labels[id] {
				labels[id] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	groups := make(map[string][]string)
	for _, id := range g.sortedNodeIDs() {
		groups[labels[id]] = append(groups[labels[id]], id)
	}

	var communities []Community
	for _, members := range groups {
		if len(members) < 2 {
			continue // singletons dropped
		}
		sort.Strings(members)
		communities = append(communities, Community{
			EntityIDs:     members,
			InternalEdges: g.internalEdges(members),
		})
	}
	sort.Slice(communities, func(i, j int) bool {
		if len(communities[i].EntityIDs) != len(communities[j].EntityIDs) {
			return len(communities[i].EntityIDs) > len(communities[j].EntityIDs)
		}
		return communities[i].EntityIDs[0] < communities[j].EntityIDs[0]
	})
	return communities
}

func (g *Graph) internalEdges(members []string) int {
	set := make(map[string]bool, len(members))
	for _, m := range members {
		set[m] = true
	}
	count := 0
	for _, a := range members {
		for _, b := range g.adj.neighbors(a) {
			if set[b] && a < b {
				count++
			}
		}
	}
	return count
}
