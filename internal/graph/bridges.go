package graph

import "sort"

// Bridges returns every edge whose removal would increase the number of
// connected components, via Tarjan's DFS low-link walk over the same
// adjacency Components and Centrality already build. The graph may be
// disconnected, so every unvisited node is tried as a DFS root in turn.
func (g *Graph) Bridges() []Edge {
	disc := make(map[string]int, len(g.adj.nodes))
	low := make(map[string]int, len(g.adj.nodes))
	timer := 0
	var bridges []Edge

	var dfs func(u, parent string)
	dfs = func(u, parent string) {
		timer++
		disc[u] = timer
		low[u] = timer
		for _, v := range g.adj.neighbors(u) {
			if v == parent {
				continue
			}
			if t, seen := disc[v]; seen {
				if t < low[u] {
					low[u] = t
				}
				continue
			}
			dfs(v, u)
			if low[v] < low[u] {
				low[u] = low[v]
			}
			if low[v] > disc[u] {
				a, b := u, v
				if a > b {
					a, b = b, a
				}
				bridges = append(bridges, Edge{A: a, B: b, Relationships: g.relationshipsFor(a, b)})
			}
		}
	}

	for _, id := range g.sortedNodeIDs() {
		if _, seen := disc[id]; !seen {
			dfs(id, "")
		}
	}

	sort.Slice(bridges, func(i, j int) bool {
		if bridges[i].A != bridges[j].A {
			return bridges[i].A < bridges[j].A
		}
		return bridges[i].B < bridges[j].B
	})
	return bridges
}
