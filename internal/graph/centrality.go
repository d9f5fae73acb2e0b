package graph

import "github.com/memcore/memcore/internal/storage"

// Centrality returns, for every node, either its Brandes' betweenness score
// (graphs at or below storage.DefaultGraphBounds().MaxNodesForCentrality) or
// its raw degree as a cheaper stand-in for larger graphs, per spec §4.6.
// The second return value reports which mode was used.
func (g *Graph) Centrality() (map[string]float64, bool) {
	n := len(g.adj.nodes)
	if n > storage.DefaultGraphBounds().MaxNodesForCentrality {
		out := make(map[string]float64, n)
		for id := range g.adj.nodes {
			out[id] = float64(g.Degree(id))
		}
		return out, true // skipped, degree-only
	}
	return g.brandes(), false
}

// brandes computes exact betweenness centrality in O(V*E) via Ulrik
// Brandes' algorithm, treating every edge as weight 1.
func (g *Graph) brandes() map[string]float64 {
	centrality := make(map[string]float64, len(g.adj.nodes))
	for id := range g.adj.nodes {
		centrality[id] = 0
	}

	for _, s := range g.sortedNodeIDs() {
		stack := make([]string, 0, len(g.adj.nodes))
		pred := make(map[string][]string, len(g.adj.nodes))
		sigma := make(map[string]float64, len(g.adj.nodes))
		dist := make(map[string]int, len(g.adj.nodes))
		for id := range g.adj.nodes {
			sigma[id] = 0
			dist[id] = -1
		}
		sigma[s] = 1
		dist[s] = 0

		queue := []string{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range g.adj.neighbors(v) {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					pred[w] = append(pred[w], v)
				}
			}
		}

		delta := make(map[string]float64, len(g.adj.nodes))
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range pred[w] {
				if sigma[w] != 0 {
					delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
				}
			}
			if w != s {
				centrality[w] += delta[w]
			}
		}
	}

	// Undirected graph: every shortest path is counted from both endpoints'
	// perspective, so halve to avoid double-counting.
	for id := range centrality {
		centrality[id] /= 2
	}
	return centrality
}
