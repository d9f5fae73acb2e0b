package graph

import "math/rand"

// Report bundles every read-side view of the entity graph into one
// payload: stats, decorated nodes and edges, connected components,
// communities, and bridges, all computed off the same snapshot.
type Report struct {
	Stats       Stats
	Nodes       []Node
	Edges       []Edge
	Components  []Component
	Communities []Community
	Bridges     []Edge
}

// BuildReport computes every structural view in one pass. rng seeds
// community detection's shuffle order; pass nil to use a fixed default
// source, matching Communities' own default.
func (g *Graph) BuildReport(rng *rand.Rand) Report {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	betweenness, _ := g.Centrality()
	communities := g.Communities(10, rng)

	communityOf := make(map[string]int, len(g.adj.nodes))
	for i, c := range communities {
		for _, id := range c.EntityIDs {
			communityOf[id] = i + 1 // 0 means "no community" for singleton/dropped nodes
		}
	}

	nodes := make([]Node, 0, len(g.adj.nodes))
	for _, id := range g.sortedNodeIDs() {
		nodes = append(nodes, Node{
			Entity:      g.adj.nodes[id],
			Degree:      g.Degree(id),
			Betweenness: betweenness[id],
			CommunityID: communityOf[id],
		})
	}

	return Report{
		Stats:       g.Stats(),
		Nodes:       nodes,
		Edges:       g.Edges(),
		Components:  g.Components(),
		Communities: communities,
		Bridges:     g.Bridges(),
	}
}
