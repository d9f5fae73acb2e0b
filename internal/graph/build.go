package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/memcore/memcore/internal/storage"
)

// Graph is the entry point: load once per computation, then query whichever
// views are needed off the same snapshot.
type Graph struct {
	backend storage.Backend
	adj     *adjacency
	rels    map[pairKey][]string // canonical pair -> relationship labels folded onto that edge
}

// Build loads every entity and relationship and assembles the undirected
// adjacency list, dropping self-loops and edges to unknown endpoints.
func Build(ctx context.Context, backend storage.Backend) (*Graph, error) {
	entities, err := backend.Entities().AllEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: load entities: %w", err)
	}
	rels, err := backend.Entities().AllRelationships(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: load relationships: %w", err)
	}

	adj := newAdjacency()
	for _, e := range entities {
		adj.addNode(e)
	}
	relLabels := make(map[pairKey][]string)
	for _, r := range rels {
		adj.addEdge(r.SourceEntityID, r.TargetEntityID)
		if r.SourceEntityID == r.TargetEntityID {
			continue
		}
		if _, ok := adj.nodes[r.SourceEntityID]; !ok {
			continue
		}
		if _, ok := adj.nodes[r.TargetEntityID]; !ok {
			continue
		}
		key := canonicalPair(r.SourceEntityID, r.TargetEntityID)
		relLabels[key] = append(relLabels[key], r.Relationship)
	}

	return &Graph{backend: backend, adj: adj, rels: relLabels}, nil
}

// Edges returns every undirected edge with the relationship labels that
// connect its two endpoints, sorted for deterministic output.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.rels))
	for k, labels := range g.rels {
		out = append(out, Edge{A: k.a, B: k.b, Relationships: append([]string{}, labels...)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

func (g *Graph) relationshipsFor(a, b string) []string {
	return g.rels[canonicalPair(a, b)]
}

// NodeIDs returns every entity id in stable insertion order.
func (g *Graph) NodeIDs() []string {
	out := make([]string, len(g.adj.order))
	copy(out, g.adj.order)
	return out
}

// Degree returns the neighbor count of id.
func (g *Graph) Degree(id string) int {
	return len(g.adj.edges[id])
}

// Stats reports node/edge counts, the number of connected components, and
// average degree rounded to 2 decimals, per spec's graph-stats operation.
func (g *Graph) Stats() Stats {
	n := len(g.adj.nodes)
	e := g.adj.edgeCount()
	comps := g.Components()

	var avgDegree float64
	if n > 0 {
		sum := 0
		for id := range g.adj.nodes {
			sum += g.Degree(id)
		}
		avgDegree = round2(float64(sum) / float64(n))
	}

	return Stats{
		NodeCount:          n,
		EdgeCount:          e,
		ComponentCount:     len(comps),
		AverageDegree:      avgDegree,
		BetweennessSkipped: n > storage.DefaultGraphBounds().MaxNodesForCentrality,
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

// sortedNodeIDs returns node ids sorted ascending, used wherever a
// deterministic base iteration order matters before a randomized step
// (e.g. community detection shuffles a copy of this).
func (g *Graph) sortedNodeIDs() []string {
	out := g.NodeIDs()
	sort.Strings(out)
	return out
}
