package memory

import (
	"context"
	"fmt"

	"github.com/memcore/memcore/internal/graph"
)

// Graph is memory_graph: stats, centrality, bridges, and communities over
// the entity graph, computed fresh from storage.EntityStore on every call.
func (p *Pipeline) Graph(ctx context.Context) (*graph.Report, error) {
	g, err := graph.Build(ctx, p.backend)
	if err != nil {
		return nil, fmt.Errorf("memory: graph: %w", err)
	}
	report := g.BuildReport(nil)
	return &report, nil
}
