package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memcore/memcore/internal/graph"
	"github.com/memcore/memcore/pkg/types"
)

func TestBridgesFindsCutEdgeBetweenTriangles(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	// Two triangles joined by a single cut edge (c -- d): every triangle
	// edge sits on a cycle and so is not a bridge, but c--d is.
	a := mustEntity(t, ctx, b, "A", types.EntityConcept)
	b1 := mustEntity(t, ctx, b, "B", types.EntityConcept)
	c := mustEntity(t, ctx, b, "C", types.EntityConcept)
	d := mustEntity(t, ctx, b, "D", types.EntityConcept)
	e := mustEntity(t, ctx, b, "E", types.EntityConcept)
	f := mustEntity(t, ctx, b, "F", types.EntityConcept)

	relate(t, ctx, b, a, b1, "related_to")
	relate(t, ctx, b, b1, c, "related_to")
	relate(t, ctx, b, c, a, "related_to")

	relate(t, ctx, b, c, d, "connects_to")

	relate(t, ctx, b, d, e, "related_to")
	relate(t, ctx, b, e, f, "related_to")
	relate(t, ctx, b, f, d, "related_to")

	g, err := graph.Build(ctx, b)
	require.NoError(t, err)

	bridges := g.Bridges()
	require.Len(t, bridges, 1)
	require.ElementsMatch(t, []string{c.ID, d.ID}, []string{bridges[0].A, bridges[0].B})
	require.Contains(t, bridges[0].Relationships, "connects_to")
}

func TestBridgesEmptyOnCycle(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	a := mustEntity(t, ctx, b, "A", types.EntityConcept)
	c := mustEntity(t, ctx, b, "B", types.EntityConcept)
	d := mustEntity(t, ctx, b, "C", types.EntityConcept)
	relate(t, ctx, b, a, c, "related_to")
	relate(t, ctx, b, c, d, "related_to")
	relate(t, ctx, b, d, a, "related_to")

	g, err := graph.Build(ctx, b)
	require.NoError(t, err)
	require.Empty(t, g.Bridges())
}

func TestBuildReportBundlesEveryView(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	a := mustEntity(t, ctx, b, "A", types.EntityConcept)
	c := mustEntity(t, ctx, b, "B", types.EntityConcept)
	d := mustEntity(t, ctx, b, "C", types.EntityConcept)
	relate(t, ctx, b, a, c, "related_to")
	relate(t, ctx, b, c, d, "related_to")

	g, err := graph.Build(ctx, b)
	require.NoError(t, err)

	report := g.BuildReport(nil)
	require.Equal(t, 3, report.Stats.NodeCount)
	require.Len(t, report.Nodes, 3)
	require.Len(t, report.Edges, 2)
	require.Len(t, report.Bridges, 2)
	for _, n := range report.Nodes {
		require.NotEmpty(t, n.Entity.ID)
	}
}
