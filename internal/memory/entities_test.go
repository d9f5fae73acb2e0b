package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memcore/memcore/internal/memcoreerr"
	"github.com/memcore/memcore/internal/memory"
)

func TestEntitiesReturnsExtractedEntities(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	created, err := p.Create(ctx, memory.CreateInput{Content: "Dave works on Memcore with Go and SQLite."})
	require.NoError(t, err)

	entities, err := p.Entities(ctx, created.Memory.ID)
	require.NoError(t, err)
	require.NotEmpty(t, entities)
}

func TestEntitiesUnknownIDReturnsNotFound(t *testing.T) {
	p, _ := newTestPipeline(t)
	_, err := p.Entities(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, memcoreerr.ErrNotFound)
}
