package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memcore/memcore/pkg/types"
)

func TestLinkStoreUpsertCanonicalOrdering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a, b := newMemory("a"), newMemory("b")
	require.NoError(t, db.Memories().Insert(ctx, a))
	require.NoError(t, db.Memories().Insert(ctx, b))

	link := &types.MemoryLink{SourceMemoryID: b.ID, TargetMemoryID: a.ID, LinkType: types.LinkRelated, Strength: 0.5}
	require.NoError(t, db.Links().Upsert(ctx, link))

	all, err := db.Links().All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	expected := types.UnorderedKey(a.ID, b.ID)
	require.Equal(t, expected[0], all[0].SourceMemoryID)
	require.Equal(t, expected[1], all[0].TargetMemoryID)
}

func TestLinkStoreUpsertMaxMergesStrength(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a, b := newMemory("a"), newMemory("b")
	require.NoError(t, db.Memories().Insert(ctx, a))
	require.NoError(t, db.Memories().Insert(ctx, b))

	require.NoError(t, db.Links().Upsert(ctx, &types.MemoryLink{
		SourceMemoryID: a.ID, TargetMemoryID: b.ID, LinkType: types.LinkRelated, Strength: 0.8,
	}))
	require.NoError(t, db.Links().Upsert(ctx, &types.MemoryLink{
		SourceMemoryID: a.ID, TargetMemoryID: b.ID, LinkType: types.LinkElaborates, Strength: 0.3,
	}))

	all, err := db.Links().All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.InDelta(t, 0.8, all[0].Strength, 0.0001)
	require.Equal(t, types.LinkElaborates, all[0].LinkType)
}

func TestLinkStoreRemove(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a, b := newMemory("a"), newMemory("b")
	require.NoError(t, db.Memories().Insert(ctx, a))
	require.NoError(t, db.Memories().Insert(ctx, b))
	require.NoError(t, db.Links().Upsert(ctx, &types.MemoryLink{
		SourceMemoryID: a.ID, TargetMemoryID: b.ID, LinkType: types.LinkRelated, Strength: 0.5,
	}))

	require.NoError(t, db.Links().Remove(ctx, b.ID, a.ID))

	all, err := db.Links().All(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestLinkStoreLinkedTo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a, b, c := newMemory("a"), newMemory("b"), newMemory("c")
	require.NoError(t, db.Memories().Insert(ctx, a))
	require.NoError(t, db.Memories().Insert(ctx, b))
	require.NoError(t, db.Memories().Insert(ctx, c))
	require.NoError(t, db.Links().Upsert(ctx, &types.MemoryLink{
		SourceMemoryID: a.ID, TargetMemoryID: b.ID, LinkType: types.LinkRelated, Strength: 0.5,
	}))
	require.NoError(t, db.Links().Upsert(ctx, &types.MemoryLink{
		SourceMemoryID: c.ID, TargetMemoryID: a.ID, LinkType: types.LinkSupports, Strength: 0.2,
	}))

	linked, err := db.Links().LinkedTo(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, linked, 2)
}
