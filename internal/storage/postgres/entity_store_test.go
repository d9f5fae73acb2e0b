package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memcore/memcore/pkg/types"
)

func TestEntityStoreFindOrCreateByName(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, err := db.Entities().FindOrCreateByName(ctx, "Alice", types.EntityPerson)
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := db.Entities().FindOrCreateByName(ctx, "alice", types.EntityPerson)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestEntityStoreLinkMemoryAndFetch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := newMemory("Alice works at Anthropic")
	require.NoError(t, db.Memories().Insert(ctx, m))

	alice, err := db.Entities().FindOrCreateByName(ctx, "Alice", types.EntityPerson)
	require.NoError(t, err)
	require.NoError(t, db.Entities().LinkMemory(ctx, m.ID, alice.ID, 0.9))

	entities, err := db.Entities().EntitiesForMemory(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	require.Equal(t, "Alice", entities[0].Name)
}

func TestEntityStoreUpsertRelationshipMaxMerge(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice, err := db.Entities().FindOrCreateByName(ctx, "Alice", types.EntityPerson)
	require.NoError(t, err)
	anthropic, err := db.Entities().FindOrCreateByName(ctx, "Anthropic", types.EntityOrganization)
	require.NoError(t, err)

	rel := &types.EntityRelationship{
		SourceEntityID: alice.ID, TargetEntityID: anthropic.ID,
		Relationship: "works_at", Confidence: 0.6,
	}
	require.NoError(t, db.Entities().UpsertRelationship(ctx, rel))

	rel2 := &types.EntityRelationship{
		SourceEntityID: alice.ID, TargetEntityID: anthropic.ID,
		Relationship: "works_at", Confidence: 0.3,
	}
	require.NoError(t, db.Entities().UpsertRelationship(ctx, rel2))

	all, err := db.Entities().AllRelationships(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.InDelta(t, 0.6, all[0].Confidence, 0.0001)
}

func TestEntityStoreMemoriesWithoutEntities(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := newMemory("unlinked")
	require.NoError(t, db.Memories().Insert(ctx, m))

	unlinked, err := db.Entities().MemoriesWithoutEntities(ctx, 10)
	require.NoError(t, err)
	require.Len(t, unlinked, 1)

	entity, err := db.Entities().FindOrCreateByName(ctx, "Something", types.EntityConcept)
	require.NoError(t, err)
	require.NoError(t, db.Entities().LinkMemory(ctx, m.ID, entity.ID, 1.0))

	unlinked, err = db.Entities().MemoriesWithoutEntities(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, unlinked)
}

func TestEntityStoreOrphanEntities(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	entity, err := db.Entities().FindOrCreateByName(ctx, "Lonely", types.EntityConcept)
	require.NoError(t, err)

	orphans, err := db.Entities().OrphanEntities(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	require.Equal(t, entity.ID, orphans[0].ID)
}

func TestEntityStoreDeleteMemoryLinks(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := newMemory("linked")
	require.NoError(t, db.Memories().Insert(ctx, m))
	entity, err := db.Entities().FindOrCreateByName(ctx, "Thing", types.EntityConcept)
	require.NoError(t, err)
	require.NoError(t, db.Entities().LinkMemory(ctx, m.ID, entity.ID, 1.0))

	require.NoError(t, db.Entities().DeleteMemoryLinks(ctx, m.ID))

	entities, err := db.Entities().EntitiesForMemory(ctx, m.ID)
	require.NoError(t, err)
	require.Empty(t, entities)
}
