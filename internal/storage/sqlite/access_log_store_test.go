package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/memcore/memcore/pkg/types"
)

func TestAccessLogStoreAppendAndCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := newMemory("logged")
	require.NoError(t, db.Memories().Insert(ctx, m))

	require.NoError(t, db.AccessLog().Append(ctx, types.AccessLog{MemoryID: m.ID, Query: "q1"}))
	require.NoError(t, db.AccessLog().Append(ctx, types.AccessLog{MemoryID: m.ID, Query: "q2"}))

	count, err := db.AccessLog().CountForMemory(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	recent, err := db.AccessLog().RecentForMemory(ctx, m.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "q2", recent[0].Query)
}

func TestAccessLogStoreCoRetrieved(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a, b, c := newMemory("a"), newMemory("b"), newMemory("c")
	require.NoError(t, db.Memories().Insert(ctx, a))
	require.NoError(t, db.Memories().Insert(ctx, b))
	require.NoError(t, db.Memories().Insert(ctx, c))

	now := time.Now().UTC()
	require.NoError(t, db.AccessLog().Append(ctx, types.AccessLog{MemoryID: a.ID, CreatedAt: now}))
	require.NoError(t, db.AccessLog().Append(ctx, types.AccessLog{MemoryID: b.ID, CreatedAt: now.Add(2 * time.Second)}))
	require.NoError(t, db.AccessLog().Append(ctx, types.AccessLog{MemoryID: c.ID, CreatedAt: now.Add(time.Hour)}))

	counts, err := db.AccessLog().CoRetrieved(ctx, 30)
	require.NoError(t, err)
	key := types.UnorderedKey(a.ID, b.ID)
	require.Equal(t, 1, counts[key])

	otherKey := types.UnorderedKey(a.ID, c.ID)
	require.Equal(t, 0, counts[otherKey])
}
