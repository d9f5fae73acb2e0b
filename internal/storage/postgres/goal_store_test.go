package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memcore/memcore/internal/ids"
	"github.com/memcore/memcore/internal/memcoreerr"
	"github.com/memcore/memcore/pkg/types"
)

func newGoal(title string) *types.Goal {
	return &types.Goal{
		ID:       ids.New(),
		Title:    title,
		Status:   types.GoalActive,
		Priority: types.PriorityMedium,
		Milestones: []types.Milestone{
			{Title: "first step", Status: types.MilestonePending, Order: 0},
			{Title: "second step", Status: types.MilestonePending, Order: 1},
		},
	}
}

func TestGoalStoreInsertAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	g := newGoal("ship memcore")

	require.NoError(t, db.Goals().Insert(ctx, g))

	got, err := db.Goals().Get(ctx, g.ID)
	require.NoError(t, err)
	require.Equal(t, "ship memcore", got.Title)
	require.Len(t, got.Milestones, 2)
	require.Equal(t, "first step", got.Milestones[0].Title)
}

func TestGoalStoreGetNotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Goals().Get(context.Background(), "missing")
	require.ErrorIs(t, err, memcoreerr.ErrNotFound)
}

func TestGoalStoreUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	g := newGoal("initial")
	require.NoError(t, db.Goals().Insert(ctx, g))

	g.Title = "renamed"
	g.Status = types.GoalCompleted
	g.Milestones[0].Status = types.MilestoneCompleted
	require.NoError(t, db.Goals().Update(ctx, g))

	got, err := db.Goals().Get(ctx, g.ID)
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Title)
	require.Equal(t, types.GoalCompleted, got.Status)
	require.Equal(t, types.MilestoneCompleted, got.Milestones[0].Status)
}

func TestGoalStoreDeleteCascadesMilestones(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	g := newGoal("throwaway")
	require.NoError(t, db.Goals().Insert(ctx, g))

	require.NoError(t, db.Goals().Delete(ctx, g.ID))

	_, err := db.Goals().Get(ctx, g.ID)
	require.ErrorIs(t, err, memcoreerr.ErrNotFound)
}

func TestGoalStoreListByStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	active := newGoal("active goal")
	done := newGoal("done goal")
	done.Status = types.GoalCompleted
	require.NoError(t, db.Goals().Insert(ctx, active))
	require.NoError(t, db.Goals().Insert(ctx, done))

	activeOnly, err := db.Goals().List(ctx, types.GoalActive)
	require.NoError(t, err)
	require.Len(t, activeOnly, 1)
	require.Equal(t, active.ID, activeOnly[0].ID)

	all, err := db.Goals().List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
}
