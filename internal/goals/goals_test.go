package goals_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/internal/embedding"
	"github.com/memcore/memcore/internal/goals"
	"github.com/memcore/memcore/internal/memory"
	"github.com/memcore/memcore/internal/storage/sqlite"
	"github.com/memcore/memcore/pkg/types"
)

type fakeOracle struct{}

func (fakeOracle) Dimensions() int { return 4 }
func (fakeOracle) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 4)
	for i := range vec {
		if i < len(text) {
			vec[i] = float32(text[i])
		} else {
			vec[i] = 1
		}
	}
	return vec, nil
}
func (f fakeOracle) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = f.Embed(context.Background(), t)
	}
	return out, nil
}

func newHarness(t *testing.T) (*memory.Pipeline, *goals.Service) {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mgr := embedding.NewManager(fakeOracle{}, embedding.BreakerConfig{})
	return memory.New(db, mgr), goals.New(db, mgr)
}

func TestCreateGoalDefaultsToActiveAndMediumPriority(t *testing.T) {
	ctx := context.Background()
	_, svc := newHarness(t)

	g, err := svc.Create(ctx, goals.CreateInput{Title: "Ship memcore", Description: "launch the memory store"})
	require.NoError(t, err)
	require.Equal(t, types.GoalActive, g.Status)
	require.Equal(t, types.PriorityMedium, g.Priority)
}

func TestUpdateToCompletedSetsCompletedAt(t *testing.T) {
	ctx := context.Background()
	_, svc := newHarness(t)
	g, err := svc.Create(ctx, goals.CreateInput{Title: "Ship memcore"})
	require.NoError(t, err)

	status := types.GoalCompleted
	updated, err := svc.Update(ctx, g.ID, goals.UpdatePatch{Status: &status})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)
}

func TestAddMilestoneAssignsIncrementingOrder(t *testing.T) {
	ctx := context.Background()
	_, svc := newHarness(t)
	g, err := svc.Create(ctx, goals.CreateInput{Title: "Ship memcore"})
	require.NoError(t, err)

	g, err = svc.AddMilestone(ctx, g.ID, "design")
	require.NoError(t, err)
	g, err = svc.AddMilestone(ctx, g.ID, "implement")
	require.NoError(t, err)

	require.Len(t, g.Milestones, 2)
	require.Equal(t, 0, g.Milestones[0].Order)
	require.Equal(t, 1, g.Milestones[1].Order)
}

func TestSetMilestoneStatusUpdatesByOrder(t *testing.T) {
	ctx := context.Background()
	_, svc := newHarness(t)
	g, err := svc.Create(ctx, goals.CreateInput{Title: "Ship memcore"})
	require.NoError(t, err)
	g, err = svc.AddMilestone(ctx, g.ID, "design")
	require.NoError(t, err)

	g, err = svc.SetMilestoneStatus(ctx, g.ID, 0, types.MilestoneCompleted)
	require.NoError(t, err)
	require.Equal(t, types.MilestoneCompleted, g.Milestones[0].Status)
}

func TestLinkProgressTagsSimilarMemory(t *testing.T) {
	ctx := context.Background()
	pipeline, svc := newHarness(t)

	_, err := svc.Create(ctx, goals.CreateInput{Title: "Ship memcore", Description: "launch the memory store this quarter"})
	require.NoError(t, err)

	res, err := pipeline.Create(ctx, memory.CreateInput{
		Content:     "launch the memory store this quarter",
		ContentType: types.ContentNote,
	})
	require.NoError(t, err)

	linked, err := svc.LinkProgress(ctx, res.Memory, config.GoalConfig{AutolinkThreshold: 0.99})
	require.NoError(t, err)
	require.Len(t, linked, 1)
	require.Contains(t, res.Memory.Tags, "goal-progress")
}

func TestLinkProgressSkipsDissimilarMemory(t *testing.T) {
	ctx := context.Background()
	pipeline, svc := newHarness(t)

	_, err := svc.Create(ctx, goals.CreateInput{Title: "Ship memcore", Description: "a"})
	require.NoError(t, err)

	res, err := pipeline.Create(ctx, memory.CreateInput{
		Content:     "zzzzzzzzzzzzzzzzzzzz",
		ContentType: types.ContentNote,
	})
	require.NoError(t, err)

	linked, err := svc.LinkProgress(ctx, res.Memory, config.GoalConfig{AutolinkThreshold: 0.999})
	require.NoError(t, err)
	require.Empty(t, linked)
}
