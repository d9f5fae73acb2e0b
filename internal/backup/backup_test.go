package backup_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memcore/memcore/internal/backup"
	"github.com/memcore/memcore/internal/embedding"
	"github.com/memcore/memcore/internal/memory"
	"github.com/memcore/memcore/internal/storage/sqlite"
	"github.com/memcore/memcore/pkg/types"
)

type fakeOracle struct{}

func (fakeOracle) Dimensions() int { return 4 }
func (fakeOracle) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 1, 1, 1}, nil
}
func (fakeOracle) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 1, 1, 1}
	}
	return out, nil
}

func TestEnvelopeRoundTripsMemoriesAndGoals(t *testing.T) {
	ctx := context.Background()
	src, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	mgr := embedding.NewManager(fakeOracle{}, embedding.BreakerConfig{})
	pipeline := memory.New(src, mgr)

	_, err = pipeline.Create(ctx, memory.CreateInput{Content: "first memory", ContentType: types.ContentNote})
	require.NoError(t, err)
	_, err = pipeline.Create(ctx, memory.CreateInput{Content: "second memory", ContentType: types.ContentNote})
	require.NoError(t, err)

	require.NoError(t, src.Goals().Insert(ctx, &types.Goal{
		ID: "goal-1", Title: "Ship it", Status: types.GoalActive, Priority: types.PriorityMedium,
	}))

	env, err := backup.BuildEnvelope(ctx, src)
	require.NoError(t, err)
	require.Len(t, env.Memories, 2)
	require.Len(t, env.Goals, 1)

	data, err := backup.MarshalEnvelope(env)
	require.NoError(t, err)

	restored, err := backup.UnmarshalEnvelope(data)
	require.NoError(t, err)
	require.Equal(t, backup.EnvelopeVersion, restored.Version)

	dst, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dst.Close() })

	report, err := backup.RestoreEnvelope(ctx, dst, restored)
	require.NoError(t, err)
	require.Equal(t, 2, report.MemoriesRestored)
	require.Equal(t, 1, report.GoalsRestored)

	list, err := dst.Goals().List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Ship it", list[0].Title)
}

func TestUnmarshalEnvelopeRejectsUnknownVersion(t *testing.T) {
	_, err := backup.UnmarshalEnvelope([]byte(`{"version": 99}`))
	require.Error(t, err)
}
