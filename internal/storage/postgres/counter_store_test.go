package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memcore/memcore/pkg/types"
)

func TestCounterStoreIncrementAccumulates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Counters().Increment(ctx, types.CounterDedupSkipped, 1))
	require.NoError(t, db.Counters().Increment(ctx, types.CounterDedupSkipped, 2))
	require.NoError(t, db.Counters().Increment(ctx, types.CounterBenchmarkWrites, 5))

	all, err := db.Counters().All(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), all[types.CounterDedupSkipped])
	require.Equal(t, int64(5), all[types.CounterBenchmarkWrites])
}
