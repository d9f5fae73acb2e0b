package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSettingsStoreGetSetAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, ok, err := db.Settings().Get(ctx, "search.rrf_k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, db.Settings().Set(ctx, "search.rrf_k", "60"))
	value, ok, err := db.Settings().Get(ctx, "search.rrf_k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "60", value)

	require.NoError(t, db.Settings().Set(ctx, "search.rrf_k", "80"))
	value, _, err = db.Settings().Get(ctx, "search.rrf_k")
	require.NoError(t, err)
	require.Equal(t, "80", value)

	all, err := db.Settings().All(ctx)
	require.NoError(t, err)
	require.Equal(t, "80", all["search.rrf_k"])
}
