package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTagStoreSetAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := newMemory("tagged")
	require.NoError(t, db.Memories().Insert(ctx, m))

	require.NoError(t, db.Tags().SetTags(ctx, m.ID, []string{"go", "sqlite", "go"}))

	tags, err := db.Tags().TagsOf(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"go", "sqlite"}, tags)
}

func TestTagStoreSetTagsReplacesPrior(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := newMemory("retagged")
	require.NoError(t, db.Memories().Insert(ctx, m))

	require.NoError(t, db.Tags().SetTags(ctx, m.ID, []string{"old"}))
	require.NoError(t, db.Tags().SetTags(ctx, m.ID, []string{"new"}))

	tags, err := db.Tags().TagsOf(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"new"}, tags)
}

func TestTagStoreAliasMap(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO tag_alias (alias, canonical) VALUES ('js','javascript')`)
	require.NoError(t, err)

	aliases, err := db.Tags().AliasMap(ctx)
	require.NoError(t, err)
	require.Equal(t, "javascript", aliases["js"])
}

func TestTagStoreDeleteTags(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := newMemory("untag-me")
	require.NoError(t, db.Memories().Insert(ctx, m))
	require.NoError(t, db.Tags().SetTags(ctx, m.ID, []string{"a", "b"}))

	require.NoError(t, db.Tags().DeleteTags(ctx, m.ID))

	tags, err := db.Tags().TagsOf(ctx, m.ID)
	require.NoError(t, err)
	require.Empty(t, tags)
}
