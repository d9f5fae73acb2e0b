package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

func TestSearchProviderLexicalSearchMatchesAndRanks(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rockets := newMemory("notes about rocket engines and orbital mechanics")
	gardening := newMemory("notes about growing tomatoes in the garden")
	require.NoError(t, db.Memories().Insert(ctx, rockets))
	require.NoError(t, db.Memories().Insert(ctx, gardening))

	hits, err := db.Search().LexicalSearch(ctx, "rocket orbital", storage.SearchOptions{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, rockets.ID, hits[0].MemoryID)
}

func TestSearchProviderLexicalSearchEmptyQuery(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	hits, err := db.Search().LexicalSearch(ctx, "   ", storage.SearchOptions{}, 10)
	require.NoError(t, err)
	require.Empty(t, hits)
}

// RemoveFromIndex is a no-op against this backend: content_tsv tracks the
// row via trigger, so the only way to drop a memory from lexical search is
// to archive or delete it, not to call RemoveFromIndex directly.
func TestSearchProviderArchiveSuppressesLexicalHit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := newMemory("ephemeral content about spaceships")
	require.NoError(t, db.Memories().Insert(ctx, m))

	require.NoError(t, db.Memories().Archive(ctx, m.ID))

	hits, err := db.Search().LexicalSearch(ctx, "spaceships", storage.SearchOptions{}, 10)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestSearchProviderContentTypeFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	note := newMemory("quantum computing breakthrough")
	note.ContentType = types.ContentNote
	summary := newMemory("quantum computing breakthrough summary")
	summary.ContentType = types.ContentSummary
	require.NoError(t, db.Memories().Insert(ctx, note))
	require.NoError(t, db.Memories().Insert(ctx, summary))

	hits, err := db.Search().LexicalSearch(ctx, "quantum", storage.SearchOptions{ContentType: types.ContentSummary}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, summary.ID, hits[0].MemoryID)
}
