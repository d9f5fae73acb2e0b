package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/memcore/memcore/internal/ids"
	"github.com/memcore/memcore/internal/memcoreerr"
	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

func newMemory(content string) *types.Memory {
	return &types.Memory{
		ID:          ids.New(),
		Content:     content,
		ContentType: types.ContentNote,
		Source:      "test",
		ContentHash: "hash-" + content,
		IsActive:    true,
		Tags:        []string{"alpha", "beta"},
		Keywords:    "alpha beta",
	}
}

func TestMemoryStoreInsertAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := newMemory("hello world")

	require.NoError(t, db.Memories().Insert(ctx, m))

	got, err := db.Memories().Get(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, m.Content, got.Content)
	require.True(t, got.IsActive)
	require.False(t, got.CreatedAt.IsZero())
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Memories().Get(context.Background(), "missing")
	require.ErrorIs(t, err, memcoreerr.ErrNotFound)
}

func TestMemoryStoreInsertDuplicateIDConflicts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := newMemory("dup")
	require.NoError(t, db.Memories().Insert(ctx, m))

	dup := newMemory("dup2")
	dup.ID = m.ID
	err := db.Memories().Insert(ctx, dup)
	require.ErrorIs(t, err, memcoreerr.ErrConflict)
}

func TestMemoryStoreUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := newMemory("v1")
	require.NoError(t, db.Memories().Insert(ctx, m))

	m.Content = "v2"
	m.Importance = 0.9
	require.NoError(t, db.Memories().Update(ctx, m))

	got, err := db.Memories().Get(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, "v2", got.Content)
	require.InDelta(t, 0.9, got.Importance, 0.0001)
}

func TestMemoryStoreArchiveAndRestore(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := newMemory("archivable")
	require.NoError(t, db.Memories().Insert(ctx, m))

	require.NoError(t, db.Memories().Archive(ctx, m.ID))
	got, err := db.Memories().Get(ctx, m.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	// archiving again has no active row to touch
	require.ErrorIs(t, db.Memories().Archive(ctx, m.ID), memcoreerr.ErrNotFound)

	require.NoError(t, db.Memories().Restore(ctx, m.ID))
	got, err = db.Memories().Get(ctx, m.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)
}

func TestMemoryStoreDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := newMemory("to-delete")
	require.NoError(t, db.Memories().Insert(ctx, m))
	require.NoError(t, db.Tags().SetTags(ctx, m.ID, []string{"x"}))
	require.NoError(t, db.Memories().RecordAccess(ctx, m.ID, "q"))

	require.NoError(t, db.Memories().Delete(ctx, m.ID))

	_, err := db.Memories().Get(ctx, m.ID)
	require.ErrorIs(t, err, memcoreerr.ErrNotFound)

	tags, err := db.Tags().TagsOf(ctx, m.ID)
	require.NoError(t, err)
	require.Empty(t, tags)
}

func TestMemoryStoreFindActiveByHash(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := newMemory("hashed")
	require.NoError(t, db.Memories().Insert(ctx, m))

	got, err := db.Memories().FindActiveByHash(ctx, types.ContentNote, m.ContentHash)
	require.NoError(t, err)
	require.Equal(t, m.ID, got.ID)

	_, err = db.Memories().FindActiveByHash(ctx, types.ContentNote, "nonexistent")
	require.ErrorIs(t, err, memcoreerr.ErrNotFound)
}

func TestMemoryStoreRecordAccessIncrementsCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := newMemory("accessed")
	require.NoError(t, db.Memories().Insert(ctx, m))

	require.NoError(t, db.Memories().RecordAccess(ctx, m.ID, "what did I do"))
	require.NoError(t, db.Memories().RecordAccess(ctx, m.ID, "again"))

	got, err := db.Memories().Get(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.AccessCount)
	require.NotNil(t, got.LastAccessedAt)

	count, err := db.AccessLog().CountForMemory(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestMemoryStoreSupersede(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	oldM := newMemory("old")
	newM := newMemory("new")
	require.NoError(t, db.Memories().Insert(ctx, oldM))
	require.NoError(t, db.Memories().Insert(ctx, newM))

	require.NoError(t, db.Memories().Supersede(ctx, oldM.ID, newM.ID))

	got, err := db.Memories().Get(ctx, oldM.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
	require.Equal(t, newM.ID, got.SupersededBy)
}

func TestMemoryStoreListIncludeSupersededExcludesArchived(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	oldM := newMemory("old")
	newM := newMemory("new")
	archived := newMemory("archived")
	require.NoError(t, db.Memories().Insert(ctx, oldM))
	require.NoError(t, db.Memories().Insert(ctx, newM))
	require.NoError(t, db.Memories().Insert(ctx, archived))

	require.NoError(t, db.Memories().Supersede(ctx, oldM.ID, newM.ID))
	require.NoError(t, db.Memories().Archive(ctx, archived.ID))

	plain, err := db.Memories().List(ctx, storage.ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, plain.Items, 1)
	require.Equal(t, newM.ID, plain.Items[0].ID)

	withSuperseded, err := db.Memories().List(ctx, storage.ListOptions{Limit: 10, IncludeSuperseded: true})
	require.NoError(t, err)
	var ids []string
	for _, m := range withSuperseded.Items {
		ids = append(ids, m.ID)
	}
	require.ElementsMatch(t, []string{oldM.ID, newM.ID}, ids)
}

func TestMemoryStoreListPaginates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, db.Memories().Insert(ctx, newMemory("item")))
	}

	page, err := db.Memories().List(ctx, storage.ListOptions{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	require.True(t, page.HasMore)
}

func TestMemoryStoreChunksOf(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	parent := newMemory("parent")
	require.NoError(t, db.Memories().Insert(ctx, parent))

	idx0, idx1 := 0, 1
	chunk0 := newMemory("chunk 0")
	chunk0.ParentID = parent.ID
	chunk0.ChunkIndex = &idx0
	chunk1 := newMemory("chunk 1")
	chunk1.ParentID = parent.ID
	chunk1.ChunkIndex = &idx1
	require.NoError(t, db.Memories().Insert(ctx, chunk1))
	require.NoError(t, db.Memories().Insert(ctx, chunk0))

	chunks, err := db.Memories().ChunksOf(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, "chunk 0", chunks[0].Content)
	require.Equal(t, "chunk 1", chunks[1].Content)

	require.NoError(t, db.Memories().DeleteChunks(ctx, parent.ID))
	chunks, err = db.Memories().ChunksOf(ctx, parent.ID)
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestMemoryStoreCandidatesForVectorSearch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	withVec := newMemory("has vector")
	withVec.Embedding = []float32{0.1, 0.2, 0.3}
	require.NoError(t, db.Memories().Insert(ctx, withVec))

	noVec := newMemory("no vector")
	require.NoError(t, db.Memories().Insert(ctx, noVec))

	cands, err := db.Memories().CandidatesForVectorSearch(ctx, storage.SearchOptions{}, 10)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	require.Equal(t, withVec.ID, cands[0].ID)
	require.Len(t, cands[0].Embedding, 3)
}

func TestMemoryStoreCandidatesForVectorSearchIncludeSuperseded(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	oldM := newMemory("old vector")
	oldM.Embedding = []float32{0.1, 0.2, 0.3}
	newM := newMemory("new vector")
	newM.Embedding = []float32{0.4, 0.5, 0.6}
	require.NoError(t, db.Memories().Insert(ctx, oldM))
	require.NoError(t, db.Memories().Insert(ctx, newM))
	require.NoError(t, db.Memories().Supersede(ctx, oldM.ID, newM.ID))

	cands, err := db.Memories().CandidatesForVectorSearch(ctx, storage.SearchOptions{}, 10)
	require.NoError(t, err)
	require.Len(t, cands, 1)

	cands, err = db.Memories().CandidatesForVectorSearch(ctx, storage.SearchOptions{IncludeSuperseded: true}, 10)
	require.NoError(t, err)
	require.Len(t, cands, 2)
}

func TestMemoryStoreRecentActiveByType(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m1 := newMemory("first")
	m1.ContentType = types.ContentSummary
	require.NoError(t, db.Memories().Insert(ctx, m1))
	time.Sleep(time.Millisecond)
	m2 := newMemory("second")
	m2.ContentType = types.ContentSummary
	require.NoError(t, db.Memories().Insert(ctx, m2))

	recent, err := db.Memories().RecentActiveByType(ctx, types.ContentSummary, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, m2.ID, recent[0].ID)
}

func TestMemoryStoreWriteIsIndexedByFTS(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	m := newMemory("searchable content about rockets")
	require.NoError(t, db.Memories().Insert(ctx, m))

	hits, err := db.Search().LexicalSearch(ctx, "rockets", storage.SearchOptions{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, m.ID, hits[0].MemoryID)

	require.NoError(t, db.Memories().Archive(ctx, m.ID))
	hits, err = db.Search().LexicalSearch(ctx, "rockets", storage.SearchOptions{}, 10)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestLexicalSearchIncludeSupersededStaysFindableButArchivedDoesNot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	oldM := newMemory("supersede me about rockets")
	newM := newMemory("newer rockets content")
	archived := newMemory("archive me about rockets too")
	require.NoError(t, db.Memories().Insert(ctx, oldM))
	require.NoError(t, db.Memories().Insert(ctx, newM))
	require.NoError(t, db.Memories().Insert(ctx, archived))

	require.NoError(t, db.Memories().Supersede(ctx, oldM.ID, newM.ID))
	require.NoError(t, db.Memories().Archive(ctx, archived.ID))

	hits, err := db.Search().LexicalSearch(ctx, "rockets", storage.SearchOptions{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, newM.ID, hits[0].MemoryID)

	hits, err = db.Search().LexicalSearch(ctx, "rockets", storage.SearchOptions{IncludeSuperseded: true}, 10)
	require.NoError(t, err)
	var ids []string
	for _, h := range hits {
		ids = append(ids, h.MemoryID)
	}
	require.ElementsMatch(t, []string{oldM.ID, newM.ID}, ids)
}
