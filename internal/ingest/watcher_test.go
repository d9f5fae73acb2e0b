package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/memcore/memcore/internal/embedding"
	"github.com/memcore/memcore/internal/ingest"
	"github.com/memcore/memcore/internal/memory"
	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/internal/storage/sqlite"
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

func newHarness(t *testing.T) (*memory.Pipeline, storage.Backend) {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mgr := embedding.NewManager(fakeOracle{}, embedding.BreakerConfig{})
	return memory.New(db, mgr), db
}

func TestWatcherDrainsExistingFilesOnStart(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("## Section One\n\nexisting content to ingest\n"), 0o644))

	pipeline, backend := newHarness(t)
	w := ingest.NewWatcher(dir, pipeline)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.Eventually(t, func() bool {
		res, err := backend.Memories().List(context.Background(), storage.ListOptions{Limit: 10})
		return err == nil && len(res.Items) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatcherIngestsNewFile(t *testing.T) {
	dir := t.TempDir()
	pipeline, backend := newHarness(t)
	w := ingest.NewWatcher(dir, pipeline, "live")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "live.md"), []byte("## Live Note\n\nfresh content written after start\n"), 0o644))

	require.Eventually(t, func() bool {
		res, err := backend.Memories().List(context.Background(), storage.ListOptions{Limit: 10})
		return err == nil && len(res.Items) == 1
	}, 2*time.Second, 20*time.Millisecond)

	res, err := backend.Memories().List(context.Background(), storage.ListOptions{Limit: 10})
	require.NoError(t, err)
	tags, err := backend.Tags().TagsOf(context.Background(), res.Items[0].ID)
	require.NoError(t, err)
	require.Contains(t, tags, "live")
}
