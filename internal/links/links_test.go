package links_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memcore/memcore/internal/embedding"
	"github.com/memcore/memcore/internal/links"
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

func newHarness(t *testing.T) (*memory.Pipeline, *links.Service) {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mgr := embedding.NewManager(fakeOracle{}, embedding.BreakerConfig{})
	return memory.New(db, mgr), links.New(db)
}

func twoMemories(t *testing.T, ctx context.Context, p *memory.Pipeline) (string, string) {
	a, err := p.Create(ctx, memory.CreateInput{Content: "first memory content", ContentType: types.ContentNote})
	require.NoError(t, err)
	b, err := p.Create(ctx, memory.CreateInput{Content: "second memory content", ContentType: types.ContentNote})
	require.NoError(t, err)
	return a.Memory.ID, b.Memory.ID
}

func TestLinkPreservesEarliestTypeWithoutOverride(t *testing.T) {
	ctx := context.Background()
	p, svc := newHarness(t)
	a, b := twoMemories(t, ctx, p)

	_, err := svc.Link(ctx, a, b, types.LinkElaborates, 0.5, false)
	require.NoError(t, err)

	l2, err := svc.Link(ctx, a, b, types.LinkContradicts, 0.9, false)
	require.NoError(t, err)
	require.Equal(t, types.LinkElaborates, l2.LinkType)
}

func TestLinkOverrideReplacesType(t *testing.T) {
	ctx := context.Background()
	p, svc := newHarness(t)
	a, b := twoMemories(t, ctx, p)

	_, err := svc.Link(ctx, a, b, types.LinkElaborates, 0.5, false)
	require.NoError(t, err)

	l2, err := svc.Link(ctx, a, b, types.LinkContradicts, 0.9, true)
	require.NoError(t, err)
	require.Equal(t, types.LinkContradicts, l2.LinkType)
}

func TestLinkRejectsSelfLink(t *testing.T) {
	ctx := context.Background()
	p, svc := newHarness(t)
	a, _ := twoMemories(t, ctx, p)

	_, err := svc.Link(ctx, a, a, types.LinkRelated, 0.5, false)
	require.Error(t, err)
}

func TestUnlinkRemovesEdge(t *testing.T) {
	ctx := context.Background()
	p, svc := newHarness(t)
	a, b := twoMemories(t, ctx, p)

	_, err := svc.Link(ctx, a, b, types.LinkRelated, 0.5, false)
	require.NoError(t, err)
	require.NoError(t, svc.Unlink(ctx, a, b))

	refs, err := svc.GetLinkedRefs(ctx, []string{a})
	require.NoError(t, err)
	require.Empty(t, refs[a])
}

func TestGetLinkedRefsDedupsAcrossRequestedIDs(t *testing.T) {
	ctx := context.Background()
	p, svc := newHarness(t)
	a, b := twoMemories(t, ctx, p)

	_, err := svc.Link(ctx, a, b, types.LinkRelated, 0.5, false)
	require.NoError(t, err)

	refs, err := svc.GetLinkedRefs(ctx, []string{a, b})
	require.NoError(t, err)
	require.Len(t, refs[a], 1)
	require.Len(t, refs[b], 1)
	require.Equal(t, b, refs[a][0].Memory.ID)
	require.Equal(t, a, refs[b][0].Memory.ID)
}
