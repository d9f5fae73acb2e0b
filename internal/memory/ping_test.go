package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPingReportsStorageAndEmbeddingState(t *testing.T) {
	p, _ := newTestPipeline(t)

	result, err := p.Ping(context.Background())
	require.NoError(t, err)
	require.True(t, result.StorageOK)
	require.NotEmpty(t, result.EmbeddingState)
	require.False(t, result.CheckedAt.IsZero())
}
