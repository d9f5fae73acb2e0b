package config

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSettings struct {
	values map[string]string
}

func (f *fakeSettings) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}
func (f *fakeSettings) Set(ctx context.Context, key, value string) error {
	f.values[key] = value
	return nil
}
func (f *fakeSettings) All(ctx context.Context) (map[string]string, error) {
	return f.values, nil
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 2000, cfg.Chunking.MaxLength)
	require.InDelta(t, 0.85, cfg.Dedup.SimilarityThreshold, 0.0001)
	require.True(t, cfg.Dedup.SkipInsertOnMatch)
	require.Equal(t, 500, cfg.Search.VectorCandidatePool)
	require.InDelta(t, 0.15, cfg.Benchmark.DefaultImportance, 0.0001)
	require.False(t, cfg.Scoring.UseRRF)
	require.True(t, cfg.AutoTagging.Enabled)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("MEMCORE_DEDUP_CANDIDATE_POOL", "42")
	cfg, err := Load(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 42, cfg.Dedup.CandidatePool)
}

func TestLoadDBOverridesEnvAndDefaults(t *testing.T) {
	t.Setenv("MEMCORE_DEDUP_CANDIDATE_POOL", "42")
	settings := &fakeSettings{values: map[string]string{"dedup.candidate_pool": "99"}}
	cfg, err := Load(context.Background(), settings)
	require.NoError(t, err)
	require.Equal(t, 99, cfg.Dedup.CandidatePool)
}

func init() {
	// Ensure a clean environment for the override tests above regardless of
	// what the host shell happens to export.
	os.Unsetenv("MEMCORE_DEDUP_CANDIDATE_POOL")
}
