package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveDBPathPrecedence(t *testing.T) {
	t.Setenv("MEMCORE_DB_PATH", "")
	require.Equal(t, defaultDBPath, resolveDBPath(""))

	t.Setenv("MEMCORE_DB_PATH", "/var/lib/memcore/env.db")
	require.Equal(t, "/var/lib/memcore/env.db", resolveDBPath(""))

	require.Equal(t, "/tmp/flag.db", resolveDBPath("/tmp/flag.db"))
}

func TestResolveEmbeddingConfigPrecedence(t *testing.T) {
	t.Setenv("MEMCORE_EMBEDDING_BASE_URL", "https://env.example.com")
	t.Setenv("MEMCORE_EMBEDDING_API_KEY", "env-key")
	t.Setenv("MEMCORE_EMBEDDING_MODEL", "env-model")
	t.Setenv("MEMCORE_EMBEDDING_DIMENSIONS", "768")

	cfg := resolveEmbeddingConfig("", "", "", 0)
	require.Equal(t, "https://env.example.com", cfg.BaseURL)
	require.Equal(t, "env-key", cfg.APIKey)
	require.Equal(t, "env-model", cfg.Model)
	require.Equal(t, 768, cfg.Dimensions)

	cfg = resolveEmbeddingConfig("https://flag.example.com", "flag-key", "flag-model", 1024)
	require.Equal(t, "https://flag.example.com", cfg.BaseURL)
	require.Equal(t, "flag-key", cfg.APIKey)
	require.Equal(t, "flag-model", cfg.Model)
	require.Equal(t, 1024, cfg.Dimensions)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "1234567890...", truncate("1234567890abcdef", 10))
}

func TestPageCount(t *testing.T) {
	require.Equal(t, 1, pageCount(0, 20))
	require.Equal(t, 1, pageCount(20, 20))
	require.Equal(t, 2, pageCount(21, 20))
	require.Equal(t, 1, pageCount(5, 0))
}
