package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPathFlag          string
	embeddingBaseURL    string
	embeddingAPIKeyFlag string
	embeddingModelFlag  string
	embeddingDimsFlag   int
)

var rootCmd = &cobra.Command{
	Use:   "memcore-cli",
	Short: "Command-line access to a memcore memory store",
	Long: `memcore-cli operates a memcore database directly: write memories,
search them, manage goals and links, run maintenance routines, and ingest
external content, all against the SQLite file given by --db.

Examples:
  memcore-cli memory create "the deploy key rotates every 90 days" --tags ops
  memcore-cli search "deploy key rotation"
  memcore-cli maintenance decay
  memcore-cli ingest file ./notes/oncall.md`,
}

// Execute runs the root command, exiting non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "path to the memcore SQLite database (env MEMCORE_DB_PATH, default ./memcore.db)")
	rootCmd.PersistentFlags().StringVar(&embeddingBaseURL, "embedding-base-url", "", "embedding endpoint base URL (env MEMCORE_EMBEDDING_BASE_URL, default https://api.openai.com)")
	rootCmd.PersistentFlags().StringVar(&embeddingAPIKeyFlag, "embedding-api-key", "", "embedding endpoint API key (env MEMCORE_EMBEDDING_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&embeddingModelFlag, "embedding-model", "", "embedding model name (env MEMCORE_EMBEDDING_MODEL, default text-embedding-3-small)")
	rootCmd.PersistentFlags().IntVar(&embeddingDimsFlag, "embedding-dimensions", 0, "embedding vector width (env MEMCORE_EMBEDDING_DIMENSIONS, default 1536)")
}
