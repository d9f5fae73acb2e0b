package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memcore/memcore/internal/storage"
)

var (
	searchLimit       int
	searchTags        []string
	searchRRF         bool
	searchMinDocs     float64
	searchSuperseded  bool

	similarLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run the hybrid vector/lexical/recency/frequency retrieval engine",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.Search.Search(cmd.Context(), storage.SearchOptions{
			Query:             strings.Join(args, " "),
			Limit:             searchLimit,
			Tags:              searchTags,
			UseRRF:            searchRRF,
			MinScore:          searchMinDocs,
			IncludeSuperseded: searchSuperseded,
		})
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		for i, r := range resp.Results {
			fmt.Printf("%d. [%.3f] %s  (%s)\n", i+1, r.Score, truncate(r.Memory.Content, 160), r.Memory.ID)
			if r.Reason != "" {
				fmt.Printf("   reason: %s\n", r.Reason)
			}
		}
		if len(resp.Linked) > 0 {
			fmt.Printf("\n%d linked memories:\n", len(resp.Linked))
			for _, l := range resp.Linked {
				fmt.Printf("  %s -[%s]-> %s\n", l.LinkedFrom, l.LinkType, l.Memory.ID)
			}
		}
		return nil
	},
}

var searchSimilarCmd = &cobra.Command{
	Use:   "similar <id>",
	Short: "Find memories similar to an existing one by embedding distance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.Search.SearchSimilar(cmd.Context(), args[0], similarLimit)
		if err != nil {
			return fmt.Errorf("search similar: %w", err)
		}
		for i, r := range results {
			fmt.Printf("%d. [%.3f] %s  (%s)\n", i+1, r.Score, truncate(r.Memory.Content, 160), r.Memory.ID)
		}
		return nil
	},
}

var searchMarkUsefulCmd = &cobra.Command{
	Use:   "mark-useful <id> [id...]",
	Short: "Credit one or more search results as useful",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Search.MarkUseful(cmd.Context(), args); err != nil {
			return fmt.Errorf("mark useful: %w", err)
		}
		fmt.Printf("marked %d result(s) useful\n", len(args))
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "max results")
	searchCmd.Flags().StringSliceVar(&searchTags, "tags", nil, "filter to memories with all of these tags")
	searchCmd.Flags().BoolVar(&searchRRF, "rrf", false, "fuse signals with reciprocal rank fusion instead of weighted sum")
	searchCmd.Flags().Float64Var(&searchMinDocs, "min-score", 0, "drop results below this fused score")
	searchCmd.Flags().BoolVar(&searchSuperseded, "include-superseded", false, "also surface superseded memories")

	searchSimilarCmd.Flags().IntVar(&similarLimit, "limit", 10, "max results")

	searchCmd.AddCommand(searchSimilarCmd, searchMarkUsefulCmd)
	rootCmd.AddCommand(searchCmd)
}
