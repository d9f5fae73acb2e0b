package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Report structural stats, centrality, bridges, and communities over the entity graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Memory.Graph(cmd.Context())
		if err != nil {
			return fmt.Errorf("graph: %w", err)
		}

		s := report.Stats
		fmt.Printf("nodes: %d  edges: %d  components: %d  avg degree: %.2f", s.NodeCount, s.EdgeCount, s.ComponentCount, s.AverageDegree)
		if s.BetweennessSkipped {
			fmt.Print("  (betweenness: degree fallback, graph too large)")
		}
		fmt.Println()

		if len(report.Communities) > 0 {
			fmt.Printf("\n%d communities:\n", len(report.Communities))
			for i, c := range report.Communities {
				fmt.Printf("  %d. %d members, %d internal edges: %s\n", i+1, len(c.EntityIDs), c.InternalEdges, strings.Join(c.EntityIDs, ", "))
			}
		}

		if len(report.Bridges) > 0 {
			fmt.Printf("\n%d bridges:\n", len(report.Bridges))
			for _, b := range report.Bridges {
				fmt.Printf("  %s -- %s  (%s)\n", b.A, b.B, strings.Join(b.Relationships, ", "))
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
