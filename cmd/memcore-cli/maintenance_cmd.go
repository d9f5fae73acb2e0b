package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	decayPreviewOnly    bool
	consolidateDryRun   bool
	recalibrateDryRun   bool
)

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Run the background maintenance routines on demand",
}

var maintenanceDecayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Archive memories that have aged past their decay thresholds",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if decayPreviewOnly {
			candidates, err := a.Maintenance.PreviewDecay(cmd.Context(), a.cfg.Decay)
			if err != nil {
				return fmt.Errorf("preview decay: %w", err)
			}
			for _, c := range candidates {
				fmt.Printf("%s  %s  (%s)\n", c.Memory.ID, truncate(c.Memory.Content, 80), c.Reason)
			}
			fmt.Printf("\n%d candidate(s)\n", len(candidates))
			return nil
		}

		archived, err := a.Maintenance.ArchiveStale(cmd.Context(), a.cfg.Decay)
		if err != nil {
			return fmt.Errorf("archive stale: %w", err)
		}
		fmt.Printf("archived %d memor(y/ies)\n", len(archived))
		return nil
	},
}

var maintenanceImportanceCmd = &cobra.Command{
	Use:   "importance",
	Short: "Adjust importance for recently/rarely accessed memories",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		adjustments, err := a.Maintenance.AdjustImportance(cmd.Context())
		if err != nil {
			return fmt.Errorf("adjust importance: %w", err)
		}
		for _, adj := range adjustments {
			fmt.Printf("%s  %.2f -> %.2f\n", adj.MemoryID, adj.Before, adj.After)
		}
		fmt.Printf("\n%d adjustment(s)\n", len(adjustments))
		return nil
	},
}

var maintenanceRecalibrateCmd = &cobra.Command{
	Use:   "recalibrate-importance",
	Short: "Re-map the importance distribution to a target normal curve",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Maintenance.RecalibrateImportance(cmd.Context(), recalibrateDryRun)
		if err != nil {
			return fmt.Errorf("recalibrate importance: %w", err)
		}
		fmt.Printf("mean:    %.3f -> %.3f\n", report.MeanBefore, report.MeanAfter)
		fmt.Printf("stddev:  %.3f -> %.3f\n", report.StdDevBefore, report.StdDevAfter)
		fmt.Printf("adjusted: %d\n", report.Adjusted)
		return nil
	},
}

var maintenanceConsolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Cluster similar memories and merge each cluster into a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.Maintenance.Consolidate(cmd.Context(), a.cfg.Consolidation, consolidateDryRun)
		if err != nil {
			return fmt.Errorf("consolidate: %w", err)
		}
		for _, r := range results {
			fmt.Printf("%s  <- %d member(s)\n", r.SummaryID, len(r.MemberIDs))
		}
		fmt.Printf("\n%d cluster(s) consolidated\n", len(results))
		return nil
	},
}

var maintenanceDensifyCmd = &cobra.Command{
	Use:   "densify-graph",
	Short: "Insert entity co-occurrence links into the relationship graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Maintenance.DensifyGraph(cmd.Context(), a.cfg.Graph)
		if err != nil {
			return fmt.Errorf("densify graph: %w", err)
		}
		fmt.Printf("inserted %d relationship(s)\n", n)
		return nil
	},
}

var maintenanceCoRetrievalCmd = &cobra.Command{
	Use:   "co-retrieval-links",
	Short: "Link memories that are frequently retrieved together",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Maintenance.BuildCoRetrievalLinks(cmd.Context(), a.cfg.Links)
		if err != nil {
			return fmt.Errorf("build co-retrieval links: %w", err)
		}
		fmt.Printf("linked %d pair(s)\n", n)
		return nil
	},
}

var maintenanceWeightsCmd = &cobra.Command{
	Use:   "tune-weights",
	Short: "Nudge the fusion weights based on usefulness feedback seen so far",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Maintenance.TuneWeights(cmd.Context(), a.cfg)
		if err != nil {
			return fmt.Errorf("tune weights: %w", err)
		}
		fmt.Printf("applied: %v (feedback volume %d)\n", report.Applied, report.FeedbackVolume)
		for signal, before := range report.Before {
			fmt.Printf("  %-10s %.3f -> %.3f\n", signal, before, report.After[signal])
		}
		return nil
	},
}

var maintenanceBackfillCmd = &cobra.Command{
	Use:   "backfill-entities",
	Short: "Run entity/relationship extraction over memories that predate it",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Maintenance.BackfillEntities(cmd.Context())
		if err != nil {
			return fmt.Errorf("backfill entities: %w", err)
		}
		fmt.Printf("processed %d memor(y/ies)\n", n)
		return nil
	},
}

var maintenanceReembedCmd = &cobra.Command{
	Use:   "reembed",
	Short: "Generate embeddings for memories missing one",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Maintenance.ReembedMissing(cmd.Context())
		if err != nil {
			return fmt.Errorf("reembed missing: %w", err)
		}
		fmt.Printf("embedded %d memor(y/ies)\n", n)
		return nil
	},
}

var maintenanceHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run every health check and report the aggregate status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Maintenance.RunHealthChecks(cmd.Context(), a.cfg)
		if err != nil {
			return fmt.Errorf("run health checks: %w", err)
		}
		fmt.Printf("overall: %s\n", report.Overall)
		for _, c := range report.Checks {
			fmt.Printf("  %-24s %-8s %s\n", c.Name, c.Status, c.Message)
		}
		return nil
	},
}

func init() {
	maintenanceDecayCmd.Flags().BoolVar(&decayPreviewOnly, "preview", false, "list archive candidates without archiving them")
	maintenanceConsolidateCmd.Flags().BoolVar(&consolidateDryRun, "dry-run", false, "find clusters without merging them")
	maintenanceRecalibrateCmd.Flags().BoolVar(&recalibrateDryRun, "dry-run", false, "compute the report without writing adjusted importances")

	maintenanceCmd.AddCommand(
		maintenanceDecayCmd,
		maintenanceImportanceCmd,
		maintenanceRecalibrateCmd,
		maintenanceConsolidateCmd,
		maintenanceDensifyCmd,
		maintenanceCoRetrievalCmd,
		maintenanceWeightsCmd,
		maintenanceBackfillCmd,
		maintenanceReembedCmd,
		maintenanceHealthCmd,
	)
	rootCmd.AddCommand(maintenanceCmd)
}
