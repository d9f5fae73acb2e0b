package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memcore/memcore/internal/memory"
	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

var (
	createContentType string
	createSource      string
	createSourceURI   string
	createTags        []string
	createImportance  float64
	createAgent       string
	createSessionID   string

	updateContent    string
	updateTags       []string
	updateImportance float64

	browseLimit       int
	browsePage        int
	browseTags        []string
	browseActive      bool
	browseSuperseded  bool

	timelineMode string
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Create, inspect, and manage individual memories",
}

var memoryCreateCmd = &cobra.Command{
	Use:   "create <content>",
	Short: "Write a new memory through the full ingestion pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		input := memory.CreateInput{
			Content:     strings.Join(args, " "),
			ContentType: types.ContentType(createContentType),
			Source:      createSource,
			SourceURI:   createSourceURI,
			Tags:        createTags,
			Agent:       createAgent,
			SessionID:   createSessionID,
		}
		if cmd.Flags().Changed("importance") {
			input.Importance = &createImportance
		}

		result, err := a.Memory.Create(cmd.Context(), input)
		if err != nil {
			return fmt.Errorf("create memory: %w", err)
		}
		printMemory(result.Memory)
		if result.SupersededID != "" {
			fmt.Printf("superseded: %s (%s)\n", result.SupersededID, result.DedupAction)
		}
		return nil
	},
}

var memoryGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a single memory by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		m, err := a.Memory.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get memory: %w", err)
		}
		printMemory(m)
		return nil
	},
}

var memoryBrowseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Page through memories without a search query",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Memory.Browse(cmd.Context(), storage.ListOptions{
			Page:              browsePage,
			Limit:             browseLimit,
			Tags:              browseTags,
			IncludeInactive:   !browseActive,
			IncludeSuperseded: browseSuperseded,
		})
		if err != nil {
			return fmt.Errorf("browse memories: %w", err)
		}
		fmt.Printf("page %d of %d, %d total\n\n", res.Page, pageCount(res.Total, res.PageSize), res.Total)
		for _, m := range res.Items {
			printMemory(&m)
			fmt.Println()
		}
		return nil
	},
}

var memoryUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Apply a partial update to a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		patch := memory.UpdatePatch{}
		if cmd.Flags().Changed("content") {
			patch.Content = &updateContent
		}
		if cmd.Flags().Changed("importance") {
			patch.Importance = &updateImportance
		}
		if cmd.Flags().Changed("tags") {
			patch.Tags = updateTags
		}

		m, err := a.Memory.Update(cmd.Context(), args[0], patch)
		if err != nil {
			return fmt.Errorf("update memory: %w", err)
		}
		printMemory(m)
		return nil
	},
}

var memoryArchiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Archive a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Memory.Archive(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("archive memory: %w", err)
		}
		fmt.Printf("archived %s\n", args[0])
		return nil
	},
}

var memoryRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore an archived memory to active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Memory.Restore(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("restore memory: %w", err)
		}
		fmt.Printf("restored %s\n", args[0])
		return nil
	},
}

var memoryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Permanently delete a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Memory.Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("delete memory: %w", err)
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

var recordAccessQuery string

var memoryRecordAccessCmd = &cobra.Command{
	Use:   "record-access <id>",
	Short: "Record an implicit retrieval access against a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Memory.RecordAccess(cmd.Context(), args[0], recordAccessQuery); err != nil {
			return fmt.Errorf("record access: %w", err)
		}
		fmt.Printf("recorded access for %s\n", args[0])
		return nil
	},
}

var memoryEntitiesCmd = &cobra.Command{
	Use:   "entities <id>",
	Short: "List the entities extracted from a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		entities, err := a.Memory.Entities(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("list entities: %w", err)
		}
		if len(entities) == 0 {
			fmt.Println("no entities")
			return nil
		}
		for _, e := range entities {
			fmt.Printf("%-10s %-20s (%s)\n", e.Type, e.Name, e.ID)
		}
		return nil
	},
}

var memoryTimelineCmd = &cobra.Command{
	Use:   "timeline <id>",
	Short: "Walk a memory's supersession chain",
	Long: "Walk a memory's supersession chain. --mode selects which part of the\n" +
		"chain to show: decisions (ancestors it superseded), evolution (what it\n" +
		"was superseded by), or lineage (the full chain, the default).",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Memory.Timeline(cmd.Context(), args[0], memory.TimelineMode(timelineMode))
		if err != nil {
			return fmt.Errorf("timeline: %w", err)
		}
		for _, e := range entries {
			marker := " "
			if e.Memory.ID == args[0] {
				marker = "*"
			}
			fmt.Printf("%s %s  %s  %s\n", marker, e.Memory.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				e.Memory.ID, truncate(e.Memory.Content, 120))
		}
		return nil
	},
}

var memoryUsefulCmd = &cobra.Command{
	Use:   "mark-useful <id>",
	Short: "Record explicit positive feedback on a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Memory.IncrementUsefulCount(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("mark useful: %w", err)
		}
		fmt.Printf("marked %s useful\n", args[0])
		return nil
	},
}

func printMemory(m *types.Memory) {
	fmt.Printf("id:         %s\n", m.ID)
	fmt.Printf("type:       %s\n", m.ContentType)
	fmt.Printf("content:    %s\n", truncate(m.Content, 200))
	if len(m.Tags) > 0 {
		fmt.Printf("tags:       %s\n", strings.Join(m.Tags, ", "))
	}
	fmt.Printf("importance: %.2f\n", m.Importance)
	fmt.Printf("active:     %v\n", m.IsActive)
	fmt.Printf("created:    %s\n", m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func pageCount(total, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	if pages == 0 {
		return 1
	}
	return pages
}

func init() {
	memoryCreateCmd.Flags().StringVar(&createContentType, "type", string(types.ContentNote), "content type: text, note, conversation, summary")
	memoryCreateCmd.Flags().StringVar(&createSource, "source", "cli", "source label")
	memoryCreateCmd.Flags().StringVar(&createSourceURI, "source-uri", "", "source URI")
	memoryCreateCmd.Flags().StringSliceVar(&createTags, "tags", nil, "comma-separated tags")
	memoryCreateCmd.Flags().Float64Var(&createImportance, "importance", 0.5, "importance override in [0,1]")
	memoryCreateCmd.Flags().StringVar(&createAgent, "agent", "", "originating agent name")
	memoryCreateCmd.Flags().StringVar(&createSessionID, "session-id", "", "originating session id")

	memoryBrowseCmd.Flags().IntVar(&browsePage, "page", 1, "page number, 1-indexed")
	memoryBrowseCmd.Flags().IntVar(&browseLimit, "limit", 20, "page size")
	memoryBrowseCmd.Flags().StringSliceVar(&browseTags, "tags", nil, "filter to memories with all of these tags")
	memoryBrowseCmd.Flags().BoolVar(&browseActive, "active-only", true, "only include active (non-archived) memories")
	memoryBrowseCmd.Flags().BoolVar(&browseSuperseded, "include-superseded", false, "also include superseded memories even with --active-only")

	memoryTimelineCmd.Flags().StringVar(&timelineMode, "mode", "lineage", "decisions, evolution, or lineage")

	memoryUpdateCmd.Flags().StringVar(&updateContent, "content", "", "replacement content")
	memoryUpdateCmd.Flags().Float64Var(&updateImportance, "importance", 0, "replacement importance")
	memoryUpdateCmd.Flags().StringSliceVar(&updateTags, "tags", nil, "replacement tag set")

	memoryRecordAccessCmd.Flags().StringVar(&recordAccessQuery, "query", "", "the query this access was retrieved for")

	memoryCmd.AddCommand(memoryCreateCmd, memoryGetCmd, memoryBrowseCmd, memoryUpdateCmd, memoryArchiveCmd, memoryRestoreCmd, memoryDeleteCmd, memoryRecordAccessCmd, memoryUsefulCmd, memoryEntitiesCmd, memoryTimelineCmd)
	rootCmd.AddCommand(memoryCmd)
}
