package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memcore/memcore/pkg/types"
)

var (
	linkStrength float64
	linkOverride bool
)

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Create, remove, and inspect memory-to-memory links",
}

var linksCreateCmd = &cobra.Command{
	Use:   "link <source-id> <target-id> <type>",
	Short: "Link two memories (type: related, elaborates, contradicts, supersedes, supports, derived_from)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		link, err := a.Links.Link(cmd.Context(), args[0], args[1], types.LinkType(args[2]), linkStrength, linkOverride)
		if err != nil {
			return fmt.Errorf("link: %w", err)
		}
		fmt.Printf("%s -[%s, %.2f]-> %s\n", link.SourceMemoryID, link.LinkType, link.Strength, link.TargetMemoryID)
		return nil
	},
}

var linksUnlinkCmd = &cobra.Command{
	Use:   "unlink <id-a> <id-b>",
	Short: "Remove the link between two memories",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Links.Unlink(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("unlink: %w", err)
		}
		fmt.Printf("unlinked %s and %s\n", args[0], args[1])
		return nil
	},
}

var linksShowCmd = &cobra.Command{
	Use:   "show <id> [id...]",
	Short: "Show every link touching one or more memories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		refs, err := a.Links.GetLinkedRefs(cmd.Context(), args)
		if err != nil {
			return fmt.Errorf("show links: %w", err)
		}
		for _, id := range args {
			fmt.Printf("%s:\n", id)
			for _, ref := range refs[id] {
				arrow := "->"
				if !ref.Outgoing {
					arrow = "<-"
				}
				fmt.Printf("  %s [%s, %.2f] %s\n", arrow, ref.LinkType, ref.Strength, ref.Memory.ID)
			}
		}
		return nil
	},
}

func init() {
	linksCreateCmd.Flags().Float64Var(&linkStrength, "strength", 0.5, "link strength in [0,1]")
	linksCreateCmd.Flags().BoolVar(&linkOverride, "override", false, "replace an existing link's type instead of preserving the earliest one")

	linksCmd.AddCommand(linksCreateCmd, linksUnlinkCmd, linksShowCmd)
	rootCmd.AddCommand(linksCmd)
}
