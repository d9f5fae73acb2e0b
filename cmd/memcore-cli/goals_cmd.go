package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memcore/memcore/internal/goals"
	"github.com/memcore/memcore/pkg/types"
)

var (
	goalPriority string
	goalStatus   string
)

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Track long-running objectives and their milestones",
}

var goalsCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new active goal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.Goals.Create(cmd.Context(), goals.CreateInput{
			Title:    strings.Join(args, " "),
			Priority: types.GoalPriority(goalPriority),
		})
		if err != nil {
			return fmt.Errorf("create goal: %w", err)
		}
		printGoal(g)
		return nil
	},
}

var goalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals, optionally filtered by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.Goals.List(cmd.Context(), types.GoalStatus(goalStatus))
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		for i := range list {
			printGoal(&list[i])
			fmt.Println()
		}
		return nil
	},
}

var goalsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a single goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.Goals.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get goal: %w", err)
		}
		printGoal(g)
		return nil
	},
}

var goalsCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Mark a goal completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		status := types.GoalCompleted
		g, err := a.Goals.Update(cmd.Context(), args[0], goals.UpdatePatch{Status: &status})
		if err != nil {
			return fmt.Errorf("complete goal: %w", err)
		}
		printGoal(g)
		return nil
	},
}

var goalsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Goals.Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("delete goal: %w", err)
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

var goalsAddMilestoneCmd = &cobra.Command{
	Use:   "add-milestone <id> <title>",
	Short: "Append a milestone to a goal",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.Goals.AddMilestone(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("add milestone: %w", err)
		}
		printGoal(g)
		return nil
	},
}

var goalsMilestoneStatusCmd = &cobra.Command{
	Use:   "set-milestone <id> <order> <status>",
	Short: "Set a milestone's status (pending, in_progress, completed)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		order, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("order must be an integer: %w", err)
		}
		g, err := a.Goals.SetMilestoneStatus(cmd.Context(), args[0], order, types.MilestoneStatus(args[2]))
		if err != nil {
			return fmt.Errorf("set milestone status: %w", err)
		}
		printGoal(g)
		return nil
	},
}

func printGoal(g *types.Goal) {
	fmt.Printf("id:       %s\n", g.ID)
	fmt.Printf("title:    %s\n", g.Title)
	fmt.Printf("status:   %s\n", g.Status)
	fmt.Printf("priority: %s\n", g.Priority)
	if g.Deadline != nil {
		fmt.Printf("deadline: %s\n", g.Deadline.Format("2006-01-02"))
	}
	for _, m := range g.Milestones {
		fmt.Printf("  [%d] %-12s %s\n", m.Order, m.Status, m.Title)
	}
}

func init() {
	goalsCreateCmd.Flags().StringVar(&goalPriority, "priority", string(types.PriorityMedium), "low, medium, high, or critical")
	goalsListCmd.Flags().StringVar(&goalStatus, "status", "", "filter: active, completed, stalled, abandoned (default: all)")

	goalsCmd.AddCommand(goalsCreateCmd, goalsListCmd, goalsGetCmd, goalsCompleteCmd, goalsDeleteCmd, goalsAddMilestoneCmd, goalsMilestoneStatusCmd)
	rootCmd.AddCommand(goalsCmd)
}
