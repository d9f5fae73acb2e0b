package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check storage connectivity and embedding oracle health",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Memory.Ping(cmd.Context())
		if err != nil {
			return fmt.Errorf("ping: %w", err)
		}
		fmt.Printf("storage:   ok\n")
		fmt.Printf("embedding: %s\n", result.EmbeddingState)
		fmt.Printf("checked:   %s\n", result.CheckedAt.Format("2006-01-02T15:04:05Z07:00"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
