package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/memcore/memcore/internal/ingest"
)

var (
	ingestTags      []string
	digestSessionID string
	digestAgent     string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Turn markdown files and session transcripts into memories",
}

var ingestFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Split a markdown file on its H2 headers and write one memory per section",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		inputs := ingest.FileToInputs(args[0], string(raw), ingestTags...)
		for _, input := range inputs {
			result, err := a.Memory.Create(cmd.Context(), input)
			if err != nil {
				return fmt.Errorf("create memory from %s: %w", input.SourceURI, err)
			}
			fmt.Printf("%s  %s\n", result.Memory.ID, input.SourceURI)
		}
		fmt.Printf("\n%d memor(y/ies) written\n", len(inputs))
		return nil
	},
}

var ingestWatchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a directory and ingest markdown files as they appear or change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		w := ingest.NewWatcher(args[0], a.Memory, ingestTags...)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer w.Stop()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		fmt.Printf("watching %s, press Ctrl+C to stop\n", args[0])
		<-sigCh

		fmt.Println("shutting down")
		return nil
	},
}

var ingestDigestCmd = &cobra.Command{
	Use:   "digest <transcript-path>",
	Short: "Summarize a session transcript into a summary memory and extracted facts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		digest := ingest.DigestSession(string(raw), digestSessionID, digestAgent)

		summary, err := a.Memory.Create(cmd.Context(), digest.Summary)
		if err != nil {
			return fmt.Errorf("create summary: %w", err)
		}
		fmt.Printf("summary: %s\n", summary.Memory.ID)

		for _, fact := range digest.Facts {
			result, err := a.Memory.Create(cmd.Context(), fact)
			if err != nil {
				return fmt.Errorf("create fact: %w", err)
			}
			fmt.Printf("fact:    %s  %s\n", result.Memory.ID, truncate(fact.Content, 80))
		}
		return nil
	},
}

func init() {
	ingestFileCmd.Flags().StringSliceVar(&ingestTags, "tags", nil, "extra tags to apply in addition to \"ingest\"")
	ingestWatchCmd.Flags().StringSliceVar(&ingestTags, "tags", nil, "extra tags to apply in addition to \"ingest\"")
	ingestDigestCmd.Flags().StringVar(&digestSessionID, "session-id", "", "session id to attribute the digest to")
	ingestDigestCmd.Flags().StringVar(&digestAgent, "agent", "", "agent name to attribute the digest to")

	ingestCmd.AddCommand(ingestFileCmd, ingestWatchCmd, ingestDigestCmd)
	rootCmd.AddCommand(ingestCmd)
}
