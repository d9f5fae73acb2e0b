package main

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	backupEncryptKeyHex string
	backupImportPath    string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Run and inspect scheduled SQLite snapshots, and portable JSON exports",
}

var backupNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Take an immediate SQLite snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.backupService()
		if err != nil {
			return err
		}
		result, err := svc.BackupNow(cmd.Context())
		if err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		fmt.Printf("path:     %s\n", result.Path)
		fmt.Printf("size:     %.2f MB\n", float64(result.Size)/(1024*1024))
		fmt.Printf("duration: %v\n", result.Duration)
		fmt.Printf("verified: %v\n", result.Verified)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available SQLite snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.backupService()
		if err != nil {
			return err
		}
		backups, err := svc.ListBackups()
		if err != nil {
			return fmt.Errorf("list backups: %w", err)
		}
		if len(backups) == 0 {
			fmt.Println("no backups found")
			return nil
		}
		for i, b := range backups {
			fmt.Printf("%d. %s (%.2f MB, %s ago, verified=%v)\n", i+1, b.Path, float64(b.Size)/(1024*1024), time.Since(b.Timestamp).Round(time.Minute), b.Verified)
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <path>",
	Short: "Restore the database from an SQLite snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.backupService()
		if err != nil {
			return err
		}
		if err := svc.RestoreBackup(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		fmt.Println("database restored")
		return nil
	},
}

var backupHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether scheduled backups are on schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.backupService()
		if err != nil {
			return err
		}
		health, err := svc.HealthCheck()
		if err != nil {
			return fmt.Errorf("health check: %w", err)
		}
		fmt.Printf("status:        %s\n", health.Status)
		if health.Message != "" {
			fmt.Printf("message:       %s\n", health.Message)
		}
		fmt.Printf("total backups: %d\n", health.TotalBackups)
		fmt.Printf("disk used:     %.2f MB\n", float64(health.DiskSpaceUsed)/(1024*1024))
		if !health.LastBackup.IsZero() {
			fmt.Printf("last backup:   %s ago\n", time.Since(health.LastBackup).Round(time.Minute))
		} else {
			fmt.Println("last backup:   never")
		}
		return nil
	},
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the full store as a portable JSON envelope",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.backupService()
		if err != nil {
			return err
		}
		key, err := decodeKey(backupEncryptKeyHex)
		if err != nil {
			return err
		}
		path, err := svc.ExportJSON(cmd.Context(), key)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Printf("exported to %s\n", path)
		return nil
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a JSON envelope produced by export",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		svc, err := a.backupService()
		if err != nil {
			return err
		}
		key, err := decodeKey(backupEncryptKeyHex)
		if err != nil {
			return err
		}
		report, err := svc.ImportJSON(cmd.Context(), backupImportPath, key)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		fmt.Printf("memories restored:      %d (skipped %d)\n", report.MemoriesRestored, report.MemoriesSkipped)
		fmt.Printf("entities restored:      %d (skipped %d)\n", report.EntitiesRestored, report.EntitiesSkipped)
		fmt.Printf("entity links restored:  %d\n", report.EntityLinksRestored)
		fmt.Printf("relationships restored: %d\n", report.RelationshipsRestored)
		fmt.Printf("memory links restored:  %d\n", report.MemoryLinksRestored)
		fmt.Printf("goals restored:         %d (skipped %d)\n", report.GoalsRestored, report.GoalsSkipped)
		return nil
	},
}

func decodeKey(hexKey string) ([]byte, error) {
	if hexKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key must be hex-encoded: %w", err)
	}
	return key, nil
}

func init() {
	backupExportCmd.Flags().StringVar(&backupEncryptKeyHex, "key", "", "hex-encoded AES-256 key; omit for a plaintext export")
	backupImportCmd.Flags().StringVar(&backupEncryptKeyHex, "key", "", "hex-encoded AES-256 key used to encrypt the envelope; omit for a plaintext import")
	backupImportCmd.Flags().StringVar(&backupImportPath, "file", "", "path to the JSON envelope to import")
	_ = backupImportCmd.MarkFlagRequired("file")

	backupCmd.AddCommand(backupNowCmd, backupListCmd, backupRestoreCmd, backupHealthCmd, backupExportCmd, backupImportCmd)
	rootCmd.AddCommand(backupCmd)
}
