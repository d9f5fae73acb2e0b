package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/memcore/memcore/internal/config"
)

// listBackups lists every .db snapshot in dir, newest first.
func listBackups(dir string) ([]BackupInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("backup: read dir: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // skip files we can't stat
		}
		backups = append(backups, BackupInfo{
			Path:      filepath.Join(dir, entry.Name()),
			Timestamp: info.ModTime(),
			Size:      info.Size(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// applyRetention removes snapshots beyond what cfg's tiered policy keeps.
// Snapshots are bucketed by age into hourly/daily/weekly/monthly tiers;
// within each tier only the newest N are kept, and anything older than a
// year is always deleted regardless of tier counts.
func applyRetention(dir string, cfg config.BackupConfig) error {
	backups, err := listBackups(dir)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return nil
	}

	now := time.Now()
	var toDelete []string
	var hourly, daily, weekly, monthly []BackupInfo

	for _, b := range backups {
		age := now.Sub(b.Timestamp)
		switch {
		case age < 24*time.Hour:
			hourly = append(hourly, b)
		case age < 7*24*time.Hour:
			daily = append(daily, b)
		case age < 30*24*time.Hour:
			weekly = append(weekly, b)
		case age < 365*24*time.Hour:
			monthly = append(monthly, b)
		default:
			toDelete = append(toDelete, b.Path)
		}
	}

	keep := func(tier []BackupInfo, n int) {
		if len(tier) > n {
			for _, b := range tier[n:] {
				toDelete = append(toDelete, b.Path)
			}
		}
	}
	keep(hourly, cfg.RetentionHourly)
	keep(daily, cfg.RetentionDaily)
	keep(weekly, cfg.RetentionWeekly)
	keep(monthly, cfg.RetentionMonthly)

	var lastErr error
	for _, path := range toDelete {
		if err := os.Remove(path); err != nil {
			lastErr = err // keep deleting the rest even if one fails
		}
	}
	if lastErr != nil {
		return fmt.Errorf("backup: retention cleanup: %w", lastErr)
	}
	return nil
}

// diskUsage sums the size of every snapshot in dir.
func diskUsage(dir string) (int64, error) {
	backups, err := listBackups(dir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, b := range backups {
		total += b.Size
	}
	return total, nil
}
