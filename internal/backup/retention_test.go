package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/memcore/memcore/internal/config"
)

func TestListBackupsEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	backups, err := listBackups(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("expected 0 backups, got %d", len(backups))
	}
}

func TestListBackupsIgnoresNonDbFiles(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "readme.txt"), []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	dbFile := filepath.Join(tmpDir, "backup.db")
	if err := os.WriteFile(dbFile, []byte("sqlite"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	backups, err := listBackups(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(backups) != 1 || backups[0].Path != dbFile {
		t.Errorf("expected only %s, got %+v", dbFile, backups)
	}
}

func TestListBackupsSortNewestFirst(t *testing.T) {
	tmpDir := t.TempDir()
	now := time.Now()
	files := []struct {
		name string
		time time.Time
	}{
		{"backup1.db", now.Add(-2 * time.Hour)},
		{"backup2.db", now.Add(-1 * time.Hour)},
		{"backup3.db", now},
	}
	for _, f := range files {
		path := filepath.Join(tmpDir, f.name)
		if err := os.WriteFile(path, []byte("sqlite"), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}
		if err := os.Chtimes(path, f.time, f.time); err != nil {
			t.Fatalf("failed to set file time: %v", err)
		}
	}

	backups, err := listBackups(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("expected 3 backups, got %d", len(backups))
	}
	if backups[0].Path != filepath.Join(tmpDir, "backup3.db") {
		t.Errorf("expected backup3.db first, got %s", backups[0].Path)
	}
}

func TestApplyRetentionDeletesFilesOlderThanOneYear(t *testing.T) {
	tmpDir := t.TempDir()
	now := time.Now()
	cfg := config.BackupConfig{RetentionHourly: 24, RetentionDaily: 7, RetentionWeekly: 4, RetentionMonthly: 12}

	oldFile := filepath.Join(tmpDir, "backup_old.db")
	if err := os.WriteFile(oldFile, []byte("old"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	oldTime := now.Add(-366 * 24 * time.Hour)
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatalf("failed to set file time: %v", err)
	}

	recentFile := filepath.Join(tmpDir, "backup_recent.db")
	if err := os.WriteFile(recentFile, []byte("recent"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	if err := applyRetention(tmpDir, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(oldFile); err == nil {
		t.Errorf("expected old backup to be deleted")
	}
	if _, err := os.Stat(recentFile); err != nil {
		t.Errorf("expected recent backup to exist: %v", err)
	}
}

func TestApplyRetentionHourlyTier(t *testing.T) {
	tmpDir := t.TempDir()
	now := time.Now()
	cfg := config.BackupConfig{RetentionHourly: 2}

	for i := 0; i < 5; i++ {
		path := filepath.Join(tmpDir, "backup_hourly_"+string(rune(48+i))+".db")
		if err := os.WriteFile(path, []byte("backup"), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}
		timestamp := now.Add(-time.Duration(i) * time.Hour)
		if err := os.Chtimes(path, timestamp, timestamp); err != nil {
			t.Fatalf("failed to set file time: %v", err)
		}
	}

	if err := applyRetention(tmpDir, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("failed to read backup directory: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 backups to remain, got %d", len(entries))
	}
}

func TestApplyRetentionMixedTiers(t *testing.T) {
	tmpDir := t.TempDir()
	now := time.Now()
	cfg := config.BackupConfig{RetentionHourly: 2, RetentionDaily: 2, RetentionWeekly: 1, RetentionMonthly: 1}

	makeAt := func(name string, age time.Duration) {
		path := filepath.Join(tmpDir, name)
		if err := os.WriteFile(path, []byte("backup"), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}
		ts := now.Add(-age)
		if err := os.Chtimes(path, ts, ts); err != nil {
			t.Fatalf("failed to set file time: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		makeAt("hourly_"+string(rune(48+i))+".db", time.Duration(i)*30*time.Minute)
	}
	for i := 0; i < 3; i++ {
		makeAt("daily_"+string(rune(48+i))+".db", time.Duration(2+i)*24*time.Hour)
	}
	for i := 0; i < 2; i++ {
		makeAt("weekly_"+string(rune(48+i))+".db", time.Duration(8+i*7)*24*time.Hour)
	}
	for i := 0; i < 2; i++ {
		makeAt("monthly_"+string(rune(48+i))+".db", time.Duration(31+i*90)*24*time.Hour)
	}

	if err := applyRetention(tmpDir, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("failed to read backup directory: %v", err)
	}
	if len(entries) != 6 {
		t.Errorf("expected 6 backups to remain (2+2+1+1), got %d", len(entries))
	}
}

func TestDiskUsageMultipleFiles(t *testing.T) {
	tmpDir := t.TempDir()
	sizes := []int64{100, 250, 500}
	var expectedTotal int64
	for i, size := range sizes {
		content := make([]byte, size)
		path := filepath.Join(tmpDir, "backup_0"+string(rune(48+i))+".db")
		if err := os.WriteFile(path, content, 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}
		expectedTotal += size
	}

	usage, err := diskUsage(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage != expectedTotal {
		t.Errorf("expected %d bytes, got %d", expectedTotal, usage)
	}
}
