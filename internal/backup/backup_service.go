package backup

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/internal/storage"
)

// Service runs scheduled SQLite snapshots with tiered retention, and
// exposes on-demand JSON envelope export/import (plain or AES-256-GCM
// encrypted) for portable backups independent of the storage backend.
type Service struct {
	dbPath  string
	backend storage.Backend
	cfg     config.BackupConfig

	mu             sync.Mutex
	running        bool
	stopCh         chan struct{}
	lastBackupTime time.Time
	nextBackupTime time.Time
}

// NewService returns a backup Service for the SQLite file at dbPath,
// using backend for the JSON envelope export/import path.
func NewService(dbPath string, backend storage.Backend, cfg config.BackupConfig) (*Service, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("backup: database path is required")
	}
	if cfg.BackupDir == "" {
		return nil, fmt.Errorf("backup: backup directory is required")
	}
	if cfg.IntervalHours <= 0 {
		cfg.IntervalHours = 6
	}
	if cfg.RetentionHourly == 0 {
		cfg.RetentionHourly = 24
	}
	if cfg.RetentionDaily == 0 {
		cfg.RetentionDaily = 7
	}
	if cfg.RetentionWeekly == 0 {
		cfg.RetentionWeekly = 4
	}
	if cfg.RetentionMonthly == 0 {
		cfg.RetentionMonthly = 12
	}
	if err := os.MkdirAll(cfg.BackupDir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create backup dir: %w", err)
	}

	return &Service{
		dbPath:  dbPath,
		backend: backend,
		cfg:     cfg,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start runs the scheduled snapshot loop until ctx is cancelled or Stop is
// called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("backup: service already running")
	}
	s.running = true
	interval := time.Duration(s.cfg.IntervalHours) * time.Hour
	s.nextBackupTime = time.Now().Add(interval)
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("memcore/backup: scheduled snapshots every %v into %s", interval, s.cfg.BackupDir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			result, err := s.BackupNow(ctx)
			if err != nil {
				log.Printf("memcore/backup: scheduled snapshot failed: %v", err)
			} else {
				log.Printf("memcore/backup: snapshot complete: path=%s size=%d verified=%v",
					result.Path, result.Size, result.Verified)
			}
			s.mu.Lock()
			s.nextBackupTime = time.Now().Add(interval)
			s.mu.Unlock()
		}
	}
}

// Stop halts the scheduled snapshot loop.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return fmt.Errorf("backup: service not running")
	}
	close(s.stopCh)
	s.running = false
	return nil
}

// BackupNow takes an immediate VACUUM INTO snapshot, verifies it if
// configured to, and applies the retention policy.
func (s *Service) BackupNow(ctx context.Context) (*BackupResult, error) {
	start := time.Now()
	if _, err := os.Stat(s.dbPath); err != nil {
		return nil, fmt.Errorf("backup: source database not found: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000000")
	path := filepath.Join(s.cfg.BackupDir, fmt.Sprintf("memcore-backup-%s.db", timestamp))

	if err := backupSQLite(s.dbPath, path); err != nil {
		return &BackupResult{Path: path, Duration: time.Since(start), Error: err}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		err = fmt.Errorf("backup: stat snapshot: %w", err)
		return &BackupResult{Path: path, Duration: time.Since(start), Error: err}, err
	}

	result := &BackupResult{Path: path, Duration: time.Since(start), Size: info.Size()}
	if s.cfg.VerifyBackups {
		if err := verifyBackup(path); err != nil {
			result.Error = fmt.Errorf("backup: verification failed: %w", err)
			return result, result.Error
		}
		result.Verified = true
	}

	s.mu.Lock()
	s.lastBackupTime = time.Now()
	s.mu.Unlock()

	if err := applyRetention(s.cfg.BackupDir, s.cfg); err != nil {
		log.Printf("memcore/backup: retention cleanup failed: %v", err)
	}
	return result, nil
}

// ListBackups lists every stored .db snapshot.
func (s *Service) ListBackups() ([]BackupInfo, error) {
	return listBackups(s.cfg.BackupDir)
}

// RestoreBackup restores the SQLite database from a .db snapshot. The
// scheduled loop must be stopped first.
func (s *Service) RestoreBackup(ctx context.Context, backupPath string) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if running {
		return fmt.Errorf("backup: cannot restore while scheduled snapshots are running")
	}

	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup: snapshot not found: %w", err)
	}

	preRestore := s.dbPath + ".pre-restore"
	if _, err := os.Stat(s.dbPath); err == nil {
		if err := backupSQLite(s.dbPath, preRestore); err != nil {
			return fmt.Errorf("backup: pre-restore snapshot: %w", err)
		}
		defer os.Remove(preRestore)
	}

	if err := restoreSQLite(backupPath, s.dbPath); err != nil {
		if _, statErr := os.Stat(preRestore); statErr == nil {
			if rollbackErr := restoreSQLite(preRestore, s.dbPath); rollbackErr != nil {
				return fmt.Errorf("backup: restore failed and rollback failed: %v (restore error: %w)", rollbackErr, err)
			}
			return fmt.Errorf("backup: restore failed, rolled back: %w", err)
		}
		return err
	}

	log.Printf("memcore/backup: database restored from %s", backupPath)
	return nil
}

// HealthCheck reports whether scheduled snapshots are running on time.
func (s *Service) HealthCheck() (*HealthStatus, error) {
	s.mu.Lock()
	last, next := s.lastBackupTime, s.nextBackupTime
	s.mu.Unlock()

	backups, err := s.ListBackups()
	if err != nil {
		return nil, fmt.Errorf("backup: list snapshots: %w", err)
	}
	used, err := diskUsage(s.cfg.BackupDir)
	if err != nil {
		return nil, fmt.Errorf("backup: disk usage: %w", err)
	}

	status := &HealthStatus{
		LastBackup: last, NextBackup: next, TotalBackups: len(backups),
		BackupDir: s.cfg.BackupDir, DiskSpaceUsed: used, Status: "healthy",
	}

	interval := time.Duration(s.cfg.IntervalHours) * time.Hour
	switch {
	case last.IsZero():
		status.Message = "no snapshots yet"
	case time.Since(last) > interval*2:
		status.Status = "warning"
		status.Message = fmt.Sprintf("snapshot overdue by %v", time.Since(last)-interval)
	default:
		status.Message = fmt.Sprintf("last snapshot %v ago", time.Since(last).Round(time.Minute))
	}
	return status, nil
}

// ExportJSON builds a full envelope of backend's current state, encrypts
// it under key when len(key) > 0 (must be exactly 32 bytes for
// AES-256-GCM), and writes it to a timestamped file under the backup
// directory, returning its path.
func (s *Service) ExportJSON(ctx context.Context, key []byte) (string, error) {
	env, err := BuildEnvelope(ctx, s.backend)
	if err != nil {
		return "", err
	}
	data, err := MarshalEnvelope(env)
	if err != nil {
		return "", err
	}

	ext := ".json"
	if len(key) > 0 {
		if len(key) != 32 {
			return "", fmt.Errorf("backup: encryption key must be 32 bytes for AES-256, got %d", len(key))
		}
		data, err = encrypt(key, data)
		if err != nil {
			return "", err
		}
		ext = ".json.enc"
	}

	timestamp := time.Now().Format("20060102-150405.000000")
	path := filepath.Join(s.cfg.BackupDir, fmt.Sprintf("memcore-export-%s%s", timestamp, ext))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("backup: write export: %w", err)
	}
	return path, nil
}

// ImportJSON reads an envelope file written by ExportJSON (decrypting it
// under key when non-empty) and replays it into backend.
func (s *Service) ImportJSON(ctx context.Context, path string, key []byte) (RestoreReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RestoreReport{}, fmt.Errorf("backup: read export: %w", err)
	}
	if len(key) > 0 {
		data, err = decrypt(key, data)
		if err != nil {
			return RestoreReport{}, err
		}
	}
	env, err := UnmarshalEnvelope(data)
	if err != nil {
		return RestoreReport{}, err
	}
	return RestoreEnvelope(ctx, s.backend, env)
}
