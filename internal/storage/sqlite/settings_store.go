package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/memcore/memcore/internal/memcoreerr"
	"github.com/memcore/memcore/internal/storage"
)

type settingsStore struct{ db *DB }

var _ storage.SettingsStore = (*settingsStore)(nil)

func (s *settingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.connFor(ctx).QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite: get setting: %w", err)
	}
	return value, true, nil
}

func (s *settingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.connFor(ctx).ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?,?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("sqlite: set setting: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func (s *settingsStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.connFor(ctx).QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: all settings: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
