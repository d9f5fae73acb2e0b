package postgres

import (
	"context"
	"fmt"

	"github.com/memcore/memcore/internal/memcoreerr"
	"github.com/memcore/memcore/internal/storage"
)

type counterStore struct{ db *DB }

var _ storage.CounterStore = (*counterStore)(nil)

func (c *counterStore) Increment(ctx context.Context, key string, delta int64) error {
	_, err := c.db.connFor(ctx).ExecContext(ctx, `
		INSERT INTO observability_counters (key, value) VALUES ($1, $2)
		ON CONFLICT(key) DO UPDATE SET value = observability_counters.value + excluded.value`, key, delta)
	if err != nil {
		return fmt.Errorf("postgres: increment counter: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func (c *counterStore) All(ctx context.Context) (map[string]int64, error) {
	rows, err := c.db.connFor(ctx).QueryContext(ctx, `SELECT key, value FROM observability_counters`)
	if err != nil {
		return nil, fmt.Errorf("postgres: all counters: %w", err)
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var k string
		var v int64
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
