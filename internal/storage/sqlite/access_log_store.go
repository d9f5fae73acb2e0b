package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/memcore/memcore/internal/memcoreerr"
	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

type accessLogStore struct{ db *DB }

var _ storage.AccessLogStore = (*accessLogStore)(nil)

func (a *accessLogStore) Append(ctx context.Context, log types.AccessLog) error {
	now := log.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	_, err := a.db.connFor(ctx).ExecContext(ctx,
		`INSERT INTO access_log (memory_id, query, created_at) VALUES (?,?,?)`,
		log.MemoryID, nullStr(log.Query), now.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("sqlite: append access log: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func (a *accessLogStore) RecentForMemory(ctx context.Context, memoryID string, limit int) ([]types.AccessLog, error) {
	rows, err := a.db.connFor(ctx).QueryContext(ctx, `
		SELECT id, memory_id, query, created_at FROM access_log
		WHERE memory_id = ? ORDER BY created_at DESC LIMIT ?`, memoryID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent access for memory: %w", err)
	}
	defer rows.Close()
	var out []types.AccessLog
	for rows.Next() {
		var log types.AccessLog
		var query *string
		var createdAt string
		if err := rows.Scan(&log.ID, &log.MemoryID, &query, &createdAt); err != nil {
			return nil, err
		}
		if query != nil {
			log.Query = *query
		}
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			log.CreatedAt = t
		}
		out = append(out, log)
	}
	return out, rows.Err()
}

func (a *accessLogStore) CountForMemory(ctx context.Context, memoryID string) (int, error) {
	var n int
	err := a.db.connFor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM access_log WHERE memory_id = ?`, memoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count access for memory: %w", err)
	}
	return n, nil
}

// CoRetrieved returns, for every pair of memories accessed within
// windowSeconds of each other by distinct access_log rows, the number of
// times that co-occurrence happened. Used by the co-retrieval link
// maintenance pass; quadratic in recent log size, so callers bound the
// window and/or row count before calling this.
func (a *accessLogStore) CoRetrieved(ctx context.Context, windowSeconds int) (map[[2]string]int, error) {
	rows, err := a.db.connFor(ctx).QueryContext(ctx,
		`SELECT memory_id, created_at FROM access_log ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: co-retrieved scan: %w", err)
	}
	defer rows.Close()

	type entry struct {
		memoryID string
		at       time.Time
	}
	var entries []entry
	for rows.Next() {
		var memoryID, createdAt string
		if err := rows.Scan(&memoryID, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			continue
		}
		entries = append(entries, entry{memoryID, t})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	window := time.Duration(windowSeconds) * time.Second
	counts := map[[2]string]int{}
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			delta := entries[j].at.Sub(entries[i].at)
			if delta > window {
				break
			}
			if entries[i].memoryID == entries[j].memoryID {
				continue
			}
			key := types.UnorderedKey(entries[i].memoryID, entries[j].memoryID)
			counts[key]++
		}
	}
	return counts, nil
}
