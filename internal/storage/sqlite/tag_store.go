package sqlite

import (
	"context"
	"fmt"

	"github.com/memcore/memcore/internal/memcoreerr"
	"github.com/memcore/memcore/internal/storage"
)

type tagStore struct{ db *DB }

var _ storage.TagStore = (*tagStore)(nil)

func (t *tagStore) SetTags(ctx context.Context, memoryID string, tags []string) error {
	return t.db.WithTx(ctx, func(ctx context.Context) error {
		conn := t.db.connFor(ctx)
		if _, err := conn.ExecContext(ctx, `DELETE FROM memory_tags WHERE memory_id = ?`, memoryID); err != nil {
			return fmt.Errorf("sqlite: clear tags: %w: %v", memcoreerr.ErrStorageFailure, err)
		}
		for _, tag := range tags {
			if _, err := conn.ExecContext(ctx,
				`INSERT OR IGNORE INTO memory_tags (memory_id, tag) VALUES (?,?)`, memoryID, tag); err != nil {
				return fmt.Errorf("sqlite: set tag: %w: %v", memcoreerr.ErrStorageFailure, err)
			}
		}
		return nil
	})
}

func (t *tagStore) TagsOf(ctx context.Context, memoryID string) ([]string, error) {
	rows, err := t.db.connFor(ctx).QueryContext(ctx,
		`SELECT tag FROM memory_tags WHERE memory_id = ? ORDER BY tag`, memoryID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: tags of: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return out, rows.Err()
}

func (t *tagStore) AliasMap(ctx context.Context) (map[string]string, error) {
	rows, err := t.db.connFor(ctx).QueryContext(ctx, `SELECT alias, canonical FROM tag_alias`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: alias map: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var alias, canonical string
		if err := rows.Scan(&alias, &canonical); err != nil {
			return nil, err
		}
		out[alias] = canonical
	}
	return out, rows.Err()
}

func (t *tagStore) DeleteTags(ctx context.Context, memoryID string) error {
	_, err := t.db.connFor(ctx).ExecContext(ctx, `DELETE FROM memory_tags WHERE memory_id = ?`, memoryID)
	if err != nil {
		return fmt.Errorf("sqlite: delete tags: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}
