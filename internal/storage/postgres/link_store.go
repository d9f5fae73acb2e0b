package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/memcore/memcore/internal/memcoreerr"
	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

type linkStore struct{ db *DB }

var _ storage.LinkStore = (*linkStore)(nil)

func (l *linkStore) Upsert(ctx context.Context, link *types.MemoryLink) error {
	a, b := link.SourceMemoryID, link.TargetMemoryID
	if types.UnorderedKey(a, b) != [2]string{a, b} {
		a, b = b, a
	}
	_, err := l.db.connFor(ctx).ExecContext(ctx, `
		INSERT INTO memory_links (source_memory_id, target_memory_id, link_type, strength, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT(source_memory_id, target_memory_id) DO UPDATE SET
			link_type = excluded.link_type,
			strength = GREATEST(memory_links.strength, excluded.strength)`,
		a, b, string(link.LinkType), link.Strength, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres: upsert link: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func (l *linkStore) Remove(ctx context.Context, a, b string) error {
	key := types.UnorderedKey(a, b)
	res, err := l.db.connFor(ctx).ExecContext(ctx,
		`DELETE FROM memory_links WHERE source_memory_id=$1 AND target_memory_id=$2`, key[0], key[1])
	if err != nil {
		return fmt.Errorf("postgres: remove link: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return requireRowsAffected(res)
}

func (l *linkStore) LinkedTo(ctx context.Context, memoryID string) ([]types.MemoryLink, error) {
	rows, err := l.db.connFor(ctx).QueryContext(ctx, `
		SELECT source_memory_id, target_memory_id, link_type, strength, created_at
		FROM memory_links WHERE source_memory_id=$1 OR target_memory_id=$1`, memoryID)
	if err != nil {
		return nil, fmt.Errorf("postgres: linked to: %w", err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

func (l *linkStore) DeleteAllFor(ctx context.Context, memoryID string) error {
	_, err := l.db.connFor(ctx).ExecContext(ctx,
		`DELETE FROM memory_links WHERE source_memory_id=$1 OR target_memory_id=$1`, memoryID)
	if err != nil {
		return fmt.Errorf("postgres: delete links for: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func (l *linkStore) All(ctx context.Context) ([]types.MemoryLink, error) {
	rows, err := l.db.connFor(ctx).QueryContext(ctx,
		`SELECT source_memory_id, target_memory_id, link_type, strength, created_at FROM memory_links`)
	if err != nil {
		return nil, fmt.Errorf("postgres: all links: %w", err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

func scanLinks(rows *sql.Rows) ([]types.MemoryLink, error) {
	var out []types.MemoryLink
	for rows.Next() {
		var link types.MemoryLink
		var linkType string
		if err := rows.Scan(&link.SourceMemoryID, &link.TargetMemoryID, &linkType, &link.Strength, &link.CreatedAt); err != nil {
			return nil, err
		}
		link.LinkType = types.LinkType(linkType)
		out = append(out, link)
	}
	return out, rows.Err()
}
