package sqlite

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

// Upsert stores link, ordering (source, target) canonically so at most one
// row exists per unordered pair, and strengthening rather than overwriting
// an existing edge (max-merge semantics).
func (l *linkStore) Upsert(ctx context.Context, link *types.MemoryLink) error {
	a, b := link.SourceMemoryID, link.TargetMemoryID
	if types.UnorderedKey(a, b) != [2]string{a, b} {
		a, b = b, a
	}
	now := time.Now().UTC().Format(timeLayout)
	_, err := l.db.connFor(ctx).ExecContext(ctx, `
		INSERT INTO memory_links (source_memory_id, target_memory_id, link_type, strength, created_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT(source_memory_id, target_memory_id) DO UPDATE SET
			link_type = excluded.link_type,
			strength = MAX(memory_links.strength, excluded.strength)`,
		a, b, string(link.LinkType), link.Strength, now)
	if err != nil {
		return fmt.Errorf("sqlite: upsert link: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func (l *linkStore) Remove(ctx context.Context, a, b string) error {
	key := types.UnorderedKey(a, b)
	res, err := l.db.connFor(ctx).ExecContext(ctx,
		`DELETE FROM memory_links WHERE source_memory_id=? AND target_memory_id=?`, key[0], key[1])
	if err != nil {
		return fmt.Errorf("sqlite: remove link: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return requireRowsAffected(res)
}

func (l *linkStore) LinkedTo(ctx context.Context, memoryID string) ([]types.MemoryLink, error) {
	rows, err := l.db.connFor(ctx).QueryContext(ctx, `
		SELECT source_memory_id, target_memory_id, link_type, strength, created_at
		FROM memory_links WHERE source_memory_id=? OR target_memory_id=?`, memoryID, memoryID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: linked to: %w", err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

func (l *linkStore) DeleteAllFor(ctx context.Context, memoryID string) error {
	_, err := l.db.connFor(ctx).ExecContext(ctx,
		`DELETE FROM memory_links WHERE source_memory_id=? OR target_memory_id=?`, memoryID, memoryID)
	if err != nil {
		return fmt.Errorf("sqlite: delete links for: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func (l *linkStore) All(ctx context.Context) ([]types.MemoryLink, error) {
	rows, err := l.db.connFor(ctx).QueryContext(ctx,
		`SELECT source_memory_id, target_memory_id, link_type, strength, created_at FROM memory_links`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: all links: %w", err)
	}
	defer rows.Close()
	return scanLinks(rows)
}

func scanLinks(rows *sql.Rows) ([]types.MemoryLink, error) {
	var out []types.MemoryLink
	for rows.Next() {
		var link types.MemoryLink
		var linkType, createdAt string
		if err := rows.Scan(&link.SourceMemoryID, &link.TargetMemoryID, &linkType, &link.Strength, &createdAt); err != nil {
			return nil, err
		}
		link.LinkType = types.LinkType(linkType)
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			link.CreatedAt = t
		}
		out = append(out, link)
	}
	return out, rows.Err()
}
