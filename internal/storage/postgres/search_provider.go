package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

// searchProvider is the tsvector-backed lexical side of hybrid retrieval.
// content_tsv is kept current by the memories_tsv_update trigger (schema.go),
// so Reindex/RemoveFromIndex here are no-ops: unlike the sqlite backend's
// explicitly-synced standalone FTS5 table, Postgres recomputes the column
// in the same statement that writes content/keywords (tags are not part of
// the tsvector).
type searchProvider struct{ db *DB }

var _ storage.SearchProvider = (*searchProvider)(nil)

func (p *searchProvider) Reindex(ctx context.Context, m *types.Memory) error {
	return nil
}

func (p *searchProvider) RemoveFromIndex(ctx context.Context, id string) error {
	return nil
}

// LexicalSearch runs a plainto_tsquery match against content_tsv and
// returns hits ordered by ts_rank, highest relevance first.
func (p *searchProvider) LexicalSearch(ctx context.Context, query string, opts storage.SearchOptions, limit int) ([]storage.LexicalHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	activeClause := "m.is_active = TRUE"
	if opts.IncludeSuperseded {
		activeClause = "(m.is_active = TRUE OR m.superseded_by IS NOT NULL)"
	}
	sqlQuery := `
		SELECT m.id, ts_rank(m.content_tsv, plainto_tsquery('english', $1)) AS rank
		FROM memories m
		WHERE m.content_tsv @@ plainto_tsquery('english', $1) AND ` + activeClause
	args := []any{query}
	if opts.ContentType != "" {
		args = append(args, string(opts.ContentType))
		sqlQuery += fmt.Sprintf(" AND m.content_type = $%d", len(args))
	}
	args = append(args, limit)
	sqlQuery += fmt.Sprintf(" ORDER BY rank DESC LIMIT $%d", len(args))

	rows, err := p.db.connFor(ctx).QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: lexical search %q: %w", query, err)
	}
	defer rows.Close()

	var out []storage.LexicalHit
	for rows.Next() {
		var hit storage.LexicalHit
		if err := rows.Scan(&hit.MemoryID, &hit.RawScore); err != nil {
			return nil, err
		}
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
