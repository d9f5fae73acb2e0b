package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/memcore/memcore/internal/memcoreerr"
	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

// searchProvider is the FTS5-backed lexical side of hybrid retrieval.
// memory_fts is kept in sync explicitly by Reindex/RemoveFromIndex calls
// from the write pipeline, rather than SQL triggers (see schema.go).
type searchProvider struct{ db *DB }

var _ storage.SearchProvider = (*searchProvider)(nil)

func (p *searchProvider) Reindex(ctx context.Context, m *types.Memory) error {
	conn := p.db.connFor(ctx)
	if _, err := conn.ExecContext(ctx, `DELETE FROM memory_fts WHERE id = ?`, m.ID); err != nil {
		return fmt.Errorf("sqlite: reindex delete: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	if !m.IsActive && m.SupersededBy == "" {
		return nil
	}
	_, err := conn.ExecContext(ctx,
		`INSERT INTO memory_fts (id, content, keywords, tags) VALUES (?,?,?,?)`,
		m.ID, m.Content, m.Keywords, strings.Join(m.Tags, " "))
	if err != nil {
		return fmt.Errorf("sqlite: reindex insert: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func (p *searchProvider) RemoveFromIndex(ctx context.Context, id string) error {
	_, err := p.db.connFor(ctx).ExecContext(ctx, `DELETE FROM memory_fts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: remove from index: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

// LexicalSearch runs an FTS5 MATCH query and returns hits ordered by
// SQLite's internal bm25-derived rank (most negative first, i.e. best
// match first), joined back against the memories table for the active
// filters every search call applies. Each hit's RawScore is the negated
// rank, so a higher score is a better match.
func (p *searchProvider) LexicalSearch(ctx context.Context, query string, opts storage.SearchOptions, limit int) ([]storage.LexicalHit, error) {
	ftsQuery := sanitizeFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	activeClause := "m.is_active = 1"
	if opts.IncludeSuperseded {
		activeClause = "(m.is_active = 1 OR m.superseded_by IS NOT NULL)"
	}
	sqlQuery := `
		SELECT fts.id, -rank FROM memory_fts fts
		JOIN memories m ON m.id = fts.id
		WHERE memory_fts MATCH ? AND ` + activeClause
	args := []any{ftsQuery}
	if opts.ContentType != "" {
		sqlQuery += " AND m.content_type = ?"
		args = append(args, string(opts.ContentType))
	}
	sqlQuery += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := p.db.connFor(ctx).QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: lexical search %q: %w", query, err)
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
	return out, rows.Err()
}

// sanitizeFTSQuery converts free-form user input into an OR-of-words FTS5
// query, stripping characters that would otherwise make MATCH return a
// syntax error on unbalanced quotes or stray operators.
func sanitizeFTSQuery(query string) string {
	replacer := strings.NewReplacer(`"`, " ", `'`, " ", `(`, " ", `)`, " ", `*`, " ", `-`, " ", `^`, " ", `:`, " ")
	cleaned := replacer.Replace(query)
	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return ""
	}
	for i, w := range words {
		words[i] = w + "*"
	}
	return strings.Join(words, " OR ")
}
