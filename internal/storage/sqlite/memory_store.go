package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/memcore/memcore/internal/memcoreerr"
	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

type memoryStore struct {
	db *DB
}

var _ storage.MemoryStore = (*memoryStore)(nil)

const timeLayout = time.RFC3339Nano

func (s *memoryStore) Insert(ctx context.Context, m *types.Memory) error {
	metaJSON, err := marshalMetadata(m.Metadata)
	if err != nil {
		return err
	}
	now := m.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	m.CreatedAt, m.UpdatedAt = now, now

	conn := s.db.connFor(ctx)
	_, err = conn.ExecContext(ctx, `
		INSERT INTO memories (
			id, content, content_type, source, source_uri, provider, model_id,
			model_name, agent, session_id, conversation_id, embedding,
			content_hash, is_indexed, is_metadata, importance, access_count,
			useful_count, last_accessed_at, parent_id, chunk_index,
			superseded_by, is_active, metadata, keywords, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.Content, string(m.ContentType), m.Source, nullStr(m.SourceURI),
		nullStr(m.Provider), nullStr(m.ModelID), nullStr(m.ModelName), nullStr(m.Agent),
		nullStr(m.SessionID), nullStr(m.ConversationID), embeddingBlob(m.Embedding),
		m.ContentHash, boolInt(m.IsIndexed), boolInt(m.IsMetadata), m.Importance,
		m.AccessCount, m.UsefulCount, nullTime(m.LastAccessedAt), nullStr(m.ParentID),
		nullInt(m.ChunkIndex), nullStr(m.SupersededBy), boolInt(m.IsActive), metaJSON,
		m.Keywords, m.CreatedAt.Format(timeLayout), m.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return memcoreerr.ErrConflict
		}
		return fmt.Errorf("sqlite: insert memory: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return s.db.Search().Reindex(ctx, m)
}

func (s *memoryStore) Get(ctx context.Context, id string) (*types.Memory, error) {
	row := s.db.connFor(ctx).QueryRowContext(ctx, selectMemorySQL+" WHERE id = ?", id)
	m, err := scanMemory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, memcoreerr.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: get memory: %w", err)
	}
	return m, nil
}

func (s *memoryStore) Update(ctx context.Context, m *types.Memory) error {
	metaJSON, err := marshalMetadata(m.Metadata)
	if err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()
	conn := s.db.connFor(ctx)
	res, err := conn.ExecContext(ctx, `
		UPDATE memories SET
			content=?, content_type=?, source=?, source_uri=?, provider=?, model_id=?,
			model_name=?, agent=?, session_id=?, conversation_id=?, embedding=?,
			content_hash=?, is_indexed=?, is_metadata=?, importance=?, access_count=?,
			useful_count=?, last_accessed_at=?, parent_id=?, chunk_index=?,
			superseded_by=?, is_active=?, metadata=?, keywords=?, updated_at=?, created_at=?
		WHERE id=?`,
		m.Content, string(m.ContentType), m.Source, nullStr(m.SourceURI),
		nullStr(m.Provider), nullStr(m.ModelID), nullStr(m.ModelName), nullStr(m.Agent),
		nullStr(m.SessionID), nullStr(m.ConversationID), embeddingBlob(m.Embedding),
		m.ContentHash, boolInt(m.IsIndexed), boolInt(m.IsMetadata), m.Importance,
		m.AccessCount, m.UsefulCount, nullTime(m.LastAccessedAt), nullStr(m.ParentID),
		nullInt(m.ChunkIndex), nullStr(m.SupersededBy), boolInt(m.IsActive), metaJSON,
		m.Keywords, m.UpdatedAt.Format(timeLayout), m.CreatedAt.UTC().Format(timeLayout), m.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update memory: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	if err := requireRowsAffected(res); err != nil {
		return err
	}
	return s.db.Search().Reindex(ctx, m)
}

func (s *memoryStore) Delete(ctx context.Context, id string) error {
	conn := s.db.connFor(ctx)
	for _, stmt := range []string{
		`DELETE FROM access_log WHERE memory_id = ?`,
		`DELETE FROM memory_tags WHERE memory_id = ?`,
		`DELETE FROM memory_entities WHERE memory_id = ?`,
		`DELETE FROM memory_links WHERE source_memory_id = ? OR target_memory_id = ?`,
		`DELETE FROM memories WHERE id = ?`,
	} {
		args := []any{id}
		if countPlaceholders(stmt) == 2 {
			args = append(args, id)
		}
		if _, err := conn.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("sqlite: delete memory cascade: %w: %v", memcoreerr.ErrStorageFailure, err)
		}
	}
	return s.db.Search().RemoveFromIndex(ctx, id)
}

func (s *memoryStore) Archive(ctx context.Context, id string) error {
	conn := s.db.connFor(ctx)
	res, err := conn.ExecContext(ctx, `UPDATE memories SET is_active=0, superseded_by=NULL, updated_at=? WHERE id=? AND is_active=1`,
		time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("sqlite: archive: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	if err := requireRowsAffected(res); err != nil {
		return err
	}
	return s.db.Search().RemoveFromIndex(ctx, id)
}

func (s *memoryStore) Restore(ctx context.Context, id string) error {
	conn := s.db.connFor(ctx)
	res, err := conn.ExecContext(ctx, `UPDATE memories SET is_active=1, updated_at=? WHERE id=? AND is_active=0`,
		time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("sqlite: restore: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	if err := requireRowsAffected(res); err != nil {
		return err
	}
	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.db.Search().Reindex(ctx, m)
}

func (s *memoryStore) List(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.Memory], error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	sortCol := "created_at"
	switch opts.SortBy {
	case "updated_at", "importance":
		sortCol = opts.SortBy
	}
	sortDir := "DESC"
	if opts.SortOrder == "asc" {
		sortDir = "ASC"
	}

	where, args := listFilters(opts)
	countRow := s.db.connFor(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`+where, args...)
	var total int
	if err := countRow.Scan(&total); err != nil {
		return nil, fmt.Errorf("sqlite: list count: %w", err)
	}

	offset := (opts.Page - 1) * opts.Limit
	query := selectMemorySQL + where + fmt.Sprintf(" ORDER BY %s %s, id DESC LIMIT ? OFFSET ?", sortCol, sortDir)
	rows, err := s.db.connFor(ctx).QueryContext(ctx, query, append(append([]any{}, args...), opts.Limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	defer rows.Close()

	items, err := scanMemories(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list scan: %w", err)
	}
	return &storage.PaginatedResult[types.Memory]{
		Items: items, Total: total, Page: opts.Page, PageSize: opts.Limit,
		HasMore: offset+len(items) < total,
	}, nil
}

func listFilters(opts storage.ListOptions) (string, []any) {
	clauses := []string{}
	var args []any
	if !opts.IncludeInactive {
		if opts.IncludeSuperseded {
			clauses = append(clauses, "(is_active = 1 OR superseded_by IS NOT NULL)")
		} else {
			clauses = append(clauses, "is_active = 1")
		}
	}
	if opts.ContentType != "" {
		clauses = append(clauses, "content_type = ?")
		args = append(args, string(opts.ContentType))
	}
	if opts.After != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, opts.After.Format(timeLayout))
	}
	if opts.Before != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, opts.Before.Format(timeLayout))
	}
	if len(opts.Tags) > 0 {
		placeholders := ""
		for i, t := range opts.Tags {
			if i > 0 {
				placeholders += ","
			}
			placeholders += "?"
			args = append(args, t)
		}
		clauses = append(clauses, fmt.Sprintf(
			"id IN (SELECT memory_id FROM memory_tags WHERE tag IN (%s))", placeholders))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE "
	for i, c := range clauses {
		if i > 0 {
			where += " AND "
		}
		where += c
	}
	return where, args
}

func (s *memoryStore) FindActiveByHash(ctx context.Context, contentType types.ContentType, hash string) (*types.Memory, error) {
	row := s.db.connFor(ctx).QueryRowContext(ctx,
		selectMemorySQL+` WHERE is_active=1 AND parent_id IS NULL AND content_type=? AND content_hash=?`,
		string(contentType), hash)
	m, err := scanMemory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, memcoreerr.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: find by hash: %w", err)
	}
	return m, nil
}

func (s *memoryStore) RecentActiveByType(ctx context.Context, contentType types.ContentType, limit int) ([]types.Memory, error) {
	rows, err := s.db.connFor(ctx).QueryContext(ctx,
		selectMemorySQL+` WHERE is_active=1 AND parent_id IS NULL AND content_type=? ORDER BY created_at DESC LIMIT ?`,
		string(contentType), limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent by type: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (s *memoryStore) ChunksOf(ctx context.Context, parentID string) ([]types.Memory, error) {
	rows, err := s.db.connFor(ctx).QueryContext(ctx,
		selectMemorySQL+` WHERE parent_id=? ORDER BY chunk_index ASC`, parentID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: chunks of: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (s *memoryStore) DeleteChunks(ctx context.Context, parentID string) error {
	_, err := s.db.connFor(ctx).ExecContext(ctx, `DELETE FROM memories WHERE parent_id = ?`, parentID)
	if err != nil {
		return fmt.Errorf("sqlite: delete chunks: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func (s *memoryStore) RecordAccess(ctx context.Context, id string, query string) error {
	return s.db.WithTx(ctx, func(ctx context.Context) error {
		conn := s.db.connFor(ctx)
		now := time.Now().UTC().Format(timeLayout)
		if _, err := conn.ExecContext(ctx,
			`INSERT INTO access_log (memory_id, query, created_at) VALUES (?,?,?)`, id, nullStr(query), now); err != nil {
			return fmt.Errorf("sqlite: record access log: %w: %v", memcoreerr.ErrStorageFailure, err)
		}
		res, err := conn.ExecContext(ctx,
			`UPDATE memories SET access_count = access_count + 1, last_accessed_at=? WHERE id=?`, now, id)
		if err != nil {
			return fmt.Errorf("sqlite: record access: %w: %v", memcoreerr.ErrStorageFailure, err)
		}
		return requireRowsAffected(res)
	})
}

func (s *memoryStore) IncrementUsefulCount(ctx context.Context, id string) error {
	res, err := s.db.connFor(ctx).ExecContext(ctx,
		`UPDATE memories SET useful_count = useful_count + 1, updated_at=? WHERE id=?`,
		time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("sqlite: increment useful count: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return requireRowsAffected(res)
}

// Supersede marks oldID inactive in favor of newID. The WHERE clause only
// matches a row still is_active=1: if a concurrent writer already
// superseded or archived oldID, this updates zero rows and returns
// ErrNotFound so the write pipeline can drop its dedup marker and recheck
// rather than clobbering whatever the other writer did.
//
// Unlike Archive, this does not remove oldID from the FTS index: a
// superseded row stays lexically searchable when a caller explicitly asks
// for superseded memories (IncludeSuperseded), whereas an archived one
// never should. The indexed content is unchanged by superseding, so the
// existing memory_fts row stays valid as-is.
func (s *memoryStore) Supersede(ctx context.Context, oldID, newID string) error {
	res, err := s.db.connFor(ctx).ExecContext(ctx,
		`UPDATE memories SET superseded_by=?, is_active=0, updated_at=? WHERE id=? AND is_active=1`,
		newID, time.Now().UTC().Format(timeLayout), oldID)
	if err != nil {
		return fmt.Errorf("sqlite: supersede: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return requireRowsAffected(res)
}

func (s *memoryStore) CandidatesForVectorSearch(ctx context.Context, opts storage.SearchOptions, limit int) ([]types.Memory, error) {
	activeClause := "is_active = 1"
	if opts.IncludeSuperseded {
		activeClause = "(is_active = 1 OR superseded_by IS NOT NULL)"
	}
	clauses := []string{activeClause, "embedding IS NOT NULL"}
	var args []any
	if opts.ContentType != "" {
		clauses = append(clauses, "content_type = ?")
		args = append(args, string(opts.ContentType))
	}
	if opts.After != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, opts.After.Format(timeLayout))
	}
	if opts.Before != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, opts.Before.Format(timeLayout))
	}
	where := " WHERE "
	for i, c := range clauses {
		if i > 0 {
			where += " AND "
		}
		where += c
	}
	query := selectMemorySQL + where + " ORDER BY created_at DESC LIMIT ?"
	rows, err := s.db.connFor(ctx).QueryContext(ctx, query, append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: vector candidates: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

const selectMemorySQL = `
SELECT id, content, content_type, source, source_uri, provider, model_id, model_name,
	agent, session_id, conversation_id, embedding, content_hash, is_indexed,
	is_metadata, importance, access_count, useful_count, last_accessed_at,
	parent_id, chunk_index, superseded_by, is_active, metadata, keywords,
	created_at, updated_at
FROM memories`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (*types.Memory, error) {
	var m types.Memory
	var contentType string
	var embedding []byte
	var isIndexed, isMetadata, isActive int
	var lastAccessedAt, parentID, supersededBy, metaJSON, createdAt, updatedAt sql.NullString
	var chunkIndex sql.NullInt64
	var sourceURIN, providerN, modelIDN, modelNameN, agentN, sessionIDN, conversationIDN sql.NullString

	err := row.Scan(
		&m.ID, &m.Content, &contentType, &m.Source, &sourceURIN, &providerN, &modelIDN,
		&modelNameN, &agentN, &sessionIDN, &conversationIDN, &embedding, &m.ContentHash,
		&isIndexed, &isMetadata, &m.Importance, &m.AccessCount, &m.UsefulCount,
		&lastAccessedAt, &parentID, &chunkIndex, &supersededBy, &isActive, &metaJSON,
		&m.Keywords, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.ContentType = types.ContentType(contentType)
	m.SourceURI = sourceURIN.String
	m.Provider = providerN.String
	m.ModelID = modelIDN.String
	m.ModelName = modelNameN.String
	m.Agent = agentN.String
	m.SessionID = sessionIDN.String
	m.ConversationID = conversationIDN.String
	m.IsIndexed = isIndexed != 0
	m.IsMetadata = isMetadata != 0
	m.IsActive = isActive != 0
	m.ParentID = parentID.String
	m.SupersededBy = supersededBy.String

	if len(embedding) > 0 {
		vec, err := blobToFloat32s(embedding)
		if err != nil {
			return nil, fmt.Errorf("decode embedding: %w", err)
		}
		m.Embedding = vec
	}
	if chunkIndex.Valid {
		ci := int(chunkIndex.Int64)
		m.ChunkIndex = &ci
	}
	if lastAccessedAt.Valid && lastAccessedAt.String != "" {
		t, err := time.Parse(timeLayout, lastAccessedAt.String)
		if err == nil {
			m.LastAccessedAt = &t
		}
	}
	if metaJSON.Valid && metaJSON.String != "" {
		var meta map[string]any
		if err := json.Unmarshal([]byte(metaJSON.String), &meta); err == nil {
			m.Metadata = meta
		}
	}
	if createdAt.Valid {
		if t, err := time.Parse(timeLayout, createdAt.String); err == nil {
			m.CreatedAt = t
		}
	}
	if updatedAt.Valid {
		if t, err := time.Parse(timeLayout, updatedAt.String); err == nil {
			m.UpdatedAt = t
		}
	}
	return &m, nil
}

func scanMemories(rows *sql.Rows) ([]types.Memory, error) {
	var out []types.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
