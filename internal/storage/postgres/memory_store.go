package postgres

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

type memoryStore struct{ db *DB }

var _ storage.MemoryStore = (*memoryStore)(nil)

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

	_, err = s.db.connFor(ctx).ExecContext(ctx, `
		INSERT INTO memories (
			id, content, content_type, source, source_uri, provider, model_id,
			model_name, agent, session_id, conversation_id, embedding,
			content_hash, is_indexed, is_metadata, importance, access_count,
			useful_count, last_accessed_at, parent_id, chunk_index,
			superseded_by, is_active, metadata, keywords, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,
			$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`,
		m.ID, m.Content, string(m.ContentType), m.Source, nullStr(m.SourceURI),
		nullStr(m.Provider), nullStr(m.ModelID), nullStr(m.ModelName), nullStr(m.Agent),
		nullStr(m.SessionID), nullStr(m.ConversationID), embeddingArg(m.Embedding),
		m.ContentHash, m.IsIndexed, m.IsMetadata, m.Importance,
		m.AccessCount, m.UsefulCount, nullTime(m.LastAccessedAt), nullStr(m.ParentID),
		nullInt(m.ChunkIndex), nullStr(m.SupersededBy), m.IsActive, metaJSON,
		m.Keywords, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return memcoreerr.ErrConflict
		}
		return fmt.Errorf("postgres: insert memory: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (*types.Memory, error) {
	row := s.db.connFor(ctx).QueryRowContext(ctx, selectMemorySQL+" WHERE id = $1", id)
	m, err := scanMemory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, memcoreerr.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get memory: %w", err)
	}
	return m, nil
}

func (s *memoryStore) Update(ctx context.Context, m *types.Memory) error {
	metaJSON, err := marshalMetadata(m.Metadata)
	if err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.connFor(ctx).ExecContext(ctx, `
		UPDATE memories SET
			content=$1, content_type=$2, source=$3, source_uri=$4, provider=$5, model_id=$6,
			model_name=$7, agent=$8, session_id=$9, conversation_id=$10, embedding=$11,
			content_hash=$12, is_indexed=$13, is_metadata=$14, importance=$15, access_count=$16,
			useful_count=$17, last_accessed_at=$18, parent_id=$19, chunk_index=$20,
			superseded_by=$21, is_active=$22, metadata=$23, keywords=$24, updated_at=$25, created_at=$26
		WHERE id=$27`,
		m.Content, string(m.ContentType), m.Source, nullStr(m.SourceURI),
		nullStr(m.Provider), nullStr(m.ModelID), nullStr(m.ModelName), nullStr(m.Agent),
		nullStr(m.SessionID), nullStr(m.ConversationID), embeddingArg(m.Embedding),
		m.ContentHash, m.IsIndexed, m.IsMetadata, m.Importance,
		m.AccessCount, m.UsefulCount, nullTime(m.LastAccessedAt), nullStr(m.ParentID),
		nullInt(m.ChunkIndex), nullStr(m.SupersededBy), m.IsActive, metaJSON,
		m.Keywords, m.UpdatedAt, m.CreatedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("postgres: update memory: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return requireRowsAffected(res)
}

func (s *memoryStore) Delete(ctx context.Context, id string) error {
	// ON DELETE CASCADE on every dependent table handles the rest.
	res, err := s.db.connFor(ctx).ExecContext(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete memory: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return requireRowsAffected(res)
}

func (s *memoryStore) Archive(ctx context.Context, id string) error {
	res, err := s.db.connFor(ctx).ExecContext(ctx,
		`UPDATE memories SET is_active=FALSE, superseded_by=NULL, updated_at=$1 WHERE id=$2 AND is_active=TRUE`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("postgres: archive: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return requireRowsAffected(res)
}

func (s *memoryStore) Restore(ctx context.Context, id string) error {
	res, err := s.db.connFor(ctx).ExecContext(ctx,
		`UPDATE memories SET is_active=TRUE, updated_at=$1 WHERE id=$2 AND is_active=FALSE`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("postgres: restore: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return requireRowsAffected(res)
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
	var total int
	if err := s.db.connFor(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("postgres: list count: %w", err)
	}

	offset := (opts.Page - 1) * opts.Limit
	query := selectMemorySQL + where + fmt.Sprintf(" ORDER BY %s %s, id DESC LIMIT $%d OFFSET $%d",
		sortCol, sortDir, len(args)+1, len(args)+2)
	rows, err := s.db.connFor(ctx).QueryContext(ctx, query, append(append([]any{}, args...), opts.Limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	defer rows.Close()

	items, err := scanMemories(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: list scan: %w", err)
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
			clauses = append(clauses, "(is_active = TRUE OR superseded_by IS NOT NULL)")
		} else {
			clauses = append(clauses, "is_active = TRUE")
		}
	}
	if opts.ContentType != "" {
		args = append(args, string(opts.ContentType))
		clauses = append(clauses, fmt.Sprintf("content_type = $%d", len(args)))
	}
	if opts.After != nil {
		args = append(args, *opts.After)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if opts.Before != nil {
		args = append(args, *opts.Before)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if len(opts.Tags) > 0 {
		placeholders := ""
		for i, t := range opts.Tags {
			args = append(args, t)
			if i > 0 {
				placeholders += ","
			}
			placeholders += fmt.Sprintf("$%d", len(args))
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
		selectMemorySQL+` WHERE is_active=TRUE AND parent_id IS NULL AND content_type=$1 AND content_hash=$2`,
		string(contentType), hash)
	m, err := scanMemory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, memcoreerr.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: find by hash: %w", err)
	}
	return m, nil
}

func (s *memoryStore) RecentActiveByType(ctx context.Context, contentType types.ContentType, limit int) ([]types.Memory, error) {
	rows, err := s.db.connFor(ctx).QueryContext(ctx,
		selectMemorySQL+` WHERE is_active=TRUE AND parent_id IS NULL AND content_type=$1 ORDER BY created_at DESC LIMIT $2`,
		string(contentType), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent by type: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (s *memoryStore) ChunksOf(ctx context.Context, parentID string) ([]types.Memory, error) {
	rows, err := s.db.connFor(ctx).QueryContext(ctx,
		selectMemorySQL+` WHERE parent_id=$1 ORDER BY chunk_index ASC`, parentID)
	if err != nil {
		return nil, fmt.Errorf("postgres: chunks of: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (s *memoryStore) DeleteChunks(ctx context.Context, parentID string) error {
	_, err := s.db.connFor(ctx).ExecContext(ctx, `DELETE FROM memories WHERE parent_id = $1`, parentID)
	if err != nil {
		return fmt.Errorf("postgres: delete chunks: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func (s *memoryStore) RecordAccess(ctx context.Context, id string, query string) error {
	return s.db.WithTx(ctx, func(ctx context.Context) error {
		conn := s.db.connFor(ctx)
		now := time.Now().UTC()
		if _, err := conn.ExecContext(ctx,
			`INSERT INTO access_log (memory_id, query, created_at) VALUES ($1,$2,$3)`, id, nullStr(query), now); err != nil {
			return fmt.Errorf("postgres: record access log: %w: %v", memcoreerr.ErrStorageFailure, err)
		}
		res, err := conn.ExecContext(ctx,
			`UPDATE memories SET access_count = access_count + 1, last_accessed_at=$1 WHERE id=$2`, now, id)
		if err != nil {
			return fmt.Errorf("postgres: record access: %w: %v", memcoreerr.ErrStorageFailure, err)
		}
		return requireRowsAffected(res)
	})
}

func (s *memoryStore) IncrementUsefulCount(ctx context.Context, id string) error {
	res, err := s.db.connFor(ctx).ExecContext(ctx,
		`UPDATE memories SET useful_count = useful_count + 1, updated_at=$1 WHERE id=$2`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("postgres: increment useful count: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return requireRowsAffected(res)
}

// Supersede marks oldID inactive in favor of newID. Matching only a row
// still is_active=TRUE means a concurrent writer that already superseded
// or archived oldID causes this to affect zero rows and return
// ErrNotFound, the signal the write pipeline uses to drop its dedup
// marker instead of overwriting the other writer's outcome.
func (s *memoryStore) Supersede(ctx context.Context, oldID, newID string) error {
	res, err := s.db.connFor(ctx).ExecContext(ctx,
		`UPDATE memories SET superseded_by=$1, is_active=FALSE, updated_at=$2 WHERE id=$3 AND is_active=TRUE`,
		newID, time.Now().UTC(), oldID)
	if err != nil {
		return fmt.Errorf("postgres: supersede: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return requireRowsAffected(res)
}

// CandidatesForVectorSearch returns the most recent embedded rows matching
// the filters, newest first, for the search engine's in-process cosine
// pass. It does not order by pgvector distance.
func (s *memoryStore) CandidatesForVectorSearch(ctx context.Context, opts storage.SearchOptions, limit int) ([]types.Memory, error) {
	activeClause := "is_active = TRUE"
	if opts.IncludeSuperseded {
		activeClause = "(is_active = TRUE OR superseded_by IS NOT NULL)"
	}
	clauses := []string{activeClause, "embedding IS NOT NULL"}
	var args []any
	if opts.ContentType != "" {
		args = append(args, string(opts.ContentType))
		clauses = append(clauses, fmt.Sprintf("content_type = $%d", len(args)))
	}
	if opts.After != nil {
		args = append(args, *opts.After)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if opts.Before != nil {
		args = append(args, *opts.Before)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	where := " WHERE "
	for i, c := range clauses {
		if i > 0 {
			where += " AND "
		}
		where += c
	}
	args = append(args, limit)
	query := selectMemorySQL + where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	rows, err := s.db.connFor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: vector candidates: %w", err)
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
	var embedding nullVector
	var lastAccessedAt sql.NullTime
	var parentID, supersededBy, metaJSON sql.NullString
	var chunkIndex sql.NullInt64
	var sourceURIN, providerN, modelIDN, modelNameN, agentN, sessionIDN, conversationIDN sql.NullString

	err := row.Scan(
		&m.ID, &m.Content, &contentType, &m.Source, &sourceURIN, &providerN, &modelIDN,
		&modelNameN, &agentN, &sessionIDN, &conversationIDN, &embedding, &m.ContentHash,
		&m.IsIndexed, &m.IsMetadata, &m.Importance, &m.AccessCount, &m.UsefulCount,
		&lastAccessedAt, &parentID, &chunkIndex, &supersededBy, &m.IsActive, &metaJSON,
		&m.Keywords, &m.CreatedAt, &m.UpdatedAt,
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
	m.ParentID = parentID.String
	m.SupersededBy = supersededBy.String

	if embedding.Valid {
		m.Embedding = embedding.Vector.Slice()
	}
	if chunkIndex.Valid {
		ci := int(chunkIndex.Int64)
		m.ChunkIndex = &ci
	}
	if lastAccessedAt.Valid {
		t := lastAccessedAt.Time
		m.LastAccessedAt = &t
	}
	if metaJSON.Valid && metaJSON.String != "" {
		var meta map[string]any
		if err := json.Unmarshal([]byte(metaJSON.String), &meta); err == nil {
			m.Metadata = meta
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
