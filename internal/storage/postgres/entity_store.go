package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/memcore/memcore/internal/ids"
	"github.com/memcore/memcore/internal/memcoreerr"
	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

type entityStore struct{ db *DB }

var _ storage.EntityStore = (*entityStore)(nil)

func (e *entityStore) FindOrCreateByName(ctx context.Context, name string, entityType types.EntityType) (*types.Entity, error) {
	var result *types.Entity
	err := e.db.WithTx(ctx, func(ctx context.Context) error {
		conn := e.db.connFor(ctx)
		nameLower := strings.ToLower(name)
		row := conn.QueryRowContext(ctx,
			`SELECT id, name, type FROM entities WHERE name_lower = $1`, nameLower)
		var id, gotName, gotType string
		err := row.Scan(&id, &gotName, &gotType)
		if err == nil {
			result = &types.Entity{ID: id, Name: gotName, Type: types.EntityType(gotType)}
			return nil
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("postgres: find entity: %w: %v", memcoreerr.ErrStorageFailure, err)
		}

		now := time.Now().UTC()
		newID := ids.New()
		_, err = conn.ExecContext(ctx,
			`INSERT INTO entities (id, name, name_lower, type, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6)`,
			newID, name, nameLower, string(entityType), now, now)
		if err != nil {
			if isUniqueConstraintErr(err) {
				row := conn.QueryRowContext(ctx,
					`SELECT id, name, type FROM entities WHERE name_lower = $1`, nameLower)
				var id, gotName, gotType string
				if scanErr := row.Scan(&id, &gotName, &gotType); scanErr != nil {
					return fmt.Errorf("postgres: find entity after race: %w: %v", memcoreerr.ErrStorageFailure, scanErr)
				}
				result = &types.Entity{ID: id, Name: gotName, Type: types.EntityType(gotType)}
				return nil
			}
			return fmt.Errorf("postgres: create entity: %w: %v", memcoreerr.ErrStorageFailure, err)
		}
		result = &types.Entity{ID: newID, Name: name, Type: entityType}
		return nil
	})
	return result, err
}

func (e *entityStore) LinkMemory(ctx context.Context, memoryID, entityID string, relevance float64) error {
	_, err := e.db.connFor(ctx).ExecContext(ctx, `
		INSERT INTO memory_entities (memory_id, entity_id, relevance, created_at) VALUES ($1,$2,$3,$4)
		ON CONFLICT(memory_id, entity_id) DO UPDATE SET relevance = excluded.relevance`,
		memoryID, entityID, relevance, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres: link entity: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func (e *entityStore) EntitiesForMemory(ctx context.Context, memoryID string) ([]types.Entity, error) {
	rows, err := e.db.connFor(ctx).QueryContext(ctx, `
		SELECT en.id, en.name, en.type, en.created_at, en.updated_at
		FROM entities en JOIN memory_entities me ON me.entity_id = en.id
		WHERE me.memory_id = $1`, memoryID)
	if err != nil {
		return nil, fmt.Errorf("postgres: entities for memory: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

func (e *entityStore) UpsertRelationship(ctx context.Context, r *types.EntityRelationship) error {
	if r.ID == "" {
		r.ID = ids.New()
	}
	_, err := e.db.connFor(ctx).ExecContext(ctx, `
		INSERT INTO entity_relationships (id, source_entity_id, target_entity_id, relationship, confidence, source_memory_id, context, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT(source_entity_id, target_entity_id, relationship) DO UPDATE SET
			confidence = GREATEST(entity_relationships.confidence, excluded.confidence),
			context = excluded.context`,
		r.ID, r.SourceEntityID, r.TargetEntityID, r.Relationship, r.Confidence,
		nullStr(r.SourceMemoryID), nullStr(r.Context), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres: upsert relationship: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func (e *entityStore) AllEntities(ctx context.Context) ([]types.Entity, error) {
	rows, err := e.db.connFor(ctx).QueryContext(ctx,
		`SELECT id, name, type, created_at, updated_at FROM entities`)
	if err != nil {
		return nil, fmt.Errorf("postgres: all entities: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

func (e *entityStore) AllRelationships(ctx context.Context) ([]types.EntityRelationship, error) {
	rows, err := e.db.connFor(ctx).QueryContext(ctx, `
		SELECT id, source_entity_id, target_entity_id, relationship, confidence, source_memory_id, context, created_at
		FROM entity_relationships`)
	if err != nil {
		return nil, fmt.Errorf("postgres: all relationships: %w", err)
	}
	defer rows.Close()
	var out []types.EntityRelationship
	for rows.Next() {
		var r types.EntityRelationship
		var sourceMemID, context sql.NullString
		if err := rows.Scan(&r.ID, &r.SourceEntityID, &r.TargetEntityID, &r.Relationship,
			&r.Confidence, &sourceMemID, &context, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.SourceMemoryID = sourceMemID.String
		r.Context = context.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (e *entityStore) MemoriesWithoutEntities(ctx context.Context, limit int) ([]types.Memory, error) {
	rows, err := e.db.connFor(ctx).QueryContext(ctx, selectMemorySQL+`
		WHERE is_active = TRUE AND id NOT IN (SELECT memory_id FROM memory_entities)
		ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: memories without entities: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (e *entityStore) OrphanEntities(ctx context.Context) ([]types.Entity, error) {
	rows, err := e.db.connFor(ctx).QueryContext(ctx, `
		SELECT id, name, type, created_at, updated_at FROM entities
		WHERE id NOT IN (SELECT entity_id FROM memory_entities)`)
	if err != nil {
		return nil, fmt.Errorf("postgres: orphan entities: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

func (e *entityStore) DeleteMemoryLinks(ctx context.Context, memoryID string) error {
	_, err := e.db.connFor(ctx).ExecContext(ctx, `DELETE FROM memory_entities WHERE memory_id = $1`, memoryID)
	if err != nil {
		return fmt.Errorf("postgres: delete memory entity links: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func scanEntities(rows *sql.Rows) ([]types.Entity, error) {
	var out []types.Entity
	for rows.Next() {
		var en types.Entity
		var entType string
		if err := rows.Scan(&en.ID, &en.Name, &entType, &en.CreatedAt, &en.UpdatedAt); err != nil {
			return nil, err
		}
		en.Type = types.EntityType(entType)
		out = append(out, en)
	}
	return out, rows.Err()
}
