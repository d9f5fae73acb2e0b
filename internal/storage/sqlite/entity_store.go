package sqlite

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
			`SELECT id, name, type, aliases, created_at, updated_at FROM entities WHERE name_lower = ?`, nameLower)
		var id, gotName, gotType string
		var aliases sql.NullString
		var createdAt, updatedAt string
		err := row.Scan(&id, &gotName, &gotType, &aliases, &createdAt, &updatedAt)
		if err == nil {
			result = &types.Entity{ID: id, Name: gotName, Type: types.EntityType(gotType)}
			return nil
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("sqlite: find entity: %w: %v", memcoreerr.ErrStorageFailure, err)
		}

		now := time.Now().UTC().Format(timeLayout)
		newID := ids.New()
		_, err = conn.ExecContext(ctx,
			`INSERT INTO entities (id, name, name_lower, type, created_at, updated_at) VALUES (?,?,?,?,?,?)`,
			newID, name, nameLower, string(entityType), now, now)
		if err != nil {
			if isUniqueConstraintErr(err) {
				// Lost a create race; reuse the winner.
				row := conn.QueryRowContext(ctx,
					`SELECT id, name, type FROM entities WHERE name_lower = ?`, nameLower)
				var id, gotName, gotType string
				if scanErr := row.Scan(&id, &gotName, &gotType); scanErr != nil {
					return fmt.Errorf("sqlite: find entity after race: %w: %v", memcoreerr.ErrStorageFailure, scanErr)
				}
				result = &types.Entity{ID: id, Name: gotName, Type: types.EntityType(gotType)}
				return nil
			}
			return fmt.Errorf("sqlite: create entity: %w: %v", memcoreerr.ErrStorageFailure, err)
		}
		result = &types.Entity{ID: newID, Name: name, Type: entityType}
		return nil
	})
	return result, err
}

func (e *entityStore) LinkMemory(ctx context.Context, memoryID, entityID string, relevance float64) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := e.db.connFor(ctx).ExecContext(ctx, `
		INSERT INTO memory_entities (memory_id, entity_id, relevance, created_at) VALUES (?,?,?,?)
		ON CONFLICT(memory_id, entity_id) DO UPDATE SET relevance = excluded.relevance`,
		memoryID, entityID, relevance, now)
	if err != nil {
		return fmt.Errorf("sqlite: link entity: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func (e *entityStore) EntitiesForMemory(ctx context.Context, memoryID string) ([]types.Entity, error) {
	rows, err := e.db.connFor(ctx).QueryContext(ctx, `
		SELECT en.id, en.name, en.type, en.created_at, en.updated_at
		FROM entities en JOIN memory_entities me ON me.entity_id = en.id
		WHERE me.memory_id = ?`, memoryID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: entities for memory: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

func (e *entityStore) UpsertRelationship(ctx context.Context, r *types.EntityRelationship) error {
	if r.ID == "" {
		r.ID = ids.New()
	}
	now := time.Now().UTC().Format(timeLayout)
	_, err := e.db.connFor(ctx).ExecContext(ctx, `
		INSERT INTO entity_relationships (id, source_entity_id, target_entity_id, relationship, confidence, source_memory_id, context, created_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(source_entity_id, target_entity_id, relationship) DO UPDATE SET
			confidence = MAX(entity_relationships.confidence, excluded.confidence),
			context = excluded.context`,
		r.ID, r.SourceEntityID, r.TargetEntityID, r.Relationship, r.Confidence,
		nullStr(r.SourceMemoryID), nullStr(r.Context), now)
	if err != nil {
		return fmt.Errorf("sqlite: upsert relationship: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func (e *entityStore) AllEntities(ctx context.Context) ([]types.Entity, error) {
	rows, err := e.db.connFor(ctx).QueryContext(ctx,
		`SELECT id, name, type, created_at, updated_at FROM entities`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: all entities: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

func (e *entityStore) AllRelationships(ctx context.Context) ([]types.EntityRelationship, error) {
	rows, err := e.db.connFor(ctx).QueryContext(ctx, `
		SELECT id, source_entity_id, target_entity_id, relationship, confidence, source_memory_id, context, created_at
		FROM entity_relationships`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: all relationships: %w", err)
	}
	defer rows.Close()
	var out []types.EntityRelationship
	for rows.Next() {
		var r types.EntityRelationship
		var sourceMemID, context sql.NullString
		var createdAt string
		if err := rows.Scan(&r.ID, &r.SourceEntityID, &r.TargetEntityID, &r.Relationship,
			&r.Confidence, &sourceMemID, &context, &createdAt); err != nil {
			return nil, err
		}
		r.SourceMemoryID = sourceMemID.String
		r.Context = context.String
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			r.CreatedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (e *entityStore) MemoriesWithoutEntities(ctx context.Context, limit int) ([]types.Memory, error) {
	rows, err := e.db.connFor(ctx).QueryContext(ctx, selectMemorySQL+`
		WHERE is_active = 1 AND id NOT IN (SELECT memory_id FROM memory_entities)
		ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: memories without entities: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (e *entityStore) OrphanEntities(ctx context.Context) ([]types.Entity, error) {
	rows, err := e.db.connFor(ctx).QueryContext(ctx, `
		SELECT id, name, type, created_at, updated_at FROM entities
		WHERE id NOT IN (SELECT entity_id FROM memory_entities)`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: orphan entities: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

func (e *entityStore) DeleteMemoryLinks(ctx context.Context, memoryID string) error {
	_, err := e.db.connFor(ctx).ExecContext(ctx, `DELETE FROM memory_entities WHERE memory_id = ?`, memoryID)
	if err != nil {
		return fmt.Errorf("sqlite: delete memory entity links: %w: %v", memcoreerr.ErrStorageFailure, err)
	}
	return nil
}

func scanEntities(rows *sql.Rows) ([]types.Entity, error) {
	var out []types.Entity
	for rows.Next() {
		var en types.Entity
		var entType, createdAt, updatedAt string
		if err := rows.Scan(&en.ID, &en.Name, &entType, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		en.Type = types.EntityType(entType)
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			en.CreatedAt = t
		}
		if t, err := time.Parse(timeLayout, updatedAt); err == nil {
			en.UpdatedAt = t
		}
		out = append(out, en)
	}
	return out, rows.Err()
}
