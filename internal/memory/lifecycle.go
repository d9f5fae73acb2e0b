package memory

import (
	"context"
	"fmt"

	"github.com/memcore/memcore/internal/notify"
	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

// Get returns the memory with id, or ErrNotFound.
func (p *Pipeline) Get(ctx context.Context, id string) (*types.Memory, error) {
	m, err := p.backend.Memories().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	tags, err := p.backend.Tags().TagsOf(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("memory: load tags: %w", err)
	}
	m.Tags = tags
	return m, nil
}

// Browse lists memories by the memory_browse filter/pagination vocabulary.
func (p *Pipeline) Browse(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.Memory], error) {
	return p.backend.Memories().List(ctx, opts)
}

// Archive sets is_active=0, superseded_by=NULL on id.
func (p *Pipeline) Archive(ctx context.Context, id string) error {
	if err := p.backend.Memories().Archive(ctx, id); err != nil {
		return fmt.Errorf("memory: archive: %w", err)
	}
	p.publish(notify.Event{Type: notify.EventMemoryArchived, MemoryID: id})
	return nil
}

// Restore reverses Archive.
func (p *Pipeline) Restore(ctx context.Context, id string) error {
	if err := p.backend.Memories().Restore(ctx, id); err != nil {
		return fmt.Errorf("memory: restore: %w", err)
	}
	return nil
}

// Delete hard-deletes id and, if it is a parent-of-chunks, its children
// first — explicit, rather than relying on a foreign-key cascade, per the
// store's cascade contract.
func (p *Pipeline) Delete(ctx context.Context, id string) error {
	err := p.backend.WithTx(ctx, func(ctx context.Context) error {
		children, err := p.backend.Memories().ChunksOf(ctx, id)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := p.deleteOne(ctx, c.ID); err != nil {
				return err
			}
		}
		return p.deleteOne(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("memory: delete: %w", err)
	}
	return nil
}

func (p *Pipeline) deleteOne(ctx context.Context, id string) error {
	if err := p.backend.Entities().DeleteMemoryLinks(ctx, id); err != nil {
		return err
	}
	if err := p.backend.Links().DeleteAllFor(ctx, id); err != nil {
		return err
	}
	if err := p.backend.Tags().DeleteTags(ctx, id); err != nil {
		return err
	}
	return p.backend.Memories().Delete(ctx, id)
}

// RecordAccess atomically bumps access_count, updates last_accessed_at,
// and appends an access-log row for id, with optional query context for
// co-retrieval link building.
func (p *Pipeline) RecordAccess(ctx context.Context, id string, query string) error {
	if err := p.backend.Memories().RecordAccess(ctx, id, query); err != nil {
		return fmt.Errorf("memory: record access: %w", err)
	}
	return nil
}

// IncrementUsefulCount bumps useful_count by one, driving the search
// engine's frequency score and the adaptive weight tuner's feedback.
func (p *Pipeline) IncrementUsefulCount(ctx context.Context, id string) error {
	if err := p.backend.Memories().IncrementUsefulCount(ctx, id); err != nil {
		return fmt.Errorf("memory: increment useful count: %w", err)
	}
	return nil
}

// Entities returns the entities extracted from memory id, confirming the
// memory exists first so a bad id surfaces ErrNotFound rather than an
// empty slice.
func (p *Pipeline) Entities(ctx context.Context, id string) ([]types.Entity, error) {
	if _, err := p.backend.Memories().Get(ctx, id); err != nil {
		return nil, err
	}
	entities, err := p.backend.Entities().EntitiesForMemory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("memory: entities: %w", err)
	}
	return entities, nil
}
