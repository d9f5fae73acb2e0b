package memory

import (
	"context"
	"fmt"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/internal/content"
	"github.com/memcore/memcore/internal/ids"
	"github.com/memcore/memcore/internal/memcoreerr"
	"github.com/memcore/memcore/internal/notify"
	"github.com/memcore/memcore/internal/tagging"
	"github.com/memcore/memcore/pkg/types"
)

// Update applies patch to the memory identified by id: content changes
// recompute the hash and (if indexed) the embedding; a parent-of-chunks
// whose new content still exceeds the chunking threshold has its chunk
// set rebuilt atomically, while one that shrinks below it is "dechunked"
// into a single embedded row. Keywords regenerate whenever content or
// tags change.
func (p *Pipeline) Update(ctx context.Context, id string, patch UpdatePatch) (*types.Memory, error) {
	cfg, err := p.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := p.backend.Memories().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	existingTags, err := p.backend.Tags().TagsOf(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("memory: load tags for update: %w", err)
	}
	children, err := p.backend.Memories().ChunksOf(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("memory: load chunks for update: %w", err)
	}
	isParentOfChunks := len(children) > 0

	contentChanged := false
	if patch.Content != nil {
		stripped, err := content.StripPrivate(*patch.Content)
		if err != nil {
			return nil, err
		}
		if stripped != existing.Content {
			contentChanged = true
			existing.Content = stripped
			existing.ContentHash = content.Hash(stripped)
		}
	}
	if patch.ContentType != nil {
		if !patch.ContentType.Valid() {
			return nil, fmt.Errorf("%w: unknown content_type %q", memcoreerr.ErrInvalidInput, *patch.ContentType)
		}
		existing.ContentType = *patch.ContentType
	}
	if patch.Source != nil {
		existing.Source = *patch.Source
	}
	if patch.SourceURI != nil {
		existing.SourceURI = *patch.SourceURI
	}
	if patch.Importance != nil {
		if *patch.Importance < 0 || *patch.Importance > 1 {
			return nil, fmt.Errorf("%w: importance %v out of range [0,1]", memcoreerr.ErrInvalidInput, *patch.Importance)
		}
		existing.Importance = *patch.Importance
	}

	newTags := existingTags
	tagsChanged := false
	if patch.Tags != nil {
		aliasMap, err := p.backend.Tags().AliasMap(ctx)
		if err != nil {
			return nil, fmt.Errorf("memory: load tag aliases: %w", err)
		}
		normalized := tagging.Normalize(patch.Tags, aliasMap)
		if !sameTags(normalized, existingTags) {
			newTags, tagsChanged = normalized, true
		}
	}

	existing.Metadata = mergeMetadata(existing.Metadata, patch.Metadata, patch.ClearMetadataKeys)
	existing.Tags = newTags
	existing.UpdatedAt = now()

	var rebuiltChildren []*types.Memory
	rechunking := false

	switch {
	case isParentOfChunks && contentChanged && len(existing.Content) > cfg.Chunking.MaxLength:
		rechunking = true
		rebuiltChildren = p.buildChunkChildren(ctx, cfg, existing)
		existing.Embedding = nil
	case isParentOfChunks && contentChanged:
		// Shrunk below the threshold: dechunk into one embedded row.
		if vec, err := p.tryEmbed(ctx, existing.Content); err == nil {
			existing.Embedding = vec
		}
		existing.IsIndexed = true
	case !isParentOfChunks && contentChanged && existing.IsIndexed:
		vec, err := p.tryEmbed(ctx, existing.Content)
		if err != nil {
			existing.Embedding = nil
		} else {
			existing.Embedding = vec
		}
	}

	if contentChanged || tagsChanged {
		entityNames, err := p.entityNamesFor(ctx, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("memory: load entity names for keyword regeneration: %w", err)
		}
		existing.Keywords = tagging.Generate(existing.Content, newTags, entityNames)
	}

	err = p.backend.WithTx(ctx, func(ctx context.Context) error {
		if isParentOfChunks && (rechunking || contentChanged) {
			if err := p.backend.Memories().DeleteChunks(ctx, existing.ID); err != nil {
				return err
			}
		}
		if err := p.backend.Memories().Update(ctx, existing); err != nil {
			return err
		}
		if tagsChanged || rechunking {
			if err := p.backend.Tags().SetTags(ctx, existing.ID, newTags); err != nil {
				return err
			}
		}
		for _, c := range rebuiltChildren {
			if err := p.backend.Memories().Insert(ctx, c); err != nil {
				return err
			}
			if err := p.backend.Tags().SetTags(ctx, c.ID, c.Tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("memory: update: %w", err)
	}
	p.publish(notify.Event{Type: notify.EventMemoryUpdated, MemoryID: existing.ID})
	return existing, nil
}

// buildChunkChildren re-splits parent's (already-updated) content into
// fresh chunk rows inheriting its tags and attribution, mirroring
// createChunked's child construction for the update path.
func (p *Pipeline) buildChunkChildren(ctx context.Context, cfg *config.Config, parent *types.Memory) []*types.Memory {
	pieces := content.Chunk(parent.Content, cfg.Chunking.TargetSize)
	out := make([]*types.Memory, len(pieces))
	for i, piece := range pieces {
		idx := i
		vec, _ := p.tryEmbed(ctx, piece)
		out[i] = &types.Memory{
			ID:             ids.New(),
			Content:        piece,
			ContentType:    parent.ContentType,
			Source:         parent.Source,
			SourceURI:      parent.SourceURI,
			Provider:       parent.Provider,
			ModelID:        parent.ModelID,
			ModelName:      parent.ModelName,
			Agent:          parent.Agent,
			SessionID:      parent.SessionID,
			ConversationID: parent.ConversationID,
			Embedding:      vec,
			ContentHash:    content.Hash(piece),
			IsIndexed:      parent.IsIndexed,
			IsMetadata:     parent.IsMetadata,
			Importance:     parent.Importance,
			ParentID:       parent.ID,
			ChunkIndex:     &idx,
			IsActive:       true,
			Metadata:       cloneMetadata(parent.Metadata),
			Tags:           append([]string{}, parent.Tags...),
			CreatedAt:      now(),
			UpdatedAt:      now(),
		}
	}
	return out
}

func (p *Pipeline) entityNamesFor(ctx context.Context, memoryID string) ([]string, error) {
	entities, err := p.backend.Entities().EntitiesForMemory(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}
	return names, nil
}
