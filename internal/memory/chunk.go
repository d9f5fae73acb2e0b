package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/internal/content"
	"github.com/memcore/memcore/internal/ids"
	"github.com/memcore/memcore/internal/memcoreerr"
	"github.com/memcore/memcore/internal/notify"
	"github.com/memcore/memcore/pkg/types"
)

// createChunked implements step 6: a NULL-embedding parent row plus one
// child row per chunk, each with its own independently-attempted
// embedding, written in the same transaction as the optional supersede.
func (p *Pipeline) createChunked(ctx context.Context, cfg *config.Config, input CreateInput, parent *types.Memory, supersedeCandidate *types.Memory, dedupKind string, dedupSimilarity *float64) (*CreateResult, error) {
	parent.Embedding = nil

	pieces := content.Chunk(parent.Content, cfg.Chunking.TargetSize)
	if len(pieces) <= 1 {
		// The splitter found nothing worth splitting despite exceeding the
		// length threshold (e.g. one long unbroken word); fall back to a
		// plain, unchunked insert rather than creating a degenerate
		// single-child chunk set.
		if !(input.Benchmark && !cfg.Benchmark.Indexed) {
			if vec, err := p.tryEmbed(ctx, parent.Content); err == nil {
				parent.Embedding = vec
			}
			parent.IsIndexed = true
		}
		return p.insertWithSupersede(ctx, cfg, &input, parent, supersedeCandidate, dedupKind, dedupSimilarity)
	}

	chunks := make([]*types.Memory, len(pieces))
	for i, piece := range pieces {
		idx := i
		vec, _ := p.tryEmbed(ctx, piece)
		chunks[i] = &types.Memory{
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

	var supersededID string
	txErr := p.backend.WithTx(ctx, func(ctx context.Context) error {
		if supersedeCandidate != nil {
			ok, err := p.applySupersede(ctx, supersedeCandidate.ID, parent.ID)
			if err != nil {
				return err
			}
			if ok {
				supersededID = supersedeCandidate.ID
			} else {
				supersedeCandidate, dedupKind, dedupSimilarity = nil, "", nil
			}
		}
		if err := p.backend.Memories().Insert(ctx, parent); err != nil {
			return err
		}
		if err := p.backend.Tags().SetTags(ctx, parent.ID, parent.Tags); err != nil {
			return err
		}
		for _, c := range chunks {
			if err := p.backend.Memories().Insert(ctx, c); err != nil {
				return err
			}
			if err := p.backend.Tags().SetTags(ctx, c.ID, c.Tags); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, memcoreerr.ErrConflict) {
			return p.retryAfterConflict(ctx, &input, parent)
		}
		return nil, fmt.Errorf("memory: insert chunk set: %w", txErr)
	}

	p.incr(ctx, p.supersedeCounters(supersededID, dedupKind)...)

	action := DedupNone
	if supersededID != "" {
		action = DedupSuperseded
	}
	if input.Benchmark {
		p.incr(ctx, types.CounterBenchmarkWrites)
	} else {
		p.enrich(ctx, cfg, parent)
	}
	p.publish(notify.Event{Type: notify.EventMemoryCreated, MemoryID: parent.ID})
	return &CreateResult{Memory: parent, SupersededID: supersededID, DedupAction: action, DedupSimilarity: dedupSimilarity}, nil
}

// tryEmbed embeds text, returning (nil, err) on oracle failure so callers
// can store the row embedding-less without treating it as fatal.
func (p *Pipeline) tryEmbed(ctx context.Context, text string) ([]float32, error) {
	if p.embedder == nil {
		return nil, memcoreerr.ErrOracleUnavailable
	}
	return p.embedder.Embed(ctx, text)
}
