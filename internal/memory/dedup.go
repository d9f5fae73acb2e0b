package memory

import (
	"context"
	"fmt"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/internal/embedding"
	"github.com/memcore/memcore/pkg/types"
)

// touchUpdate applies the hash/semantic dedup "skip" branch: the existing
// row is kept, enriched with whatever the incoming write adds that it
// didn't already have, and returned in place of inserting a duplicate.
func (p *Pipeline) touchUpdate(ctx context.Context, existing *types.Memory, input *CreateInput, incoming *types.Memory) (*types.Memory, error) {
	existingTags, err := p.backend.Tags().TagsOf(ctx, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("memory: load existing tags for touch update: %w", err)
	}
	mergedTags := mergeTagsUnion(existingTags, incoming.Tags)

	if incoming.Importance > existing.Importance {
		existing.Importance = incoming.Importance
	}
	existing.Metadata = mergeMetadata(existing.Metadata, onlyNewKeys(existing.Metadata, incoming.Metadata), nil)
	existing.IsMetadata = existing.IsMetadata || incoming.IsMetadata

	t := input.touch()
	if existing.Provider == "" {
		existing.Provider = t.provider
	}
	if existing.ModelID == "" {
		existing.ModelID = t.modelID
	}
	if existing.ModelName == "" {
		existing.ModelName = t.modelName
	}
	if existing.Agent == "" {
		existing.Agent = t.agent
	}
	if existing.SessionID == "" {
		existing.SessionID = t.sessionID
	}
	if existing.ConversationID == "" {
		existing.ConversationID = t.conversationID
	}
	if existing.SourceURI == "" {
		existing.SourceURI = t.sourceURI
	}
	existing.UpdatedAt = now()

	err = p.backend.WithTx(ctx, func(ctx context.Context) error {
		if err := p.backend.Memories().Update(ctx, existing); err != nil {
			return err
		}
		return p.backend.Tags().SetTags(ctx, existing.ID, mergedTags)
	})
	if err != nil {
		return nil, fmt.Errorf("memory: touch update existing memory: %w", err)
	}
	existing.Tags = mergedTags
	return existing, nil
}

// onlyNewKeys returns the subset of patch whose keys aren't already
// present in base, so a touch update adds new metadata without clobbering
// values the existing row already curated.
func onlyNewKeys(base, patch map[string]any) map[string]any {
	if len(patch) == 0 {
		return nil
	}
	out := map[string]any{}
	for k, v := range patch {
		if _, ok := base[k]; !ok {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// semanticDedupCandidate implements step 7: scan up to
// dedup.candidate_pool recent active non-chunk memories of the same
// content type, and return the first one at or above the similarity
// threshold that also shares a tag with m (when m has tags).
func (p *Pipeline) semanticDedupCandidate(ctx context.Context, cfg *config.Config, m *types.Memory) (*types.Memory, float64, error) {
	candidates, err := p.backend.Memories().RecentActiveByType(ctx, m.ContentType, cfg.Dedup.CandidatePool)
	if err != nil {
		return nil, 0, fmt.Errorf("memory: semantic dedup scan: %w", err)
	}

	for i := range candidates {
		cand := &candidates[i]
		if len(cand.Embedding) == 0 {
			continue
		}
		sim := embedding.CosineSimilarity(m.Embedding, cand.Embedding)
		if sim < cfg.Dedup.SimilarityThreshold {
			continue
		}
		if len(m.Tags) > 0 {
			candTags, err := p.backend.Tags().TagsOf(ctx, cand.ID)
			if err != nil {
				return nil, 0, fmt.Errorf("memory: load candidate tags: %w", err)
			}
			if !sharesTag(m.Tags, candTags) {
				continue
			}
		}
		return cand, sim, nil
	}
	return nil, 0, nil
}

func sharesTag(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	for _, t := range b {
		if set[t] {
			return true
		}
	}
	return false
}
