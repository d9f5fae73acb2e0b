package maintenance

import (
	"context"
	"fmt"

	"github.com/memcore/memcore/pkg/types"
)

// ReembedMissing re-embeds every active memory that has content but no
// embedding, or whose embedding's byte length doesn't match the oracle's
// current dimensionality (e.g. after switching models). Parent-of-chunks
// rows are skipped — they never carry an embedding by design.
func (s *Service) ReembedMissing(ctx context.Context) (int, error) {
	expectedLen := types.EmbeddingByteLength(s.embedder.Dimensions())
	count := 0
	err := s.forEachActiveMemory(ctx, func(m *types.Memory) error {
		if m.Content == "" {
			return nil
		}
		if m.Embedding != nil && len(m.Embedding)*4 == expectedLen {
			return nil
		}
		// A memory with chunk children never carries its own embedding;
		// re-embedding it would misrepresent the parent row as indexable.
		chunks, err := s.backend.Memories().ChunksOf(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("maintenance: check chunks for %s: %w", m.ID, err)
		}
		if len(chunks) > 0 {
			return nil
		}

		vec, err := s.embedder.Embed(ctx, m.Content)
		if err != nil {
			return nil // oracle degraded; leave this one for the next run
		}
		m.Embedding = vec
		if err := s.backend.Memories().Update(ctx, m); err != nil {
			return fmt.Errorf("maintenance: write re-embedded %s: %w", m.ID, err)
		}
		count++
		s.incr(ctx, types.CounterMaintenanceReembedded)
		return nil
	})
	if err == nil && count > 0 {
		s.publishRun("reembed_missing")
	}
	return count, err
}
