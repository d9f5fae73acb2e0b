package maintenance

import (
	"context"
	"fmt"

	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

const pageSize = 200

// forEachActiveMemory pages through every active memory (chunks included,
// since several routines here — re-embedding, for instance — care about
// chunk rows too) via MemoryStore.List, calling fn for each row. fn's error
// stops iteration immediately.
func (s *Service) forEachActiveMemory(ctx context.Context, fn func(m *types.Memory) error) error {
	page := 1
	for {
		result, err := s.backend.Memories().List(ctx, storage.ListOptions{
			Page:      page,
			Limit:     pageSize,
			SortBy:    "created_at",
			SortOrder: "asc",
		})
		if err != nil {
			return fmt.Errorf("maintenance: list memories page %d: %w", page, err)
		}
		for i := range result.Items {
			if err := fn(&result.Items[i]); err != nil {
				return err
			}
		}
		if !result.HasMore || len(result.Items) == 0 {
			return nil
		}
		page++
	}
}
