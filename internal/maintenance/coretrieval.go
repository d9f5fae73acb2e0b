package maintenance

import (
	"context"
	"fmt"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/pkg/types"
)

// BuildCoRetrievalLinks scans the access log for memory pairs retrieved
// together within links.co_retrieval_window_hours more often than
// links.co_retrieval_threshold, and strengthens a related link between
// them. Strength grows with co-retrieval count but saturates at
// links.co_retrieval_strength_ceiling, so heavily co-retrieved pairs don't
// run away past the configured ceiling.
func (s *Service) BuildCoRetrievalLinks(ctx context.Context, cfg config.LinksConfig) (int, error) {
	windowSeconds := cfg.CoRetrievalWindowHours * 3600
	if windowSeconds <= 0 {
		windowSeconds = 24 * 3600
	}
	threshold := cfg.CoRetrievalThreshold
	if threshold <= 0 {
		threshold = 3
	}
	ceiling := cfg.CoRetrievalStrengthCeiling
	if ceiling <= 0 {
		ceiling = 0.9
	}

	pairs, err := s.backend.AccessLog().CoRetrieved(ctx, windowSeconds)
	if err != nil {
		return 0, fmt.Errorf("maintenance: co-retrieved pairs: %w", err)
	}

	linked := 0
	for pair, count := range pairs {
		if count <= threshold {
			continue
		}
		strength := ceiling * (1 - 1/float64(1+count-threshold+1))
		if strength > ceiling {
			strength = ceiling
		}
		err := s.backend.Links().Upsert(ctx, &types.MemoryLink{
			SourceMemoryID: pair[0],
			TargetMemoryID: pair[1],
			LinkType:       types.LinkRelated,
			Strength:       strength,
			CreatedAt:      now(),
		})
		if err != nil {
			return linked, fmt.Errorf("maintenance: upsert co-retrieval link: %w", err)
		}
		linked++
		s.incr(ctx, types.CounterMaintenanceCoRetrieval)
	}
	if linked > 0 {
		s.publishRun("co_retrieval_links")
	}
	return linked, nil
}
