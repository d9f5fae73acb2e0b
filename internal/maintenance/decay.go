package maintenance

import (
	"context"
	"fmt"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/pkg/types"
)

// DecayCandidate is one memory that decay has flagged for archival, with
// the reason it qualified.
type DecayCandidate struct {
	Memory types.Memory
	Reason string
}

// PreviewDecay returns every active memory that archive_stale would archive,
// without mutating anything. A memory qualifies when it has never been
// accessed and has aged past decay.archive_age_days while its importance
// stays below decay.protected_importance, or when its importance has
// fallen below decay.floor and it has survived the grace period.
func (s *Service) PreviewDecay(ctx context.Context, cfg config.DecayConfig) ([]DecayCandidate, error) {
	var candidates []DecayCandidate
	err := s.forEachActiveMemory(ctx, func(m *types.Memory) error {
		if m.IsChunk() {
			return nil // chunks decay with their parent, not independently
		}
		ageDays := now().Sub(m.CreatedAt).Hours() / 24

		switch {
		case m.AccessCount == 0 && ageDays > float64(cfg.ArchiveAgeDays) && m.Importance < cfg.ProtectedImportance:
			candidates = append(candidates, DecayCandidate{Memory: *m, Reason: "unaccessed past archive age"})
		case m.Importance < cfg.Floor && ageDays > float64(cfg.GracePeriodDays):
			candidates = append(candidates, DecayCandidate{Memory: *m, Reason: "importance below floor past grace period"})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// ArchiveStale runs PreviewDecay and archives every candidate, clearing
// superseded_by (an archived memory is not superseded, it's dormant).
// Returns the archived ids.
func (s *Service) ArchiveStale(ctx context.Context, cfg config.DecayConfig) ([]string, error) {
	candidates, err := s.PreviewDecay(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if err := s.backend.Memories().Archive(ctx, c.Memory.ID); err != nil {
			return ids, fmt.Errorf("maintenance: archive %s: %w", c.Memory.ID, err)
		}
		ids = append(ids, c.Memory.ID)
		s.incr(ctx, types.CounterMaintenanceArchived)
	}
	s.publishRun("decay")
	return ids, nil
}

func (s *Service) incr(ctx context.Context, key string) {
	_ = s.backend.Counters().Increment(ctx, key, 1)
}
