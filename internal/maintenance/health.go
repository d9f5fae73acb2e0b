package maintenance

import (
	"context"
	"fmt"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/pkg/types"
)

// RunHealthChecks evaluates every named health signal spec §4.7 lists and
// rolls them up into one report whose Overall status is the worst of its
// parts.
func (s *Service) RunHealthChecks(ctx context.Context, cfg *config.Config) (*HealthReport, error) {
	checks := []HealthCheck{}

	var total, withEmbedding, withTags, chunkCount int
	var oldestUnreachedDays float64
	err := s.forEachActiveMemory(ctx, func(m *types.Memory) error {
		if m.IsChunk() {
			chunkCount++
			return nil
		}
		total++
		if len(m.Embedding) > 0 {
			withEmbedding++
		}
		tags, err := s.backend.Tags().TagsOf(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("maintenance: health: tags for %s: %w", m.ID, err)
		}
		if len(tags) > 0 {
			withTags++
		}
		ageDays := now().Sub(m.CreatedAt).Hours() / 24
		if m.AccessCount == 0 && ageDays > oldestUnreachedDays {
			oldestUnreachedDays = ageDays
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	checks = append(checks, embeddingGapCheck(total, withEmbedding))
	checks = append(checks, tagSparsityCheck(total, withTags))
	checks = append(checks, staleAccessCheck(oldestUnreachedDays, cfg.Decay.ArchiveAgeDays))

	orphans, err := s.backend.Entities().OrphanEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("maintenance: health: orphan entities: %w", err)
	}
	checks = append(checks, entityOrphanCheck(orphans))

	checks = append(checks, retrievalDesertCheck(total))
	checks = append(checks, importanceCollapseCheck(s, ctx))
	checks = append(checks, consolidationBacklogCheck(s, ctx, cfg))
	checks = append(checks, growthStallCheck(total, chunkCount))

	overall := HealthOK
	for _, c := range checks {
		overall = worse(overall, c.Status)
	}
	return &HealthReport{Overall: overall, Checks: checks}, nil
}

func embeddingGapCheck(total, withEmbedding int) HealthCheck {
	if total == 0 {
		return HealthCheck{Name: "embedding_gap", Status: HealthOK, Message: "no memories yet"}
	}
	ratio := float64(withEmbedding) / float64(total)
	switch {
	case ratio >= 0.95:
		return HealthCheck{Name: "embedding_gap", Status: HealthOK, Message: fmt.Sprintf("%.0f%% of memories embedded", ratio*100)}
	case ratio >= 0.8:
		return HealthCheck{Name: "embedding_gap", Status: HealthWarn, Message: fmt.Sprintf("%.0f%% of memories embedded, run re-embed", ratio*100)}
	default:
		return HealthCheck{Name: "embedding_gap", Status: HealthCritical, Message: fmt.Sprintf("only %.0f%% of memories embedded", ratio*100)}
	}
}

func tagSparsityCheck(total, withTags int) HealthCheck {
	if total == 0 {
		return HealthCheck{Name: "tag_sparsity", Status: HealthOK, Message: "no memories yet"}
	}
	ratio := float64(withTags) / float64(total)
	switch {
	case ratio >= 0.5:
		return HealthCheck{Name: "tag_sparsity", Status: HealthOK, Message: fmt.Sprintf("%.0f%% of memories tagged", ratio*100)}
	case ratio >= 0.2:
		return HealthCheck{Name: "tag_sparsity", Status: HealthWarn, Message: fmt.Sprintf("%.0f%% of memories tagged", ratio*100)}
	default:
		return HealthCheck{Name: "tag_sparsity", Status: HealthCritical, Message: fmt.Sprintf("only %.0f%% of memories tagged", ratio*100)}
	}
}

func staleAccessCheck(oldestUnreachedDays float64, archiveAgeDays int) HealthCheck {
	if archiveAgeDays <= 0 {
		archiveAgeDays = 180
	}
	switch {
	case oldestUnreachedDays < float64(archiveAgeDays)/2:
		return HealthCheck{Name: "stale_access", Status: HealthOK, Message: "no long-unaccessed memories"}
	case oldestUnreachedDays < float64(archiveAgeDays):
		return HealthCheck{Name: "stale_access", Status: HealthWarn, Message: fmt.Sprintf("oldest unaccessed memory is %.0f days old", oldestUnreachedDays)}
	default:
		return HealthCheck{Name: "stale_access", Status: HealthCritical, Message: fmt.Sprintf("oldest unaccessed memory is %.0f days old, run archive_stale", oldestUnreachedDays)}
	}
}

func entityOrphanCheck(orphans []types.Entity) HealthCheck {
	switch {
	case len(orphans) == 0:
		return HealthCheck{Name: "entity_orphans", Status: HealthOK, Message: "no orphaned entities"}
	case len(orphans) < 10:
		return HealthCheck{Name: "entity_orphans", Status: HealthWarn, Message: fmt.Sprintf("%d orphaned entities", len(orphans))}
	default:
		return HealthCheck{Name: "entity_orphans", Status: HealthCritical, Message: fmt.Sprintf("%d orphaned entities", len(orphans))}
	}
}

func retrievalDesertCheck(total int) HealthCheck {
	if total == 0 {
		return HealthCheck{Name: "retrieval_desert", Status: HealthWarn, Message: "store is empty"}
	}
	return HealthCheck{Name: "retrieval_desert", Status: HealthOK, Message: fmt.Sprintf("%d active memories", total)}
}

func importanceCollapseCheck(s *Service, ctx context.Context) HealthCheck {
	var values []float64
	_ = s.forEachActiveMemory(ctx, func(m *types.Memory) error {
		if !m.IsChunk() {
			values = append(values, m.Importance)
		}
		return nil
	})
	if len(values) == 0 {
		return HealthCheck{Name: "importance_collapse", Status: HealthOK, Message: "no memories yet"}
	}
	_, std := meanStdDev(values)
	switch {
	case std >= 0.05:
		return HealthCheck{Name: "importance_collapse", Status: HealthOK, Message: fmt.Sprintf("importance stddev %.3f", std)}
	case std >= 0.01:
		return HealthCheck{Name: "importance_collapse", Status: HealthWarn, Message: fmt.Sprintf("importance stddev %.3f, consider recalibrate_importance", std)}
	default:
		return HealthCheck{Name: "importance_collapse", Status: HealthCritical, Message: fmt.Sprintf("importance has collapsed (stddev %.3f)", std)}
	}
}

func consolidationBacklogCheck(s *Service, ctx context.Context, cfg *config.Config) HealthCheck {
	clusters, err := s.FindClusters(ctx, cfg.Consolidation)
	if err != nil {
		return HealthCheck{Name: "consolidation_backlog", Status: HealthWarn, Message: "could not evaluate clusters"}
	}
	switch {
	case len(clusters) == 0:
		return HealthCheck{Name: "consolidation_backlog", Status: HealthOK, Message: "no pending clusters"}
	case len(clusters) < 5:
		return HealthCheck{Name: "consolidation_backlog", Status: HealthWarn, Message: fmt.Sprintf("%d clusters ready to consolidate", len(clusters))}
	default:
		return HealthCheck{Name: "consolidation_backlog", Status: HealthCritical, Message: fmt.Sprintf("%d clusters ready to consolidate", len(clusters))}
	}
}

func growthStallCheck(total, chunkCount int) HealthCheck {
	if total+chunkCount == 0 {
		return HealthCheck{Name: "growth_stall", Status: HealthWarn, Message: "store has never received a write"}
	}
	return HealthCheck{Name: "growth_stall", Status: HealthOK, Message: fmt.Sprintf("%d memories, %d chunks", total, chunkCount)}
}
