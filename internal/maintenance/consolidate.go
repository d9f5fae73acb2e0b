package maintenance

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/internal/content"
	"github.com/memcore/memcore/internal/embedding"
	"github.com/memcore/memcore/internal/ids"
	"github.com/memcore/memcore/pkg/types"
)

// Cluster is a group of memories whose pairwise cosine similarity clears
// the configured threshold.
type Cluster struct {
	Members []types.Memory
}

// FindClusters groups active, embedded, non-chunk memories into clusters
// where every pair's cosine similarity is at least cfg.MinSimilarity and
// the cluster has at least cfg.MinSize members. Clustering is greedy: a
// memory joins the first cluster all of whose members it's similar enough
// to, and otherwise starts a new cluster.
func (s *Service) FindClusters(ctx context.Context, cfg config.ConsolidationConfig) ([]Cluster, error) {
	minSize := cfg.MinSize
	if minSize <= 0 {
		minSize = 3
	}
	minSim := cfg.MinSimilarity
	if minSim <= 0 {
		minSim = 0.75
	}

	var pool []types.Memory
	err := s.forEachActiveMemory(ctx, func(m *types.Memory) error {
		if m.IsChunk() || len(m.Embedding) == 0 || m.SupersededBy != "" {
			return nil
		}
		pool = append(pool, *m)
		return nil
	})
	if err != nil {
		return nil, err
	}

	assigned := make([]int, len(pool))
	for i := range assigned {
		assigned[i] = -1
	}
	var clusters [][]int

	for i := range pool {
		if assigned[i] != -1 {
			continue
		}
		for c, members := range clusters {
			if clusterSimilar(pool, members, i, minSim) {
				clusters[c] = append(clusters[c], i)
				assigned[i] = c
				break
			}
		}
		if assigned[i] == -1 {
			clusters = append(clusters, []int{i})
			assigned[i] = len(clusters) - 1
		}
	}

	var out []Cluster
	for _, members := range clusters {
		if len(members) < minSize {
			continue
		}
		cluster := Cluster{}
		for _, idx := range members {
			cluster.Members = append(cluster.Members, pool[idx])
		}
		out = append(out, cluster)
	}
	return out, nil
}

func clusterSimilar(pool []types.Memory, members []int, candidate int, minSim float64) bool {
	for _, m := range members {
		if embedding.CosineSimilarity(pool[m].Embedding, pool[candidate].Embedding) < minSim {
			return false
		}
	}
	return true
}

// ConsolidationResult is one cluster that was (or, in dry-run mode, would
// be) merged into a new summary memory.
type ConsolidationResult struct {
	SummaryID   string
	MemberIDs   []string
	SummaryText string
}

// Consolidate finds clusters via FindClusters and, unless dryRun, merges
// each into a new summary-type memory: a deterministic summary (each
// member's first sentence, then a bulleted list of every member's content)
// with the union of member tags, linked to each member with link type
// derived_from, with each member's superseded_by set to the new id.
func (s *Service) Consolidate(ctx context.Context, cfg config.ConsolidationConfig, dryRun bool) ([]ConsolidationResult, error) {
	clusters, err := s.FindClusters(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var results []ConsolidationResult
	for _, cluster := range clusters {
		summary, tags := buildSummary(cluster.Members)
		memberIDs := make([]string, len(cluster.Members))
		for i, m := range cluster.Members {
			memberIDs[i] = m.ID
		}

		if dryRun {
			results = append(results, ConsolidationResult{MemberIDs: memberIDs, SummaryText: summary})
			continue
		}

		vec, err := s.embedder.Embed(ctx, summary)
		if err != nil {
			vec = nil // best-effort: a summary without an embedding is still useful, just unsearchable by vector
		}

		newMem := &types.Memory{
			ID:          ids.New(),
			Content:     summary,
			ContentType: types.ContentSummary,
			ContentHash: content.Hash(summary),
			Source:      "maintenance.consolidate",
			Embedding:   vec,
			Importance:  averageImportance(cluster.Members),
			IsActive:    true,
			CreatedAt:   now(),
			UpdatedAt:   now(),
		}
		if err := s.backend.Memories().Insert(ctx, newMem); err != nil {
			return results, fmt.Errorf("maintenance: insert summary memory: %w", err)
		}
		if err := s.backend.Tags().SetTags(ctx, newMem.ID, tags); err != nil {
			return results, fmt.Errorf("maintenance: tag summary memory: %w", err)
		}

		for _, memberID := range memberIDs {
			if err := s.backend.Links().Upsert(ctx, &types.MemoryLink{
				SourceMemoryID: newMem.ID,
				TargetMemoryID: memberID,
				LinkType:       types.LinkDerivedFrom,
				Strength:       1.0,
				CreatedAt:      now(),
			}); err != nil {
				return results, fmt.Errorf("maintenance: link summary to member: %w", err)
			}
			if err := s.backend.Memories().Supersede(ctx, memberID, newMem.ID); err != nil {
				return results, fmt.Errorf("maintenance: supersede member %s: %w", memberID, err)
			}
		}

		s.incr(ctx, types.CounterMaintenanceConsolidated)
		results = append(results, ConsolidationResult{SummaryID: newMem.ID, MemberIDs: memberIDs, SummaryText: summary})
	}
	if len(results) > 0 {
		s.publishRun("consolidate")
	}
	return results, nil
}

// buildSummary builds a deterministic basic summary: each member's first
// sentence joined into a lead paragraph, followed by a bullet list of every
// member's full content, plus the union of every member's tags.
func buildSummary(members []types.Memory) (string, []string) {
	var lead []string
	var bullets []string
	tagSet := map[string]bool{}
	var tags []string

	for _, m := range members {
		lead = append(lead, firstSentence(m.Content))
		bullets = append(bullets, "- "+m.Content)
		for _, t := range m.Tags {
			key := strings.ToLower(t)
			if !tagSet[key] {
				tagSet[key] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)

	var sb strings.Builder
	sb.WriteString(strings.Join(lead, " "))
	sb.WriteString("\n\n")
	sb.WriteString(strings.Join(bullets, "\n"))
	return sb.String(), tags
}

func firstSentence(content string) string {
	content = strings.TrimSpace(content)
	end := -1
	for _, sep := range []string{". ", "! ", "? ", "\n"} {
		if idx := strings.Index(content, sep); idx > 0 && (end < 0 || idx < end) {
			end = idx
		}
	}
	if end > 0 {
		return content[:end+1]
	}
	return content
}

func averageImportance(members []types.Memory) float64 {
	if len(members) == 0 {
		return 0.5
	}
	var sum float64
	for _, m := range members {
		sum += m.Importance
	}
	return clamp01(sum / float64(len(members)))
}
