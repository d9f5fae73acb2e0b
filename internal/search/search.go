package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/internal/storage"
)

// Search runs the hybrid retrieval pipeline: candidate generation, fusion,
// chunk-to-parent collapsing, post-filters, and final ordering, then tracks
// the returned ids for the usefulness feedback loop and runs multi-hop
// link expansion.
func (e *Engine) Search(ctx context.Context, opts storage.SearchOptions) (*Response, error) {
	cfg, err := e.loadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: load config: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = cfg.Search.DefaultLimit
	}
	if limit <= 0 {
		limit = 10
	}

	vectorPool := cfg.Search.VectorCandidatePool
	if vectorPool <= 0 {
		vectorPool = 500
	}

	vectorByID, lexicalByID, err := e.generateCandidates(ctx, opts, vectorPool, vectorPool)
	if err != nil {
		return nil, fmt.Errorf("search: candidate generation: %w", err)
	}

	candidates, err := e.assembleCandidates(ctx, vectorByID, lexicalByID)
	if err != nil {
		return nil, fmt.Errorf("search: assemble candidates: %w", err)
	}

	scored := scoreAll(candidates, cfg.Search, opts.UseRRF || cfg.Scoring.UseRRF)
	collapsed, err := e.collapseChunks(ctx, scored)
	if err != nil {
		return nil, fmt.Errorf("search: collapse chunks: %w", err)
	}
	filtered := applyPostFilters(collapsed, opts)

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Score != filtered[j].Score {
			return filtered[i].Score > filtered[j].Score
		}
		if !filtered[i].Memory.CreatedAt.Equal(filtered[j].Memory.CreatedAt) {
			return filtered[i].Memory.CreatedAt.After(filtered[j].Memory.CreatedAt)
		}
		return filtered[i].Memory.ID > filtered[j].Memory.ID
	})

	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	ids := make([]string, len(filtered))
	for i, r := range filtered {
		ids[i] = r.Memory.ID
	}
	ttl := time.Duration(cfg.Search.ResultSetTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	e.track(ids, ttl)

	linked, err := e.expandLinks(ctx, ids, cfg.Search)
	if err != nil {
		return nil, fmt.Errorf("search: link expansion: %w", err)
	}

	return &Response{Results: filtered, Linked: linked}, nil
}

// assembleCandidates merges the vector and lexical hit sets into one
// candidateScore per memory id, fetching the full row for any lexical-only
// hit the vector scan didn't already surface.
func (e *Engine) assembleCandidates(ctx context.Context, vectorByID map[string]vectorHit, lexicalByID map[string]storage.LexicalHit) (map[string]candidateScore, error) {
	out := make(map[string]candidateScore, len(vectorByID)+len(lexicalByID))

	for id, hit := range vectorByID {
		out[id] = candidateScore{memory: hit.memory, vector: hit.similarity}
	}

	rawFTS := make(map[string]float64, len(lexicalByID))
	for id, hit := range lexicalByID {
		rawFTS[id] = hit.RawScore
	}
	normFTS := normalizeFTS(rawFTS)

	for id, fts := range normFTS {
		c, ok := out[id]
		if !ok {
			m, err := e.backend.Memories().Get(ctx, id)
			if err != nil {
				continue // concurrently archived/deleted between FTS hit and fetch
			}
			c = candidateScore{memory: *m}
		}
		c.fts = fts
		out[id] = c
	}

	// Tags live in a separate join table, not the memories row scan, so
	// every candidate needs an explicit fetch before tag-based filtering
	// or auto-tag-driven ranking can see them.
	for id, c := range out {
		tags, err := e.backend.Tags().TagsOf(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("search: load tags for %s: %w", id, err)
		}
		c.memory.Tags = tags
		out[id] = c
	}

	assignRanks(out)
	return out, nil
}

func assignRanks(candidates map[string]candidateScore) {
	byVector := make([]string, 0, len(candidates))
	byFTS := make([]string, 0, len(candidates))
	for id, c := range candidates {
		if c.vector > 0 {
			byVector = append(byVector, id)
		}
		if c.fts > 0 {
			byFTS = append(byFTS, id)
		}
	}
	sort.Slice(byVector, func(i, j int) bool { return candidates[byVector[i]].vector > candidates[byVector[j]].vector })
	sort.Slice(byFTS, func(i, j int) bool { return candidates[byFTS[i]].fts > candidates[byFTS[j]].fts })
	for rank, id := range byVector {
		c := candidates[id]
		c.vectorRank = rank + 1
		candidates[id] = c
	}
	for rank, id := range byFTS {
		c := candidates[id]
		c.ftsRank = rank + 1
		candidates[id] = c
	}
}

// scoreAll fills in recency/frequency for every candidate and fuses per
// the configured mode, producing the pre-collapse result list.
func scoreAll(candidates map[string]candidateScore, cfg config.SearchConfig, useRRF bool) []Result {
	out := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		c.recency = recencyScore(&c.memory, cfg.RecencyHalfLifeDays)
		c.frequency = frequencyScore(&c.memory)

		var score float64
		if useRRF {
			score = fuseRRF(c, cfg)
		} else {
			score = fuseLegacy(c, cfg)
		}
		if c.memory.IsMetadata && cfg.MetadataDownrank > 0 {
			score *= (1 - cfg.MetadataDownrank)
		}

		out = append(out, Result{
			ScoredMemory: storage.ScoredMemory{
				Memory:         c.memory,
				Score:          score,
				VectorScore:    c.vector,
				FTSScore:       c.fts,
				RecencyScore:   c.recency,
				FrequencyScore: c.frequency,
			},
			Reason: buildReason(c),
		})
	}
	return out
}

func buildReason(c candidateScore) string {
	var reasons []string
	if c.vector > 0.8 {
		reasons = append(reasons, "strong semantic match")
	} else if c.vector > 0.5 {
		reasons = append(reasons, "semantic match")
	}
	if c.fts > 0.8 {
		reasons = append(reasons, "strong keyword match")
	} else if c.fts > 0 {
		reasons = append(reasons, "keyword match")
	}
	if c.memory.Importance > 0.7 {
		reasons = append(reasons, "high importance")
	}
	if c.recency > 0.8 {
		reasons = append(reasons, "recent")
	}
	if c.memory.UsefulCount > 0 {
		reasons = append(reasons, "previously useful")
	}
	if len(reasons) == 0 {
		return "matched content"
	}
	return strings.Join(reasons, ", ")
}

// applyPostFilters enforces min_score, min_importance, tag-any-of, the
// date window, and content_type on the fused result set. Most of these are
// already applied at candidate-generation time by the storage layer; this
// pass is the authoritative one since fusion can change which rows survive
// (a chunk collapsing into its parent, for instance).
func applyPostFilters(results []Result, opts storage.SearchOptions) []Result {
	out := results[:0]
	for _, r := range results {
		if r.Score < opts.MinScore {
			continue
		}
		if opts.MinImportance > 0 && r.Memory.Importance < opts.MinImportance {
			continue
		}
		if opts.ContentType != "" && r.Memory.ContentType != opts.ContentType {
			continue
		}
		if opts.After != nil && r.Memory.CreatedAt.Before(*opts.After) {
			continue
		}
		if opts.Before != nil && r.Memory.CreatedAt.After(*opts.Before) {
			continue
		}
		if len(opts.Tags) > 0 && !anyTagMatches(r.Memory.Tags, opts.Tags) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func anyTagMatches(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[strings.ToLower(t)] = true
	}
	for _, w := range want {
		if set[strings.ToLower(w)] {
			return true
		}
	}
	return false
}
