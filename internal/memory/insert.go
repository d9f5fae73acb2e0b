package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/internal/memcoreerr"
	"github.com/memcore/memcore/internal/notify"
	"github.com/memcore/memcore/pkg/types"
)

// applySupersede runs Supersede inside the caller's transaction. A lost
// race (the candidate is no longer active) surfaces as ok=false rather
// than an error, so the caller drops its dedup marker and proceeds with a
// plain insert instead of failing the whole write.
func (p *Pipeline) applySupersede(ctx context.Context, candidateID, newID string) (ok bool, err error) {
	if err := p.backend.Memories().Supersede(ctx, candidateID, newID); err != nil {
		if errors.Is(err, memcoreerr.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *Pipeline) supersedeCounters(supersededID, dedupKind string) []string {
	if supersededID == "" {
		return nil
	}
	keys := []string{types.CounterDedupSuperseded}
	switch dedupKind {
	case "hash":
		keys = append(keys, types.CounterDedupSupersededHash)
	case "semantic":
		keys = append(keys, types.CounterDedupSupersededSem)
	}
	return keys
}

// insertWithSupersede implements step 8 (non-chunk path) and step 9-10:
// one transaction covering the optional supersede and the new row's
// insert, a single retry on a lost hash-uniqueness race, then best-effort
// post-insert enrichment.
func (p *Pipeline) insertWithSupersede(ctx context.Context, cfg *config.Config, input *CreateInput, m *types.Memory, supersedeCandidate *types.Memory, dedupKind string, dedupSimilarity *float64) (*CreateResult, error) {
	var supersededID string
	txErr := p.backend.WithTx(ctx, func(ctx context.Context) error {
		if supersedeCandidate != nil {
			ok, err := p.applySupersede(ctx, supersedeCandidate.ID, m.ID)
			if err != nil {
				return err
			}
			if ok {
				supersededID = supersedeCandidate.ID
			} else {
				supersedeCandidate, dedupKind, dedupSimilarity = nil, "", nil
			}
		}
		if err := p.backend.Memories().Insert(ctx, m); err != nil {
			return err
		}
		return p.backend.Tags().SetTags(ctx, m.ID, m.Tags)
	})
	if txErr != nil {
		if errors.Is(txErr, memcoreerr.ErrConflict) {
			return p.retryAfterConflict(ctx, input, m)
		}
		return nil, fmt.Errorf("memory: insert with supersede: %w", txErr)
	}

	p.incr(ctx, p.supersedeCounters(supersededID, dedupKind)...)

	action := DedupNone
	if supersededID != "" {
		action = DedupSuperseded
	}
	if input.Benchmark {
		p.incr(ctx, types.CounterBenchmarkWrites)
	} else {
		p.enrich(ctx, cfg, m)
	}
	p.publish(notify.Event{Type: notify.EventMemoryCreated, MemoryID: m.ID})
	return &CreateResult{Memory: m, SupersededID: supersededID, DedupAction: action, DedupSimilarity: dedupSimilarity}, nil
}

// retryAfterConflict is the losing side of a concurrent duplicate write:
// another writer won the race on the hash-uniqueness index between our
// dedup pre-check and our insert. We re-query for the row that beat us
// and resolve as a dedup skip unconditionally — there is no supersede
// target to restore if we lost the race, only the winner's row to touch.
func (p *Pipeline) retryAfterConflict(ctx context.Context, input *CreateInput, m *types.Memory) (*CreateResult, error) {
	existing, err := p.backend.Memories().FindActiveByHash(ctx, m.ContentType, m.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("memory: recheck hash dedup after conflict: %w", err)
	}
	updated, err := p.touchUpdate(ctx, existing, input, m)
	if err != nil {
		return nil, err
	}
	p.incr(ctx, types.CounterDedupSkipped, types.CounterDedupSkippedConstr)
	sim := 1.0
	return &CreateResult{Memory: updated, DedupAction: DedupSkipped, DedupSimilarity: &sim}, nil
}
