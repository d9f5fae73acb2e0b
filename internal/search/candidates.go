package search

import (
	"context"

	"github.com/sourcegraph/conc"

	"github.com/memcore/memcore/internal/embedding"
	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

// vectorHit and lexicalHit are the two candidate-generation outputs,
// before fusion; both index by memory id so the fusion stage can join them
// with a plain map lookup.
type vectorHit struct {
	memory     types.Memory
	similarity float64
}

// generateCandidates runs the vector and lexical sides concurrently within
// the same logical search, per spec's "candidate generation (parallelizable,
// same transaction)" — both read-only, so there's nothing to coordinate
// beyond waiting for both to finish.
func (e *Engine) generateCandidates(ctx context.Context, opts storage.SearchOptions, vectorPool, lexicalPool int) (map[string]vectorHit, map[string]storage.LexicalHit, error) {
	var (
		vectorByID  map[string]vectorHit
		lexicalByID map[string]storage.LexicalHit
		vectorErr   error
		lexicalErr  error
	)

	var wg conc.WaitGroup
	wg.Go(func() {
		vectorByID, vectorErr = e.vectorCandidates(ctx, opts, vectorPool)
	})
	wg.Go(func() {
		lexicalByID, lexicalErr = e.lexicalCandidates(ctx, opts, lexicalPool)
	})
	wg.Wait()

	if vectorErr != nil {
		return nil, nil, vectorErr
	}
	if lexicalErr != nil {
		return nil, nil, lexicalErr
	}
	return vectorByID, lexicalByID, nil
}

func (e *Engine) vectorCandidates(ctx context.Context, opts storage.SearchOptions, pool int) (map[string]vectorHit, error) {
	out := make(map[string]vectorHit)
	if opts.Query == "" {
		return out, nil
	}

	var queryVec []float32
	if e.embedder != nil {
		vec, err := e.embedder.Embed(ctx, opts.Query)
		if err == nil {
			queryVec = vec
		}
		// An oracle failure degrades to "no vector signal", not a search
		// failure — the lexical side still runs.
	}
	if len(queryVec) == 0 {
		return out, nil
	}

	candidates, err := e.backend.Memories().CandidatesForVectorSearch(ctx, opts, pool)
	if err != nil {
		return nil, err
	}
	for _, m := range candidates {
		sim := embedding.CosineSimilarity(queryVec, m.Embedding)
		if sim <= 0 {
			continue
		}
		out[m.ID] = vectorHit{memory: m, similarity: sim}
	}
	return out, nil
}

func (e *Engine) lexicalCandidates(ctx context.Context, opts storage.SearchOptions, limit int) (map[string]storage.LexicalHit, error) {
	out := make(map[string]storage.LexicalHit)
	if opts.Query == "" {
		return out, nil
	}
	provider := e.backend.Search()
	if provider == nil {
		return out, nil
	}
	hits, err := provider.LexicalSearch(ctx, opts.Query, opts, limit)
	if err != nil {
		return nil, err
	}
	for _, h := range hits {
		out[h.MemoryID] = h
	}
	return out, nil
}
