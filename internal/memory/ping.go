package memory

import (
	"context"
	"fmt"
)

// Ping is memory_ping: a cheap liveness check distinct from
// maintenance.RunHealthChecks' deep analytics rollup. It confirms the
// storage backend answers a trivial read and reports the embedding
// oracle's breaker state, without touching any memory rows.
func (p *Pipeline) Ping(ctx context.Context) (*PingResult, error) {
	result := &PingResult{CheckedAt: now()}

	if _, err := p.backend.Settings().All(ctx); err != nil {
		return nil, fmt.Errorf("memory: ping storage: %w", err)
	}
	result.StorageOK = true

	if p.embedder != nil {
		result.EmbeddingState = p.embedder.State()
	} else {
		result.EmbeddingState = "unconfigured"
	}

	return result, nil
}
