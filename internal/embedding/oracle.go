// Package embedding provides the process-wide embedding oracle: a single
// lazily-warmed instance wrapping a pluggable Oracle implementation in a
// circuit breaker, with f32 blob (de)serialization for storage.
package embedding

import (
	"context"
	"sync"

	"github.com/memcore/memcore/internal/memcoreerr"
)

// Oracle generates vector embeddings for text. Implementations are
// replaceable in tests; production code passes a concrete backend (e.g.
// NewHTTPOracle's OpenAI-compatible HTTP client) to NewManager.
type Oracle interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Manager is the single process-wide entry point for embedding generation.
// It lazily warms the underlying oracle on first use and wraps every call
// in a circuit breaker so a failing backend degrades to "no embedding"
// rather than blocking the write pipeline.
type Manager struct {
	oracle  Oracle
	breaker *Breaker

	warmOnce sync.Once
	warmErr  error
}

// NewManager wraps oracle with a circuit breaker using cfg (zero value
// selects the defaults documented on BreakerConfig).
func NewManager(oracle Oracle, cfg BreakerConfig) *Manager {
	return &Manager{
		oracle:  oracle,
		breaker: NewBreaker(cfg),
	}
}

// warm runs one throwaway embed call to surface backend-unavailable
// conditions before the first real caller pays for discovering them, and
// to let implementations that lazily connect (HTTP keep-alive, model load)
// do so off the hot path. Subsequent calls reuse the same oracle instance.
func (m *Manager) warm(ctx context.Context) error {
	m.warmOnce.Do(func() {
		_, m.warmErr = Execute(m.breaker, ctx, func() ([]float32, error) {
			return m.oracle.Embed(ctx, "warmup")
		})
	})
	return m.warmErr
}

// Embed returns a single L2-normalized embedding for text, or
// ErrOracleUnavailable if the circuit is open or the call failed. Callers
// treat this as recoverable: the write pipeline stores the memory without
// an embedding rather than failing the whole operation.
func (m *Manager) Embed(ctx context.Context, text string) ([]float32, error) {
	_ = m.warm(ctx) // warmup failure doesn't block a real attempt

	vec, err := Execute(m.breaker, ctx, func() ([]float32, error) {
		return m.oracle.Embed(ctx, text)
	})
	if err != nil {
		return nil, memcoreerr.ErrOracleUnavailable
	}
	return normalize(vec), nil
}

// EmbedBatch embeds every text in order; a failure for the whole batch
// still degrades to ErrOracleUnavailable rather than a partial result,
// since callers (bulk re-embed) treat batches as all-or-nothing per pass.
func (m *Manager) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	_ = m.warm(ctx)

	vecs, err := Execute(m.breaker, ctx, func() ([][]float32, error) {
		return m.oracle.EmbedBatch(ctx, texts)
	})
	if err != nil {
		return nil, memcoreerr.ErrOracleUnavailable
	}
	for i := range vecs {
		vecs[i] = normalize(vecs[i])
	}
	return vecs, nil
}

// Dimensions returns the oracle's fixed embedding width.
func (m *Manager) Dimensions() int {
	return m.oracle.Dimensions()
}

// State reports the breaker's current state for health-check surfacing.
func (m *Manager) State() string {
	return m.breaker.State()
}
