package search

import (
	"context"
	"sync"
	"time"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/internal/embedding"
	"github.com/memcore/memcore/internal/storage"
)

// now is a seam for deterministic tests, mirroring internal/memory's.
var now = func() time.Time { return time.Now().UTC() }

// Engine is the hybrid retrieval orchestrator: one instance shared across
// every caller in the process, holding the process-local recent-search-ids
// tracking map spec §5 names as a shared resource.
type Engine struct {
	backend  storage.Backend
	embedder *embedding.Manager

	mu         sync.Mutex
	resultSets map[string]trackedResultSet
}

// New builds an Engine over backend, using embedder for query embedding.
// embedder may be nil; the vector side then contributes nothing and the
// lexical/recency/frequency signals alone drive ranking.
func New(backend storage.Backend, embedder *embedding.Manager) *Engine {
	return &Engine{
		backend:    backend,
		embedder:   embedder,
		resultSets: make(map[string]trackedResultSet),
	}
}

func (e *Engine) loadConfig(ctx context.Context) (*config.Config, error) {
	return config.Load(ctx, e.backend.Settings())
}

// track records ids as one query's result set for feedback-loop TTL
// tracking, sweeping expired entries opportunistically on each call so the
// map stays bounded without a background goroutine.
func (e *Engine) track(ids []string, ttl time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := now()
	for key, set := range e.resultSets {
		if t.After(set.expireAt) {
			delete(e.resultSets, key)
		}
	}
	if len(ids) == 0 {
		return
	}
	set := trackedResultSet{ids: make(map[string]bool, len(ids)), expireAt: t.Add(ttl)}
	for _, id := range ids {
		set.ids[id] = true
	}
	e.resultSets[resultSetKey(t)] = set
}

// wasRecentlyResulted reports whether id appeared in any still-live
// tracked result set.
func (e *Engine) wasRecentlyResulted(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := now()
	for _, set := range e.resultSets {
		if t.After(set.expireAt) {
			continue
		}
		if set.ids[id] {
			return true
		}
	}
	return false
}

func resultSetKey(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
