// Package maintenance implements the batch upkeep routines that keep a
// memcore store healthy over time: decay/archival, importance recalibration,
// re-embedding, entity backfill, cluster consolidation, graph densification,
// co-retrieval link building, scoring-weight tuning, and health checks.
// Every routine here is safe to run repeatedly and leaves the store
// consistent if interrupted partway through.
package maintenance

import (
	"time"

	"github.com/memcore/memcore/internal/embedding"
	"github.com/memcore/memcore/internal/notify"
	"github.com/memcore/memcore/internal/storage"
)

// Service bundles the store and embedding oracle every maintenance routine
// needs. It carries no mutable state of its own between calls.
type Service struct {
	backend  storage.Backend
	embedder *embedding.Manager
	notifier *notify.Bus
}

// New returns a maintenance Service over backend and embedder.
func New(backend storage.Backend, embedder *embedding.Manager) *Service {
	return &Service{backend: backend, embedder: embedder}
}

// SetNotifier attaches bus so each routine publishes an EventMaintenanceRun
// once it completes. Optional; a Service with no notifier just skips it.
func (s *Service) SetNotifier(bus *notify.Bus) {
	s.notifier = bus
}

func (s *Service) publishRun(detail string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(notify.Event{Type: notify.EventMaintenanceRun, Detail: detail})
}

// now is a seam for tests.
var now = func() time.Time { return time.Now().UTC() }

// HealthStatus is the severity of one named health check.
type HealthStatus string

const (
	HealthOK       HealthStatus = "ok"
	HealthWarn     HealthStatus = "warn"
	HealthCritical HealthStatus = "critical"
)

func worse(a, b HealthStatus) HealthStatus {
	rank := map[HealthStatus]int{HealthOK: 0, HealthWarn: 1, HealthCritical: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// HealthCheck is one named, independently-evaluated health signal.
type HealthCheck struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message"`
}

// HealthReport is the aggregate of every health check, with Overall set to
// the worst individual status.
type HealthReport struct {
	Overall HealthStatus  `json:"overall"`
	Checks  []HealthCheck `json:"checks"`
}
