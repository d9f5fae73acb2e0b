// Package links implements the memory-to-memory link store operations
// named in spec §4.9, on top of storage.LinkStore's raw upsert/remove
// primitives. The policy spec names — preserve the earliest link type
// unless an explicit override is requested — lives here rather than in the
// storage layer, since the storage layer's Upsert is a generic max-merge
// primitive shared by every caller (internal/maintenance's co-retrieval and
// consolidation writers included), not just this package's.
package links

import (
	"context"
	"fmt"
	"time"

	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

// Service orchestrates memory-link operations.
type Service struct {
	backend storage.Backend
}

// New returns a links Service over backend.
func New(backend storage.Backend) *Service {
	return &Service{backend: backend}
}

var now = func() time.Time { return time.Now().UTC() }

// Link upserts a link between source and target, max-merging strength (the
// storage layer's job) and preserving whichever link type was set first
// unless override is true, in which case linkType replaces it.
func (s *Service) Link(ctx context.Context, source, target string, linkType types.LinkType, strength float64, override bool) (*types.MemoryLink, error) {
	if !linkType.Valid() {
		return nil, fmt.Errorf("links: invalid link type %q", linkType)
	}
	if source == target {
		return nil, fmt.Errorf("links: cannot link a memory to itself")
	}

	finalType := linkType
	if !override {
		if existing, ok, err := s.existing(ctx, source, target); err != nil {
			return nil, err
		} else if ok {
			finalType = existing.LinkType
		}
	}

	link := &types.MemoryLink{
		SourceMemoryID: source,
		TargetMemoryID: target,
		LinkType:       finalType,
		Strength:       strength,
		CreatedAt:      now(),
	}
	if err := s.backend.Links().Upsert(ctx, link); err != nil {
		return nil, fmt.Errorf("links: upsert: %w", err)
	}
	return link, nil
}

// Unlink removes the link between a and b, if any.
func (s *Service) Unlink(ctx context.Context, a, b string) error {
	if err := s.backend.Links().Remove(ctx, a, b); err != nil {
		return fmt.Errorf("links: remove: %w", err)
	}
	return nil
}

// LinkedRef is one endpoint-resolved link, direction-tagged relative to the
// id it was requested for.
type LinkedRef struct {
	Memory     types.Memory   `json:"memory"`
	LinkType   types.LinkType `json:"link_type"`
	Strength   float64        `json:"strength"`
	Outgoing   bool           `json:"outgoing"`
}

// GetLinkedRefs returns every link touching any of ids, resolved to the
// other endpoint's memory and grouped by requested id. Each id's list holds
// a given other endpoint at most once; a link between two ids both present
// in the request appears in both of their lists.
func (s *Service) GetLinkedRefs(ctx context.Context, ids []string) (map[string][]LinkedRef, error) {
	requested := make(map[string]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}

	out := make(map[string][]LinkedRef, len(ids))
	seen := make(map[string]bool)

	for _, id := range ids {
		linkList, err := s.backend.Links().LinkedTo(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("links: linked to %s: %w", id, err)
		}
		for _, l := range linkList {
			other := l.TargetMemoryID
			outgoing := true
			if other == id {
				other = l.SourceMemoryID
				outgoing = false
			}
			key := id + "->" + other
			if seen[key] {
				continue
			}
			seen[key] = true

			m, err := s.backend.Memories().Get(ctx, other)
			if err != nil {
				continue // other endpoint archived/deleted concurrently
			}
			if tags, err := s.backend.Tags().TagsOf(ctx, other); err == nil {
				m.Tags = tags
			}
			out[id] = append(out[id], LinkedRef{Memory: *m, LinkType: l.LinkType, Strength: l.Strength, Outgoing: outgoing})
		}
	}
	return out, nil
}

func (s *Service) existing(ctx context.Context, a, b string) (*types.MemoryLink, bool, error) {
	linkList, err := s.backend.Links().LinkedTo(ctx, a)
	if err != nil {
		return nil, false, fmt.Errorf("links: load existing: %w", err)
	}
	for _, l := range linkList {
		if (l.SourceMemoryID == a && l.TargetMemoryID == b) || (l.SourceMemoryID == b && l.TargetMemoryID == a) {
			return &l, true, nil
		}
	}
	return nil, false, nil
}
