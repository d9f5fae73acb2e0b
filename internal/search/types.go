// Package search implements the hybrid retrieval engine: vector, lexical,
// recency, and frequency candidate generation fused into one ranked list,
// chunk-to-parent collapsing, post-filters, multi-hop link expansion, and
// the implicit/explicit usefulness feedback loop that feeds both the
// frequency signal and the adaptive weight tuner.
package search

import (
	"time"

	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/pkg/types"
)

// Result is one ranked hit: the fused score, its per-signal breakdown, and
// a short human-readable explanation of why it matched.
type Result struct {
	storage.ScoredMemory
	Reason string `json:"reason"`
}

// LinkedRef is one multi-hop expansion annex entry: a memory reached by
// following a link edge out of the primary result set.
type LinkedRef struct {
	Memory     types.Memory   `json:"memory"`
	LinkedFrom string         `json:"linked_from"`
	LinkType   types.LinkType `json:"link_type"`
	Strength   float64        `json:"strength"`
}

// Response is the full output of Search: the primary ranked list plus its
// multi-hop expansion annex.
type Response struct {
	Results []Result    `json:"results"`
	Linked  []LinkedRef `json:"linked"`
}

// trackedResultSet is one query's result ids, kept around for TTL long
// enough that a subsequent get_by_ids can implicitly credit a hit as
// useful, per spec's feedback loop.
type trackedResultSet struct {
	ids      map[string]bool
	expireAt time.Time
}
