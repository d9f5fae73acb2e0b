// Package storage defines the backend-agnostic persistence contracts that
// internal/memory, internal/search, internal/graph, and internal/maintenance
// build on. Two implementations exist: internal/storage/sqlite (default,
// single-writer WAL) and internal/storage/postgres (pgvector-backed).
package storage

import (
	"time"

	"github.com/memcore/memcore/pkg/types"
)

// PaginatedResult is a type-safe page of results.
type PaginatedResult[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
	HasMore  bool
}

// ListOptions controls memory_browse-style listing: pagination plus the
// same filter vocabulary search uses for consistency.
type ListOptions struct {
	Page      int
	Limit     int
	Tags      []string
	After     *time.Time
	Before    *time.Time
	ContentType types.ContentType
	SortBy    string // "created_at" | "updated_at" | "importance"
	SortOrder string // "asc" | "desc"
	IncludeInactive bool

	// IncludeSuperseded surfaces rows with superseded_by set even though
	// IncludeInactive is false, without reintroducing plain archived rows.
	// Superseded memories are excluded by default (spec §4.2); this is the
	// "explicitly requested" override.
	IncludeSuperseded bool
}

// SearchOptions controls memory_search's candidate generation and filters.
type SearchOptions struct {
	Query         string
	Limit         int
	Tags          []string
	After         *time.Time
	Before        *time.Time
	ContentType   types.ContentType
	MinScore      float64
	MinImportance float64
	UseRRF        bool

	// IncludeSuperseded includes memories with superseded_by set in both
	// the vector and lexical candidate pools. Default false, matching
	// spec §4.2's "superseded memories are excluded unless explicitly
	// requested."
	IncludeSuperseded bool
}

// ScoredMemory is one search result with its fused score and the
// per-signal breakdown used for debugging and the weight tuner.
type ScoredMemory struct {
	Memory         types.Memory
	Score          float64
	VectorScore    float64
	FTSScore       float64
	RecencyScore   float64
	FrequencyScore float64
}

// GraphBounds caps the size of a graph computation; Brandes' betweenness
// is skipped above MaxNodesForCentrality and a cheaper degree-only signal
// is used instead.
type GraphBounds struct {
	MaxNodesForCentrality int
}

// DefaultGraphBounds matches spec §4.6's stated cutoff.
func DefaultGraphBounds() GraphBounds {
	return GraphBounds{MaxNodesForCentrality: 1000}
}
