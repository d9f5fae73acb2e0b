// Package memory implements the write pipeline: the sequence of
// normalization, dedup, embedding, chunking, and best-effort enrichment
// steps that turn a caller's raw content into one or more persisted
// Memory rows. The dedup, insert and supersede writes of Create run inside
// a single storage.TxRunner transaction; enrichment runs after that
// transaction commits, and not every exported operation opens one.
package memory

import (
	"time"

	"github.com/memcore/memcore/pkg/types"
)

// DedupAction records which branch of the dedup steps a Create call took,
// if any.
type DedupAction string

const (
	DedupNone       DedupAction = ""
	DedupSkipped    DedupAction = "skipped"
	DedupSuperseded DedupAction = "superseded"
)

// CreateInput is the caller-supplied shape for a new memory, before
// defaults, normalization, or enrichment. Pointer fields distinguish
// "not provided" from the zero value.
type CreateInput struct {
	Content     string
	ContentType types.ContentType
	Source      string
	SourceURI   string

	Provider       string
	ModelID        string
	ModelName      string
	Agent          string
	SessionID      string
	ConversationID string

	Importance *float64
	Tags       []string
	Metadata   map[string]any
	IsMetadata *bool

	// Benchmark marks this write as a load-test/evaluation artifact: it
	// skips post-insert enrichment entirely and may skip indexing/chunking
	// depending on the benchmark.* settings.
	Benchmark bool

	// parentID and chunkIndex are set only by the chunker's own recursive
	// calls into insertOne; callers never set these directly.
	parentID   string
	chunkIndex *int
}

// CreateResult is what Create returns: the persisted memory (the parent
// row, if chunked) plus the outcome of the dedup steps.
type CreateResult struct {
	Memory          *types.Memory
	SupersededID    string
	DedupAction     DedupAction
	DedupSimilarity *float64
}

// UpdatePatch is a partial update; nil fields are left unchanged. Tags,
// when non-nil, replaces the full tag set (callers that want to add one
// tag must read-modify-write). Metadata merge rules: a present key with a
// JSON-null-equivalent value (ClearMetadataKeys) deletes the key; other
// present keys overwrite.
type UpdatePatch struct {
	Content     *string
	ContentType *types.ContentType
	Source      *string
	SourceURI   *string
	Importance  *float64
	Tags        []string

	Metadata           map[string]any
	ClearMetadataKeys  []string
}

// touchFields carries the subset of an existing memory's attribution the
// hash-dedup "touch" step may fill in when the incoming write supplies a
// value the stored row doesn't have yet.
type touchFields struct {
	provider, modelID, modelName, agent, sessionID, conversationID, sourceURI string
}

func (i *CreateInput) touch() touchFields {
	return touchFields{
		provider:       i.Provider,
		modelID:        i.ModelID,
		modelName:      i.ModelName,
		agent:          i.Agent,
		sessionID:      i.SessionID,
		conversationID: i.ConversationID,
		sourceURI:      i.SourceURI,
	}
}

// now is a seam so tests can freeze time; production always uses time.Now.
var now = func() time.Time { return time.Now().UTC() }

// PingResult is memory_ping's liveness report: storage backend
// connectivity plus the embedding oracle's circuit-breaker state, so a
// caller can tell "up but degraded" from "down."
type PingResult struct {
	StorageOK      bool
	EmbeddingState string
	CheckedAt      time.Time
}

// TimelineMode selects which part of a memory's supersession chain
// Timeline returns.
type TimelineMode string

const (
	// TimelineLineage returns the full chain: every ancestor the target
	// superseded, the target itself, and every descendant that
	// superseded it in turn. This is the default.
	TimelineLineage TimelineMode = "lineage"
	// TimelineDecisions returns only the ancestors (what the target
	// superseded) plus the target, oldest first.
	TimelineDecisions TimelineMode = "decisions"
	// TimelineEvolution returns only the target plus its descendants
	// (what superseded it), oldest first.
	TimelineEvolution TimelineMode = "evolution"
)

// TimelineEntry is one memory in a supersession chain, annotated with the
// timestamp its sortable id embeds.
type TimelineEntry struct {
	Memory     types.Memory
	IDTime     time.Time
	IsRequested bool
}
