package memory

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/memcore/memcore/internal/config"
	"github.com/memcore/memcore/internal/content"
	"github.com/memcore/memcore/internal/embedding"
	"github.com/memcore/memcore/internal/ids"
	"github.com/memcore/memcore/internal/memcoreerr"
	"github.com/memcore/memcore/internal/notify"
	"github.com/memcore/memcore/internal/storage"
	"github.com/memcore/memcore/internal/tagging"
	"github.com/memcore/memcore/pkg/types"
)

// Pipeline is the write-pipeline orchestrator: the one place content
// normalization, dedup, embedding, chunking, and post-insert enrichment
// are wired together over a storage.Backend. One Pipeline is shared across
// every caller in the process, the same way the embedding Manager beneath
// it is.
type Pipeline struct {
	backend  storage.Backend
	embedder *embedding.Manager
	notifier *notify.Bus
}

// New builds a Pipeline over backend, using embedder for the embed step.
// embedder may be nil in tests that only exercise the non-embedding paths;
// production callers always provide one.
func New(backend storage.Backend, embedder *embedding.Manager) *Pipeline {
	return &Pipeline{backend: backend, embedder: embedder}
}

// SetNotifier attaches bus so Create, Update, and Archive publish events
// for it to fan out. Optional: a Pipeline with no notifier set just skips
// publishing, so existing callers that never call this are unaffected.
func (p *Pipeline) SetNotifier(bus *notify.Bus) {
	p.notifier = bus
}

// publish is a nil-safe wrapper so call sites never have to guard on
// whether a notifier was attached.
func (p *Pipeline) publish(evt notify.Event) {
	if p.notifier == nil {
		return
	}
	p.notifier.Publish(evt)
}

func (p *Pipeline) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx, p.backend.Settings())
	if err != nil {
		return nil, fmt.Errorf("memory: load config: %w", err)
	}
	return cfg, nil
}

// incr increments a set of counters, swallowing failures per spec's
// "access logging and counter increments ... their failure is swallowed
// with a counter" rule — there is no deeper counter to log a counter
// failure to, so this just logs.
func (p *Pipeline) incr(ctx context.Context, keys ...string) {
	for _, k := range keys {
		if err := p.backend.Counters().Increment(ctx, k, 1); err != nil {
			log.Printf("memcore/memory: counter increment %q failed: %v", k, err)
		}
	}
}

// Create runs the full write pipeline described by the store's create
// operation: normalize, dedup (hash then semantic), embed, chunk if
// needed, insert transactionally with any supersede, then best-effort
// post-insert enrichment.
func (p *Pipeline) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	cfg, err := p.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	m, err := p.normalize(ctx, cfg, input)
	if err != nil {
		return nil, err
	}

	var supersedeCandidate *types.Memory
	var dedupKind string
	var dedupSimilarity *float64

	if m.ParentID == "" && cfg.Dedup.Enabled && cfg.Dedup.HashEnabled {
		existing, err := p.backend.Memories().FindActiveByHash(ctx, m.ContentType, m.ContentHash)
		switch {
		case err == nil:
			sim := 1.0
			if cfg.Dedup.SkipInsertOnMatch {
				updated, err := p.touchUpdate(ctx, existing, &input, m)
				if err != nil {
					return nil, err
				}
				p.incr(ctx, types.CounterDedupSkipped, types.CounterDedupSkippedHash)
				return &CreateResult{Memory: updated, DedupAction: DedupSkipped, DedupSimilarity: &sim}, nil
			}
			supersedeCandidate, dedupKind, dedupSimilarity = existing, "hash", &sim
		case errors.Is(err, memcoreerr.ErrNotFound):
			// no hash match; semantic dedup still has a chance below
		default:
			return nil, fmt.Errorf("memory: hash dedup lookup: %w", err)
		}
	}

	indexed := true
	if input.Benchmark && !cfg.Benchmark.Indexed {
		indexed = false
	}

	var fullEmbedding []float32
	if indexed {
		if vec, embedErr := p.tryEmbed(ctx, m.Content); embedErr == nil {
			fullEmbedding = vec
		}
	}
	m.IsIndexed = indexed

	chunkingAllowed := cfg.Chunking.Enabled && m.ParentID == "" &&
		!(input.Benchmark && !cfg.Benchmark.Chunking)
	if chunkingAllowed && len(m.Content) > cfg.Chunking.MaxLength {
		return p.createChunked(ctx, cfg, input, m, supersedeCandidate, dedupKind, dedupSimilarity)
	}

	m.Embedding = fullEmbedding

	if supersedeCandidate == nil && m.ParentID == "" && len(m.Embedding) > 0 &&
		cfg.Dedup.Enabled && len(m.Content) >= 50 {
		cand, sim, err := p.semanticDedupCandidate(ctx, cfg, m)
		if err != nil {
			return nil, err
		}
		if cand != nil {
			dedupSimilarity = &sim
			if cfg.Dedup.SkipInsertOnMatch {
				updated, err := p.touchUpdate(ctx, cand, &input, m)
				if err != nil {
					return nil, err
				}
				p.incr(ctx, types.CounterDedupSkipped, types.CounterDedupSkippedSemantic)
				return &CreateResult{Memory: updated, DedupAction: DedupSkipped, DedupSimilarity: &sim}, nil
			}
			supersedeCandidate, dedupKind = cand, "semantic"
		}
	}

	return p.insertWithSupersede(ctx, cfg, &input, m, supersedeCandidate, dedupKind, dedupSimilarity)
}

// normalize implements step 1 and step 2-3: strip private content, apply
// defaults and the benchmark overlay, normalize tags, infer is_metadata,
// and compute the content hash.
func (p *Pipeline) normalize(ctx context.Context, cfg *config.Config, input CreateInput) (*types.Memory, error) {
	stripped, err := content.StripPrivate(input.Content)
	if err != nil {
		return nil, err
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = types.ContentText
	}
	if !contentType.Valid() {
		return nil, fmt.Errorf("%w: unknown content_type %q", memcoreerr.ErrInvalidInput, contentType)
	}

	source := input.Source
	if source == "" {
		source = "manual"
	}

	importance := 0.5
	if input.Benchmark {
		importance = cfg.Benchmark.DefaultImportance
	}
	if input.Importance != nil {
		importance = *input.Importance
	}
	if importance < 0 || importance > 1 {
		return nil, fmt.Errorf("%w: importance %v out of range [0,1]", memcoreerr.ErrInvalidInput, importance)
	}

	tags := append([]string{}, input.Tags...)
	metadata := cloneMetadata(input.Metadata)
	if input.Benchmark {
		tags = append(tags, "benchmark-artifact")
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata["mode"] = "benchmark"
	}

	aliasMap, err := p.backend.Tags().AliasMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("memory: load tag aliases: %w", err)
	}
	tags = tagging.Normalize(tags, aliasMap)

	isMetadata := tagging.IsMetadata(tags) || input.Benchmark || hasMetadataKey(metadata)
	if input.IsMetadata != nil {
		isMetadata = *input.IsMetadata
	}

	return &types.Memory{
		ID:             ids.New(),
		Content:        stripped,
		ContentType:    contentType,
		Source:         source,
		SourceURI:      input.SourceURI,
		Provider:       input.Provider,
		ModelID:        input.ModelID,
		ModelName:      input.ModelName,
		Agent:          input.Agent,
		SessionID:      input.SessionID,
		ConversationID: input.ConversationID,
		ContentHash:    content.Hash(stripped),
		Importance:     importance,
		IsMetadata:     isMetadata,
		IsActive:       true,
		Metadata:       metadata,
		Tags:           tags,
		ParentID:       input.parentID,
		ChunkIndex:     input.chunkIndex,
		CreatedAt:      now(),
		UpdatedAt:      now(),
	}, nil
}
