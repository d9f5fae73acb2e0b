// Package postgres is the horizontally-scalable memcore backend: Postgres
// with a pgvector column holding embeddings (the vector side of hybrid
// search ranks the most recent candidates by cosine in the search engine,
// not by a pgvector kNN query) and tsvector/GIN for the lexical side,
// behind the same storage.Backend interface the sqlite backend implements.
package postgres

// Schema mirrors the sqlite backend's table-per-concern layout, adapted to
// Postgres types (JSONB metadata, TIMESTAMPTZ, a native vector column via
// pgvector instead of a BLOB).
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	content_type TEXT NOT NULL,
	source TEXT NOT NULL,
	source_uri TEXT,
	provider TEXT,
	model_id TEXT,
	model_name TEXT,
	agent TEXT,
	session_id TEXT,
	conversation_id TEXT,
	embedding vector,
	content_hash TEXT NOT NULL,
	is_indexed BOOLEAN NOT NULL DEFAULT FALSE,
	is_metadata BOOLEAN NOT NULL DEFAULT FALSE,
	importance DOUBLE PRECISION NOT NULL DEFAULT 0.5,
	access_count INTEGER NOT NULL DEFAULT 0,
	useful_count INTEGER NOT NULL DEFAULT 0,
	last_accessed_at TIMESTAMPTZ,
	parent_id TEXT REFERENCES memories(id),
	chunk_index INTEGER,
	superseded_by TEXT,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	metadata JSONB,
	keywords TEXT,
	content_tsv tsvector,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_active ON memories(is_active);
CREATE INDEX IF NOT EXISTS idx_memories_content_type ON memories(content_type);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);
CREATE INDEX IF NOT EXISTS idx_memories_parent ON memories(parent_id);
CREATE INDEX IF NOT EXISTS idx_memories_hash ON memories(content_hash);
CREATE UNIQUE INDEX IF NOT EXISTS idx_memories_active_hash
	ON memories(content_type, content_hash) WHERE is_active = TRUE AND parent_id IS NULL;
CREATE INDEX IF NOT EXISTS idx_memories_content_tsv ON memories USING GIN(content_tsv);

CREATE TABLE IF NOT EXISTS memory_tags (
	memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	tag TEXT NOT NULL,
	PRIMARY KEY (memory_id, tag)
);
CREATE INDEX IF NOT EXISTS idx_memory_tags_tag ON memory_tags(tag);

CREATE TABLE IF NOT EXISTS tag_alias (
	alias TEXT PRIMARY KEY,
	canonical TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	name_lower TEXT NOT NULL UNIQUE,
	type TEXT NOT NULL,
	aliases JSONB,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type);

CREATE TABLE IF NOT EXISTS entity_tags (
	entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	tag TEXT NOT NULL,
	PRIMARY KEY (entity_id, tag)
);

CREATE TABLE IF NOT EXISTS memory_entities (
	memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	relevance DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (memory_id, entity_id)
);
CREATE INDEX IF NOT EXISTS idx_memory_entities_entity ON memory_entities(entity_id);

CREATE TABLE IF NOT EXISTS entity_relationships (
	id TEXT PRIMARY KEY,
	source_entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	target_entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	relationship TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	source_memory_id TEXT,
	context TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE(source_entity_id, target_entity_id, relationship)
);

CREATE TABLE IF NOT EXISTS memory_links (
	source_memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	target_memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	link_type TEXT NOT NULL,
	strength DOUBLE PRECISION NOT NULL DEFAULT 0.5,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (source_memory_id, target_memory_id)
);

CREATE TABLE IF NOT EXISTS goals (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT,
	status TEXT NOT NULL,
	priority TEXT NOT NULL,
	deadline TIMESTAMPTZ,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_goals_status ON goals(status);

CREATE TABLE IF NOT EXISTS milestones (
	goal_id TEXT NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL,
	title TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (goal_id, ordinal)
);

CREATE TABLE IF NOT EXISTS access_log (
	id BIGSERIAL PRIMARY KEY,
	memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	query TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_access_log_memory ON access_log(memory_id);
CREATE INDEX IF NOT EXISTS idx_access_log_created ON access_log(created_at);

CREATE TABLE IF NOT EXISTS observability_counters (
	key TEXT PRIMARY KEY,
	value BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS contradictions (
	id TEXT PRIMARY KEY,
	memory_a_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	memory_b_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	note TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE(memory_a_id, memory_b_id)
);

CREATE OR REPLACE FUNCTION memories_tsv_update() RETURNS TRIGGER AS $$
BEGIN
	NEW.content_tsv := to_tsvector('english', COALESCE(NEW.content, '') || ' ' || COALESCE(NEW.keywords, ''));
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS memories_tsv_trigger ON memories;
CREATE TRIGGER memories_tsv_trigger
	BEFORE INSERT OR UPDATE OF content, keywords ON memories
	FOR EACH ROW EXECUTE FUNCTION memories_tsv_update();
`

// MigrationPgvectorIndex creates the ivfflat ANN index once enough rows
// exist for it to be useful; safe to run repeatedly. Call after pgvector's
// CREATE EXTENSION has succeeded.
const MigrationPgvectorIndex = `
DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_memories_embedding_cosine') THEN
		IF EXISTS (SELECT 1 FROM memories WHERE embedding IS NOT NULL LIMIT 1) THEN
			EXECUTE 'CREATE INDEX idx_memories_embedding_cosine ON memories USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)';
		END IF;
	END IF;
END$$;
`
