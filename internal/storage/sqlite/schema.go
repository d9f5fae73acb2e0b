package sqlite

// Schema is executed idempotently (IF NOT EXISTS throughout) on every open,
// an embedded schema constant rather than a migration-file runner, since
// memcore's table set doesn't yet have multiple shipped schema versions to
// step between.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT 'text',
	source TEXT NOT NULL DEFAULT 'manual',
	source_uri TEXT,
	provider TEXT,
	model_id TEXT,
	model_name TEXT,
	agent TEXT,
	session_id TEXT,
	conversation_id TEXT,
	embedding BLOB,
	content_hash TEXT NOT NULL,
	is_indexed INTEGER NOT NULL DEFAULT 0,
	is_metadata INTEGER NOT NULL DEFAULT 0,
	importance REAL NOT NULL DEFAULT 0.5,
	access_count INTEGER NOT NULL DEFAULT 0,
	useful_count INTEGER NOT NULL DEFAULT 0,
	last_accessed_at TEXT,
	parent_id TEXT REFERENCES memories(id),
	chunk_index INTEGER,
	superseded_by TEXT,
	is_active INTEGER NOT NULL DEFAULT 1,
	metadata TEXT,
	keywords TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_memories_active_hash
	ON memories(content_type, content_hash)
	WHERE is_active = 1 AND parent_id IS NULL;

CREATE INDEX IF NOT EXISTS idx_memories_parent ON memories(parent_id);
CREATE INDEX IF NOT EXISTS idx_memories_active_created ON memories(is_active, created_at);
CREATE INDEX IF NOT EXISTS idx_memories_content_type ON memories(content_type);

CREATE TABLE IF NOT EXISTS memory_tags (
	memory_id TEXT NOT NULL REFERENCES memories(id),
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
	aliases TEXT,
	metadata TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entity_tags (
	entity_id TEXT NOT NULL REFERENCES entities(id),
	tag TEXT NOT NULL,
	PRIMARY KEY (entity_id, tag)
);

CREATE TABLE IF NOT EXISTS memory_entities (
	memory_id TEXT NOT NULL REFERENCES memories(id),
	entity_id TEXT NOT NULL REFERENCES entities(id),
	relevance REAL NOT NULL DEFAULT 1.0,
	created_at TEXT NOT NULL,
	PRIMARY KEY (memory_id, entity_id)
);
CREATE INDEX IF NOT EXISTS idx_memory_entities_entity ON memory_entities(entity_id);

CREATE TABLE IF NOT EXISTS entity_relationships (
	id TEXT PRIMARY KEY,
	source_entity_id TEXT NOT NULL REFERENCES entities(id),
	target_entity_id TEXT NOT NULL REFERENCES entities(id),
	relationship TEXT NOT NULL,
	confidence REAL NOT NULL DEFAULT 0.5,
	source_memory_id TEXT,
	context TEXT,
	created_at TEXT NOT NULL,
	UNIQUE(source_entity_id, target_entity_id, relationship)
);

CREATE TABLE IF NOT EXISTS memory_links (
	source_memory_id TEXT NOT NULL REFERENCES memories(id),
	target_memory_id TEXT NOT NULL REFERENCES memories(id),
	link_type TEXT NOT NULL,
	strength REAL NOT NULL DEFAULT 0.5,
	created_at TEXT NOT NULL,
	PRIMARY KEY (source_memory_id, target_memory_id)
);

CREATE TABLE IF NOT EXISTS goals (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT,
	status TEXT NOT NULL DEFAULT 'active',
	priority TEXT NOT NULL DEFAULT 'medium',
	deadline TEXT,
	metadata TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	completed_at TEXT
);

CREATE TABLE IF NOT EXISTS milestones (
	goal_id TEXT NOT NULL REFERENCES goals(id),
	ordinal INTEGER NOT NULL,
	title TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TEXT NOT NULL,
	PRIMARY KEY (goal_id, ordinal)
);

CREATE TABLE IF NOT EXISTS access_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	memory_id TEXT NOT NULL REFERENCES memories(id),
	query TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_access_log_memory ON access_log(memory_id);
CREATE INDEX IF NOT EXISTS idx_access_log_created ON access_log(created_at);

CREATE TABLE IF NOT EXISTS observability_counters (
	key TEXT PRIMARY KEY,
	value INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS contradictions (
	id TEXT PRIMARY KEY,
	memory_id_a TEXT NOT NULL REFERENCES memories(id),
	memory_id_b TEXT NOT NULL REFERENCES memories(id),
	note TEXT,
	created_at TEXT NOT NULL
);

-- memory_fts is a standalone (non-external-content) FTS5 table keyed by
-- memory id. Rather than rely on SQLite triggers over the id-addressed
-- memories table (fiddly with FTS5's rowid-based external-content mode),
-- the sqlite search provider writes to it explicitly alongside every
-- memories write, the same "keep the index in sync in application code"
-- approach used for the denormalized counters below.
CREATE VIRTUAL TABLE IF NOT EXISTS memory_fts USING fts5(
	id UNINDEXED,
	content,
	keywords,
	tags,
	tokenize='unicode61'
);
`
