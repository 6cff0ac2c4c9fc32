// Package sqlite provides the SQLite implementation of the memgraph storage
// interfaces.
package sqlite

// Schema contains the SQL statements to create the database schema.
// Relationships and concept links carry foreign keys to memories; dependent
// rows are removed explicitly inside the delete transaction rather than via
// ON DELETE CASCADE so the audit-integrity check runs first.
const Schema = `
-- Memories table: atomic knowledge fragments
CREATE TABLE IF NOT EXISTS memories (
    id TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    content_hash TEXT NOT NULL,

    -- Structured context metadata (JSON object)
    context TEXT,

    importance INTEGER NOT NULL DEFAULT 3,
    status TEXT NOT NULL DEFAULT 'active',

    -- Read-through bookkeeping
    access_count INTEGER NOT NULL DEFAULT 0,
    last_accessed_at TIMESTAMP,

    -- External vector index handle (NULL until indexing completes)
    vector_id TEXT,

    created_by TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_memories_content_hash ON memories(content_hash);
CREATE INDEX IF NOT EXISTS idx_memories_status ON memories(status);
CREATE INDEX IF NOT EXISTS idx_memories_created_by ON memories(created_by);

-- Concepts table: named classifiers, unique by name
CREATE TABLE IF NOT EXISTS concepts (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL,
    confidence REAL NOT NULL DEFAULT 1.0,
    description TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_concepts_type ON concepts(type);

-- Memory-concept join table; the composite primary key makes linking idempotent
CREATE TABLE IF NOT EXISTS memory_concepts (
    memory_id TEXT NOT NULL REFERENCES memories(id),
    concept_id TEXT NOT NULL REFERENCES concepts(id),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (memory_id, concept_id)
);

CREATE INDEX IF NOT EXISTS idx_memory_concepts_concept ON memory_concepts(concept_id);

-- Relationships table: typed weighted edges between memories
CREATE TABLE IF NOT EXISTS relationships (
    id TEXT PRIMARY KEY,
    source_id TEXT NOT NULL REFERENCES memories(id),
    target_id TEXT NOT NULL REFERENCES memories(id),
    type TEXT NOT NULL,
    strength REAL NOT NULL DEFAULT 0.5,
    bidirectional INTEGER NOT NULL DEFAULT 0,
    metadata TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_id);
CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_id);

-- Merge audit trail: append-only, one row per merge
CREATE TABLE IF NOT EXISTS merge_audits (
    id TEXT PRIMARY KEY,
    primary_memory_id TEXT NOT NULL REFERENCES memories(id),
    merged_memory_ids TEXT NOT NULL,
    strategy TEXT NOT NULL,
    created_by TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_merge_audits_primary ON merge_audits(primary_memory_id);
`
