package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Tab items: one row per saved tab, tracked through the pipeline lifecycle
CREATE TABLE IF NOT EXISTS tab_item (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    url TEXT NOT NULL,
    page_title TEXT,
    window_label TEXT,
    collected_at TIMESTAMP,

    -- Lifecycle: new, fetch_pending, parsed, fetch_error,
    -- llm_pending, enriched, llm_error
    status TEXT NOT NULL DEFAULT 'new',
    is_processed BOOLEAN NOT NULL DEFAULT 0,

    -- Bumped by the ingest upsert on every conflict; 1 means freshly
    -- inserted. This is how insert-vs-duplicate is distinguished.
    ingest_count INTEGER NOT NULL DEFAULT 1,

    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at TIMESTAMP
);

-- Dedup invariant: exactly one live row per (user_id, url).
-- Soft-deleted rows are excluded so a URL can be re-saved after deletion.
CREATE UNIQUE INDEX IF NOT EXISTS idx_tab_item_user_url
    ON tab_item(user_id, url) WHERE deleted_at IS NULL;

CREATE INDEX IF NOT EXISTS idx_tab_item_status ON tab_item(status);
CREATE INDEX IF NOT EXISTS idx_tab_item_user ON tab_item(user_id);

-- Extracted content: one row per tab once parsed, overwritten on re-extraction
CREATE TABLE IF NOT EXISTS extracted_content (
    tab_id INTEGER PRIMARY KEY,
    site_kind TEXT NOT NULL,
    title TEXT,
    text_full TEXT,
    word_count INTEGER NOT NULL DEFAULT 0,
    video_seconds INTEGER,
    metadata TEXT NOT NULL DEFAULT '{}',   -- JSON object
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (tab_id) REFERENCES tab_item(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_content_site_kind ON extracted_content(site_kind);

-- Enrichment: LLM-generated metadata, one row per tab once enriched
CREATE TABLE IF NOT EXISTS enrichment (
    tab_id INTEGER PRIMARY KEY,
    summary TEXT NOT NULL,
    content_type TEXT NOT NULL,
    tags TEXT NOT NULL DEFAULT '[]',       -- JSON array, order preserved
    projects TEXT NOT NULL DEFAULT '[]',   -- JSON array, order preserved
    est_read_min INTEGER,
    priority TEXT,
    model_name TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (tab_id) REFERENCES tab_item(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_enrichment_content_type ON enrichment(content_type);

-- Event log: append-only audit trail, written in the same transaction
-- as the mutation it records
CREATE TABLE IF NOT EXISTS event_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    entity_type TEXT,
    entity_id INTEGER,
    details TEXT NOT NULL DEFAULT '{}',    -- JSON object
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_event_log_user ON event_log(user_id);
CREATE INDEX IF NOT EXISTS idx_event_log_type ON event_log(event_type);
CREATE INDEX IF NOT EXISTS idx_event_log_time ON event_log(created_at);
`
