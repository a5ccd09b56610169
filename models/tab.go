// Package models defines the data structures shared across the tab
// processing pipeline: tab items, extracted content, enrichment output,
// and the audit event log.
package models

import (
	"strings"
	"time"
)

// BookmarkCandidate is a single tab pulled out of a bookmarks export.
// Candidates are ephemeral: they exist between the importer and the
// ingest store and are never persisted directly.
type BookmarkCandidate struct {
	URL         string
	PageTitle   string
	WindowLabel string
	CollectedAt time.Time
}

// Normalize strips whitespace from the URL and title. An all-whitespace
// title collapses to empty so the store treats it as absent.
func (c *BookmarkCandidate) Normalize() {
	c.URL = strings.TrimSpace(c.URL)
	c.PageTitle = strings.TrimSpace(c.PageTitle)
}

// TabItem is a persisted tab tracked through the pipeline lifecycle.
// Exactly one live (DeletedAt == nil) row exists per (UserID, URL).
type TabItem struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"user_id"`
	URL         string     `json:"url"`
	PageTitle   string     `json:"page_title,omitempty"`
	WindowLabel string     `json:"window_label,omitempty"`
	Status      TabStatus  `json:"status"`
	IsProcessed bool       `json:"is_processed"`
	IngestCount int64      `json:"ingest_count"`
	CollectedAt time.Time  `json:"collected_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// ExtractedContent is the normalized output of a site extractor,
// one-to-one with a TabItem once it reaches StatusParsed. Re-extraction
// overwrites it.
type ExtractedContent struct {
	TabID        int64          `json:"tab_id,omitempty"`
	SiteKind     string         `json:"site_kind"`
	Title        string         `json:"title,omitempty"`
	TextFull     string         `json:"text_full,omitempty"`
	WordCount    int            `json:"word_count"`
	VideoSeconds *int64         `json:"video_seconds,omitempty"`
	Metadata     map[string]any `json:"metadata"`
}

// CountWords tokenizes on whitespace. Empty text counts as zero words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// EventLogEntry is one row of the append-only audit trail. Entries are
// written in the same transaction as the mutation they record.
type EventLogEntry struct {
	ID         int64          `json:"id"`
	UserID     string         `json:"user_id"`
	EventType  string         `json:"event_type"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   int64          `json:"entity_id,omitempty"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Event types written by the pipeline.
const (
	EventTabCreated          = "tab_created"
	EventTabDuplicateSkipped = "tab_duplicate_skipped"
	EventTabStatusChanged    = "tab_status_changed"
)
