package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tabtriage/models"
)

// ErrTabNotFound is returned when a tab id has no live row.
var ErrTabNotFound = errors.New("tab not found")

// GetTab returns a live tab by id.
func (db *DB) GetTab(tabID int64) (*models.TabItem, error) {
	row := db.QueryRow(`
		SELECT id, user_id, url, page_title, window_label, collected_at,
			status, is_processed, ingest_count, created_at, updated_at
		FROM tab_item
		WHERE id = ? AND deleted_at IS NULL
	`, tabID)
	return scanTab(row)
}

// ListTabsByStatus returns a user's live tabs in any of the given
// statuses, oldest first so retries pick up stale work before new.
func (db *DB) ListTabsByStatus(userID string, statuses ...models.TabStatus) ([]models.TabItem, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(statuses))
	args := []interface{}{userID}
	for i, s := range statuses {
		placeholders[i] = "?"
		args = append(args, string(s))
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, url, page_title, window_label, collected_at,
			status, is_processed, ingest_count, created_at, updated_at
		FROM tab_item
		WHERE user_id = ? AND deleted_at IS NULL AND status IN (%s)
		ORDER BY updated_at ASC, id ASC
	`, strings.Join(placeholders, ","))

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tabs: %w", err)
	}
	defer rows.Close()

	var tabs []models.TabItem
	for rows.Next() {
		tab, err := scanTab(rows)
		if err != nil {
			return nil, err
		}
		tabs = append(tabs, *tab)
	}
	return tabs, rows.Err()
}

// UpdateTabStatus advances a tab through the lifecycle. The transition is
// validated against the state machine, persisted, and logged to the event
// log in one transaction. Reaching enriched also flips is_processed.
func (db *DB) UpdateTabStatus(tabID int64, next models.TabStatus, details map[string]any) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userID string
	var current models.TabStatus
	err = tx.QueryRow(`
		SELECT user_id, status FROM tab_item
		WHERE id = ? AND deleted_at IS NULL
	`, tabID).Scan(&userID, &current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %d", ErrTabNotFound, tabID)
	}
	if err != nil {
		return fmt.Errorf("failed to load tab %d: %w", tabID, err)
	}

	if _, err := current.Transition(next); err != nil {
		return fmt.Errorf("tab %d: %w", tabID, err)
	}

	isProcessed := next == models.StatusEnriched
	_, err = tx.Exec(`
		UPDATE tab_item
		SET status = ?, is_processed = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(next), isProcessed, tabID)
	if err != nil {
		return fmt.Errorf("failed to update tab status: %w", err)
	}

	eventDetails := map[string]any{
		"from": string(current),
		"to":   string(next),
	}
	for k, v := range details {
		eventDetails[k] = v
	}
	if err := logEvent(tx, userID, models.EventTabStatusChanged, "tab_item", tabID, eventDetails); err != nil {
		return err
	}

	return tx.Commit()
}

// SaveExtractedContent writes a tab's extraction result, overwriting any
// previous extraction.
func (db *DB) SaveExtractedContent(tabID int64, content *models.ExtractedContent) error {
	metadata, err := json.Marshal(content.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO extracted_content (tab_id, site_kind, title, text_full, word_count, video_seconds, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tab_id) DO UPDATE SET
			site_kind = excluded.site_kind,
			title = excluded.title,
			text_full = excluded.text_full,
			word_count = excluded.word_count,
			video_seconds = excluded.video_seconds,
			metadata = excluded.metadata,
			updated_at = CURRENT_TIMESTAMP
	`, tabID, content.SiteKind, NewNullString(content.Title), NewNullString(content.TextFull),
		content.WordCount, NewNullInt64(content.VideoSeconds), string(metadata))
	if err != nil {
		return fmt.Errorf("failed to save extracted content: %w", err)
	}
	return nil
}

// GetExtractedContent returns a tab's extraction result, or nil if the
// tab has not been parsed yet.
func (db *DB) GetExtractedContent(tabID int64) (*models.ExtractedContent, error) {
	var content models.ExtractedContent
	var title, textFull sql.NullString
	var videoSeconds sql.NullInt64
	var metadata string

	err := db.QueryRow(`
		SELECT tab_id, site_kind, title, text_full, word_count, video_seconds, metadata
		FROM extracted_content WHERE tab_id = ?
	`, tabID).Scan(&content.TabID, &content.SiteKind, &title, &textFull,
		&content.WordCount, &videoSeconds, &metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get extracted content: %w", err)
	}

	content.Title = title.String
	content.TextFull = textFull.String
	if videoSeconds.Valid {
		content.VideoSeconds = &videoSeconds.Int64
	}
	if err := json.Unmarshal([]byte(metadata), &content.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &content, nil
}

// SaveEnrichment writes a tab's enrichment result, overwriting any
// previous one (a manual retry may re-enrich).
func (db *DB) SaveEnrichment(tabID int64, e *models.Enrichment) error {
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	projects, err := json.Marshal(e.Projects)
	if err != nil {
		return fmt.Errorf("failed to marshal projects: %w", err)
	}

	var estReadMin sql.NullInt64
	if e.EstReadMin != nil {
		estReadMin = sql.NullInt64{Int64: int64(*e.EstReadMin), Valid: true}
	}

	_, err = db.Exec(`
		INSERT INTO enrichment (tab_id, summary, content_type, tags, projects, est_read_min, priority, model_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tab_id) DO UPDATE SET
			summary = excluded.summary,
			content_type = excluded.content_type,
			tags = excluded.tags,
			projects = excluded.projects,
			est_read_min = excluded.est_read_min,
			priority = excluded.priority,
			model_name = excluded.model_name,
			updated_at = CURRENT_TIMESTAMP
	`, tabID, e.Summary, e.ContentType, string(tags), string(projects),
		estReadMin, NewNullString(e.Priority), NewNullString(e.ModelName))
	if err != nil {
		return fmt.Errorf("failed to save enrichment: %w", err)
	}
	return nil
}

// GetEnrichment returns a tab's enrichment, or nil if not enriched yet.
func (db *DB) GetEnrichment(tabID int64) (*models.Enrichment, error) {
	var e models.Enrichment
	var tags, projects string
	var estReadMin sql.NullInt64
	var priority, modelName sql.NullString

	err := db.QueryRow(`
		SELECT tab_id, summary, content_type, tags, projects, est_read_min, priority, model_name
		FROM enrichment WHERE tab_id = ?
	`, tabID).Scan(&e.TabID, &e.Summary, &e.ContentType, &tags, &projects,
		&estReadMin, &priority, &modelName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrichment: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if err := json.Unmarshal([]byte(projects), &e.Projects); err != nil {
		return nil, fmt.Errorf("failed to unmarshal projects: %w", err)
	}
	if estReadMin.Valid {
		v := int(estReadMin.Int64)
		e.EstReadMin = &v
	}
	e.Priority = priority.String
	e.ModelName = modelName.String
	return &e, nil
}

// SoftDeleteTab marks a tab deleted without removing the row, freeing the
// (user_id, url) slot for a future re-save.
func (db *DB) SoftDeleteTab(tabID int64) error {
	res, err := db.Exec(`
		UPDATE tab_item SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL
	`, tabID)
	if err != nil {
		return fmt.Errorf("failed to delete tab: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: id %d", ErrTabNotFound, tabID)
	}
	return nil
}

// CountLiveTabs returns the number of live tabs for a user.
func (db *DB) CountLiveTabs(userID string) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM tab_item WHERE user_id = ? AND deleted_at IS NULL
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tabs: %w", err)
	}
	return count, nil
}

// StatusSummary returns a user's live tab counts grouped by status.
func (db *DB) StatusSummary(userID string) (map[string]int, error) {
	rows, err := db.Query(`
		SELECT status, COUNT(*) FROM tab_item
		WHERE user_id = ? AND deleted_at IS NULL
		GROUP BY status ORDER BY status
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize statuses: %w", err)
	}
	defer rows.Close()

	summary := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summary[status] = count
	}
	return summary, rows.Err()
}

// ListEvents returns a user's most recent audit events.
func (db *DB) ListEvents(userID string, limit int) ([]models.EventLogEntry, error) {
	rows, err := db.Query(`
		SELECT id, user_id, event_type, entity_type, entity_id, details, created_at
		FROM event_log WHERE user_id = ?
		ORDER BY id DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []models.EventLogEntry
	for rows.Next() {
		var e models.EventLogEntry
		var entityType sql.NullString
		var entityID sql.NullInt64
		var details string
		if err := rows.Scan(&e.ID, &e.UserID, &e.EventType, &entityType, &entityID, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.EntityType = entityType.String
		e.EntityID = entityID.Int64
		if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event details: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// execer covers both *sql.Tx and *sql.DB for same-transaction helpers.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// logEvent appends to the audit trail using the caller's transaction, so
// the event commits or rolls back together with the mutation it records.
func logEvent(ex execer, userID, eventType, entityType string, entityID int64, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal event details: %w", err)
	}

	var entityIDArg sql.NullInt64
	if entityID != 0 {
		entityIDArg = sql.NullInt64{Int64: entityID, Valid: true}
	}

	_, err = ex.Exec(`
		INSERT INTO event_log (user_id, event_type, entity_type, entity_id, details)
		VALUES (?, ?, ?, ?, ?)
	`, userID, eventType, NewNullString(entityType), entityIDArg, string(payload))
	if err != nil {
		return fmt.Errorf("failed to log event: %w", err)
	}
	return nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTab(s scanner) (*models.TabItem, error) {
	var tab models.TabItem
	var pageTitle, windowLabel sql.NullString
	var collectedAt sql.NullTime
	var status string

	err := s.Scan(&tab.ID, &tab.UserID, &tab.URL, &pageTitle, &windowLabel,
		&collectedAt, &status, &tab.IsProcessed, &tab.IngestCount,
		&tab.CreatedAt, &tab.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTabNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tab: %w", err)
	}

	tab.PageTitle = pageTitle.String
	tab.WindowLabel = windowLabel.String
	if collectedAt.Valid {
		tab.CollectedAt = collectedAt.Time
	}
	tab.Status = models.TabStatus(status)
	return &tab, nil
}
