package db

import (
	"database/sql"
	"fmt"

	"tabtriage/models"
)

// maxErrorMessages caps how many per-row failures are carried back to the
// caller verbatim; the full count is always in Errors.
const maxErrorMessages = 20

// IngestResult reports the outcome of one ingest run.
type IngestResult struct {
	TotalProcessed    int      `json:"total_processed"`
	Inserted          int      `json:"inserted"`
	SkippedDuplicates int      `json:"skipped_duplicates"`
	Errors            int      `json:"errors"`
	ErrorMessages     []string `json:"error_messages,omitempty"`
}

func (r *IngestResult) recordError(msg string) {
	r.Errors++
	if len(r.ErrorMessages) < maxErrorMessages {
		r.ErrorMessages = append(r.ErrorMessages, msg)
	}
}

// upsertTabStmt inserts a candidate or, when a live row already holds the
// same (user_id, url), bumps its ingest_count and fills in any fields the
// existing row is missing. Populated fields are never overwritten.
// ingest_count comes back as 1 exactly when the row was freshly inserted.
const upsertTabStmt = `
	INSERT INTO tab_item (user_id, url, page_title, window_label, collected_at, status)
	VALUES (?, ?, ?, ?, ?, 'new')
	ON CONFLICT(user_id, url) WHERE deleted_at IS NULL DO UPDATE SET
		page_title = COALESCE(tab_item.page_title, excluded.page_title),
		window_label = COALESCE(tab_item.window_label, excluded.window_label),
		ingest_count = tab_item.ingest_count + 1,
		updated_at = CURRENT_TIMESTAMP
	RETURNING id, ingest_count
`

// Ingest writes candidates in batches of batchSize, each batch in its own
// transaction. A row that fails is rolled back to its savepoint and
// skipped; the rest of the batch still commits. Every outcome gets an
// audit event in the same transaction as the row it describes.
func (db *DB) Ingest(candidates []models.BookmarkCandidate, userID string, batchSize int) (*IngestResult, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	result := &IngestResult{}
	for start := 0; start < len(candidates); start += batchSize {
		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		if err := db.ingestBatch(candidates[start:end], userID, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// ingestBatch processes one slice of candidates inside a single
// transaction, isolating each row with a savepoint.
func (db *DB) ingestBatch(batch []models.BookmarkCandidate, userID string, result *IngestResult) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin ingest transaction: %w", err)
	}
	defer tx.Rollback()

	for i, candidate := range batch {
		result.TotalProcessed++

		sp := fmt.Sprintf("ingest_row_%d", i)
		if _, err := tx.Exec("SAVEPOINT " + sp); err != nil {
			return fmt.Errorf("failed to create savepoint: %w", err)
		}

		inserted, err := ingestRow(tx, candidate, userID)
		if err != nil {
			// Roll back just this row; the batch carries on.
			if _, rbErr := tx.Exec("ROLLBACK TO " + sp); rbErr != nil {
				return fmt.Errorf("failed to roll back savepoint: %w", rbErr)
			}
			result.recordError(fmt.Sprintf("%s: %v", candidate.URL, err))
			continue
		}

		if _, err := tx.Exec("RELEASE " + sp); err != nil {
			return fmt.Errorf("failed to release savepoint: %w", err)
		}

		if inserted {
			result.Inserted++
		} else {
			result.SkippedDuplicates++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ingest batch: %w", err)
	}
	return nil
}

// txLike covers *sql.Tx for row-level helpers.
type txLike interface {
	execer
	QueryRow(query string, args ...interface{}) *sql.Row
}

// ingestRow upserts one candidate and logs its outcome event.
func ingestRow(tx txLike, candidate models.BookmarkCandidate, userID string) (bool, error) {
	var id, ingestCount int64
	err := tx.QueryRow(upsertTabStmt,
		userID, candidate.URL,
		NewNullString(candidate.PageTitle),
		NewNullString(candidate.WindowLabel),
		candidate.CollectedAt,
	).Scan(&id, &ingestCount)
	if err != nil {
		return false, fmt.Errorf("upsert failed: %w", err)
	}

	inserted := ingestCount == 1
	eventType := models.EventTabCreated
	details := map[string]any{
		"url":          candidate.URL,
		"window_label": candidate.WindowLabel,
	}
	if !inserted {
		eventType = models.EventTabDuplicateSkipped
		details["ingest_count"] = ingestCount
	}
	if err := logEvent(tx, userID, eventType, "tab_item", id, details); err != nil {
		return inserted, err
	}
	return inserted, nil
}
