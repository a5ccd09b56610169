package db

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"tabtriage/models"
)

func candidates(urls ...string) []models.BookmarkCandidate {
	out := make([]models.BookmarkCandidate, len(urls))
	for i, u := range urls {
		out[i] = models.BookmarkCandidate{
			URL:         u,
			PageTitle:   fmt.Sprintf("Page %d", i+1),
			WindowLabel: "work",
			CollectedAt: time.Now().UTC(),
		}
	}
	return out
}

func TestIngest_DedupAcrossRuns(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	batch := candidates("https://example.com/a", "https://example.com/b")

	first, err := db.Ingest(batch, testUserID, 100)
	if err != nil {
		t.Fatalf("Ingest() first run error = %v", err)
	}
	if first.Inserted != 2 || first.SkippedDuplicates != 0 {
		t.Errorf("first run = %d inserted / %d duplicates, want 2 / 0",
			first.Inserted, first.SkippedDuplicates)
	}

	second, err := db.Ingest(batch, testUserID, 100)
	if err != nil {
		t.Fatalf("Ingest() second run error = %v", err)
	}
	if second.Inserted != 0 || second.SkippedDuplicates != 2 {
		t.Errorf("second run = %d inserted / %d duplicates, want 0 / 2",
			second.Inserted, second.SkippedDuplicates)
	}

	count, err := db.CountLiveTabs(testUserID)
	if err != nil {
		t.Fatalf("CountLiveTabs() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountLiveTabs() = %d, want 2", count)
	}

	// Each outcome gets its own audit event.
	events, err := db.ListEvents(testUserID, 10)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	var created, skipped int
	for _, e := range events {
		switch e.EventType {
		case models.EventTabCreated:
			created++
		case models.EventTabDuplicateSkipped:
			skipped++
		}
	}
	if created != 2 || skipped != 2 {
		t.Errorf("events = %d created / %d skipped, want 2 / 2", created, skipped)
	}
}

func TestIngest_DuplicateWithinOneRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	batch := candidates("https://example.com/a", "https://example.com/a")

	result, err := db.Ingest(batch, testUserID, 100)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.Inserted != 1 || result.SkippedDuplicates != 1 {
		t.Errorf("result = %d inserted / %d duplicates, want 1 / 1",
			result.Inserted, result.SkippedDuplicates)
	}
}

func TestIngest_BatchSizeOne(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	batch := candidates("https://example.com/a", "https://example.com/b", "https://example.com/c")

	result, err := db.Ingest(batch, testUserID, 1)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.TotalProcessed != 3 || result.Inserted != 3 {
		t.Errorf("result = %d processed / %d inserted, want 3 / 3",
			result.TotalProcessed, result.Inserted)
	}
}

func TestIngest_FillsMissingFieldsOnly(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	url := "https://example.com/sparse"

	// First save has no title.
	_, err := db.Ingest([]models.BookmarkCandidate{{
		URL: url, CollectedAt: time.Now().UTC(),
	}}, testUserID, 100)
	if err != nil {
		t.Fatalf("Ingest() first error = %v", err)
	}

	// Re-ingest with a title fills the gap.
	_, err = db.Ingest([]models.BookmarkCandidate{{
		URL: url, PageTitle: "Filled In", WindowLabel: "research",
		CollectedAt: time.Now().UTC(),
	}}, testUserID, 100)
	if err != nil {
		t.Fatalf("Ingest() second error = %v", err)
	}

	// A third ingest must not overwrite what is already there.
	_, err = db.Ingest([]models.BookmarkCandidate{{
		URL: url, PageTitle: "Clobber Attempt", CollectedAt: time.Now().UTC(),
	}}, testUserID, 100)
	if err != nil {
		t.Fatalf("Ingest() third error = %v", err)
	}

	tabs, err := db.ListTabsByStatus(testUserID, models.StatusNew)
	if err != nil {
		t.Fatalf("ListTabsByStatus() error = %v", err)
	}
	if len(tabs) != 1 {
		t.Fatalf("len(tabs) = %d, want 1", len(tabs))
	}
	if tabs[0].PageTitle != "Filled In" {
		t.Errorf("tab.PageTitle = %q, want %q", tabs[0].PageTitle, "Filled In")
	}
	if tabs[0].WindowLabel != "research" {
		t.Errorf("tab.WindowLabel = %q, want %q", tabs[0].WindowLabel, "research")
	}
	if tabs[0].IngestCount != 3 {
		t.Errorf("tab.IngestCount = %d, want 3", tabs[0].IngestCount)
	}
}

func TestIngest_UserIsolation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	otherUser := "f1d2c3b4-a596-4877-9e8f-0a1b2c3d4e5f"
	batch := candidates("https://example.com/shared")

	first, err := db.Ingest(batch, testUserID, 100)
	if err != nil {
		t.Fatalf("Ingest() user one error = %v", err)
	}
	second, err := db.Ingest(batch, otherUser, 100)
	if err != nil {
		t.Fatalf("Ingest() user two error = %v", err)
	}

	// Same URL, different users: both are inserts.
	if first.Inserted != 1 || second.Inserted != 1 {
		t.Errorf("inserted = %d / %d, want 1 / 1", first.Inserted, second.Inserted)
	}
}

func TestIngest_RowFailureKeepsRestOfBatch(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	// Reject one sentinel URL at the engine level so the middle row of the
	// batch fails after its neighbors have already written.
	poisonURL := "https://example.com/poison"
	_, err := db.Exec(`
		CREATE TRIGGER reject_poison BEFORE INSERT ON tab_item
		WHEN NEW.url = 'https://example.com/poison'
		BEGIN SELECT RAISE(ABORT, 'poisoned row'); END
	`)
	if err != nil {
		t.Fatalf("failed to create trigger: %v", err)
	}

	batch := candidates("https://example.com/a", poisonURL, "https://example.com/b")

	// One batch, one transaction: the failing row must roll back alone.
	result, err := db.Ingest(batch, testUserID, 3)
	if err != nil {
		t.Fatalf("Ingest() error = %v, row failure must not abort the run", err)
	}

	if result.TotalProcessed != 3 {
		t.Errorf("result.TotalProcessed = %d, want 3", result.TotalProcessed)
	}
	if result.Inserted != 2 {
		t.Errorf("result.Inserted = %d, want 2", result.Inserted)
	}
	if result.Errors != 1 {
		t.Errorf("result.Errors = %d, want 1", result.Errors)
	}
	if len(result.ErrorMessages) != 1 || !strings.Contains(result.ErrorMessages[0], poisonURL) {
		t.Errorf("result.ErrorMessages = %v, want one message naming %s", result.ErrorMessages, poisonURL)
	}

	// Both good rows committed despite the failure between them.
	count, err := db.CountLiveTabs(testUserID)
	if err != nil {
		t.Fatalf("CountLiveTabs() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountLiveTabs() = %d, want 2", count)
	}
	tabs, err := db.ListTabsByStatus(testUserID, models.StatusNew)
	if err != nil {
		t.Fatalf("ListTabsByStatus() error = %v", err)
	}
	for _, tab := range tabs {
		if tab.URL == poisonURL {
			t.Errorf("poisoned row %q was committed", poisonURL)
		}
	}
}

func TestIngestResult_ErrorMessageCap(t *testing.T) {
	result := &IngestResult{}
	for i := 0; i < maxErrorMessages+5; i++ {
		result.recordError(fmt.Sprintf("row %d failed", i))
	}

	if result.Errors != maxErrorMessages+5 {
		t.Errorf("result.Errors = %d, want %d", result.Errors, maxErrorMessages+5)
	}
	if len(result.ErrorMessages) != maxErrorMessages {
		t.Errorf("len(result.ErrorMessages) = %d, want cap %d",
			len(result.ErrorMessages), maxErrorMessages)
	}
}
