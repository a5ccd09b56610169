package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"tabtriage/models"
	"tabtriage/pkg/db"
	"tabtriage/pkg/enrich"
	"tabtriage/pkg/extract"
	"tabtriage/pkg/fetcher"
)

// rawOutputCap bounds how much raw model output is stored with a failed
// enrichment event.
const rawOutputCap = 4000

// runProcess fetches and extracts a set of tabs concurrently. Each tab
// moves new/fetch_error -> fetch_pending -> parsed or fetch_error; a
// failed tab never blocks the rest of the run.
func runProcess(ctx context.Context, logger *slog.Logger, database *db.DB, registry *extract.Registry, f *fetcher.Fetcher, workers int, tabs []models.TabItem) []Result {
	if workers < 1 {
		workers = 1
	}

	logger.Info("starting process stage", "tab_count", len(tabs), "workers", workers)

	var wg sync.WaitGroup
	jobs := make(chan models.TabItem, len(tabs))
	results := make(chan Result, len(tabs))

	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go processWorker(ctx, w, logger, database, registry, f, &wg, jobs, results)
	}

	for _, tab := range tabs {
		jobs <- tab
	}
	close(jobs)

	wg.Wait()
	close(results)
	logger.Info("all process workers finished")

	all := make([]Result, 0, len(tabs))
	for r := range results {
		all = append(all, r)
	}
	return all
}

func processWorker(ctx context.Context, id int, logger *slog.Logger, database *db.DB, registry *extract.Registry, f *fetcher.Fetcher, wg *sync.WaitGroup, jobs <-chan models.TabItem, results chan<- Result) {
	defer wg.Done()
	for tab := range jobs {
		logger.Info("worker started tab", "worker_id", id, "tab_id", tab.ID, "url", tab.URL)
		results <- processTab(ctx, logger, database, registry, f, tab)
	}
}

// processTab runs one tab through fetch and extraction, recording every
// status change as it goes.
func processTab(ctx context.Context, logger *slog.Logger, database *db.DB, registry *extract.Registry, f *fetcher.Fetcher, tab models.TabItem) Result {
	result := Result{TabID: tab.ID, URL: tab.URL}

	if err := database.UpdateTabStatus(tab.ID, models.StatusFetchPending, nil); err != nil {
		logger.Error("failed to mark tab fetch_pending", "tab_id", tab.ID, "error", err)
		result.Error = err
		result.ErrorType = "status_error"
		return result
	}

	rawHTML, err := f.GetHTMLBytes(ctx, tab.URL)
	if err != nil {
		logger.Error("fetch failed", "tab_id", tab.ID, "url", tab.URL, "error", err)
		markFetchError(logger, database, tab.ID, "fetch_error", err)
		result.Error = err
		result.ErrorType = "fetch_error"
		result.Status = string(models.StatusFetchError)
		return result
	}

	content, err := registry.Extract(ctx, tab.URL, rawHTML)
	if err != nil {
		errType := "extract_error"
		if errors.Is(err, extract.ErrNoMatch) {
			errType = "no_extractor"
		}
		logger.Error("extraction failed", "tab_id", tab.ID, "url", tab.URL, "error", err)
		markFetchError(logger, database, tab.ID, errType, err)
		result.Error = err
		result.ErrorType = errType
		result.Status = string(models.StatusFetchError)
		return result
	}

	if err := database.SaveExtractedContent(tab.ID, content); err != nil {
		logger.Error("failed to save extracted content", "tab_id", tab.ID, "error", err)
		markFetchError(logger, database, tab.ID, "storage_error", err)
		result.Error = err
		result.ErrorType = "storage_error"
		result.Status = string(models.StatusFetchError)
		return result
	}

	details := map[string]any{
		"site_kind":  content.SiteKind,
		"word_count": content.WordCount,
	}
	if err := database.UpdateTabStatus(tab.ID, models.StatusParsed, details); err != nil {
		logger.Error("failed to mark tab parsed", "tab_id", tab.ID, "error", err)
		result.Error = err
		result.ErrorType = "status_error"
		return result
	}

	logger.Info("tab parsed", "tab_id", tab.ID, "url", tab.URL, "site_kind", content.SiteKind)
	result.Status = string(models.StatusParsed)
	result.SiteKind = content.SiteKind
	return result
}

// markFetchError moves a tab to fetch_error; a failure here is logged but
// not propagated, the original error matters more.
func markFetchError(logger *slog.Logger, database *db.DB, tabID int64, errType string, cause error) {
	details := map[string]any{
		"error_type": errType,
		"error":      cause.Error(),
	}
	if err := database.UpdateTabStatus(tabID, models.StatusFetchError, details); err != nil {
		logger.Error("failed to mark tab fetch_error", "tab_id", tabID, "error", err)
	}
}

// runEnrich enriches a set of parsed tabs with a bounded level of
// concurrency. Single-flight on the tab id guarantees at most one
// in-flight enrichment per tab even if it is queued twice.
func runEnrich(ctx context.Context, logger *slog.Logger, database *db.DB, engine *enrich.Engine, concurrency int, tabs []models.TabItem) []Result {
	if concurrency < 1 {
		concurrency = 1
	}

	logger.Info("starting enrich stage", "tab_count", len(tabs), "concurrency", concurrency)

	var sf singleflight.Group
	results := make([]Result, len(tabs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, tab := range tabs {
		i, tab := i, tab
		g.Go(func() error {
			key := strconv.FormatInt(tab.ID, 10)
			v, err, _ := sf.Do(key, func() (interface{}, error) {
				return enrichTab(ctx, logger, database, engine, tab), nil
			})
			if err != nil {
				return err
			}
			results[i] = v.(Result)
			return nil
		})
	}
	// Workers report failures through their Result, not the group error.
	_ = g.Wait()

	logger.Info("all enrich workers finished")
	return results
}

// enrichTab runs one tab through the enrichment loop, recording status
// changes and preserving raw model output on exhaustion.
func enrichTab(ctx context.Context, logger *slog.Logger, database *db.DB, engine *enrich.Engine, tab models.TabItem) Result {
	result := Result{TabID: tab.ID, URL: tab.URL}

	if err := database.UpdateTabStatus(tab.ID, models.StatusLLMPending, nil); err != nil {
		logger.Error("failed to mark tab llm_pending", "tab_id", tab.ID, "error", err)
		result.Error = err
		result.ErrorType = "status_error"
		return result
	}

	content, err := database.GetExtractedContent(tab.ID)
	if err == nil && content == nil {
		err = fmt.Errorf("tab %d has no extracted content", tab.ID)
	}
	if err != nil {
		logger.Error("failed to load extracted content", "tab_id", tab.ID, "error", err)
		markLLMError(logger, database, tab.ID, err, "")
		result.Error = err
		result.ErrorType = "llm_error"
		result.Status = string(models.StatusLLMError)
		return result
	}

	enrichment, err := engine.Enrich(ctx, &tab, content)
	if err != nil {
		var exhausted *enrich.ExhaustedError
		rawOutput := ""
		if errors.As(err, &exhausted) {
			rawOutput = exhausted.RawOutput
		}
		logger.Error("enrichment failed", "tab_id", tab.ID, "url", tab.URL, "error", err)
		markLLMError(logger, database, tab.ID, err, rawOutput)
		result.Error = err
		result.ErrorType = "llm_error"
		result.Status = string(models.StatusLLMError)
		return result
	}

	if err := database.SaveEnrichment(tab.ID, enrichment); err != nil {
		logger.Error("failed to save enrichment", "tab_id", tab.ID, "error", err)
		markLLMError(logger, database, tab.ID, err, "")
		result.Error = err
		result.ErrorType = "storage_error"
		result.Status = string(models.StatusLLMError)
		return result
	}

	details := map[string]any{
		"model":        enrichment.ModelName,
		"content_type": enrichment.ContentType,
	}
	if err := database.UpdateTabStatus(tab.ID, models.StatusEnriched, details); err != nil {
		logger.Error("failed to mark tab enriched", "tab_id", tab.ID, "error", err)
		result.Error = err
		result.ErrorType = "status_error"
		return result
	}

	logger.Info("tab enriched", "tab_id", tab.ID, "url", tab.URL, "content_type", enrichment.ContentType)
	result.Status = string(models.StatusEnriched)
	result.SiteKind = content.SiteKind
	return result
}

// markLLMError moves a tab to llm_error, keeping the last raw model
// output in the event details for postmortem inspection.
func markLLMError(logger *slog.Logger, database *db.DB, tabID int64, cause error, rawOutput string) {
	details := map[string]any{
		"error": cause.Error(),
	}
	if rawOutput != "" {
		if len(rawOutput) > rawOutputCap {
			// Cut on a rune boundary so the stored output stays valid UTF-8.
			cut := rawOutputCap
			for cut > 0 && !utf8.RuneStart(rawOutput[cut]) {
				cut--
			}
			rawOutput = rawOutput[:cut]
		}
		details["raw_output"] = rawOutput
	}
	if err := database.UpdateTabStatus(tabID, models.StatusLLMError, details); err != nil {
		logger.Error("failed to mark tab llm_error", "tab_id", tabID, "error", err)
	}
}
