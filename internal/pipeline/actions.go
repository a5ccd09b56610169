package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"tabtriage/internal/common"
	"tabtriage/models"
	"tabtriage/pkg/db"
	"tabtriage/pkg/enrich"
	"tabtriage/pkg/extract"
	"tabtriage/pkg/fetcher"
)

// ProcessAction fetches and extracts every tab waiting in new or
// fetch_error for the selected user.
func ProcessAction(c *cli.Context) error {
	logger := common.NewLogger(c.Bool("quiet"))
	startTime := time.Now()

	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	if c.IsSet("workers") {
		cfg.Fetch.Workers = c.Int("workers")
	}
	if c.IsSet("timeout") {
		cfg.Fetch.TimeoutSeconds = c.Int("timeout")
	}

	userID, err := common.ResolveUserID(c.String("user"), cfg)
	if err != nil {
		logger.Error("failed to resolve user", "error", err)
		os.Exit(2)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(2)
	}
	defer database.Close()

	statuses := []models.TabStatus{models.StatusNew, models.StatusFetchError}
	if c.Bool("retry-only") {
		statuses = []models.TabStatus{models.StatusFetchError}
	}
	tabs, err := database.ListTabsByStatus(userID, statuses...)
	if err != nil {
		logger.Error("failed to list tabs", "error", err)
		os.Exit(2)
	}
	if limit := c.Int("limit"); limit > 0 && len(tabs) > limit {
		tabs = tabs[:limit]
	}
	if len(tabs) == 0 {
		fmt.Println("No tabs waiting for processing")
		return nil
	}

	registry := extract.DefaultRegistry(cfg)
	f := fetcher.NewFetcher(cfg.FetchTimeout())

	results := runProcess(c.Context, logger, database, registry, f, cfg.Fetch.Workers, tabs)
	return printReport(results, time.Since(startTime).Seconds())
}

// EnrichAction runs LLM enrichment over every tab waiting in parsed or
// llm_error for the selected user.
func EnrichAction(c *cli.Context) error {
	logger := common.NewLogger(c.Bool("quiet"))
	startTime := time.Now()

	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	if c.IsSet("concurrency") {
		cfg.LLM.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("max-retries") {
		cfg.LLM.MaxRetries = c.Int("max-retries")
	}

	userID, err := common.ResolveUserID(c.String("user"), cfg)
	if err != nil {
		logger.Error("failed to resolve user", "error", err)
		os.Exit(2)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(2)
	}
	defer database.Close()

	statuses := []models.TabStatus{models.StatusParsed, models.StatusLLMError}
	if c.Bool("retry-only") {
		statuses = []models.TabStatus{models.StatusLLMError}
	}
	tabs, err := database.ListTabsByStatus(userID, statuses...)
	if err != nil {
		logger.Error("failed to list tabs", "error", err)
		os.Exit(2)
	}
	if limit := c.Int("limit"); limit > 0 && len(tabs) > limit {
		tabs = tabs[:limit]
	}
	if len(tabs) == 0 {
		fmt.Println("No tabs waiting for enrichment")
		return nil
	}

	predictor, err := enrich.NewGeminiPredictor(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to create predictor", "error", err)
		os.Exit(2)
	}
	engine := enrich.NewEngine(predictor, cfg, logger)

	results := runEnrich(c.Context, logger, database, engine, cfg.LLM.Concurrency, tabs)
	return printReport(results, time.Since(startTime).Seconds())
}

// SummaryAction prints a user's tab counts by status plus the most recent
// audit events.
func SummaryAction(c *cli.Context) error {
	logger := common.NewLogger(c.Bool("quiet"))

	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	userID, err := common.ResolveUserID(c.String("user"), cfg)
	if err != nil {
		logger.Error("failed to resolve user", "error", err)
		os.Exit(2)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(2)
	}
	defer database.Close()

	summary, err := database.StatusSummary(userID)
	if err != nil {
		logger.Error("failed to summarize statuses", "error", err)
		os.Exit(2)
	}
	total, err := database.CountLiveTabs(userID)
	if err != nil {
		logger.Error("failed to count tabs", "error", err)
		os.Exit(2)
	}

	output := map[string]any{
		"user_id":    userID,
		"total_tabs": total,
		"by_status":  summary,
	}
	if n := c.Int("events"); n > 0 {
		events, err := database.ListEvents(userID, n)
		if err != nil {
			logger.Error("failed to list events", "error", err)
			os.Exit(2)
		}
		output["recent_events"] = events
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// printReport emits the run report on stdout and converts failures to
// exit codes: 2 when every tab failed, 1 when some did.
func printReport(results []Result, elapsed float64) error {
	report := buildReport(results, elapsed)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	fmt.Println(string(data))

	if report.Stats.Failed == report.Stats.TotalTabs && report.Stats.TotalTabs > 0 {
		os.Exit(2)
	}
	if report.Stats.Failed > 0 {
		os.Exit(1)
	}
	return nil
}
