// Package ingest holds the CLI actions for importing bookmark exports.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"tabtriage/internal/common"
	"tabtriage/models"
	"tabtriage/pkg/bookmarks"
	"tabtriage/pkg/db"
)

// IngestAction parses a bookmarks export and writes its session tabs for
// the selected user, printing the dedup outcome as JSON.
func IngestAction(c *cli.Context) error {
	logger := common.NewLogger(c.Bool("quiet"))

	if c.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one bookmarks file")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  tabtriage ingest bookmarks.html")
		fmt.Fprintln(os.Stderr, "  tabtriage ingest --user <uuid> bookmarks.html")
		os.Exit(1)
	}
	path := c.Args().First()

	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	if c.IsSet("batch-size") {
		cfg.Ingest.BatchSize = c.Int("batch-size")
	}

	userID, err := common.ResolveUserID(c.String("user"), cfg)
	if err != nil {
		logger.Error("failed to resolve user", "error", err)
		os.Exit(2)
	}

	candidates, err := bookmarks.ParseFile(path)
	if err != nil {
		logger.Error("failed to parse bookmarks file", "file", path, "error", err)
		os.Exit(2)
	}
	if len(candidates) == 0 {
		fmt.Println("No session bookmarks found in export")
		return nil
	}
	logger.Info("parsed bookmarks export", "file", path, "candidates", len(candidates))

	if c.Bool("dry-run") {
		byLabel := map[string]int{}
		for _, cand := range candidates {
			byLabel[cand.WindowLabel]++
		}
		data, err := json.MarshalIndent(map[string]any{
			"dry_run":    true,
			"candidates": len(candidates),
			"by_window":  byLabel,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal dry-run report: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(2)
	}
	defer database.Close()

	result, err := database.Ingest(candidates, userID, cfg.Ingest.BatchSize)
	if err != nil {
		logger.Error("ingest run failed", "error", err)
		os.Exit(2)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ingest result: %w", err)
	}
	fmt.Println(string(data))

	if result.Errors > 0 {
		os.Exit(1)
	}
	return nil
}

// StatsAction inspects a bookmarks export without touching the database.
func StatsAction(c *cli.Context) error {
	logger := common.NewLogger(c.Bool("quiet"))

	if c.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one bookmarks file")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  tabtriage stats bookmarks.html")
		os.Exit(1)
	}
	path := c.Args().First()

	f, err := os.Open(path)
	if err != nil {
		logger.Error("failed to open bookmarks file", "file", path, "error", err)
		os.Exit(2)
	}
	defer f.Close()

	stats, err := bookmarks.Stats(f)
	if err != nil {
		logger.Error("failed to parse bookmarks file", "file", path, "error", err)
		os.Exit(2)
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
