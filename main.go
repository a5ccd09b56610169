package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"tabtriage/internal/ingest"
	"tabtriage/internal/pipeline"
)

func main() {
	app := &cli.App{
		Name:  "tabtriage",
		Usage: "import, process, and enrich saved browser tabs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to the YAML config file",
			},
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "user id (UUID); defaults to default_user_id from config",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "only log errors",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "import a bookmarks HTML export",
				ArgsUsage: "<bookmarks.html>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "rows per ingest transaction",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "parse and report without writing to the database",
					},
				},
				Action: ingest.IngestAction,
			},
			{
				Name:      "stats",
				Usage:     "inspect a bookmarks export without ingesting it",
				ArgsUsage: "<bookmarks.html>",
				Action:    ingest.StatsAction,
			},
			{
				Name:  "process",
				Usage: "fetch and extract content for waiting tabs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "concurrent fetch workers",
					},
					&cli.IntFlag{
						Name:  "timeout",
						Usage: "per-request fetch timeout in seconds",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "process at most this many tabs",
					},
					&cli.BoolFlag{
						Name:  "retry-only",
						Usage: "only retry tabs in fetch_error",
					},
				},
				Action: pipeline.ProcessAction,
			},
			{
				Name:  "enrich",
				Usage: "run LLM enrichment over parsed tabs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "concurrent enrichment calls",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "enrichment attempts per tab",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "enrich at most this many tabs",
					},
					&cli.BoolFlag{
						Name:  "retry-only",
						Usage: "only retry tabs in llm_error",
					},
				},
				Action: pipeline.EnrichAction,
			},
			{
				Name:  "summary",
				Usage: "show tab counts by status",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "events",
						Usage: "also show this many recent audit events",
					},
				},
				Action: pipeline.SummaryAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
