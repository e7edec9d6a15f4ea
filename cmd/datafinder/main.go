// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/datafinder"
	"github.com/poiesic/datafinder/cdc"
	"github.com/poiesic/datafinder/config"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "datafinder",
		Usage: "Find the table, owner and domain that answer a data request",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"DATAFINDER_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides config)",
			},
			&cli.StringFlag{
				Name:  "catalog",
				Usage: "Path to YAML catalog snapshot (overrides config)",
			},
			&cli.StringFlag{
				Name:  "lexicon",
				Usage: "Path to learned lexicon file (overrides config)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "Apply a catalog snapshot to the index",
				Action: syncCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report changes without applying them",
					},
					&cli.BoolFlag{
						Name:  "no-deletes",
						Usage: "Keep indexed tables missing from the snapshot",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Print progress while applying",
						Value: true,
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed every indexed table, e.g. after changing the embedding model",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of tables to fetch in each batch",
						Value: cdc.DefaultBatchSize,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Run a direct hybrid search",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "domain",
						Usage: "Restrict results to a domain",
					},
					&cli.IntFlag{
						Name:  "max",
						Usage: "Maximum number of results",
						Value: 10,
					},
				},
			},
			{
				Name:      "suggest",
				Usage:     "Group search results by domain",
				ArgsUsage: "<query>",
				Action:    suggestCommand,
			},
			{
				Name:      "find",
				Usage:     "Resolve a data request to a domain, owner and table",
				ArgsUsage: "<query>",
				Action:    findCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "ranking",
						Usage: "Return ranked lists instead of a single answer",
					},
					&cli.StringFlag{
						Name:  "variable",
						Usage: "Name of the variable the data will feed",
					},
					&cli.StringFlag{
						Name:  "variable-type",
						Usage: "Type of the variable the data will feed",
					},
				},
			},
			{
				Name:   "feedback",
				Usage:  "Approve, reject or correct the answer of a previous find",
				Action: feedbackCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "request-id",
						Usage:    "Request id printed by find",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "outcome",
						Usage:    "approved, rejected or modified",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "justification",
						Usage: "Free-text justification",
					},
					&cli.Uint64Flag{
						Name:  "actual-table",
						Usage: "Id of the table that actually answers the request",
					},
				},
			},
			{
				Name:   "insights",
				Usage:  "Summarize the decision log",
				Action: insightsCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show index, feedback and lexicon statistics",
				Action: statsCommand,
			},
			{
				Name:   "clear",
				Usage:  "Remove every indexed table",
				Action: clearCommand,
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	switch levelStr := strings.ToLower(c.String("log-level")); levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig reads the configuration and applies command line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("catalog") {
		cfg.CatalogPath = c.String("catalog")
	}
	if c.IsSet("lexicon") {
		cfg.LexiconPath = c.String("lexicon")
	}
	return cfg, nil
}

func openFinder(ctx context.Context, c *cli.Context, opts ...datafinder.Option) (*datafinder.Finder, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	finder, err := datafinder.Open(ctx, cfg, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open datafinder: %w", err)
	}
	return finder, cfg, nil
}
