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
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/qaindex"
	"github.com/poiesic/qaindex/core"
	"github.com/poiesic/qaindex/index"
	"github.com/urfave/cli/v2"
)

const resultSeparator = "----------"

// newEngine is replaced in tests.
var newEngine = func(cfg *qaindex.Config) (*qaindex.Engine, error) {
	return qaindex.NewEngine(cfg, qaindex.WithLogger(slog.Default()))
}

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	versionFlag := &cli.IntFlag{
		Name:     "version",
		Aliases:  []string{"v"},
		Usage:    "Dataset version to index (reads dataset_v{N}.json)",
		Required: true,
	}
	limitFlag := &cli.IntFlag{
		Name:    "limit",
		Aliases: []string{"k"},
		Usage:   "Maximum number of results",
		Value:   3,
	}
	minScoreFlag := &cli.Float64Flag{
		Name:  "min-score",
		Usage: "Drop results scoring below this cosine similarity",
	}
	buildFlags := []cli.Flag{
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Number of questions encoded per model call",
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum attempts for a failing batch",
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
		},
		&cli.BoolFlag{
			Name:  "progress",
			Usage: "Report encoding progress on stderr",
		},
	}

	return &cli.App{
		Name:  "qaindex",
		Usage: "Semantic index over question/answer datasets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"QAINDEX_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file",
				EnvVars: []string{"QAINDEX_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "data",
				Usage:   "Directory holding dataset_v{N}.json files",
				EnvVars: []string{"QAINDEX_DATA"},
			},
			&cli.StringFlag{
				Name:    "index",
				Usage:   "Index directory",
				EnvVars: []string{"QAINDEX_INDEX"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				EnvVars: []string{"QAINDEX_EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				EnvVars: []string{"QAINDEX_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key for the embedding service",
				EnvVars: []string{"QAINDEX_API_KEY", "OPENAI_API_KEY"},
			},
			&cli.IntFlag{
				Name:    "dimension",
				Usage:   "Embedding dimension (0 learns it from the service)",
				EnvVars: []string{"QAINDEX_DIMENSION"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Build and persist the index for a dataset version",
				Action: indexCommand,
				Flags:  append([]cli.Flag{versionFlag}, buildFlags...),
			},
			{
				Name:      "query",
				Usage:     "Query the persisted index",
				ArgsUsage: "TEXT...",
				Action:    queryCommand,
				Flags:     []cli.Flag{limitFlag, minScoreFlag},
			},
			{
				Name:      "ask",
				Usage:     "Build the index if needed, then query it",
				ArgsUsage: "TEXT...",
				Action:    askCommand,
				Flags:     append([]cli.Flag{versionFlag, limitFlag, minScoreFlag}, buildFlags...),
			},
			{
				Name:   "diagnostics",
				Usage:  "Print runtime information",
				Action: diagnosticsCommand,
			},
		},
	}
}

// resolveConfig layers defaults, the config file, the environment and flags.
func resolveConfig(c *cli.Context) (*qaindex.Config, error) {
	fc, err := loadFileConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	fc.applyFlags(c)

	if c.IsSet("batch-size") {
		fc.Build.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("max-retries") {
		fc.Build.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		fc.Build.RetryDelay = c.Duration("retry-delay")
	}
	if c.IsSet("min-score") {
		score := c.Float64("min-score")
		fc.Search.MinScore = &score
	}

	cfg, err := fc.engineConfig()
	if err != nil {
		return nil, err
	}
	if c.Bool("progress") {
		cfg.Build = append(cfg.Build, index.WithProgress(c.App.ErrWriter, index.DefaultReportInterval))
	}
	return cfg, nil
}

func openEngine(c *cli.Context) (*qaindex.Engine, error) {
	cfg, err := resolveConfig(c)
	if err != nil {
		return nil, err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return engine, nil
}

func indexCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	report, err := engine.IndexVersion(c.Context, c.Int("version"))
	printReport(c.App.ErrWriter, report)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	return nil
}

func queryCommand(c *cli.Context) error {
	text, err := queryText(c)
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	start := time.Now()
	results, err := engine.Query(c.Context, text, c.Int("limit"))
	if err != nil {
		return err
	}
	slog.Debug("query finished", "results", len(results), "elapsed", time.Since(start))

	printResults(c.App.Writer, results)
	return nil
}

func askCommand(c *cli.Context) error {
	text, err := queryText(c)
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	report, err := engine.EnsureIndex(c.Context, c.Int("version"))
	if report != nil {
		printReport(c.App.ErrWriter, report)
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	results, err := engine.Query(c.Context, text, c.Int("limit"))
	if err != nil {
		return err
	}
	printResults(c.App.Writer, results)
	return nil
}

func diagnosticsCommand(c *cli.Context) error {
	w := c.App.Writer
	fmt.Fprintf(w, "go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "cpus: %d\n", runtime.NumCPU())
	fmt.Fprintln(w, "accelerator available: false")
	return nil
}

func queryText(c *cli.Context) (string, error) {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return "", fmt.Errorf("query text is required")
	}
	return text, nil
}

func printReport(w io.Writer, report *qaindex.BuildReport) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "Dataset: %s\n", report.Dataset)
	fmt.Fprintf(w, "Records: %d\n", report.Records)
	fmt.Fprintf(w, "Indexed: %d\n", report.Indexed)
}

func printResults(w io.Writer, results []*core.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No similar questions found in the index.")
		return
	}
	for _, r := range results {
		fmt.Fprintln(w, r.String())
		fmt.Fprintln(w, resultSeparator)
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
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

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
