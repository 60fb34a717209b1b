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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/poiesic/recall"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/config"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/metrics"
	"github.com/poiesic/recall/pipeline"
	"github.com/poiesic/recall/reembed"
)

// deps holds the constructors commands use to reach external services.
type deps struct {
	open        func(cfg *config.Config, opts ...recall.Option) (*recall.Engine, error)
	newEmbedder func(cfg *ai.Config) (ai.Embedder, error)
}

func main() {
	app := newApp(deps{open: recall.Open, newEmbedder: openai.NewEmbedder})
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(d deps) *cli.App {
	var logFile io.Closer

	return &cli.App{
		Name:  "recall",
		Usage: "Question answering over indexed documents with multi-stage retrieval optimisation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to a rotating file instead of stderr",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file if it exists",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   "recall.yaml",
			},
		},
		Before: func(c *cli.Context) error {
			if err := loadEnv(c.String("env-file")); err != nil {
				return err
			}
			closer, err := setupLogger(c.String("log-level"), c.String("log-file"), c.App.ErrWriter)
			logFile = closer
			return err
		},
		After: func(*cli.Context) error {
			if logFile != nil {
				return logFile.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a question from the indexed documents",
				ArgsUsage: "<question...>",
				Action:    askCommand(d),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "user",
						Aliases: []string{"u"},
						Usage:   "User ID for conversation memory",
					},
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of passages to retrieve (0 uses the configured default)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full result as JSON",
					},
					&cli.StringFlag{
						Name:  "metrics-file",
						Usage: "Write run metrics in Prometheus text format to this file",
					},
				},
			},
			{
				Name:   "index",
				Usage:  "Embed and store passages from a JSONL file",
				Action: indexCommand(d),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    `JSONL file with one {"content":..., "metadata":{...}} object per line`,
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of passages embedded per request",
						Value: ingestion.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of concurrent embedding batches (0 uses the default)",
					},
				},
			},
			{
				Name:  "memory",
				Usage: "Inspect and manage conversation memory",
				Subcommands: []*cli.Command{
					{
						Name:   "stats",
						Usage:  "Show memory counts",
						Action: memoryStatsCommand(d),
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Limit to one user"},
						},
					},
					{
						Name:   "clear",
						Usage:  "Delete memories",
						Action: memoryClearCommand(d),
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Limit to one user"},
							&cli.StringFlag{Name: "tier", Usage: "Tier to clear (session, user, all)", Value: string(core.TierAll)},
						},
					},
					{
						Name:   "export",
						Usage:  "Write memories to session_memory.json and user_memory.json",
						Action: memoryExportCommand(d),
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output directory", Required: true},
						},
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all stored passages with a new embedding model",
				Action: reembedCommand(d),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of passages to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N passages",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:  "config",
				Usage: "Manage the configuration file",
				Subcommands: []*cli.Command{
					{
						Name:   "init",
						Usage:  "Write the default configuration",
						Action: configInitCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file", Value: "recall.yaml"},
							&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"},
						},
					},
				},
			},
		},
	}
}

func openEngine(c *cli.Context, d deps, opts ...recall.Option) (*recall.Engine, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	engine, err := d.open(cfg, append(opts, recall.WithLogger(slog.Default()))...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

type askOutput struct {
	*pipeline.Result
	OptimizationStats map[string]any `json:"optimization_stats"`
}

func askCommand(d deps) cli.ActionFunc {
	return func(c *cli.Context) error {
		question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
		if question == "" {
			return fmt.Errorf("a question is required")
		}

		registry := prometheus.NewRegistry()
		collector, err := metrics.NewCollector(registry)
		if err != nil {
			return err
		}

		engine, err := openEngine(c, d, recall.WithMonitor(collector))
		if err != nil {
			return err
		}
		defer engine.Close()

		res, err := engine.Process(c.Context, pipeline.Request{
			Query:  question,
			UserID: c.String("user"),
			K:      c.Int("k"),
		})
		if err != nil {
			return err
		}

		if path := c.String("metrics-file"); path != "" {
			if err := prometheus.WriteToTextfile(path, registry); err != nil {
				return fmt.Errorf("failed to write metrics: %w", err)
			}
		}

		w := c.App.Writer
		if c.Bool("json") {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(askOutput{Result: res, OptimizationStats: res.Stats.Map()})
		}

		fmt.Fprintln(w, pipeline.FormatSources(res.Answer, res.Sources))
		fmt.Fprintln(w)

		stats := res.Stats.Map()
		fmt.Fprintf(w, "Candidates: %d retrieved, %d reranked, %d filtered, %d cited\n",
			stats["initial_count"], stats["reranked_count"], stats["filtered_count"], stats["final_count"])
		fmt.Fprintf(w, "Cost: %.6f  Time: %s  Memory: %t\n", res.Cost, res.ProcessingTime.Round(time.Millisecond), res.MemoryUsed)
		for _, f := range res.Degraded {
			fmt.Fprintf(w, "Degraded stage %s: %s\n", f.Stage, f.Reason)
		}
		return nil
	}
}

func indexCommand(d deps) cli.ActionFunc {
	return func(c *cli.Context) error {
		f, err := os.Open(c.String("file"))
		if err != nil {
			return err
		}
		defer f.Close()

		passages, err := ingestion.ReadPassages(f)
		if err != nil {
			return fmt.Errorf("failed to read passages: %w", err)
		}

		engine, err := openEngine(c, d)
		if err != nil {
			return err
		}
		defer engine.Close()

		opts := []ingestion.Option{ingestion.WithBatchSize(c.Int("batch-size")), ingestion.WithLogger(slog.Default())}
		if size := c.Int("pool-size"); size > 0 {
			opts = append(opts, ingestion.WithPoolSize(size))
		}

		n, err := engine.Index(c.Context, passages, opts...)
		if err != nil {
			return fmt.Errorf("indexing failed after %d passages: %w", n, err)
		}
		fmt.Fprintf(c.App.Writer, "Indexed %d passages\n", n)
		return nil
	}
}

func memoryStatsCommand(d deps) cli.ActionFunc {
	return func(c *cli.Context) error {
		engine, err := openEngine(c, d)
		if err != nil {
			return err
		}
		defer engine.Close()

		st, err := engine.Memory().Stats(c.Context, c.String("user"))
		if err != nil {
			return err
		}

		w := c.App.Writer
		if st.UserID != "" {
			fmt.Fprintf(w, "User: %s\n", st.UserID)
		} else {
			fmt.Fprintf(w, "Users: %d\n", st.Users)
		}
		fmt.Fprintf(w, "Session memories: %d\n", st.SessionCount)
		fmt.Fprintf(w, "Long-term memories: %d\n", st.LongTermCount)
		fmt.Fprintf(w, "Total: %d\n", st.Total)
		return nil
	}
}

func memoryClearCommand(d deps) cli.ActionFunc {
	return func(c *cli.Context) error {
		tier, err := core.ParseTier(c.String("tier"))
		if err != nil {
			return err
		}

		engine, err := openEngine(c, d)
		if err != nil {
			return err
		}
		defer engine.Close()

		user := c.String("user")
		if err := engine.Memory().Clear(c.Context, user, tier); err != nil {
			return err
		}
		if user == "" {
			user = "all users"
		}
		fmt.Fprintf(c.App.Writer, "Cleared %s memories for %s\n", tier, user)
		return nil
	}
}

func memoryExportCommand(d deps) cli.ActionFunc {
	return func(c *cli.Context) error {
		engine, err := openEngine(c, d)
		if err != nil {
			return err
		}
		defer engine.Close()

		n, err := engine.ExportMemory(c.Context, c.String("out"))
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Exported %d memories to %s\n", n, c.String("out"))
		return nil
	}
}

func reembedCommand(d deps) cli.ActionFunc {
	return func(c *cli.Context) error {
		reembedConfig := &reembed.Config{
			BatchSize:      c.Int("batch-size"),
			ReportInterval: c.Int("report-interval"),
			MaxRetries:     c.Int("max-retries"),
			RetryDelay:     c.Duration("retry-delay"),
		}
		if reembedConfig.BatchSize <= 0 {
			return fmt.Errorf("batch-size must be greater than 0")
		}
		if reembedConfig.ReportInterval <= 0 {
			return fmt.Errorf("report-interval must be greater than 0")
		}
		if reembedConfig.MaxRetries <= 0 {
			return fmt.Errorf("max-retries must be greater than 0")
		}

		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(c.String("embedding-model")),
			ai.WithAPIKey(os.Getenv(config.APIKeyEnv)),
		)
		if err := aiConfig.Validate(); err != nil {
			return fmt.Errorf("invalid AI configuration: %w", err)
		}
		embedder, err := d.newEmbedder(aiConfig)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}

		engine, err := openEngine(c, d)
		if err != nil {
			return err
		}
		defer engine.Close()

		progress := c.App.ErrWriter
		fmt.Fprintf(progress, "Embedding host: %s\n", aiConfig.EmbeddingHost)
		fmt.Fprintf(progress, "Embedding model: %s\n", aiConfig.EmbeddingModel)
		fmt.Fprintln(progress)

		if _, err := engine.Reembed(c.Context, embedder, reembedConfig, progress); err != nil {
			return fmt.Errorf("reembedding failed: %w", err)
		}
		return nil
	}
}

func configInitCommand(c *cli.Context) error {
	out := c.String("out")
	if _, err := os.Stat(out); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists, use --force to overwrite", out)
	}
	if err := config.Save(out, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Wrote default configuration to %s\n", out)
	return nil
}

func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setupLogger installs the default logger. The returned closer is non-nil
// when logs go to a file.
func setupLogger(levelName, file string, stderr io.Writer) (io.Closer, error) {
	var level slog.Level
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelName)
	}

	var (
		out    io.Writer = stderr
		closer io.Closer
	)
	if file != "" {
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		out, closer = rotator, rotator
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return closer, nil
}
