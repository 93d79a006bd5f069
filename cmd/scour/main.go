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
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/scour"
	"github.com/poiesic/scour/config"
	"github.com/poiesic/scour/core"
)

// logFile is the file opened by --log-file, closed when the app exits.
var logFile io.Closer

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "scour",
		Usage: "Queue, run and search content cleaning tasks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Also write JSON logs to this file",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				EnvVars: []string{"SCOUR_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides config)",
				EnvVars: []string{"SCOUR_DB"},
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Embedding provider (ollama, openai)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Embedding service host URL",
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key for OpenAI-compatible services",
				EnvVars: []string{"SCOUR_API_KEY"},
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Default embedding model",
			},
		},
		Before: setupLogger,
		After:  closeLogger,
		Commands: []*cli.Command{
			tasksCommand(),
			{
				Name:   "run",
				Usage:  "Process every pending task in priority order",
				Action: runCommand,
			},
			{
				Name:   "index",
				Usage:  "Re-index the output of every completed text_cleanup task",
				Action: indexCommand,
			},
			vectorsCommand(),
			{
				Name:      "search",
				Usage:     "Find stored chunks similar to a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results (default from config)",
					},
					&cli.Float64Flag{
						Name:    "threshold",
						Aliases: []string{"t"},
						Usage:   "Minimum similarity score in [0,1] (default from config)",
					},
					&cli.StringFlag{
						Name:  "search-model",
						Usage: "Embedding model to search with",
					},
				},
			},
			{
				Name:      "embed",
				Usage:     "Print the embedding of a text",
				ArgsUsage: "<text>",
				Action:    embedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "embed-model",
						Usage: "Embedding model to use",
					},
				},
			},
			{
				Name:   "models",
				Usage:  "List the models offered by the embedding service",
				Action: modelsCommand,
			},
			{
				Name:   "ping",
				Usage:  "Check that the embedding service answers",
				Action: pingCommand,
			},
		},
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

	opts := &slog.HandlerOptions{Level: level}
	stderrHandler := slog.NewTextHandler(os.Stderr, opts)

	path := c.String("log-file")
	if path == "" {
		slog.SetDefault(slog.New(stderrHandler))
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logFile = f
	fileHandler := slog.NewJSONHandler(f, opts)
	slog.SetDefault(slog.New(slogmulti.Fanout(stderrHandler, fileHandler)))
	return nil
}

func closeLogger(_ *cli.Context) error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// loadConfig reads --config when given and applies the global overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.IsSet("provider") {
		cfg.AI.Provider = c.String("provider")
	}
	if c.IsSet("host") {
		cfg.AI.Host = c.String("host")
	}
	if c.IsSet("api-key") {
		cfg.AI.APIKey = c.String("api-key")
	}
	if c.IsSet("model") {
		cfg.AI.DefaultModel = c.String("model")
	}
	return cfg, nil
}

func openDatabase(c *cli.Context) (*scour.Database, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	db, err := scour.NewDatabase(c.String("db"), scour.WithConfig(cfg), scour.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func idArg(c *cli.Context) (core.ID, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one id argument, got %d", c.NArg())
	}
	id, err := core.ParseID(c.Args().First())
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", c.Args().First(), err)
	}
	return id, nil
}
