package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/scour/core"
	"github.com/poiesic/scour/events"
)

// eventBuffer bounds the progress events queued for the terminal.
const eventBuffer = 64

func runCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	attempted, err := followProgress(c.Context, c.App.Writer, db.Events(), events.CleaningProgress, db.RunPending)
	if err != nil {
		return fmt.Errorf("batch run finished with errors: %w", err)
	}
	fmt.Fprintf(c.App.ErrWriter, "processed %d tasks\n", attempted)
	return nil
}

func indexCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	attempted, err := followProgress(c.Context, c.App.Writer, db.Events(), events.IndexingProgress, db.ReindexCompleted)
	if err != nil {
		return fmt.Errorf("indexing run finished with errors: %w", err)
	}
	fmt.Fprintf(c.App.ErrWriter, "indexed %d tasks\n", attempted)
	return nil
}

// followProgress runs fn while printing every event published on channel as
// one JSON line.
func followProgress(ctx context.Context, w io.Writer, bus *events.Bus, channel string, fn func(context.Context) (int, error)) (int, error) {
	sub := bus.Subscribe(eventBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		enc := json.NewEncoder(w)
		events.Drain(ctx, sub, func(ev core.ProgressEvent) {
			if ev.Channel == channel {
				enc.Encode(ev)
			}
		})
	}()

	attempted, err := fn(ctx)
	sub.Close()
	<-done
	return attempted, err
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("search query is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := db.Config()
	limit := cfg.Search.DefaultLimit
	if c.IsSet("limit") {
		limit = c.Int("limit")
	}
	threshold := cfg.Search.DefaultThreshold
	if c.IsSet("threshold") {
		threshold = float32(c.Float64("threshold"))
	}

	results, err := db.Search(c.Context, query, limit, threshold, c.String("search-model"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, results)
}

func embedCommand(c *cli.Context) error {
	text := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text to embed is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	model := c.String("embed-model")
	if model == "" {
		model = db.Config().AI.DefaultModel
	}
	vector, err := db.Embed(c.Context, text, model)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, map[string]any{
		"model":     model,
		"dimension": len(vector),
		"embedding": vector,
	})
}

func modelsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	models, err := db.Models(c.Context)
	if err != nil {
		return err
	}
	for _, m := range models {
		fmt.Fprintln(c.App.Writer, m)
	}
	return nil
}

func pingCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	host := db.Config().AI.Host
	if !db.Ping(c.Context) {
		return cli.Exit(fmt.Sprintf("embedding service at %s is unreachable", host), 1)
	}
	fmt.Fprintf(c.App.Writer, "embedding service at %s is reachable\n", host)
	return nil
}
