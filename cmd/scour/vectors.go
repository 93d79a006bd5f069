package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/scour/core"
)

func vectorsCommand() *cli.Command {
	return &cli.Command{
		Name:  "vectors",
		Usage: "Inspect and manage the vector index",
		Subcommands: []*cli.Command{
			{
				Name:   "insert",
				Usage:  "Store a precomputed embedding",
				Action: insertVectorCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "content-id",
						Usage:    "ID of the embedded content",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "content-type",
						Usage: "Kind of content",
						Value: core.ContentTypeCleanedFile,
					},
					&cli.StringFlag{
						Name:     "vector-model",
						Usage:    "Model that produced the embedding",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "vector",
						Usage:    "Embedding as a JSON array of numbers",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "content",
						Usage: "Chunk text",
					},
					&cli.Int64Flag{
						Name:  "chunk-index",
						Usage: "Position of the chunk within the content",
					},
					&cli.StringFlag{
						Name:  "metadata",
						Usage: "Free-form metadata",
					},
				},
			},
			{
				Name:   "index",
				Usage:  "Chunk, embed and store content",
				Action: indexContentCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "content-id",
						Usage:    "ID of the content",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "content-type",
						Usage: "Kind of content",
						Value: core.ContentTypeCleanedFile,
					},
					&cli.StringFlag{
						Name:  "vector-model",
						Usage: "Embedding model (default from config)",
					},
					&cli.StringFlag{
						Name:  "input",
						Usage: "Content to index",
					},
					&cli.StringFlag{
						Name:  "input-file",
						Usage: "Read content from this file (- for stdin)",
					},
				},
			},
			{
				Name:      "get",
				Usage:     "Show one vector entry",
				ArgsUsage: "<id>",
				Action:    getVectorCommand,
			},
			{
				Name:   "list",
				Usage:  "List every vector entry without its embedding",
				Action: listVectorsCommand,
			},
			{
				Name:      "delete",
				Usage:     "Delete one vector entry",
				ArgsUsage: "<id>",
				Action:    deleteVectorCommand,
			},
			{
				Name:   "delete-content",
				Usage:  "Delete every chunk stored for a content item",
				Action: deleteContentCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "content-id",
						Usage:    "ID of the content",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "content-type",
						Usage: "Kind of content",
						Value: core.ContentTypeCleanedFile,
					},
				},
			},
			{
				Name:   "clear",
				Usage:  "Delete every vector entry",
				Action: clearVectorsCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show vector counts and dimensions per model",
				Action: vectorStatsCommand,
			},
		},
	}
}

func insertVectorCommand(c *cli.Context) error {
	var vector []float32
	if err := json.Unmarshal([]byte(c.String("vector")), &vector); err != nil {
		return fmt.Errorf("invalid --vector: %w", err)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	entry, err := db.VectorRepository().InsertVector(c.Context, &core.VectorEntry{
		ContentID:   core.ID(c.Uint64("content-id")),
		ContentType: c.String("content-type"),
		Content:     c.String("content"),
		Vector:      vector,
		ModelName:   c.String("vector-model"),
		ChunkIndex:  c.Int64("chunk-index"),
		Metadata:    c.String("metadata"),
	})
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, entry)
}

func indexContentCommand(c *cli.Context) error {
	content := c.String("input")
	if path := c.String("input-file"); path != "" {
		data, err := readInput(c, path)
		if err != nil {
			return err
		}
		content = string(data)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.IndexContent(c.Context, core.ID(c.Uint64("content-id")), c.String("content-type"), content, c.String("vector-model"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, withoutVectors(entries))
}

func getVectorCommand(c *cli.Context) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	entry, err := db.VectorRepository().GetVector(c.Context, id)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, entry)
}

func listVectorsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.VectorRepository().ListVectors(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, withoutVectors(entries))
}

func deleteVectorCommand(c *cli.Context) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.VectorRepository().DeleteVector(c.Context, id); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "deleted vector %s\n", id)
	return nil
}

func deleteContentCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.VectorRepository().DeleteForContent(c.Context, core.ID(c.Uint64("content-id")), c.String("content-type"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "deleted %d vectors\n", n)
	return nil
}

func clearVectorsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.ClearVectors(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "deleted %d vectors\n", n)
	return nil
}

func vectorStatsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.VectorRepository().VectorStats(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, stats)
}

// vectorSummary is a VectorEntry with the embedding replaced by its length.
type vectorSummary struct {
	*core.VectorEntry
	Vector    []float32 `json:"embedding_vector,omitempty"`
	Dimension int       `json:"dimension"`
}

func withoutVectors(entries []*core.VectorEntry) []vectorSummary {
	out := make([]vectorSummary, len(entries))
	for i, e := range entries {
		out[i] = vectorSummary{VectorEntry: e, Dimension: len(e.Vector)}
	}
	return out
}
