package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/scour/core"
	"github.com/poiesic/scour/storage"
)

func tasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Manage cleaning tasks",
		Subcommands: []*cli.Command{
			{
				Name:   "add",
				Usage:  "Queue a cleaning task",
				Action: addTaskCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "file-id",
						Usage:    "ID of the file the content came from",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Task type (text_cleanup, metadata_extraction, format_conversion)",
						Value: string(core.TaskTypeTextCleanup),
					},
					&cli.Int64Flag{
						Name:  "priority",
						Usage: "Higher priorities run first",
					},
					&cli.StringFlag{
						Name:  "input",
						Usage: "Content to clean",
					},
					&cli.StringFlag{
						Name:  "input-file",
						Usage: "Read content to clean from this file (- for stdin)",
					},
				},
			},
			{
				Name:   "queue-file",
				Usage:  "Queue text_cleanup, metadata_extraction and format_conversion for one file",
				Action: queueFileCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "file-id",
						Usage:    "ID of the file the content came from",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "input",
						Usage: "Content of the file",
					},
					&cli.StringFlag{
						Name:  "input-file",
						Usage: "Read the content from this file (- for stdin)",
					},
				},
			},
			{
				Name:      "run",
				Usage:     "Run one pending task now",
				ArgsUsage: "<id>",
				Action:    runTaskCommand,
			},
			{
				Name:      "get",
				Usage:     "Show one task",
				ArgsUsage: "<id>",
				Action:    getTaskCommand,
			},
			{
				Name:   "list",
				Usage:  "List tasks, newest first",
				Action: listTasksCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only tasks with this status",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Only tasks of this type",
					},
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Only tasks whose input or output contains this text",
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "Page number, starting at 1",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Tasks per page (0 lists everything)",
						Value: 20,
					},
				},
			},
			{
				Name:      "update",
				Usage:     "Change the priority or input of a pending task",
				ArgsUsage: "<id>",
				Action:    updateTaskCommand,
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "priority",
						Usage: "New priority",
					},
					&cli.StringFlag{
						Name:  "input",
						Usage: "New content to clean",
					},
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete one task",
				ArgsUsage: "<id>",
				Action:    deleteTaskCommand,
			},
			{
				Name:   "clear",
				Usage:  "Delete every task",
				Action: clearTasksCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show task counts by status",
				Action: taskStatsCommand,
			},
			{
				Name:   "summary",
				Usage:  "Show task counts by type and status",
				Action: taskSummaryCommand,
			},
		},
	}
}

func addTaskCommand(c *cli.Context) error {
	input, err := inputContent(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	task, err := db.TaskRepository().CreateTask(c.Context, core.NewTask{
		FileID:       core.ID(c.Uint64("file-id")),
		Type:         core.TaskType(c.String("type")),
		Priority:     c.Int64("priority"),
		InputContent: input,
	})
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return printJSON(c.App.Writer, task)
}

func queueFileCommand(c *cli.Context) error {
	input, err := inputContent(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	tasks, err := db.QueueFile(c.Context, core.ID(c.Uint64("file-id")), input)
	if err != nil {
		return fmt.Errorf("failed to queue tasks: %w", err)
	}
	return printJSON(c.App.Writer, tasks)
}

func runTaskCommand(c *cli.Context) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	task, err := db.RunTask(c.Context, id)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, task)
}

// inputContent returns --input or the contents of --input-file.
func inputContent(c *cli.Context) (string, error) {
	path := c.String("input-file")
	if path == "" {
		return c.String("input"), nil
	}
	if c.IsSet("input") {
		return "", fmt.Errorf("--input and --input-file are mutually exclusive")
	}
	data, err := readInput(c, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readInput(c *cli.Context, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(c.App.Reader)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

func getTaskCommand(c *cli.Context) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	task, err := db.TaskRepository().GetTask(c.Context, id)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, task)
}

func listTasksCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	filter := storage.TaskFilter{
		Status: core.TaskStatus(c.String("status")),
		Type:   core.TaskType(c.String("type")),
		Query:  c.String("query"),
	}
	page, err := db.ListTasks(c.Context, filter, c.Int("page"), c.Int("page-size"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, map[string]any{
		"tasks":       page.Tasks,
		"total":       page.Total,
		"page":        page.Page,
		"page_size":   page.PageSize,
		"total_pages": page.TotalPages,
	})
}

func updateTaskCommand(c *cli.Context) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}
	var update core.TaskUpdate
	if c.IsSet("priority") {
		priority := c.Int64("priority")
		update.Priority = &priority
	}
	if c.IsSet("input") {
		input := c.String("input")
		update.InputContent = &input
	}
	if update.Priority == nil && update.InputContent == nil {
		return fmt.Errorf("nothing to update: set --priority or --input")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	task, err := db.TaskRepository().UpdateTask(c.Context, id, update)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, task)
}

func deleteTaskCommand(c *cli.Context) error {
	id, err := idArg(c)
	if err != nil {
		return err
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.TaskRepository().DeleteTask(c.Context, id); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "deleted task %s\n", id)
	return nil
}

func clearTasksCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.ClearTasks(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "deleted %d tasks\n", n)
	return nil
}

func taskStatsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.TaskRepository().TaskStats(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, stats)
}

func taskSummaryCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := db.TaskSummary(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, summary)
}
