package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/scour/core"
	"github.com/poiesic/scour/storage"
)

func runApp(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"scour", "--log-level", "error", "--db", dbPath}, args...))
	return out.String(), err
}

func findStringFlag(flags []cli.Flag, name string) *cli.StringFlag {
	for _, flag := range flags {
		if f, ok := flag.(*cli.StringFlag); ok && f.Name == name {
			return f
		}
	}
	return nil
}

func findCommand(commands []*cli.Command, name string) *cli.Command {
	for _, cmd := range commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

func TestAppFlags(t *testing.T) {
	app := newApp()

	t.Run("log-level defaults to info", func(t *testing.T) {
		f := findStringFlag(app.Flags, "log-level")
		require.NotNil(t, f)
		assert.Equal(t, "info", f.Value)
		assert.Equal(t, []string{"l"}, f.Aliases)
	})

	t.Run("db can come from the environment", func(t *testing.T) {
		f := findStringFlag(app.Flags, "db")
		require.NotNil(t, f)
		assert.Equal(t, []string{"SCOUR_DB"}, f.EnvVars)
		assert.Empty(t, f.Value)
	})

	t.Run("task type defaults to text_cleanup", func(t *testing.T) {
		tasks := findCommand(app.Commands, "tasks")
		require.NotNil(t, tasks)
		add := findCommand(tasks.Subcommands, "add")
		require.NotNil(t, add)
		f := findStringFlag(add.Flags, "type")
		require.NotNil(t, f)
		assert.Equal(t, string(core.TaskTypeTextCleanup), f.Value)
	})

	t.Run("every command has an action or subcommands", func(t *testing.T) {
		for _, cmd := range app.Commands {
			if cmd.Action == nil {
				assert.NotEmpty(t, cmd.Subcommands, cmd.Name)
			}
		}
	})
}

func TestSetupLogger(t *testing.T) {
	t.Run("rejects unknown level", func(t *testing.T) {
		app := newApp()
		app.Writer = io.Discard
		app.ErrWriter = io.Discard
		err := app.Run([]string{"scour", "--log-level", "verbose", "tasks", "stats"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("writes JSON logs to file", func(t *testing.T) {
		dir := t.TempDir()
		logPath := filepath.Join(dir, "scour.log")
		_, err := runApp(t, filepath.Join(dir, "db"), "--log-file", logPath, "tasks", "stats")
		require.NoError(t, err)
		assert.Nil(t, logFile)

		_, err = os.Stat(logPath)
		assert.NoError(t, err)
	})
}

func TestTaskCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db")

	out, err := runApp(t, dbPath, "tasks", "add",
		"--file-id", "7",
		"--type", string(core.TaskTypeFormatConversion),
		"--priority", "3",
		"--input", "line one\r\nline two")
	require.NoError(t, err)
	var created core.CleaningTask
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, core.ID(7), created.FileID)
	assert.Equal(t, core.TaskStatusPending, created.Status)
	assert.Equal(t, int64(3), created.Priority)

	id := created.Id.String()

	t.Run("get", func(t *testing.T) {
		out, err := runApp(t, dbPath, "tasks", "get", id)
		require.NoError(t, err)
		var task core.CleaningTask
		require.NoError(t, json.Unmarshal([]byte(out), &task))
		assert.Equal(t, created.Id, task.Id)
		assert.Equal(t, "line one\r\nline two", task.InputContent)
	})

	t.Run("get rejects bad id", func(t *testing.T) {
		_, err := runApp(t, dbPath, "tasks", "get", "abc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid id")
	})

	t.Run("get missing task", func(t *testing.T) {
		_, err := runApp(t, dbPath, "tasks", "get", "999999")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("list filters by status", func(t *testing.T) {
		out, err := runApp(t, dbPath, "tasks", "list", "--status", "pending")
		require.NoError(t, err)
		var page struct {
			Tasks []*core.CleaningTask `json:"tasks"`
			Total int                  `json:"total"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &page))
		assert.Equal(t, 1, page.Total)
		require.Len(t, page.Tasks, 1)

		out, err = runApp(t, dbPath, "tasks", "list", "--status", "failed")
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal([]byte(out), &page))
		assert.Zero(t, page.Total)
	})

	t.Run("update needs a field", func(t *testing.T) {
		_, err := runApp(t, dbPath, "tasks", "update", id)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nothing to update")
	})

	t.Run("update priority", func(t *testing.T) {
		out, err := runApp(t, dbPath, "tasks", "update", "--priority", "9", id)
		require.NoError(t, err)
		var task core.CleaningTask
		require.NoError(t, json.Unmarshal([]byte(out), &task))
		assert.Equal(t, int64(9), task.Priority)
	})

	t.Run("update cannot change status", func(t *testing.T) {
		_, err := runApp(t, dbPath, "tasks", "update", "--status", "running", id)
		require.Error(t, err)

		out, err := runApp(t, dbPath, "tasks", "get", id)
		require.NoError(t, err)
		var task core.CleaningTask
		require.NoError(t, json.Unmarshal([]byte(out), &task))
		assert.Equal(t, core.TaskStatusPending, task.Status)
	})

	t.Run("run prints progress and completes the task", func(t *testing.T) {
		out, err := runApp(t, dbPath, "run")
		require.NoError(t, err)

		var evs []core.ProgressEvent
		scanner := bufio.NewScanner(strings.NewReader(out))
		for scanner.Scan() {
			var ev core.ProgressEvent
			require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
			evs = append(evs, ev)
		}
		require.NotEmpty(t, evs)
		assert.Equal(t, core.EventStarted, evs[0].Type)
		last := evs[len(evs)-1]
		assert.Equal(t, core.EventCompleted, last.Type)
		assert.Equal(t, 1, last.Processed)
		assert.Equal(t, 100, last.ProgressPercent)

		out, err = runApp(t, dbPath, "tasks", "get", id)
		require.NoError(t, err)
		var task core.CleaningTask
		require.NoError(t, json.Unmarshal([]byte(out), &task))
		assert.Equal(t, core.TaskStatusCompleted, task.Status)
		assert.Contains(t, task.OutputContent, "Format Conversion Report")
		assert.Contains(t, task.OutputContent, "line one\nline two")
	})

	t.Run("stats", func(t *testing.T) {
		out, err := runApp(t, dbPath, "tasks", "stats")
		require.NoError(t, err)
		var stats core.TaskStats
		require.NoError(t, json.Unmarshal([]byte(out), &stats))
		assert.Equal(t, 1, stats.Total)
		assert.Equal(t, 1, stats.Completed)
	})

	t.Run("delete and clear", func(t *testing.T) {
		out, err := runApp(t, dbPath, "tasks", "delete", id)
		require.NoError(t, err)
		assert.Contains(t, out, "deleted task "+id)

		out, err = runApp(t, dbPath, "tasks", "clear")
		require.NoError(t, err)
		assert.Equal(t, "deleted 0 tasks\n", out)
	})
}

func TestQueueFileRunAndSummary(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db")

	out, err := runApp(t, dbPath, "tasks", "queue-file", "--file-id", "4", "--input", "a\r\nb")
	require.NoError(t, err)
	var queued []*core.CleaningTask
	require.NoError(t, json.Unmarshal([]byte(out), &queued))
	require.Len(t, queued, 3)
	for i, task := range queued {
		assert.Equal(t, core.TaskTypes[i], task.Type)
		assert.Equal(t, int64(i+1), task.Priority)
		assert.Equal(t, "a\r\nb", task.InputContent)
	}

	conversion := queued[2]
	out, err = runApp(t, dbPath, "tasks", "run", conversion.Id.String())
	require.NoError(t, err)
	var done core.CleaningTask
	require.NoError(t, json.Unmarshal([]byte(out), &done))
	assert.Equal(t, core.TaskStatusCompleted, done.Status)
	assert.Contains(t, done.OutputContent, "a\nb")

	_, err = runApp(t, dbPath, "tasks", "run", conversion.Id.String())
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	out, err = runApp(t, dbPath, "tasks", "summary")
	require.NoError(t, err)
	var summary core.TaskSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, core.TaskSummary{
		core.TaskTypeTextCleanup:        {core.TaskStatusPending: 1},
		core.TaskTypeMetadataExtraction: {core.TaskStatusPending: 1},
		core.TaskTypeFormatConversion:   {core.TaskStatusCompleted: 1},
	}, summary)
}

func TestAddTaskFromFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.txt")
	require.NoError(t, os.WriteFile(input, []byte("from a file"), 0644))

	out, err := runApp(t, filepath.Join(dir, "db"), "tasks", "add", "--file-id", "1", "--input-file", input)
	require.NoError(t, err)
	var task core.CleaningTask
	require.NoError(t, json.Unmarshal([]byte(out), &task))
	assert.Equal(t, "from a file", task.InputContent)

	_, err = runApp(t, filepath.Join(dir, "db"), "tasks", "add", "--file-id", "1", "--input", "x", "--input-file", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestVectorCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db")

	out, err := runApp(t, dbPath, "vectors", "insert",
		"--content-id", "42",
		"--vector-model", "test-model",
		"--vector", "[0.1, 0.2, 0.3]",
		"--content", "hello world")
	require.NoError(t, err)
	var entry core.VectorEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, core.ID(42), entry.ContentID)
	assert.Equal(t, core.ContentTypeCleanedFile, entry.ContentType)
	assert.Len(t, entry.Vector, 3)

	t.Run("insert rejects bad vector", func(t *testing.T) {
		_, err := runApp(t, dbPath, "vectors", "insert",
			"--content-id", "1", "--vector-model", "m", "--vector", "not json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid --vector")
	})

	t.Run("list omits embeddings", func(t *testing.T) {
		out, err := runApp(t, dbPath, "vectors", "list")
		require.NoError(t, err)
		assert.NotContains(t, out, "embedding_vector")
		var list []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &list))
		require.Len(t, list, 1)
		assert.Equal(t, float64(3), list[0]["dimension"])
		assert.Equal(t, "hello world", list[0]["content"])
	})

	t.Run("stats", func(t *testing.T) {
		out, err := runApp(t, dbPath, "vectors", "stats")
		require.NoError(t, err)
		var stats core.VectorStats
		require.NoError(t, json.Unmarshal([]byte(out), &stats))
		assert.Equal(t, 1, stats.TotalVectors)
		assert.Equal(t, []string{"test-model"}, stats.ModelsUsed)
		assert.Equal(t, 3, stats.Dimensions["test-model"])
	})

	t.Run("get", func(t *testing.T) {
		out, err := runApp(t, dbPath, "vectors", "get", strconv.FormatUint(uint64(entry.Id), 10))
		require.NoError(t, err)
		var got core.VectorEntry
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, entry.Vector, got.Vector)
	})

	t.Run("delete-content", func(t *testing.T) {
		out, err := runApp(t, dbPath, "vectors", "delete-content", "--content-id", "42")
		require.NoError(t, err)
		assert.Equal(t, "deleted 1 vectors\n", out)

		out, err = runApp(t, dbPath, "vectors", "clear")
		require.NoError(t, err)
		assert.Equal(t, "deleted 0 vectors\n", out)
	})
}

func TestSearchRequiresQuery(t *testing.T) {
	_, err := runApp(t, filepath.Join(t.TempDir(), "db"), "search", "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search query is required")
}
