package scour

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/scour/ai/mock"
	"github.com/poiesic/scour/batch"
	"github.com/poiesic/scour/cleaning"
	"github.com/poiesic/scour/config"
	"github.com/poiesic/scour/core"
	"github.com/poiesic/scour/events"
	"github.com/poiesic/scour/storage"
)

func newTestDatabase(t *testing.T, opts ...DatabaseOption) (*Database, *mock.MockGateway) {
	t.Helper()
	gateway := mock.NewMockGateway("nomic-embed-text").WithModel("nomic-embed-text", 16)
	db, err := NewDatabase(filepath.Join(t.TempDir(), "db"), append([]DatabaseOption{WithGateway(gateway)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, gateway
}

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		// Verify components are initialized
		assert.NotNil(t, db.TaskRepository())
		assert.NotNil(t, db.VectorRepository())
		assert.NotNil(t, db.Gateway())
		assert.NotNil(t, db.Events())
		assert.NotNil(t, db.backend)
		assert.NotNil(t, db.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to create a database at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := config.Default()
		cfg.AI.Provider = "bogus"
		db, err := NewDatabase(t.TempDir(), WithConfig(cfg))
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("in memory", func(t *testing.T) {
		cfg := config.Default()
		cfg.Storage.InMemory = true
		db, err := NewDatabase("", WithConfig(cfg), WithGateway(mock.NewMockGateway("nomic-embed-text")))
		require.NoError(t, err)
		assert.NoError(t, db.Close())
	})
}

func TestDatabase_Close(t *testing.T) {
	db, err := NewDatabase(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, db)

	err = db.Close()
	assert.NoError(t, err)
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db, _ := newTestDatabase(t)

	t.Run("can create processor", func(t *testing.T) {
		p, err := db.NewProcessor()
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Same(t, db.guard, p.Guard())
	})

	t.Run("can create batch indexer", func(t *testing.T) {
		b, err := db.NewBatchIndexer()
		require.NoError(t, err)
		require.NotNil(t, b)
	})

	t.Run("can create searcher", func(t *testing.T) {
		s, err := db.NewSearcher()
		require.NoError(t, err)
		require.NotNil(t, s)
	})

	t.Run("plain cleaner without refiner", func(t *testing.T) {
		c, err := db.NewCleaner()
		require.NoError(t, err)
		_, ok := c.(*cleaning.Transformer)
		assert.True(t, ok)
	})
}

func TestDatabase_CleanIndexSearch(t *testing.T) {
	db, gateway := newTestDatabase(t)
	ctx := context.Background()

	task, err := db.TaskRepository().CreateTask(ctx, core.NewTask{
		FileID:       9,
		Type:         core.TaskTypeTextCleanup,
		Priority:     1,
		InputContent: "  the quick brown fox  \n\n jumps over the lazy dog ",
	})
	require.NoError(t, err)

	sub := db.Events().Subscribe(32)
	defer sub.Close()

	n, err := db.RunPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var last core.ProgressEvent
	require.NoError(t, events.Drain(ctx, sub, func(ev core.ProgressEvent) { last = ev }))
	assert.Equal(t, events.CleaningProgress, last.Channel)
	assert.Equal(t, 1, last.Processed)

	done, err := db.TaskRepository().GetTask(ctx, task.Id)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusCompleted, done.Status)
	assert.Equal(t, "the quick brown fox\njumps over the lazy dog", done.OutputContent)

	results, err := db.Search(ctx, done.OutputContent, 5, 0.99, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.ID(9), results[0].ContentID)
	assert.Equal(t, core.ContentTypeCleanedFile, results[0].ContentType)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-5)

	stats, err := db.VectorRepository().VectorStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalVectors)
	assert.Equal(t, []string{"nomic-embed-text"}, stats.ModelsUsed)

	n, err = db.ReindexCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	stats, err = db.VectorRepository().VectorStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalVectors)
	assert.Positive(t, gateway.CallCount())
}

func TestDatabase_RunGuardShared(t *testing.T) {
	db, _ := newTestDatabase(t)

	require.True(t, db.guard.TryAcquire())
	defer db.guard.Release()

	_, err := db.RunPending(context.Background())
	assert.ErrorIs(t, err, batch.ErrAlreadyRunning)
	_, err = db.ReindexCompleted(context.Background())
	assert.ErrorIs(t, err, batch.ErrAlreadyRunning)
	_, err = db.RunTask(context.Background(), 1)
	assert.ErrorIs(t, err, batch.ErrAlreadyRunning)
}

func TestDatabase_ClearRefusedDuringRun(t *testing.T) {
	db, _ := newTestDatabase(t)
	ctx := context.Background()

	_, err := db.QueueFile(ctx, 1, "content")
	require.NoError(t, err)
	_, err = db.IndexContent(ctx, 1, core.ContentTypeCleanedFile, "content", "")
	require.NoError(t, err)

	require.True(t, db.guard.TryAcquire())
	_, err = db.ClearTasks(ctx)
	assert.ErrorIs(t, err, batch.ErrAlreadyRunning)
	_, err = db.ClearVectors(ctx)
	assert.ErrorIs(t, err, batch.ErrAlreadyRunning)
	db.guard.Release()

	taskStats, err := db.TaskRepository().TaskStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, taskStats.Total)

	removed, err := db.ClearTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	removed, err = db.ClearVectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, db.guard.Running())
}

func TestDatabase_QueueFileRunTaskSummary(t *testing.T) {
	db, _ := newTestDatabase(t)
	ctx := context.Background()

	queued, err := db.QueueFile(ctx, 12, "  Title  \n\n body ")
	require.NoError(t, err)
	require.Len(t, queued, 3)
	for i, task := range queued {
		assert.Equal(t, core.TaskTypes[i], task.Type)
		assert.Equal(t, int64(i+1), task.Priority)
		assert.Equal(t, "  Title  \n\n body ", task.InputContent)
	}

	cleanup := queued[0]
	done, err := db.RunTask(ctx, cleanup.Id)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStatusCompleted, done.Status)
	assert.Equal(t, "Title\nbody", done.OutputContent)

	summary, err := db.TaskSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count(core.TaskTypeTextCleanup, core.TaskStatusCompleted))
	assert.Equal(t, 1, summary.Count(core.TaskTypeMetadataExtraction, core.TaskStatusPending))
	assert.Equal(t, 1, summary.Count(core.TaskTypeFormatConversion, core.TaskStatusPending))
	assert.Zero(t, summary.Count(core.TaskTypeTextCleanup, core.TaskStatusPending))

	_, err = db.RunTask(ctx, cleanup.Id)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func TestDatabase_ListTasksPaged(t *testing.T) {
	db, _ := newTestDatabase(t)
	ctx := context.Background()

	for i := range 5 {
		_, err := db.TaskRepository().CreateTask(ctx, core.NewTask{
			FileID:       core.ID(i + 1),
			Type:         core.TaskTypeFormatConversion,
			InputContent: "content",
		})
		require.NoError(t, err)
	}

	page, err := db.ListTasks(ctx, storage.TaskFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Tasks, 2)

	page, err = db.ListTasks(ctx, storage.TaskFilter{}, 4, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Tasks)

	page, err = db.ListTasks(ctx, storage.TaskFilter{Query: "FORMAT"}, 1, 0)
	require.NoError(t, err)
	assert.Len(t, page.Tasks, 5)
	assert.Equal(t, 1, page.TotalPages)
}

func TestDatabase_GatewayPassThrough(t *testing.T) {
	db, gateway := newTestDatabase(t)
	ctx := context.Background()

	assert.True(t, db.Ping(ctx))
	models, err := db.Models(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"nomic-embed-text"}, models)

	v, err := db.Embed(ctx, "hello", "")
	require.NoError(t, err)
	assert.Len(t, v, 16)

	gateway.SetUnavailable(true)
	assert.False(t, db.Ping(ctx))
}

func TestDatabase_Refining(t *testing.T) {
	cfg := config.Default()
	cfg.Batch.Refine = true
	refiner := mock.NewMockRefiner()
	db, _ := newTestDatabase(t, WithConfig(cfg), WithRefiner(refiner))
	ctx := context.Background()

	_, err := db.TaskRepository().CreateTask(ctx, core.NewTask{
		FileID:       1,
		Type:         core.TaskTypeTextCleanup,
		InputContent: "a    b",
	})
	require.NoError(t, err)

	_, err = db.RunPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, refiner.CallCount())
}
