package indexing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/scour/ai"
	"github.com/poiesic/scour/ai/mock"
	"github.com/poiesic/scour/batch"
	"github.com/poiesic/scour/core"
	"github.com/poiesic/scour/events"
	"github.com/poiesic/scour/storage"
)

func completeTask(t *testing.T, tasks storage.TaskQueue, typ core.TaskType, output string) *core.CleaningTask {
	t.Helper()
	ctx := context.Background()
	task, err := tasks.CreateTask(ctx, core.NewTask{FileID: core.ID(len(output)), Type: typ, InputContent: output})
	require.NoError(t, err)
	_, err = tasks.ClaimTask(ctx, task.Id)
	require.NoError(t, err)
	task, err = tasks.CompleteTask(ctx, task.Id, output)
	require.NoError(t, err)
	return task
}

func TestBatchIndexer_RunCompleted(t *testing.T) {
	tasks, vectors := setupRepos(t)
	ctx := context.Background()

	completeTask(t, tasks, core.TaskTypeTextCleanup, "first output")
	completeTask(t, tasks, core.TaskTypeTextCleanup, "second output text")
	completeTask(t, tasks, core.TaskTypeFormatConversion, "converted")
	_, err := tasks.CreateTask(ctx, core.NewTask{FileID: 1, Type: core.TaskTypeTextCleanup, InputContent: "pending"})
	require.NoError(t, err)

	gateway := mock.NewMockGateway("m1").WithModel("m1", 8)
	ix := newTestIndexer(t, vectors, gateway)
	bus := events.NewBus()
	sub := bus.Subscribe(32)
	defer sub.Close()

	bi, err := NewBatchIndexer(tasks, ix, bus, WithBatchModel("m1"))
	require.NoError(t, err)

	n, err := bi.RunCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := vectors.ListVectors(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, e := range all {
		assert.Equal(t, core.ContentTypeCleanedFile, e.ContentType)
	}

	var seen []core.ProgressEvent
	require.NoError(t, events.Drain(ctx, sub, func(ev core.ProgressEvent) {
		seen = append(seen, ev)
	}))
	require.NotEmpty(t, seen)
	assert.Equal(t, core.EventStarted, seen[0].Type)
	last := seen[len(seen)-1]
	assert.Equal(t, core.EventCompleted, last.Type)
	assert.Equal(t, events.IndexingProgress, last.Channel)
	assert.Equal(t, 2, last.Processed)
	assert.Equal(t, 100, last.ProgressPercent)

	// Re-running replaces rather than duplicates.
	_, err = bi.RunCompleted(ctx)
	require.NoError(t, err)
	all, err = vectors.ListVectors(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBatchIndexer_FailuresAreCounted(t *testing.T) {
	tasks, vectors := setupRepos(t)
	task := completeTask(t, tasks, core.TaskTypeTextCleanup, "output")

	gateway := mock.NewMockGateway("m1")
	gateway.SetUnavailable(true)
	ix := newTestIndexer(t, vectors, gateway)
	bus := events.NewBus()
	sub := bus.Subscribe(8)
	defer sub.Close()

	bi, err := NewBatchIndexer(tasks, ix, bus, WithBatchModel("m1"))
	require.NoError(t, err)

	n, err := bi.RunCompleted(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "failed to index task "+task.Id.String())
	assert.Equal(t, 1, n)

	var last core.ProgressEvent
	require.NoError(t, events.Drain(context.Background(), sub, func(ev core.ProgressEvent) { last = ev }))
	assert.Equal(t, 1, last.Failed)
	assert.Zero(t, last.Processed)
}

func TestBatchIndexer_JoinsEveryFailure(t *testing.T) {
	tasks, vectors := setupRepos(t)
	ctx := context.Background()
	good := completeTask(t, tasks, core.TaskTypeTextCleanup, "fine output")
	bad := completeTask(t, tasks, core.TaskTypeTextCleanup, "bad output text")
	worse := completeTask(t, tasks, core.TaskTypeTextCleanup, "worse output text here")

	gateway := mock.NewMockGateway("m1").WithModel("m1", 4).WithEmbedFunc(func(_ context.Context, text, _ string) ([]float32, error) {
		if text == "fine output" {
			return []float32{1, 0, 0, 0}, nil
		}
		return nil, errors.New("embedding refused")
	})
	ix := newTestIndexer(t, vectors, gateway)

	bi, err := NewBatchIndexer(tasks, ix, events.NewBus(), WithBatchModel("m1"))
	require.NoError(t, err)

	n, err := bi.RunCompleted(ctx)
	assert.Equal(t, 3, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to index task "+bad.Id.String())
	assert.Contains(t, err.Error(), "failed to index task "+worse.Id.String())
	assert.NotContains(t, err.Error(), "failed to index task "+good.Id.String()+":")

	var joined interface{ Unwrap() []error }
	require.ErrorAs(t, err, &joined)
	assert.Len(t, joined.Unwrap(), 2)

	entries, err := vectors.ListForContent(ctx, good.FileID, core.ContentTypeCleanedFile)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBatchIndexer_SharedGuard(t *testing.T) {
	tasks, vectors := setupRepos(t)
	ix := newTestIndexer(t, vectors, mock.NewMockGateway("m1"))

	guard := batch.NewRunGuard()
	require.True(t, guard.TryAcquire())
	defer guard.Release()

	bi, err := NewBatchIndexer(tasks, ix, events.NewBus(), WithBatchRunGuard(guard))
	require.NoError(t, err)

	_, err = bi.RunCompleted(context.Background())
	assert.ErrorIs(t, err, batch.ErrAlreadyRunning)
}

func TestNewBatchIndexer_Validation(t *testing.T) {
	tasks, vectors := setupRepos(t)
	ix := newTestIndexer(t, vectors, mock.NewMockGateway("m1"))

	_, err := NewBatchIndexer(nil, ix, events.NewBus())
	assert.ErrorIs(t, err, ErrTaskRepositoryRequired)
	_, err = NewBatchIndexer(tasks, nil, events.NewBus())
	assert.ErrorIs(t, err, ErrIndexerRequired)
	_, err = NewBatchIndexer(tasks, ix, nil)
	assert.ErrorIs(t, err, ErrBusRequired)
}
