package badger

import (
	"context"
	"testing"

	"github.com/poiesic/scour/core"
	"github.com/poiesic/scour/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(dim int, values ...float32) []float32 {
	v := make([]float32, dim)
	copy(v, values)
	return v
}

func newEntry(contentID core.ID, chunk int64, model string, vector []float32) *core.VectorEntry {
	return &core.VectorEntry{
		ContentID:   contentID,
		ContentType: "cleaned_file",
		Content:     "chunk",
		Vector:      vector,
		ModelName:   model,
		ChunkIndex:  chunk,
	}
}

func TestInsertVector_Basics(t *testing.T) {
	_, vectors := newTestRepos(t)
	ctx := context.Background()

	entry := newEntry(1, 0, "m1", vec(4, 1, 2, 3, 4))
	stored, err := vectors.InsertVector(ctx, entry)
	require.NoError(t, err)
	assert.NotZero(t, stored.Id)
	assert.False(t, stored.CreatedAt.IsZero())

	got, err := vectors.GetVector(ctx, stored.Id)
	require.NoError(t, err)
	assert.Equal(t, entry.Vector, got.Vector)
	assert.Equal(t, entry.Tuple(), got.Tuple())

	_, err = vectors.GetVector(ctx, 424242)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestInsertVector_Invalid(t *testing.T) {
	_, vectors := newTestRepos(t)

	_, err := vectors.InsertVector(context.Background(), newEntry(1, 0, "m1", nil))
	assert.ErrorIs(t, err, core.ErrInvalidVectorEntry)
}

func TestInsertVector_DimensionMismatch(t *testing.T) {
	_, vectors := newTestRepos(t)
	ctx := context.Background()

	for chunk := range int64(3) {
		_, err := vectors.InsertVector(ctx, newEntry(1, chunk, "m1", vec(8, 1)))
		require.NoError(t, err)
	}

	_, err := vectors.InsertVector(ctx, newEntry(2, 0, "m1", vec(4, 1)))
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	stats, err := vectors.VectorStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalVectors)
	assert.Equal(t, 8, stats.Dimensions["m1"])
}

func TestInsertVector_PerModelDimensions(t *testing.T) {
	_, vectors := newTestRepos(t)
	ctx := context.Background()

	_, err := vectors.InsertVector(ctx, newEntry(1, 0, "small", vec(4, 1)))
	require.NoError(t, err)
	_, err = vectors.InsertVector(ctx, newEntry(1, 0, "large", vec(8, 1)))
	require.NoError(t, err)

	stats, err := vectors.VectorStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"large", "small"}, stats.ModelsUsed)
	assert.Equal(t, map[string]int{"small": 4, "large": 8}, stats.Dimensions)
	assert.InDelta(t, 6.0, stats.AverageDimension, 1e-9)
}

func TestInsertVector_DimensionReleasedWhenEmpty(t *testing.T) {
	_, vectors := newTestRepos(t)
	ctx := context.Background()

	stored, err := vectors.InsertVector(ctx, newEntry(1, 0, "m1", vec(8, 1)))
	require.NoError(t, err)
	require.NoError(t, vectors.DeleteVector(ctx, stored.Id))

	_, err = vectors.InsertVector(ctx, newEntry(1, 0, "m1", vec(4, 1)))
	assert.NoError(t, err)
}

func TestInsertVector_DuplicateTuple(t *testing.T) {
	_, vectors := newTestRepos(t)
	ctx := context.Background()

	_, err := vectors.InsertVector(ctx, newEntry(1, 0, "m1", vec(4, 1)))
	require.NoError(t, err)

	_, err = vectors.InsertVector(ctx, newEntry(1, 0, "m1", vec(4, 0, 1)))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same chunk under another model is a different tuple
	_, err = vectors.InsertVector(ctx, newEntry(1, 0, "m2", vec(4, 1)))
	assert.NoError(t, err)
}

func TestReplaceForContent(t *testing.T) {
	_, vectors := newTestRepos(t)
	ctx := context.Background()

	for chunk := range int64(3) {
		_, err := vectors.InsertVector(ctx, newEntry(1, chunk, "m1", vec(4, 1)))
		require.NoError(t, err)
	}
	other, err := vectors.InsertVector(ctx, newEntry(1, 0, "m2", vec(2, 1)))
	require.NoError(t, err)

	stored, err := vectors.ReplaceForContent(ctx, 1, "cleaned_file", "m1", []*core.VectorEntry{
		newEntry(1, 0, "m1", vec(4, 0, 1)),
	})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotZero(t, stored[0].Id)

	all, err := vectors.ListForContent(ctx, 1, "cleaned_file")
	require.NoError(t, err)
	assert.Equal(t, []core.ID{other.Id, stored[0].Id}, vectorIDs(all))

	stats, err := vectors.VectorStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalVectors)
}

func TestReplaceForContent_DimensionChangeWhenOnlyHolder(t *testing.T) {
	_, vectors := newTestRepos(t)
	ctx := context.Background()

	_, err := vectors.InsertVector(ctx, newEntry(1, 0, "m1", vec(8, 1)))
	require.NoError(t, err)

	// Removing the only m1 entries releases the dimension inside the swap.
	_, err = vectors.ReplaceForContent(ctx, 1, "cleaned_file", "m1", []*core.VectorEntry{
		newEntry(1, 0, "m1", vec(4, 1)),
	})
	require.NoError(t, err)

	stats, err := vectors.VectorStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Dimensions["m1"])
}

func TestReplaceForContent_FailureKeepsOldEntries(t *testing.T) {
	_, vectors := newTestRepos(t)
	ctx := context.Background()

	var before []*core.VectorEntry
	for chunk := range int64(2) {
		e, err := vectors.InsertVector(ctx, newEntry(5, chunk, "m1", vec(8, 1)))
		require.NoError(t, err)
		before = append(before, e)
	}
	_, err := vectors.InsertVector(ctx, newEntry(99, 0, "m1", vec(8, 1)))
	require.NoError(t, err)

	_, err = vectors.ReplaceForContent(ctx, 5, "cleaned_file", "m1", []*core.VectorEntry{
		newEntry(5, 0, "m1", vec(4, 1)),
	})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	after, err := vectors.ListForContent(ctx, 5, "cleaned_file")
	require.NoError(t, err)
	assert.Equal(t, vectorIDs(before), vectorIDs(after))

	stats, err := vectors.VectorStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalVectors)
	assert.Equal(t, 8, stats.Dimensions["m1"])
}

func TestReplaceForContent_ForeignEntry(t *testing.T) {
	_, vectors := newTestRepos(t)
	ctx := context.Background()

	_, err := vectors.ReplaceForContent(ctx, 1, "cleaned_file", "m1", []*core.VectorEntry{
		newEntry(2, 0, "m1", vec(4, 1)),
	})
	assert.ErrorIs(t, err, core.ErrInvalidVectorEntry)

	_, err = vectors.ReplaceForContent(ctx, 1, "cleaned_file", "m1", []*core.VectorEntry{
		newEntry(1, 0, "m2", vec(4, 1)),
	})
	assert.ErrorIs(t, err, core.ErrInvalidVectorEntry)
}

func TestDeleteVector(t *testing.T) {
	_, vectors := newTestRepos(t)
	ctx := context.Background()

	stored, err := vectors.InsertVector(ctx, newEntry(1, 0, "m1", vec(4, 1)))
	require.NoError(t, err)

	require.NoError(t, vectors.DeleteVector(ctx, stored.Id))
	assert.ErrorIs(t, vectors.DeleteVector(ctx, stored.Id), storage.ErrNotFound)

	// The tuple is free again
	_, err = vectors.InsertVector(ctx, newEntry(1, 0, "m1", vec(4, 1)))
	assert.NoError(t, err)
}

func TestDeleteForContent(t *testing.T) {
	_, vectors := newTestRepos(t)
	ctx := context.Background()

	for chunk := range int64(3) {
		_, err := vectors.InsertVector(ctx, newEntry(7, chunk, "m1", vec(4, 1)))
		require.NoError(t, err)
	}
	_, err := vectors.InsertVector(ctx, newEntry(7, 0, "m2", vec(2, 1)))
	require.NoError(t, err)
	other := newEntry(7, 0, "m1", vec(4, 1))
	other.ContentType = "raw_file"
	_, err = vectors.InsertVector(ctx, other)
	require.NoError(t, err)
	_, err = vectors.InsertVector(ctx, newEntry(8, 0, "m1", vec(4, 1)))
	require.NoError(t, err)

	listed, err := vectors.ListForContent(ctx, 7, "cleaned_file")
	require.NoError(t, err)
	require.Len(t, listed, 4)
	for i := 1; i < len(listed); i++ {
		assert.Less(t, listed[i-1].Id, listed[i].Id)
	}
	assert.Equal(t, "m2", listed[3].ModelName)

	removed, err := vectors.DeleteForContent(ctx, 7, "cleaned_file")
	require.NoError(t, err)
	assert.Equal(t, 4, removed)

	listed, err = vectors.ListForContent(ctx, 7, "cleaned_file")
	require.NoError(t, err)
	assert.Empty(t, listed)

	remaining, err := vectors.ListVectors(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 2)

	stats, err := vectors.VectorStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, stats.ModelsUsed)

	removed, err = vectors.DeleteForContent(ctx, 7, "cleaned_file")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestClearVectors_Idempotent(t *testing.T) {
	_, vectors := newTestRepos(t)
	ctx := context.Background()

	for chunk := range int64(5) {
		_, err := vectors.InsertVector(ctx, newEntry(1, chunk, "m1", vec(4, 1)))
		require.NoError(t, err)
	}

	removed, err := vectors.ClearVectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, removed)

	removed, err = vectors.ClearVectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	stats, err := vectors.VectorStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalVectors)
	assert.Empty(t, stats.ModelsUsed)
	assert.Zero(t, stats.AverageDimension)
	assert.True(t, stats.LastUpdated.IsZero())

	// Dimension is no longer established after a clear
	_, err = vectors.InsertVector(ctx, newEntry(1, 0, "m1", vec(3, 1)))
	assert.NoError(t, err)
}

func TestListVectors_IDOrder(t *testing.T) {
	_, vectors := newTestRepos(t)
	ctx := context.Background()

	var ids []core.ID
	for chunk := range int64(4) {
		stored, err := vectors.InsertVector(ctx, newEntry(core.ID(10-chunk), chunk, "m1", vec(2, 1)))
		require.NoError(t, err)
		ids = append(ids, stored.Id)
	}

	listed, err := vectors.ListVectors(ctx)
	require.NoError(t, err)
	var got []core.ID
	for _, e := range listed {
		got = append(got, e.Id)
	}
	assert.Equal(t, ids, got)
}

func TestVectorStats_LastUpdated(t *testing.T) {
	_, vectors := newTestRepos(t)
	ctx := context.Background()

	_, err := vectors.InsertVector(ctx, newEntry(1, 0, "m1", vec(2, 1)))
	require.NoError(t, err)
	last, err := vectors.InsertVector(ctx, newEntry(1, 1, "m1", vec(2, 1)))
	require.NoError(t, err)

	stats, err := vectors.VectorStats(ctx)
	require.NoError(t, err)
	assert.True(t, last.CreatedAt.Equal(stats.LastUpdated))
}

func TestFindSimilar(t *testing.T) {
	_, vectors := newTestRepos(t)
	ctx := context.Background()

	exact, err := vectors.InsertVector(ctx, newEntry(1, 0, "m1", []float32{1, 0}))
	require.NoError(t, err)
	tieEarly, err := vectors.InsertVector(ctx, newEntry(2, 0, "m1", []float32{1, 1}))
	require.NoError(t, err)
	tieLate, err := vectors.InsertVector(ctx, newEntry(3, 0, "m1", []float32{2, 2}))
	require.NoError(t, err)
	_, err = vectors.InsertVector(ctx, newEntry(4, 0, "m1", []float32{0, 1}))
	require.NoError(t, err)
	_, err = vectors.InsertVector(ctx, newEntry(5, 0, "other", []float32{1, 0}))
	require.NoError(t, err)

	matches, err := vectors.FindSimilar(ctx, "m1", []float32{1, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, exact.Id, matches[0].Entry.Id)
	assert.Equal(t, tieEarly.Id, matches[1].Entry.Id)
	assert.Equal(t, tieLate.Id, matches[2].Entry.Id)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.InDelta(t, 0.7071, matches[1].Score, 1e-3)

	limited, err := vectors.FindSimilar(ctx, "m1", []float32{1, 0}, 0, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestFindSimilar_Empty(t *testing.T) {
	_, vectors := newTestRepos(t)
	ctx := context.Background()

	matches, err := vectors.FindSimilar(ctx, "m1", []float32{1, 0}, 0, 10)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)

	_, err = vectors.InsertVector(ctx, newEntry(1, 0, "m1", []float32{1, 1}))
	require.NoError(t, err)

	// cos = 0.707 is under a 0.99 threshold
	matches, err = vectors.FindSimilar(ctx, "m1", []float32{1, 0}, 0.99, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = vectors.FindSimilar(ctx, "m1", []float32{1, 0}, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryRepositories(t *testing.T) {
	tasks, vectors, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		tasks.Close()
		vectors.Close()
		backend.Close()
	}()

	_, err = tasks.CreateTask(context.Background(), core.NewTask{Type: core.TaskTypeTextCleanup})
	assert.NoError(t, err)
}

func vectorIDs(entries []*core.VectorEntry) []core.ID {
	ids := make([]core.ID, len(entries))
	for i, entry := range entries {
		ids[i] = entry.Id
	}
	return ids
}
