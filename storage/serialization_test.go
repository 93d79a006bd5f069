package storage

import (
	"testing"
	"time"

	"github.com/poiesic/scour/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("(1,cleaned_file,0,m)")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalTask(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name string
		task *core.CleaningTask
	}{
		{
			name: "pending task",
			task: &core.CleaningTask{
				Id:           1,
				FileID:       10,
				Type:         core.TaskTypeTextCleanup,
				Status:       core.TaskStatusPending,
				InputContent: "  hello  \n\n world ",
				CreatedAt:    now,
			},
		},
		{
			name: "failed task",
			task: &core.CleaningTask{
				Id:           2,
				Type:         core.TaskTypeFormatConversion,
				Status:       core.TaskStatusFailed,
				Priority:     7,
				ErrorMessage: "no input content",
				CreatedAt:    now,
				StartedAt:    now.Add(time.Second),
				CompletedAt:  now.Add(2 * time.Second),
			},
		},
		{
			name: "unicode output",
			task: &core.CleaningTask{
				Id:            3,
				Type:          core.TaskTypeMetadataExtraction,
				Status:        core.TaskStatusCompleted,
				InputContent:  "Hello 世界",
				OutputContent: `{"language":"unknown"}`,
				CreatedAt:     now,
				StartedAt:     now,
				CompletedAt:   now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := UnmarshalTask(MarshalTask(tt.task))
			require.NoError(t, err)

			assert.Equal(t, tt.task.Id, decoded.Id)
			assert.Equal(t, tt.task.FileID, decoded.FileID)
			assert.Equal(t, tt.task.Type, decoded.Type)
			assert.Equal(t, tt.task.Status, decoded.Status)
			assert.Equal(t, tt.task.Priority, decoded.Priority)
			assert.Equal(t, tt.task.InputContent, decoded.InputContent)
			assert.Equal(t, tt.task.OutputContent, decoded.OutputContent)
			assert.Equal(t, tt.task.ErrorMessage, decoded.ErrorMessage)
			assert.True(t, tt.task.CreatedAt.Equal(decoded.CreatedAt))
			assert.True(t, tt.task.StartedAt.Equal(decoded.StartedAt))
			assert.True(t, tt.task.CompletedAt.Equal(decoded.CompletedAt))
		})
	}
}

func TestUnmarshalTask_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"partial data", []byte{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalTask(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestMarshalUnmarshalVectorEntry(t *testing.T) {
	entry := &core.VectorEntry{
		Id:          5,
		ContentID:   99,
		ContentType: "cleaned_file",
		Content:     "some chunk",
		Vector:      []float32{0.1, 0.2, 0.3, 0.4, 0.5},
		ModelName:   "nomic-embed-text",
		ChunkIndex:  1,
		Metadata:    "chunk_length:10",
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}

	decoded, err := UnmarshalVectorEntry(MarshalVectorEntry(entry))
	require.NoError(t, err)
	assert.Equal(t, entry.Vector, decoded.Vector)
	assert.Equal(t, entry.ModelName, decoded.ModelName)
	assert.Equal(t, entry.ChunkIndex, decoded.ChunkIndex)
	assert.True(t, entry.CreatedAt.Equal(decoded.CreatedAt))
}

func TestMarshalUnmarshalModelDimension(t *testing.T) {
	md := &core.ModelDimension{Model: "all-minilm", Dimension: 384, Entries: 3}
	decoded, err := UnmarshalModelDimension(MarshalModelDimension(md))
	require.NoError(t, err)
	assert.Equal(t, md, decoded)
}
