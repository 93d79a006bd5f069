package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// String renders the ID in base 10.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID parses a base 10 ID.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// TaskType identifies which cleaning transform a task runs.
type TaskType string

const (
	TaskTypeTextCleanup        TaskType = "text_cleanup"
	TaskTypeMetadataExtraction TaskType = "metadata_extraction"
	TaskTypeFormatConversion   TaskType = "format_conversion"
)

// TaskTypes lists every supported task type.
var TaskTypes = []TaskType{
	TaskTypeTextCleanup,
	TaskTypeMetadataExtraction,
	TaskTypeFormatConversion,
}

// TaskStatus is the lifecycle state of a cleaning task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// TaskStatuses lists every lifecycle state in order.
var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusRunning,
	TaskStatusCompleted,
	TaskStatusFailed,
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CleaningTask is a queued unit of cleaning work for one external file.
// Empty strings and zero times mean "not set".
type CleaningTask struct {
	Id            ID         `json:"id"`
	FileID        ID         `json:"file_id"`
	Type          TaskType   `json:"task_type"`
	Status        TaskStatus `json:"status"`
	Priority      int64      `json:"priority"`
	InputContent  string     `json:"input_content,omitempty"`
	OutputContent string     `json:"output_content,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     time.Time  `json:"started_at,omitzero"`
	CompletedAt   time.Time  `json:"completed_at,omitzero"`
}

// NewTask holds the fields a caller supplies when queueing a task.
type NewTask struct {
	FileID       ID
	Type         TaskType
	Priority     int64
	InputContent string
}

// FileTasks returns the standard set of tasks queued for one file: one task
// per type with priorities 1, 2 and 3 in TaskTypes order, all sharing content.
func FileTasks(fileID ID, content string) []NewTask {
	tasks := make([]NewTask, len(TaskTypes))
	for i, t := range TaskTypes {
		tasks[i] = NewTask{
			FileID:       fileID,
			Type:         t,
			Priority:     int64(i + 1),
			InputContent: content,
		}
	}
	return tasks
}

// TaskUpdate is a partial update of a pending task. Nil fields are left
// untouched. Status may only repeat the current status; moving a task through
// its lifecycle is done with ApplyClaim, ApplyCompletion and ApplyFailure.
type TaskUpdate struct {
	Status       *TaskStatus
	Priority     *int64
	InputContent *string
}

// ContentTypeCleanedFile tags vector entries built from cleaning output.
const ContentTypeCleanedFile = "cleaned_file"

// VectorEntry is one embedded chunk of a content item.
type VectorEntry struct {
	Id          ID        `json:"id"`
	ContentID   ID        `json:"content_id"`
	ContentType string    `json:"content_type"`
	Content     string    `json:"content"`          // Chunk text, returned with search results
	Vector      []float32 `json:"embedding_vector"` // Embedding produced by ModelName
	ModelName   string    `json:"model_name"`
	ChunkIndex  int64     `json:"chunk_index"`
	Metadata    string    `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Tuple returns the uniqueness key of the entry as
// "(contentID,contentType,chunkIndex,model)".
func (e *VectorEntry) Tuple() string {
	return "(" + e.ContentID.String() + "," + e.ContentType + "," +
		strconv.FormatInt(e.ChunkIndex, 10) + "," + e.ModelName + ")"
}

// ModelDimension records the vector length established for a model and
// how many stored entries currently rely on it.
type ModelDimension struct {
	Model     string
	Dimension int
	Entries   int
}

// TaskStats are aggregates derived from the task store.
type TaskStats struct {
	Total                 int           `json:"total"`
	Pending               int           `json:"pending"`
	Running               int           `json:"running"`
	Completed             int           `json:"completed"`
	Failed                int           `json:"failed"`
	AverageProcessingTime time.Duration `json:"average_processing_time"` // Mean of CompletedAt-StartedAt over completed tasks
}

// TaskSummary counts tasks grouped by type and then by status. Only
// combinations with at least one task are present.
type TaskSummary map[TaskType]map[TaskStatus]int

// Add counts one task of type t in status s.
func (ts TaskSummary) Add(t TaskType, s TaskStatus) {
	byStatus, ok := ts[t]
	if !ok {
		byStatus = make(map[TaskStatus]int)
		ts[t] = byStatus
	}
	byStatus[s]++
}

// Count returns the number of tasks of type t in status s.
func (ts TaskSummary) Count(t TaskType, s TaskStatus) int {
	return ts[t][s]
}

// VectorStats are aggregates derived from the vector index.
type VectorStats struct {
	TotalVectors     int            `json:"total_vectors"`
	ModelsUsed       []string       `json:"models_used"`
	AverageDimension float64        `json:"average_vector_dimension"`
	LastUpdated      time.Time      `json:"last_updated,omitzero"`
	Dimensions       map[string]int `json:"dimensions"`
}

// BatchProgress is the transient state of one batch run.
type BatchProgress struct {
	Total                     int     `json:"total"`
	Processed                 int     `json:"processed"`
	Failed                    int     `json:"failed"`
	ProgressPercent           int     `json:"progress_percent"`
	EstimatedRemainingSeconds float64 `json:"estimated_remaining_seconds"`
	CurrentItemID             ID      `json:"current_item_id,omitempty"`
}

// Attempted returns the number of items that reached a terminal state.
func (p BatchProgress) Attempted() int {
	return p.Processed + p.Failed
}

// EventType tags a progress event.
type EventType string

const (
	EventStarted   EventType = "started"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
)

// ProgressEvent is one notification on a progress channel.
type ProgressEvent struct {
	Type    EventType `json:"type"`
	Channel string    `json:"channel"`
	RunID   string    `json:"run_id"`
	At      time.Time `json:"at"`
	BatchProgress
}

// SimilarityMatch is a vector entry scored against a query vector.
type SimilarityMatch struct {
	Entry *VectorEntry
	Score float32
}

// SimilarityResult is a ranked search hit.
type SimilarityResult struct {
	ContentID       ID      `json:"content_id"`
	ContentType     string  `json:"content_type"`
	Content         string  `json:"content"`
	SimilarityScore float32 `json:"similarity_score"`
	Metadata        string  `json:"metadata,omitempty"`
}
