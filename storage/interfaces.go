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


package storage

import (
	"context"

	"github.com/poiesic/scour/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository. The backend is
	// closed separately.
	Close() error
}

// TaskFilter narrows ListTasks. Zero-valued fields do not filter.
type TaskFilter struct {
	Status core.TaskStatus
	Type   core.TaskType
	// Query is a case-insensitive substring matched against the task type,
	// status, input, output and error message. Any field may match.
	Query string
}

// TaskRepository provides operations for managing cleaning tasks.
type TaskRepository interface {
	Repository

	// CreateTask queues a new pending task.
	// Assigns the ID from a sequence and stamps CreatedAt.
	// Returns core.ErrInvalidTaskType for unknown task types.
	CreateTask(ctx context.Context, task core.NewTask) (*core.CleaningTask, error)

	// CreateTasks queues several tasks in one transaction. Either every
	// task is created or none is.
	CreateTasks(ctx context.Context, tasks []core.NewTask) ([]*core.CleaningTask, error)

	// GetTask retrieves a single task by ID.
	// Returns ErrNotFound if the task doesn't exist.
	GetTask(ctx context.Context, id core.ID) (*core.CleaningTask, error)

	// ListTasks returns the tasks matching filter ordered by CreatedAt
	// descending, ties broken by ID descending.
	ListTasks(ctx context.Context, filter TaskFilter) ([]*core.CleaningTask, error)

	// ListPending returns pending tasks in processing order: Priority
	// descending, then CreatedAt ascending, then ID ascending.
	ListPending(ctx context.Context) ([]*core.CleaningTask, error)

	// UpdateTask edits the priority or input of a pending task.
	// Returns ErrNotFound if the task doesn't exist and
	// core.ErrInvalidTransition if the task is no longer pending or the
	// update asks for a status change.
	UpdateTask(ctx context.Context, id core.ID, update core.TaskUpdate) (*core.CleaningTask, error)

	// DeleteTask removes a task.
	// Returns ErrNotFound if the task doesn't exist.
	DeleteTask(ctx context.Context, id core.ID) error

	// DeleteAllTasks removes every task and returns how many were removed.
	// The count is taken before removal; tasks created concurrently may be
	// removed without being counted.
	DeleteAllTasks(ctx context.Context) (int, error)

	// TaskStats recomputes aggregates over all stored tasks.
	TaskStats(ctx context.Context) (*core.TaskStats, error)

	// TaskSummary counts tasks by type and status.
	TaskSummary(ctx context.Context) (core.TaskSummary, error)
}

// TaskLifecycle moves claimed tasks through their lifecycle. Only the
// batch processor holds it; TaskRepository never changes a task's status.
// Each method returns ErrNotFound if the task doesn't exist and
// core.ErrInvalidTransition if the task is not in the required state.
type TaskLifecycle interface {
	// ClaimTask moves a pending task to running and stamps StartedAt.
	ClaimTask(ctx context.Context, id core.ID) (*core.CleaningTask, error)

	// CompleteTask moves a running task to completed with output.
	CompleteTask(ctx context.Context, id core.ID, output string) (*core.CleaningTask, error)

	// FailTask moves a running task to failed with reason.
	FailTask(ctx context.Context, id core.ID, reason string) (*core.CleaningTask, error)
}

// TaskQueue is the task store as seen by the batch processor.
type TaskQueue interface {
	TaskRepository
	TaskLifecycle
}

// VectorRepository provides operations for the vector index.
type VectorRepository interface {
	Repository

	// InsertVector stores an entry, assigning its ID and CreatedAt.
	// Returns core.ErrDimensionMismatch if the vector length differs from
	// the dimension established for the model, ErrDuplicateKey if an
	// entry with the same (content, type, chunk, model) tuple exists and
	// core.ErrInvalidVectorEntry for malformed entries.
	InsertVector(ctx context.Context, entry *core.VectorEntry) (*core.VectorEntry, error)

	// GetVector retrieves an entry by ID.
	// Returns ErrNotFound if the entry doesn't exist.
	GetVector(ctx context.Context, id core.ID) (*core.VectorEntry, error)

	// DeleteVector removes an entry by ID.
	// Returns ErrNotFound if the entry doesn't exist.
	DeleteVector(ctx context.Context, id core.ID) error

	// ListForContent returns every chunk of a content item across all
	// models, ordered by ID ascending.
	ListForContent(ctx context.Context, contentID core.ID, contentType string) ([]*core.VectorEntry, error)

	// ReplaceForContent atomically replaces the chunks of a content item
	// stored for model with entries and returns the stored entries.
	// Chunks of other models are kept. On error nothing changes.
	// Returns core.ErrInvalidVectorEntry when an entry belongs to another
	// content item or model.
	ReplaceForContent(ctx context.Context, contentID core.ID, contentType, model string, entries []*core.VectorEntry) ([]*core.VectorEntry, error)

	// DeleteForContent removes every chunk of a content item across all
	// models and returns how many entries were removed.
	DeleteForContent(ctx context.Context, contentID core.ID, contentType string) (int, error)

	// ClearVectors removes every entry and returns how many were removed.
	// The count is taken before removal; entries inserted concurrently may
	// be removed without being counted.
	ClearVectors(ctx context.Context) (int, error)

	// ListVectors returns all entries ordered by ID ascending.
	ListVectors(ctx context.Context) ([]*core.VectorEntry, error)

	// VectorStats recomputes aggregates over the index.
	VectorStats(ctx context.Context) (*core.VectorStats, error)

	// FindSimilar scores entries of model against vector by cosine
	// similarity. Returns entries with score >= minSimilarity, at most
	// limit of them, ordered by score descending, then CreatedAt
	// ascending, then ID ascending.
	FindSimilar(ctx context.Context, model string, vector []float32, minSimilarity float32, limit int) ([]*core.SimilarityMatch, error)
}
