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


package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/scour/batch"
	"github.com/poiesic/scour/core"
	"github.com/poiesic/scour/events"
	"github.com/poiesic/scour/storage"
)

// BatchIndexer re-indexes the output of completed text_cleanup tasks.
type BatchIndexer struct {
	tasks   storage.TaskRepository
	indexer batch.ContentIndexer
	bus     *events.Bus
	guard   *batch.RunGuard
	model   string
	now     func() time.Time
	logger  *slog.Logger
}

// BatchOption configures a BatchIndexer.
type BatchOption func(*BatchIndexer)

// WithBatchModel sets the model outputs are indexed with.
func WithBatchModel(model string) BatchOption {
	return func(b *BatchIndexer) {
		b.model = model
	}
}

// WithBatchRunGuard shares guard with other runners.
func WithBatchRunGuard(guard *batch.RunGuard) BatchOption {
	return func(b *BatchIndexer) {
		if guard != nil {
			b.guard = guard
		}
	}
}

// WithBatchClock overrides the clock used for progress estimates.
func WithBatchClock(now func() time.Time) BatchOption {
	return func(b *BatchIndexer) {
		b.now = now
	}
}

// WithBatchLogger sets the logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchIndexer) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBatchIndexer creates a BatchIndexer.
func NewBatchIndexer(tasks storage.TaskRepository, indexer batch.ContentIndexer, bus *events.Bus, opts ...BatchOption) (*BatchIndexer, error) {
	if tasks == nil {
		return nil, ErrTaskRepositoryRequired
	}
	if indexer == nil {
		return nil, ErrIndexerRequired
	}
	if bus == nil {
		return nil, ErrBusRequired
	}
	b := &BatchIndexer{
		tasks:   tasks,
		indexer: indexer,
		bus:     bus,
		guard:   batch.NewRunGuard(),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "batch-indexer")
	return b, nil
}

// RunCompleted indexes the output of every completed text_cleanup task and
// returns how many tasks were attempted. A failed task does not stop the
// run; every failure is counted and joined into the returned error, wrapped
// with the task id. Returns batch.ErrAlreadyRunning if another run is active.
func (b *BatchIndexer) RunCompleted(ctx context.Context) (int, error) {
	if !b.guard.TryAcquire() {
		return 0, batch.ErrAlreadyRunning
	}
	defer b.guard.Release()

	tasks, err := b.tasks.ListTasks(ctx, storage.TaskFilter{
		Status: core.TaskStatusCompleted,
		Type:   core.TaskTypeTextCleanup,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list completed tasks: %w", err)
	}

	run := batch.NewRun(b.bus, events.IndexingProgress, len(tasks), b.now)
	logger := b.logger.With("run_id", run.ID)
	logger.Info("starting re-index", "tasks", len(tasks))
	run.Started()

	var errs []error
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		run.Begin(task.Id)
		_, err := b.indexer.IndexContent(ctx, task.FileID, core.ContentTypeCleanedFile, task.OutputContent, b.model)
		if err != nil {
			logger.Warn("failed to index task output", "task_id", task.Id, "err", err)
			errs = append(errs, fmt.Errorf("failed to index task %s: %w", task.Id, err))
		}
		run.Finish(err == nil)
	}

	final := run.Completed()
	logger.Info("re-index finished", "processed", final.Processed, "failed", final.Failed)
	return final.Attempted(), errors.Join(errs...)
}
