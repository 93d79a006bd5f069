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


package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/scour/cleaning"
	"github.com/poiesic/scour/core"
	"github.com/poiesic/scour/events"
	"github.com/poiesic/scour/storage"
)

// DefaultEmbedTimeout bounds indexing of one task's output.
const DefaultEmbedTimeout = 30 * time.Second

// ContentIndexer embeds and stores content in the vector index.
type ContentIndexer interface {
	IndexContent(ctx context.Context, contentID core.ID, contentType, content, model string) ([]*core.VectorEntry, error)
}

// Processor runs pending cleaning tasks sequentially.
type Processor struct {
	tasks        storage.TaskQueue
	cleaner      cleaning.Cleaner
	bus          *events.Bus
	guard        *RunGuard
	indexer      ContentIndexer
	indexModel   string
	indexTypes   []core.TaskType
	embedTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithIndexer indexes the output of successful tasks of the given types with
// model. An empty model lets the indexer pick its default.
func WithIndexer(indexer ContentIndexer, model string, types ...core.TaskType) Option {
	return func(p *Processor) {
		p.indexer = indexer
		p.indexModel = model
		p.indexTypes = types
	}
}

// WithEmbedTimeout sets the time allowed for indexing one task's output.
func WithEmbedTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.embedTimeout = d
		}
	}
}

// WithRunGuard shares guard with other runners.
func WithRunGuard(guard *RunGuard) Option {
	return func(p *Processor) {
		if guard != nil {
			p.guard = guard
		}
	}
}

// WithClock overrides the clock used for progress estimates.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor creates a Processor.
func NewProcessor(tasks storage.TaskQueue, cleaner cleaning.Cleaner, bus *events.Bus, opts ...Option) (*Processor, error) {
	if tasks == nil {
		return nil, ErrTaskRepositoryRequired
	}
	if cleaner == nil {
		return nil, ErrCleanerRequired
	}
	if bus == nil {
		return nil, ErrBusRequired
	}

	p := &Processor{
		tasks:        tasks,
		cleaner:      cleaner,
		bus:          bus,
		guard:        NewRunGuard(),
		embedTimeout: DefaultEmbedTimeout,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "batch-processor")
	return p, nil
}

// Guard returns the run guard used by the processor.
func (p *Processor) Guard() *RunGuard {
	return p.guard
}

// RunPending processes every pending task in priority order and returns
// how many were attempted. A failing task is marked failed and the run
// continues. Cancellation of ctx is checked between tasks; tasks not yet
// started stay pending. Returns ErrAlreadyRunning if another run is active.
func (p *Processor) RunPending(ctx context.Context) (int, error) {
	if !p.guard.TryAcquire() {
		return 0, ErrAlreadyRunning
	}
	defer p.guard.Release()

	pending, err := p.tasks.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending tasks: %w", err)
	}

	run := NewRun(p.bus, events.CleaningProgress, len(pending), p.now)
	logger := p.logger.With("run_id", run.ID)
	logger.Info("starting batch", "tasks", len(pending))
	run.Started()

	var errs []error
	for _, task := range pending {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := p.processTask(ctx, run, task, logger); err != nil {
			errs = append(errs, err)
		}
	}

	final := run.Completed()
	logger.Info("batch finished",
		"processed", final.Processed,
		"failed", final.Failed,
		"total", final.Total)
	return final.Attempted(), errors.Join(errs...)
}

// RunTask runs the pending task id through the same lifecycle as
// RunPending and returns its final state. Cleaning failures are recorded on
// the returned task rather than returned as errors. Returns
// ErrAlreadyRunning if another run is active, storage.ErrNotFound for an
// unknown id and core.ErrInvalidTransition if the task is not pending.
func (p *Processor) RunTask(ctx context.Context, id core.ID) (*core.CleaningTask, error) {
	if !p.guard.TryAcquire() {
		return nil, ErrAlreadyRunning
	}
	defer p.guard.Release()

	task, err := p.tasks.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", id, err)
	}
	if task.Status != core.TaskStatusPending {
		return nil, fmt.Errorf("%w: task %s is %s", core.ErrInvalidTransition, id, task.Status)
	}

	run := NewRun(p.bus, events.CleaningProgress, 1, p.now)
	logger := p.logger.With("run_id", run.ID)
	logger.Info("running single task", "task_id", id, "type", task.Type)
	run.Started()

	final, err := p.processTask(ctx, run, task, logger)
	run.Completed()
	return final, err
}

// processTask runs one task through its lifecycle and returns the stored
// result. The returned error reports storage failures only; cleaning
// failures are recorded on the task.
func (p *Processor) processTask(ctx context.Context, run *Run, task *core.CleaningTask, logger *slog.Logger) (*core.CleaningTask, error) {
	// Outcomes are recorded even if ctx is canceled mid-task.
	storeCtx := context.WithoutCancel(ctx)

	started, err := p.tasks.ClaimTask(storeCtx, task.Id)
	if err != nil {
		run.Begin(task.Id)
		run.Finish(false)
		logger.Error("failed to start task", "task_id", task.Id, "err", err)
		return nil, fmt.Errorf("failed to start task %s: %w", task.Id, err)
	}
	run.Begin(task.Id)

	output, err := p.execute(ctx, started)
	if err != nil {
		logger.Warn("task failed", "task_id", task.Id, "type", task.Type, "err", err)
		run.Finish(false)
		return p.fail(storeCtx, task.Id, err)
	}

	completed, err := p.tasks.CompleteTask(storeCtx, task.Id, output)
	if err != nil {
		run.Finish(false)
		logger.Error("failed to complete task", "task_id", task.Id, "err", err)
		failed, failErr := p.fail(storeCtx, task.Id, err)
		return failed, errors.Join(fmt.Errorf("failed to complete task %s: %w", task.Id, err), failErr)
	}
	run.Finish(true)
	logger.Debug("task completed", "task_id", task.Id, "type", task.Type, "output_bytes", len(output))
	return completed, nil
}

func (p *Processor) execute(ctx context.Context, task *core.CleaningTask) (string, error) {
	output, err := p.cleaner.Clean(ctx, task)
	if err != nil {
		return "", err
	}
	if p.indexer != nil && slices.Contains(p.indexTypes, task.Type) {
		if err := p.index(ctx, task, output); err != nil {
			return "", err
		}
	}
	return output, nil
}

func (p *Processor) index(ctx context.Context, task *core.CleaningTask, output string) error {
	ictx, cancel := context.WithTimeout(ctx, p.embedTimeout)
	defer cancel()

	_, err := p.indexer.IndexContent(ictx, task.FileID, core.ContentTypeCleanedFile, output, p.indexModel)
	if err == nil {
		return nil
	}
	if errors.Is(ictx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w after %s", ErrEmbedTimeout, p.embedTimeout)
	}
	return fmt.Errorf("failed to index output: %w", err)
}

// fail marks a running task failed with cause as its error message.
func (p *Processor) fail(ctx context.Context, id core.ID, cause error) (*core.CleaningTask, error) {
	failed, err := p.tasks.FailTask(ctx, id, cause.Error())
	if err != nil {
		p.logger.Error("failed to record task failure", "task_id", id, "err", err)
		return nil, fmt.Errorf("failed to record failure of task %s: %w", id, err)
	}
	return failed, nil
}
