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


package scour

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/scour/ai"
	"github.com/poiesic/scour/ai/provider"
	"github.com/poiesic/scour/batch"
	"github.com/poiesic/scour/cleaning"
	"github.com/poiesic/scour/config"
	"github.com/poiesic/scour/core"
	"github.com/poiesic/scour/events"
	"github.com/poiesic/scour/indexing"
	"github.com/poiesic/scour/search"
	"github.com/poiesic/scour/storage"
	"github.com/poiesic/scour/storage/badger"
)

type Database struct {
	backend *badger.Backend
	tasks   storage.TaskQueue
	vectors storage.VectorRepository
	gateway ai.Gateway
	refiner ai.Refiner
	indexer *indexing.Indexer
	bus     *events.Bus
	guard   *batch.RunGuard
	config  *config.Config
	logger  *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	config  *config.Config
	gateway ai.Gateway
	refiner ai.Refiner
	logger  *slog.Logger
}

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.config = cfg
	}
}

// WithGateway uses gateway instead of building one from the AI config.
func WithGateway(gateway ai.Gateway) DatabaseOption {
	return func(o *databaseOptions) {
		o.gateway = gateway
	}
}

// WithRefiner uses refiner instead of building one when refining is enabled.
func WithRefiner(refiner ai.Refiner) DatabaseOption {
	return func(o *databaseOptions) {
		o.refiner = refiner
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewDatabase opens the store at filePath. An empty filePath falls back to
// the configured database path.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		config: config.Default(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	cfg := options.config
	if filePath != "" {
		cfg.Storage.DatabasePath = filePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := options.logger

	backend, err := badger.OpenBackend(cfg.Storage.DatabasePath, cfg.Storage.InMemory, badger.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	tasks, vectors, err := badger.NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	db := &Database{
		backend: backend,
		tasks:   tasks,
		vectors: vectors,
		gateway: options.gateway,
		refiner: options.refiner,
		bus:     events.NewBus(events.WithLogger(logger)),
		guard:   batch.NewRunGuard(),
		config:  cfg,
		logger:  logger,
	}

	if db.gateway == nil {
		db.gateway, err = provider.NewGateway(&cfg.AI, logger)
		if err != nil {
			db.closeStorage()
			return nil, err
		}
	}
	if cfg.Batch.Refine && db.refiner == nil {
		db.refiner, err = provider.NewRefiner(&cfg.AI, logger)
		if err != nil {
			db.gateway.Close()
			db.closeStorage()
			return nil, err
		}
	}

	db.indexer, err = indexing.NewIndexer(vectors, db.gateway,
		indexing.WithPoolSize(cfg.Indexing.Workers),
		indexing.WithChunkSize(cfg.Indexing.ChunkSize),
		indexing.WithRetry(cfg.Indexing.MaxAttempts, cfg.Indexing.RetryDelay),
		indexing.WithDefaultModel(cfg.IndexModel()),
		indexing.WithLogger(logger))
	if err != nil {
		db.gateway.Close()
		db.closeStorage()
		return nil, err
	}
	return db, nil
}

func (db *Database) Close() error {
	db.indexer.Release()

	// Close AI gateway first
	if err := db.gateway.Close(); err != nil {
		db.logger.Error("error closing AI gateway", "err", err)
	}
	return db.closeStorage()
}

func (db *Database) closeStorage() error {
	var errs []error
	if err := db.vectors.Close(); err != nil {
		db.logger.Error("error closing vector repository", "err", err)
		errs = append(errs, err)
	}
	if err := db.tasks.Close(); err != nil {
		db.logger.Error("error closing task repository", "err", err)
		errs = append(errs, err)
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TaskRepository returns the task store. It edits pending tasks only;
// status changes happen through RunPending and RunTask.
func (db *Database) TaskRepository() storage.TaskRepository {
	return db.tasks
}

func (db *Database) VectorRepository() storage.VectorRepository {
	return db.vectors
}

func (db *Database) Gateway() ai.Gateway {
	return db.gateway
}

// Events returns the bus batch runs publish progress on.
func (db *Database) Events() *events.Bus {
	return db.bus
}

func (db *Database) Config() *config.Config {
	return db.config
}

// NewCleaner returns the transform pipeline used by batch runs.
func (db *Database) NewCleaner() (cleaning.Cleaner, error) {
	transformer := cleaning.NewTransformer(cleaning.WithLogger(db.logger))
	if db.refiner == nil {
		return transformer, nil
	}
	return cleaning.NewRefining(transformer, db.refiner, db.logger)
}

func (db *Database) NewProcessor(opts ...batch.Option) (*batch.Processor, error) {
	cleaner, err := db.NewCleaner()
	if err != nil {
		return nil, err
	}
	defaults := []batch.Option{
		batch.WithRunGuard(db.guard),
		batch.WithEmbedTimeout(db.config.Batch.EmbedTimeout),
		batch.WithIndexer(db.indexer, db.config.IndexModel(), db.config.Batch.IndexTaskTypes...),
		batch.WithLogger(db.logger),
	}
	return batch.NewProcessor(db.tasks, cleaner, db.bus, append(defaults, opts...)...)
}

func (db *Database) NewBatchIndexer(opts ...indexing.BatchOption) (*indexing.BatchIndexer, error) {
	defaults := []indexing.BatchOption{
		indexing.WithBatchRunGuard(db.guard),
		indexing.WithBatchModel(db.config.IndexModel()),
		indexing.WithBatchLogger(db.logger),
	}
	return indexing.NewBatchIndexer(db.tasks, db.indexer, db.bus, append(defaults, opts...)...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	defaults := []search.Option{
		search.WithDefaultModel(db.config.AI.DefaultModel),
		search.WithLogger(db.logger),
	}
	return search.NewSearcher(db.vectors, db.gateway, append(defaults, opts...)...)
}

// TaskPage is one page of a filtered task listing.
type TaskPage struct {
	Tasks      []*core.CleaningTask
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// ListTasks returns page of the tasks matching filter, newest first.
// A pageSize <= 0 returns every match on a single page.
func (db *Database) ListTasks(ctx context.Context, filter storage.TaskFilter, page, pageSize int) (*TaskPage, error) {
	all, err := db.tasks.ListTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		return &TaskPage{Tasks: all, Total: len(all), Page: 1, PageSize: len(all), TotalPages: 1}, nil
	}
	return &TaskPage{
		Tasks:      core.Paginate(all, page, pageSize),
		Total:      len(all),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: core.PageCount(len(all), pageSize),
	}, nil
}

// RunPending runs every pending task. See batch.Processor.RunPending.
func (db *Database) RunPending(ctx context.Context) (int, error) {
	p, err := db.NewProcessor()
	if err != nil {
		return 0, err
	}
	return p.RunPending(ctx)
}

// RunTask runs one pending task by id. See batch.Processor.RunTask.
func (db *Database) RunTask(ctx context.Context, id core.ID) (*core.CleaningTask, error) {
	p, err := db.NewProcessor()
	if err != nil {
		return nil, err
	}
	return p.RunTask(ctx, id)
}

// QueueFile queues the standard cleaning tasks for one file (see
// core.FileTasks) in a single transaction.
func (db *Database) QueueFile(ctx context.Context, fileID core.ID, content string) ([]*core.CleaningTask, error) {
	return db.tasks.CreateTasks(ctx, core.FileTasks(fileID, content))
}

// TaskSummary counts tasks by type and status.
func (db *Database) TaskSummary(ctx context.Context) (core.TaskSummary, error) {
	return db.tasks.TaskSummary(ctx)
}

// ClearTasks removes every task and returns how many were removed. It holds
// the run guard so no batch run writes tasks meanwhile, and returns
// batch.ErrAlreadyRunning if a run is active.
func (db *Database) ClearTasks(ctx context.Context) (int, error) {
	if !db.guard.TryAcquire() {
		return 0, batch.ErrAlreadyRunning
	}
	defer db.guard.Release()
	return db.tasks.DeleteAllTasks(ctx)
}

// ClearVectors removes every vector entry and returns how many were
// removed. Like ClearTasks it refuses to run during a batch run.
func (db *Database) ClearVectors(ctx context.Context) (int, error) {
	if !db.guard.TryAcquire() {
		return 0, batch.ErrAlreadyRunning
	}
	defer db.guard.Release()
	return db.vectors.ClearVectors(ctx)
}

// ReindexCompleted re-indexes completed text_cleanup outputs. See
// indexing.BatchIndexer.RunCompleted.
func (db *Database) ReindexCompleted(ctx context.Context) (int, error) {
	b, err := db.NewBatchIndexer()
	if err != nil {
		return 0, err
	}
	return b.RunCompleted(ctx)
}

// IndexContent embeds content and replaces its stored chunks for model.
func (db *Database) IndexContent(ctx context.Context, contentID core.ID, contentType, content, model string) ([]*core.VectorEntry, error) {
	return db.indexer.IndexContent(ctx, contentID, contentType, content, model)
}

// Search runs a similarity search. An empty model uses the default model.
func (db *Database) Search(ctx context.Context, query string, limit int, threshold float32, model string) ([]*core.SimilarityResult, error) {
	s, err := db.NewSearcher()
	if err != nil {
		return nil, err
	}
	return s.Search(ctx, query, limit, threshold, model)
}

// Embed embeds text with model, or the default model when model is empty.
func (db *Database) Embed(ctx context.Context, text, model string) ([]float32, error) {
	if model == "" {
		model = db.config.AI.DefaultModel
	}
	return db.gateway.Embed(ctx, text, model)
}

// Ping reports whether the embedding service answers.
func (db *Database) Ping(ctx context.Context) bool {
	return db.gateway.CheckConnection(ctx)
}

// Models lists the models offered by the embedding service.
func (db *Database) Models(ctx context.Context) ([]string, error) {
	return db.gateway.ListModels(ctx)
}
