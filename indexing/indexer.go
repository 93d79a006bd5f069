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
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/scour/ai"
	"github.com/poiesic/scour/core"
	"github.com/poiesic/scour/storage"
)

// Indexer embeds content chunks and stores them in the vector index.
type Indexer struct {
	vectors      storage.VectorRepository
	gateway      ai.Gateway
	pool         *ants.Pool
	chunkSize    int
	maxAttempts  int
	baseDelay    time.Duration
	defaultModel string
	logger       *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithPoolSize sets the number of chunks embedded concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(ix *Indexer) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if ix.pool != nil {
			ix.pool.Release()
		}
		ix.pool = pool
		return nil
	}
}

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(ix *Indexer) error {
		if size > 0 {
			ix.chunkSize = size
		}
		return nil
	}
}

// WithRetry retries embedding calls that fail with ai.ErrProviderUnavailable.
// Default is a single attempt.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(ix *Indexer) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		ix.maxAttempts = maxAttempts
		ix.baseDelay = baseDelay
		return nil
	}
}

// WithDefaultModel sets the model used when IndexContent gets none.
func WithDefaultModel(model string) Option {
	return func(ix *Indexer) error {
		ix.defaultModel = model
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

// NewIndexer creates an Indexer. Call Release when done.
func NewIndexer(vectors storage.VectorRepository, gateway ai.Gateway, opts ...Option) (*Indexer, error) {
	if vectors == nil {
		return nil, ErrVectorRepositoryRequired
	}
	if gateway == nil {
		return nil, ErrGatewayRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	ix := &Indexer{
		vectors:     vectors,
		gateway:     gateway,
		pool:        pool,
		chunkSize:   DefaultChunkSize,
		maxAttempts: 1,
		baseDelay:   100 * time.Millisecond,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(ix); optErr != nil {
			ix.Release()
			return nil, optErr
		}
	}
	ix.logger = ix.logger.With("component", "indexer")
	return ix, nil
}

// Release stops the worker pool. The Indexer must not be used afterwards.
func (ix *Indexer) Release() {
	if ix.pool != nil {
		ix.pool.Release()
	}
}

// IndexContent replaces the chunks of a content item stored for model with
// freshly embedded ones and returns the stored entries in chunk order.
// Nothing is written unless every chunk embeds successfully, and the old
// chunks are swapped for the new ones in a single transaction: if storing
// fails the previous chunks are still there.
func (ix *Indexer) IndexContent(ctx context.Context, contentID core.ID, contentType, content, model string) ([]*core.VectorEntry, error) {
	if model == "" {
		model = ix.defaultModel
	}
	if model == "" {
		return nil, ErrModelRequired
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrNoContent
	}
	chunks := Chunk(content, ix.chunkSize)

	vectors, err := ix.embedChunks(ctx, chunks, model)
	if err != nil {
		return nil, err
	}

	entries := make([]*core.VectorEntry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = &core.VectorEntry{
			ContentID:   contentID,
			ContentType: contentType,
			Content:     chunk,
			Vector:      vectors[i],
			ModelName:   model,
			ChunkIndex:  int64(i),
			Metadata:    "chunk_length:" + strconv.Itoa(len(chunk)),
		}
	}

	stored, err := ix.vectors.ReplaceForContent(ctx, contentID, contentType, model, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to store chunks of content %s: %w", contentID, err)
	}

	ix.logger.Debug("indexed content",
		"content_id", contentID,
		"content_type", contentType,
		"model", model,
		"chunks", len(stored))
	return stored, nil
}

// embedChunks embeds every chunk on the pool, keeping chunk order.
func (ix *Indexer) embedChunks(ctx context.Context, chunks []string, model string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	errs := make([]error, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		err := ix.pool.Submit(func() {
			defer wg.Done()
			errs[i] = RetryWithBackoff(ctx, func() error {
				v, err := ix.gateway.Embed(ctx, chunk, model)
				if err != nil {
					return err
				}
				vectors[i] = v
				return nil
			}, ix.maxAttempts, ix.baseDelay)
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("failed to schedule chunk %d: %w", i, err)
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
	}
	return vectors, nil
}
