package search

import (
	"context"
	"log/slog"
	"math"

	"github.com/poiesic/scour/ai"
	"github.com/poiesic/scour/core"
	"github.com/poiesic/scour/storage"
)

// Searcher provides semantic similarity search over the vector index.
type Searcher struct {
	vectors      storage.VectorRepository
	gateway      ai.Gateway
	defaultModel string
	logger       *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithDefaultModel sets the model used when a search names none.
func WithDefaultModel(model string) Option {
	return func(s *Searcher) error {
		s.defaultModel = model
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(vectors storage.VectorRepository, gateway ai.Gateway, opts ...Option) (*Searcher, error) {
	if vectors == nil {
		return nil, ErrVectorRepositoryRequired
	}
	if gateway == nil {
		return nil, ErrGatewayRequired
	}

	s := &Searcher{
		vectors: vectors,
		gateway: gateway,
		logger:  slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search returns up to limit entries of model whose similarity to query is
// at least threshold, best first.
func (s *Searcher) Search(ctx context.Context, query string, limit int, threshold float32, model string) ([]*core.SimilarityResult, error) {
	return s.SearchWithMonitor(ctx, query, limit, threshold, model, nil)
}

// SearchWithMonitor is Search with a monitor receiving callbacks at each
// stage. A limit <= 0 returns no results without embedding the query.
// threshold is clamped to [0, 1]. An empty model selects the default model.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, limit int, threshold float32, model string, monitor SearchMonitor) ([]*core.SimilarityResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if model == "" {
		model = s.defaultModel
	}

	monitor.Start(query, model)

	if limit <= 0 {
		results := []*core.SimilarityResult{}
		monitor.Finish(results)
		return results, nil
	}
	if model == "" {
		return nil, ErrModelRequired
	}
	threshold = ClampThreshold(threshold)

	embedding, err := s.gateway.Embed(ctx, query, model)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "model", model, "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(embedding)

	matches, err := s.vectors.FindSimilar(ctx, model, embedding, threshold, limit)
	if err != nil {
		s.logger.Error("error querying for similar entries", "model", model, "err", err)
		return nil, err
	}
	monitor.AfterSimilaritySearch(matches)

	results := make([]*core.SimilarityResult, 0, len(matches))
	for _, match := range matches {
		results = append(results, &core.SimilarityResult{
			ContentID:       match.Entry.ContentID,
			ContentType:     match.Entry.ContentType,
			Content:         match.Entry.Content,
			SimilarityScore: match.Score,
			Metadata:        match.Entry.Metadata,
		})
	}
	monitor.Finish(results)

	s.logger.Debug("search finished", "model", model, "threshold", threshold, "results", len(results))
	return results, nil
}

// ClampThreshold limits t to [0, 1]. NaN becomes 0.
func ClampThreshold(t float32) float32 {
	switch {
	case math.IsNaN(float64(t)) || t < 0:
		return 0
	case t > 1:
		return 1
	default:
		return t
	}
}
