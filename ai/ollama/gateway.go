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


package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/poiesic/scour/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Gateway implements ai.Gateway against an Ollama server.
// One langchaingo embedder is kept per model.
type Gateway struct {
	config     *ai.Config
	httpClient *http.Client
	dims       *ai.DimensionGuard
	logger     *slog.Logger

	mu        sync.Mutex
	embedders map[string]embeddings.Embedder
}

var _ ai.Gateway = (*Gateway)(nil)

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger for the gateway.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithHTTPClient replaces the client used for model listing.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// newGateway is an internal constructor that returns the concrete type.
func newGateway(config *ai.Config, opts ...Option) (*Gateway, error) {
	if config == nil {
		return nil, ai.ErrConfigRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	g := &Gateway{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		dims:       ai.NewDimensionGuard(),
		logger:     slog.Default(),
		embedders:  make(map[string]embeddings.Embedder),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "ollama-gateway")
	return g, nil
}

// NewGateway creates an Ollama gateway.
// Returns ai.Gateway interface to enforce abstraction.
func NewGateway(config *ai.Config, opts ...Option) (ai.Gateway, error) {
	return newGateway(config, opts...)
}

// embedder returns the cached embedder for model, creating it on first use.
func (g *Gateway) embedder(model string) (embeddings.Embedder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.embedders[model]; ok {
		return e, nil
	}

	llm, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(g.config.Host),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	e, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create ollama embedder: %w", err)
	}
	g.embedders[model] = e
	return e, nil
}

// Embed generates an embedding for text with model.
func (g *Gateway) Embed(ctx context.Context, text string, model string) ([]float32, error) {
	if model == "" {
		model = g.config.DefaultModel
	}
	g.logger.Debug("generating embedding", "model", model, "length", len(text))

	e, err := g.embedder(model)
	if err != nil {
		return nil, err
	}

	vector, err := e.EmbedQuery(ctx, text)
	if err != nil {
		g.logger.Warn("embedding failed", "model", model, "err", err)
		return nil, ai.ClassifyEmbedError(ctx, err, model, g.ListModels)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: model %s", ai.ErrEmptyEmbedding, model)
	}
	if err := g.dims.Check(model, vector); err != nil {
		return nil, err
	}
	return vector, nil
}

// tagsResponse is the body of GET /api/tags.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the models installed on the server.
func (g *Gateway) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.config.Host+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET /api/tags returned %s", ai.ErrProviderUnavailable, resp.Status)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}

	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, m.Name)
	}
	return ai.SortModels(models), nil
}

// CheckConnection reports whether the server answers a model listing.
func (g *Gateway) CheckConnection(ctx context.Context) bool {
	_, err := g.ListModels(ctx)
	if err != nil {
		g.logger.Debug("connection check failed", "err", err)
	}
	return err == nil
}

// Close releases cached embedders.
func (g *Gateway) Close() error {
	g.logger.Debug("closing ollama gateway")
	g.mu.Lock()
	defer g.mu.Unlock()
	clear(g.embedders)
	return nil
}
