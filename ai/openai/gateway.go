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


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/poiesic/scour/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Gateway implements ai.Gateway using OpenAI-compatible embedding APIs.
type Gateway struct {
	config     *ai.Config
	httpClient *http.Client
	dims       *ai.DimensionGuard
	logger     *slog.Logger

	mu        sync.Mutex
	embedders map[string]embeddings.Embedder
}

var _ ai.Gateway = (*Gateway)(nil)

// Option configures a Gateway or Refiner.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	httpClient *http.Client
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHTTPClient replaces the client used for model listing.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// token returns the API key, or "none" for local OpenAI-compatible services
// that don't require authentication.
func token(config *ai.Config) string {
	if config.APIKey == "" {
		return "none"
	}
	return config.APIKey
}

// newGateway is an internal constructor that returns the concrete type.
func newGateway(config *ai.Config, opts ...Option) (*Gateway, error) {
	if config == nil {
		return nil, ai.ErrConfigRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: slog.Default(), httpClient: &http.Client{Timeout: config.Timeout}}
	for _, opt := range opts {
		opt(&o)
	}

	return &Gateway{
		config:     config,
		httpClient: o.httpClient,
		dims:       ai.NewDimensionGuard(),
		logger:     o.logger.With("component", "openai-gateway"),
		embedders:  make(map[string]embeddings.Embedder),
	}, nil
}

// NewGateway creates a gateway for an OpenAI-compatible service.
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

	client, err := openai.New(
		openai.WithBaseURL(g.config.CompatibleHost()),
		openai.WithToken(token(g.config)),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}

	e, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create openai embedder: %w", err)
	}
	g.embedders[model] = e
	return e, nil
}

// Embed generates a vector embedding for text with model.
func (g *Gateway) Embed(ctx context.Context, text string, model string) ([]float32, error) {
	if model == "" {
		model = g.config.DefaultModel
	}
	g.logger.Debug("generating embedding", "model", model, "length", len(text))

	e, err := g.embedder(model)
	if err != nil {
		return nil, err
	}

	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		g.logger.Warn("failed to generate embedding", "model", model, "err", err)
		return nil, ai.ClassifyEmbedError(ctx, err, model, g.ListModels)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		g.logger.Warn("embedder returned empty result", "model", model)
		return nil, fmt.Errorf("%w: model %s", ai.ErrEmptyEmbedding, model)
	}
	if err := g.dims.Check(model, vectors[0]); err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// modelsResponse is the body of GET /models.
type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ListModels returns the model IDs the service offers.
func (g *Gateway) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.config.CompatibleHost()+"/models", nil)
	if err != nil {
		return nil, err
	}
	if g.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.config.APIKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET /models returned %s", ai.ErrProviderUnavailable, resp.Status)
	}

	var body modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}

	models := make([]string, 0, len(body.Data))
	for _, m := range body.Data {
		models = append(models, m.ID)
	}
	return ai.SortModels(models), nil
}

// CheckConnection reports whether the service answers a model listing.
func (g *Gateway) CheckConnection(ctx context.Context) bool {
	_, err := g.ListModels(ctx)
	if err != nil {
		g.logger.Debug("connection check failed", "err", err)
	}
	return err == nil
}

// Close releases cached embedders.
func (g *Gateway) Close() error {
	g.logger.Debug("closing openai gateway")
	g.mu.Lock()
	defer g.mu.Unlock()
	clear(g.embedders)
	return nil
}
