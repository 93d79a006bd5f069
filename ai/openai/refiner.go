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
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/scour/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxRefineAttempts bounds retries on malformed model output.
const maxRefineAttempts = 3

// ErrEmptyRefinement indicates the model answered without any text.
var ErrEmptyRefinement = errors.New("refiner returned no text")

// Refiner implements ai.Refiner using OpenAI-compatible chat APIs.
type Refiner struct {
	client llms.Model
	logger *slog.Logger
}

var _ ai.Refiner = (*Refiner)(nil)

// refinement is the JSON document the model is asked to return.
type refinement struct {
	CleanedText string `json:"cleaned_text"`
}

// newRefiner is an internal constructor that returns the concrete type.
func newRefiner(config *ai.Config, opts ...Option) (*Refiner, error) {
	if config == nil {
		return nil, ai.ErrConfigRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.RefineModel == "" {
		return nil, errors.New("ai config: RefineModel is required")
	}

	client, err := openai.New(
		openai.WithBaseURL(config.CompatibleHost()),
		openai.WithToken(token(config)),
		openai.WithModel(config.RefineModel),
	)
	if err != nil {
		return nil, err
	}
	return newRefinerWithModel(client, opts...), nil
}

func newRefinerWithModel(client llms.Model, opts ...Option) *Refiner {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Refiner{
		client: client,
		logger: o.logger.With("component", "openai-refiner"),
	}
}

// NewRefiner creates a refiner using the chat model named by config.RefineModel.
//
// Returns ai.Refiner interface to enforce abstraction.
func NewRefiner(config *ai.Config, opts ...Option) (ai.Refiner, error) {
	return newRefiner(config, opts...)
}

// Refine asks the model to polish text and returns its cleaned version.
func (r *Refiner) Refine(ctx context.Context, text string) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildSystemPrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(text)},
		},
	}

	// Try up to maxRefineAttempts times in case of malformed JSON
	var result refinement
	var lastErr error
	for attempt := range maxRefineAttempts {
		response, err := r.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			r.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return "", fmt.Errorf("refine: %w", err)
		}
		if len(response.Choices) < 1 {
			return "", ErrEmptyRefinement
		}

		responseText := repairJSON(stripCodeFences(response.Choices[0].Content))
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			r.logger.Warn("error parsing refiner response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		r.logger.Error("failed to parse refiner response after retries", "err", lastErr)
		return "", fmt.Errorf("refine: %w", lastErr)
	}

	cleaned := strings.TrimSpace(result.CleanedText)
	if cleaned == "" {
		return "", ErrEmptyRefinement
	}
	r.logger.Debug("refined text", "before", len(text), "after", len(cleaned))
	return cleaned, nil
}
