// Package provider selects an ai.Gateway and ai.Refiner implementation
// from an ai.Config.
package provider

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/scour/ai"
	"github.com/poiesic/scour/ai/ollama"
	"github.com/poiesic/scour/ai/openai"
)

// NewGateway returns the gateway for config.Provider.
func NewGateway(config *ai.Config, logger *slog.Logger) (ai.Gateway, error) {
	if config == nil {
		return nil, ai.ErrConfigRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Provider {
	case ai.ProviderOllama:
		return ollama.NewGateway(config, ollama.WithLogger(logger))
	case ai.ProviderOpenAI:
		return openai.NewGateway(config, openai.WithLogger(logger))
	}
	return nil, fmt.Errorf("%w: %q", ai.ErrUnsupportedProvider, config.Provider)
}

// NewRefiner returns a refiner for config.RefineModel. Both providers are
// reached through their OpenAI-compatible chat API.
func NewRefiner(config *ai.Config, logger *slog.Logger) (ai.Refiner, error) {
	return openai.NewRefiner(config, openai.WithLogger(logger))
}
