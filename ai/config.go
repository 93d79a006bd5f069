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


package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Supported providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type Config struct {
	// Provider selects the implementation: "ollama" or "openai".
	Provider string `yaml:"provider"`

	// Host is the base URL of the service.
	// Example: "http://localhost:11434" for Ollama, "https://api.openai.com/v1" for OpenAI
	Host string `yaml:"host"`

	// APIKey authenticates against OpenAI-compatible services.
	// Local servers that don't require authentication can leave it empty.
	APIKey string `yaml:"api_key"`

	// DefaultModel is the embedding model used when a caller doesn't name one.
	// Example: "nomic-embed-text", "text-embedding-3-small"
	DefaultModel string `yaml:"default_model"`

	// RefineModel is the chat model used to refine cleaned text.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	RefineModel string `yaml:"refine_model"`

	// Timeout bounds requests made outside of an embedding call, such as
	// listing models or checking the connection.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

type ConfigOption func(*Config)

func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

func WithDefaultModel(model string) ConfigOption {
	return func(c *Config) {
		c.DefaultModel = model
	}
}

func WithRefineModel(model string) ConfigOption {
	return func(c *Config) {
		c.RefineModel = model
	}
}

func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

func DefaultConfig() *Config {
	return &Config{
		Provider:     ProviderOllama,
		Host:         "http://localhost:11434",
		DefaultModel: "nomic-embed-text",
		RefineModel:  "qwen2.5:3b",
		Timeout:      10 * time.Second,
	}
}

func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize puts Host into the form the provider expects: Ollama's native
// API lives at the server root, OpenAI-compatible APIs under /v1.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	host := strings.TrimSuffix(strings.TrimSpace(c.Host), "/")
	if host == "" {
		c.Host = ""
		return
	}
	switch c.Provider {
	case ProviderOllama:
		host = strings.TrimSuffix(host, "/v1")
	case ProviderOpenAI:
		if !strings.HasSuffix(host, "/v1") {
			host += "/v1"
		}
	}
	c.Host = host
}

// CompatibleHost returns the OpenAI-compatible base URL of the service.
// Ollama serves one under /v1 next to its native API.
func (c *Config) CompatibleHost() string {
	host := strings.TrimSuffix(c.Host, "/")
	if strings.HasSuffix(host, "/v1") {
		return host
	}
	return host + "/v1"
}

func (c *Config) Validate() error {
	// Normalize first to ensure hosts are in correct format
	c.Normalize()

	if c.Provider != ProviderOllama && c.Provider != ProviderOpenAI {
		return fmt.Errorf("ai config: %w: %q", ErrUnsupportedProvider, c.Provider)
	}
	if c.Host == "" {
		return errors.New("ai config: Host is required")
	}
	if c.DefaultModel == "" {
		return errors.New("ai config: DefaultModel is required")
	}
	if c.Timeout <= 0 {
		return errors.New("ai config: Timeout must be positive")
	}
	return nil
}
