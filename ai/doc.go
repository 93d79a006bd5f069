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


// Package ai provides abstractions for the AI services used by scour.
//
// # Design Principles
//
// The package is designed around two interfaces:
//
//   - Gateway: embeds text with a named model, lists models and checks
//     whether the service is reachable
//   - Refiner: polishes cleaned text with a chat model
//
// Gateways classify failures into ErrProviderUnavailable and
// ErrModelNotFound, and guard the per-model vector length with a
// DimensionGuard so a model that changes shape is reported as
// core.ErrDimensionMismatch before anything reaches the index.
//
// # Implementation Packages
//
//   - ai/ollama: native Ollama API through langchaingo
//   - ai/openai: OpenAI-compatible APIs through langchaingo, plus the Refiner
//   - ai/mock: test doubles for unit testing without external dependencies
//   - ai/provider: picks an implementation from Config.Provider
//
// # Constructor Return Type Pattern
//
// Public constructors (ollama.NewGateway, openai.NewRefiner, etc.) return
// INTERFACE types to enforce abstraction. Test doubles (mock.NewMockGateway)
// return CONCRETE types to enable assertions and behavior injection.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	gateway, err := provider.NewGateway(config, slog.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gateway.Close()
//
//	vector, err := gateway.Embed(ctx, "Hello world", "")
package ai
