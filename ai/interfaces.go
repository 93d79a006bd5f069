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

import "context"

// Gateway is the embedding provider used for indexing and search.
// Implementations must be safe for concurrent use.
type Gateway interface {
	// Embed returns the embedding of text produced by model.
	// Returns ErrProviderUnavailable when the service cannot be reached,
	// ErrModelNotFound when the service does not know model and
	// core.ErrDimensionMismatch when model returns a vector whose length
	// differs from the first one it produced.
	Embed(ctx context.Context, text string, model string) ([]float32, error)

	// CheckConnection reports whether the service answers. It never errors.
	CheckConnection(ctx context.Context) bool

	// ListModels returns the model names the service offers, sorted and
	// de-duplicated.
	ListModels(ctx context.Context) ([]string, error)

	// Close releases resources held by the gateway.
	Close() error
}

// Refiner polishes cleaned text with a language model.
type Refiner interface {
	// Refine returns an improved version of text. It must not add content.
	Refine(ctx context.Context, text string) (string, error)
}
