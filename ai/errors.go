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

import "errors"

var (
	// ErrProviderUnavailable indicates the embedding service could not be reached.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrModelNotFound indicates the service does not offer the requested model.
	ErrModelNotFound = errors.New("model not found")

	// ErrEmptyEmbedding indicates the service answered without a vector.
	ErrEmptyEmbedding = errors.New("empty embedding returned")

	// ErrUnsupportedProvider indicates a Config.Provider with no implementation.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrConfigRequired indicates a nil Config was passed to a constructor.
	ErrConfigRequired = errors.New("ai config is required")
)
