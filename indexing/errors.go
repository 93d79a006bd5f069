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

import "errors"

var (
	// ErrVectorRepositoryRequired indicates a nil vector repository was provided.
	ErrVectorRepositoryRequired = errors.New("vector repository is required")

	// ErrTaskRepositoryRequired indicates a nil task repository was provided.
	ErrTaskRepositoryRequired = errors.New("task repository is required")

	// ErrGatewayRequired indicates a nil embedding gateway was provided.
	ErrGatewayRequired = errors.New("embedding gateway is required")

	// ErrIndexerRequired indicates a nil indexer was provided.
	ErrIndexerRequired = errors.New("indexer is required")

	// ErrBusRequired indicates a nil event bus was provided.
	ErrBusRequired = errors.New("event bus is required")

	// ErrModelRequired indicates no model was given and no default is configured.
	ErrModelRequired = errors.New("embedding model is required")

	// ErrNoContent indicates there was nothing to index.
	ErrNoContent = errors.New("no content to index")

	// ErrInvalidMaxAttempts indicates maxAttempts is <= 0.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
