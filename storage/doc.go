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


// Package storage provides the storage abstraction layer for scour.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic. The only production backend is BadgerDB (storage/badger),
// which also offers an in-memory mode for tests.
//
// # Architecture
//
//   - TaskRepository: the cleaning task queue
//   - VectorRepository: the vector index, including similarity queries
//
// Records are persisted with MUS binary encoding (see serialization.go).
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	tasks, err := badger.NewTaskRepository(backend)
//
// Use in tests with in-memory storage:
//
//	tasks, vectors, backend, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines. Reads see a consistent
// snapshot per call.
package storage
