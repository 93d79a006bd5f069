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


package batch

import "errors"

var (
	// ErrAlreadyRunning indicates another batch run holds the run guard.
	ErrAlreadyRunning = errors.New("batch already running")

	// ErrEmbedTimeout indicates indexing a task's output exceeded the embed timeout.
	ErrEmbedTimeout = errors.New("embedding timed out")

	// ErrTaskRepositoryRequired indicates a nil task repository was provided.
	ErrTaskRepositoryRequired = errors.New("task repository is required")

	// ErrCleanerRequired indicates a nil cleaner was provided.
	ErrCleanerRequired = errors.New("cleaner is required")

	// ErrBusRequired indicates a nil event bus was provided.
	ErrBusRequired = errors.New("event bus is required")
)
