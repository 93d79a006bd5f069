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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidTask indicates a CleaningTask failed validation.
	ErrInvalidTask = errors.New("invalid cleaning task")

	// ErrInvalidTaskType indicates a TaskType outside the supported set.
	ErrInvalidTaskType = errors.New("invalid task type")

	// ErrInvalidTaskStatus indicates a TaskStatus outside the lifecycle states.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrInvalidTransition indicates a status change the lifecycle does not allow,
	// or any mutation of a task in a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidVectorEntry indicates a VectorEntry failed validation.
	ErrInvalidVectorEntry = errors.New("invalid vector entry")

	// ErrDimensionMismatch indicates a vector whose length disagrees with the
	// length already established for its model.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrCorruptRecord indicates stored bytes that cannot be decoded.
	ErrCorruptRecord = errors.New("corrupt record")
)
