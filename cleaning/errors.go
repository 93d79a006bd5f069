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


package cleaning

import "errors"

var (
	// ErrNoInput indicates a task has no input content to transform.
	ErrNoInput = errors.New("no input content")

	// ErrCleanerRequired indicates NewRefining was called without a cleaner.
	ErrCleanerRequired = errors.New("cleaner is required")

	// ErrRefinerRequired indicates NewRefining was called without a refiner.
	ErrRefinerRequired = errors.New("refiner is required")
)
