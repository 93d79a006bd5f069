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


package storage

import (
	"fmt"

	"github.com/poiesic/scour/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: id: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalTask serializes a CleaningTask to bytes.
func MarshalTask(task *core.CleaningTask) []byte {
	buf := make([]byte, core.TaskMUS.Size(*task))
	core.TaskMUS.Marshal(*task, buf)
	return buf
}

// UnmarshalTask deserializes a CleaningTask from bytes.
func UnmarshalTask(data []byte) (*core.CleaningTask, error) {
	task, _, err := core.TaskMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: task: %w", ErrSerializationFailed, err)
	}
	return &task, nil
}

// MarshalVectorEntry serializes a VectorEntry to bytes.
func MarshalVectorEntry(entry *core.VectorEntry) []byte {
	buf := make([]byte, core.VectorEntryMUS.Size(*entry))
	core.VectorEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalVectorEntry deserializes a VectorEntry from bytes.
func UnmarshalVectorEntry(data []byte) (*core.VectorEntry, error) {
	entry, _, err := core.VectorEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: vector entry: %w", ErrSerializationFailed, err)
	}
	return &entry, nil
}

// MarshalModelDimension serializes a ModelDimension to bytes.
func MarshalModelDimension(md *core.ModelDimension) []byte {
	buf := make([]byte, core.ModelDimensionMUS.Size(*md))
	core.ModelDimensionMUS.Marshal(*md, buf)
	return buf
}

// UnmarshalModelDimension deserializes a ModelDimension from bytes.
func UnmarshalModelDimension(data []byte) (*core.ModelDimension, error) {
	md, _, err := core.ModelDimensionMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: model dimension: %w", ErrSerializationFailed, err)
	}
	return &md, nil
}
