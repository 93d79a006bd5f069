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

import (
	"fmt"
	"time"
)

// ValidateTaskType validates that a TaskType is one of the supported transforms.
func ValidateTaskType(t TaskType) error {
	for _, known := range TaskTypes {
		if t == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidTaskType, t)
}

// ValidateTaskStatus validates that a TaskStatus is a lifecycle state.
func ValidateTaskStatus(s TaskStatus) error {
	for _, known := range TaskStatuses {
		if s == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidTaskStatus, s)
}

// ValidateTransition checks a status change against the lifecycle:
// pending -> running -> {completed, failed}.
func ValidateTransition(from, to TaskStatus) error {
	switch {
	case from == TaskStatusPending && to == TaskStatusRunning:
		return nil
	case from == TaskStatusRunning && to.IsTerminal():
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// ValidateTask validates a CleaningTask according to domain rules.
//
// Validation rules:
//   - Type and Status must be known values
//   - StartedAt is set iff Status is running, completed or failed
//   - CompletedAt is set iff Status is completed or failed
//   - OutputContent only on completed tasks
//   - ErrorMessage only on failed tasks, and required there
func ValidateTask(task *CleaningTask) error {
	if task == nil {
		return fmt.Errorf("%w: task is nil", ErrInvalidTask)
	}
	if err := ValidateTaskType(task.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}
	if err := ValidateTaskStatus(task.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}

	started := task.Status != TaskStatusPending
	if started == task.StartedAt.IsZero() {
		return fmt.Errorf("%w: started_at does not match status %s", ErrInvalidTask, task.Status)
	}
	if task.Status.IsTerminal() == task.CompletedAt.IsZero() {
		return fmt.Errorf("%w: completed_at does not match status %s", ErrInvalidTask, task.Status)
	}
	if task.OutputContent != "" && task.Status != TaskStatusCompleted {
		return fmt.Errorf("%w: output_content on %s task", ErrInvalidTask, task.Status)
	}
	if (task.ErrorMessage != "") != (task.Status == TaskStatusFailed) {
		return fmt.Errorf("%w: error_message does not match status %s", ErrInvalidTask, task.Status)
	}
	return nil
}

// ApplyTaskUpdate applies a partial update to task in place. Priority and
// input can only be edited while the task is pending. A status change is
// rejected with ErrInvalidTransition. On error the task is left unchanged.
func ApplyTaskUpdate(task *CleaningTask, update TaskUpdate) error {
	if update.Status != nil && *update.Status != task.Status {
		if err := ValidateTaskStatus(*update.Status); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s -> %s: status is only changed by running the task",
			ErrInvalidTransition, task.Status, *update.Status)
	}
	if update.Priority == nil && update.InputContent == nil {
		return nil
	}
	if task.Status != TaskStatusPending {
		return fmt.Errorf("%w: task %d is %s and can only be edited while pending",
			ErrInvalidTransition, task.Id, task.Status)
	}
	if update.Priority != nil {
		task.Priority = *update.Priority
	}
	if update.InputContent != nil {
		task.InputContent = *update.InputContent
	}
	return nil
}

// ApplyClaim moves a pending task to running, stamping StartedAt.
func ApplyClaim(task *CleaningTask, now time.Time) error {
	return transition(task, TaskStatusRunning, func(next *CleaningTask) {
		next.StartedAt = now
	})
}

// ApplyCompletion moves a running task to completed with output.
func ApplyCompletion(task *CleaningTask, output string, now time.Time) error {
	return transition(task, TaskStatusCompleted, func(next *CleaningTask) {
		next.OutputContent = output
		next.CompletedAt = now
	})
}

// ApplyFailure moves a running task to failed. An empty reason is replaced
// with a generic one so failed tasks always carry an error message.
func ApplyFailure(task *CleaningTask, reason string, now time.Time) error {
	if reason == "" {
		reason = "task failed"
	}
	return transition(task, TaskStatusFailed, func(next *CleaningTask) {
		next.ErrorMessage = reason
		next.CompletedAt = now
	})
}

func transition(task *CleaningTask, to TaskStatus, stamp func(*CleaningTask)) error {
	if err := ValidateTransition(task.Status, to); err != nil {
		return fmt.Errorf("task %d: %w", task.Id, err)
	}
	next := *task
	next.Status = to
	stamp(&next)
	if err := ValidateTask(&next); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}
	*task = next
	return nil
}

// ValidateVectorEntry validates a VectorEntry before it is stored.
//
// NOT validated (checked by the store):
//   - vector length against the model's established dimension
//   - uniqueness of the (content, type, chunk, model) tuple
func ValidateVectorEntry(entry *VectorEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidVectorEntry)
	}
	if len(entry.Vector) == 0 {
		return fmt.Errorf("%w: empty vector", ErrInvalidVectorEntry)
	}
	if entry.ModelName == "" {
		return fmt.Errorf("%w: model name cannot be empty", ErrInvalidVectorEntry)
	}
	if entry.ContentType == "" {
		return fmt.Errorf("%w: content type cannot be empty", ErrInvalidVectorEntry)
	}
	if entry.ChunkIndex < 0 {
		return fmt.Errorf("%w: negative chunk index %d", ErrInvalidVectorEntry, entry.ChunkIndex)
	}
	return nil
}
