package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/scour/core"
	"github.com/poiesic/scour/storage"
)

// TaskRepository implements storage.TaskQueue for BadgerDB.
type TaskRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
	now     func() time.Time
}

var _ storage.TaskQueue = (*TaskRepository)(nil)

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(backend *Backend) (*TaskRepository, error) {
	idSeq, err := backend.GetSequence(taskIDSeq)
	if err != nil {
		return nil, err
	}

	return &TaskRepository{
		backend: backend,
		idSeq:   idSeq,
		now:     time.Now,
	}, nil
}

// Close releases the ID sequence.
func (r *TaskRepository) Close() error {
	return r.idSeq.Release()
}

// timestamp returns the current time at the precision records are stored with.
func (r *TaskRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

// CreateTask queues a new pending task.
func (r *TaskRepository) CreateTask(ctx context.Context, newTask core.NewTask) (*core.CleaningTask, error) {
	tasks, err := r.CreateTasks(ctx, []core.NewTask{newTask})
	if err != nil {
		return nil, err
	}
	return tasks[0], nil
}

// CreateTasks queues several pending tasks in one transaction.
func (r *TaskRepository) CreateTasks(ctx context.Context, newTasks []core.NewTask) ([]*core.CleaningTask, error) {
	for _, newTask := range newTasks {
		if err := core.ValidateTaskType(newTask.Type); err != nil {
			return nil, err
		}
	}

	now := r.timestamp()
	tasks := make([]*core.CleaningTask, len(newTasks))
	for i, newTask := range newTasks {
		tasks[i] = &core.CleaningTask{
			FileID:       newTask.FileID,
			Type:         newTask.Type,
			Status:       core.TaskStatusPending,
			Priority:     newTask.Priority,
			InputContent: newTask.InputContent,
			CreatedAt:    now,
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, task := range tasks {
			id, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			task.Id = core.ID(id)

			if err := tx.Set(makeTaskKey(task.Id), storage.MarshalTask(task)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask retrieves a single task by ID.
func (r *TaskRepository) GetTask(ctx context.Context, id core.ID) (*core.CleaningTask, error) {
	var result *core.CleaningTask
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readTask(tx, id)
		return err
	}, false)
	return result, err
}

// ListTasks returns the tasks matching filter, newest first.
func (r *TaskRepository) ListTasks(ctx context.Context, filter storage.TaskFilter) ([]*core.CleaningTask, error) {
	query := strings.ToLower(filter.Query)

	tasks, err := r.scan(func(task *core.CleaningTask) bool {
		if filter.Status != "" && task.Status != filter.Status {
			return false
		}
		if filter.Type != "" && task.Type != filter.Type {
			return false
		}
		return query == "" || taskMatches(task, query)
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(tasks, func(a, b *core.CleaningTask) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.Id, a.Id)
	})
	return tasks, nil
}

// ListPending returns pending tasks in processing order.
func (r *TaskRepository) ListPending(ctx context.Context) ([]*core.CleaningTask, error) {
	tasks, err := r.scan(func(task *core.CleaningTask) bool {
		return task.Status == core.TaskStatusPending
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(tasks, func(a, b *core.CleaningTask) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Id, b.Id)
	})
	return tasks, nil
}

// UpdateTask edits the priority or input of a pending task.
// Status changes are refused; see ClaimTask, CompleteTask and FailTask.
func (r *TaskRepository) UpdateTask(ctx context.Context, id core.ID, update core.TaskUpdate) (*core.CleaningTask, error) {
	return r.mutate(id, func(task *core.CleaningTask) error {
		return core.ApplyTaskUpdate(task, update)
	})
}

// ClaimTask moves a pending task to running.
func (r *TaskRepository) ClaimTask(ctx context.Context, id core.ID) (*core.CleaningTask, error) {
	return r.mutate(id, func(task *core.CleaningTask) error {
		return core.ApplyClaim(task, r.timestamp())
	})
}

// CompleteTask moves a running task to completed.
func (r *TaskRepository) CompleteTask(ctx context.Context, id core.ID, output string) (*core.CleaningTask, error) {
	return r.mutate(id, func(task *core.CleaningTask) error {
		return core.ApplyCompletion(task, output, r.timestamp())
	})
}

// FailTask moves a running task to failed.
func (r *TaskRepository) FailTask(ctx context.Context, id core.ID, reason string) (*core.CleaningTask, error) {
	return r.mutate(id, func(task *core.CleaningTask) error {
		return core.ApplyFailure(task, reason, r.timestamp())
	})
}

// mutate reads a task, applies fn and writes the result back in one
// transaction. Nothing is written when fn fails.
func (r *TaskRepository) mutate(id core.ID, fn func(*core.CleaningTask) error) (*core.CleaningTask, error) {
	var result *core.CleaningTask
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		task, err := readTask(tx, id)
		if err != nil {
			return err
		}
		if err := fn(task); err != nil {
			return err
		}
		if err := tx.Set(makeTaskKey(id), storage.MarshalTask(task)); err != nil {
			return err
		}
		result = task
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteTask removes a task.
func (r *TaskRepository) DeleteTask(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeTaskKey(id)
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteAllTasks removes every task and returns how many were removed.
// The count is read before the prefix is dropped, so a task created
// concurrently may be removed without being counted. Callers that need an
// exact count must stop writers first (see scour.Database.ClearTasks).
func (r *TaskRepository) DeleteAllTasks(ctx context.Context) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		count = countPrefix(tx, []byte(taskPrefix))
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	if err := r.backend.DropPrefix([]byte(taskPrefix)); err != nil {
		return 0, fmt.Errorf("failed to clear tasks: %w", err)
	}
	return count, nil
}

// TaskStats recomputes aggregates over all stored tasks.
func (r *TaskRepository) TaskStats(ctx context.Context) (*core.TaskStats, error) {
	stats := &core.TaskStats{}
	var processing time.Duration

	_, err := r.scan(func(task *core.CleaningTask) bool {
		stats.Total++
		switch task.Status {
		case core.TaskStatusPending:
			stats.Pending++
		case core.TaskStatusRunning:
			stats.Running++
		case core.TaskStatusCompleted:
			stats.Completed++
			processing += task.CompletedAt.Sub(task.StartedAt)
		case core.TaskStatusFailed:
			stats.Failed++
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	if stats.Completed > 0 {
		stats.AverageProcessingTime = processing / time.Duration(stats.Completed)
	}
	return stats, nil
}

// TaskSummary counts tasks by type and status.
func (r *TaskRepository) TaskSummary(ctx context.Context) (core.TaskSummary, error) {
	summary := core.TaskSummary{}
	_, err := r.scan(func(task *core.CleaningTask) bool {
		summary.Add(task.Type, task.Status)
		return false
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// scan reads every task in a single read transaction and keeps those
// accepted by keep.
func (r *TaskRepository) scan(keep func(*core.CleaningTask) bool) ([]*core.CleaningTask, error) {
	var results []*core.CleaningTask
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return iteratePrefix(tx, []byte(taskPrefix), func(_, val []byte) error {
			task, err := storage.UnmarshalTask(val)
			if err != nil {
				return err
			}
			if keep(task) {
				results = append(results, task)
			}
			return nil
		})
	}, false)
	return results, err
}

// taskMatches reports whether any searchable field contains the lowercased query.
func taskMatches(task *core.CleaningTask, query string) bool {
	fields := []string{
		string(task.Type),
		string(task.Status),
		task.InputContent,
		task.OutputContent,
		task.ErrorMessage,
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

func readTask(tx *badger.Txn, id core.ID) (*core.CleaningTask, error) {
	item, err := tx.Get(makeTaskKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var task *core.CleaningTask
	err = item.Value(func(val []byte) error {
		task, err = storage.UnmarshalTask(val)
		return err
	})
	return task, err
}
