package cleaning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/scour/ai"
	"github.com/poiesic/scour/core"
)

// Refining passes text_cleanup output of the wrapped Cleaner through an
// ai.Refiner. Other task types are returned unchanged.
type Refining struct {
	next    Cleaner
	refiner ai.Refiner
	logger  *slog.Logger
}

// NewRefining wraps next with refiner.
func NewRefining(next Cleaner, refiner ai.Refiner, logger *slog.Logger) (*Refining, error) {
	if next == nil {
		return nil, ErrCleanerRequired
	}
	if refiner == nil {
		return nil, ErrRefinerRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refining{
		next:    next,
		refiner: refiner,
		logger:  logger.With("component", "cleaning-refiner"),
	}, nil
}

// Clean implements Cleaner.
func (r *Refining) Clean(ctx context.Context, task *core.CleaningTask) (string, error) {
	out, err := r.next.Clean(ctx, task)
	if err != nil || task.Type != core.TaskTypeTextCleanup {
		return out, err
	}

	refined, err := r.refiner.Refine(ctx, out)
	if err != nil {
		return "", fmt.Errorf("failed to refine task %s: %w", task.Id, err)
	}
	r.logger.Debug("refined cleaned text",
		"task_id", task.Id,
		"before_bytes", len(out),
		"after_bytes", len(refined))
	return refined, nil
}
