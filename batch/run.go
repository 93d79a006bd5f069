package batch

import (
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/scour/core"
	"github.com/poiesic/scour/events"
)

// Run publishes the lifecycle of one batch run on a named channel.
type Run struct {
	ID      string
	channel string
	bus     *events.Bus
	tracker *ProgressTracker
	now     func() time.Time
}

// NewRun creates a run over total items with a fresh run ID.
func NewRun(bus *events.Bus, channel string, total int, now func() time.Time) *Run {
	if now == nil {
		now = time.Now
	}
	return &Run{
		ID:      uuid.NewString(),
		channel: channel,
		bus:     bus,
		tracker: NewProgressTracker(total, now),
		now:     now,
	}
}

// Started publishes the started event.
func (r *Run) Started() {
	r.publish(core.EventStarted)
}

// Begin marks id as in progress and publishes a progress event.
func (r *Run) Begin(id core.ID) {
	r.tracker.Begin(id)
	r.publish(core.EventProgress)
}

// Finish records the outcome of the current item and publishes a progress event.
func (r *Run) Finish(ok bool) {
	r.tracker.Finish(ok)
	r.publish(core.EventProgress)
}

// Completed publishes the completed event and returns the final progress.
func (r *Run) Completed() core.BatchProgress {
	return r.publish(core.EventCompleted)
}

// Progress returns the current snapshot without publishing it.
func (r *Run) Progress() core.BatchProgress {
	return r.tracker.Snapshot()
}

func (r *Run) publish(typ core.EventType) core.BatchProgress {
	snap := r.tracker.Snapshot()
	if r.bus != nil {
		r.bus.Publish(core.ProgressEvent{
			Type:          typ,
			Channel:       r.channel,
			RunID:         r.ID,
			At:            r.now().UTC(),
			BatchProgress: snap,
		})
	}
	return snap
}
