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

import (
	"math"
	"sync"
	"time"

	"github.com/poiesic/scour/core"
)

// ProgressTracker tracks the progress of a batch run and estimates the time
// remaining from the mean duration of the items finished so far.
type ProgressTracker struct {
	total     int
	processed int
	failed    int
	current   core.ID
	itemStart time.Time
	busy      time.Duration
	now       func() time.Time
	mu        sync.Mutex
}

// NewProgressTracker creates a tracker for total items. A nil clock uses
// time.Now.
func NewProgressTracker(total int, now func() time.Time) *ProgressTracker {
	if now == nil {
		now = time.Now
	}
	return &ProgressTracker{
		total: total,
		now:   now,
	}
}

// Begin marks id as the item being worked on and starts timing it.
func (p *ProgressTracker) Begin(id core.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = id
	p.itemStart = p.now()
}

// Finish records the outcome of the current item.
func (p *ProgressTracker) Finish(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.itemStart.IsZero() {
		p.busy += p.now().Sub(p.itemStart)
		p.itemStart = time.Time{}
	}
	if ok {
		p.processed++
	} else {
		p.failed++
	}
}

// Snapshot returns the current progress.
func (p *ProgressTracker) Snapshot() core.BatchProgress {
	p.mu.Lock()
	defer p.mu.Unlock()

	attempted := p.processed + p.failed
	snap := core.BatchProgress{
		Total:         p.total,
		Processed:     p.processed,
		Failed:        p.failed,
		CurrentItemID: p.current,
	}
	if p.total > 0 {
		snap.ProgressPercent = int(math.Round(100 * float64(attempted) / float64(p.total)))
	} else {
		snap.ProgressPercent = 100
	}
	if attempted > 0 {
		mean := p.busy.Seconds() / float64(attempted)
		snap.EstimatedRemainingSeconds = mean * float64(max(p.total-attempted, 0))
	}
	return snap
}

// Elapsed returns the total time spent on finished items.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy
}
