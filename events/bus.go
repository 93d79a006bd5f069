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


// Package events fans progress snapshots out to subscribers.
//
// A Bus keeps no history: subscribers only see events published after they
// subscribe. Publishing never blocks. When a subscriber falls behind, its
// oldest queued event is discarded so the newest snapshot always arrives.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/poiesic/scour/core"
)

// Channel names used by the batch runners.
const (
	CleaningProgress = "cleaning-progress"
	IndexingProgress = "vector-indexing-progress"
)

const defaultBuffer = 16

// Bus broadcasts ProgressEvents to any number of subscribers.
type Bus struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	logger *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// NewBus creates an empty Bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[*Subscription]struct{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "event-bus")
	return b
}

// Subscription receives events from a Bus until it is closed.
type Subscription struct {
	bus     *Bus
	ch      chan core.ProgressEvent
	dropped int
	closed  bool
}

// Subscribe registers a subscriber whose queue holds up to buffer events.
// A buffer below 1 uses the default size.
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = defaultBuffer
	}
	s := &Subscription{
		bus: b,
		ch:  make(chan core.ProgressEvent, buffer),
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Publish delivers ev to every subscriber without blocking.
func (b *Bus) Publish(ev core.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs {
		select {
		case s.ch <- ev:
			continue
		default:
		}
		// Queue full: discard the oldest event to make room.
		select {
		case <-s.ch:
			s.dropped++
		default:
		}
		select {
		case s.ch <- ev:
		default:
			s.dropped++
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// C returns the channel events are delivered on. It is closed by Close.
func (s *Subscription) C() <-chan core.ProgressEvent {
	return s.ch
}

// Dropped returns how many events were discarded because the subscriber
// fell behind.
func (s *Subscription) Dropped() int {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	return s.dropped
}

// Close unsubscribes and closes the delivery channel. Calling Close more
// than once is a no-op.
func (s *Subscription) Close() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	delete(b.subs, s)
	close(s.ch)
	if s.dropped > 0 {
		b.logger.Debug("subscriber closed after dropping events", "dropped", s.dropped)
	}
}

// Drain calls fn for every event received on s until a completed event has
// been handled, the subscription is closed or ctx is done.
func Drain(ctx context.Context, s *Subscription, fn func(core.ProgressEvent)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.C():
			if !ok {
				return nil
			}
			fn(ev)
			if ev.Type == core.EventCompleted {
				return nil
			}
		}
	}
}
