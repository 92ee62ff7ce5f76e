/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package arena

import (
	"sync"

	"github.com/Workiva/go-datastructures/queue"
)

// EventKind discriminates segment events.
type EventKind uint8

const (
	// SegmentCreated fires when this process creates and registers a
	// fresh segment.
	SegmentCreated EventKind = iota + 1
	// SegmentAttached fires when this process first attaches a segment
	// another process created.
	SegmentAttached
)

func (k EventKind) String() string {
	switch k {
	case SegmentCreated:
		return "created"
	case SegmentAttached:
		return "attached"
	default:
		return "unknown"
	}
}

// SegmentEvent describes one segment becoming visible to this process.
type SegmentEvent struct {
	Kind    EventKind
	Segment SegmentID
	Name    string
	Size    uint64
	Class   SizeClass // zero for attaches
}

// EventDispatcher fans segment events out to subscribers. Publishing is
// non-blocking: the allocator never stalls on a slow subscriber, and events
// are dropped when the ring fills.
type EventDispatcher struct {
	ring *queue.RingBuffer
	done chan struct{}

	mu   sync.Mutex
	subs []func(SegmentEvent)
}

// NewEventDispatcher starts a dispatcher draining a ring of the given
// capacity, which is rounded up to a power of two by the ring buffer.
func NewEventDispatcher(capacity uint64) *EventDispatcher {
	d := &EventDispatcher{
		ring: queue.NewRingBuffer(capacity),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

// Subscribe registers a callback for every subsequent event. Callbacks run
// on the dispatcher goroutine and must not block for long.
func (d *EventDispatcher) Subscribe(fn func(SegmentEvent)) {
	d.mu.Lock()
	d.subs = append(d.subs, fn)
	d.mu.Unlock()
}

func (d *EventDispatcher) publish(ev SegmentEvent) {
	ok, err := d.ring.Offer(ev)
	if err != nil {
		return // dispatcher closed
	}
	if !ok {
		internalLogger.warnf("segment event ring full, dropping %s event for segment %d", ev.Kind, ev.Segment)
	}
}

func (d *EventDispatcher) run() {
	defer close(d.done)
	for {
		item, err := d.ring.Get()
		if err != nil {
			return
		}
		ev := item.(SegmentEvent)
		d.mu.Lock()
		subs := append(([]func(SegmentEvent))(nil), d.subs...)
		d.mu.Unlock()
		for _, fn := range subs {
			fn(ev)
		}
	}
}

// Close stops the dispatcher and waits for in-flight callbacks to finish.
// Events published after Close are discarded.
func (d *EventDispatcher) Close() {
	d.ring.Dispose()
	<-d.done
}
