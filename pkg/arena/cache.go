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
	"fmt"
	"sync/atomic"

	"github.com/srediag/shm-arena/internal/shm"
)

// handleCache is the per-process memo table from segment id to attached
// region. A slot, once populated, is never cleared: every goroutine in the
// process observes the same canonical handle for a segment, and no handle
// is ever released for the life of the process.
type handleCache struct {
	registry *segmentRegistry
	events   *EventDispatcher
	slots    [MaxSegments]atomic.Pointer[shm.Region]
}

func newHandleCache(registry *segmentRegistry) *handleCache {
	return &handleCache{registry: registry}
}

// getOrOpen resolves a segment id to its attached region, attaching it on
// first use. Racing callers may attach the region more than once; exactly
// one attachment wins the publish and the loser's duplicate mapping is
// deliberately leaked rather than unmapped, so pointers derived from any
// observed handle stay valid forever.
func (c *handleCache) getOrOpen(id SegmentID) (*shm.Region, error) {
	slot := &c.slots[id]
	if region := slot.Load(); region != nil {
		return region, nil
	}
	name, err := c.registry.segmentName(id)
	if err != nil {
		return nil, err
	}
	region, err := shm.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: segment %d (%q): %v", ErrUnresolvedSegment, id, name, err)
	}
	if !slot.CompareAndSwap(nil, region) {
		return slot.Load(), nil
	}
	segmentsAttachedTotal.Inc()
	internalLogger.tracef("attached segment %d (%q, %d bytes)", id, name, region.Size())
	if c.events != nil {
		c.events.publish(SegmentEvent{
			Kind:    SegmentAttached,
			Segment: id,
			Name:    name,
			Size:    uint64(region.Size()),
		})
	}
	return region, nil
}

// publish installs a region this process just created. The slot for a
// freshly registered id cannot be populated yet, but the canonical handle
// is returned either way.
func (c *handleCache) publish(id SegmentID, region *shm.Region) *shm.Region {
	slot := &c.slots[id]
	if slot.CompareAndSwap(nil, region) {
		return region
	}
	return slot.Load()
}
